package shared

import (
	"encoding/json"
	"net/http"
)

// DecodeJSON parses a JSON request body into dst, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return Validationf("invalid request body: %v", err)
	}
	return nil
}

// RespondJSON writes v as a JSON response with the given status.
func RespondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// RespondError writes the error using the taxonomy status and safe message.
func RespondError(w http.ResponseWriter, err error) {
	RespondJSON(w, HTTPStatus(err), map[string]string{"error": UserSafeMessage(err)})
}
