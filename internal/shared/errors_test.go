package shared

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorTaxonomy(t *testing.T) {
	nf := NotFound("invoice")
	require.ErrorIs(t, nf, ErrNotFound)
	require.Equal(t, "invoice not found", nf.Error())
	require.Equal(t, http.StatusNotFound, HTTPStatus(nf))

	val := Validationf("amount must be positive, got %s", "-1")
	require.ErrorIs(t, val, ErrValidation)
	require.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(val))

	conf := Conflictf("client is still referenced")
	require.ErrorIs(t, conf, ErrConflict)
	require.Equal(t, http.StatusConflict, HTTPStatus(conf))

	require.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("pq: connection reset")))
}

func TestUserSafeMessage(t *testing.T) {
	require.Equal(t, "invoice not found", UserSafeMessage(NotFound("invoice")))
	require.Equal(t, "internal error, please retry", UserSafeMessage(errors.New("dial tcp: refused")))
	require.Empty(t, UserSafeMessage(nil))
}
