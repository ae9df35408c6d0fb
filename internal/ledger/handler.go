package ledger

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-ops/meridian-ops/internal/shared"
)

// Handler manages ledger read endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/projects/{projectID}/ledger", h.listEntries)
	r.Get("/projects/{projectID}/totals", h.totals)
}

func projectID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "projectID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.Validationf("invalid project id")
	}
	return id, nil
}

func (h *Handler) listEntries(w http.ResponseWriter, r *http.Request) {
	id, err := projectID(r)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	entries, err := h.service.Entries(r.Context(), id)
	if err != nil {
		h.logger.Error("list ledger entries", slog.Int64("project_id", id), slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"items": entries})
}

func (h *Handler) totals(w http.ResponseWriter, r *http.Request) {
	id, err := projectID(r)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	totals, err := h.service.Totals(r.Context(), id)
	if err != nil {
		h.logger.Error("project totals", slog.Int64("project_id", id), slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{
		"billed":        totals.Billed,
		"received":      totals.Received,
		"expected_cost": totals.ExpectedCost,
		"paid_out":      totals.PaidOut,
		"actual_profit": totals.ActualProfit(),
	})
}
