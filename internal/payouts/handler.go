package payouts

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/meridian-ops/meridian-ops/internal/shared"
)

// Handler manages vendor payout endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers payout routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/payouts", h.create)
	r.Get("/payouts/{id}", h.get)
	r.Patch("/payouts/{id}", h.update)
	r.Get("/requirements/{requirementID}/payouts", h.listByRequirement)
	r.Get("/vendors/{vendorID}/payouts", h.listByVendor)
}

type createPayoutRequest struct {
	RequirementID int64           `json:"requirement_id" validate:"required,gt=0"`
	VendorID      int64           `json:"vendor_id" validate:"required,gt=0"`
	Amount        decimal.Decimal `json:"amount"`
	PaidDate      *string         `json:"paid_date"`
}

type updatePayoutRequest struct {
	Status   *string `json:"status"`
	PaidDate *string `json:"paid_date"`
}

func parseOptionalDate(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", *value)
	if err != nil {
		return nil, shared.Validationf("invalid date %q, expected YYYY-MM-DD", *value)
	}
	return &t, nil
}

func urlInt64(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.Validationf("invalid %s", name)
	}
	return id, nil
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createPayoutRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.RespondError(w, shared.Validationf("%v", err))
		return
	}
	paidDate, err := parseOptionalDate(req.PaidDate)
	if err != nil {
		shared.RespondError(w, err)
		return
	}

	created, err := h.service.CreatePayout(r.Context(), CreatePayoutInput{
		RequirementID: req.RequirementID,
		VendorID:      req.VendorID,
		Amount:        req.Amount,
		PaidDate:      paidDate,
	})
	if err != nil {
		h.logger.Error("create payout", slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusCreated, created)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := urlInt64(r, "id")
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	p, err := h.service.GetPayout(r.Context(), id)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, p)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := urlInt64(r, "id")
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	var req updatePayoutRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondError(w, err)
		return
	}

	input := UpdatePayoutInput{}
	if req.Status != nil {
		st := PayoutStatus(*req.Status)
		input.Status = &st
	}
	if input.PaidDate, err = parseOptionalDate(req.PaidDate); err != nil {
		shared.RespondError(w, err)
		return
	}

	updated, err := h.service.UpdatePayout(r.Context(), id, input)
	if err != nil {
		h.logger.Error("update payout", slog.Int64("payout_id", id), slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, updated)
}

func (h *Handler) listByRequirement(w http.ResponseWriter, r *http.Request) {
	requirementID, err := urlInt64(r, "requirementID")
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	payouts, err := h.service.ListByRequirement(r.Context(), requirementID)
	if err != nil {
		h.logger.Error("list payouts", slog.Int64("requirement_id", requirementID), slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"items": payouts})
}

func (h *Handler) listByVendor(w http.ResponseWriter, r *http.Request) {
	vendorID, err := urlInt64(r, "vendorID")
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	payouts, err := h.service.ListByVendor(r.Context(), vendorID)
	if err != nil {
		h.logger.Error("list payouts", slog.Int64("vendor_id", vendorID), slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"items": payouts})
}
