package requirements

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/meridian-ops/meridian-ops/internal/shared"
)

// Handler manages requirement endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers requirement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/requirements", h.create)
	r.Get("/requirements/{id}", h.get)
	r.Patch("/requirements/{id}/fulfilment", h.updateFulfilment)
	r.Get("/projects/{projectID}/requirements", h.listByProject)
	r.Get("/projects/{projectID}/suggested-amount", h.suggestedAmount)
	r.Get("/projects/{projectID}/planned-profit", h.plannedProfit)
}

type createRequirementRequest struct {
	ProjectID          int64           `json:"project_id" validate:"required,gt=0"`
	Title              string          `json:"title" validate:"required"`
	ClientPrice        decimal.Decimal `json:"client_price"`
	ExpectedVendorCost decimal.Decimal `json:"expected_vendor_cost"`
}

type updateFulfilmentRequest struct {
	Fulfilment string `json:"fulfilment" validate:"required,oneof=pending in_progress fulfilled cancelled"`
}

func urlInt64(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.Validationf("invalid %s", name)
	}
	return id, nil
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequirementRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.RespondError(w, shared.Validationf("%v", err))
		return
	}
	created, err := h.service.CreateRequirement(r.Context(), CreateRequirementInput{
		ProjectID:          req.ProjectID,
		Title:              req.Title,
		ClientPrice:        req.ClientPrice,
		ExpectedVendorCost: req.ExpectedVendorCost,
	})
	if err != nil {
		h.logger.Error("create requirement", slog.Any("error", err))
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
	req, err := h.service.GetRequirement(r.Context(), id)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, req)
}

func (h *Handler) updateFulfilment(w http.ResponseWriter, r *http.Request) {
	id, err := urlInt64(r, "id")
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	var req updateFulfilmentRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.RespondError(w, shared.Validationf("%v", err))
		return
	}
	updated, err := h.service.UpdateFulfilment(r.Context(), id, FulfilmentStatus(req.Fulfilment))
	if err != nil {
		h.logger.Error("update fulfilment", slog.Int64("requirement_id", id), slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, updated)
}

func (h *Handler) listByProject(w http.ResponseWriter, r *http.Request) {
	projectID, err := urlInt64(r, "projectID")
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	reqs, err := h.service.ListByProject(r.Context(), projectID)
	if err != nil {
		h.logger.Error("list requirements", slog.Int64("project_id", projectID), slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"items": reqs})
}

func (h *Handler) suggestedAmount(w http.ResponseWriter, r *http.Request) {
	projectID, err := urlInt64(r, "projectID")
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	amount, err := h.service.SuggestedAmount(r.Context(), projectID)
	if err != nil {
		h.logger.Error("suggested amount", slog.Int64("project_id", projectID), slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"suggested_amount": amount})
}

func (h *Handler) plannedProfit(w http.ResponseWriter, r *http.Request) {
	projectID, err := urlInt64(r, "projectID")
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	profit, err := h.service.PlannedProfit(r.Context(), projectID)
	if err != nil {
		h.logger.Error("planned profit", slog.Int64("project_id", projectID), slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"planned_profit": profit})
}
