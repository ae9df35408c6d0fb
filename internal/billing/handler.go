package billing

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

// Handler manages billing endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers billing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/invoices", h.createInvoice)
	r.Get("/invoices", h.listInvoices)
	r.Get("/invoices/{id}", h.getInvoice)
	r.Patch("/invoices/{id}", h.updateInvoice)
	r.Post("/invoices/{id}/payments", h.recordPayment)
	r.Delete("/payments/{id}", h.deletePayment)
	r.Post("/invoices/sync-overdue", h.syncOverdue)
}

type createInvoiceRequest struct {
	ProjectID    int64           `json:"project_id" validate:"required,gt=0"`
	Type         string          `json:"type" validate:"required,oneof=project milestone monthly"`
	Amount       decimal.Decimal `json:"amount"`
	IssueDate    *string         `json:"issue_date"`
	DueDate      *string         `json:"due_date"`
	BillingMonth string          `json:"billing_month"`
}

type updateInvoiceRequest struct {
	Type         *string          `json:"type"`
	Amount       *decimal.Decimal `json:"amount"`
	Status       *string          `json:"status"`
	IssueDate    *string          `json:"issue_date"`
	DueDate      *string          `json:"due_date"`
	BillingMonth *string          `json:"billing_month"`
}

type recordPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	PaidOn string          `json:"paid_on" validate:"required"`
	Mode   string          `json:"mode"`
}

func parseDate(value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, shared.Validationf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return t, nil
}

func parseOptionalDate(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	t, err := parseDate(*value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func urlID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.Validationf("invalid id")
	}
	return id, nil
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.RespondError(w, shared.Validationf("%v", err))
		return
	}
	issueDate, err := parseOptionalDate(req.IssueDate)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	dueDate, err := parseOptionalDate(req.DueDate)
	if err != nil {
		shared.RespondError(w, err)
		return
	}

	inv, err := h.service.CreateInvoice(r.Context(), CreateInvoiceInput{
		ProjectID:    req.ProjectID,
		Type:         InvoiceType(req.Type),
		Amount:       req.Amount,
		IssueDate:    issueDate,
		DueDate:      dueDate,
		BillingMonth: req.BillingMonth,
	})
	if err != nil {
		h.logger.Error("create invoice", slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusCreated, inv)
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	var projectID int64
	if raw := r.URL.Query().Get("project_id"); raw != "" {
		projectID, _ = strconv.ParseInt(raw, 10, 64)
	}
	var params shared.ListParams
	params.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	params.PerPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))

	invoices, pagination, err := h.service.ListInvoices(r.Context(), projectID, params)
	if err != nil {
		h.logger.Error("list invoices", slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{
		"items":      invoices,
		"pagination": pagination,
	})
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	detail, err := h.service.GetInvoice(r.Context(), id)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, detail)
}

func (h *Handler) updateInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	var req updateInvoiceRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondError(w, err)
		return
	}

	input := UpdateInvoiceInput{Amount: req.Amount, BillingMonth: req.BillingMonth}
	if req.Type != nil {
		t := InvoiceType(*req.Type)
		input.Type = &t
	}
	if req.Status != nil {
		st := InvoiceStatus(*req.Status)
		input.Status = &st
	}
	if input.IssueDate, err = parseOptionalDate(req.IssueDate); err != nil {
		shared.RespondError(w, err)
		return
	}
	if input.DueDate, err = parseOptionalDate(req.DueDate); err != nil {
		shared.RespondError(w, err)
		return
	}

	inv, err := h.service.UpdateInvoice(r.Context(), id, input)
	if err != nil {
		h.logger.Error("update invoice", slog.Int64("invoice_id", id), slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, inv)
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	var req recordPaymentRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.RespondError(w, shared.Validationf("%v", err))
		return
	}
	paidOn, err := parseDate(req.PaidOn)
	if err != nil {
		shared.RespondError(w, err)
		return
	}

	payment, err := h.service.RecordPayment(r.Context(), RecordPaymentInput{
		InvoiceID: id,
		Amount:    req.Amount,
		PaidOn:    paidOn,
		Mode:      req.Mode,
	})
	if err != nil {
		h.logger.Error("record payment", slog.Int64("invoice_id", id), slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusCreated, payment)
}

func (h *Handler) deletePayment(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	if err := h.service.DeletePayment(r.Context(), id); err != nil {
		h.logger.Error("delete payment", slog.Int64("payment_id", id), slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

func (h *Handler) syncOverdue(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.SyncOverdue(r.Context())
	if err != nil {
		h.logger.Error("sync overdue", slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"updated": count})
}
