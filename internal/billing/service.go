package billing

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/meridian-ops/meridian-ops/internal/ledger"
	"github.com/meridian-ops/meridian-ops/internal/observability"
	"github.com/meridian-ops/meridian-ops/internal/shared"
)

// CacheBumper invalidates the per-project suggestion cache. The requirements
// package provides the redis implementation; a no-op stands in when unwired.
type CacheBumper interface {
	Bump(ctx context.Context, projectID int64) error
}

type nopBumper struct{}

func (nopBumper) Bump(context.Context, int64) error { return nil }

// Service owns the invoice lifecycle and the payment application rules.
type Service struct {
	repo    Repository
	audit   shared.AuditSink
	notify  shared.Notifier
	cache   CacheBumper
	metrics *observability.DomainMetrics
	log     *slog.Logger
	printer *message.Printer
}

// NewService constructs the billing service. Nil collaborators fall back to
// no-op implementations.
func NewService(repo Repository, audit shared.AuditSink, notify shared.Notifier, cache CacheBumper, metrics *observability.DomainMetrics, log *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAuditSink{}
	}
	if notify == nil {
		notify = shared.NopNotifier{}
	}
	if cache == nil {
		cache = nopBumper{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:    repo,
		audit:   audit,
		notify:  notify,
		cache:   cache,
		metrics: metrics,
		log:     log,
		printer: message.NewPrinter(language.English),
	}
}

// validStatusTarget enumerates the lifecycle graph. Draft issues or
// cancels; issued ages, settles or cancels; cancelled may re-issue. Paid
// only reopens through payment deletion, never through a direct status
// write.
func validStatusTarget(from, to InvoiceStatus) bool {
	if from == to {
		return true
	}
	switch from {
	case StatusDraft:
		return to == StatusIssued || to == StatusCancelled
	case StatusIssued:
		return to == StatusPaid || to == StatusOverdue || to == StatusCancelled
	case StatusOverdue:
		return to == StatusPaid || to == StatusCancelled
	case StatusCancelled:
		return to == StatusIssued
	default:
		return false
	}
}

func validateBillingMonth(invoiceType InvoiceType, billingMonth string) error {
	if billingMonth == "" {
		return nil
	}
	if invoiceType != InvoiceTypeMonthly {
		return shared.Validationf("billing_month is only valid for monthly invoices")
	}
	if _, err := time.Parse("2006-01", billingMonth); err != nil {
		return shared.Validationf("billing_month must be YYYY-MM")
	}
	return nil
}

// CreateInvoice creates a draft invoice. Drafts carry no ledger or snapshot
// side effects until a later status transition.
func (s *Service) CreateInvoice(ctx context.Context, input CreateInvoiceInput) (*Invoice, error) {
	if input.ProjectID <= 0 {
		return nil, shared.Validationf("project id required")
	}
	if !input.Type.IsValid() {
		return nil, shared.Validationf("invalid invoice type %q", input.Type)
	}
	if input.Amount.IsNegative() {
		return nil, shared.Validationf("amount must not be negative")
	}
	if err := validateBillingMonth(input.Type, input.BillingMonth); err != nil {
		return nil, err
	}
	return s.repo.CreateInvoice(ctx, input)
}

// UpdateInvoice applies partial field changes and evaluates status
// transition side effects inside one transaction:
//
//   - to issued: emit the client_invoice ledger entry and rebuild the
//     requirement snapshot from the currently fulfilled set
//   - to cancelled: retract the ledger entry and clear the snapshot;
//     recorded payments stay untouched
//
// Re-issuing after a void snapshots the fulfilled set of the re-issue
// moment, not the original one; the amount field is never recomputed, so a
// mismatch between the two is logged rather than corrected.
func (s *Service) UpdateInvoice(ctx context.Context, id int64, input UpdateInvoiceInput) (*Invoice, error) {
	if input.Type != nil && !input.Type.IsValid() {
		return nil, shared.Validationf("invalid invoice type %q", *input.Type)
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, shared.Validationf("invalid status %q", *input.Status)
	}
	if input.Amount != nil && input.Amount.IsNegative() {
		return nil, shared.Validationf("amount must not be negative")
	}

	var (
		updated *Invoice
		issued  bool
		voided  bool
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, id)
		if err != nil {
			return err
		}
		previous := inv.Status

		if input.Type != nil {
			inv.Type = *input.Type
		}
		if input.Amount != nil {
			inv.Amount = *input.Amount
		}
		if input.Status != nil {
			inv.Status = *input.Status
		}
		if input.IssueDate != nil {
			inv.IssueDate = input.IssueDate
		}
		if input.DueDate != nil {
			inv.DueDate = input.DueDate
		}
		if input.BillingMonth != nil {
			inv.BillingMonth = *input.BillingMonth
		}
		if input.Status != nil && !validStatusTarget(previous, inv.Status) {
			return shared.Validationf("cannot transition invoice from %s to %s", previous, inv.Status)
		}
		if err := validateBillingMonth(inv.Type, inv.BillingMonth); err != nil {
			return err
		}

		switch {
		case inv.Status == StatusIssued && previous != StatusIssued:
			if inv.IssueDate == nil {
				today := time.Now()
				inv.IssueDate = &today
			}
			if err := tx.UpsertLedgerEntry(ctx, ledger.Entry{
				ProjectID:   inv.ProjectID,
				Type:        ledger.EntryClientInvoice,
				Amount:      inv.Amount,
				EntryDate:   *inv.IssueDate,
				ReferenceID: inv.ID,
			}); err != nil {
				return err
			}
			fulfilled, err := tx.ListFulfilledRequirements(ctx, inv.ProjectID)
			if err != nil {
				return err
			}
			ids := make([]int64, 0, len(fulfilled))
			sum := decimal.Zero
			for _, fr := range fulfilled {
				ids = append(ids, fr.ID)
				sum = sum.Add(fr.ClientPrice)
			}
			if err := tx.ReplaceSnapshot(ctx, inv.ID, ids); err != nil {
				return err
			}
			if !sum.Equal(inv.Amount) {
				s.log.Warn("issued invoice amount differs from fulfilled requirement sum",
					slog.Int64("invoice_id", inv.ID),
					slog.String("amount", inv.Amount.String()),
					slog.String("fulfilled_sum", sum.String()))
			}
			issued = true
		case inv.Status == StatusCancelled && previous != StatusCancelled:
			if err := tx.DeleteLedgerEntry(ctx, ledger.EntryClientInvoice, inv.ID); err != nil {
				return err
			}
			if err := tx.ClearSnapshot(ctx, inv.ID); err != nil {
				return err
			}
			voided = true
		}

		if err := tx.SaveInvoice(ctx, inv); err != nil {
			return err
		}
		updated = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch {
	case issued:
		s.metrics.InvoiceIssued()
		s.recordAudit(ctx, "invoice_issued", "invoice", updated.ID, map[string]any{
			"project_id": updated.ProjectID,
			"amount":     updated.Amount.String(),
		})
		s.bumpSuggestions(ctx, updated.ProjectID)
	case voided:
		s.recordAudit(ctx, "invoice_voided", "invoice", updated.ID, map[string]any{
			"project_id": updated.ProjectID,
		})
		s.bumpSuggestions(ctx, updated.ProjectID)
	}
	return updated, nil
}

// GetInvoice returns the invoice read model with its display number,
// payments and remaining balance.
func (s *Service) GetInvoice(ctx context.Context, id int64) (*InvoiceDetail, error) {
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	year, seq, err := s.repo.NumberRank(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	inv.Number = FormatNumber(year, seq)

	payments, err := s.repo.ListPayments(ctx, id)
	if err != nil {
		return nil, err
	}
	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p.Amount)
	}
	return &InvoiceDetail{
		Invoice:  *inv,
		Payments: payments,
		PaidSum:  paid,
		Balance:  inv.Amount.Sub(paid),
	}, nil
}

// ListInvoices lists invoices, optionally scoped to a project, with display
// numbers resolved.
func (s *Service) ListInvoices(ctx context.Context, projectID int64, params shared.ListParams) ([]Invoice, shared.Pagination, error) {
	invoices, total, err := s.repo.ListInvoices(ctx, projectID, params)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	for i := range invoices {
		year, seq, err := s.repo.NumberRank(ctx, invoices[i].ID)
		if err != nil {
			return nil, shared.Pagination{}, err
		}
		invoices[i].Number = FormatNumber(year, seq)
	}
	return invoices, shared.NewPagination(params, total), nil
}

// RecordPayment inserts a payment, mirrors it into the ledger and closes the
// invoice when the paid sum reaches the invoice amount. Two identical calls
// create two distinct payments; payments are discrete events, not upserts.
func (s *Service) RecordPayment(ctx context.Context, input RecordPaymentInput) (*Payment, error) {
	if input.InvoiceID <= 0 {
		return nil, shared.Validationf("invoice id required")
	}
	if !input.Amount.IsPositive() {
		return nil, shared.Validationf("amount must be positive")
	}
	if input.PaidOn.IsZero() {
		return nil, shared.Validationf("payment date required")
	}

	var payment *Payment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, input.InvoiceID)
		if err != nil {
			return err
		}
		payment, err = tx.InsertPayment(ctx, input)
		if err != nil {
			return err
		}
		if err := tx.UpsertLedgerEntry(ctx, ledger.Entry{
			ProjectID:   inv.ProjectID,
			Type:        ledger.EntryClientPayment,
			Amount:      payment.Amount,
			EntryDate:   payment.PaidOn,
			ReferenceID: payment.ID,
		}); err != nil {
			return err
		}
		sum, err := tx.SumPayments(ctx, inv.ID)
		if err != nil {
			return err
		}
		if inv.Amount.IsPositive() && sum.GreaterThanOrEqual(inv.Amount) && inv.Status != StatusPaid {
			return tx.SetInvoiceStatus(ctx, inv.ID, StatusPaid)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.PaymentRecorded()
	s.recordAudit(ctx, "payment_received", "payment", payment.ID, map[string]any{
		"invoice_id": payment.InvoiceID,
		"amount":     payment.Amount.String(),
	})
	return payment, nil
}

// DeletePayment removes a payment and its ledger mirror. If the remaining
// sum drops below the invoice amount a paid invoice reopens to issued; it
// never reverts to draft or cancelled.
func (s *Service) DeletePayment(ctx context.Context, paymentID int64) error {
	var deleted *Payment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		inv, err := tx.GetInvoiceForUpdate(ctx, p.InvoiceID)
		if err != nil {
			return err
		}
		if err := tx.DeletePayment(ctx, p.ID); err != nil {
			return err
		}
		if err := tx.DeleteLedgerEntry(ctx, ledger.EntryClientPayment, p.ID); err != nil {
			return err
		}
		sum, err := tx.SumPayments(ctx, inv.ID)
		if err != nil {
			return err
		}
		if sum.LessThan(inv.Amount) && inv.Status == StatusPaid {
			if err := tx.SetInvoiceStatus(ctx, inv.ID, StatusIssued); err != nil {
				return err
			}
		}
		deleted = p
		return nil
	})
	if err != nil {
		return err
	}

	s.recordAudit(ctx, "payment_deleted", "payment", deleted.ID, map[string]any{
		"invoice_id": deleted.InvoiceID,
		"amount":     deleted.Amount.String(),
	})
	return nil
}

// SyncOverdue flips every issued invoice whose due date has passed to
// overdue and notifies once per flipped invoice. Safe to call repeatedly;
// already-overdue invoices no longer match the filter.
func (s *Service) SyncOverdue(ctx context.Context) (int, error) {
	// due dates are calendar dates; the cutoff is midnight UTC, matching
	// the worker clock
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var flipped []Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		due, err := tx.ListDueInvoices(ctx, today)
		if err != nil {
			return err
		}
		for _, inv := range due {
			if err := tx.SetInvoiceStatus(ctx, inv.ID, StatusOverdue); err != nil {
				return err
			}
		}
		flipped = due
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.metrics.OverdueFlipped(len(flipped))
	for _, inv := range flipped {
		number := strconv.FormatInt(inv.ID, 10)
		if year, seq, err := s.repo.NumberRank(ctx, inv.ID); err == nil {
			number = FormatNumber(year, seq)
		}
		note := shared.Notification{
			Title: "Invoice " + number + " is overdue",
			Body:  s.printer.Sprintf("Amount %.2f was due on %s.", inv.Amount.InexactFloat64(), inv.DueDate.Format("2006-01-02")),
			Kind:  "invoice_overdue",
			Link:  "/invoices/" + strconv.FormatInt(inv.ID, 10),
		}
		if err := s.notify.Create(ctx, note); err != nil {
			s.log.Error("overdue notification failed", slog.Int64("invoice_id", inv.ID), slog.Any("error", err))
		}
	}
	return len(flipped), nil
}

func (s *Service) recordAudit(ctx context.Context, action, entity string, entityID int64, meta map[string]any) {
	log := shared.AuditLog{
		Action:   action,
		Entity:   entity,
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
		At:       time.Now(),
	}
	if err := s.audit.Record(ctx, log); err != nil {
		s.log.Error("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

func (s *Service) bumpSuggestions(ctx context.Context, projectID int64) {
	if err := s.cache.Bump(ctx, projectID); err != nil {
		s.log.Error("suggestion cache bump failed", slog.Int64("project_id", projectID), slog.Any("error", err))
	}
}
