package payouts

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/meridian-ops/meridian-ops/internal/ledger"
	"github.com/meridian-ops/meridian-ops/internal/observability"
	"github.com/meridian-ops/meridian-ops/internal/shared"
)

// Service owns the vendor payout lifecycle, the outbound mirror of the
// invoice/payment rules.
type Service struct {
	repo    Repository
	audit   shared.AuditSink
	metrics *observability.DomainMetrics
	log     *slog.Logger
}

// NewService constructs the payouts service. Nil collaborators fall back to
// no-op implementations.
func NewService(repo Repository, audit shared.AuditSink, metrics *observability.DomainMetrics, log *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAuditSink{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, audit: audit, metrics: metrics, log: log}
}

// CreatePayout creates a payout for a requirement. Supplying a paid date
// creates it already paid, with the vendor_payment ledger entry emitted in
// the same transaction; otherwise it starts pending with no ledger effect.
func (s *Service) CreatePayout(ctx context.Context, input CreatePayoutInput) (*Payout, error) {
	if input.RequirementID <= 0 {
		return nil, shared.Validationf("requirement id required")
	}
	if input.VendorID <= 0 {
		return nil, shared.Validationf("vendor id required")
	}
	if !input.Amount.IsPositive() {
		return nil, shared.Validationf("amount must be positive")
	}

	status := StatusPending
	if input.PaidDate != nil {
		status = StatusPaid
	}

	var created *Payout
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		projectID, err := tx.RequirementProject(ctx, input.RequirementID)
		if err != nil {
			return err
		}
		created, err = tx.InsertPayout(ctx, input, status)
		if err != nil {
			return err
		}
		if status == StatusPaid {
			return tx.UpsertLedgerEntry(ctx, ledger.Entry{
				ProjectID:   projectID,
				Type:        ledger.EntryVendorPayment,
				Amount:      created.Amount,
				EntryDate:   *input.PaidDate,
				ReferenceID: created.ID,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if status == StatusPaid {
		s.metrics.PayoutPaid()
		s.recordAudit(ctx, "payout_paid", created)
	}
	return created, nil
}

// UpdatePayout transitions a payout. Entering paid requires a paid date and
// emits the ledger entry; leaving paid retracts it. Re-paying after an
// un-pay emits a fresh entry.
func (s *Service) UpdatePayout(ctx context.Context, id int64, input UpdatePayoutInput) (*Payout, error) {
	if input.Status != nil && !input.Status.IsValid() {
		return nil, shared.Validationf("invalid status %q", *input.Status)
	}

	var (
		updated  *Payout
		paid     bool
		reverted bool
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetPayoutForUpdate(ctx, id)
		if err != nil {
			return err
		}
		previous := p.Status

		if input.Status != nil {
			p.Status = *input.Status
		}
		if input.PaidDate != nil {
			p.PaidDate = input.PaidDate
		}

		switch {
		case p.Status == StatusPaid && previous != StatusPaid:
			if p.PaidDate == nil {
				return shared.Validationf("paid date required to mark a payout paid")
			}
			if err := tx.UpsertLedgerEntry(ctx, ledger.Entry{
				ProjectID:   p.ProjectID,
				Type:        ledger.EntryVendorPayment,
				Amount:      p.Amount,
				EntryDate:   *p.PaidDate,
				ReferenceID: p.ID,
			}); err != nil {
				return err
			}
			paid = true
		case p.Status != StatusPaid && previous == StatusPaid:
			if err := tx.DeleteLedgerEntry(ctx, ledger.EntryVendorPayment, p.ID); err != nil {
				return err
			}
			p.PaidDate = nil
			reverted = true
		case p.Status == StatusPaid && input.PaidDate != nil:
			// still paid, date moved: the ledger mirror must follow
			if err := tx.UpsertLedgerEntry(ctx, ledger.Entry{
				ProjectID:   p.ProjectID,
				Type:        ledger.EntryVendorPayment,
				Amount:      p.Amount,
				EntryDate:   *p.PaidDate,
				ReferenceID: p.ID,
			}); err != nil {
				return err
			}
		}

		if err := tx.SetStatus(ctx, p.ID, p.Status, p.PaidDate); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch {
	case paid:
		s.metrics.PayoutPaid()
		s.recordAudit(ctx, "payout_paid", updated)
	case reverted:
		s.recordAudit(ctx, "payout_reverted", updated)
	}
	return updated, nil
}

// GetPayout returns one payout.
func (s *Service) GetPayout(ctx context.Context, id int64) (*Payout, error) {
	return s.repo.GetPayout(ctx, id)
}

// ListByRequirement returns the payouts of one requirement.
func (s *Service) ListByRequirement(ctx context.Context, requirementID int64) ([]Payout, error) {
	return s.repo.ListByRequirement(ctx, requirementID)
}

// ListByVendor returns the payouts owed to one vendor.
func (s *Service) ListByVendor(ctx context.Context, vendorID int64) ([]Payout, error) {
	return s.repo.ListByVendor(ctx, vendorID)
}

func (s *Service) recordAudit(ctx context.Context, action string, p *Payout) {
	log := shared.AuditLog{
		Action:   action,
		Entity:   "payout",
		EntityID: strconv.FormatInt(p.ID, 10),
		Meta: map[string]any{
			"requirement_id": p.RequirementID,
			"vendor_id":      p.VendorID,
			"amount":         p.Amount.String(),
		},
		At: time.Now(),
	}
	if err := s.audit.Record(ctx, log); err != nil {
		s.log.Error("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
