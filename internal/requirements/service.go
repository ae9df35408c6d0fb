package requirements

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/meridian-ops/meridian-ops/internal/ledger"
	"github.com/meridian-ops/meridian-ops/internal/shared"
)

// Service owns requirement fulfilment transitions and the billable-amount
// suggestion read.
type Service struct {
	repo   Repository
	cache  *Cache
	audit  shared.AuditSink
	log    *slog.Logger
	flight singleflight.Group
}

// NewService constructs the requirements service. Cache and audit may be nil.
func NewService(repo Repository, cache *Cache, audit shared.AuditSink, log *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAuditSink{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, cache: cache, audit: audit, log: log}
}

// Bump exposes cache invalidation to the billing service, which must drop
// cached suggestions whenever an invoice transition changes snapshot
// visibility.
func (s *Service) Bump(ctx context.Context, projectID int64) error {
	return s.cache.Bump(ctx, projectID)
}

// CreateRequirement creates a pending requirement.
func (s *Service) CreateRequirement(ctx context.Context, input CreateRequirementInput) (*Requirement, error) {
	if input.ProjectID <= 0 {
		return nil, shared.Validationf("project id required")
	}
	if input.Title == "" {
		return nil, shared.Validationf("title required")
	}
	if input.ClientPrice.IsNegative() || input.ExpectedVendorCost.IsNegative() {
		return nil, shared.Validationf("prices must not be negative")
	}
	return s.repo.CreateRequirement(ctx, input)
}

// GetRequirement returns one requirement.
func (s *Service) GetRequirement(ctx context.Context, id int64) (*Requirement, error) {
	return s.repo.GetRequirement(ctx, id)
}

// ListByProject returns all requirements of a project.
func (s *Service) ListByProject(ctx context.Context, projectID int64) ([]Requirement, error) {
	return s.repo.ListByProject(ctx, projectID)
}

// UpdateFulfilment transitions a requirement's workflow state. Entering
// fulfilled commits the expected vendor cost as a ledger projection; leaving
// fulfilled retracts it.
func (s *Service) UpdateFulfilment(ctx context.Context, id int64, status FulfilmentStatus) (*Requirement, error) {
	if !status.IsValid() {
		return nil, shared.Validationf("invalid fulfilment status %q", status)
	}

	var updated *Requirement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		req, err := tx.GetRequirementForUpdate(ctx, id)
		if err != nil {
			return err
		}
		previous := req.Fulfilment
		if previous == status {
			updated = req
			return nil
		}
		if err := tx.SetFulfilment(ctx, id, status); err != nil {
			return err
		}
		switch {
		case status == FulfilmentFulfilled:
			if err := tx.UpsertLedgerEntry(ctx, ledger.Entry{
				ProjectID:   req.ProjectID,
				Type:        ledger.EntryVendorExpectedCost,
				Amount:      req.ExpectedVendorCost,
				EntryDate:   time.Now(),
				ReferenceID: req.ID,
			}); err != nil {
				return err
			}
		case previous == FulfilmentFulfilled:
			if err := tx.DeleteLedgerEntry(ctx, ledger.EntryVendorExpectedCost, req.ID); err != nil {
				return err
			}
		}
		req.Fulfilment = status
		updated = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.cache.Bump(ctx, updated.ProjectID); err != nil {
		s.log.Error("suggestion cache bump failed", slog.Int64("project_id", updated.ProjectID), slog.Any("error", err))
	}
	return updated, nil
}

// SuggestedAmount computes the amount still billable for a project: the
// fulfilled client-price sum minus requirements already captured in a
// snapshot of a non-cancelled, non-draft one-time invoice. Monthly invoices
// never exclude; a retainer re-suggests the full fulfilled sum every cycle.
func (s *Service) SuggestedAmount(ctx context.Context, projectID int64) (decimal.Decimal, error) {
	result, err, _ := s.flight.Do(fmt.Sprintf("suggest:%d", projectID), func() (any, error) {
		key, err := s.cache.SuggestionKey(ctx, projectID)
		if err != nil {
			return decimal.Zero, err
		}
		var amount decimal.Decimal
		err = s.cache.FetchJSON(ctx, key, &amount, func(ctx context.Context) (any, error) {
			return s.computeSuggestedAmount(ctx, projectID)
		})
		return amount, err
	})
	if err != nil {
		return decimal.Zero, err
	}
	return result.(decimal.Decimal), nil
}

func (s *Service) computeSuggestedAmount(ctx context.Context, projectID int64) (decimal.Decimal, error) {
	fulfilled, err := s.repo.ListFulfilled(ctx, projectID)
	if err != nil {
		return decimal.Zero, err
	}
	billedIDs, err := s.repo.ListBilledRequirementIDs(ctx, projectID)
	if err != nil {
		return decimal.Zero, err
	}
	billed := make(map[int64]struct{}, len(billedIDs))
	for _, id := range billedIDs {
		billed[id] = struct{}{}
	}
	sum := decimal.Zero
	for _, req := range fulfilled {
		if _, ok := billed[req.ID]; ok {
			continue
		}
		sum = sum.Add(req.ClientPrice)
	}
	return sum, nil
}

// PlannedProfit sums client price minus expected vendor cost over the
// project's non-cancelled requirements.
func (s *Service) PlannedProfit(ctx context.Context, projectID int64) (decimal.Decimal, error) {
	reqs, err := s.repo.ListByProject(ctx, projectID)
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, req := range reqs {
		if req.Fulfilment == FulfilmentCancelled {
			continue
		}
		sum = sum.Add(req.PlannedProfit())
	}
	return sum, nil
}
