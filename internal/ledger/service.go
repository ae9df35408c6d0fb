package ledger

import (
	"context"
	"log/slog"
)

// Service exposes the per-project financial view assembled from ledger entries.
type Service struct {
	repo Repository
	log  *slog.Logger
}

func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Entries returns every ledger entry for the project ordered by entry date.
func (s *Service) Entries(ctx context.Context, projectID int64) ([]Entry, error) {
	return s.repo.ListByProject(ctx, projectID)
}

// Totals aggregates the four entry types into the project financial summary.
func (s *Service) Totals(ctx context.Context, projectID int64) (ProjectTotals, error) {
	totals, err := s.repo.ProjectTotals(ctx, projectID)
	if err != nil {
		return ProjectTotals{}, err
	}
	if totals.Received.GreaterThan(totals.Billed) {
		s.log.Warn("project received more than billed",
			slog.Int64("project_id", projectID),
			slog.String("billed", totals.Billed.String()),
			slog.String("received", totals.Received.String()))
	}
	return totals, nil
}
