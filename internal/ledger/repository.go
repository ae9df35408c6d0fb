package ledger

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-ops/meridian-ops/internal/platform/db"
)

// Repository provides read access to ledger_entries. Writes happen inside
// the billing/requirements/payouts transactions that own the causing event.
type Repository interface {
	ListByProject(ctx context.Context, projectID int64) ([]Entry, error)
	ProjectTotals(ctx context.Context, projectID int64) (ProjectTotals, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) ListByProject(ctx context.Context, projectID int64) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, project_id, entry_type, amount, entry_date, reference_id, created_at
		FROM ledger_entries
		WHERE project_id = $1
		ORDER BY entry_date, id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var amount pgtype.Numeric
		var entryDate pgtype.Date
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.Type, &amount, &entryDate, &e.ReferenceID, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Amount = db.NumericToDecimal(amount)
		e.EntryDate = entryDate.Time
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *pgRepository) ProjectTotals(ctx context.Context, projectID int64) (ProjectTotals, error) {
	var billed, received, expected, paidOut pgtype.Numeric
	err := r.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE entry_type = 'client_invoice'), 0),
			COALESCE(SUM(amount) FILTER (WHERE entry_type = 'client_payment'), 0),
			COALESCE(SUM(amount) FILTER (WHERE entry_type = 'vendor_expected_cost'), 0),
			COALESCE(SUM(amount) FILTER (WHERE entry_type = 'vendor_payment'), 0)
		FROM ledger_entries
		WHERE project_id = $1`, projectID).Scan(&billed, &received, &expected, &paidOut)
	if err != nil {
		return ProjectTotals{}, err
	}
	return ProjectTotals{
		Billed:       db.NumericToDecimal(billed),
		Received:     db.NumericToDecimal(received),
		ExpectedCost: db.NumericToDecimal(expected),
		PaidOut:      db.NumericToDecimal(paidOut),
	}, nil
}
