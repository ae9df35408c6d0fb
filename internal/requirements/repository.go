package requirements

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-ops/meridian-ops/internal/ledger"
	"github.com/meridian-ops/meridian-ops/internal/platform/db"
	"github.com/meridian-ops/meridian-ops/internal/shared"
)

// Repository persists requirements and serves the suggestion reads.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	CreateRequirement(ctx context.Context, input CreateRequirementInput) (*Requirement, error)
	GetRequirement(ctx context.Context, id int64) (*Requirement, error)
	ListByProject(ctx context.Context, projectID int64) ([]Requirement, error)
	ListFulfilled(ctx context.Context, projectID int64) ([]Requirement, error)
	// ListBilledRequirementIDs returns the requirement ids captured in a
	// snapshot of a non-cancelled, non-draft one-time invoice for the
	// project. Drafts and monthly invoices never exclude.
	ListBilledRequirementIDs(ctx context.Context, projectID int64) ([]int64, error)
}

// TxRepository exposes the fulfilment transition writes.
type TxRepository interface {
	GetRequirementForUpdate(ctx context.Context, id int64) (*Requirement, error)
	SetFulfilment(ctx context.Context, id int64, status FulfilmentStatus) error
	UpsertLedgerEntry(ctx context.Context, e ledger.Entry) error
	DeleteLedgerEntry(ctx context.Context, entryType ledger.EntryType, referenceID int64) error
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxRepository{tx: tx})
	})
}

const requirementColumns = `id, project_id, title, client_price, expected_vendor_cost, fulfilment, created_at, updated_at`

func scanRequirement(row pgx.Row) (*Requirement, error) {
	var req Requirement
	var price, cost pgtype.Numeric
	err := row.Scan(&req.ID, &req.ProjectID, &req.Title, &price, &cost, &req.Fulfilment, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFound("requirement")
		}
		return nil, err
	}
	req.ClientPrice = db.NumericToDecimal(price)
	req.ExpectedVendorCost = db.NumericToDecimal(cost)
	return &req, nil
}

func (r *pgRepository) CreateRequirement(ctx context.Context, input CreateRequirementInput) (*Requirement, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO requirements (project_id, title, client_price, expected_vendor_cost, fulfilment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'pending', NOW(), NOW())
		RETURNING `+requirementColumns,
		input.ProjectID, input.Title, db.DecimalToNumeric(input.ClientPrice), db.DecimalToNumeric(input.ExpectedVendorCost))
	return scanRequirement(row)
}

func (r *pgRepository) GetRequirement(ctx context.Context, id int64) (*Requirement, error) {
	return scanRequirement(r.pool.QueryRow(ctx, `SELECT `+requirementColumns+` FROM requirements WHERE id = $1`, id))
}

func (r *pgRepository) listWhere(ctx context.Context, query string, args ...any) ([]Requirement, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []Requirement
	for rows.Next() {
		req, err := scanRequirement(rows)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, *req)
	}
	return reqs, rows.Err()
}

func (r *pgRepository) ListByProject(ctx context.Context, projectID int64) ([]Requirement, error) {
	return r.listWhere(ctx, `SELECT `+requirementColumns+` FROM requirements WHERE project_id = $1 ORDER BY id`, projectID)
}

func (r *pgRepository) ListFulfilled(ctx context.Context, projectID int64) ([]Requirement, error) {
	return r.listWhere(ctx, `SELECT `+requirementColumns+` FROM requirements WHERE project_id = $1 AND fulfilment = 'fulfilled' ORDER BY id`, projectID)
}

func (r *pgRepository) ListBilledRequirementIDs(ctx context.Context, projectID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT ir.requirement_id
		FROM invoice_requirements ir
		JOIN invoices i ON i.id = ir.invoice_id
		WHERE i.project_id = $1
		  AND i.invoice_type IN ('project', 'milestone')
		  AND i.status IN ('issued', 'paid', 'overdue')`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type pgTxRepository struct {
	tx pgx.Tx
}

func (r *pgTxRepository) GetRequirementForUpdate(ctx context.Context, id int64) (*Requirement, error) {
	return scanRequirement(r.tx.QueryRow(ctx, `SELECT `+requirementColumns+` FROM requirements WHERE id = $1 FOR UPDATE`, id))
}

func (r *pgTxRepository) SetFulfilment(ctx context.Context, id int64, status FulfilmentStatus) error {
	tag, err := r.tx.Exec(ctx, `UPDATE requirements SET fulfilment = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("requirement")
	}
	return nil
}

func (r *pgTxRepository) UpsertLedgerEntry(ctx context.Context, e ledger.Entry) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO ledger_entries (project_id, entry_type, amount, entry_date, reference_id, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (entry_type, reference_id)
		DO UPDATE SET project_id = EXCLUDED.project_id, amount = EXCLUDED.amount, entry_date = EXCLUDED.entry_date`,
		e.ProjectID, e.Type, db.DecimalToNumeric(e.Amount), e.EntryDate, e.ReferenceID)
	return err
}

func (r *pgTxRepository) DeleteLedgerEntry(ctx context.Context, entryType ledger.EntryType, referenceID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM ledger_entries WHERE entry_type = $1 AND reference_id = $2`, entryType, referenceID)
	return err
}
