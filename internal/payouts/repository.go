package payouts

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-ops/meridian-ops/internal/ledger"
	"github.com/meridian-ops/meridian-ops/internal/platform/db"
	"github.com/meridian-ops/meridian-ops/internal/shared"
)

// Repository persists vendor payouts. Lifecycle writes go through WithTx so
// the ledger mirror commits with the status change.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetPayout(ctx context.Context, id int64) (*Payout, error)
	ListByRequirement(ctx context.Context, requirementID int64) ([]Payout, error)
	ListByVendor(ctx context.Context, vendorID int64) ([]Payout, error)
}

// TxRepository exposes the transactional payout writes.
type TxRepository interface {
	RequirementProject(ctx context.Context, requirementID int64) (int64, error)
	InsertPayout(ctx context.Context, input CreatePayoutInput, status PayoutStatus) (*Payout, error)
	GetPayoutForUpdate(ctx context.Context, id int64) (*Payout, error)
	SetStatus(ctx context.Context, id int64, status PayoutStatus, paidDate *time.Time) error
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

const payoutColumns = `p.id, p.requirement_id, p.vendor_id, r.project_id, p.amount, p.status, p.paid_on, p.created_at, p.updated_at`

const payoutSelect = `
	SELECT ` + payoutColumns + `
	FROM vendor_payouts p
	JOIN requirements r ON r.id = p.requirement_id`

func scanPayout(row pgx.Row) (*Payout, error) {
	var p Payout
	var amount pgtype.Numeric
	var paidOn pgtype.Date
	err := row.Scan(&p.ID, &p.RequirementID, &p.VendorID, &p.ProjectID, &amount, &p.Status, &paidOn, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFound("payout")
		}
		return nil, err
	}
	p.Amount = db.NumericToDecimal(amount)
	if paidOn.Valid {
		t := paidOn.Time
		p.PaidDate = &t
	}
	return &p, nil
}

func (r *pgRepository) GetPayout(ctx context.Context, id int64) (*Payout, error) {
	return scanPayout(r.pool.QueryRow(ctx, payoutSelect+` WHERE p.id = $1`, id))
}

func (r *pgRepository) list(ctx context.Context, query string, args ...any) ([]Payout, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payouts []Payout
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, err
		}
		payouts = append(payouts, *p)
	}
	return payouts, rows.Err()
}

func (r *pgRepository) ListByRequirement(ctx context.Context, requirementID int64) ([]Payout, error) {
	return r.list(ctx, payoutSelect+` WHERE p.requirement_id = $1 ORDER BY p.id`, requirementID)
}

func (r *pgRepository) ListByVendor(ctx context.Context, vendorID int64) ([]Payout, error) {
	return r.list(ctx, payoutSelect+` WHERE p.vendor_id = $1 ORDER BY p.id`, vendorID)
}

type pgTxRepository struct {
	tx pgx.Tx
}

func (r *pgTxRepository) RequirementProject(ctx context.Context, requirementID int64) (int64, error) {
	var projectID int64
	err := r.tx.QueryRow(ctx, `SELECT project_id FROM requirements WHERE id = $1`, requirementID).Scan(&projectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.NotFound("requirement")
		}
		return 0, err
	}
	return projectID, nil
}

func (r *pgTxRepository) InsertPayout(ctx context.Context, input CreatePayoutInput, status PayoutStatus) (*Payout, error) {
	row := r.tx.QueryRow(ctx, `
		WITH inserted AS (
			INSERT INTO vendor_payouts (requirement_id, vendor_id, amount, status, paid_on, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
			RETURNING id, requirement_id, vendor_id, amount, status, paid_on, created_at, updated_at
		)
		SELECT p.id, p.requirement_id, p.vendor_id, r.project_id, p.amount, p.status, p.paid_on, p.created_at, p.updated_at
		FROM inserted p
		JOIN requirements r ON r.id = p.requirement_id`,
		input.RequirementID, input.VendorID, db.DecimalToNumeric(input.Amount), status, input.PaidDate)
	return scanPayout(row)
}

func (r *pgTxRepository) GetPayoutForUpdate(ctx context.Context, id int64) (*Payout, error) {
	// lock the payout row only; the joined project id is immutable
	return scanPayout(r.tx.QueryRow(ctx, payoutSelect+` WHERE p.id = $1 FOR UPDATE OF p`, id))
}

func (r *pgTxRepository) SetStatus(ctx context.Context, id int64, status PayoutStatus, paidDate *time.Time) error {
	tag, err := r.tx.Exec(ctx, `UPDATE vendor_payouts SET status = $2, paid_on = $3, updated_at = NOW() WHERE id = $1`, id, status, paidDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("payout")
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
