package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meridian-ops/meridian-ops/internal/ledger"
	"github.com/meridian-ops/meridian-ops/internal/platform/db"
	"github.com/meridian-ops/meridian-ops/internal/shared"
)

// Repository is the read/create surface plus the transactional entry point.
// Every lifecycle mutation goes through WithTx so the ledger and snapshot
// writes commit or roll back with their causing event.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	CreateInvoice(ctx context.Context, input CreateInvoiceInput) (*Invoice, error)
	GetInvoice(ctx context.Context, id int64) (*Invoice, error)
	ListInvoices(ctx context.Context, projectID int64, params shared.ListParams) ([]Invoice, int, error)
	ListPayments(ctx context.Context, invoiceID int64) ([]Payment, error)
	SumPayments(ctx context.Context, invoiceID int64) (decimal.Decimal, error)
	NumberRank(ctx context.Context, id int64) (year int, seq int64, err error)
}

// TxRepository exposes the writes that must share one transaction.
type TxRepository interface {
	GetInvoiceForUpdate(ctx context.Context, id int64) (*Invoice, error)
	SaveInvoice(ctx context.Context, inv *Invoice) error
	SetInvoiceStatus(ctx context.Context, id int64, status InvoiceStatus) error
	ListDueInvoices(ctx context.Context, before time.Time) ([]Invoice, error)

	InsertPayment(ctx context.Context, input RecordPaymentInput) (*Payment, error)
	GetPayment(ctx context.Context, id int64) (*Payment, error)
	DeletePayment(ctx context.Context, id int64) error
	SumPayments(ctx context.Context, invoiceID int64) (decimal.Decimal, error)

	UpsertLedgerEntry(ctx context.Context, e ledger.Entry) error
	DeleteLedgerEntry(ctx context.Context, entryType ledger.EntryType, referenceID int64) error

	ListFulfilledRequirements(ctx context.Context, projectID int64) ([]FulfilledRequirement, error)
	ReplaceSnapshot(ctx context.Context, invoiceID int64, requirementIDs []int64) error
	ClearSnapshot(ctx context.Context, invoiceID int64) error
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

const invoiceColumns = `id, project_id, invoice_type, amount, status, issue_date, due_date, billing_month, created_at, updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	var amount pgtype.Numeric
	var issueDate, dueDate pgtype.Date
	var billingMonth pgtype.Text
	err := row.Scan(&inv.ID, &inv.ProjectID, &inv.Type, &amount, &inv.Status,
		&issueDate, &dueDate, &billingMonth, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFound("invoice")
		}
		return nil, err
	}
	inv.Amount = db.NumericToDecimal(amount)
	if issueDate.Valid {
		t := issueDate.Time
		inv.IssueDate = &t
	}
	if dueDate.Valid {
		t := dueDate.Time
		inv.DueDate = &t
	}
	if billingMonth.Valid {
		inv.BillingMonth = billingMonth.String
	}
	return &inv, nil
}

func (r *pgRepository) CreateInvoice(ctx context.Context, input CreateInvoiceInput) (*Invoice, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO invoices (project_id, invoice_type, amount, status, issue_date, due_date, billing_month, created_at, updated_at)
		VALUES ($1, $2, $3, 'draft', $4, $5, NULLIF($6, ''), NOW(), NOW())
		RETURNING `+invoiceColumns,
		input.ProjectID, input.Type, db.DecimalToNumeric(input.Amount),
		input.IssueDate, input.DueDate, input.BillingMonth)
	return scanInvoice(row)
}

func (r *pgRepository) GetInvoice(ctx context.Context, id int64) (*Invoice, error) {
	return scanInvoice(r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
}

func (r *pgRepository) ListInvoices(ctx context.Context, projectID int64, params shared.ListParams) ([]Invoice, int, error) {
	where := ``
	args := []any{}
	if projectID > 0 {
		where = ` WHERE project_id = $1`
		args = append(args, projectID)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + invoiceColumns + ` FROM invoices` + where +
		fmt.Sprintf(` ORDER BY created_at, id LIMIT %d OFFSET %d`, params.Limit(), params.Offset())
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		invoices = append(invoices, *inv)
	}
	return invoices, total, rows.Err()
}

func (r *pgRepository) ListPayments(ctx context.Context, invoiceID int64) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, invoice_id, amount, paid_on, mode, created_at
		FROM payments WHERE invoice_id = $1 ORDER BY paid_on, id`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

func (r *pgRepository) SumPayments(ctx context.Context, invoiceID int64) (decimal.Decimal, error) {
	return sumPayments(ctx, r.pool, invoiceID)
}

// NumberRank derives the display-number components for an invoice: the year
// (issue date, falling back to creation date) and the invoice's 1-based rank
// among all invoices of that year ordered by creation time. Computed on read,
// so the rank can shift under concurrent creation or backdating.
func (r *pgRepository) NumberRank(ctx context.Context, id int64) (int, int64, error) {
	var year int
	var seq int64
	err := r.pool.QueryRow(ctx, `
		WITH target AS (
			SELECT id, created_at,
			       COALESCE(EXTRACT(YEAR FROM issue_date), EXTRACT(YEAR FROM created_at))::int AS yr
			FROM invoices WHERE id = $1
		)
		SELECT t.yr, COUNT(*)
		FROM invoices i, target t
		WHERE COALESCE(EXTRACT(YEAR FROM i.issue_date), EXTRACT(YEAR FROM i.created_at))::int = t.yr
		  AND (i.created_at, i.id) <= (t.created_at, t.id)
		GROUP BY t.yr`, id).Scan(&year, &seq)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, shared.NotFound("invoice")
		}
		return 0, 0, err
	}
	return year, seq, nil
}

type pgTxRepository struct {
	tx pgx.Tx
}

func (r *pgTxRepository) GetInvoiceForUpdate(ctx context.Context, id int64) (*Invoice, error) {
	return scanInvoice(r.tx.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id))
}

func (r *pgTxRepository) SaveInvoice(ctx context.Context, inv *Invoice) error {
	tag, err := r.tx.Exec(ctx, `
		UPDATE invoices
		SET invoice_type = $2, amount = $3, status = $4, issue_date = $5,
		    due_date = $6, billing_month = NULLIF($7, ''), updated_at = NOW()
		WHERE id = $1`,
		inv.ID, inv.Type, db.DecimalToNumeric(inv.Amount), inv.Status,
		inv.IssueDate, inv.DueDate, inv.BillingMonth)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("invoice")
	}
	return nil
}

func (r *pgTxRepository) SetInvoiceStatus(ctx context.Context, id int64, status InvoiceStatus) error {
	tag, err := r.tx.Exec(ctx, `UPDATE invoices SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("invoice")
	}
	return nil
}

func (r *pgTxRepository) ListDueInvoices(ctx context.Context, before time.Time) ([]Invoice, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT `+invoiceColumns+` FROM invoices
		WHERE status = 'issued' AND due_date IS NOT NULL AND due_date < $1
		ORDER BY id
		FOR UPDATE`, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, *inv)
	}
	return invoices, rows.Err()
}

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	var amount pgtype.Numeric
	var paidOn pgtype.Date
	var mode pgtype.Text
	err := row.Scan(&p.ID, &p.InvoiceID, &amount, &paidOn, &mode, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFound("payment")
		}
		return nil, err
	}
	p.Amount = db.NumericToDecimal(amount)
	p.PaidOn = paidOn.Time
	if mode.Valid {
		p.Mode = mode.String
	}
	return &p, nil
}

func (r *pgTxRepository) InsertPayment(ctx context.Context, input RecordPaymentInput) (*Payment, error) {
	row := r.tx.QueryRow(ctx, `
		INSERT INTO payments (invoice_id, amount, paid_on, mode, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NOW())
		RETURNING id, invoice_id, amount, paid_on, mode, created_at`,
		input.InvoiceID, db.DecimalToNumeric(input.Amount), input.PaidOn, input.Mode)
	return scanPayment(row)
}

func (r *pgTxRepository) GetPayment(ctx context.Context, id int64) (*Payment, error) {
	return scanPayment(r.tx.QueryRow(ctx, `
		SELECT id, invoice_id, amount, paid_on, mode, created_at
		FROM payments WHERE id = $1`, id))
}

func (r *pgTxRepository) DeletePayment(ctx context.Context, id int64) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("payment")
	}
	return nil
}

func (r *pgTxRepository) SumPayments(ctx context.Context, invoiceID int64) (decimal.Decimal, error) {
	return sumPayments(ctx, r.tx, invoiceID)
}

type queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func sumPayments(ctx context.Context, q queryer, invoiceID int64) (decimal.Decimal, error) {
	var sum pgtype.Numeric
	err := q.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE invoice_id = $1`, invoiceID).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	return db.NumericToDecimal(sum), nil
}

// UpsertLedgerEntry relies on the UNIQUE (entry_type, reference_id)
// constraint: re-emitting for the same causing event replaces the projection
// instead of duplicating it.
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

func (r *pgTxRepository) ListFulfilledRequirements(ctx context.Context, projectID int64) ([]FulfilledRequirement, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT id, client_price FROM requirements
		WHERE project_id = $1 AND fulfilment = 'fulfilled'
		ORDER BY id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []FulfilledRequirement
	for rows.Next() {
		var fr FulfilledRequirement
		var price pgtype.Numeric
		if err := rows.Scan(&fr.ID, &price); err != nil {
			return nil, err
		}
		fr.ClientPrice = db.NumericToDecimal(price)
		reqs = append(reqs, fr)
	}
	return reqs, rows.Err()
}

func (r *pgTxRepository) ReplaceSnapshot(ctx context.Context, invoiceID int64, requirementIDs []int64) error {
	if err := r.ClearSnapshot(ctx, invoiceID); err != nil {
		return err
	}
	for _, reqID := range requirementIDs {
		if _, err := r.tx.Exec(ctx, `
			INSERT INTO invoice_requirements (invoice_id, requirement_id) VALUES ($1, $2)`,
			invoiceID, reqID); err != nil {
			return err
		}
	}
	return nil
}

func (r *pgTxRepository) ClearSnapshot(ctx context.Context, invoiceID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM invoice_requirements WHERE invoice_id = $1`, invoiceID)
	return err
}
