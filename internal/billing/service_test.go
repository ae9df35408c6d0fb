package billing

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-ops/meridian-ops/internal/ledger"
	"github.com/meridian-ops/meridian-ops/internal/shared"
)

type memoryRepo struct {
	invoices      map[int64]*Invoice
	payments      map[int64]*Payment
	entries       map[string]ledger.Entry
	snapshots     map[int64][]int64
	fulfilled     map[int64][]FulfilledRequirement
	nextInvoiceID int64
	nextPaymentID int64
	clock         time.Time
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		invoices:  make(map[int64]*Invoice),
		payments:  make(map[int64]*Payment),
		entries:   make(map[string]ledger.Entry),
		snapshots: make(map[int64][]int64),
		fulfilled: make(map[int64][]FulfilledRequirement),
		clock:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func entryKey(t ledger.EntryType, referenceID int64) string {
	return fmt.Sprintf("%s:%d", t, referenceID)
}

func (m *memoryRepo) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{m: m})
}

func (m *memoryRepo) CreateInvoice(_ context.Context, input CreateInvoiceInput) (*Invoice, error) {
	m.nextInvoiceID++
	now := m.tick()
	inv := &Invoice{
		ID:           m.nextInvoiceID,
		ProjectID:    input.ProjectID,
		Type:         input.Type,
		Amount:       input.Amount,
		Status:       StatusDraft,
		IssueDate:    input.IssueDate,
		DueDate:      input.DueDate,
		BillingMonth: input.BillingMonth,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.invoices[inv.ID] = inv
	return copyInvoice(inv), nil
}

func copyInvoice(inv *Invoice) *Invoice {
	cp := *inv
	return &cp
}

func (m *memoryRepo) GetInvoice(_ context.Context, id int64) (*Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, shared.NotFound("invoice")
	}
	return copyInvoice(inv), nil
}

func (m *memoryRepo) ListInvoices(_ context.Context, projectID int64, params shared.ListParams) ([]Invoice, int, error) {
	var all []Invoice
	for id := int64(1); id <= m.nextInvoiceID; id++ {
		inv, ok := m.invoices[id]
		if !ok {
			continue
		}
		if projectID > 0 && inv.ProjectID != projectID {
			continue
		}
		all = append(all, *inv)
	}
	total := len(all)
	start := params.Offset()
	if start > total {
		start = total
	}
	end := start + params.Limit()
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (m *memoryRepo) ListPayments(_ context.Context, invoiceID int64) ([]Payment, error) {
	var out []Payment
	for id := int64(1); id <= m.nextPaymentID; id++ {
		p, ok := m.payments[id]
		if !ok || p.InvoiceID != invoiceID {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (m *memoryRepo) SumPayments(_ context.Context, invoiceID int64) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, p := range m.payments {
		if p.InvoiceID == invoiceID {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

func (m *memoryRepo) NumberRank(_ context.Context, id int64) (int, int64, error) {
	target, ok := m.invoices[id]
	if !ok {
		return 0, 0, shared.NotFound("invoice")
	}
	year := target.NumberYear(m.clock)
	var seq int64
	for _, inv := range m.invoices {
		if inv.NumberYear(m.clock) != year {
			continue
		}
		if inv.CreatedAt.Before(target.CreatedAt) ||
			(inv.CreatedAt.Equal(target.CreatedAt) && inv.ID <= target.ID) {
			seq++
		}
	}
	return year, seq, nil
}

type memoryTx struct {
	m *memoryRepo
}

func (t *memoryTx) GetInvoiceForUpdate(ctx context.Context, id int64) (*Invoice, error) {
	return t.m.GetInvoice(ctx, id)
}

func (t *memoryTx) SaveInvoice(_ context.Context, inv *Invoice) error {
	stored, ok := t.m.invoices[inv.ID]
	if !ok {
		return shared.NotFound("invoice")
	}
	cp := *inv
	cp.CreatedAt = stored.CreatedAt
	cp.UpdatedAt = t.m.tick()
	t.m.invoices[inv.ID] = &cp
	return nil
}

func (t *memoryTx) SetInvoiceStatus(_ context.Context, id int64, status InvoiceStatus) error {
	inv, ok := t.m.invoices[id]
	if !ok {
		return shared.NotFound("invoice")
	}
	inv.Status = status
	inv.UpdatedAt = t.m.tick()
	return nil
}

func (t *memoryTx) ListDueInvoices(_ context.Context, before time.Time) ([]Invoice, error) {
	var out []Invoice
	for id := int64(1); id <= t.m.nextInvoiceID; id++ {
		inv, ok := t.m.invoices[id]
		if !ok || inv.Status != StatusIssued || inv.DueDate == nil {
			continue
		}
		if inv.DueDate.Before(before) {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (t *memoryTx) InsertPayment(_ context.Context, input RecordPaymentInput) (*Payment, error) {
	t.m.nextPaymentID++
	p := &Payment{
		ID:        t.m.nextPaymentID,
		InvoiceID: input.InvoiceID,
		Amount:    input.Amount,
		PaidOn:    input.PaidOn,
		Mode:      input.Mode,
		CreatedAt: t.m.tick(),
	}
	t.m.payments[p.ID] = p
	cp := *p
	return &cp, nil
}

func (t *memoryTx) GetPayment(_ context.Context, id int64) (*Payment, error) {
	p, ok := t.m.payments[id]
	if !ok {
		return nil, shared.NotFound("payment")
	}
	cp := *p
	return &cp, nil
}

func (t *memoryTx) DeletePayment(_ context.Context, id int64) error {
	if _, ok := t.m.payments[id]; !ok {
		return shared.NotFound("payment")
	}
	delete(t.m.payments, id)
	return nil
}

func (t *memoryTx) SumPayments(ctx context.Context, invoiceID int64) (decimal.Decimal, error) {
	return t.m.SumPayments(ctx, invoiceID)
}

func (t *memoryTx) UpsertLedgerEntry(_ context.Context, e ledger.Entry) error {
	t.m.entries[entryKey(e.Type, e.ReferenceID)] = e
	return nil
}

func (t *memoryTx) DeleteLedgerEntry(_ context.Context, entryType ledger.EntryType, referenceID int64) error {
	delete(t.m.entries, entryKey(entryType, referenceID))
	return nil
}

func (t *memoryTx) ListFulfilledRequirements(_ context.Context, projectID int64) ([]FulfilledRequirement, error) {
	return t.m.fulfilled[projectID], nil
}

func (t *memoryTx) ReplaceSnapshot(_ context.Context, invoiceID int64, requirementIDs []int64) error {
	t.m.snapshots[invoiceID] = append([]int64(nil), requirementIDs...)
	return nil
}

func (t *memoryTx) ClearSnapshot(_ context.Context, invoiceID int64) error {
	delete(t.m.snapshots, invoiceID)
	return nil
}

type recordingNotifier struct {
	notes []shared.Notification
}

func (r *recordingNotifier) Create(_ context.Context, n shared.Notification) error {
	r.notes = append(r.notes, n)
	return nil
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (r *recordingAudit) Record(_ context.Context, l shared.AuditLog) error {
	r.logs = append(r.logs, l)
	return nil
}

type billingFixture struct {
	repo   *memoryRepo
	audit  *recordingAudit
	notify *recordingNotifier
	svc    *Service
}

func newFixture() *billingFixture {
	f := &billingFixture{
		repo:   newMemoryRepo(),
		audit:  &recordingAudit{},
		notify: &recordingNotifier{},
	}
	f.svc = NewService(f.repo, f.audit, f.notify, nil, nil, slog.New(slog.DiscardHandler))
	return f
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func statusOf(s InvoiceStatus) *InvoiceStatus {
	return &s
}

func (f *billingFixture) issuedInvoice(t *testing.T, projectID int64, amount string) *Invoice {
	t.Helper()
	ctx := context.Background()
	inv, err := f.svc.CreateInvoice(ctx, CreateInvoiceInput{
		ProjectID: projectID,
		Type:      InvoiceTypeProject,
		Amount:    d(amount),
	})
	require.NoError(t, err)
	inv, err = f.svc.UpdateInvoice(ctx, inv.ID, UpdateInvoiceInput{Status: statusOf(StatusIssued)})
	require.NoError(t, err)
	return inv
}

func TestCreateInvoiceStartsDraftWithoutSideEffects(t *testing.T) {
	f := newFixture()
	inv, err := f.svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		ProjectID: 1,
		Type:      InvoiceTypeProject,
		Amount:    d("5000"),
	})
	require.NoError(t, err)
	require.Equal(t, StatusDraft, inv.Status)
	require.Empty(t, f.repo.entries)
	require.Empty(t, f.repo.snapshots)
	require.Empty(t, f.audit.logs)
}

func TestCreateInvoiceValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.CreateInvoice(ctx, CreateInvoiceInput{ProjectID: 1, Type: "retainer", Amount: d("1")})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.svc.CreateInvoice(ctx, CreateInvoiceInput{ProjectID: 1, Type: InvoiceTypeProject, Amount: d("-1")})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.svc.CreateInvoice(ctx, CreateInvoiceInput{Type: InvoiceTypeProject, Amount: d("1")})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.svc.CreateInvoice(ctx, CreateInvoiceInput{
		ProjectID: 1, Type: InvoiceTypeProject, Amount: d("1"), BillingMonth: "2026-03",
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.svc.CreateInvoice(ctx, CreateInvoiceInput{
		ProjectID: 1, Type: InvoiceTypeMonthly, Amount: d("1"), BillingMonth: "March 2026",
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdateInvoiceNotFound(t *testing.T) {
	f := newFixture()
	_, err := f.svc.UpdateInvoice(context.Background(), 99, UpdateInvoiceInput{Status: statusOf(StatusIssued)})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestIssueEmitsLedgerAndSnapshot(t *testing.T) {
	f := newFixture()
	f.repo.fulfilled[1] = []FulfilledRequirement{
		{ID: 11, ClientPrice: d("5000")},
		{ID: 12, ClientPrice: d("7000")},
	}

	inv := f.issuedInvoice(t, 1, "12000")

	entry, ok := f.repo.entries[entryKey(ledger.EntryClientInvoice, inv.ID)]
	require.True(t, ok)
	require.True(t, entry.Amount.Equal(d("12000")))
	require.Equal(t, int64(1), entry.ProjectID)
	require.NotNil(t, inv.IssueDate)
	require.Equal(t, inv.IssueDate.Truncate(24*time.Hour), entry.EntryDate.Truncate(24*time.Hour))

	require.ElementsMatch(t, []int64{11, 12}, f.repo.snapshots[inv.ID])

	require.Len(t, f.audit.logs, 1)
	require.Equal(t, "invoice_issued", f.audit.logs[0].Action)
}

func TestVoidRetractsLedgerAndSnapshotKeepsPayments(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.repo.fulfilled[1] = []FulfilledRequirement{{ID: 11, ClientPrice: d("3000")}}
	inv := f.issuedInvoice(t, 1, "3000")

	_, err := f.svc.RecordPayment(ctx, RecordPaymentInput{
		InvoiceID: inv.ID, Amount: d("1000"), PaidOn: time.Now(),
	})
	require.NoError(t, err)

	voided, err := f.svc.UpdateInvoice(ctx, inv.ID, UpdateInvoiceInput{Status: statusOf(StatusCancelled)})
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, voided.Status)

	_, ok := f.repo.entries[entryKey(ledger.EntryClientInvoice, inv.ID)]
	require.False(t, ok)
	require.Empty(t, f.repo.snapshots[inv.ID])

	// payments survive the void for audit purposes
	require.Len(t, f.repo.payments, 1)
	_, ok = f.repo.entries[entryKey(ledger.EntryClientPayment, 1)]
	require.True(t, ok)

	require.Equal(t, "invoice_voided", f.audit.logs[len(f.audit.logs)-1].Action)
}

func TestReissueSnapshotsCurrentFulfilledSet(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.repo.fulfilled[1] = []FulfilledRequirement{{ID: 11, ClientPrice: d("5000")}}
	inv := f.issuedInvoice(t, 1, "5000")

	_, err := f.svc.UpdateInvoice(ctx, inv.ID, UpdateInvoiceInput{Status: statusOf(StatusCancelled)})
	require.NoError(t, err)

	// a requirement fulfilled after the void joins the re-issue snapshot
	f.repo.fulfilled[1] = append(f.repo.fulfilled[1], FulfilledRequirement{ID: 12, ClientPrice: d("2000")})

	_, err = f.svc.UpdateInvoice(ctx, inv.ID, UpdateInvoiceInput{Status: statusOf(StatusIssued)})
	require.NoError(t, err)

	require.ElementsMatch(t, []int64{11, 12}, f.repo.snapshots[inv.ID])
	entry := f.repo.entries[entryKey(ledger.EntryClientInvoice, inv.ID)]
	require.True(t, entry.Amount.Equal(d("5000")), "amount is never recomputed on re-issue")
}

func TestFieldOnlyUpdateHasNoSideEffects(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	inv, err := f.svc.CreateInvoice(ctx, CreateInvoiceInput{
		ProjectID: 1, Type: InvoiceTypeProject, Amount: d("100"),
	})
	require.NoError(t, err)

	amount := d("250")
	updated, err := f.svc.UpdateInvoice(ctx, inv.ID, UpdateInvoiceInput{Amount: &amount})
	require.NoError(t, err)
	require.True(t, updated.Amount.Equal(d("250")))
	require.Equal(t, StatusDraft, updated.Status)
	require.Empty(t, f.repo.entries)
	require.Empty(t, f.audit.logs)
}

func TestPaymentLifecycle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	inv := f.issuedInvoice(t, 1, "10000")

	p1, err := f.svc.RecordPayment(ctx, RecordPaymentInput{
		InvoiceID: inv.ID, Amount: d("6000"), PaidOn: time.Now(), Mode: "bank transfer",
	})
	require.NoError(t, err)
	require.Equal(t, StatusIssued, f.repo.invoices[inv.ID].Status)

	detail, err := f.svc.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	require.True(t, detail.Balance.Equal(d("4000")))

	p2, err := f.svc.RecordPayment(ctx, RecordPaymentInput{
		InvoiceID: inv.ID, Amount: d("4000"), PaidOn: time.Now(),
	})
	require.NoError(t, err)
	require.Equal(t, StatusPaid, f.repo.invoices[inv.ID].Status)

	// ledger mirrors every payment one to one
	for _, p := range []*Payment{p1, p2} {
		entry, ok := f.repo.entries[entryKey(ledger.EntryClientPayment, p.ID)]
		require.True(t, ok)
		require.True(t, entry.Amount.Equal(p.Amount))
	}

	require.NoError(t, f.svc.DeletePayment(ctx, p2.ID))
	require.Equal(t, StatusIssued, f.repo.invoices[inv.ID].Status)
	_, ok := f.repo.entries[entryKey(ledger.EntryClientPayment, p2.ID)]
	require.False(t, ok)

	detail, err = f.svc.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	require.True(t, detail.Balance.Equal(d("4000")))
}

func TestRecordPaymentValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	inv := f.issuedInvoice(t, 1, "100")

	_, err := f.svc.RecordPayment(ctx, RecordPaymentInput{InvoiceID: inv.ID, Amount: d("0"), PaidOn: time.Now()})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.svc.RecordPayment(ctx, RecordPaymentInput{InvoiceID: inv.ID, Amount: d("-5"), PaidOn: time.Now()})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.svc.RecordPayment(ctx, RecordPaymentInput{InvoiceID: inv.ID, Amount: d("5")})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.svc.RecordPayment(ctx, RecordPaymentInput{InvoiceID: 99, Amount: d("5"), PaidOn: time.Now()})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestIdenticalPaymentsStayDistinct(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	inv := f.issuedInvoice(t, 1, "10000")

	when := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	input := RecordPaymentInput{InvoiceID: inv.ID, Amount: d("2500"), PaidOn: when}

	p1, err := f.svc.RecordPayment(ctx, input)
	require.NoError(t, err)
	p2, err := f.svc.RecordPayment(ctx, input)
	require.NoError(t, err)
	require.NotEqual(t, p1.ID, p2.ID)
	require.Len(t, f.repo.payments, 2)

	_, ok1 := f.repo.entries[entryKey(ledger.EntryClientPayment, p1.ID)]
	_, ok2 := f.repo.entries[entryKey(ledger.EntryClientPayment, p2.ID)]
	require.True(t, ok1)
	require.True(t, ok2)
}

func TestDeletePaymentOnlyReopensPaidInvoices(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	inv, err := f.svc.CreateInvoice(ctx, CreateInvoiceInput{
		ProjectID: 1, Type: InvoiceTypeProject, Amount: d("500"),
	})
	require.NoError(t, err)

	p, err := f.svc.RecordPayment(ctx, RecordPaymentInput{
		InvoiceID: inv.ID, Amount: d("200"), PaidOn: time.Now(),
	})
	require.NoError(t, err)
	require.Equal(t, StatusDraft, f.repo.invoices[inv.ID].Status)

	require.NoError(t, f.svc.DeletePayment(ctx, p.ID))
	require.Equal(t, StatusDraft, f.repo.invoices[inv.ID].Status)
}

func TestDeletePaymentNotFound(t *testing.T) {
	f := newFixture()
	require.ErrorIs(t, f.svc.DeletePayment(context.Background(), 42), shared.ErrNotFound)
}

func TestZeroAmountInvoiceNeverAutoPaid(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	inv := f.issuedInvoice(t, 1, "0")

	_, err := f.svc.RecordPayment(ctx, RecordPaymentInput{
		InvoiceID: inv.ID, Amount: d("10"), PaidOn: time.Now(),
	})
	require.NoError(t, err)
	require.Equal(t, StatusIssued, f.repo.invoices[inv.ID].Status)
}

func TestSyncOverdueFlipsOnceAndNotifiesOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	yesterday := time.Now().AddDate(0, 0, -1)
	inv, err := f.svc.CreateInvoice(ctx, CreateInvoiceInput{
		ProjectID: 1, Type: InvoiceTypeProject, Amount: d("1000"), DueDate: &yesterday,
	})
	require.NoError(t, err)
	_, err = f.svc.UpdateInvoice(ctx, inv.ID, UpdateInvoiceInput{Status: statusOf(StatusIssued)})
	require.NoError(t, err)

	// a draft with the same due date must not flip
	_, err = f.svc.CreateInvoice(ctx, CreateInvoiceInput{
		ProjectID: 1, Type: InvoiceTypeProject, Amount: d("1000"), DueDate: &yesterday,
	})
	require.NoError(t, err)

	count, err := f.svc.SyncOverdue(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Equal(t, StatusOverdue, f.repo.invoices[inv.ID].Status)
	require.Len(t, f.notify.notes, 1)
	require.Equal(t, "invoice_overdue", f.notify.notes[0].Kind)

	count, err = f.svc.SyncOverdue(ctx)
	require.NoError(t, err)
	require.Zero(t, count)
	require.Len(t, f.notify.notes, 1)
}

func TestSyncOverdueIgnoresFutureAndDatelessInvoices(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	tomorrow := time.Now().AddDate(0, 0, 1)
	future, err := f.svc.CreateInvoice(ctx, CreateInvoiceInput{
		ProjectID: 1, Type: InvoiceTypeProject, Amount: d("1"), DueDate: &tomorrow,
	})
	require.NoError(t, err)
	_, err = f.svc.UpdateInvoice(ctx, future.ID, UpdateInvoiceInput{Status: statusOf(StatusIssued)})
	require.NoError(t, err)

	dateless := f.issuedInvoice(t, 1, "1")

	count, err := f.svc.SyncOverdue(ctx)
	require.NoError(t, err)
	require.Zero(t, count)
	require.Equal(t, StatusIssued, f.repo.invoices[future.ID].Status)
	require.Equal(t, StatusIssued, f.repo.invoices[dateless.ID].Status)
}

func TestUpdateInvoiceRejectsTransitionsOutsideLifecycle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.repo.fulfilled[1] = []FulfilledRequirement{{ID: 11, ClientPrice: d("1000")}}
	inv := f.issuedInvoice(t, 1, "1000")

	// issued never reverts to draft; the ledger entry and snapshot stay
	_, err := f.svc.UpdateInvoice(ctx, inv.ID, UpdateInvoiceInput{Status: statusOf(StatusDraft)})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Equal(t, StatusIssued, f.repo.invoices[inv.ID].Status)
	_, ok := f.repo.entries[entryKey(ledger.EntryClientInvoice, inv.ID)]
	require.True(t, ok)
	require.Equal(t, []int64{11}, f.repo.snapshots[inv.ID])

	// paid only reopens through payment deletion
	_, err = f.svc.RecordPayment(ctx, RecordPaymentInput{
		InvoiceID: inv.ID, Amount: d("1000"), PaidOn: time.Now(),
	})
	require.NoError(t, err)
	require.Equal(t, StatusPaid, f.repo.invoices[inv.ID].Status)
	_, err = f.svc.UpdateInvoice(ctx, inv.ID, UpdateInvoiceInput{Status: statusOf(StatusIssued)})
	require.ErrorIs(t, err, shared.ErrValidation)

	// cancelled re-issues, but never reverts to draft
	draft, err := f.svc.CreateInvoice(ctx, CreateInvoiceInput{
		ProjectID: 1, Type: InvoiceTypeProject, Amount: d("1"),
	})
	require.NoError(t, err)
	_, err = f.svc.UpdateInvoice(ctx, draft.ID, UpdateInvoiceInput{Status: statusOf(StatusCancelled)})
	require.NoError(t, err)
	_, err = f.svc.UpdateInvoice(ctx, draft.ID, UpdateInvoiceInput{Status: statusOf(StatusDraft)})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestSyncOverdueCutoffIsMidnightUTC(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	now := time.Now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	// due today: the invoice still has the whole day
	dueToday := midnight
	today, err := f.svc.CreateInvoice(ctx, CreateInvoiceInput{
		ProjectID: 1, Type: InvoiceTypeProject, Amount: d("1"), DueDate: &dueToday,
	})
	require.NoError(t, err)
	_, err = f.svc.UpdateInvoice(ctx, today.ID, UpdateInvoiceInput{Status: statusOf(StatusIssued)})
	require.NoError(t, err)

	// due a second before midnight: the day has passed
	lastNight := midnight.Add(-time.Second)
	late, err := f.svc.CreateInvoice(ctx, CreateInvoiceInput{
		ProjectID: 1, Type: InvoiceTypeProject, Amount: d("1"), DueDate: &lastNight,
	})
	require.NoError(t, err)
	_, err = f.svc.UpdateInvoice(ctx, late.ID, UpdateInvoiceInput{Status: statusOf(StatusIssued)})
	require.NoError(t, err)

	count, err := f.svc.SyncOverdue(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Equal(t, StatusIssued, f.repo.invoices[today.ID].Status)
	require.Equal(t, StatusOverdue, f.repo.invoices[late.ID].Status)
}

func TestInvoiceNumbering(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.svc.CreateInvoice(ctx, CreateInvoiceInput{
		ProjectID: 1, Type: InvoiceTypeProject, Amount: d("1"),
	})
	require.NoError(t, err)
	second, err := f.svc.CreateInvoice(ctx, CreateInvoiceInput{
		ProjectID: 1, Type: InvoiceTypeProject, Amount: d("1"),
	})
	require.NoError(t, err)

	lastYear := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	backdated, err := f.svc.CreateInvoice(ctx, CreateInvoiceInput{
		ProjectID: 1, Type: InvoiceTypeProject, Amount: d("1"), IssueDate: &lastYear,
	})
	require.NoError(t, err)

	detail, err := f.svc.GetInvoice(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, "INV-2026-1", detail.Invoice.Number)

	detail, err = f.svc.GetInvoice(ctx, second.ID)
	require.NoError(t, err)
	require.Equal(t, "INV-2026-2", detail.Invoice.Number)

	// issue date year wins over creation year
	detail, err = f.svc.GetInvoice(ctx, backdated.ID)
	require.NoError(t, err)
	require.Equal(t, "INV-2025-1", detail.Invoice.Number)
}

func TestListInvoicesResolvesNumbers(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := f.svc.CreateInvoice(ctx, CreateInvoiceInput{
			ProjectID: 1, Type: InvoiceTypeMonthly, Amount: d("100"), BillingMonth: "2026-03",
		})
		require.NoError(t, err)
	}
	invoices, pagination, err := f.svc.ListInvoices(ctx, 1, shared.ListParams{})
	require.NoError(t, err)
	require.Len(t, invoices, 3)
	require.Equal(t, "INV-2026-1", invoices[0].Number)
	require.Equal(t, "INV-2026-3", invoices[2].Number)
	require.Equal(t, 3, pagination.Total)
	require.Equal(t, 1, pagination.TotalPages)

	page, pagination, err := f.svc.ListInvoices(ctx, 1, shared.ListParams{Page: 2, PerPage: 2})
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "INV-2026-3", page[0].Number)
	require.Equal(t, 2, pagination.TotalPages)
}
