package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryType enumerates the financial facts the ledger records.
type EntryType string

const (
	EntryClientInvoice      EntryType = "client_invoice"
	EntryClientPayment      EntryType = "client_payment"
	EntryVendorExpectedCost EntryType = "vendor_expected_cost"
	EntryVendorPayment      EntryType = "vendor_payment"
)

// IsValid reports whether t is a known entry type.
func (t EntryType) IsValid() bool {
	switch t {
	case EntryClientInvoice, EntryClientPayment, EntryVendorExpectedCost, EntryVendorPayment:
		return true
	}
	return false
}

// Entry is one financial fact tied to exactly one causing event.
// At most one entry exists per (Type, ReferenceID); lifecycle services
// upsert on emit and delete on retract, inside their own transaction.
type Entry struct {
	ID          int64           `json:"id"`
	ProjectID   int64           `json:"project_id"`
	Type        EntryType       `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	EntryDate   time.Time       `json:"entry_date"`
	ReferenceID int64           `json:"reference_id"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ProjectTotals aggregates ledger amounts per entry type for one project.
type ProjectTotals struct {
	Billed       decimal.Decimal
	Received     decimal.Decimal
	ExpectedCost decimal.Decimal
	PaidOut      decimal.Decimal
}

// ActualProfit is realised cash: received minus paid out to vendors.
func (t ProjectTotals) ActualProfit() decimal.Decimal {
	return t.Received.Sub(t.PaidOut)
}
