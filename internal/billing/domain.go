package billing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceType distinguishes one-time engagements from monthly retainers.
type InvoiceType string

const (
	InvoiceTypeProject   InvoiceType = "project"
	InvoiceTypeMilestone InvoiceType = "milestone"
	InvoiceTypeMonthly   InvoiceType = "monthly"
)

func (t InvoiceType) IsValid() bool {
	switch t {
	case InvoiceTypeProject, InvoiceTypeMilestone, InvoiceTypeMonthly:
		return true
	}
	return false
}

// IsOneTime reports whether invoices of this type bill discrete fulfilled
// work once. Monthly retainers re-suggest the full fulfilled sum each cycle.
func (t InvoiceType) IsOneTime() bool {
	return t == InvoiceTypeProject || t == InvoiceTypeMilestone
}

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

const (
	StatusDraft     InvoiceStatus = "draft"
	StatusIssued    InvoiceStatus = "issued"
	StatusPaid      InvoiceStatus = "paid"
	StatusOverdue   InvoiceStatus = "overdue"
	StatusCancelled InvoiceStatus = "cancelled"
)

func (s InvoiceStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusIssued, StatusPaid, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

// Invoice is never physically deleted; voiding is the cancelled status.
type Invoice struct {
	ID           int64           `json:"id"`
	ProjectID    int64           `json:"project_id"`
	Type         InvoiceType     `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	Status       InvoiceStatus   `json:"status"`
	Number       string          `json:"number,omitempty"`
	IssueDate    *time.Time      `json:"issue_date,omitempty"`
	DueDate      *time.Time      `json:"due_date,omitempty"`
	BillingMonth string          `json:"billing_month,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NumberYear is the year component of the display number: issue date first,
// then creation date, then the current year.
func (i Invoice) NumberYear(now time.Time) int {
	if i.IssueDate != nil {
		return i.IssueDate.Year()
	}
	if !i.CreatedAt.IsZero() {
		return i.CreatedAt.Year()
	}
	return now.Year()
}

// FormatNumber renders the display number for a year and 1-based sequence.
func FormatNumber(year int, seq int64) string {
	return fmt.Sprintf("INV-%d-%d", year, seq)
}

// Payment is a discrete client payment event against an invoice. Payments
// are inserted and deleted, never edited in place.
type Payment struct {
	ID        int64           `json:"id"`
	InvoiceID int64           `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
	PaidOn    time.Time       `json:"paid_on"`
	Mode      string          `json:"mode,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// CreateInvoiceInput creates a draft invoice. No side effects are evaluated
// until a later update transitions the status.
type CreateInvoiceInput struct {
	ProjectID    int64
	Type         InvoiceType
	Amount       decimal.Decimal
	IssueDate    *time.Time
	DueDate      *time.Time
	BillingMonth string
}

// UpdateInvoiceInput carries partial field updates. Nil pointers leave the
// current value untouched.
type UpdateInvoiceInput struct {
	Type         *InvoiceType
	Amount       *decimal.Decimal
	Status       *InvoiceStatus
	IssueDate    *time.Time
	DueDate      *time.Time
	BillingMonth *string
}

// RecordPaymentInput records one client payment.
type RecordPaymentInput struct {
	InvoiceID int64
	Amount    decimal.Decimal
	PaidOn    time.Time
	Mode      string
}

// FulfilledRequirement is the slice of a requirement the snapshot needs:
// its identity and the price that was billed for it.
type FulfilledRequirement struct {
	ID          int64
	ClientPrice decimal.Decimal
}

// InvoiceDetail is the read model for one invoice with its payments and
// the derived balance.
type InvoiceDetail struct {
	Invoice  Invoice         `json:"invoice"`
	Payments []Payment       `json:"payments"`
	PaidSum  decimal.Decimal `json:"paid_sum"`
	Balance  decimal.Decimal `json:"balance"`
}
