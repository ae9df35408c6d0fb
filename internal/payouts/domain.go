package payouts

import (
	"time"

	"github.com/shopspring/decimal"
)

// PayoutStatus is the lifecycle state of a vendor payout. Pending and paid
// toggle freely; cancelled is a manual stop.
type PayoutStatus string

const (
	StatusPending   PayoutStatus = "pending"
	StatusPaid      PayoutStatus = "paid"
	StatusCancelled PayoutStatus = "cancelled"
)

func (s PayoutStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusCancelled:
		return true
	}
	return false
}

// Payout is money owed to a vendor for a requirement. While paid, exactly
// one vendor_payment ledger entry mirrors it; un-paying retracts the entry
// and re-paying emits a fresh one.
type Payout struct {
	ID            int64           `json:"id"`
	RequirementID int64           `json:"requirement_id"`
	VendorID      int64           `json:"vendor_id"`
	ProjectID     int64           `json:"project_id"`
	Amount        decimal.Decimal `json:"amount"`
	Status        PayoutStatus    `json:"status"`
	PaidDate      *time.Time      `json:"paid_date,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// CreatePayoutInput creates a payout. A supplied paid date makes it paid
// immediately, with the ledger entry dated accordingly.
type CreatePayoutInput struct {
	RequirementID int64
	VendorID      int64
	Amount        decimal.Decimal
	PaidDate      *time.Time
}

// UpdatePayoutInput transitions status and/or moves the paid date.
type UpdatePayoutInput struct {
	Status   *PayoutStatus
	PaidDate *time.Time
}
