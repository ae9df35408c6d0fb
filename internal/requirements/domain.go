package requirements

import (
	"time"

	"github.com/shopspring/decimal"
)

// FulfilmentStatus is the workflow state of a requirement.
type FulfilmentStatus string

const (
	FulfilmentPending    FulfilmentStatus = "pending"
	FulfilmentInProgress FulfilmentStatus = "in_progress"
	FulfilmentFulfilled  FulfilmentStatus = "fulfilled"
	FulfilmentCancelled  FulfilmentStatus = "cancelled"
)

func (s FulfilmentStatus) IsValid() bool {
	switch s {
	case FulfilmentPending, FulfilmentInProgress, FulfilmentFulfilled, FulfilmentCancelled:
		return true
	}
	return false
}

// Requirement is a scoped work item on a project: priced toward the client
// and costed toward a vendor.
type Requirement struct {
	ID                 int64            `json:"id"`
	ProjectID          int64            `json:"project_id"`
	Title              string           `json:"title"`
	ClientPrice        decimal.Decimal  `json:"client_price"`
	ExpectedVendorCost decimal.Decimal  `json:"expected_vendor_cost"`
	Fulfilment         FulfilmentStatus `json:"fulfilment"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// PlannedProfit is the forward-looking estimate for this requirement.
func (r Requirement) PlannedProfit() decimal.Decimal {
	return r.ClientPrice.Sub(r.ExpectedVendorCost)
}

// CreateRequirementInput creates a pending requirement.
type CreateRequirementInput struct {
	ProjectID          int64
	Title              string
	ClientPrice        decimal.Decimal
	ExpectedVendorCost decimal.Decimal
}
