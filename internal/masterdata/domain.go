package masterdata

import "time"

// Engagement distinguishes how a project bills.
type Engagement string

const (
	EngagementOneTime Engagement = "one_time"
	EngagementMonthly Engagement = "monthly"
)

func (e Engagement) IsValid() bool {
	return e == EngagementOneTime || e == EngagementMonthly
}

// Client is a paying customer of the agency.
type Client struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Vendor delivers requirement work and receives payouts.
type Vendor struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Project scopes requirements, invoices and the ledger under one client.
type Project struct {
	ID         int64      `json:"id"`
	ClientID   int64      `json:"client_id"`
	Name       string     `json:"name"`
	Engagement Engagement `json:"engagement"`
	CreatedAt  time.Time  `json:"created_at"`
}

// CatalogItem is a goods/services/consulting entry offered to clients.
type CatalogItem struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}
