package schema

import (
	"time"

	"github.com/celerix-dev/celerix-console/internal/catalog"
)

// OrderCustomer is the buyer snapshot captured when the purchase completed.
type OrderCustomer struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// OrderItem is one line of an order.
type OrderItem struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// OrderRecord is a store order and its status ledger.
type OrderRecord struct {
	ID            string              `json:"id"`
	Customer      OrderCustomer       `json:"customer"`
	Items         []OrderItem         `json:"items"`
	Total         float64             `json:"total"`
	Status        catalog.OrderStatus `json:"status"`
	StatusHistory []LedgerEntry       `json:"statusHistory"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

func (o *OrderRecord) RecordID() string { return o.ID }

func (o *OrderRecord) Record(e LedgerEntry) {
	o.StatusHistory = append(o.StatusHistory, e)
	o.Status = catalog.OrderStatus(e.Status)
	o.UpdatedAt = e.Timestamp
}

func (o *OrderRecord) Entries() []LedgerEntry { return o.StatusHistory }
