package schema

import (
	"time"

	"github.com/celerix-dev/celerix-console/internal/catalog"
)

// TrackingRecord is a shipment and its status ledger.
type TrackingRecord struct {
	ID               string                 `json:"id"`
	TrackingCode     string                 `json:"tracking_code"`
	OrderNumber      string                 `json:"order_number"`
	CustomerName     string                 `json:"customer_name"`
	CustomerEmail    string                 `json:"customer_email"`
	DestinationCity  string                 `json:"destination_city"`
	DestinationState string                 `json:"destination_state"`
	CurrentStatus    catalog.TrackingStatus `json:"current_status"`
	History          []LedgerEntry          `json:"history"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

func (t *TrackingRecord) RecordID() string { return t.ID }

func (t *TrackingRecord) Record(e LedgerEntry) {
	t.History = append(t.History, e)
	t.CurrentStatus = catalog.TrackingStatus(e.Status)
	t.UpdatedAt = e.Timestamp
}

func (t *TrackingRecord) Entries() []LedgerEntry { return t.History }
