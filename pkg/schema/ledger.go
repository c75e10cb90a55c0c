package schema

import "time"

// LedgerEntry is one immutable status transition.
type LedgerEntry struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Actor       string    `json:"actor"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Details     string    `json:"details,omitempty"`
}

// Ledgered is a record carrying an append-only status history.
//
// Record appends e and moves the record's current status to e.Status.
// Entries returns the history in insertion order; callers must not modify it.
type Ledgered interface {
	Record(e LedgerEntry)
	Entries() []LedgerEntry
}
