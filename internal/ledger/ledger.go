// Package ledger appends status transitions to order and shipment histories.
package ledger

import (
	"time"

	"github.com/celerix-dev/celerix-console/pkg/schema"
)

// DefaultActor is recorded when a transition has no named actor.
const DefaultActor = "system"

// Clock supplies entry timestamps.
type Clock interface {
	Now() time.Time
}

// Ledger stamps and appends entries. It never removes or rewrites one.
type Ledger struct {
	clock Clock
}

// New returns a Ledger stamping entries with c.
func New(c Clock) *Ledger {
	return &Ledger{clock: c}
}

// EntryOption sets an optional field of a new entry.
type EntryOption func(*schema.LedgerEntry)

// WithDescription sets the free-text description.
func WithDescription(s string) EntryOption {
	return func(e *schema.LedgerEntry) { e.Description = s }
}

// WithLocation sets where the transition happened (shipments).
func WithLocation(s string) EntryOption {
	return func(e *schema.LedgerEntry) { e.Location = s }
}

// WithDetails sets extra operator notes.
func WithDetails(s string) EntryOption {
	return func(e *schema.LedgerEntry) { e.Details = s }
}

// Append records a transition of rec to status and returns the new entry.
//
// The record is mutated in memory only; writing it back to the store is the caller's job.
func (l *Ledger) Append(rec schema.Ledgered, status, actor string, opts ...EntryOption) schema.LedgerEntry {
	if actor == "" {
		actor = DefaultActor
	}
	e := schema.LedgerEntry{
		Status:    status,
		Timestamp: l.clock.Now().UTC(),
		Actor:     actor,
	}
	for _, opt := range opts {
		opt(&e)
	}
	rec.Record(e)
	return e
}

// Current returns the most recent entry of rec.
func Current(rec schema.Ledgered) (schema.LedgerEntry, bool) {
	entries := rec.Entries()
	if len(entries) == 0 {
		return schema.LedgerEntry{}, false
	}
	return entries[len(entries)-1], true
}
