// Package notify holds the per-session queue of ephemeral operator notifications.
//
// Entries are never persisted. Each one expires on its own scheduled removal after its
// TTL, or earlier when dismissed, and pushing an entry plays the audio cue for its sound key.
package notify

import (
	"time"
)

// Category classifies a notification for rendering and for its default sound.
type Category string

const (
	CategorySuccess Category = "success"
	CategoryError   Category = "error"
	CategoryInfo    Category = "info"
	CategoryWarning Category = "warning"
)

// Sound keys used by the change detector.
const (
	SoundSale     = "sale"
	SoundCustomer = "customer"
)

const (
	// DefaultTTL applies to notifications pushed without an explicit TTL.
	DefaultTTL = 5 * time.Second
	// DetectorTTL is the longer dwell time of new-sale and new-customer notifications.
	DetectorTTL = 8 * time.Second
)

// Notification is one toast.
type Notification struct {
	ID        string    `json:"id"`
	Category  Category  `json:"category"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	TTLMs     int64     `json:"ttlMs"`
	SoundKey  string    `json:"soundKey,omitempty"`
}

// TTL returns the time-to-live as a duration.
func (n Notification) TTL() time.Duration {
	return time.Duration(n.TTLMs) * time.Millisecond
}

// ExpiresAt is the instant from which the notification is no longer listed.
func (n Notification) ExpiresAt() time.Time {
	return n.CreatedAt.Add(n.TTL())
}

// EventType distinguishes queue events delivered to subscribers.
type EventType string

const (
	EventPushed  EventType = "notification"
	EventRemoved EventType = "removed"
)

// Removal reasons carried on EventRemoved.
const (
	ReasonExpired   = "expired"
	ReasonDismissed = "dismissed"
)

// Event is delivered to subscribers when the queue changes.
type Event struct {
	Type         EventType    `json:"type"`
	Notification Notification `json:"notification"`
	Reason       string       `json:"reason,omitempty"`
	Sound        string       `json:"sound,omitempty"`
}
