// Package schema defines the records the console reads from and writes to the shared store.
package schema

import "time"

// Collection names in the shared store.
const (
	CollectionOrders       = "orders"
	CollectionCustomers    = "customers"
	CollectionTracking     = "tracking"
	CollectionSettings     = "settings"
	CollectionAdminSession = "admin_session"
)

// CustomerRecord is a registered store customer.
// It is written by the storefront's signup flow; the console only counts and reads it.
type CustomerRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// AdminSession records the most recently issued operator session.
// It is stored in the admin_session collection as a single-element list.
type AdminSession struct {
	SessionID string    `json:"sessionId"`
	Username  string    `json:"username"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}
