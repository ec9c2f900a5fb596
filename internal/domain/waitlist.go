package domain

// EntryStatus is the lifecycle state of a waitlist entry.
type EntryStatus string

const (
	StatusWaiting   EntryStatus = "WAITING"
	StatusNotified  EntryStatus = "NOTIFIED"
	StatusConverted EntryStatus = "CONVERTED"
	StatusExpired   EntryStatus = "EXPIRED"
	StatusRemoved   EntryStatus = "REMOVED"
)

// Active reports whether the entry still occupies its (resource,email) slot.
// Dedupe on join only considers active entries.
func (s EntryStatus) Active() bool {
	return s == StatusWaiting || s == StatusNotified
}

// Terminal reports whether the status can never transition again.
func (s EntryStatus) Terminal() bool {
	return s == StatusConverted || s == StatusExpired || s == StatusRemoved
}

// Identity is who is waiting. Email is mandatory; the rest is optional
// contact detail passed through to notifications.
type Identity struct {
	UserID    string `json:"user_id,omitempty"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// WaitlistEntry is one person waiting for one resource.
//
// Position is only meaningful while Status is WAITING: waiting entries for a
// resource always hold the contiguous positions 1..N in FIFO join order.
// Timestamps are stored as RFC 3339 UTC strings, which compare correctly as
// plain strings in SQL.
type WaitlistEntry struct {
	ID         string      `db:"id" json:"id"`
	ResourceID string      `db:"resource_id" json:"resource_id"`
	UserID     string      `db:"user_id" json:"user_id,omitempty"`
	Email      string      `db:"email" json:"email"`
	FirstName  string      `db:"first_name" json:"first_name,omitempty"`
	LastName   string      `db:"last_name" json:"last_name,omitempty"`
	Phone      string      `db:"phone" json:"phone,omitempty"`
	Position   int         `db:"position" json:"position"`
	Status     EntryStatus `db:"status" json:"status"`
	CreatedAt  string      `db:"created_at" json:"created_at"`
	NotifiedAt string      `db:"notified_at" json:"notified_at,omitempty"`
	ExpiresAt  string      `db:"expires_at" json:"expires_at,omitempty"`
}
