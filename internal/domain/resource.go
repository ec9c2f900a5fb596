package domain

// Resource is a sellable, capacity-limited unit (a ticket type or seminar).
// Capacity nil means unlimited. The catalog owns these rows; the waitlist
// core only reads them.
type Resource struct {
	ID            string `db:"id" json:"id"`
	Title         string `db:"title" json:"title"`
	Capacity      *int   `db:"total_capacity" json:"total_capacity,omitempty"`
	ManualSoldOut bool   `db:"manual_sold_out" json:"manual_sold_out"`
	CreatedAt     string `db:"created_at" json:"created_at"`
	UpdatedAt     string `db:"updated_at" json:"updated_at,omitempty"`
}

// Unlimited reports whether the resource has no configured capacity cap.
func (r Resource) Unlimited() bool { return r.Capacity == nil }

// StockSnapshot is the derived view of a resource's stock, recomputed on
// demand and never persisted or cached.
type StockSnapshot struct {
	Total     int  `json:"total"`
	Sold      int  `json:"sold"`
	Available int  `json:"available"`
	Unlimited bool `json:"unlimited"`
}
