package repos

import (
	"time"

	"github.com/jmoiron/sqlx"
)

// OrderRepo reads the commerce system's completed purchases. The waitlist
// core treats orders as an external collaborator: it only ever counts them,
// it never mutates an order except through Record (the checkout flow).
type OrderRepo struct{ db *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

// CompletedCount returns how many completed purchases exist for a resource.
// This is the "sold" figure in stock snapshots.
func (r *OrderRepo) CompletedCount(resourceID string) (int, error) {
	var n int
	err := r.db.Get(&n, `
		SELECT COUNT(*) FROM orders
		WHERE resource_id = ? AND status = 'COMPLETED'
	`, resourceID)
	return n, err
}

// HasCompletedPurchase reports whether this email already holds a completed
// purchase for the resource (such callers must not join the waitlist).
func (r *OrderRepo) HasCompletedPurchase(resourceID, email string) (bool, error) {
	var n int
	err := r.db.Get(&n, `
		SELECT COUNT(*) FROM orders
		WHERE resource_id = ? AND LOWER(customer_email) = LOWER(?) AND status = 'COMPLETED'
	`, resourceID, email)
	return n > 0, err
}

// Record inserts a completed order. Used by the checkout flow after a
// notified entrant converts, and by seeds/tests.
func (r *OrderRepo) Record(orderID, resourceID, email string) error {
	_, err := r.db.Exec(`
		INSERT INTO orders(id, resource_id, customer_email, status, created_at)
		VALUES(?, ?, ?, 'COMPLETED', ?)
	`, orderID, resourceID, email, time.Now().UTC().Format(time.RFC3339))
	return err
}
