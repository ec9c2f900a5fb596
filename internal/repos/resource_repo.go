package repos

import (
	"time"

	"github.com/jmoiron/sqlx"

	"waitline/internal/domain"
)

type ResourceRepo struct{ db *sqlx.DB }

func NewResourceRepo(db *sqlx.DB) *ResourceRepo { return &ResourceRepo{db: db} }

// Get returns a single resource. Callers see sql.ErrNoRows for unknown ids.
func (r *ResourceRepo) Get(id string) (domain.Resource, error) {
	var res domain.Resource
	err := r.db.Get(&res, `
		SELECT id, title, total_capacity, manual_sold_out, created_at, COALESCE(updated_at,'') AS updated_at
		FROM resources WHERE id = ?
	`, id)
	return res, err
}

func (r *ResourceRepo) List() ([]domain.Resource, error) {
	var out []domain.Resource
	err := r.db.Select(&out, `
		SELECT id, title, total_capacity, manual_sold_out, created_at, COALESCE(updated_at,'') AS updated_at
		FROM resources ORDER BY title
	`)
	return out, err
}

func (r *ResourceRepo) Create(id, title string, capacity *int) error {
	_, err := r.db.Exec(`
		INSERT INTO resources(id, title, total_capacity, manual_sold_out, created_at)
		VALUES(?, ?, ?, 0, ?)
	`, id, title, capacity, time.Now().UTC().Format(time.RFC3339))
	return err
}

// SetManualSoldOut flips the admin override that forces sold-out status
// regardless of computed stock.
func (r *ResourceRepo) SetManualSoldOut(id string, v bool) error {
	_, err := r.db.Exec(`
		UPDATE resources SET manual_sold_out = ?, updated_at = ? WHERE id = ?
	`, v, time.Now().UTC().Format(time.RFC3339), id)
	return err
}

// SetCapacity updates total_capacity; nil means unlimited.
func (r *ResourceRepo) SetCapacity(id string, capacity *int) error {
	_, err := r.db.Exec(`
		UPDATE resources SET total_capacity = ?, updated_at = ? WHERE id = ?
	`, capacity, time.Now().UTC().Format(time.RFC3339), id)
	return err
}
