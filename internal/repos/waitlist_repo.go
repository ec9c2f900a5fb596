package repos

import (
	"github.com/jmoiron/sqlx"

	"waitline/internal/domain"
)

type WaitlistRepo struct{ db *sqlx.DB }

func NewWaitlistRepo(db *sqlx.DB) *WaitlistRepo { return &WaitlistRepo{db: db} }

const entryCols = `id, resource_id, user_id, email, first_name, last_name, phone,
	position, status, created_at, notified_at, expires_at`

func (r *WaitlistRepo) Insert(e *domain.WaitlistEntry) error {
	_, err := r.db.Exec(`
		INSERT INTO waitlist_entries
		  (id, resource_id, user_id, email, first_name, last_name, phone, position, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.ResourceID, e.UserID, e.Email, e.FirstName, e.LastName, e.Phone,
		e.Position, e.Status, e.CreatedAt)
	return err
}

// Get returns one entry; sql.ErrNoRows for unknown ids.
func (r *WaitlistRepo) Get(id string) (domain.WaitlistEntry, error) {
	var e domain.WaitlistEntry
	err := r.db.Get(&e, `SELECT `+entryCols+` FROM waitlist_entries WHERE id = ?`, id)
	return e, err
}

// ActiveByEmail finds the WAITING or NOTIFIED entry for (resource, email),
// if any. At most one such entry exists (join dedupe enforces it).
func (r *WaitlistRepo) ActiveByEmail(resourceID, email string) (*domain.WaitlistEntry, error) {
	var e domain.WaitlistEntry
	err := r.db.Get(&e, `
		SELECT `+entryCols+` FROM waitlist_entries
		WHERE resource_id = ? AND LOWER(email) = LOWER(?) AND status IN ('WAITING','NOTIFIED')
	`, resourceID, email)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// MaxWaitingPosition returns the highest position among waiting entries,
// or 0 when the queue is empty.
func (r *WaitlistRepo) MaxWaitingPosition(resourceID string) (int, error) {
	var max int
	err := r.db.Get(&max, `
		SELECT COALESCE(MAX(position), 0) FROM waitlist_entries
		WHERE resource_id = ? AND status = 'WAITING'
	`, resourceID)
	return max, err
}

// Head returns the waiting entry with the lowest position; sql.ErrNoRows
// when the queue is empty.
func (r *WaitlistRepo) Head(resourceID string) (domain.WaitlistEntry, error) {
	var e domain.WaitlistEntry
	err := r.db.Get(&e, `
		SELECT `+entryCols+` FROM waitlist_entries
		WHERE resource_id = ? AND status = 'WAITING'
		ORDER BY position ASC LIMIT 1
	`, resourceID)
	return e, err
}

// ListWaiting returns the queue in position order.
func (r *WaitlistRepo) ListWaiting(resourceID string) ([]domain.WaitlistEntry, error) {
	var out []domain.WaitlistEntry
	err := r.db.Select(&out, `
		SELECT `+entryCols+` FROM waitlist_entries
		WHERE resource_id = ? AND status = 'WAITING'
		ORDER BY position ASC
	`, resourceID)
	return out, err
}

// ListByStatus returns entries in a given state, most recent activity first.
func (r *WaitlistRepo) ListByStatus(resourceID string, status domain.EntryStatus) ([]domain.WaitlistEntry, error) {
	if status == domain.StatusWaiting {
		return r.ListWaiting(resourceID)
	}
	var out []domain.WaitlistEntry
	err := r.db.Select(&out, `
		SELECT `+entryCols+` FROM waitlist_entries
		WHERE resource_id = ? AND status = ?
		ORDER BY CASE WHEN notified_at != '' THEN notified_at ELSE created_at END DESC
	`, resourceID, status)
	return out, err
}

// MarkNotified transitions WAITING -> NOTIFIED, stamping the offer window.
// Returns false if the entry was not in WAITING (lost a race or already
// handled); the guard in the WHERE clause makes the transition atomic.
func (r *WaitlistRepo) MarkNotified(id, notifiedAt, expiresAt string) (bool, error) {
	res, err := r.db.Exec(`
		UPDATE waitlist_entries
		SET status = 'NOTIFIED', notified_at = ?, expires_at = ?
		WHERE id = ? AND status = 'WAITING'
	`, notifiedAt, expiresAt, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// MarkTerminal transitions an entry into a terminal state, but only from the
// given current state. Returns false when no row matched.
func (r *WaitlistRepo) MarkTerminal(id string, to, from domain.EntryStatus) (bool, error) {
	res, err := r.db.Exec(`
		UPDATE waitlist_entries SET status = ? WHERE id = ? AND status = ?
	`, to, id, from)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// MarkRemoved transitions any still-active entry to REMOVED.
func (r *WaitlistRepo) MarkRemoved(id string) (bool, error) {
	res, err := r.db.Exec(`
		UPDATE waitlist_entries SET status = 'REMOVED'
		WHERE id = ? AND status IN ('WAITING','NOTIFIED')
	`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Renumber reassigns positions 1..N over the waiting entries of a resource,
// preserving their current relative order. Runs in one transaction so a
// reader never observes a gap.
func (r *WaitlistRepo) Renumber(resourceID string) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var ids []string
	if err := tx.Select(&ids, `
		SELECT id FROM waitlist_entries
		WHERE resource_id = ? AND status = 'WAITING'
		ORDER BY position ASC
	`, resourceID); err != nil {
		return err
	}
	for i, id := range ids {
		if _, err := tx.Exec(`UPDATE waitlist_entries SET position = ? WHERE id = ?`,
			i+1, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ExpiredNotified returns all NOTIFIED entries whose offer window has closed.
// RFC 3339 UTC strings compare correctly as plain strings.
func (r *WaitlistRepo) ExpiredNotified(now string) ([]domain.WaitlistEntry, error) {
	var out []domain.WaitlistEntry
	err := r.db.Select(&out, `
		SELECT `+entryCols+` FROM waitlist_entries
		WHERE status = 'NOTIFIED' AND expires_at != '' AND expires_at < ?
		ORDER BY expires_at ASC
	`, now)
	return out, err
}
