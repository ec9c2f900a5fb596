package services

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"waitline/internal/domain"
	applog "waitline/internal/log"
	"waitline/internal/repos"
	"waitline/internal/validate"
)

// WaitlistService owns the per-resource queue (position assignment, dedupe,
// renumbering) and is the public façade external callers go through.
type WaitlistService struct {
	Entries   *repos.WaitlistRepo
	Resources *repos.ResourceRepo
	Stock     *StockService
	Purchases PurchaseCounter
	Notify    Notifier
	Locks     *Lockring

	// Now is the clock; tests override it.
	Now func() time.Time
}

func NewWaitlistService(
	entries *repos.WaitlistRepo,
	resources *repos.ResourceRepo,
	stock *StockService,
	purchases PurchaseCounter,
	notify Notifier,
	locks *Lockring,
) *WaitlistService {
	return &WaitlistService{
		Entries:   entries,
		Resources: resources,
		Stock:     stock,
		Purchases: purchases,
		Notify:    notify,
		Locks:     locks,
		Now:       time.Now,
	}
}

// RequestJoin is the public join path. The waitlist only accepts joiners
// while the resource is sold out; an open resource should be purchased, not
// queued for.
func (s *WaitlistService) RequestJoin(resourceID string, id domain.Identity) (*domain.WaitlistEntry, error) {
	res, err := s.Resources.Get(resourceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	soldOut, err := s.Stock.IsSoldOut(res)
	if err != nil {
		return nil, err
	}
	if !soldOut {
		return nil, ErrNotEligible
	}
	return s.Join(resourceID, id)
}

// Join appends an identity to the queue at position max(waiting)+1.
//
// The whole read-max-then-insert sequence runs under the resource lock so
// two concurrent joins can never pick the same position.
func (s *WaitlistService) Join(resourceID string, id domain.Identity) (*domain.WaitlistEntry, error) {
	email, ok := validate.Email(id.Email)
	if !ok {
		return nil, ErrInvalidEmail
	}

	unlock := s.Locks.Lock(resourceID)
	defer unlock()

	if _, err := s.Entries.ActiveByEmail(resourceID, email); err == nil {
		return nil, ErrAlreadyWaitlisted
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	registered, err := s.Purchases.HasCompletedPurchase(resourceID, email)
	if err != nil {
		return nil, err
	}
	if registered {
		return nil, ErrAlreadyRegistered
	}

	max, err := s.Entries.MaxWaitingPosition(resourceID)
	if err != nil {
		return nil, err
	}

	e := &domain.WaitlistEntry{
		ID:         uuid.NewString(),
		ResourceID: resourceID,
		UserID:     id.UserID,
		Email:      email,
		FirstName:  id.FirstName,
		LastName:   id.LastName,
		Phone:      id.Phone,
		Position:   max + 1,
		Status:     domain.StatusWaiting,
		CreatedAt:  s.Now().UTC().Format(time.RFC3339),
	}
	if err := s.Entries.Insert(e); err != nil {
		return nil, err
	}

	// Confirmation mail is best-effort; a failed send never rolls back the join.
	if err := s.Notify.Send(email, KindConfirmation, map[string]any{
		"resource": resourceID,
		"position": e.Position,
	}); err != nil {
		applog.Error(nil, "waitlist.join.notify.fail", err, map[string]any{"entry": e.ID})
	}
	return e, nil
}

// Remove cancels an entry (user or admin initiated) and immediately frees
// its slot. Idempotent: removing an already-terminal entry returns false.
func (s *WaitlistService) Remove(entryID string) (bool, error) {
	e, err := s.Entries.Get(entryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	unlock := s.Locks.Lock(e.ResourceID)
	defer unlock()

	ok, err := s.Entries.MarkRemoved(entryID)
	if err != nil || !ok {
		return false, err
	}
	if err := s.Entries.Renumber(e.ResourceID); err != nil {
		return false, err
	}
	applog.Audit(nil, "waitlist.remove", map[string]any{"entry": entryID, "resource": e.ResourceID})
	return true, nil
}

// List returns entries for a resource filtered by status.
func (s *WaitlistService) List(resourceID string, status domain.EntryStatus) ([]domain.WaitlistEntry, error) {
	return s.Entries.ListByStatus(resourceID, status)
}

// StatusFor returns the caller's active entry, if any, for "you are #N on
// the waitlist" displays. Returns ErrNotFound when the email holds no
// active entry.
func (s *WaitlistService) StatusFor(resourceID, email string) (*domain.WaitlistEntry, error) {
	email, ok := validate.Email(email)
	if !ok {
		return nil, ErrInvalidEmail
	}
	e, err := s.Entries.ActiveByEmail(resourceID, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}
