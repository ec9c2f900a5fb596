package services

import (
	"database/sql"
	"errors"
	"time"

	"waitline/internal/domain"
	applog "waitline/internal/log"
	"waitline/internal/repos"
)

// DefaultOfferWindow is how long a notified entrant has to convert before
// the offer cascades to the next person in line.
const DefaultOfferWindow = 48 * time.Hour

// OfferService drives the entry lifecycle: issuing time-boxed offers to the
// head of the queue and sweeping expired offers to cascade promotion.
type OfferService struct {
	Entries *repos.WaitlistRepo
	Notify  Notifier
	Locks   *Lockring
	Window  time.Duration

	// Now is the clock; tests override it.
	Now func() time.Time
}

func NewOfferService(entries *repos.WaitlistRepo, notify Notifier, locks *Lockring, window time.Duration) *OfferService {
	if window <= 0 {
		window = DefaultOfferWindow
	}
	return &OfferService{Entries: entries, Notify: notify, Locks: locks, Window: window, Now: time.Now}
}

// NotifyNext promotes the head of the queue to NOTIFIED and stamps the offer
// window. An empty queue is a logged no-op, not an error. This is the only
// path out of WAITING besides Remove.
func (s *OfferService) NotifyNext(resourceID string) (*domain.WaitlistEntry, error) {
	unlock := s.Locks.Lock(resourceID)
	defer unlock()
	return s.notifyNextLocked(resourceID)
}

// notifyNextLocked is NotifyNext minus locking, for callers that already
// hold the resource lock (the sweep cascade).
func (s *OfferService) notifyNextLocked(resourceID string) (*domain.WaitlistEntry, error) {
	head, err := s.Entries.Head(resourceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			applog.Info(nil, "offer.notify.empty", map[string]any{"resource": resourceID})
			return nil, nil
		}
		return nil, err
	}

	now := s.Now().UTC()
	notifiedAt := now.Format(time.RFC3339)
	expiresAt := now.Add(s.Window).Format(time.RFC3339)
	ok, err := s.Entries.MarkNotified(head.ID, notifiedAt, expiresAt)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Entry left WAITING between Head and the guarded update. Nothing to do.
		return nil, nil
	}
	// The promoted entry left the waiting set; close the gap it left behind.
	if err := s.Entries.Renumber(resourceID); err != nil {
		return nil, err
	}

	head.Status = domain.StatusNotified
	head.NotifiedAt = notifiedAt
	head.ExpiresAt = expiresAt

	if err := s.Notify.Send(head.Email, KindSpotAvailable, map[string]any{
		"resource":   resourceID,
		"expires_at": expiresAt,
	}); err != nil {
		applog.Error(nil, "offer.notify.send.fail", err, map[string]any{"entry": head.ID})
	}
	applog.Audit(nil, "offer.notify", map[string]any{"entry": head.ID, "resource": resourceID, "expires_at": expiresAt})
	return &head, nil
}

// Sweep expires every lapsed offer and cascades each freed slot to the next
// entrant. Invoked by the external periodic trigger; safe to run repeatedly
// and concurrently with joins on other resources. A failure on one entry is
// logged and does not abort the rest of the pass. Returns the number of
// cascades performed.
func (s *OfferService) Sweep() int {
	now := s.Now().UTC().Format(time.RFC3339)
	expired, err := s.Entries.ExpiredNotified(now)
	if err != nil {
		applog.Error(nil, "offer.sweep.scan.fail", err, nil)
		return 0
	}

	count := 0
	for _, e := range expired {
		if err := s.expireAndCascade(e); err != nil {
			applog.Error(nil, "offer.sweep.entry.fail", err, map[string]any{"entry": e.ID})
			continue
		}
		count++
	}
	if count > 0 {
		applog.Info(nil, "offer.sweep", map[string]any{"cascades": count})
	}
	return count
}

func (s *OfferService) expireAndCascade(e domain.WaitlistEntry) error {
	unlock := s.Locks.Lock(e.ResourceID)
	defer unlock()

	ok, err := s.Entries.MarkTerminal(e.ID, domain.StatusExpired, domain.StatusNotified)
	if err != nil {
		return err
	}
	if !ok {
		// Converted or removed since the scan; another path already handled it.
		return nil
	}
	if err := s.Entries.Renumber(e.ResourceID); err != nil {
		return err
	}
	_, err = s.notifyNextLocked(e.ResourceID)
	return err
}

// Convert marks a notified entrant as having completed their purchase.
// Rejects entries that are not NOTIFIED or whose offer window has lapsed —
// in the latter case the caller must re-check availability, since a sweep
// may already have cascaded the offer elsewhere.
func (s *OfferService) Convert(entryID string) (bool, error) {
	e, err := s.Entries.Get(entryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	unlock := s.Locks.Lock(e.ResourceID)
	defer unlock()

	e, err = s.Entries.Get(entryID)
	if err != nil {
		return false, err
	}
	if e.Status != domain.StatusNotified {
		return false, nil
	}
	exp, err := time.Parse(time.RFC3339, e.ExpiresAt)
	if err != nil || !s.Now().UTC().Before(exp) {
		return false, nil
	}

	ok, err := s.Entries.MarkTerminal(entryID, domain.StatusConverted, domain.StatusNotified)
	if err != nil || !ok {
		return false, err
	}
	applog.Audit(nil, "offer.convert", map[string]any{"entry": entryID, "resource": e.ResourceID})
	return true, nil
}
