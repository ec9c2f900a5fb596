package services_test

import (
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"waitline/internal/domain"
	"waitline/internal/repos"
	"waitline/internal/services"
)

// newOfferPair wires a waitlist and offer service over one db with a shared
// lockring and a controllable clock.
func newOfferPair(t *testing.T, db *sqlx.DB) (*services.WaitlistService, *services.OfferService, *clock) {
	t.Helper()
	entryRepo := repos.NewWaitlistRepo(db)
	resourceRepo := repos.NewResourceRepo(db)
	orderRepo := repos.NewOrderRepo(db)
	stock := services.NewStockService(orderRepo)
	locks := services.NewLockring()

	waitSvc := services.NewWaitlistService(entryRepo, resourceRepo, stock, orderRepo,
		services.LogNotifier{}, locks)
	offerSvc := services.NewOfferService(entryRepo, services.LogNotifier{}, locks, 48*time.Hour)

	ck := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	waitSvc.Now = ck.Now
	offerSvc.Now = ck.Now
	return waitSvc, offerSvc, ck
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestNotifyNext(t *testing.T) {
	db := memdb(t)
	waitSvc, offerSvc, ck := newOfferPair(t, db)

	join(t, waitSvc, "sem-1", "d@example.test")
	join(t, waitSvc, "sem-1", "e@example.test")

	e, err := offerSvc.NotifyNext("sem-1")
	if err != nil {
		t.Fatal(err)
	}
	if e == nil || e.Email != "d@example.test" {
		t.Fatalf("head of queue should be notified, got %+v", e)
	}
	if e.Status != domain.StatusNotified {
		t.Fatalf("want NOTIFIED, got %s", e.Status)
	}
	wantExp := ck.Now().Add(48 * time.Hour).Format(time.RFC3339)
	if e.NotifiedAt == "" || e.ExpiresAt != wantExp {
		t.Fatalf("offer window not stamped: notified_at=%q expires_at=%q want %q", e.NotifiedAt, e.ExpiresAt, wantExp)
	}

	// the promoted entry leaves the waiting set; the rest close the gap
	waiting, err := waitSvc.List("sem-1", domain.StatusWaiting)
	if err != nil {
		t.Fatal(err)
	}
	if len(waiting) != 1 || waiting[0].Email != "e@example.test" || waiting[0].Position != 1 {
		t.Fatalf("want e@example.test at position 1, got %+v", waiting)
	}
}

func TestNotifyNext_EmptyQueue(t *testing.T) {
	db := memdb(t)
	_, offerSvc, _ := newOfferPair(t, db)

	e, err := offerSvc.NotifyNext("sem-1")
	if err != nil {
		t.Fatal(err)
	}
	if e != nil {
		t.Fatalf("empty queue must be a no-op, got %+v", e)
	}
}

func TestConvert(t *testing.T) {
	db := memdb(t)
	waitSvc, offerSvc, ck := newOfferPair(t, db)

	e1 := join(t, waitSvc, "sem-1", "d@example.test")

	// converting a WAITING entry is an invalid transition
	ok, err := offerSvc.Convert(e1.ID)
	if err != nil || ok {
		t.Fatalf("convert of waiting entry: ok=%v err=%v", ok, err)
	}

	if _, err := offerSvc.NotifyNext("sem-1"); err != nil {
		t.Fatal(err)
	}

	ck.Advance(47 * time.Hour)
	ok, err = offerSvc.Convert(e1.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("convert inside the offer window must succeed")
	}

	got, err := repos.NewWaitlistRepo(db).Get(e1.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.StatusConverted {
		t.Fatalf("want CONVERTED, got %s", got.Status)
	}

	// terminal states never transition again
	ok, err = offerSvc.Convert(e1.ID)
	if err != nil || ok {
		t.Fatalf("second convert: ok=%v err=%v", ok, err)
	}
}

func TestConvert_AfterExpiry(t *testing.T) {
	db := memdb(t)
	waitSvc, offerSvc, ck := newOfferPair(t, db)

	e1 := join(t, waitSvc, "sem-1", "d@example.test")
	if _, err := offerSvc.NotifyNext("sem-1"); err != nil {
		t.Fatal(err)
	}

	ck.Advance(49 * time.Hour)
	ok, err := offerSvc.Convert(e1.ID)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("convert after expiry must be rejected")
	}
}

func TestSweep_Cascade(t *testing.T) {
	db := memdb(t)
	waitSvc, offerSvc, ck := newOfferPair(t, db)

	e1 := join(t, waitSvc, "sem-1", "d@example.test")
	e2 := join(t, waitSvc, "sem-1", "e@example.test")
	e3 := join(t, waitSvc, "sem-1", "f@example.test")

	if _, err := offerSvc.NotifyNext("sem-1"); err != nil {
		t.Fatal(err)
	}

	// nothing expired yet
	if n := offerSvc.Sweep(); n != 0 {
		t.Fatalf("premature sweep should cascade nothing, got %d", n)
	}

	ck.Advance(49 * time.Hour)
	if n := offerSvc.Sweep(); n != 1 {
		t.Fatalf("want 1 cascade, got %d", n)
	}

	entryRepo := repos.NewWaitlistRepo(db)
	got1, _ := entryRepo.Get(e1.ID)
	got2, _ := entryRepo.Get(e2.ID)
	got3, _ := entryRepo.Get(e3.ID)
	if got1.Status != domain.StatusExpired {
		t.Fatalf("entry 1 should expire, got %s", got1.Status)
	}
	if got2.Status != domain.StatusNotified {
		t.Fatalf("offer should cascade to entry 2, got %s", got2.Status)
	}
	if got3.Status != domain.StatusWaiting || got3.Position != 1 {
		t.Fatalf("entry 3 should head the queue at position 1, got %s/%d", got3.Status, got3.Position)
	}

	// sweeping again without further expiries is a no-op
	if n := offerSvc.Sweep(); n != 0 {
		t.Fatalf("repeat sweep should cascade nothing, got %d", n)
	}

	// let the cascaded offer lapse too: entry 3 gets its turn
	ck.Advance(49 * time.Hour)
	if n := offerSvc.Sweep(); n != 1 {
		t.Fatalf("want 1 cascade, got %d", n)
	}
	got3, _ = entryRepo.Get(e3.ID)
	if got3.Status != domain.StatusNotified {
		t.Fatalf("offer should reach entry 3, got %s", got3.Status)
	}

	// final lapse leaves an empty queue; sweep still expires the offer
	ck.Advance(49 * time.Hour)
	if n := offerSvc.Sweep(); n != 1 {
		t.Fatalf("want 1 cascade, got %d", n)
	}
	got3, _ = entryRepo.Get(e3.ID)
	if got3.Status != domain.StatusExpired {
		t.Fatalf("entry 3 should expire, got %s", got3.Status)
	}
}

// Full lifecycle from the join form's point of view: two people queue for a
// zero-capacity resource, the first converts in time, the second moves up.
func TestOfferLifecycle_ZeroCapacityResource(t *testing.T) {
	db := memdb(t)
	waitSvc, offerSvc, ck := newOfferPair(t, db)

	resourceRepo := repos.NewResourceRepo(db)
	zero := 0
	if err := resourceRepo.Create("sem-0", "Tiny Seminar", &zero); err != nil {
		t.Fatal(err)
	}

	u1 := join(t, waitSvc, "sem-0", "u1@example.test")
	u2 := join(t, waitSvc, "sem-0", "u2@example.test")
	if u1.Position != 1 || u2.Position != 2 {
		t.Fatalf("want positions 1,2 got %d,%d", u1.Position, u2.Position)
	}

	notified, err := offerSvc.NotifyNext("sem-0")
	if err != nil {
		t.Fatal(err)
	}
	if notified.ID != u1.ID {
		t.Fatalf("first joiner should be notified first")
	}

	ck.Advance(24 * time.Hour)
	ok, err := offerSvc.Convert(u1.ID)
	if err != nil || !ok {
		t.Fatalf("convert before expiry: ok=%v err=%v", ok, err)
	}

	waiting, err := waitSvc.List("sem-0", domain.StatusWaiting)
	if err != nil {
		t.Fatal(err)
	}
	if len(waiting) != 1 || waiting[0].ID != u2.ID || waiting[0].Position != 1 {
		t.Fatalf("second joiner should wait at position 1, got %+v", waiting)
	}
}
