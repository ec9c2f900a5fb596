package services_test

import (
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"waitline/internal/domain"
	"waitline/internal/repos"
	"waitline/internal/services"
)

func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	schema := `
	CREATE TABLE resources(id TEXT PRIMARY KEY, title TEXT, total_capacity INTEGER,
	  manual_sold_out INTEGER NOT NULL DEFAULT 0, created_at TEXT DEFAULT CURRENT_TIMESTAMP, updated_at TEXT);
	CREATE TABLE orders(id TEXT PRIMARY KEY, resource_id TEXT, customer_email TEXT,
	  status TEXT, created_at TEXT);
	CREATE TABLE waitlist_entries(id TEXT PRIMARY KEY, resource_id TEXT,
	  user_id TEXT NOT NULL DEFAULT '', email TEXT,
	  first_name TEXT NOT NULL DEFAULT '', last_name TEXT NOT NULL DEFAULT '',
	  phone TEXT NOT NULL DEFAULT '', position INTEGER NOT NULL DEFAULT 0,
	  status TEXT, created_at TEXT,
	  notified_at TEXT NOT NULL DEFAULT '', expires_at TEXT NOT NULL DEFAULT '');

	INSERT INTO resources(id,title,total_capacity,manual_sold_out) VALUES
	  ('sem-1','Fully Booked Seminar',2,0),
	  ('tkt-open','Open Ticket',100,0),
	  ('tkt-stream','Livestream',NULL,0),
	  ('tkt-closed','Closed By Admin',NULL,1);
	INSERT INTO orders(id,resource_id,customer_email,status) VALUES
	  ('o1','sem-1','ana@example.test','COMPLETED'),
	  ('o2','sem-1','ben@example.test','COMPLETED'),
	  ('o3','tkt-open','cal@example.test','COMPLETED');
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatal(err)
	}
	return db
}

func newWaitlist(t *testing.T, db *sqlx.DB) *services.WaitlistService {
	t.Helper()
	entryRepo := repos.NewWaitlistRepo(db)
	resourceRepo := repos.NewResourceRepo(db)
	orderRepo := repos.NewOrderRepo(db)
	stock := services.NewStockService(orderRepo)
	return services.NewWaitlistService(entryRepo, resourceRepo, stock, orderRepo,
		services.LogNotifier{}, services.NewLockring())
}

func join(t *testing.T, svc *services.WaitlistService, resource, email string) *domain.WaitlistEntry {
	t.Helper()
	e, err := svc.RequestJoin(resource, domain.Identity{Email: email})
	if err != nil {
		t.Fatalf("join %s: %v", email, err)
	}
	return e
}

func TestRequestJoin_FIFOPositions(t *testing.T) {
	svc := newWaitlist(t, memdb(t))

	e1 := join(t, svc, "sem-1", "d@example.test")
	e2 := join(t, svc, "sem-1", "e@example.test")
	e3 := join(t, svc, "sem-1", "f@example.test")

	if e1.Position != 1 || e2.Position != 2 || e3.Position != 3 {
		t.Fatalf("want positions 1,2,3 got %d,%d,%d", e1.Position, e2.Position, e3.Position)
	}
	if e1.Status != domain.StatusWaiting {
		t.Fatalf("want WAITING, got %s", e1.Status)
	}
}

func TestRequestJoin_Rejections(t *testing.T) {
	svc := newWaitlist(t, memdb(t))

	// not sold out -> waitlist closed
	if _, err := svc.RequestJoin("tkt-open", domain.Identity{Email: "x@example.test"}); !errors.Is(err, services.ErrNotEligible) {
		t.Fatalf("want ErrNotEligible, got %v", err)
	}
	// unlimited stock, no override -> never sold out
	if _, err := svc.RequestJoin("tkt-stream", domain.Identity{Email: "x@example.test"}); !errors.Is(err, services.ErrNotEligible) {
		t.Fatalf("want ErrNotEligible, got %v", err)
	}
	// manual override wins even with unlimited stock
	if _, err := svc.RequestJoin("tkt-closed", domain.Identity{Email: "x@example.test"}); err != nil {
		t.Fatalf("override-closed resource should accept joiners: %v", err)
	}

	// bad email
	if _, err := svc.RequestJoin("sem-1", domain.Identity{Email: "not-an-email"}); !errors.Is(err, services.ErrInvalidEmail) {
		t.Fatalf("want ErrInvalidEmail, got %v", err)
	}
	// unknown resource
	if _, err := svc.RequestJoin("nope", domain.Identity{Email: "x@example.test"}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	// completed purchase holder
	if _, err := svc.RequestJoin("sem-1", domain.Identity{Email: "ana@example.test"}); !errors.Is(err, services.ErrAlreadyRegistered) {
		t.Fatalf("want ErrAlreadyRegistered, got %v", err)
	}

	// duplicate join while first entry is active; email matching is
	// case-insensitive
	join(t, svc, "sem-1", "dup@example.test")
	if _, err := svc.RequestJoin("sem-1", domain.Identity{Email: "DUP@example.test"}); !errors.Is(err, services.ErrAlreadyWaitlisted) {
		t.Fatalf("want ErrAlreadyWaitlisted, got %v", err)
	}
	list, err := svc.List("sem-1", domain.StatusWaiting)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("duplicate join must not create a second row, have %d", len(list))
	}
}

func TestRemove_RenumbersAndIsIdempotent(t *testing.T) {
	svc := newWaitlist(t, memdb(t))

	join(t, svc, "sem-1", "d@example.test")
	e2 := join(t, svc, "sem-1", "e@example.test")
	join(t, svc, "sem-1", "f@example.test")

	ok, err := svc.Remove(e2.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("first remove should report true")
	}

	waiting, err := svc.List("sem-1", domain.StatusWaiting)
	if err != nil {
		t.Fatal(err)
	}
	if len(waiting) != 2 {
		t.Fatalf("want 2 waiting, got %d", len(waiting))
	}
	for i, e := range waiting {
		if e.Position != i+1 {
			t.Fatalf("positions must be contiguous from 1, got %d at index %d", e.Position, i)
		}
	}
	if waiting[0].Email != "d@example.test" || waiting[1].Email != "f@example.test" {
		t.Fatalf("FIFO order lost: %s, %s", waiting[0].Email, waiting[1].Email)
	}

	// second remove is a no-op
	ok, err = svc.Remove(e2.ID)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("second remove should report false")
	}
	// unknown entry is a no-op too
	ok, err = svc.Remove("missing-id")
	if err != nil || ok {
		t.Fatalf("remove of unknown entry: ok=%v err=%v", ok, err)
	}
}

func TestStatusFor(t *testing.T) {
	svc := newWaitlist(t, memdb(t))

	join(t, svc, "sem-1", "d@example.test")
	e2 := join(t, svc, "sem-1", "e@example.test")

	got, err := svc.StatusFor("sem-1", "E@example.test")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != e2.ID || got.Position != 2 {
		t.Fatalf("want entry %s at position 2, got %s at %d", e2.ID, got.ID, got.Position)
	}

	if _, err := svc.StatusFor("sem-1", "nobody@example.test"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
