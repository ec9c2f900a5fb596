package repos

import (
	"log"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	// Seed demo resources/orders if DB is empty (idempotent; safe on every start)
	if err := seedIfEmpty(db); err != nil {
		return nil, err
	}

	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Resources (ticket types, seminars). total_capacity NULL = unlimited.
CREATE TABLE IF NOT EXISTS resources(
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  total_capacity INTEGER,
  manual_sold_out INTEGER NOT NULL DEFAULT 0,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);

-- Orders: the commerce collaborator's completed-purchase record. The
-- waitlist core only counts rows with status COMPLETED.
CREATE TABLE IF NOT EXISTS orders(
  id TEXT PRIMARY KEY,
  resource_id TEXT NOT NULL REFERENCES resources(id) ON DELETE CASCADE,
  customer_email TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'COMPLETED',
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_orders_resource ON orders(resource_id, status);
CREATE INDEX IF NOT EXISTS idx_orders_email    ON orders(resource_id, LOWER(customer_email));

-- Waitlist entries. position is only meaningful while status='WAITING';
-- waiting entries per resource hold contiguous positions 1..N.
CREATE TABLE IF NOT EXISTS waitlist_entries(
  id TEXT PRIMARY KEY,
  resource_id TEXT NOT NULL REFERENCES resources(id) ON DELETE CASCADE,
  user_id TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL,
  first_name TEXT NOT NULL DEFAULT '',
  last_name TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL DEFAULT '',
  position INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL CHECK (status IN ('WAITING','NOTIFIED','CONVERTED','EXPIRED','REMOVED')),
  created_at TEXT NOT NULL,
  notified_at TEXT NOT NULL DEFAULT '',
  expires_at TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_waitlist_resource_status ON waitlist_entries(resource_id, status);
CREATE INDEX IF NOT EXISTS idx_waitlist_email           ON waitlist_entries(resource_id, LOWER(email));
CREATE INDEX IF NOT EXISTS idx_waitlist_expiry          ON waitlist_entries(status, expires_at);
`
	_, err := db.Exec(schema)
	return err
}

func seedIfEmpty(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM resources`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	log.Println("[seed] inserting demo resources/orders")

	tx := db.MustBegin()
	tx.MustExec(`INSERT INTO resources(id,title,total_capacity,manual_sold_out) VALUES
	  ('sem-gophercon','GopherCon Workshop Seat',2,0),
	  ('tkt-earlybird','Early Bird Ticket',100,0),
	  ('tkt-livestream','Livestream Access',NULL,0)`)

	// sem-gophercon is fully booked: two completed orders against capacity 2.
	tx.MustExec(`INSERT INTO orders(id,resource_id,customer_email,status) VALUES
	  ('ord-0001','sem-gophercon','ana@example.test','COMPLETED'),
	  ('ord-0002','sem-gophercon','ben@example.test','COMPLETED'),
	  ('ord-0003','tkt-earlybird','cal@example.test','COMPLETED')`)

	return tx.Commit()
}
