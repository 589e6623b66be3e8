package repository

// These tests run against a real MySQL instance and are skipped when
// none is reachable.  They own a scratch schema: tables are created on
// demand and truncated per test, which also serves as the reference
// DDL since schema migration tooling lives outside this repository.

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/lovisadi/web/internal/identity"
	"github.com/lovisadi/web/internal/model"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS events (
        id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
        title VARCHAR(255) NOT NULL,
        description TEXT NULL,
        starts_at DATETIME NOT NULL,
        ends_at DATETIME NOT NULL,
        published BOOLEAN NOT NULL DEFAULT FALSE,
        created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
    )`,
	`CREATE TABLE IF NOT EXISTS shoppables (
        id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
        event_id BIGINT UNSIGNED NOT NULL,
        available_from DATETIME NOT NULL,
        available_to DATETIME NULL,
        removed_at DATETIME NULL,
        stock INT NOT NULL DEFAULT 0,
        created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
    )`,
	`CREATE TABLE IF NOT EXISTS tickets (
        shoppable_id BIGINT UNSIGNED PRIMARY KEY,
        max_amount_per_user INT NOT NULL DEFAULT 1
    )`,
	`CREATE TABLE IF NOT EXISTS consumables (
        id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
        shoppable_id BIGINT UNSIGNED NOT NULL,
        member_id BIGINT UNSIGNED NULL,
        session_id VARCHAR(64) NULL,
        purchased_at DATETIME NULL,
        expires_at DATETIME NULL,
        created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
    )`,
	`CREATE TABLE IF NOT EXISTS consumable_reservations (
        id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
        shoppable_id BIGINT UNSIGNED NOT NULL,
        member_id BIGINT UNSIGNED NULL,
        session_id VARCHAR(64) NULL,
        queue_order INT NULL,
        created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
    )`,
}

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/shop_test?parseTime=true&loc=UTC"
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	ctx := context.Background()
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	for _, table := range []string{"consumable_reservations", "consumables", "tickets", "shoppables", "events"} {
		if _, err := db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			t.Fatalf("clean %s: %v", table, err)
		}
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// seedTicket inserts an event, a shoppable and its ticket row, and
// returns the shoppable id.
func seedTicket(t *testing.T, db *sql.DB, availableFrom time.Time, availableTo, removedAt *time.Time, stock, maxPerUser int) uint64 {
	t.Helper()
	ctx := context.Background()
	res, err := db.ExecContext(ctx,
		`INSERT INTO events (title, starts_at, ends_at, published) VALUES ('Spring party', ?, ?, TRUE)`,
		availableFrom.Add(30*24*time.Hour), availableFrom.Add(31*24*time.Hour),
	)
	if err != nil {
		t.Fatalf("seed event: %v", err)
	}
	eventID, _ := res.LastInsertId()

	res, err = db.ExecContext(ctx,
		`INSERT INTO shoppables (event_id, available_from, available_to, removed_at, stock) VALUES (?, ?, ?, ?, ?)`,
		eventID, availableFrom, availableTo, removedAt, stock,
	)
	if err != nil {
		t.Fatalf("seed shoppable: %v", err)
	}
	id, _ := res.LastInsertId()
	if _, err := db.ExecContext(ctx,
		`INSERT INTO tickets (shoppable_id, max_amount_per_user) VALUES (?, ?)`, id, maxPerUser,
	); err != nil {
		t.Fatalf("seed ticket: %v", err)
	}
	return uint64(id)
}

func TestTicketVisibilityFilter(t *testing.T) {
	db := testDB(t)
	repo := NewTicketRepo(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	pastRemoval := now.Add(-time.Hour)
	futureRemoval := now.Add(time.Hour)
	closed5d := now.Add(-5 * 24 * time.Hour)
	closed11d := now.Add(-11 * 24 * time.Hour)

	visible := seedTicket(t, db, now.Add(-time.Hour), nil, nil, 10, 2)
	seedTicket(t, db, now.Add(-2*time.Hour), nil, &pastRemoval, 10, 2)                // removed in the past: hidden
	scheduled := seedTicket(t, db, now.Add(-3*time.Hour), nil, &futureRemoval, 10, 2) // future removal: visible
	inGrace := seedTicket(t, db, now.Add(-20*24*time.Hour), &closed5d, nil, 10, 2)    // closed 5d ago: visible
	seedTicket(t, db, now.Add(-20*24*time.Hour), &closed11d, nil, 10, 2)              // closed 11d ago: hidden

	got, err := repo.ListVisible(ctx, now)
	if err != nil {
		t.Fatalf("ListVisible: %v", err)
	}
	want := map[uint64]bool{visible: true, scheduled: true, inGrace: true}
	if len(got) != len(want) {
		t.Fatalf("got %d tickets, want %d", len(got), len(want))
	}
	for i, tk := range got {
		if !want[tk.ID] {
			t.Errorf("unexpected ticket %d in listing", tk.ID)
		}
		if i > 0 && got[i-1].AvailableFrom.After(tk.AvailableFrom) {
			t.Errorf("listing not ordered by available_from ascending")
		}
	}

	if _, err := repo.GetByID(ctx, visible, now); err != nil {
		t.Errorf("GetByID(visible): %v", err)
	}
	if _, err := repo.GetByID(ctx, 999999, now); !errors.Is(err, ErrTicketNotFound) {
		t.Errorf("GetByID(absent) = %v, want ErrTicketNotFound", err)
	}
}

func seedConsumable(t *testing.T, db *sql.DB, shoppableID uint64, ident identity.Identity, purchasedAt, expiresAt *time.Time) {
	t.Helper()
	memberID, sessionID := ownerValues(ident)
	if _, err := db.ExecContext(context.Background(),
		`INSERT INTO consumables (shoppable_id, member_id, session_id, purchased_at, expires_at) VALUES (?, ?, ?, ?, ?)`,
		shoppableID, memberID, sessionID, purchasedAt, expiresAt,
	); err != nil {
		t.Fatalf("seed consumable: %v", err)
	}
}

func TestCountClaimed(t *testing.T) {
	db := testDB(t)
	repo := NewConsumableRepo(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	id := seedTicket(t, db, now.Add(-time.Hour), nil, nil, 10, 2)
	member := identity.Member(1)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	seedConsumable(t, db, id, member, &past, nil)                   // purchased: counts
	seedConsumable(t, db, id, identity.Session("s1"), nil, &future) // active hold: counts
	seedConsumable(t, db, id, identity.Session("s2"), nil, nil)     // never-expiring hold: counts
	seedConsumable(t, db, id, identity.Session("s3"), nil, &past)   // expired hold: does not count

	n, err := repo.CountClaimed(ctx, id, now)
	if err != nil {
		t.Fatalf("CountClaimed: %v", err)
	}
	if n != 3 {
		t.Errorf("CountClaimed = %d, want 3", n)
	}

	p, err := repo.CountPurchasedBy(ctx, id, member)
	if err != nil {
		t.Fatalf("CountPurchasedBy: %v", err)
	}
	if p != 1 {
		t.Errorf("CountPurchasedBy(member) = %d, want 1", p)
	}
	u, err := repo.CountUnpurchasedBy(ctx, id, identity.Session("s1"), now)
	if err != nil {
		t.Fatalf("CountUnpurchasedBy: %v", err)
	}
	if u != 1 {
		t.Errorf("CountUnpurchasedBy(s1) = %d, want 1", u)
	}
}

func TestCreateHoldLimits(t *testing.T) {
	db := testDB(t)
	repo := NewConsumableRepo(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	id := seedTicket(t, db, now.Add(-time.Hour), nil, nil, 2, 1)
	tk := model.Ticket{Shoppable: model.Shoppable{ID: id, Stock: 2, AvailableFrom: now.Add(-time.Hour)}, MaxAmountPerUser: 1}

	if _, err := repo.CreateHold(ctx, tk, identity.Session("a"), now.Add(10*time.Minute), now); err != nil {
		t.Fatalf("first hold: %v", err)
	}
	if _, err := repo.CreateHold(ctx, tk, identity.Session("a"), now.Add(10*time.Minute), now); !errors.Is(err, ErrMaxReached) {
		t.Errorf("second hold by same session = %v, want ErrMaxReached", err)
	}
	if _, err := repo.CreateHold(ctx, tk, identity.Session("b"), now.Add(10*time.Minute), now); err != nil {
		t.Fatalf("hold by second session: %v", err)
	}
	if _, err := repo.CreateHold(ctx, tk, identity.Session("c"), now.Add(10*time.Minute), now); !errors.Is(err, ErrSoldOut) {
		t.Errorf("hold past stock = %v, want ErrSoldOut", err)
	}
}

func TestCheckoutAndRemove(t *testing.T) {
	db := testDB(t)
	repo := NewConsumableRepo(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	id := seedTicket(t, db, now.Add(-time.Hour), nil, nil, 5, 3)
	tk := model.Ticket{Shoppable: model.Shoppable{ID: id, Stock: 5, AvailableFrom: now.Add(-time.Hour)}, MaxAmountPerUser: 3}
	sess := identity.Session("buyer")

	if _, err := repo.CreateHold(ctx, tk, sess, now.Add(10*time.Minute), now); err != nil {
		t.Fatalf("hold: %v", err)
	}
	purchased, err := repo.MarkPurchasedBy(ctx, sess, now)
	if err != nil {
		t.Fatalf("MarkPurchasedBy: %v", err)
	}
	if len(purchased) != 1 || purchased[0].PurchasedAt == nil || purchased[0].ExpiresAt != nil {
		t.Errorf("purchased = %+v", purchased)
	}
	if _, err := repo.MarkPurchasedBy(ctx, sess, now); !errors.Is(err, ErrHoldNotFound) {
		t.Errorf("checkout of empty cart = %v, want ErrHoldNotFound", err)
	}
	// Purchased rows are permanent; there is nothing left to remove.
	if err := repo.DeleteHoldBy(ctx, id, sess); !errors.Is(err, ErrHoldNotFound) {
		t.Errorf("DeleteHoldBy after purchase = %v, want ErrHoldNotFound", err)
	}
}

func TestReservationQueue(t *testing.T) {
	db := testDB(t)
	repo := NewReservationRepo(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	id := seedTicket(t, db, now.Add(-time.Hour), nil, nil, 0, 1)

	first, err := repo.Create(ctx, id, identity.Session("a"), now)
	if err != nil {
		t.Fatalf("first join: %v", err)
	}
	if first.QueueOrder == nil || *first.QueueOrder != 1 {
		t.Errorf("first position = %v, want 1", first.QueueOrder)
	}
	second, err := repo.Create(ctx, id, identity.Member(9), now)
	if err != nil {
		t.Fatalf("second join: %v", err)
	}
	if second.QueueOrder == nil || *second.QueueOrder != 2 {
		t.Errorf("second position = %v, want 2", second.QueueOrder)
	}
	if _, err := repo.Create(ctx, id, identity.Session("a"), now); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate join = %v, want ErrConflict", err)
	}

	n, err := repo.CountCommitted(ctx, id)
	if err != nil {
		t.Fatalf("CountCommitted: %v", err)
	}
	if n != 2 {
		t.Errorf("CountCommitted = %d, want 2", n)
	}
	mine, err := repo.CountBy(ctx, id, identity.Member(9))
	if err != nil {
		t.Fatalf("CountBy: %v", err)
	}
	if mine != 1 {
		t.Errorf("CountBy(member 9) = %d, want 1", mine)
	}
}

func TestEventListVisible(t *testing.T) {
	db := testDB(t)
	repo := NewEventRepo(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	seed := func(title string, startsAt time.Time, published bool) uint64 {
		res, err := db.ExecContext(ctx,
			`INSERT INTO events (title, starts_at, ends_at, published) VALUES (?, ?, ?, ?)`,
			title, startsAt, startsAt.Add(4*time.Hour), published,
		)
		if err != nil {
			t.Fatalf("seed event: %v", err)
		}
		id, _ := res.LastInsertId()
		return uint64(id)
	}

	later := seed("second", now.Add(48*time.Hour), true)
	earlier := seed("first", now.Add(24*time.Hour), true)
	recent := seed("just ended", now.Add(-5*24*time.Hour), true) // ended 5d ago: still listed
	seed("draft", now.Add(24*time.Hour), false)
	seed("long over", now.Add(-30*24*time.Hour), true) // ended 30d ago: hidden

	got, err := repo.ListVisible(ctx, now)
	if err != nil {
		t.Fatalf("ListVisible: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d events, want 3 (drafts and long-ended hidden)", len(got))
	}
	if got[0].ID != recent || got[1].ID != earlier || got[2].ID != later {
		t.Errorf("events not ordered by starts_at ascending: %d, %d, %d", got[0].ID, got[1].ID, got[2].ID)
	}

	filtered, err := repo.ListVisible(ctx, now, EventFilter{
		Where: "e.starts_at >= ?",
		Args:  []interface{}{now.Add(36 * time.Hour)},
	})
	if err != nil {
		t.Fatalf("ListVisible(filtered): %v", err)
	}
	if len(filtered) != 1 || filtered[0].ID != later {
		t.Errorf("extra filter not applied: %+v", filtered)
	}
}
