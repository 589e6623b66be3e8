package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lovisadi/web/internal/identity"
	"github.com/lovisadi/web/internal/model"
)

// ErrHoldNotFound indicates that the requester has no active cart hold
// to remove or purchase.
var ErrHoldNotFound = errors.New("cart entry not found")

// claimedWhere selects consumables that count against stock: completed
// purchases, unexpired cart holds, and never-expiring holds.
// Placeholder: now.
const claimedWhere = `(c.purchased_at IS NOT NULL OR c.expires_at IS NULL OR c.expires_at > ?)`

// ConsumableRepo provides data access to the consumables table.  All
// expiry comparisons are performed against UTC timestamps supplied by
// the caller, so tests can pin the clock.
type ConsumableRepo struct {
	db *sql.DB
}

// NewConsumableRepo returns a ConsumableRepo bound to the provided database.
func NewConsumableRepo(db *sql.DB) *ConsumableRepo {
	return &ConsumableRepo{db: db}
}

// ownerValues splits an identity into the nullable member_id and
// session_id column values used on insert.
func ownerValues(id identity.Identity) (memberID, sessionID interface{}) {
	if id.IsMember() {
		return id.MemberID, nil
	}
	return nil, id.SessionID
}

// CountClaimed returns how many units of the shoppable are counted
// against stock across all users at the given instant.
func (r *ConsumableRepo) CountClaimed(ctx context.Context, shoppableID uint64, now time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM consumables c WHERE c.shoppable_id = ? AND ` + claimedWhere
	var n int
	err := r.db.QueryRowContext(ctx, q, shoppableID, now.UTC()).Scan(&n)
	return n, err
}

// CountPurchasedBy returns how many units of the shoppable the
// requester has completed purchases for.
func (r *ConsumableRepo) CountPurchasedBy(ctx context.Context, shoppableID uint64, ident identity.Identity) (int, error) {
	where, args := ident.OwnershipFilter("c.")
	q := `SELECT COUNT(*) FROM consumables c WHERE c.shoppable_id = ? AND c.purchased_at IS NOT NULL AND ` + where
	var n int
	err := r.db.QueryRowContext(ctx, q, append([]interface{}{shoppableID}, args...)...).Scan(&n)
	return n, err
}

// CountUnpurchasedBy returns how many active (unexpired or
// never-expiring) cart holds the requester has on the shoppable.
func (r *ConsumableRepo) CountUnpurchasedBy(ctx context.Context, shoppableID uint64, ident identity.Identity, now time.Time) (int, error) {
	where, args := ident.OwnershipFilter("c.")
	q := `SELECT COUNT(*) FROM consumables c
          WHERE c.shoppable_id = ? AND c.purchased_at IS NULL
            AND (c.expires_at IS NULL OR c.expires_at > ?) AND ` + where
	var n int
	err := r.db.QueryRowContext(ctx, q, append([]interface{}{shoppableID, now.UTC()}, args...)...).Scan(&n)
	return n, err
}

// CreateHold claims one unit of the ticket for the requester by
// inserting an unpurchased consumable that expires at the given
// timestamp.  Stock and the per-user cap are re-checked inside a
// transaction with the shoppable row locked, so two concurrent
// requests cannot both take the last unit.  Returns ErrSoldOut when
// stock is exhausted and ErrMaxReached when the requester already
// holds or bought the maximum allowed amount.
func (r *ConsumableRepo) CreateHold(ctx context.Context, t model.Ticket, ident identity.Identity, expiresAt time.Time, now time.Time) (co *model.Consumable, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	// Lock the shoppable row so concurrent holds serialize here.
	var stock int
	if err = tx.QueryRowContext(ctx,
		`SELECT stock FROM shoppables WHERE id = ? FOR UPDATE`, t.ID,
	).Scan(&stock); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}

	var claimed int
	if err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM consumables c WHERE c.shoppable_id = ? AND `+claimedWhere,
		t.ID, now.UTC(),
	).Scan(&claimed); err != nil {
		return nil, err
	}
	if claimed >= stock {
		err = ErrSoldOut
		return nil, err
	}

	// The cap counts purchases plus active holds, so a full cart
	// blocks further additions even before checkout.
	where, args := ident.OwnershipFilter("c.")
	ownQ := `SELECT COUNT(*) FROM consumables c
             WHERE c.shoppable_id = ? AND ` + claimedWhere + ` AND ` + where
	var owned int
	if err = tx.QueryRowContext(ctx, ownQ, append([]interface{}{t.ID, now.UTC()}, args...)...).Scan(&owned); err != nil {
		return nil, err
	}
	if owned >= t.MaxAmountPerUser {
		err = ErrMaxReached
		return nil, err
	}

	memberID, sessionID := ownerValues(ident)
	res, err := tx.ExecContext(ctx,
		`INSERT INTO consumables (shoppable_id, member_id, session_id, expires_at) VALUES (?, ?, ?, ?)`,
		t.ID, memberID, sessionID, expiresAt.UTC(),
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	exp := expiresAt.UTC()
	out := model.Consumable{ID: uint64(id), ShoppableID: t.ID, ExpiresAt: &exp}
	if ident.IsMember() {
		m := ident.MemberID
		out.MemberID = &m
	} else {
		s := ident.SessionID
		out.SessionID = &s
	}
	return &out, nil
}

// DeleteHoldBy removes the requester's unpurchased consumables for the
// shoppable.  It returns ErrHoldNotFound when nothing was removed.
func (r *ConsumableRepo) DeleteHoldBy(ctx context.Context, shoppableID uint64, ident identity.Identity) error {
	where, args := ident.OwnershipFilter("c.")
	q := `DELETE c FROM consumables c
          WHERE c.shoppable_id = ? AND c.purchased_at IS NULL AND ` + where
	res, err := r.db.ExecContext(ctx, q, append([]interface{}{shoppableID}, args...)...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrHoldNotFound
	}
	return nil
}

// MarkPurchasedBy converts all of the requester's active cart holds
// into completed purchases at the given instant and returns them.  The
// expiry is cleared on purchase; purchased rows count against stock
// forever.  Returns ErrHoldNotFound when the cart is empty.
func (r *ConsumableRepo) MarkPurchasedBy(ctx context.Context, ident identity.Identity, now time.Time) (purchased []model.Consumable, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	where, args := ident.OwnershipFilter("c.")
	selQ := `SELECT c.id, c.shoppable_id, c.member_id, c.session_id, c.purchased_at, c.expires_at, c.created_at
             FROM consumables c
             WHERE c.purchased_at IS NULL
               AND (c.expires_at IS NULL OR c.expires_at > ?)
               AND ` + where + `
             FOR UPDATE`
	rows, err := tx.QueryContext(ctx, selQ, append([]interface{}{now.UTC()}, args...)...)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var c model.Consumable
		if scanErr := rows.Scan(&c.ID, &c.ShoppableID, &c.MemberID, &c.SessionID, &c.PurchasedAt, &c.ExpiresAt, &c.CreatedAt); scanErr != nil {
			rows.Close()
			err = scanErr
			return nil, err
		}
		purchased = append(purchased, c)
	}
	if err = rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	if err = rows.Close(); err != nil {
		return nil, err
	}
	if len(purchased) == 0 {
		err = ErrHoldNotFound
		return nil, err
	}

	updQ := `UPDATE consumables c
             SET c.purchased_at = ?, c.expires_at = NULL
             WHERE c.purchased_at IS NULL
               AND (c.expires_at IS NULL OR c.expires_at > ?)
               AND ` + where
	if _, err = tx.ExecContext(ctx, updQ, append([]interface{}{now.UTC(), now.UTC()}, args...)...); err != nil {
		return nil, err
	}

	ts := now.UTC()
	for i := range purchased {
		purchased[i].PurchasedAt = &ts
		purchased[i].ExpiresAt = nil
	}
	return purchased, nil
}
