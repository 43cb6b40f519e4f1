package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/studio-class-booking/internal/booking"
	"github.com/iliyamo/studio-class-booking/internal/model"
)

// ReservationRepo persists the reservation ledger and implements the
// booking.Ledger contract.  Rows are append-only: this repository has
// no update or delete operations, and the auto-increment id doubles
// as the insertion order AllForSession reads back.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// Append inserts one committed reservation.  Any failure is wrapped
// in booking.ErrLedgerWrite so the caller can recognize the
// decremented-but-unrecorded state it leaves behind.  The generated
// id is populated on the passed record.
func (r *ReservationRepo) Append(ctx context.Context, res *model.Reservation) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO reservations (code, user_id, username, session_id, reserved_at)
		 VALUES (?, ?, ?, ?, ?)`,
		res.Code, res.UserID, res.Username, res.SessionID, res.ReservedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("%w: insert reservation: %v", booking.ErrLedgerWrite, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: last insert id: %v", booking.ErrLedgerWrite, err)
	}
	res.ID = uint64(id)
	return nil
}

// AllForSession returns every reservation for a session in insertion
// order.  Absent an intervening append, repeated calls return
// identical sequences.
func (r *ReservationRepo) AllForSession(ctx context.Context, sessionID uint64) ([]model.Reservation, error) {
	return r.list(ctx,
		`SELECT id, code, user_id, username, session_id, reserved_at
		 FROM reservations WHERE session_id = ? ORDER BY id ASC`,
		sessionID)
}

// AllForUser returns every reservation made by a user in insertion order.
func (r *ReservationRepo) AllForUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	return r.list(ctx,
		`SELECT id, code, user_id, username, session_id, reserved_at
		 FROM reservations WHERE user_id = ? ORDER BY id ASC`,
		userID)
}

func (r *ReservationRepo) list(ctx context.Context, query string, arg uint64) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	var out []model.Reservation
	for rows.Next() {
		var res model.Reservation
		if err := rows.Scan(&res.ID, &res.Code, &res.UserID, &res.Username,
			&res.SessionID, &res.ReservedAt); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
