package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/studio-class-booking/internal/booking"
	"github.com/iliyamo/studio-class-booking/internal/model"
)

// SessionRepo provides access to the sessions table and implements
// the booking.Catalog contract.  The guarded decrement relies on the
// database's row lock as the per-session critical section, so
// concurrent reservations for different sessions never block each
// other while reservations for the same session are fully serialized.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo returns a SessionRepo bound to the given database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

// GetByID returns a single session or booking.ErrSessionNotFound.
func (r *SessionRepo) GetByID(ctx context.Context, id uint64) (model.Session, error) {
	var s model.Session
	err := r.db.QueryRowContext(ctx,
		`SELECT id, activity_id, instructor_id, starts_at, duration_min,
		        capacity_total, slots_remaining, created_at, updated_at
		 FROM sessions WHERE id = ?`,
		id,
	).Scan(&s.ID, &s.ActivityID, &s.InstructorID, &s.StartsAt, &s.DurationMin,
		&s.CapacityTotal, &s.SlotsRemaining, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Session{}, booking.ErrSessionNotFound
		}
		return model.Session{}, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

// TryReserveSlot performs the atomic check-and-decrement for one
// session.  SELECT ... FOR UPDATE takes an exclusive row lock inside
// the transaction, so a concurrent attempt on the same session blocks
// until this one commits or rolls back; the naive read-then-write
// race that oversells the last slot cannot occur.  The commit makes
// the new slots_remaining durable before the function returns.
func (r *SessionRepo) TryReserveSlot(ctx context.Context, id uint64) (uint32, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin reserve tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var remaining uint32
	err = tx.QueryRowContext(ctx,
		`SELECT slots_remaining FROM sessions WHERE id = ? FOR UPDATE`,
		id,
	).Scan(&remaining)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, booking.ErrSessionNotFound
		}
		return 0, fmt.Errorf("lock session row: %w", err)
	}
	if remaining == 0 {
		return 0, booking.ErrNoCapacity
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE sessions SET slots_remaining = slots_remaining - 1 WHERE id = ?`,
		id,
	); err != nil {
		return 0, fmt.Errorf("decrement slots: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit reserve tx: %w", err)
	}
	committed = true
	return remaining - 1, nil
}

// List returns all sessions with activity and instructor names joined
// in, ordered by start time.  Used by the public browse endpoints.
func (r *SessionRepo) List(ctx context.Context) ([]model.SessionDetail, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.id, a.name, i.name, s.starts_at, s.duration_min,
		        s.capacity_total, s.slots_remaining
		 FROM sessions s
		 JOIN activities a ON a.id = s.activity_id
		 JOIN instructors i ON i.id = s.instructor_id
		 ORDER BY s.starts_at ASC, s.id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []model.SessionDetail
	for rows.Next() {
		var d model.SessionDetail
		if err := rows.Scan(&d.ID, &d.Activity, &d.Instructor, &d.StartsAt,
			&d.DurationMin, &d.CapacityTotal, &d.SlotsRemaining); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetDetail returns the browse view of a single session or
// booking.ErrSessionNotFound.
func (r *SessionRepo) GetDetail(ctx context.Context, id uint64) (model.SessionDetail, error) {
	var d model.SessionDetail
	err := r.db.QueryRowContext(ctx,
		`SELECT s.id, a.name, i.name, s.starts_at, s.duration_min,
		        s.capacity_total, s.slots_remaining
		 FROM sessions s
		 JOIN activities a ON a.id = s.activity_id
		 JOIN instructors i ON i.id = s.instructor_id
		 WHERE s.id = ?`,
		id,
	).Scan(&d.ID, &d.Activity, &d.Instructor, &d.StartsAt,
		&d.DurationMin, &d.CapacityTotal, &d.SlotsRemaining)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.SessionDetail{}, booking.ErrSessionNotFound
		}
		return model.SessionDetail{}, fmt.Errorf("get session detail: %w", err)
	}
	return d, nil
}
