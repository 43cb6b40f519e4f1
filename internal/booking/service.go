package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/studio-class-booking/internal/model"
)

// Gate resolves an opaque bearer credential into a trusted user
// identity.  Implementations must never proceed with an undefined
// identity: every failure is an error.
type Gate interface {
	Authenticate(ctx context.Context, credential string) (model.UserIdentity, error)
}

// Catalog is the session store.  TryReserveSlot is the single
// serialization point for a session's capacity: the check-then-
// decrement must be indivisible per session id, must not block
// unrelated sessions, and must be durable before it returns.
type Catalog interface {
	GetByID(ctx context.Context, id uint64) (model.Session, error)
	TryReserveSlot(ctx context.Context, id uint64) (remaining uint32, err error)
}

// Ledger is the append-only record of committed reservations.
// AllForSession returns entries in insertion order and re-reading
// without an intervening append yields the same sequence.
type Ledger interface {
	Append(ctx context.Context, res *model.Reservation) error
	AllForSession(ctx context.Context, sessionID uint64) ([]model.Reservation, error)
}

// Events receives best-effort notifications about reservation
// outcomes.  Implementations must not block the reservation path for
// long and must tolerate being called concurrently.  A nil Events is
// allowed and disables publishing.
type Events interface {
	ReservationConfirmed(ctx context.Context, res model.Reservation, remaining uint32)
	ReconcileNeeded(ctx context.Context, res model.Reservation, remaining uint32)
}

// Outcome is the terminal state of one Reserve call.
type Outcome int

const (
	// OutcomeSuccess: slot decremented and ledger entry durable.
	OutcomeSuccess Outcome = iota
	// OutcomeUnauthorized: the credential did not resolve to a known user.
	OutcomeUnauthorized
	// OutcomeSessionNotFound: no session with the given id exists.
	OutcomeSessionNotFound
	// OutcomeFull: the session had no remaining slots.
	OutcomeFull
	// OutcomePartialFailure: slot decremented but the ledger append
	// failed; the decrement stands and must be reconciled out of band.
	OutcomePartialFailure
	// OutcomeInternal: the store failed before any state changed
	// (lost DB connection and the like).  No side effects occurred.
	OutcomeInternal
)

// Result reports what a Reserve call did.  Remaining and Reservation
// are meaningful only for OutcomeSuccess and OutcomePartialFailure;
// Err carries the sentinel (or gate error) for the failed outcomes.
type Result struct {
	Outcome     Outcome
	Remaining   uint32
	Reservation model.Reservation
	Err         error
}

// Service orchestrates the reservation path.  It holds no mutable
// state of its own; all serialization lives behind the Catalog and
// all durability behind the Catalog and Ledger.
type Service struct {
	gate    Gate
	catalog Catalog
	ledger  Ledger
	events  Events // may be nil
}

// NewService wires the reservation service.  gate, catalog and ledger
// must be non-nil; events may be nil to disable publishing.
func NewService(gate Gate, catalog Catalog, ledger Ledger, events Events) *Service {
	if gate == nil || catalog == nil || ledger == nil {
		panic("nil dependency passed to booking.NewService")
	}
	return &Service{gate: gate, catalog: catalog, ledger: ledger, events: events}
}

// Reserve runs the fixed state machine for one reservation attempt:
//
//  1. authenticate the credential – failure aborts before any state
//     is touched,
//  2. look up the session – ErrSessionNotFound aborts,
//  3. atomically check-and-decrement the session's capacity – the
//     catalog serializes concurrent callers per session,
//  4. append the ledger entry as the immediately next durable action.
//
// Exactly one decrement and at most one append happen per successful
// call.  There are no internal retries; every outcome is terminal.
func (s *Service) Reserve(ctx context.Context, credential string, sessionID uint64) Result {
	ident, err := s.gate.Authenticate(ctx, credential)
	if err != nil {
		return Result{Outcome: OutcomeUnauthorized, Err: err}
	}

	if _, err := s.catalog.GetByID(ctx, sessionID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return Result{Outcome: OutcomeSessionNotFound, Err: err}
		}
		return Result{Outcome: OutcomeInternal, Err: fmt.Errorf("load session: %w", err)}
	}

	remaining, err := s.catalog.TryReserveSlot(ctx, sessionID)
	switch {
	case err == nil:
		// fall through to the ledger append
	case errors.Is(err, ErrNoCapacity):
		return Result{Outcome: OutcomeFull, Err: err}
	case errors.Is(err, ErrSessionNotFound):
		// The session vanished between lookup and decrement; sessions
		// are never deleted by this service but the catalog contract
		// allows it, so report not-found rather than full.
		return Result{Outcome: OutcomeSessionNotFound, Err: err}
	default:
		return Result{Outcome: OutcomeInternal, Err: fmt.Errorf("reserve slot: %w", err)}
	}

	res := model.Reservation{
		Code:       uuid.New().String(),
		UserID:     ident.ID,
		Username:   ident.Email,
		SessionID:  sessionID,
		ReservedAt: time.Now().UTC(),
	}
	if err := s.ledger.Append(ctx, &res); err != nil {
		// Capacity is consumed without its paired record.  Surface the
		// gap loudly and hand it to the reconcile queue; the caller is
		// NOT told the reservation succeeded.
		log.Printf("booking: LEDGER WRITE FAILED session=%d user=%d: %v", sessionID, ident.ID, err)
		if s.events != nil {
			s.events.ReconcileNeeded(ctx, res, remaining)
		}
		return Result{Outcome: OutcomePartialFailure, Remaining: remaining, Reservation: res, Err: fmt.Errorf("%w: %v", ErrLedgerWrite, err)}
	}

	if s.events != nil {
		s.events.ReservationConfirmed(ctx, res, remaining)
	}
	return Result{Outcome: OutcomeSuccess, Remaining: remaining, Reservation: res}
}

// LedgerFor returns the committed reservations for a session in
// insertion order, after verifying the session exists.
func (s *Service) LedgerFor(ctx context.Context, sessionID uint64) ([]model.Reservation, error) {
	if _, err := s.catalog.GetByID(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.ledger.AllForSession(ctx, sessionID)
}
