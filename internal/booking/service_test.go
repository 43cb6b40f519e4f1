package booking_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studio-class-booking/internal/booking"
	"github.com/iliyamo/studio-class-booking/internal/identity"
	"github.com/iliyamo/studio-class-booking/internal/model"
	"github.com/iliyamo/studio-class-booking/internal/store/filestore"
)

// fakeGate resolves a fixed credential set; anything else is rejected
// the way the real gate rejects an undecodable token.
type fakeGate struct {
	users map[string]model.UserIdentity
}

func (g *fakeGate) Authenticate(ctx context.Context, credential string) (model.UserIdentity, error) {
	if credential == "" {
		return model.UserIdentity{}, identity.ErrMissingCredential
	}
	ident, ok := g.users[credential]
	if !ok {
		return model.UserIdentity{}, identity.ErrUndecodableCredential
	}
	return ident, nil
}

// failLedger fails every append, simulating an unavailable durability
// layer, and records how often it was asked.
type failLedger struct {
	mu    sync.Mutex
	calls int
}

func (l *failLedger) Append(ctx context.Context, res *model.Reservation) error {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return fmt.Errorf("%w: disk gone", booking.ErrLedgerWrite)
}

func (l *failLedger) AllForSession(ctx context.Context, sessionID uint64) ([]model.Reservation, error) {
	return nil, nil
}

// recordingEvents captures event notifications.
type recordingEvents struct {
	mu        sync.Mutex
	confirmed []model.Reservation
	reconcile []model.Reservation
}

func (e *recordingEvents) ReservationConfirmed(ctx context.Context, res model.Reservation, remaining uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.confirmed = append(e.confirmed, res)
}

func (e *recordingEvents) ReconcileNeeded(ctx context.Context, res model.Reservation, remaining uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reconcile = append(e.reconcile, res)
}

func newStore(t *testing.T, sessions ...model.Session) *filestore.Store {
	t.Helper()
	st, err := filestore.Open(t.TempDir())
	require.NoError(t, err)
	for _, s := range sessions {
		require.NoError(t, st.AddSession(s))
	}
	return st
}

func twoUserGate() *fakeGate {
	return &fakeGate{users: map[string]model.UserIdentity{
		"token-alice": {ID: 1, Email: "alice@example.com", Role: "MEMBER"},
		"token-bob":   {ID: 2, Email: "bob@example.com", Role: "MEMBER"},
	}}
}

func TestReserveLastSlotConcurrently(t *testing.T) {
	// Session with a single slot, two concurrent valid callers:
	// exactly one Success(remaining=0) and one Full.
	st := newStore(t, model.Session{ID: 1, CapacityTotal: 1, SlotsRemaining: 1})
	svc := booking.NewService(twoUserGate(), st, st, nil)

	results := make(chan booking.Result, 2)
	var wg sync.WaitGroup
	for _, cred := range []string{"token-alice", "token-bob"} {
		wg.Add(1)
		go func(cred string) {
			defer wg.Done()
			results <- svc.Reserve(context.Background(), cred, 1)
		}(cred)
	}
	wg.Wait()
	close(results)

	var success, full int
	for res := range results {
		switch res.Outcome {
		case booking.OutcomeSuccess:
			success++
			assert.Equal(t, uint32(0), res.Remaining)
		case booking.OutcomeFull:
			full++
		default:
			t.Fatalf("unexpected outcome %v (err=%v)", res.Outcome, res.Err)
		}
	}
	assert.Equal(t, 1, success)
	assert.Equal(t, 1, full)

	s, err := st.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), s.SlotsRemaining)

	entries, err := st.AllForSession(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestNoOverselling(t *testing.T) {
	// N > C concurrent attempts: exactly C commits, N-C full, final
	// remaining zero, and the ledger matches capacity consumed.
	const capacity, attempts = 5, 40
	st := newStore(t, model.Session{ID: 7, CapacityTotal: capacity, SlotsRemaining: capacity})

	gate := &fakeGate{users: make(map[string]model.UserIdentity)}
	creds := make([]string, attempts)
	for i := range creds {
		creds[i] = fmt.Sprintf("token-%d", i)
		gate.users[creds[i]] = model.UserIdentity{
			ID:    uint64(i + 1),
			Email: fmt.Sprintf("u%d@example.com", i+1),
			Role:  "MEMBER",
		}
	}
	svc := booking.NewService(gate, st, st, nil)

	results := make(chan booking.Outcome, attempts)
	var wg sync.WaitGroup
	for _, cred := range creds {
		wg.Add(1)
		go func(cred string) {
			defer wg.Done()
			results <- svc.Reserve(context.Background(), cred, 7).Outcome
		}(cred)
	}
	wg.Wait()
	close(results)

	var success, full int
	for out := range results {
		switch out {
		case booking.OutcomeSuccess:
			success++
		case booking.OutcomeFull:
			full++
		default:
			t.Fatalf("unexpected outcome %v", out)
		}
	}
	assert.Equal(t, capacity, success)
	assert.Equal(t, attempts-capacity, full)

	s, err := st.GetByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), s.SlotsRemaining)

	entries, err := st.AllForSession(context.Background(), 7)
	require.NoError(t, err)
	assert.Len(t, entries, capacity,
		"ledger entries must equal capacity consumed")
}

func TestReserveUnknownSession(t *testing.T) {
	st := newStore(t)
	svc := booking.NewService(twoUserGate(), st, st, nil)

	res := svc.Reserve(context.Background(), "token-alice", 99)
	assert.Equal(t, booking.OutcomeSessionNotFound, res.Outcome)
	assert.ErrorIs(t, res.Err, booking.ErrSessionNotFound)
}

func TestUnauthorizedPrecedesCapacityCheck(t *testing.T) {
	// An invalid credential against a FULL session returns
	// Unauthorized, not Full, and touches no state.
	st := newStore(t, model.Session{ID: 3, CapacityTotal: 2, SlotsRemaining: 0})
	svc := booking.NewService(twoUserGate(), st, st, nil)

	res := svc.Reserve(context.Background(), "not-a-real-token", 3)
	assert.Equal(t, booking.OutcomeUnauthorized, res.Outcome)
	assert.ErrorIs(t, res.Err, identity.ErrUndecodableCredential)

	entries, err := st.AllForSession(context.Background(), 3)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUnauthorizedAgainstOpenSessionLeavesSlots(t *testing.T) {
	st := newStore(t, model.Session{ID: 4, CapacityTotal: 5, SlotsRemaining: 5})
	svc := booking.NewService(twoUserGate(), st, st, nil)

	res := svc.Reserve(context.Background(), "not-a-real-token", 4)
	assert.Equal(t, booking.OutcomeUnauthorized, res.Outcome)

	s, err := st.GetByID(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), s.SlotsRemaining, "slots must be untouched")
}

func TestSameUserReservesTwice(t *testing.T) {
	// No one-reservation-per-user rule: two sequential calls by the
	// same user produce two distinct ledger entries.
	st := newStore(t, model.Session{ID: 5, CapacityTotal: 3, SlotsRemaining: 3})
	svc := booking.NewService(twoUserGate(), st, st, nil)

	first := svc.Reserve(context.Background(), "token-alice", 5)
	second := svc.Reserve(context.Background(), "token-alice", 5)
	require.Equal(t, booking.OutcomeSuccess, first.Outcome)
	require.Equal(t, booking.OutcomeSuccess, second.Outcome)
	assert.Equal(t, uint32(2), first.Remaining)
	assert.Equal(t, uint32(1), second.Remaining)
	assert.NotEqual(t, first.Reservation.Code, second.Reservation.Code)

	entries, err := st.AllForSession(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, entries[0].Username, entries[1].Username)
}

func TestLedgerCapacityConsistency(t *testing.T) {
	st := newStore(t,
		model.Session{ID: 1, CapacityTotal: 3, SlotsRemaining: 3},
		model.Session{ID: 2, CapacityTotal: 2, SlotsRemaining: 2},
	)
	svc := booking.NewService(twoUserGate(), st, st, nil)

	for _, call := range []struct {
		cred    string
		session uint64
	}{
		{"token-alice", 1},
		{"token-bob", 1},
		{"token-alice", 2},
	} {
		res := svc.Reserve(context.Background(), call.cred, call.session)
		require.Equal(t, booking.OutcomeSuccess, res.Outcome)
	}

	for _, id := range []uint64{1, 2} {
		s, err := st.GetByID(context.Background(), id)
		require.NoError(t, err)
		entries, err := st.AllForSession(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, int(s.CapacityTotal-s.SlotsRemaining), len(entries),
			"session %d: ledger count must equal capacity consumed", id)
	}
}

func TestPartialFailureOnLedgerWrite(t *testing.T) {
	// A failing ledger yields PartialFailure: the decrement stands,
	// the caller is not told success, and the reconcile event fires.
	st := newStore(t, model.Session{ID: 6, CapacityTotal: 2, SlotsRemaining: 2})
	ledger := &failLedger{}
	events := &recordingEvents{}
	svc := booking.NewService(twoUserGate(), st, ledger, events)

	res := svc.Reserve(context.Background(), "token-alice", 6)
	assert.Equal(t, booking.OutcomePartialFailure, res.Outcome)
	assert.ErrorIs(t, res.Err, booking.ErrLedgerWrite)
	assert.Equal(t, 1, ledger.calls)

	s, err := st.GetByID(context.Background(), 6)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), s.SlotsRemaining, "decrement must stand")

	assert.Len(t, events.reconcile, 1)
	assert.Empty(t, events.confirmed)
	assert.Equal(t, uint64(6), events.reconcile[0].SessionID)
}

func TestSuccessPublishesConfirmation(t *testing.T) {
	st := newStore(t, model.Session{ID: 8, CapacityTotal: 1, SlotsRemaining: 1})
	events := &recordingEvents{}
	svc := booking.NewService(twoUserGate(), st, st, events)

	res := svc.Reserve(context.Background(), "token-bob", 8)
	require.Equal(t, booking.OutcomeSuccess, res.Outcome)
	require.Len(t, events.confirmed, 1)
	assert.Equal(t, res.Reservation.Code, events.confirmed[0].Code)
	assert.Empty(t, events.reconcile)
}

func TestLedgerForUnknownSession(t *testing.T) {
	st := newStore(t)
	svc := booking.NewService(twoUserGate(), st, st, nil)

	_, err := svc.LedgerFor(context.Background(), 42)
	assert.True(t, errors.Is(err, booking.ErrSessionNotFound))
}
