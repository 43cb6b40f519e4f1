package filestore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studio-class-booking/internal/booking"
	"github.com/iliyamo/studio-class-booking/internal/model"
)

func openSeeded(t *testing.T, sessions ...model.Session) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	st, err := Open(dir)
	require.NoError(t, err)
	for _, s := range sessions {
		require.NoError(t, st.AddSession(s))
	}
	return st, dir
}

func TestTryReserveSlotNoOversell(t *testing.T) {
	const capacity, attempts = 4, 32
	st, _ := openSeeded(t, model.Session{ID: 1, CapacityTotal: capacity, SlotsRemaining: capacity})

	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := st.TryReserveSlot(context.Background(), 1)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, full int
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		require.ErrorIs(t, err, booking.ErrNoCapacity)
		full++
	}
	assert.Equal(t, capacity, ok)
	assert.Equal(t, attempts-capacity, full)

	s, err := st.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), s.SlotsRemaining)
}

func TestTryReserveSlotUnknownSession(t *testing.T) {
	st, _ := openSeeded(t)
	_, err := st.TryReserveSlot(context.Background(), 9)
	assert.ErrorIs(t, err, booking.ErrSessionNotFound)
}

func TestTryReserveSlotDoesNotBlockOtherSessions(t *testing.T) {
	// Two sessions drained concurrently; both land at exactly zero,
	// which fails if one session's critical section covered the other.
	st, _ := openSeeded(t,
		model.Session{ID: 1, CapacityTotal: 10, SlotsRemaining: 10},
		model.Session{ID: 2, CapacityTotal: 10, SlotsRemaining: 10},
	)

	var wg sync.WaitGroup
	for _, id := range []uint64{1, 2} {
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(id uint64) {
				defer wg.Done()
				_, err := st.TryReserveSlot(context.Background(), id)
				assert.NoError(t, err)
			}(id)
		}
	}
	wg.Wait()

	for _, id := range []uint64{1, 2} {
		s, err := st.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, uint32(0), s.SlotsRemaining, "session %d", id)
	}
}

func TestDecrementSurvivesReopen(t *testing.T) {
	st, dir := openSeeded(t, model.Session{ID: 3, CapacityTotal: 5, SlotsRemaining: 5})

	remaining, err := st.TryReserveSlot(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), remaining)

	reopened, err := Open(dir)
	require.NoError(t, err)
	s, err := reopened.GetByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), s.SlotsRemaining)
}

func TestLedgerAppendAndReadBack(t *testing.T) {
	st, dir := openSeeded(t)

	for i := 1; i <= 3; i++ {
		res := model.Reservation{
			Code:       fmt.Sprintf("code-%d", i),
			UserID:     uint64(i),
			Username:   fmt.Sprintf("u%d@example.com", i),
			SessionID:  1,
			ReservedAt: time.Now().UTC(),
		}
		require.NoError(t, st.Append(context.Background(), &res))
		assert.Equal(t, uint64(i), res.ID, "ids must be assigned in sequence")
	}
	res := model.Reservation{Code: "other", UserID: 9, SessionID: 2, ReservedAt: time.Now().UTC()}
	require.NoError(t, st.Append(context.Background(), &res))

	entries, err := st.AllForSession(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, e := range entries {
		assert.Equal(t, fmt.Sprintf("code-%d", i+1), e.Code, "insertion order")
	}

	// Re-reading without an intervening append yields the same sequence.
	again, err := st.AllForSession(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, entries, again)

	// Entries survive a restart.
	reopened, err := Open(dir)
	require.NoError(t, err)
	after, err := reopened.AllForSession(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, entries, after)
	mine, err := reopened.AllForUser(context.Background(), 9)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "other", mine[0].Code)
}

func TestListOrdersByStartTime(t *testing.T) {
	base := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	st, _ := openSeeded(t,
		model.Session{ID: 1, ActivityID: 1, InstructorID: 1, StartsAt: base.Add(2 * time.Hour), CapacityTotal: 5, SlotsRemaining: 5},
		model.Session{ID: 2, ActivityID: 1, InstructorID: 1, StartsAt: base, CapacityTotal: 5, SlotsRemaining: 5},
	)
	require.NoError(t, st.SetCatalog(
		[]model.Activity{{ID: 1, Name: "Yoga"}},
		[]model.Instructor{{ID: 1, Name: "Dana"}},
	))

	list, err := st.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, uint64(2), list[0].ID)
	assert.Equal(t, uint64(1), list[1].ID)
	assert.Equal(t, "Yoga", list[0].Activity)
	assert.Equal(t, "Dana", list[0].Instructor)
}

func TestGetDetailUnknownSession(t *testing.T) {
	st, _ := openSeeded(t)
	_, err := st.GetDetail(context.Background(), 1)
	assert.ErrorIs(t, err, booking.ErrSessionNotFound)
}
