// Package filestore is a file-backed implementation of the booking
// catalog and ledger used in dev mode and in tests.  Each session
// lives in its own JSON snapshot file so the per-session critical
// section never touches another session's state, and the ledger is a
// single append-only JSONL file guarded by its own lock, independent
// of every session lock.  Writes are synced before a success is
// reported, so a crash immediately after a committed reservation does
// not revert it on restart.
package filestore

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/iliyamo/studio-class-booking/internal/booking"
	"github.com/iliyamo/studio-class-booking/internal/model"
)

const (
	catalogFile = "catalog.json"
	ledgerFile  = "reservations.jsonl"
	sessionsDir = "sessions"
)

// catalogDoc is the on-disk shape of the read-only catalog metadata.
type catalogDoc struct {
	Activities  []model.Activity   `json:"activities"`
	Instructors []model.Instructor `json:"instructors"`
}

// sessionState pairs one session's record with its own mutex.  The
// mutex scopes the check-then-decrement-then-persist critical section
// for exactly this session.
type sessionState struct {
	mu sync.Mutex
	s  model.Session
}

// Store implements booking.Catalog and booking.Ledger on top of a
// data directory.  The session map itself is immutable after Open
// (sessions are provisioned out of band), so lookups need no lock;
// only each session's slots and the ledger tail mutate.
type Store struct {
	dir         string
	activities  []model.Activity
	instructors []model.Instructor
	sessions    map[uint64]*sessionState

	ledgerMu sync.Mutex
	entries  []model.Reservation
	nextID   uint64
}

// Open loads the catalog, session snapshots and ledger from dir,
// creating the layout when it does not exist yet.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, sessionsDir), 0o755); err != nil {
		return nil, fmt.Errorf("filestore: mkdir: %w", err)
	}
	st := &Store{dir: dir, sessions: make(map[uint64]*sessionState)}

	if raw, err := os.ReadFile(filepath.Join(dir, catalogFile)); err == nil {
		var doc catalogDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("filestore: parse %s: %w", catalogFile, err)
		}
		st.activities = doc.Activities
		st.instructors = doc.Instructors
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("filestore: read %s: %w", catalogFile, err)
	}

	names, err := os.ReadDir(filepath.Join(dir, sessionsDir))
	if err != nil {
		return nil, fmt.Errorf("filestore: read sessions dir: %w", err)
	}
	for _, e := range names {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, sessionsDir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("filestore: read session %s: %w", e.Name(), err)
		}
		var s model.Session
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("filestore: parse session %s: %w", e.Name(), err)
		}
		st.sessions[s.ID] = &sessionState{s: s}
	}

	if err := st.loadLedger(); err != nil {
		return nil, err
	}
	return st, nil
}

func (st *Store) loadLedger() error {
	f, err := os.Open(filepath.Join(st.dir, ledgerFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("filestore: open ledger: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var res model.Reservation
		if err := json.Unmarshal([]byte(line), &res); err != nil {
			return fmt.Errorf("filestore: parse ledger line: %w", err)
		}
		st.entries = append(st.entries, res)
		if res.ID > st.nextID {
			st.nextID = res.ID
		}
	}
	return sc.Err()
}

// AddSession writes a session snapshot and registers it.  Only used
// for seeding (dev bootstrap and tests); sessions are never added
// while reservations are running.
func (st *Store) AddSession(s model.Session) error {
	if err := st.persistSession(&s); err != nil {
		return err
	}
	st.sessions[s.ID] = &sessionState{s: s}
	return nil
}

// SetCatalog stores the browse metadata and persists it.
func (st *Store) SetCatalog(activities []model.Activity, instructors []model.Instructor) error {
	st.activities = activities
	st.instructors = instructors
	doc := catalogDoc{Activities: activities, Instructors: instructors}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("filestore: marshal catalog: %w", err)
	}
	return atomicWrite(filepath.Join(st.dir, catalogFile), raw)
}

// GetByID implements booking.Catalog.
func (st *Store) GetByID(ctx context.Context, id uint64) (model.Session, error) {
	state, ok := st.sessions[id]
	if !ok {
		return model.Session{}, booking.ErrSessionNotFound
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.s, nil
}

// TryReserveSlot implements booking.Catalog.  The session's own mutex
// makes the check-then-decrement indivisible; unrelated sessions hold
// unrelated mutexes and proceed in parallel.  The decremented
// snapshot is written and synced before Committed is returned; when
// the write fails the decrement is rolled back so no capacity is lost
// to a non-durable transition.
func (st *Store) TryReserveSlot(ctx context.Context, id uint64) (uint32, error) {
	state, ok := st.sessions[id]
	if !ok {
		return 0, booking.ErrSessionNotFound
	}
	state.mu.Lock()
	defer state.mu.Unlock()

	if state.s.SlotsRemaining == 0 {
		return 0, booking.ErrNoCapacity
	}
	state.s.SlotsRemaining--
	if err := st.persistSession(&state.s); err != nil {
		state.s.SlotsRemaining++
		return 0, fmt.Errorf("filestore: persist session %d: %w", id, err)
	}
	return state.s.SlotsRemaining, nil
}

func (st *Store) persistSession(s *model.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	path := filepath.Join(st.dir, sessionsDir, strconv.FormatUint(s.ID, 10)+".json")
	return atomicWrite(path, raw)
}

// Append implements booking.Ledger.  The ledger file is opened with
// O_APPEND and guarded by its own mutex; it is never held together
// with a session mutex.
func (st *Store) Append(ctx context.Context, res *model.Reservation) error {
	st.ledgerMu.Lock()
	defer st.ledgerMu.Unlock()

	res.ID = st.nextID + 1
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", booking.ErrLedgerWrite, err)
	}
	f, err := os.OpenFile(filepath.Join(st.dir, ledgerFile),
		os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open: %v", booking.ErrLedgerWrite, err)
	}
	defer f.Close()
	if _, err := f.Write(append(raw, '\n')); err != nil {
		return fmt.Errorf("%w: write: %v", booking.ErrLedgerWrite, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("%w: sync: %v", booking.ErrLedgerWrite, err)
	}
	st.nextID = res.ID
	st.entries = append(st.entries, *res)
	return nil
}

// AllForSession implements booking.Ledger.
func (st *Store) AllForSession(ctx context.Context, sessionID uint64) ([]model.Reservation, error) {
	st.ledgerMu.Lock()
	defer st.ledgerMu.Unlock()
	var out []model.Reservation
	for _, res := range st.entries {
		if res.SessionID == sessionID {
			out = append(out, res)
		}
	}
	return out, nil
}

// AllForUser returns the reservations made by one user, in insertion order.
func (st *Store) AllForUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	st.ledgerMu.Lock()
	defer st.ledgerMu.Unlock()
	var out []model.Reservation
	for _, res := range st.entries {
		if res.UserID == userID {
			out = append(out, res)
		}
	}
	return out, nil
}

// ListActivities serves the browse endpoints.
func (st *Store) ListActivities(ctx context.Context) ([]model.Activity, error) {
	return st.activities, nil
}

// ListInstructors serves the browse endpoints.
func (st *Store) ListInstructors(ctx context.Context) ([]model.Instructor, error) {
	return st.instructors, nil
}

// List returns the browse view of every session ordered by start time.
func (st *Store) List(ctx context.Context) ([]model.SessionDetail, error) {
	out := make([]model.SessionDetail, 0, len(st.sessions))
	for _, state := range st.sessions {
		state.mu.Lock()
		s := state.s
		state.mu.Unlock()
		out = append(out, st.detail(s))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartsAt.Before(out[j].StartsAt)
	})
	return out, nil
}

// GetDetail returns the browse view of one session.
func (st *Store) GetDetail(ctx context.Context, id uint64) (model.SessionDetail, error) {
	s, err := st.GetByID(ctx, id)
	if err != nil {
		return model.SessionDetail{}, err
	}
	return st.detail(s), nil
}

func (st *Store) detail(s model.Session) model.SessionDetail {
	d := model.SessionDetail{
		ID:             s.ID,
		StartsAt:       s.StartsAt,
		DurationMin:    s.DurationMin,
		CapacityTotal:  s.CapacityTotal,
		SlotsRemaining: s.SlotsRemaining,
	}
	for _, a := range st.activities {
		if a.ID == s.ActivityID {
			d.Activity = a.Name
		}
	}
	for _, i := range st.instructors {
		if i.ID == s.InstructorID {
			d.Instructor = i.Name
		}
	}
	return d
}

// atomicWrite lands data at path via temp file + rename so readers
// never observe a torn snapshot, syncing before the rename.
func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	return os.Rename(name, path)
}
