package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studio-class-booking/internal/booking"
	"github.com/iliyamo/studio-class-booking/internal/handler"
	"github.com/iliyamo/studio-class-booking/internal/identity"
	"github.com/iliyamo/studio-class-booking/internal/model"
	"github.com/iliyamo/studio-class-booking/internal/store/filestore"
	"github.com/iliyamo/studio-class-booking/internal/utils"
)

const testSecret = "handler-test-secret"

type mapResolver map[uint64]model.UserIdentity

func (r mapResolver) ResolveIdentity(ctx context.Context, userID uint64) (model.UserIdentity, error) {
	ident, ok := r[userID]
	if !ok {
		return model.UserIdentity{}, identity.ErrUnknownIdentity
	}
	return ident, nil
}

type fixture struct {
	store   *filestore.Store
	handler *handler.BookingHandler
}

func newFixture(t *testing.T, sessions ...model.Session) fixture {
	t.Helper()
	st, err := filestore.Open(t.TempDir())
	require.NoError(t, err)
	for _, s := range sessions {
		require.NoError(t, st.AddSession(s))
	}
	users := mapResolver{
		1: {ID: 1, Email: "alice@example.com", Role: "MEMBER"},
		2: {ID: 2, Email: "bob@example.com", Role: "STAFF"},
	}
	gate := identity.NewGate(testSecret, users)
	svc := booking.NewService(gate, st, st, nil)
	return fixture{store: st, handler: handler.NewBookingHandler(svc, st)}
}

func bearerFor(t *testing.T, userID uint64) string {
	t.Helper()
	tok, err := utils.NewAccessToken(testSecret, userID, "MEMBER", 15)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

// postReserve drives the Reserve handler directly through an echo
// context, the same shape the router produces for
// POST /v1/sessions/:id/reservations.
func postReserve(t *testing.T, h *handler.BookingHandler, sessionID, authHeader string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/"+sessionID+"/reservations", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(sessionID)
	require.NoError(t, h.Reserve(c))
	return rec
}

func TestReserveSuccess(t *testing.T) {
	fx := newFixture(t, model.Session{ID: 1, CapacityTotal: 3, SlotsRemaining: 3})

	rec := postReserve(t, fx.handler, "1", bearerFor(t, 1))
	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Code      string `json:"code"`
		SessionID uint64 `json:"session_id"`
		Remaining uint32 `json:"remaining"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Code)
	assert.Equal(t, uint64(1), body.SessionID)
	assert.Equal(t, uint32(2), body.Remaining)
}

func TestReserveUnknownSession(t *testing.T) {
	fx := newFixture(t)
	rec := postReserve(t, fx.handler, "99", bearerFor(t, 1))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReserveInvalidSessionID(t *testing.T) {
	fx := newFixture(t)
	for _, id := range []string{"abc", "0", "-3"} {
		rec := postReserve(t, fx.handler, id, bearerFor(t, 1))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "id %q", id)
	}
}

func TestReserveBadTokenLeavesSlotsUntouched(t *testing.T) {
	fx := newFixture(t, model.Session{ID: 2, CapacityTotal: 5, SlotsRemaining: 5})

	rec := postReserve(t, fx.handler, "2", "Bearer aaaa.bbbb.cccc")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid token")

	s, err := fx.store.GetByID(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), s.SlotsRemaining)
}

func TestReserveMissingToken(t *testing.T) {
	fx := newFixture(t, model.Session{ID: 2, CapacityTotal: 5, SlotsRemaining: 5})
	rec := postReserve(t, fx.handler, "2", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing bearer token")
}

func TestReserveUnauthorizedBeatsFullSession(t *testing.T) {
	// Full session plus bad credential: the rejection is 401, not 409.
	fx := newFixture(t, model.Session{ID: 3, CapacityTotal: 2, SlotsRemaining: 0})
	rec := postReserve(t, fx.handler, "3", "Bearer aaaa.bbbb.cccc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReserveFullSession(t *testing.T) {
	fx := newFixture(t, model.Session{ID: 4, CapacityTotal: 1, SlotsRemaining: 1})

	first := postReserve(t, fx.handler, "4", bearerFor(t, 1))
	require.Equal(t, http.StatusCreated, first.Code)

	second := postReserve(t, fx.handler, "4", bearerFor(t, 2))
	require.Equal(t, http.StatusConflict, second.Code)
	assert.Contains(t, second.Body.String(), "session is full")
}

func TestSessionLedgerListsInsertionOrder(t *testing.T) {
	fx := newFixture(t, model.Session{ID: 5, CapacityTotal: 3, SlotsRemaining: 3})

	require.Equal(t, http.StatusCreated, postReserve(t, fx.handler, "5", bearerFor(t, 1)).Code)
	require.Equal(t, http.StatusCreated, postReserve(t, fx.handler, "5", bearerFor(t, 2)).Code)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/5/reservations", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("5")
	require.NoError(t, fx.handler.SessionLedger(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []model.Reservation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "alice@example.com", entries[0].Username)
	assert.Equal(t, "bob@example.com", entries[1].Username)
}

func TestSessionLedgerUnknownSession(t *testing.T) {
	fx := newFixture(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/9/reservations", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("9")
	require.NoError(t, fx.handler.SessionLedger(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
