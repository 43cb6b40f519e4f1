package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-class-booking/internal/booking"
	"github.com/iliyamo/studio-class-booking/internal/middleware"
	"github.com/iliyamo/studio-class-booking/internal/model"
)

// UserLedger is the read side of the ledger keyed by user, for the
// "my reservations" endpoint.
type UserLedger interface {
	AllForUser(ctx context.Context, userID uint64) ([]model.Reservation, error)
}

// BookingHandler exposes the reservation path over HTTP.  The reserve
// endpoint hands the raw Authorization header to the booking service
// rather than sitting behind BearerAuth: identity must be verified by
// the service itself, before any session state is touched, and an
// invalid credential against a full session must come back as 401,
// never 409.
type BookingHandler struct {
	Svc        *booking.Service
	UserLedger UserLedger
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(svc *booking.Service, userLedger UserLedger) *BookingHandler {
	if svc == nil || userLedger == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Svc: svc, UserLedger: userLedger}
}

type reserveResp struct {
	Code       string    `json:"code"`
	SessionID  uint64    `json:"session_id"`
	Remaining  uint32    `json:"remaining"`
	ReservedAt time.Time `json:"reserved_at"`
}

// Reserve handles POST /v1/sessions/:id/reservations.  Outcome to
// status mapping is fixed and stable:
//
//	Success        → 201 with the reservation code and remaining slots
//	Unauthorized   → 401 (reason from the identity gate)
//	SessionNotFound→ 404
//	Full           → 409 (not transient; clients should not retry)
//	PartialFailure → 500 (slot consumed, record pending reconciliation;
//	                 the caller is not told the reservation succeeded)
func (h *BookingHandler) Reserve(c echo.Context) error {
	sessionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || sessionID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}

	cred := c.Request().Header.Get("Authorization")
	res := h.Svc.Reserve(c.Request().Context(), cred, sessionID)

	switch res.Outcome {
	case booking.OutcomeSuccess:
		return c.JSON(http.StatusCreated, reserveResp{
			Code:       res.Reservation.Code,
			SessionID:  sessionID,
			Remaining:  res.Remaining,
			ReservedAt: res.Reservation.ReservedAt,
		})
	case booking.OutcomeUnauthorized:
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": middleware.RejectReason(res.Err)})
	case booking.OutcomeSessionNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
	case booking.OutcomeFull:
		return c.JSON(http.StatusConflict, echo.Map{"error": "session is full"})
	case booking.OutcomePartialFailure:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reservation could not be confirmed"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
}

// SessionLedger handles GET /v1/sessions/:id/reservations.  STAFF
// only (enforced by route middleware); returns the append-only ledger
// for one session in insertion order, the view operators reconcile
// against the capacity counter.
func (h *BookingHandler) SessionLedger(c echo.Context) error {
	sessionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || sessionID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	entries, err := h.Svc.LedgerFor(c.Request().Context(), sessionID)
	if err != nil {
		if errors.Is(err, booking.ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if entries == nil {
		entries = []model.Reservation{}
	}
	return c.JSON(http.StatusOK, entries)
}

// MyReservations handles GET /v1/reservations: the authenticated
// user's own ledger entries.
func (h *BookingHandler) MyReservations(c echo.Context) error {
	ident, ok := middleware.CurrentIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	entries, err := h.UserLedger.AllForUser(c.Request().Context(), ident.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if entries == nil {
		entries = []model.Reservation{}
	}
	return c.JSON(http.StatusOK, entries)
}
