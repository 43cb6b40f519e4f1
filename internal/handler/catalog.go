package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-class-booking/internal/booking"
	"github.com/iliyamo/studio-class-booking/internal/model"
)

// SessionBrowser is the read-only view of the session catalog the
// browse endpoints need.  Both the MySQL session repository and the
// file store satisfy it.
type SessionBrowser interface {
	List(ctx context.Context) ([]model.SessionDetail, error)
	GetDetail(ctx context.Context, id uint64) (model.SessionDetail, error)
}

// MetaBrowser lists the activities and instructors shown alongside
// sessions.
type MetaBrowser interface {
	ListActivities(ctx context.Context) ([]model.Activity, error)
	ListInstructors(ctx context.Context) ([]model.Instructor, error)
}

// CatalogHandler serves the unauthenticated browse endpoints.  None
// of them mutate state; capacity transitions happen only through the
// reservation endpoint.
type CatalogHandler struct {
	Sessions SessionBrowser
	Meta     MetaBrowser
}

// NewCatalogHandler constructs a CatalogHandler; both browsers must
// be non-nil.
func NewCatalogHandler(sessions SessionBrowser, meta MetaBrowser) *CatalogHandler {
	if sessions == nil || meta == nil {
		panic("nil browser passed to NewCatalogHandler")
	}
	return &CatalogHandler{Sessions: sessions, Meta: meta}
}

// GetSessions handles GET /v1/sessions.
func (h *CatalogHandler) GetSessions(c echo.Context) error {
	out, err := h.Sessions.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if out == nil {
		out = []model.SessionDetail{}
	}
	return c.JSON(http.StatusOK, out)
}

// GetSession handles GET /v1/sessions/:id.
func (h *CatalogHandler) GetSession(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	d, err := h.Sessions.GetDetail(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, booking.ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, d)
}

// GetActivities handles GET /v1/activities.
func (h *CatalogHandler) GetActivities(c echo.Context) error {
	out, err := h.Meta.ListActivities(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if out == nil {
		out = []model.Activity{}
	}
	return c.JSON(http.StatusOK, out)
}

// GetInstructors handles GET /v1/instructors.
func (h *CatalogHandler) GetInstructors(c echo.Context) error {
	out, err := h.Meta.ListInstructors(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if out == nil {
		out = []model.Instructor{}
	}
	return c.JSON(http.StatusOK, out)
}
