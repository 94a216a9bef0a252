package reminders

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/caresync/caresync/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RolePatient))
	g.GET("/reminders", h.List)
	g.POST("/reminders", h.Create)
	g.PUT("/reminders/:id", h.Update)
	g.DELETE("/reminders/:id", h.Delete)
	g.GET("/reminders/due", h.Due)
}

func patientIDFromContext(c echo.Context) (uuid.UUID, error) {
	return uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
}

func (h *Handler) Create(c echo.Context) error {
	patientID, err := patientIDFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
	}
	var r Reminder
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	r.PatientID = patientID
	r.Active = true
	if err := h.svc.Create(c.Request().Context(), &r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) List(c echo.Context) error {
	patientID, err := patientIDFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
	}
	items, err := h.svc.List(c.Request().Context(), patientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*Reminder{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Update(c echo.Context) error {
	patientID, err := patientIDFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var r Reminder
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	r.ID = id
	if err := h.svc.Update(c.Request().Context(), patientID, &r); err != nil {
		return reminderError(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) Delete(c echo.Context) error {
	patientID, err := patientIDFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), patientID, id); err != nil {
		return reminderError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Due returns the reminders firing now, or at ?at=HH:MM for testing.
func (h *Handler) Due(c echo.Context) error {
	patientID, err := patientIDFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
	}
	at := time.Now()
	if raw := c.QueryParam("at"); raw != "" {
		parsed, err := time.Parse(TimeLayout, raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid at, want HH:MM")
		}
		at = parsed
	}
	items, err := h.svc.Due(c.Request().Context(), patientID, at)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*Reminder{}
	}
	return c.JSON(http.StatusOK, items)
}

func reminderError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "reminder not found")
	case errors.Is(err, ErrNotOwner):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}
