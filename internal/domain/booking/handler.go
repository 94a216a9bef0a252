package booking

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/caresync/caresync/internal/platform/auth"
	"github.com/caresync/caresync/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/doctors/:id/slots", h.AvailableSlots)
	api.GET("/appointments/:id", h.Get)
	api.PUT("/appointments/:id/status", h.SetStatus)

	patient := api.Group("", auth.RequireRole(auth.RolePatient))
	patient.POST("/appointments", h.Book)
	patient.GET("/appointments", h.ListMine)

	doctor := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctor.GET("/doctor/appointments", h.ListForDoctor)
}

func userIDFromContext(c echo.Context) (uuid.UUID, error) {
	return uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
}

func (h *Handler) AvailableSlots(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	date := c.QueryParam("date")
	if date == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "date is required")
	}
	slots, err := h.svc.AvailableSlots(c.Request().Context(), doctorID, date)
	if err != nil {
		if errors.Is(err, ErrInvalidDate) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"date": date, "slots": slots})
}

type bookRequest struct {
	DoctorID uuid.UUID        `json:"doctor_id"`
	Date     string           `json:"date"`
	Slot     string           `json:"slot"`
	Type     ConsultationType `json:"type"`
	Notes    string           `json:"notes"`
}

func (h *Handler) Book(c echo.Context) error {
	patientID, err := userIDFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
	}
	var req bookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.DoctorID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "doctor_id is required")
	}
	if req.Type == "" {
		req.Type = TypeNormal
	}
	appt, err := h.svc.Book(c.Request().Context(), patientID, req.DoctorID, req.Date, req.Slot, req.Type, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, ErrSlotTaken):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case errors.Is(err, ErrInvalidDate), errors.Is(err, ErrInvalidSlot):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, appt)
}

func (h *Handler) Get(c echo.Context) error {
	requesterID, err := userIDFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	appt, err := h.svc.Get(c.Request().Context(), requesterID, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
		case errors.Is(err, ErrNotParticipant):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) ListMine(c echo.Context) error {
	patientID, err := userIDFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListForDoctor(c echo.Context) error {
	doctorID, err := userIDFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByDoctor(c.Request().Context(), doctorID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type setStatusRequest struct {
	Status Status `json:"status"`
}

func (h *Handler) SetStatus(c echo.Context) error {
	requesterID, err := userIDFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req setStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	appt, err := h.svc.SetStatus(c.Request().Context(), requesterID, id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
		case errors.Is(err, ErrNotParticipant):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		case errors.Is(err, ErrInvalidTransition):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, appt)
}
