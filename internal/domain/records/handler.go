package records

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/caresync/caresync/internal/platform/auth"
	"github.com/caresync/caresync/internal/platform/blobstore"
	"github.com/caresync/caresync/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/records", h.List)
	api.GET("/records/:id/download", h.Download)

	patient := api.Group("", auth.RequireRole(auth.RolePatient))
	patient.POST("/records", h.Upload)
	patient.DELETE("/records/:id", h.Delete)
}

func userIDFromContext(c echo.Context) (uuid.UUID, error) {
	return uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
}

// Upload accepts a multipart form with a "file" part plus title and
// category fields.
func (h *Handler) Upload(c echo.Context) error {
	patientID, err := userIDFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file part is required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer file.Close()

	rec := &Record{
		PatientID:   patientID,
		Title:       c.FormValue("title"),
		Category:    c.FormValue("category"),
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
	}
	created, err := h.svc.Upload(c.Request().Context(), rec, file)
	if err != nil {
		if errors.Is(err, blobstore.ErrTooLarge) {
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, created)
}

// List returns the caller's records, or another patient's records when
// patient_id is given and the caller is an authorized doctor.
func (h *Handler) List(c echo.Context) error {
	requesterID, err := userIDFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
	}
	patientID := requesterID
	if pid := c.QueryParam("patient_id"); pid != "" {
		patientID, err = uuid.Parse(pid)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), requesterID, patientID,
		c.QueryParam("category"), pg.Limit, pg.Offset)
	if err != nil {
		if errors.Is(err, ErrForbidden) {
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Download(c echo.Context) error {
	requesterID, err := userIDFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rec, rc, err := h.svc.Download(c.Request().Context(), requesterID, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound), errors.Is(err, blobstore.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "record not found")
		case errors.Is(err, ErrForbidden):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	defer rc.Close()
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+rec.FileName+`"`)
	return c.Stream(http.StatusOK, rec.ContentType, rc)
}

func (h *Handler) Delete(c echo.Context) error {
	requesterID, err := userIDFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), requesterID, id); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "record not found")
		case errors.Is(err, ErrForbidden):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
