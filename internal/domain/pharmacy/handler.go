package pharmacy

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
	// Browsing is open to every authenticated role.
	api.GET("/medicines", h.SearchMedicines)
	api.GET("/medicines/:id", h.GetMedicine)

	// Inventory management is pharmacy-only.
	inv := api.Group("", auth.RequireRole(auth.RolePharmacy))
	inv.POST("/medicines", h.CreateMedicine)
	inv.PUT("/medicines/:id", h.UpdateMedicine)
	inv.DELETE("/medicines/:id", h.DeleteMedicine)
	inv.PUT("/medicines/:id/stock", h.SetStock)
	inv.GET("/inventory", h.ListInventory)
}

func pharmacyIDFromContext(c echo.Context) (uuid.UUID, error) {
	return uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
}

func (h *Handler) CreateMedicine(c echo.Context) error {
	pharmacyID, err := pharmacyIDFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
	}
	var m Medicine
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m.PharmacyID = pharmacyID
	if err := h.svc.CreateMedicine(c.Request().Context(), &m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) GetMedicine(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	m, err := h.svc.GetMedicine(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "medicine not found")
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) SearchMedicines(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := map[string]string{}
	for _, key := range []string{"name", "brand", "category", "in_stock"} {
		if v := c.QueryParam(key); v != "" {
			params[key] = v
		}
	}
	if pid := c.QueryParam("pharmacy_id"); pid != "" {
		id, err := uuid.Parse(pid)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid pharmacy_id")
		}
		items, total, err := h.svc.ListByPharmacy(c.Request().Context(), id, pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
	}
	items, total, err := h.svc.Search(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateMedicine(c echo.Context) error {
	pharmacyID, err := pharmacyIDFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var m Medicine
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m.ID = id
	if err := h.svc.UpdateMedicine(c.Request().Context(), pharmacyID, &m); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "medicine not found")
		case errors.Is(err, ErrNotOwner):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) DeleteMedicine(c echo.Context) error {
	pharmacyID, err := pharmacyIDFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteMedicine(c.Request().Context(), pharmacyID, id); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "medicine not found")
		case errors.Is(err, ErrNotOwner):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

type setStockRequest struct {
	Stock int `json:"stock"`
}

func (h *Handler) SetStock(c echo.Context) error {
	pharmacyID, err := pharmacyIDFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req setStockRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SetStock(c.Request().Context(), pharmacyID, id, req.Stock); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "medicine not found")
		case errors.Is(err, ErrNotOwner):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"id": id, "stock": req.Stock})
}

func (h *Handler) ListInventory(c echo.Context) error {
	pharmacyID, err := pharmacyIDFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPharmacy(c.Request().Context(), pharmacyID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	// Expose a low-stock count alongside the page for the dashboard.
	low := 0
	for _, m := range items {
		if m.Stock <= 10 {
			low++
		}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"inventory": pagination.NewResponse(items, total, pg.Limit, pg.Offset),
		"low_stock": low,
	})
}
