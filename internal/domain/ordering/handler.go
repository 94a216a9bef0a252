package ordering

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/caresync/caresync/internal/domain/pharmacy"
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
	patient := api.Group("", auth.RequireRole(auth.RolePatient))
	patient.GET("/cart", h.GetCart)
	patient.POST("/cart/items", h.AddToCart)
	patient.PUT("/cart/items/:medicineID", h.UpdateQuantity)
	patient.DELETE("/cart/items/:medicineID", h.RemoveFromCart)
	patient.POST("/orders/checkout", h.Checkout)
	patient.GET("/orders", h.ListMyOrders)

	ph := api.Group("", auth.RequireRole(auth.RolePharmacy))
	ph.GET("/pharmacy/orders", h.ListPharmacyOrders)
	ph.PUT("/orders/:id/status", h.SetStatus)

	// Detail view is shared; the service checks who may read it.
	api.GET("/orders/:id", h.GetOrder)
}

func userIDFromContext(c echo.Context) (uuid.UUID, error) {
	return uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
}

func (h *Handler) GetCart(c echo.Context) error {
	patientID, err := userIDFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
	}
	cart, err := h.svc.GetCart(c.Request().Context(), patientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, cart)
}

type addToCartRequest struct {
	MedicineID uuid.UUID `json:"medicine_id"`
}

func (h *Handler) AddToCart(c echo.Context) error {
	patientID, err := userIDFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
	}
	var req addToCartRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.MedicineID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "medicine_id is required")
	}
	cart, err := h.svc.AddToCart(c.Request().Context(), patientID, req.MedicineID)
	if err != nil {
		return cartError(err)
	}
	return c.JSON(http.StatusOK, cart)
}

type updateQuantityRequest struct {
	Delta int `json:"delta"`
}

func (h *Handler) UpdateQuantity(c echo.Context) error {
	patientID, err := userIDFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
	}
	medicineID, err := uuid.Parse(c.Param("medicineID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid medicine id")
	}
	var req updateQuantityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cart, err := h.svc.UpdateCartQuantity(c.Request().Context(), patientID, medicineID, req.Delta)
	if err != nil {
		return cartError(err)
	}
	return c.JSON(http.StatusOK, cart)
}

func (h *Handler) RemoveFromCart(c echo.Context) error {
	patientID, err := userIDFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
	}
	medicineID, err := uuid.Parse(c.Param("medicineID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid medicine id")
	}
	cart, err := h.svc.RemoveFromCart(c.Request().Context(), patientID, medicineID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, cart)
}

type checkoutRequest struct {
	DeliveryAddress string `json:"delivery_address"`
}

func (h *Handler) Checkout(c echo.Context) error {
	patientID, err := userIDFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
	}
	var req checkoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	order, err := h.svc.Checkout(c.Request().Context(), patientID, req.DeliveryAddress)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyCart), errors.Is(err, ErrNoAddress):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrInsufficientStock), errors.Is(err, pharmacy.ErrInsufficientStock):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, order)
}

func (h *Handler) GetOrder(c echo.Context) error {
	requesterID, err := userIDFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
	}
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	order, err := h.svc.GetOrder(c.Request().Context(), requesterID, orderID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		case errors.Is(err, ErrNotOwner):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, order)
}

func (h *Handler) ListMyOrders(c echo.Context) error {
	patientID, err := userIDFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
	}
	pg := pagination.FromContext(c)
	orders, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(orders, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListPharmacyOrders(c echo.Context) error {
	pharmacyID, err := userIDFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
	}
	pg := pagination.FromContext(c)
	orders, total, err := h.svc.ListByPharmacy(c.Request().Context(), pharmacyID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(orders, total, pg.Limit, pg.Offset))
}

type setStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) SetStatus(c echo.Context) error {
	pharmacyID, err := userIDFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
	}
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req setStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	status, err := ParsePharmacyStatus(req.Status)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	order, err := h.svc.SetPharmacyStatus(c.Request().Context(), pharmacyID, orderID, status)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		case errors.Is(err, ErrNotParticipant):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		case errors.Is(err, ErrInvalidTransition):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, order)
}

func cartError(err error) error {
	switch {
	case errors.Is(err, ErrInsufficientStock):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrLineNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
