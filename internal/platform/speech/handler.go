package speech

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	client Client
}

func NewHandler(client Client) *Handler {
	return &Handler{client: client}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/speech/transcribe", h.Transcribe)
	api.POST("/speech/synthesize", h.Synthesize)
}

// Transcribe accepts raw audio in the request body and returns the text.
func (h *Handler) Transcribe(c echo.Context) error {
	contentType := c.Request().Header.Get("Content-Type")
	if contentType == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "audio content type is required")
	}
	text, err := h.client.Transcribe(c.Request().Context(), c.Request().Body, contentType)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"text": text})
}

type synthesizeBody struct {
	Text string `json:"text"`
}

// Synthesize returns spoken audio for the given text.
func (h *Handler) Synthesize(c echo.Context) error {
	var req synthesizeBody
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text is required")
	}
	audio, err := h.client.Synthesize(c.Request().Context(), req.Text)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.Blob(http.StatusOK, "audio/mpeg", audio)
}
