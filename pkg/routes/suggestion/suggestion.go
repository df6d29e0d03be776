package suggestion

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"

	"github.com/Zobiii/Ets2RoutePlanner/pkg/recommend"
)

// Handler handles route suggestion API requests
type Handler struct {
	service *recommend.Service
}

// NewHandler creates a new suggestion handler
func NewHandler(service *recommend.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers the suggestion routes
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/suggestions", h.Suggest)
}

// Suggest handles GET /suggestions
func (h *Handler) Suggest(c echo.Context) error {
	start := c.QueryParam("start")
	target := c.QueryParam("target")
	if start == "" || target == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "start and target query parameters are required")
	}

	result, err := h.service.Suggest(c.Request().Context(), start, target)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}
