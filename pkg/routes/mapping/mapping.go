package mapping

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"

	"github.com/Zobiii/Ets2RoutePlanner/pkg/reconcile"
)

// Handler handles manual company mapping API requests
type Handler struct {
	service *reconcile.Service
}

// NewHandler creates a new mapping handler
func NewHandler(service *reconcile.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// ApplyRequest is the request body for applying a manual mapping
type ApplyRequest struct {
	AliasKey        string `json:"alias_key"`
	TargetCompanyID string `json:"target_company_id"`
}

// RegisterRoutes registers the mapping routes
func (h *Handler) RegisterRoutes(g *echo.Group) {
	mappings := g.Group("/mappings")
	mappings.GET("/unmapped", h.ListUnmapped)
	mappings.POST("", h.Apply)
}

// ListUnmapped handles GET /mappings/unmapped
func (h *Handler) ListUnmapped(c echo.Context) error {
	suggestions, err := h.service.ListUnmapped(c.Request().Context())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, suggestions)
}

// Apply handles POST /mappings
func (h *Handler) Apply(c echo.Context) error {
	var req ApplyRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if req.AliasKey == "" || req.TargetCompanyID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "alias_key and target_company_id are required")
	}

	if err := h.service.ApplyMapping(c.Request().Context(), req.AliasKey, req.TargetCompanyID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "mapped"})
}
