package imports

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"

	"github.com/Zobiii/Ets2RoutePlanner/pkg/importer"
)

// Handler handles import orchestration API requests
type Handler struct {
	orchestrator *importer.Orchestrator
	defaultPath  string
}

// NewHandler creates a new import handler. defaultPath is used when a run
// request does not name a source path.
func NewHandler(orchestrator *importer.Orchestrator, defaultPath string) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		defaultPath:  defaultPath,
	}
}

// RunRequest is the request body for starting an import
type RunRequest struct {
	Path string `json:"path,omitempty"`
}

// RegisterRoutes registers the import routes
func (h *Handler) RegisterRoutes(g *echo.Group) {
	imports := g.Group("/imports")
	imports.POST("", h.Run)
	imports.GET("/status", h.Status)
	imports.POST("/cancel", h.Cancel)

	g.DELETE("/store", h.ClearStore)
}

// Run handles POST /imports
func (h *Handler) Run(c echo.Context) error {
	var req RunRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	path := req.Path
	if path == "" {
		path = h.defaultPath
	}

	if err := h.orchestrator.Submit(path); err != nil {
		return err
	}

	return c.JSON(http.StatusAccepted, map[string]string{"status": "accepted"})
}

// Status handles GET /imports/status
func (h *Handler) Status(c echo.Context) error {
	cursor := 0
	if raw := c.QueryParam("cursor"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "cursor must be an integer")
		}
		cursor = parsed
	}

	return c.JSON(http.StatusOK, h.orchestrator.Status(cursor))
}

// Cancel handles POST /imports/cancel
func (h *Handler) Cancel(c echo.Context) error {
	h.orchestrator.Cancel()
	return c.JSON(http.StatusAccepted, map[string]string{"status": "cancelling"})
}

// ClearStore handles DELETE /store
func (h *Handler) ClearStore(c echo.Context) error {
	if err := h.orchestrator.ClearStore(c.Request().Context()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "cleared"})
}
