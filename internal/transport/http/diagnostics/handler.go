package diagnostics

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Checker checks a dependency round trip.
type Checker interface {
	Check(ctx context.Context) error
}

// Handler serves liveness and database checks.
type Handler struct {
	db Checker
}

// NewHandler constructs a diagnostics Handler.
func NewHandler(db Checker) *Handler {
	return &Handler{db: db}
}

// Register mounts /health, and /health/db when checks are enabled.
func Register(e *echo.Echo, h *Handler, checksEnabled bool) {
	e.GET("/health", h.health)
	if checksEnabled {
		e.GET("/health/db", h.database)
	}
}

func (h *Handler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// database always answers 200; the check outcome is the payload.
func (h *Handler) database(c echo.Context) error {
	if err := h.db.Check(c.Request().Context()); err != nil {
		return c.JSON(http.StatusOK, map[string]string{"db": "error", "details": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"db": "ok"})
}
