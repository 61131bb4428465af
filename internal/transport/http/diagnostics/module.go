package diagnostics

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"github.com/Additional-Code/bistro/internal/config"
	"github.com/Additional-Code/bistro/internal/database"
)

// Module wires the health endpoints.
var Module = fx.Options(
	fx.Provide(func(conns *database.Connections) *Handler { return NewHandler(conns) }),
	fx.Invoke(func(e *echo.Echo, h *Handler, cfg config.Config) {
		Register(e, h, cfg.Diagnostics.Enabled)
	}),
)
