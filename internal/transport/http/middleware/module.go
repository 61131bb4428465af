package middleware

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	authsvc "github.com/Additional-Code/bistro/internal/service/auth"
)

// Guard protects manager-only routes.
type Guard echo.MiddlewareFunc

// NewGuard builds the bearer guard backed by the auth service.
func NewGuard(svc *authsvc.Service) Guard {
	return Guard(RequireManager(svc))
}

// Module provides the Guard to Fx.
var Module = fx.Provide(NewGuard)
