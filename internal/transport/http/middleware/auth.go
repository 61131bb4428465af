// Package middleware holds request-scoped echo middleware shared by the
// HTTP transports.
package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/bistro/internal/entity"
	"github.com/Additional-Code/bistro/internal/presentation/http/response"
	"github.com/Additional-Code/bistro/pkg/errorbank"
)

const userKey = "auth.user"

// Resolver turns a raw bearer token into the manager it belongs to.
type Resolver interface {
	Resolve(ctx context.Context, raw string) (*entity.ManagerUser, error)
}

// RequireManager rejects requests without a valid bearer token and stores
// the resolved manager on the context.
func RequireManager(resolver Resolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return response.New(c).WithError(errorbank.Unauthorized("not authenticated")).Build()
			}
			user, err := resolver.Resolve(c.Request().Context(), raw)
			if err != nil {
				return response.New(c).WithError(err).Build()
			}
			c.Set(userKey, user)
			return next(c)
		}
	}
}

// CurrentUser returns the manager stored by RequireManager.
func CurrentUser(c echo.Context) (*entity.ManagerUser, bool) {
	user, ok := c.Get(userKey).(*entity.ManagerUser)
	return user, ok && user != nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
