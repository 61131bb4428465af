package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/bistro/internal/entity"
	"github.com/Additional-Code/bistro/pkg/errorbank"
)

type stubResolver map[string]*entity.ManagerUser

func (s stubResolver) Resolve(_ context.Context, raw string) (*entity.ManagerUser, error) {
	if u, ok := s[raw]; ok {
		return u, nil
	}
	return nil, errorbank.Unauthorized("invalid token")
}

func TestRequireManager(t *testing.T) {
	resolver := stubResolver{"good": {ID: 7, Username: "anna", Role: entity.RoleManager}}

	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		user, ok := CurrentUser(c)
		if !ok {
			return c.NoContent(http.StatusTeapot)
		}
		return c.String(http.StatusOK, user.Username)
	}, RequireManager(resolver))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer good", http.StatusOK},
		{"scheme is case-insensitive", "bearer good", http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"basic scheme", "Basic good", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"unknown token", "Bearer bad", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			if tt.status == http.StatusUnauthorized && rec.Header().Get(echo.HeaderWWWAuthenticate) != "Bearer" {
				t.Fatalf("missing WWW-Authenticate challenge")
			}
		})
	}
}
