package diagnostics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

type checkerFunc func(context.Context) error

func (f checkerFunc) Check(ctx context.Context) error { return f(ctx) }

func TestDatabaseCheck(t *testing.T) {
	tests := []struct {
		name  string
		check error
		want  map[string]string
	}{
		{"healthy", nil, map[string]string{"db": "ok"}},
		{"unreachable", errors.New("dial tcp: connection refused"), map[string]string{"db": "error", "details": "dial tcp: connection refused"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			Register(e, NewHandler(checkerFunc(func(context.Context) error { return tt.check })), true)

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/db", nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			var got map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(got) != len(tt.want) || got["db"] != tt.want["db"] || got["details"] != tt.want["details"] {
				t.Fatalf("body = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDatabaseCheckDisabled(t *testing.T) {
	e := echo.New()
	Register(e, NewHandler(checkerFunc(func(context.Context) error { return nil })), false)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/db", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/health status = %d", rec.Code)
	}
}
