package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"

	"github.com/Additional-Code/bistro/internal/dto"
	"github.com/Additional-Code/bistro/internal/presentation/http/response"
	service "github.com/Additional-Code/bistro/internal/service/auth"
	"github.com/Additional-Code/bistro/internal/transport/http/middleware"
	"github.com/Additional-Code/bistro/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/bistro/transport/http/auth")

// Handler exposes login and identity endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs an auth Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler, guard middleware.Guard) {
	g := e.Group("/auth")
	g.POST("/login", h.login)
	g.GET("/me", h.me, echo.MiddlewareFunc(guard))
}

func (h *Handler) login(c echo.Context) error {
	b := response.New(c)

	var payload dto.LoginRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	if payload.Username == "" || payload.Password == "" {
		return b.WithError(errorbank.BadRequest("username and password are required")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "auth.login")
	defer span.End()

	token, err := h.svc.Login(ctx, payload.Username, payload.Password)
	if errorbank.IsKind(err, errorbank.KindUnauthorized) {
		// Bad credentials are a client error on this endpoint, not a challenge.
		return b.WithStatus(http.StatusBadRequest).WithError(err).Build()
	}
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.TokenResponse{
		AccessToken: token.AccessToken,
		TokenType:   "bearer",
		ExpiresAt:   token.ExpiresAt.UTC(),
	}).Build()
}

func (h *Handler) me(c echo.Context) error {
	b := response.New(c)

	user, ok := middleware.CurrentUser(c)
	if !ok {
		return b.WithError(errorbank.Unauthorized("not authenticated")).Build()
	}
	return b.WithData(dto.MeResponse{
		ID:       user.ID,
		Username: user.Username,
		Roles:    []string{user.Role},
	}).Build()
}
