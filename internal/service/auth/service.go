package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/bistro/internal/entity"
	"github.com/Additional-Code/bistro/internal/observability"
	userrepo "github.com/Additional-Code/bistro/internal/repository/user"
	"github.com/Additional-Code/bistro/internal/security"
	"github.com/Additional-Code/bistro/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/bistro/service/auth")

// invalidCredentials is deliberately identical for unknown users and bad passwords.
const invalidCredentials = "invalid credentials"

// Token is an issued bearer credential.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Service authenticates managers and resolves bearer tokens.
type Service struct {
	users  *userrepo.Repository
	tokens *security.Tokens
	logger *zap.Logger
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Users  *userrepo.Repository
	Tokens *security.Tokens
	Logger *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{users: p.Users, tokens: p.Tokens, logger: p.Logger}
}

// Login verifies credentials and issues a token.
func (s *Service) Login(ctx context.Context, username, password string) (Token, error) {
	ctx, span := serviceTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	user, err := s.users.GetByUsername(ctx, username)
	switch {
	case errors.Is(err, userrepo.ErrNotFound):
		security.BurnComparison(password)
		observability.RecordLogin(observability.LoginInvalidCredentials)
		return Token{}, errorbank.Unauthorized(invalidCredentials)
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		observability.RecordLogin(observability.LoginError)
		return Token{}, errorbank.Internal("failed to load user", errorbank.WithCause(err))
	}

	if err := security.ComparePassword(user.PasswordHash, password); err != nil {
		if !errors.Is(err, security.ErrPasswordMismatch) {
			s.logger.Warn("stored password hash unusable", zap.Int64("user_id", user.ID), zap.Error(err))
		}
		observability.RecordLogin(observability.LoginInvalidCredentials)
		return Token{}, errorbank.Unauthorized(invalidCredentials)
	}

	raw, expiresAt, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		span.RecordError(err)
		observability.RecordLogin(observability.LoginError)
		return Token{}, errorbank.Internal("failed to issue token", errorbank.WithCause(err))
	}

	span.SetAttributes(attribute.Int64("user.id", user.ID))
	observability.RecordLogin(observability.LoginSuccess)
	s.logger.Info("manager logged in", zap.Int64("user_id", user.ID))

	return Token{AccessToken: raw, ExpiresAt: expiresAt}, nil
}

// Resolve verifies a bearer token and loads the user it names.
func (s *Service) Resolve(ctx context.Context, raw string) (*entity.ManagerUser, error) {
	ctx, span := serviceTracer.Start(ctx, "AuthService.Resolve")
	defer span.End()

	identity, err := s.tokens.Verify(raw)
	if err != nil {
		s.logger.Debug("token rejected", zap.Error(err))
		return nil, errorbank.Unauthorized("invalid token")
	}
	span.SetAttributes(attribute.Int64("user.id", identity.UserID))

	user, err := s.users.GetByID(ctx, identity.UserID)
	if errors.Is(err, userrepo.ErrNotFound) {
		return nil, errorbank.Unauthorized("invalid token")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load user", errorbank.WithCause(err))
	}
	return user, nil
}

// Provision creates a manager account out-of-band.
func (s *Service) Provision(ctx context.Context, username, password, role string) (*entity.ManagerUser, error) {
	ctx, span := serviceTracer.Start(ctx, "AuthService.Provision", trace.WithAttributes(attribute.String("user.role", role)))
	defer span.End()

	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errorbank.Unprocessable("username is required")
	}
	if role == "" {
		role = entity.RoleManager
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, errorbank.Unprocessable(err.Error())
	}

	user := &entity.ManagerUser{Username: username, PasswordHash: hash, Role: role}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, userrepo.ErrUsernameTaken) {
			return nil, errorbank.Conflict("username already exists")
		}
		span.RecordError(err)
		return nil, errorbank.Internal("failed to create user", errorbank.WithCause(err))
	}

	s.logger.Info("manager provisioned", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}
