package order

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/bistro/internal/entity"
	repo "github.com/Additional-Code/bistro/internal/repository/order"
	"github.com/Additional-Code/bistro/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/bistro/service/order")

// Filter narrows the order listing.
type Filter = repo.Filter

// Period bounds a created_at range.
type Period = repo.Period

// Line is an order line with its name resolved in the order's language.
type Line struct {
	ID         int64
	MenuItemID int64
	Name       string
	Quantity   int
}

// Details bundles an order with its lines and event history.
type Details struct {
	Order  entity.Order
	Items  []Line
	Events []entity.OrderEventLog
}

// Service exposes read-only order reporting.
type Service struct {
	repo   *repo.Repository
	logger *zap.Logger
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Logger     *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{repo: p.Repository, logger: p.Logger}
}

// List returns orders matching the filter, newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.List", trace.WithAttributes(attribute.String("order.status", f.Status)))
	defer span.End()

	orders, err := s.repo.List(ctx, f)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list orders", errorbank.WithCause(err))
	}
	return orders, nil
}

// Details loads an order with its lines and events.
func (s *Service) Details(ctx context.Context, id int64) (*Details, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Details", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}

	rows, err := s.repo.Lines(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, errorbank.Internal("failed to load order items", errorbank.WithCause(err))
	}
	events, err := s.repo.Events(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, errorbank.Internal("failed to load order events", errorbank.WithCause(err))
	}

	lines := make([]Line, 0, len(rows))
	for _, row := range rows {
		name := row.NamePL
		if entity.IsEnglish(order.Language) {
			name = row.NameEN
		}
		lines = append(lines, Line{ID: row.ID, MenuItemID: row.MenuItemID, Name: name, Quantity: row.Quantity})
	}

	return &Details{Order: *order, Items: lines, Events: events}, nil
}
