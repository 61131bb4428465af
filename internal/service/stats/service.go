package stats

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"

	repo "github.com/Additional-Code/bistro/internal/repository/order"
	"github.com/Additional-Code/bistro/pkg/errorbank"
)

// TopItemsLimit caps the best-seller ranking.
const TopItemsLimit = 10

var serviceTracer = otel.Tracer("github.com/Additional-Code/bistro/service/stats")

// Daily is the per-terminal ready count for one UTC day.
type Daily struct {
	Date      time.Time
	Terminals []repo.TerminalCount
}

// Service aggregates reporting figures from the order tables.
type Service struct {
	repo *repo.Repository
	now  func() time.Time
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{repo: p.Repository, now: time.Now}
}

// WithClock returns a copy of s that picks the default day from now.
func (s *Service) WithClock(now func() time.Time) *Service {
	cp := *s
	cp.now = now
	return &cp
}

// DailyOrders counts ready events per terminal for the UTC day containing
// date, or today when date is nil.
func (s *Service) DailyOrders(ctx context.Context, date *time.Time) (*Daily, error) {
	day := s.now()
	if date != nil {
		day = *date
	}
	day = day.UTC()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	ctx, span := serviceTracer.Start(ctx, "StatsService.DailyOrders", trace.WithAttributes(attribute.String("stats.date", start.Format(time.DateOnly))))
	defer span.End()

	counts, err := s.repo.ReadyCountsByTerminal(ctx, start, end)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to compute daily stats", errorbank.WithCause(err))
	}
	return &Daily{Date: start, Terminals: counts}, nil
}

// TopItems ranks menu items by quantity sold in orders created within period.
func (s *Service) TopItems(ctx context.Context, period repo.Period) ([]repo.ItemSales, error) {
	ctx, span := serviceTracer.Start(ctx, "StatsService.TopItems")
	defer span.End()

	sales, err := s.repo.TopSellers(ctx, period, TopItemsLimit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to rank menu items", errorbank.WithCause(err))
	}
	return sales, nil
}
