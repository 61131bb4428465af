package stats

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"

	"github.com/Additional-Code/bistro/internal/dto"
	"github.com/Additional-Code/bistro/internal/presentation/http/query"
	"github.com/Additional-Code/bistro/internal/presentation/http/response"
	service "github.com/Additional-Code/bistro/internal/service/stats"
	"github.com/Additional-Code/bistro/internal/transport/http/middleware"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/bistro/transport/http/stats")

// Handler exposes reporting aggregates over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a stats Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler, guard middleware.Guard) {
	g := e.Group("/stats", echo.MiddlewareFunc(guard))
	g.GET("/orders/daily", h.daily)
	g.GET("/menu-items/top", h.topItems)
}

func (h *Handler) daily(c echo.Context) error {
	b := response.New(c)

	date, _, err := query.Date("date", c.QueryParam("date"))
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "stats.daily")
	defer span.End()

	daily, err := h.svc.DailyOrders(ctx, date)
	if err != nil {
		return b.WithError(err).Build()
	}
	out := dto.DailyStatsResponse{
		Date:          daily.Date.Format(time.DateOnly),
		TerminalStats: make([]dto.TerminalStat, 0, len(daily.Terminals)),
	}
	for _, t := range daily.Terminals {
		out.TerminalStats = append(out.TerminalStats, dto.TerminalStat{TerminalName: t.TerminalName, OrdersCount: t.OrdersCount})
	}
	return b.WithData(out).Build()
}

func (h *Handler) topItems(c echo.Context) error {
	b := response.New(c)

	period, err := query.Period(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "stats.topItems")
	defer span.End()

	sales, err := h.svc.TopItems(ctx, period)
	if err != nil {
		return b.WithError(err).Build()
	}
	out := make([]dto.TopItemResponse, 0, len(sales))
	for _, s := range sales {
		out = append(out, dto.TopItemResponse{
			MenuItemID: s.MenuItemID,
			Name:       s.NamePL,
			NameEN:     s.NameEN,
			SoldCount:  s.SoldCount,
		})
	}
	return b.WithData(out).Build()
}
