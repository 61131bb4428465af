package order

import (
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/bistro/internal/dto"
	"github.com/Additional-Code/bistro/internal/entity"
	"github.com/Additional-Code/bistro/internal/presentation/http/query"
	"github.com/Additional-Code/bistro/internal/presentation/http/response"
	service "github.com/Additional-Code/bistro/internal/service/order"
	"github.com/Additional-Code/bistro/internal/transport/http/middleware"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/bistro/transport/http/order")

// Handler exposes order reporting endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler, guard middleware.Guard) {
	g := e.Group("/orders", echo.MiddlewareFunc(guard))
	g.GET("", h.list)
	g.GET("/:id", h.getByID)
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	period, err := query.Period(c)
	if err != nil {
		return b.WithError(err).Build()
	}
	filter := service.Filter{Status: c.QueryParam("status"), Period: period}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.list", trace.WithAttributes(attribute.String("order.status", filter.Status)))
	defer span.End()

	orders, err := h.svc.List(ctx, filter)
	if err != nil {
		return b.WithError(err).Build()
	}
	out := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, toDTO(&orders[i]))
	}
	return b.WithData(out).WithTotalCount(len(out)).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id, err := query.ID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.getByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	details, err := h.svc.Details(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	out := dto.OrderDetailsResponse{
		OrderResponse: toDTO(&details.Order),
		Items:         make([]dto.OrderItemResponse, 0, len(details.Items)),
		Events:        make([]dto.OrderEventResponse, 0, len(details.Events)),
	}
	for _, line := range details.Items {
		out.Items = append(out.Items, dto.OrderItemResponse{
			ID:         line.ID,
			MenuItemID: line.MenuItemID,
			Name:       line.Name,
			Quantity:   line.Quantity,
		})
	}
	for _, ev := range details.Events {
		out.Events = append(out.Events, dto.OrderEventResponse{
			ID:           ev.ID,
			EventType:    ev.EventType,
			TerminalName: ev.TerminalName,
			Timestamp:    ev.Timestamp.UTC(),
			NewStatus:    ev.NewStatus,
		})
	}
	return b.WithData(out).Build()
}

func toDTO(order *entity.Order) dto.OrderResponse {
	out := dto.OrderResponse{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		Type:        order.Type,
		CreatedAt:   order.CreatedAt.UTC(),
		Language:    order.Language,
	}
	if order.ReadyAt != nil {
		readyAt := order.ReadyAt.UTC()
		out.ReadyAt = &readyAt
	}
	return out
}
