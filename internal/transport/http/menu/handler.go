package menu

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/bistro/internal/dto"
	"github.com/Additional-Code/bistro/internal/entity"
	"github.com/Additional-Code/bistro/internal/presentation/http/query"
	"github.com/Additional-Code/bistro/internal/presentation/http/response"
	service "github.com/Additional-Code/bistro/internal/service/menu"
	"github.com/Additional-Code/bistro/internal/transport/http/middleware"
	"github.com/Additional-Code/bistro/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/bistro/transport/http/menu")

// Handler exposes menu catalog endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a menu Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler, guard middleware.Guard) {
	g := e.Group("/menu", echo.MiddlewareFunc(guard))

	g.GET("/categories", h.listCategories)
	g.POST("/categories", h.createCategory)
	g.PUT("/categories/:id", h.updateCategory)
	g.DELETE("/categories/:id", h.deleteCategory)

	g.GET("/items", h.listItems)
	g.POST("/items", h.createItem)
	g.PUT("/items/:id", h.updateItem)
	g.DELETE("/items/:id", h.deleteItem)
	g.POST("/items/:id/block", h.blockItem)
}

func (h *Handler) listCategories(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "menu.listCategories")
	defer span.End()

	categories, err := h.svc.ListCategories(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	out := make([]dto.CategoryResponse, 0, len(categories))
	for i := range categories {
		out = append(out, toCategoryDTO(&categories[i]))
	}
	return b.WithData(out).WithTotalCount(len(out)).Build()
}

func (h *Handler) createCategory(c echo.Context) error {
	b := response.New(c)

	var payload dto.CreateCategoryRequest
	if err := bindAndValidate(c, &payload); err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "menu.createCategory")
	defer span.End()

	category, err := h.svc.CreateCategory(ctx, service.CategoryInput{
		NamePL:   payload.NamePL,
		NameEN:   payload.NameEN,
		ImageURL: payload.ImageURL,
	})
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(toCategoryDTO(category)).Build()
}

func (h *Handler) updateCategory(c echo.Context) error {
	b := response.New(c)

	id, err := query.ID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}
	var payload dto.UpdateCategoryRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "menu.updateCategory", trace.WithAttributes(attribute.Int64("category.id", id)))
	defer span.End()

	category, err := h.svc.UpdateCategory(ctx, id, service.CategoryPatch{
		NamePL:   payload.NamePL,
		NameEN:   payload.NameEN,
		ImageURL: payload.ImageURL,
	})
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toCategoryDTO(category)).Build()
}

func (h *Handler) deleteCategory(c echo.Context) error {
	b := response.New(c)

	id, err := query.ID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "menu.deleteCategory", trace.WithAttributes(attribute.Int64("category.id", id)))
	defer span.End()

	return b.WithError(h.svc.DeleteCategory(ctx, id)).NoContent()
}

func (h *Handler) listItems(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "menu.listItems")
	defer span.End()

	items, err := h.svc.ListItems(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	out := make([]dto.ItemResponse, 0, len(items))
	for i := range items {
		out = append(out, toItemDTO(&items[i]))
	}
	return b.WithData(out).WithTotalCount(len(out)).Build()
}

func (h *Handler) createItem(c echo.Context) error {
	b := response.New(c)

	var payload dto.CreateItemRequest
	if err := bindAndValidate(c, &payload); err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "menu.createItem", trace.WithAttributes(attribute.Int64("category.id", *payload.CategoryID)))
	defer span.End()

	item, err := h.svc.CreateItem(ctx, service.ItemInput{
		CategoryID:  *payload.CategoryID,
		NamePL:      payload.NamePL,
		NameEN:      payload.NameEN,
		PriceCents:  *payload.PriceCents,
		ImageURL:    payload.ImageURL,
		IsAvailable: payload.IsAvailable,
	})
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(toItemDTO(item)).Build()
}

func (h *Handler) updateItem(c echo.Context) error {
	b := response.New(c)

	id, err := query.ID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}
	var payload dto.UpdateItemRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "menu.updateItem", trace.WithAttributes(attribute.Int64("item.id", id)))
	defer span.End()

	item, err := h.svc.UpdateItem(ctx, id, service.ItemPatch{
		CategoryID:  payload.CategoryID,
		NamePL:      payload.NamePL,
		NameEN:      payload.NameEN,
		PriceCents:  payload.PriceCents,
		ImageURL:    payload.ImageURL,
		IsAvailable: payload.IsAvailable,
	})
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toItemDTO(item)).Build()
}

func (h *Handler) deleteItem(c echo.Context) error {
	b := response.New(c)

	id, err := query.ID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "menu.deleteItem", trace.WithAttributes(attribute.Int64("item.id", id)))
	defer span.End()

	return b.WithError(h.svc.DeleteItem(ctx, id)).NoContent()
}

func (h *Handler) blockItem(c echo.Context) error {
	b := response.New(c)

	id, err := query.ID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}
	available, err := query.Bool(c, "is_available")
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "menu.blockItem", trace.WithAttributes(
		attribute.Int64("item.id", id),
		attribute.Bool("item.available", available),
	))
	defer span.End()

	item, err := h.svc.SetAvailability(ctx, id, available)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.AvailabilityResponse{ID: item.ID, IsAvailable: item.IsAvailable}).Build()
}

func bindAndValidate(c echo.Context, payload any) error {
	if err := c.Bind(payload); err != nil {
		return errorbank.BadRequest("invalid payload", errorbank.WithCause(err))
	}
	return c.Validate(payload)
}

func toCategoryDTO(c *entity.MenuCategory) dto.CategoryResponse {
	return dto.CategoryResponse{
		ID:       c.ID,
		NamePL:   c.NamePL,
		NameEN:   c.NameEN,
		ImageURL: c.ImageURL,
	}
}

func toItemDTO(it *entity.MenuItem) dto.ItemResponse {
	return dto.ItemResponse{
		ID:          it.ID,
		CategoryID:  it.CategoryID,
		NamePL:      it.NamePL,
		NameEN:      it.NameEN,
		PriceCents:  it.PriceCents,
		ImageURL:    it.ImageURL,
		IsAvailable: it.IsAvailable,
	}
}
