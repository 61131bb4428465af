package menu

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/bistro/internal/cache"
	"github.com/Additional-Code/bistro/internal/config"
	"github.com/Additional-Code/bistro/internal/entity"
	"github.com/Additional-Code/bistro/internal/messaging"
	"github.com/Additional-Code/bistro/internal/observability"
	repo "github.com/Additional-Code/bistro/internal/repository/menu"
	"github.com/Additional-Code/bistro/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/bistro/service/menu")

// Cache keys. Listings are stored under "<base>:<generation>" where the
// generation is the counter at GenerationCacheKey; every write bumps it, so a
// listing loaded before a write can only land under a retired key.
const (
	CategoriesCacheKey = "menu:categories"
	ItemsCacheKey      = "menu:items"
	GenerationCacheKey = "menu:gen"
)

// Change event vocabulary.
const (
	EventMenuChanged = "menu.changed"

	EntityCategory = "category"
	EntityItem     = "item"

	ActionCreated      = "created"
	ActionUpdated      = "updated"
	ActionDeleted      = "deleted"
	ActionAvailability = "availability"
)

// ChangedEvent is published after every successful menu write.
type ChangedEvent struct {
	Entity string    `json:"entity"`
	Action string    `json:"action"`
	ID     int64     `json:"id"`
	At     time.Time `json:"at"`
}

// Service encapsulates the menu catalog rules.
type Service struct {
	repo      *repo.Repository
	cache     cache.Store
	cacheTTL  time.Duration
	publisher messaging.Client
	logger    *zap.Logger
	now       func() time.Time
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Cache      cache.Store
	Config     config.Config
	Publisher  messaging.Client
	Logger     *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		repo:      p.Repository,
		cache:     p.Cache,
		cacheTTL:  p.Config.Cache.DefaultTTL,
		publisher: p.Publisher,
		logger:    p.Logger,
		now:       time.Now,
	}
}

// ListCategories returns every category ordered by id.
func (s *Service) ListCategories(ctx context.Context) ([]entity.MenuCategory, error) {
	ctx, span := serviceTracer.Start(ctx, "MenuService.ListCategories")
	defer span.End()

	key, cacheable := s.listingKey(ctx, CategoriesCacheKey)
	var categories []entity.MenuCategory
	if cacheable && s.readCache(ctx, key, &categories) {
		return categories, nil
	}

	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, s.internal(span, err, "failed to list categories")
	}
	if cacheable {
		s.writeCache(ctx, key, categories)
	}
	return categories, nil
}

// ListItems returns every item ordered by id.
func (s *Service) ListItems(ctx context.Context) ([]entity.MenuItem, error) {
	ctx, span := serviceTracer.Start(ctx, "MenuService.ListItems")
	defer span.End()

	key, cacheable := s.listingKey(ctx, ItemsCacheKey)
	var items []entity.MenuItem
	if cacheable && s.readCache(ctx, key, &items) {
		return items, nil
	}

	items, err := s.repo.ListItems(ctx)
	if err != nil {
		return nil, s.internal(span, err, "failed to list items")
	}
	if cacheable {
		s.writeCache(ctx, key, items)
	}
	return items, nil
}

// CreateCategory validates and stores a new category.
func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (*entity.MenuCategory, error) {
	ctx, span := serviceTracer.Start(ctx, "MenuService.CreateCategory")
	defer span.End()

	category, err := in.validate()
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, s.internal(span, err, "failed to create category")
	}

	s.changed(ctx, EntityCategory, ActionCreated, category.ID)
	return category, nil
}

// UpdateCategory applies a patch to an existing category.
func (s *Service) UpdateCategory(ctx context.Context, id int64, patch CategoryPatch) (*entity.MenuCategory, error) {
	ctx, span := serviceTracer.Start(ctx, "MenuService.UpdateCategory", trace.WithAttributes(attribute.Int64("category.id", id)))
	defer span.End()

	category, err := s.repo.UpdateCategory(ctx, id, patch.apply)
	if err != nil {
		return nil, s.translate(span, err, "category")
	}

	s.changed(ctx, EntityCategory, ActionUpdated, category.ID)
	return category, nil
}

// DeleteCategory removes a category that no item references.
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	ctx, span := serviceTracer.Start(ctx, "MenuService.DeleteCategory", trace.WithAttributes(attribute.Int64("category.id", id)))
	defer span.End()

	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return s.translate(span, err, "category")
	}

	s.changed(ctx, EntityCategory, ActionDeleted, id)
	return nil
}

// CreateItem validates and stores a new item.
func (s *Service) CreateItem(ctx context.Context, in ItemInput) (*entity.MenuItem, error) {
	ctx, span := serviceTracer.Start(ctx, "MenuService.CreateItem", trace.WithAttributes(attribute.Int64("category.id", in.CategoryID)))
	defer span.End()

	item, err := in.validate()
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, s.translate(span, err, "item")
	}

	s.changed(ctx, EntityItem, ActionCreated, item.ID)
	return item, nil
}

// UpdateItem applies a patch to an existing item.
func (s *Service) UpdateItem(ctx context.Context, id int64, patch ItemPatch) (*entity.MenuItem, error) {
	ctx, span := serviceTracer.Start(ctx, "MenuService.UpdateItem", trace.WithAttributes(attribute.Int64("item.id", id)))
	defer span.End()

	item, err := s.repo.UpdateItem(ctx, id, patch.apply)
	if err != nil {
		return nil, s.translate(span, err, "item")
	}

	s.changed(ctx, EntityItem, ActionUpdated, item.ID)
	return item, nil
}

// DeleteItem removes an item that no order line references.
func (s *Service) DeleteItem(ctx context.Context, id int64) error {
	ctx, span := serviceTracer.Start(ctx, "MenuService.DeleteItem", trace.WithAttributes(attribute.Int64("item.id", id)))
	defer span.End()

	if err := s.repo.DeleteItem(ctx, id); err != nil {
		return s.translate(span, err, "item")
	}

	s.changed(ctx, EntityItem, ActionDeleted, id)
	return nil
}

// SetAvailability flips the orderable flag of an item.
func (s *Service) SetAvailability(ctx context.Context, id int64, available bool) (*entity.MenuItem, error) {
	ctx, span := serviceTracer.Start(ctx, "MenuService.SetAvailability", trace.WithAttributes(
		attribute.Int64("item.id", id),
		attribute.Bool("item.available", available),
	))
	defer span.End()

	item, err := s.repo.SetAvailability(ctx, id, available)
	if err != nil {
		return nil, s.translate(span, err, "item")
	}

	s.changed(ctx, EntityItem, ActionAvailability, item.ID)
	return item, nil
}

// Warm loads both listings of the current generation into the cache.
func (s *Service) Warm(ctx context.Context) error {
	if _, err := s.ListCategories(ctx); err != nil {
		return err
	}
	_, err := s.ListItems(ctx)
	return err
}

// translate maps repository sentinels onto API errors. AppErrors raised by
// patch validation inside the transaction pass through untouched.
func (s *Service) translate(span trace.Span, err error, subject string) error {
	var appErr *errorbank.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, repo.ErrNotFound):
		return errorbank.NotFound(subject + " not found")
	case errors.Is(err, repo.ErrCategoryMissing):
		return errorbank.Unprocessable("validation failed", errorbank.WithDetail("category_id", "category does not exist"))
	case errors.Is(err, repo.ErrInUse):
		return errorbank.Conflict(subject + " is still referenced")
	default:
		return s.internal(span, err, "failed to write "+subject)
	}
}

func (s *Service) internal(span trace.Span, err error, msg string) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	return errorbank.Internal(msg, errorbank.WithCause(err))
}

// changed runs the post-write side effects. None of them can fail the write.
func (s *Service) changed(ctx context.Context, entityName, action string, id int64) {
	observability.RecordMenuMutation(entityName, action)
	s.invalidate(ctx)
	s.publish(ctx, ChangedEvent{Entity: entityName, Action: action, ID: id, At: s.now().UTC()})
}

// invalidate retires every cached listing by moving to a new generation.
// It must run after the write is committed.
func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Incr(ctx, GenerationCacheKey); err != nil {
		s.logger.Warn("menu cache invalidation failed", zap.Error(err))
	}
}

// listingKey resolves the key of a listing in the current generation. The
// listing bypasses the cache when the generation cannot be read, since a
// missed bump could otherwise pin stale rows.
func (s *Service) listingKey(ctx context.Context, base string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	gen := int64(0)
	raw, err := s.cache.Get(ctx, GenerationCacheKey)
	switch {
	case errors.Is(err, cache.ErrCacheMiss):
	case err != nil:
		s.logger.Warn("menu cache generation unreadable", zap.Error(err))
		return "", false
	default:
		if gen, err = strconv.ParseInt(string(raw), 10, 64); err != nil {
			s.logger.Warn("menu cache generation corrupt", zap.ByteString("value", raw))
			return "", false
		}
	}
	return base + ":" + strconv.FormatInt(gen, 10), true
}

func (s *Service) publish(ctx context.Context, event ChangedEvent) {
	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal menu event", zap.Error(err))
		return
	}
	msg := messaging.Message{
		Key:     []byte(event.Entity + "-" + strconv.FormatInt(event.ID, 10)),
		Value:   payload,
		Headers: map[string]string{messaging.HeaderEventType: EventMenuChanged},
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.logger.Error("publish menu event", zap.String("entity", event.Entity), zap.Int64("id", event.ID), zap.Error(err))
	}
}

func (s *Service) readCache(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("menu cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.logger.Warn("menu cache entry corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (s *Service) writeCache(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("menu cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
		s.logger.Warn("menu cache write failed", zap.String("key", key), zap.Error(err))
	}
}
