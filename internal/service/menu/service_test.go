package menu

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/oapi-codegen/nullable"
	"go.uber.org/zap"

	"github.com/Additional-Code/bistro/internal/cache"
	"github.com/Additional-Code/bistro/internal/config"
	"github.com/Additional-Code/bistro/internal/database/dbtest"
	"github.com/Additional-Code/bistro/internal/messaging"
	repo "github.com/Additional-Code/bistro/internal/repository/menu"
	"github.com/Additional-Code/bistro/pkg/errorbank"
)

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	// onSet, when set, runs before a value is stored, outside the lock.
	onSet func(key string)
}

func newMemoryCache() *memoryCache { return &memoryCache{entries: map[string][]byte{}} }

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return v, nil
}

func (m *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	hook := m.onSet
	m.mu.Unlock()
	if hook != nil {
		hook(key)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

func (m *memoryCache) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, _ := strconv.ParseInt(string(m.entries[key]), 10, 64)
	n++
	m.entries[key] = []byte(strconv.FormatInt(n, 10))
	return n, nil
}

func (m *memoryCache) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

// cached reports whether the listing under base exists in the current generation.
func (m *memoryCache) cached(base string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	gen := string(m.entries[GenerationCacheKey])
	if gen == "" {
		gen = "0"
	}
	_, ok := m.entries[base+":"+gen]
	return ok
}

type recordingPublisher struct {
	messaging.Client
	mu   sync.Mutex
	sent []messaging.Message
}

func (r *recordingPublisher) Publish(_ context.Context, msg messaging.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recordingPublisher) events(t *testing.T) []ChangedEvent {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ChangedEvent, 0, len(r.sent))
	for _, msg := range r.sent {
		if got := msg.Headers[messaging.HeaderEventType]; got != EventMenuChanged {
			t.Fatalf("event-type header = %q", got)
		}
		var ev ChangedEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		out = append(out, ev)
	}
	return out
}

type fixture struct {
	svc   *Service
	cache *memoryCache
	pub   *recordingPublisher
	data  *dbtest.Fixtures
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conns := dbtest.New(t)
	mc := newMemoryCache()
	pub := &recordingPublisher{Client: messaging.Noop("menu")}
	svc := NewService(Params{
		Repository: repo.NewRepository(conns),
		Cache:      mc,
		Config:     config.Config{Cache: config.Cache{DefaultTTL: time.Minute}},
		Publisher:  pub,
		Logger:     zap.NewNop(),
	})
	return fixture{svc: svc, cache: mc, pub: pub, data: dbtest.NewFixtures(t, conns)}
}

func TestCreateItemDefaultsAndEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	category, err := f.svc.CreateCategory(ctx, CategoryInput{NamePL: " Zupy ", NameEN: "Soups"})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if category.NamePL != "Zupy" {
		t.Fatalf("name_pl = %q, want trimmed", category.NamePL)
	}

	item, err := f.svc.CreateItem(ctx, ItemInput{CategoryID: category.ID, NamePL: "Żurek", NameEN: "Sour rye soup", PriceCents: 1800})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if !item.IsAvailable {
		t.Fatal("new item should default to available")
	}

	events := f.pub.events(t)
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[1].Entity != EntityItem || events[1].Action != ActionCreated || events[1].ID != item.ID {
		t.Fatalf("unexpected event %+v", events[1])
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	category := f.data.Category("Zupy", "Soups")

	tests := []struct {
		name  string
		in    ItemInput
		field string
	}{
		{"blank name_pl", ItemInput{CategoryID: category.ID, NamePL: "  ", NameEN: "x", PriceCents: 1}, "name_pl"},
		{"missing name_en", ItemInput{CategoryID: category.ID, NamePL: "x", PriceCents: 1}, "name_en"},
		{"negative price", ItemInput{CategoryID: category.ID, NamePL: "x", NameEN: "x", PriceCents: -1}, "price_cents"},
		{"zero category", ItemInput{NamePL: "x", NameEN: "x"}, "category_id"},
		{"unknown category", ItemInput{CategoryID: category.ID + 100, NamePL: "x", NameEN: "x"}, "category_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateItem(ctx, tt.in)
			appErr := errorbank.From(err)
			if appErr.Kind() != errorbank.KindUnprocessableEntity {
				t.Fatalf("kind = %s, want unprocessable", appErr.Kind())
			}
			if _, ok := appErr.Details()[tt.field]; !ok {
				t.Fatalf("details %v missing %s", appErr.Details(), tt.field)
			}
		})
	}

	if len(f.pub.events(t)) != 0 {
		t.Fatal("rejected writes must not publish")
	}
}

func TestUpdateItemPatchSemantics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	soups := f.data.Category("Zupy", "Soups")
	mains := f.data.Category("Dania", "Mains")
	item := f.data.Item(soups.ID, "Żurek", "Sour rye soup", 1800)

	if _, err := f.svc.UpdateItem(ctx, item.ID, ItemPatch{ImageURL: nullable.NewNullableWithValue("https://img/zurek.png")}); err != nil {
		t.Fatalf("set image: %v", err)
	}

	updated, err := f.svc.UpdateItem(ctx, item.ID, ItemPatch{
		CategoryID: nullable.NewNullableWithValue(mains.ID),
		PriceCents: nullable.NewNullableWithValue[int64](2100),
	})
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if updated.CategoryID != mains.ID || updated.PriceCents != 2100 {
		t.Fatalf("updated = %+v", updated)
	}
	if updated.NamePL != "Żurek" || updated.ImageURL == nil {
		t.Fatalf("absent fields must stay untouched: %+v", updated)
	}

	cleared, err := f.svc.UpdateItem(ctx, item.ID, ItemPatch{ImageURL: nullable.NewNullNullable[string]()})
	if err != nil {
		t.Fatalf("clear image: %v", err)
	}
	if cleared.ImageURL != nil {
		t.Fatalf("image_url = %v, want nil", *cleared.ImageURL)
	}

	_, err = f.svc.UpdateItem(ctx, item.ID, ItemPatch{NamePL: nullable.NewNullNullable[string]()})
	if !errorbank.IsKind(err, errorbank.KindUnprocessableEntity) {
		t.Fatalf("null name err = %v, want unprocessable", err)
	}

	_, err = f.svc.UpdateItem(ctx, item.ID, ItemPatch{CategoryID: nullable.NewNullableWithValue(mains.ID + 50)})
	if !errorbank.IsKind(err, errorbank.KindUnprocessableEntity) {
		t.Fatalf("unknown category err = %v, want unprocessable", err)
	}

	_, err = f.svc.UpdateItem(ctx, item.ID+999, ItemPatch{})
	if !errorbank.IsKind(err, errorbank.KindNotFound) {
		t.Fatalf("missing item err = %v, want not found", err)
	}
}

func TestUpdateCategory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	category := f.data.Category("Zupy", "Soups")

	updated, err := f.svc.UpdateCategory(ctx, category.ID, CategoryPatch{NameEN: nullable.NewNullableWithValue("Broths")})
	if err != nil {
		t.Fatalf("UpdateCategory: %v", err)
	}
	if updated.NameEN != "Broths" || updated.NamePL != "Zupy" {
		t.Fatalf("updated = %+v", updated)
	}

	_, err = f.svc.UpdateCategory(ctx, category.ID+1, CategoryPatch{})
	if !errorbank.IsKind(err, errorbank.KindNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestDeleteConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	category := f.data.Category("Zupy", "Soups")
	item := f.data.Item(category.ID, "Żurek", "Sour rye soup", 1800)

	if err := f.svc.DeleteCategory(ctx, category.ID); !errorbank.IsKind(err, errorbank.KindConflict) {
		t.Fatalf("delete category in use err = %v, want conflict", err)
	}

	order := f.data.Order(1, "done", time.Now().UTC())
	f.data.Line(order.ID, item.ID, 1)
	if err := f.svc.DeleteItem(ctx, item.ID); !errorbank.IsKind(err, errorbank.KindConflict) {
		t.Fatalf("delete ordered item err = %v, want conflict", err)
	}

	other := f.data.Item(category.ID, "Rosół", "Broth", 1500)
	if err := f.svc.DeleteItem(ctx, other.ID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	if err := f.svc.DeleteItem(ctx, other.ID); !errorbank.IsKind(err, errorbank.KindNotFound) {
		t.Fatalf("second delete err = %v, want not found", err)
	}
}

func TestListingIsCachedAndInvalidated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	category := f.data.Category("Zupy", "Soups")
	item := f.data.Item(category.ID, "Żurek", "Sour rye soup", 1800)

	items, err := f.svc.ListItems(ctx)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(items) != 1 || !f.cache.cached(ItemsCacheKey) {
		t.Fatalf("expected one cached item, got %d (cached=%v)", len(items), f.cache.cached(ItemsCacheKey))
	}
	if _, err := f.svc.ListCategories(ctx); err != nil {
		t.Fatalf("ListCategories: %v", err)
	}

	blocked, err := f.svc.SetAvailability(ctx, item.ID, false)
	if err != nil {
		t.Fatalf("SetAvailability: %v", err)
	}
	if blocked.IsAvailable {
		t.Fatal("item should be blocked")
	}
	if f.cache.cached(ItemsCacheKey) || f.cache.cached(CategoriesCacheKey) {
		t.Fatal("write must invalidate both listings")
	}

	items, err = f.svc.ListItems(ctx)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if items[0].IsAvailable {
		t.Fatal("listing served stale availability")
	}
}

func TestWarmFillsCache(t *testing.T) {
	f := newFixture(t)
	f.data.Category("Zupy", "Soups")

	if err := f.svc.Warm(context.Background()); err != nil {
		t.Fatalf("Warm: %v", err)
	}
	if !f.cache.cached(CategoriesCacheKey) || !f.cache.cached(ItemsCacheKey) {
		t.Fatal("warm should populate both listings")
	}
}

func TestListingLoadedBeforeWriteIsNotServedAfterIt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	category := f.data.Category("Zupy", "Soups")
	item := f.data.Item(category.ID, "Żurek", "Sour rye soup", 1800)

	loaded := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.cache.onSet = func(key string) {
		if strings.HasPrefix(key, ItemsCacheKey+":") {
			once.Do(func() {
				close(loaded)
				<-release
			})
		}
	}

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.ListItems(ctx)
		done <- err
	}()

	// The listing has read the available item and is about to cache it.
	<-loaded
	if _, err := f.svc.SetAvailability(ctx, item.ID, false); err != nil {
		t.Fatalf("SetAvailability: %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("concurrent ListItems: %v", err)
	}

	items, err := f.svc.ListItems(ctx)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(items) != 1 || items[0].IsAvailable {
		t.Fatalf("items = %+v, want the blocked item", items)
	}
}
