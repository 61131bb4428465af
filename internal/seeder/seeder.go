package seeder

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/bistro/internal/database"
	"github.com/Additional-Code/bistro/internal/entity"
	"github.com/Additional-Code/bistro/internal/security"
)

// Module provides the seeder to Fx.
var Module = fx.Provide(New)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	logger *zap.Logger
	now    func() time.Time
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, logger: logger, now: time.Now}
}

// Manager creates the demo manager unless the username is taken.
func (s *Seeder) Manager(ctx context.Context, username, password string) error {
	hash, err := security.HashPassword(password)
	if err != nil {
		return err
	}
	user := &entity.ManagerUser{Username: username, PasswordHash: hash, Role: entity.RoleManager}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().Model((*entity.ManagerUser)(nil)).Where("username = ?", username).Exists(ctx)
		if err != nil || exists {
			return err
		}
		if _, err := tx.NewInsert().Model(user).Exec(ctx); err != nil {
			return err
		}
		s.logger.Info("seeded manager", zap.String("username", username))
		return nil
	})
}

type sampleItem struct {
	namePL, nameEN string
	priceCents     int64
}

type sampleCategory struct {
	namePL, nameEN string
	items          []sampleItem
}

var catalog = []sampleCategory{
	{"Zupy", "Soups", []sampleItem{
		{"Żurek", "Sour rye soup", 1800},
		{"Rosół", "Chicken broth", 1500},
	}},
	{"Dania główne", "Main courses", []sampleItem{
		{"Pierogi ruskie", "Potato and cheese dumplings", 2600},
		{"Schabowy", "Breaded pork cutlet", 3400},
		{"Gołąbki", "Stuffed cabbage rolls", 2900},
	}},
	{"Desery", "Desserts", []sampleItem{
		{"Sernik", "Cheesecake", 1600},
		{"Szarlotka", "Apple pie", 1400},
	}},
}

var terminals = []string{"Kiosk-1", "Kiosk-2", "Counter"}

// Demo seeds the menu and a day of orders with lines and event history.
// It does nothing when the menu already has categories.
func (s *Seeder) Demo(ctx context.Context) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		seeded, err := tx.NewSelect().Model((*entity.MenuCategory)(nil)).Exists(ctx)
		if err != nil {
			return err
		}
		if seeded {
			s.logger.Info("menu already present; skipping demo data")
			return nil
		}

		items, err := s.menu(ctx, tx)
		if err != nil {
			return err
		}
		orders, err := s.orders(ctx, tx, items)
		if err != nil {
			return err
		}

		s.logger.Info("seeded demo data", zap.Int("items", len(items)), zap.Int("orders", orders))
		return nil
	})
}

func (s *Seeder) menu(ctx context.Context, tx bun.Tx) ([]entity.MenuItem, error) {
	var items []entity.MenuItem
	for _, sc := range catalog {
		category := &entity.MenuCategory{NamePL: sc.namePL, NameEN: sc.nameEN}
		if _, err := tx.NewInsert().Model(category).Exec(ctx); err != nil {
			return nil, fmt.Errorf("seed category %s: %w", sc.nameEN, err)
		}
		for _, si := range sc.items {
			item := entity.MenuItem{
				CategoryID:  category.ID,
				NamePL:      si.namePL,
				NameEN:      si.nameEN,
				PriceCents:  si.priceCents,
				IsAvailable: true,
			}
			if _, err := tx.NewInsert().Model(&item).Exec(ctx); err != nil {
				return nil, fmt.Errorf("seed item %s: %w", si.nameEN, err)
			}
			items = append(items, item)
		}
	}
	return items, nil
}

// orders writes twelve orders spread over the last hours. Every other order
// is ready; the rest are still in preparation.
func (s *Seeder) orders(ctx context.Context, tx bun.Tx, items []entity.MenuItem) (int, error) {
	const count = 12
	base := s.now().UTC().Truncate(time.Hour).Add(-count * 20 * time.Minute)

	for i := 0; i < count; i++ {
		created := base.Add(time.Duration(i) * 20 * time.Minute)
		terminal := terminals[i%len(terminals)]
		language := "pl"
		if i%3 == 0 {
			language = entity.LanguageEN
		}

		order := &entity.Order{
			OrderNumber: 100 + i,
			Status:      "in_preparation",
			Type:        []string{"dine-in", "takeaway"}[i%2],
			CreatedAt:   created,
			Language:    language,
		}
		ready := i%2 == 0
		if ready {
			readyAt := created.Add(12 * time.Minute)
			order.Status = entity.EventReady
			order.ReadyAt = &readyAt
		}
		if _, err := tx.NewInsert().Model(order).Exec(ctx); err != nil {
			return 0, fmt.Errorf("seed order %d: %w", order.OrderNumber, err)
		}

		lines := []entity.OrderItem{
			{OrderID: order.ID, MenuItemID: items[i%len(items)].ID, Quantity: 1 + i%3},
			{OrderID: order.ID, MenuItemID: items[(i*5+2)%len(items)].ID, Quantity: 1},
		}
		if _, err := tx.NewInsert().Model(&lines).Exec(ctx); err != nil {
			return 0, fmt.Errorf("seed lines for order %d: %w", order.OrderNumber, err)
		}

		events := []entity.OrderEventLog{
			{OrderID: order.ID, EventType: "created", TerminalName: terminal, Timestamp: created, NewStatus: "new"},
			{OrderID: order.ID, EventType: "accepted", TerminalName: terminal, Timestamp: created.Add(time.Minute), NewStatus: "in_preparation"},
		}
		if ready {
			events = append(events, entity.OrderEventLog{
				OrderID: order.ID, EventType: entity.EventReady, TerminalName: terminal,
				Timestamp: *order.ReadyAt, NewStatus: entity.EventReady,
			})
		}
		if _, err := tx.NewInsert().Model(&events).Exec(ctx); err != nil {
			return 0, fmt.Errorf("seed events for order %d: %w", order.OrderNumber, err)
		}
	}
	return count, nil
}
