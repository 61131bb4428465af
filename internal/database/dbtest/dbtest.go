// Package dbtest provides migrated sqlite databases and row fixtures for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/Additional-Code/bistro/internal/config"
	"github.com/Additional-Code/bistro/internal/database"
	"github.com/Additional-Code/bistro/internal/entity"
	"github.com/Additional-Code/bistro/internal/migration"
)

// Config returns a sqlite database configuration rooted in a test temp dir.
// A single pooled connection keeps statement ordering deterministic.
func Config(t testing.TB) config.Database {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "bistro.db")
	return config.Database{
		Driver:       "sqlite",
		WriterDSN:    dsn,
		ReaderDSN:    dsn,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}
}

// New opens a fresh database and applies the embedded migrations.
func New(t testing.TB) *database.Connections {
	t.Helper()

	conns, err := database.Open(Config(t))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = conns.Close() })

	mig, err := migration.New(conns, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("migrator: %v", err)
	}
	if err := mig.Up(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conns
}

// Fixtures inserts rows directly, bypassing services.
type Fixtures struct {
	t     testing.TB
	conns *database.Connections
}

// NewFixtures binds fixture helpers to a database.
func NewFixtures(t testing.TB, conns *database.Connections) *Fixtures {
	return &Fixtures{t: t, conns: conns}
}

func (f *Fixtures) insert(model any) {
	f.t.Helper()
	if _, err := f.conns.Writer.NewInsert().Model(model).Exec(context.Background()); err != nil {
		f.t.Fatalf("insert %T: %v", model, err)
	}
}

// Category inserts a menu category.
func (f *Fixtures) Category(namePL, nameEN string) *entity.MenuCategory {
	f.t.Helper()
	c := &entity.MenuCategory{NamePL: namePL, NameEN: nameEN}
	f.insert(c)
	return c
}

// Item inserts an available menu item.
func (f *Fixtures) Item(categoryID int64, namePL, nameEN string, priceCents int64) *entity.MenuItem {
	f.t.Helper()
	it := &entity.MenuItem{
		CategoryID:  categoryID,
		NamePL:      namePL,
		NameEN:      nameEN,
		PriceCents:  priceCents,
		IsAvailable: true,
	}
	f.insert(it)
	return it
}

// Order inserts an order created at the given time.
func (f *Fixtures) Order(number int, status string, createdAt time.Time) *entity.Order {
	f.t.Helper()
	o := &entity.Order{
		OrderNumber: number,
		Status:      status,
		Type:        "dine-in",
		CreatedAt:   createdAt.UTC(),
		Language:    "pl",
	}
	f.insert(o)
	return o
}

// Line inserts an order line.
func (f *Fixtures) Line(orderID, menuItemID int64, quantity int) *entity.OrderItem {
	f.t.Helper()
	li := &entity.OrderItem{OrderID: orderID, MenuItemID: menuItemID, Quantity: quantity}
	f.insert(li)
	return li
}

// Event inserts an order event log row.
func (f *Fixtures) Event(orderID int64, eventType, terminal string, at time.Time, newStatus string) *entity.OrderEventLog {
	f.t.Helper()
	ev := &entity.OrderEventLog{
		OrderID:      orderID,
		EventType:    eventType,
		TerminalName: terminal,
		Timestamp:    at.UTC(),
		NewStatus:    newStatus,
	}
	f.insert(ev)
	return ev
}

// User inserts a manager with an already hashed password.
func (f *Fixtures) User(username, passwordHash string) *entity.ManagerUser {
	f.t.Helper()
	u := &entity.ManagerUser{Username: username, PasswordHash: passwordHash, Role: entity.RoleManager}
	f.insert(u)
	return u
}
