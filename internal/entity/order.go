package entity

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// LanguageEN selects English item names; every other language falls back to Polish.
const LanguageEN = "en"

// IsEnglish reports whether language selects English names, ignoring case.
func IsEnglish(language string) bool {
	return strings.EqualFold(strings.TrimSpace(language), LanguageEN)
}

// EventReady marks an order as handed over by a terminal.
const EventReady = "ready"

// Order is written by the external ordering pipeline and only read here.
// Status and Type are free-form strings.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID          int64      `bun:",pk,autoincrement"`
	OrderNumber int        `bun:"order_number"`
	Status      string     `bun:"status"`
	Type        string     `bun:"type"`
	CreatedAt   time.Time  `bun:"created_at"`
	ReadyAt     *time.Time `bun:"ready_at"`
	Language    string     `bun:"language"`
}

// OrderItem is a single order line.
type OrderItem struct {
	bun.BaseModel `bun:"table:order_item"`

	ID         int64 `bun:",pk,autoincrement"`
	OrderID    int64 `bun:"order_id,notnull"`
	MenuItemID int64 `bun:"menu_item_id,notnull"`
	Quantity   int   `bun:"quantity,notnull"`
}

// OrderEventLog is an append-only status transition emitted by a terminal.
type OrderEventLog struct {
	bun.BaseModel `bun:"table:order_event_log"`

	ID           int64     `bun:",pk,autoincrement"`
	OrderID      int64     `bun:"order_id,notnull"`
	EventType    string    `bun:"event_type"`
	TerminalName string    `bun:"terminal_name"`
	Timestamp    time.Time `bun:"timestamp"`
	NewStatus    string    `bun:"new_status"`
}
