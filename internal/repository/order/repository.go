package order

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/bistro/internal/database"
	"github.com/Additional-Code/bistro/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/bistro/repository/order")

// ErrNotFound is returned when an order is missing.
var ErrNotFound = errors.New("order not found")

// Period bounds a timestamp column. From is inclusive; To is inclusive
// unless ToExclusive is set.
type Period struct {
	From        *time.Time
	To          *time.Time
	ToExclusive bool
}

func (p Period) apply(q *bun.SelectQuery, column string) *bun.SelectQuery {
	if p.From != nil {
		q = q.Where(column+" >= ?", p.From.UTC())
	}
	if p.To != nil {
		op := " <= ?"
		if p.ToExclusive {
			op = " < ?"
		}
		q = q.Where(column+op, p.To.UTC())
	}
	return q
}

// Filter narrows ListOrders. An empty Status matches every status.
type Filter struct {
	Status string
	Period Period
}

// Line is an order line joined with the menu item it refers to.
type Line struct {
	ID         int64  `bun:"id"`
	MenuItemID int64  `bun:"menu_item_id"`
	Quantity   int    `bun:"quantity"`
	NamePL     string `bun:"name_pl"`
	NameEN     string `bun:"name_en"`
}

// TerminalCount is the number of ready events emitted by one terminal.
type TerminalCount struct {
	TerminalName string `bun:"terminal_name"`
	OrdersCount  int64  `bun:"orders_count"`
}

// ItemSales is the quantity sold of one menu item.
type ItemSales struct {
	MenuItemID int64  `bun:"menu_item_id"`
	NamePL     string `bun:"name_pl"`
	NameEN     string `bun:"name_en"`
	SoldCount  int64  `bun:"sold_count"`
}

// Repository provides read-only access to orders, their lines and event log.
type Repository struct {
	reader *bun.DB
}

// NewRepository wires a repository backed by the read connection.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{reader: conns.Reader}
}

// List returns orders matching the filter, newest first.
func (r *Repository) List(ctx context.Context, f Filter) ([]entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.List", trace.WithAttributes(attribute.String("order.status", f.Status)))
	defer span.End()

	orders := make([]entity.Order, 0)
	q := r.reader.NewSelect().Model(&orders)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	q = f.Period.apply(q, "created_at")

	if err := q.OrderExpr("created_at DESC, id DESC").Scan(ctx); err != nil {
		fail(span, err, "select failed")
		return nil, err
	}
	return orders, nil
}

// GetByID fetches an order by primary key.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		fail(span, err, "select failed")
		return nil, err
	}
	return order, nil
}

// Lines returns the order's lines with menu item names resolved now.
func (r *Repository) Lines(ctx context.Context, orderID int64) ([]Line, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Lines", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	lines := make([]Line, 0)
	err := r.reader.NewSelect().
		TableExpr("order_item AS oi").
		ColumnExpr("oi.id, oi.menu_item_id, oi.quantity, mi.name_pl, mi.name_en").
		Join("JOIN menu_item AS mi ON mi.id = oi.menu_item_id").
		Where("oi.order_id = ?", orderID).
		OrderExpr("oi.id ASC").
		Scan(ctx, &lines)
	if err != nil {
		fail(span, err, "select failed")
		return nil, err
	}
	return lines, nil
}

// Events returns the order's event log, oldest first.
func (r *Repository) Events(ctx context.Context, orderID int64) ([]entity.OrderEventLog, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Events", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	events := make([]entity.OrderEventLog, 0)
	err := r.reader.NewSelect().
		Model(&events).
		Where("order_id = ?", orderID).
		OrderExpr("? ASC, id ASC", bun.Ident("timestamp")).
		Scan(ctx)
	if err != nil {
		fail(span, err, "select failed")
		return nil, err
	}
	return events, nil
}

// ReadyCountsByTerminal counts ready events in [start, end) per terminal,
// ordered by terminal name.
func (r *Repository) ReadyCountsByTerminal(ctx context.Context, start, end time.Time) ([]TerminalCount, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ReadyCountsByTerminal", trace.WithAttributes(
		attribute.String("period.start", start.Format(time.RFC3339)),
	))
	defer span.End()

	counts := make([]TerminalCount, 0)
	err := r.reader.NewSelect().
		TableExpr("order_event_log AS e").
		ColumnExpr("e.terminal_name").
		ColumnExpr("COUNT(*) AS orders_count").
		Where("e.event_type = ?", entity.EventReady).
		Where("e.? >= ?", bun.Ident("timestamp"), start.UTC()).
		Where("e.? < ?", bun.Ident("timestamp"), end.UTC()).
		GroupExpr("e.terminal_name").
		OrderExpr("e.terminal_name ASC").
		Scan(ctx, &counts)
	if err != nil {
		fail(span, err, "aggregate failed")
		return nil, err
	}
	return counts, nil
}

// TopSellers sums line quantities per menu item over orders created in the
// period, highest first with ties broken by item id.
func (r *Repository) TopSellers(ctx context.Context, period Period, limit int) ([]ItemSales, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.TopSellers", trace.WithAttributes(attribute.Int("limit", limit)))
	defer span.End()

	sales := make([]ItemSales, 0)
	q := r.reader.NewSelect().
		TableExpr("order_item AS oi").
		ColumnExpr("mi.id AS menu_item_id, mi.name_pl, mi.name_en").
		ColumnExpr("SUM(oi.quantity) AS sold_count").
		Join("JOIN menu_item AS mi ON mi.id = oi.menu_item_id").
		Join("JOIN orders AS o ON o.id = oi.order_id")
	q = period.apply(q, "o.created_at")

	err := q.GroupExpr("mi.id, mi.name_pl, mi.name_en").
		OrderExpr("sold_count DESC, mi.id ASC").
		Limit(limit).
		Scan(ctx, &sales)
	if err != nil {
		fail(span, err, "aggregate failed")
		return nil, err
	}
	return sales, nil
}

func fail(span trace.Span, err error, msg string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
}
