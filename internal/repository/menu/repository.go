package menu

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/bistro/internal/database"
	"github.com/Additional-Code/bistro/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/bistro/repository/menu")

var (
	// ErrNotFound is returned when a category or item is missing.
	ErrNotFound = errors.New("menu record not found")
	// ErrCategoryMissing is returned when an item references an unknown category.
	ErrCategoryMissing = errors.New("menu category does not exist")
	// ErrInUse is returned when deleting a row that other rows still reference.
	ErrInUse = errors.New("menu record is still referenced")
)

// Repository encapsulates read/write access for the menu catalog.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{writer: conns.Writer, reader: conns.Reader}
}

// ListCategories returns every category ordered by id.
func (r *Repository) ListCategories(ctx context.Context) ([]entity.MenuCategory, error) {
	ctx, span := repoTracer.Start(ctx, "MenuRepository.ListCategories")
	defer span.End()

	categories := make([]entity.MenuCategory, 0)
	if err := r.reader.NewSelect().Model(&categories).OrderExpr("id ASC").Scan(ctx); err != nil {
		fail(span, err, "select failed")
		return nil, err
	}
	return categories, nil
}

// CreateCategory inserts a category and fills its id.
func (r *Repository) CreateCategory(ctx context.Context, c *entity.MenuCategory) error {
	ctx, span := repoTracer.Start(ctx, "MenuRepository.CreateCategory")
	defer span.End()

	if _, err := r.writer.NewInsert().Model(c).Exec(ctx); err != nil {
		fail(span, err, "insert failed")
		return err
	}
	return nil
}

// UpdateCategory loads a category, lets apply mutate it and writes it back
// inside one transaction. Errors from apply abort the update unchanged.
func (r *Repository) UpdateCategory(ctx context.Context, id int64, apply func(*entity.MenuCategory) error) (*entity.MenuCategory, error) {
	ctx, span := repoTracer.Start(ctx, "MenuRepository.UpdateCategory", trace.WithAttributes(attribute.Int64("category.id", id)))
	defer span.End()

	c := new(entity.MenuCategory)
	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := selectByID(ctx, tx, c, id); err != nil {
			return err
		}
		if err := apply(c); err != nil {
			return err
		}
		_, err := tx.NewUpdate().Model(c).WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		fail(span, err, "update failed")
		return nil, err
	}
	return c, nil
}

// DeleteCategory removes a category that no item references.
func (r *Repository) DeleteCategory(ctx context.Context, id int64) error {
	ctx, span := repoTracer.Start(ctx, "MenuRepository.DeleteCategory", trace.WithAttributes(attribute.Int64("category.id", id)))
	defer span.End()

	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := requireExists(ctx, tx, (*entity.MenuCategory)(nil), id); err != nil {
			return err
		}
		used, err := tx.NewSelect().Model((*entity.MenuItem)(nil)).Where("category_id = ?", id).Exists(ctx)
		if err != nil {
			return err
		}
		if used {
			return ErrInUse
		}
		_, err = tx.NewDelete().Model((*entity.MenuCategory)(nil)).Where("id = ?", id).Exec(ctx)
		return err
	})
	if err != nil {
		fail(span, err, "delete failed")
	}
	return err
}

// ListItems returns every menu item ordered by id.
func (r *Repository) ListItems(ctx context.Context) ([]entity.MenuItem, error) {
	ctx, span := repoTracer.Start(ctx, "MenuRepository.ListItems")
	defer span.End()

	items := make([]entity.MenuItem, 0)
	if err := r.reader.NewSelect().Model(&items).OrderExpr("id ASC").Scan(ctx); err != nil {
		fail(span, err, "select failed")
		return nil, err
	}
	return items, nil
}

// GetItem fetches a single menu item.
func (r *Repository) GetItem(ctx context.Context, id int64) (*entity.MenuItem, error) {
	ctx, span := repoTracer.Start(ctx, "MenuRepository.GetItem", trace.WithAttributes(attribute.Int64("item.id", id)))
	defer span.End()

	it := new(entity.MenuItem)
	if err := selectByID(ctx, r.reader, it, id); err != nil {
		fail(span, err, "select failed")
		return nil, err
	}
	return it, nil
}

// CreateItem inserts an item after checking its category exists.
func (r *Repository) CreateItem(ctx context.Context, it *entity.MenuItem) error {
	ctx, span := repoTracer.Start(ctx, "MenuRepository.CreateItem", trace.WithAttributes(attribute.Int64("category.id", it.CategoryID)))
	defer span.End()

	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := requireCategory(ctx, tx, it.CategoryID); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(it).Exec(ctx)
		return err
	})
	if err != nil {
		fail(span, err, "insert failed")
	}
	return err
}

// UpdateItem loads an item, applies the mutation and persists it. A changed
// category reference is re-validated.
func (r *Repository) UpdateItem(ctx context.Context, id int64, apply func(*entity.MenuItem) error) (*entity.MenuItem, error) {
	ctx, span := repoTracer.Start(ctx, "MenuRepository.UpdateItem", trace.WithAttributes(attribute.Int64("item.id", id)))
	defer span.End()

	it := new(entity.MenuItem)
	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := selectByID(ctx, tx, it, id); err != nil {
			return err
		}
		previousCategory := it.CategoryID
		if err := apply(it); err != nil {
			return err
		}
		if it.CategoryID != previousCategory {
			if err := requireCategory(ctx, tx, it.CategoryID); err != nil {
				return err
			}
		}
		_, err := tx.NewUpdate().Model(it).WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		fail(span, err, "update failed")
		return nil, err
	}
	return it, nil
}

// DeleteItem removes an item that no order line references.
func (r *Repository) DeleteItem(ctx context.Context, id int64) error {
	ctx, span := repoTracer.Start(ctx, "MenuRepository.DeleteItem", trace.WithAttributes(attribute.Int64("item.id", id)))
	defer span.End()

	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := requireExists(ctx, tx, (*entity.MenuItem)(nil), id); err != nil {
			return err
		}
		used, err := tx.NewSelect().Model((*entity.OrderItem)(nil)).Where("menu_item_id = ?", id).Exists(ctx)
		if err != nil {
			return err
		}
		if used {
			return ErrInUse
		}
		_, err = tx.NewDelete().Model((*entity.MenuItem)(nil)).Where("id = ?", id).Exec(ctx)
		return err
	})
	if err != nil {
		fail(span, err, "delete failed")
	}
	return err
}

// SetAvailability flips the availability flag and returns the stored item.
func (r *Repository) SetAvailability(ctx context.Context, id int64, available bool) (*entity.MenuItem, error) {
	ctx, span := repoTracer.Start(ctx, "MenuRepository.SetAvailability", trace.WithAttributes(
		attribute.Int64("item.id", id),
		attribute.Bool("item.available", available),
	))
	defer span.End()

	return r.UpdateItem(ctx, id, func(it *entity.MenuItem) error {
		it.IsAvailable = available
		return nil
	})
}

func selectByID(ctx context.Context, db bun.IDB, model any, id int64) error {
	err := db.NewSelect().Model(model).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func requireExists(ctx context.Context, db bun.IDB, model any, id int64) error {
	ok, err := db.NewSelect().Model(model).Where("id = ?", id).Exists(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func requireCategory(ctx context.Context, db bun.IDB, id int64) error {
	err := requireExists(ctx, db, (*entity.MenuCategory)(nil), id)
	if errors.Is(err, ErrNotFound) {
		return ErrCategoryMissing
	}
	return err
}

// fail records unexpected errors on the span; domain sentinels are not failures.
func fail(span trace.Span, err error, msg string) {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrCategoryMissing) || errors.Is(err, ErrInUse) {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
}
