package user

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

var repoTracer = otel.Tracer("github.com/Additional-Code/bistro/repository/user")

var (
	// ErrNotFound is returned when no user matches.
	ErrNotFound = errors.New("user not found")
	// ErrUsernameTaken is returned when provisioning a duplicate username.
	ErrUsernameTaken = errors.New("username already exists")
)

// Repository reads and provisions manager accounts.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{writer: conns.Writer, reader: conns.Reader}
}

// GetByUsername looks a user up by login name.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*entity.ManagerUser, error) {
	ctx, span := repoTracer.Start(ctx, "UserRepository.GetByUsername")
	defer span.End()

	return r.selectOne(ctx, span, "username = ?", username)
}

// GetByID fetches a user by primary key.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.ManagerUser, error) {
	ctx, span := repoTracer.Start(ctx, "UserRepository.GetByID", trace.WithAttributes(attribute.Int64("user.id", id)))
	defer span.End()

	return r.selectOne(ctx, span, "id = ?", id)
}

// Create provisions a user; usernames are unique.
func (r *Repository) Create(ctx context.Context, u *entity.ManagerUser) error {
	if u == nil {
		return errors.New("nil user")
	}
	ctx, span := repoTracer.Start(ctx, "UserRepository.Create")
	defer span.End()

	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		taken, err := tx.NewSelect().Model((*entity.ManagerUser)(nil)).Where("username = ?", u.Username).Exists(ctx)
		if err != nil {
			return err
		}
		if taken {
			return ErrUsernameTaken
		}
		_, err = tx.NewInsert().Model(u).Exec(ctx)
		return err
	})
	if err != nil && !errors.Is(err, ErrUsernameTaken) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

func (r *Repository) selectOne(ctx context.Context, span trace.Span, where string, arg any) (*entity.ManagerUser, error) {
	u := new(entity.ManagerUser)
	err := r.reader.NewSelect().Model(u).Where(where, arg).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return u, nil
}
