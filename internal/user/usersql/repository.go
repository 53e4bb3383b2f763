package usersql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"

	"github.com/openkcm/identity-provider/internal/serviceerr"
	"github.com/openkcm/identity-provider/internal/user"
)

type Repository struct {
	db *pgxpool.Pool
}

var _ = user.Repository(&Repository{})

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) Create(ctx context.Context, u user.User) error {
	tracer := otel.GetTracerProvider()
	ctx, span := tracer.Tracer("").Start(ctx, "create_user_sql")
	defer span.End()

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO users (id, email, display_name, avatar_url, password_hash, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6);`,
		u.ID, u.Email, u.DisplayName, u.AvatarURL, u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		span.RecordError(err)
		if err, ok := handlePgError(err); ok {
			return err
		}

		return fmt.Errorf("inserting into users: %w", err)
	}

	err = tx.Commit(ctx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (user.User, error) {
	tracer := otel.GetTracerProvider()
	ctx, span := tracer.Tracer("").Start(ctx, "find_user_by_id_sql")
	defer span.End()

	row := r.db.QueryRow(ctx,
		`SELECT id, email, display_name, avatar_url, password_hash, created_at FROM users WHERE id = $1;`, id)

	u, err := scanUser(row)
	if err != nil {
		span.RecordError(err)
		return user.User{}, err
	}

	return u, nil
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (user.User, error) {
	tracer := otel.GetTracerProvider()
	ctx, span := tracer.Tracer("").Start(ctx, "find_user_by_email_sql")
	defer span.End()

	row := r.db.QueryRow(ctx,
		`SELECT id, email, display_name, avatar_url, password_hash, created_at FROM users WHERE email = $1;`, email)

	u, err := scanUser(row)
	if err != nil {
		span.RecordError(err)
		return user.User{}, err
	}

	return u, nil
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.AvatarURL, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, serviceerr.ErrNotFound
		}

		return user.User{}, fmt.Errorf("scanning row: %w", err)
	}

	return u, nil
}
