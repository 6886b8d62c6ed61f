package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bomanihosts/backend/internal/domain/users"
	"github.com/bomanihosts/backend/internal/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

type UserRepository struct {
	pool *pgxpool.Pool
}

var _ users.Repository = (*UserRepository)(nil)

const userColumns = `id, username, email, password_hash, phone, is_host, is_active, created_at, updated_at`

func (r *UserRepository) Create(ctx context.Context, params users.NewUser) (_ *users.User, err error) {
	start := time.Now()
	defer func() { metrics.RecordQuery("insert_user", start, err) }()

	row := r.pool.QueryRow(ctx, `
INSERT INTO users (username, email, password_hash, phone, is_host)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+userColumns,
		params.Username, params.Email, params.PasswordHash, nullableText(params.Phone), params.IsHost,
	)
	user, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			switch pgErr.ConstraintName {
			case "users_username_key":
				return nil, users.ErrUsernameTaken
			case "users_email_lower_key":
				return nil, users.ErrEmailTaken
			}
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*users.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*users.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*users.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

// SetActive toggles whether the account may authenticate.
func (r *UserRepository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return users.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) getOne(ctx context.Context, sql string, arg any) (*users.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, sql, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, users.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*users.User, error) {
	var (
		user  users.User
		phone *string
	)
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&phone,
		&user.IsHost,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	user.Phone = derefString(phone)
	return &user, nil
}
