package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/soloviev-dev/contactio/internal/domain/user"
)

var _ user.Repo = (*UserRepo)(nil)

type UserRepo struct {
	db *DB
}

func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const (
	qUserInsert = `
INSERT INTO users (username, email, password_hash, avatar, confirmed)
VALUES ($1, $2, $3, $4, FALSE)
RETURNING id, created_at;`

	qUserByEmail = `
SELECT id, username, email, password_hash, avatar, refresh_token, confirmed, created_at
FROM users
WHERE email = $1;`

	qUserSetRefresh = `
UPDATE users SET refresh_token = $2 WHERE email = $1;`

	// compare-and-swap: rotates only while the stored token still matches
	qUserSwapRefresh = `
UPDATE users SET refresh_token = $3 WHERE email = $1 AND refresh_token = $2;`

	qUserConfirm = `
UPDATE users SET confirmed = TRUE WHERE email = $1;`

	qUserSetAvatar = `
UPDATE users SET avatar = $2 WHERE email = $1
RETURNING id, username, email, password_hash, avatar, refresh_token, confirmed, created_at;`
)

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if err := r.db.Pool.QueryRow(ctx, qUserInsert, u.Username, u.Email, u.PasswordHash, u.Avatar).
		Scan(&u.ID, &u.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return user.ErrExists
		}
		return fmt.Errorf("user insert: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var u user.User
	if err := scanUser(r.db.Pool.QueryRow(ctx, qUserByEmail, email), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) SetRefreshToken(ctx context.Context, email string, token *string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Pool.Exec(ctx, qUserSetRefresh, email, token)
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UserRepo) SwapRefreshToken(ctx context.Context, email, current, next string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Pool.Exec(ctx, qUserSwapRefresh, email, current, next)
	if err != nil {
		return fmt.Errorf("swap refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrTokenMismatch
	}
	return nil
}

func (r *UserRepo) Confirm(ctx context.Context, email string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Pool.Exec(ctx, qUserConfirm, email)
	if err != nil {
		return fmt.Errorf("confirm email: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UserRepo) UpdateAvatar(ctx context.Context, email, url string) (*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var u user.User
	if err := scanUser(r.db.Pool.QueryRow(ctx, qUserSetAvatar, email, url), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func scanUser(row pgx.Row, out *user.User) error {
	if err := row.Scan(&out.ID, &out.Username, &out.Email, &out.PasswordHash,
		&out.Avatar, &out.RefreshToken, &out.Confirmed, &out.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.ErrNotFound
		}
		return fmt.Errorf("scan user: %w", err)
	}
	return nil
}
