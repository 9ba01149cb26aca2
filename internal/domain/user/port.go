package user

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound means no account exists for the given email.
	ErrNotFound = errors.New("account not found")

	// ErrExists means the email is already taken.
	ErrExists = errors.New("account already exists")

	// ErrTokenMismatch is returned by SwapRefreshToken when the stored
	// token no longer equals the presented one.
	ErrTokenMismatch = errors.New("refresh token mismatch")

	// ErrCacheMiss is returned by Cache.Get when no entry exists or the
	// entry has expired.
	ErrCacheMiss = errors.New("identity cache miss")
)

type Repo interface {
	Create(ctx context.Context, u *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	// SetRefreshToken unconditionally overwrites the stored refresh token.
	// nil clears it.
	SetRefreshToken(ctx context.Context, email string, token *string) error
	// SwapRefreshToken replaces the stored refresh token with next only if
	// it currently equals current. ErrTokenMismatch otherwise.
	SwapRefreshToken(ctx context.Context, email, current, next string) error
	Confirm(ctx context.Context, email string) error
	UpdateAvatar(ctx context.Context, email, url string) (*User, error)
}

// Cache is the read-through identity cache keyed by email. It is not
// authoritative; entries expire after the TTL passed to Put.
type Cache interface {
	Get(ctx context.Context, email string) (*User, error)
	Put(ctx context.Context, email string, u *User, ttl time.Duration) error
	Invalidate(ctx context.Context, email string) error
}
