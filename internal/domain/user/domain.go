package user

import (
	"time"
)

// User is the account record. PasswordHash never leaves the service layer
// and RefreshToken holds the single live refresh token value (nil = none).
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Avatar       *string   `json:"avatar"`
	RefreshToken *string   `json:"-"`
	Confirmed    bool      `json:"confirmed"`
	CreatedAt    time.Time `json:"created_at"`
}

// Snapshot is the cacheable projection of a User. It carries everything
// identity resolution needs, including the password hash, because the
// snapshot substitutes for a store read on the hot path.
type Snapshot struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Avatar       *string   `json:"avatar"`
	Confirmed    bool      `json:"confirmed"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u *User) Snapshot() Snapshot {
	return Snapshot{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Avatar:       u.Avatar,
		Confirmed:    u.Confirmed,
		CreatedAt:    u.CreatedAt,
	}
}

func (s Snapshot) User() *User {
	return &User{
		ID:           s.ID,
		Username:     s.Username,
		Email:        s.Email,
		PasswordHash: s.PasswordHash,
		Avatar:       s.Avatar,
		Confirmed:    s.Confirmed,
		CreatedAt:    s.CreatedAt,
	}
}
