package contact

import (
	"time"
)

type Contact struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"-"`
	Name        string     `json:"name"`
	LastName    *string    `json:"last_name"`
	Phone       string     `json:"phone"`
	Email       *string    `json:"email"`
	Birthday    *time.Time `json:"birthday"`
	Description *string    `json:"description"`
}

// Patch carries a partial update; nil fields are left untouched.
type Patch struct {
	Name        *string    `json:"name"`
	LastName    *string    `json:"last_name"`
	Phone       *string    `json:"phone"`
	Email       *string    `json:"email"`
	Birthday    *time.Time `json:"birthday"`
	Description *string    `json:"description"`
}
