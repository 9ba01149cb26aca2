package contact

import (
	"context"
	"errors"
)

// ErrNotFound covers both a missing contact id and one owned by another user.
var ErrNotFound = errors.New("contact not found")

// Repo is the per-user contact store. Every query is scoped by the owning
// user id; a contact id belonging to another user behaves as absent.
type Repo interface {
	Create(ctx context.Context, c *Contact) error
	GetByID(ctx context.Context, userID, id int64) (*Contact, error)
	List(ctx context.Context, userID int64, skip, limit int) ([]Contact, error)
	Search(ctx context.Context, userID int64, q string) ([]Contact, error)
	Update(ctx context.Context, userID, id int64, p Patch) (*Contact, error)
	Delete(ctx context.Context, userID, id int64) (*Contact, error)
}
