// Package contacts implements the per-user contact book.
package contacts

import (
	"context"
	"time"

	"github.com/soloviev-dev/contactio/internal/domain/contact"
)

const defaultListLimit = 100

type Usecase struct {
	contacts contact.Repo
	now      func() time.Time
}

func NewUsecase(contacts contact.Repo, now func() time.Time) *Usecase {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Usecase{contacts: contacts, now: now}
}

func (u *Usecase) List(ctx context.Context, userID int64, skip, limit int) ([]contact.Contact, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	return u.contacts.List(ctx, userID, skip, limit)
}

func (u *Usecase) Get(ctx context.Context, userID, id int64) (*contact.Contact, error) {
	return u.contacts.GetByID(ctx, userID, id)
}

func (u *Usecase) Create(ctx context.Context, c *contact.Contact) error {
	return u.contacts.Create(ctx, c)
}

func (u *Usecase) Update(ctx context.Context, userID, id int64, p contact.Patch) (*contact.Contact, error) {
	return u.contacts.Update(ctx, userID, id, p)
}

func (u *Usecase) Delete(ctx context.Context, userID, id int64) (*contact.Contact, error) {
	return u.contacts.Delete(ctx, userID, id)
}

func (u *Usecase) Search(ctx context.Context, userID int64, q string) ([]contact.Contact, error) {
	return u.contacts.Search(ctx, userID, q)
}

// UpcomingBirthdays returns the user's contacts whose birthday falls within
// the next seven days. Birthdays are normalized to their next occurrence, so
// a late-December window picks up early-January birthdays.
func (u *Usecase) UpcomingBirthdays(ctx context.Context, userID int64) ([]contact.Contact, error) {
	all, err := u.contacts.List(ctx, userID, 0, 0)
	if err != nil {
		return nil, err
	}

	today := dateOnly(u.now())
	weekAfter := today.AddDate(0, 0, 7)

	out := make([]contact.Contact, 0)
	for _, c := range all {
		if c.Birthday == nil {
			continue
		}
		next := nextOccurrence(*c.Birthday, today)
		if next.After(today) && !next.After(weekAfter) {
			out = append(out, c)
		}
	}
	return out, nil
}

func nextOccurrence(birthday, today time.Time) time.Time {
	occ := time.Date(today.Year(), birthday.Month(), birthday.Day(), 0, 0, 0, 0, time.UTC)
	if !occ.After(today) {
		occ = occ.AddDate(1, 0, 0)
	}
	return occ
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
