package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/soloviev-dev/contactio/internal/domain/contact"
)

var _ contact.Repo = (*ContactRepo)(nil)

type ContactRepo struct {
	db *DB
}

func NewContactRepo(db *DB) *ContactRepo { return &ContactRepo{db: db} }

const (
	contactColumns = `id, user_id, name, last_name, phone, email, b_day, description`

	qContactInsert = `
INSERT INTO contacts (user_id, name, last_name, phone, email, b_day, description)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id;`

	qContactByID = `
SELECT ` + contactColumns + `
FROM contacts
WHERE user_id = $1 AND id = $2;`

	qContactList = `
SELECT ` + contactColumns + `
FROM contacts
WHERE user_id = $1
ORDER BY id
OFFSET $2;`

	qContactListLimit = `
SELECT ` + contactColumns + `
FROM contacts
WHERE user_id = $1
ORDER BY id
OFFSET $2 LIMIT $3;`

	qContactSearch = `
SELECT ` + contactColumns + `
FROM contacts
WHERE user_id = $1
  AND (name ILIKE $2 OR last_name ILIKE $2 OR email ILIKE $2)
ORDER BY id;`

	qContactDelete = `
DELETE FROM contacts WHERE user_id = $1 AND id = $2;`
)

func (r *ContactRepo) Create(ctx context.Context, c *contact.Contact) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if err := r.db.Pool.QueryRow(ctx, qContactInsert,
		c.UserID, c.Name, c.LastName, c.Phone, c.Email, c.Birthday, c.Description).
		Scan(&c.ID); err != nil {
		return fmt.Errorf("contact insert: %w", err)
	}
	return nil
}

func (r *ContactRepo) GetByID(ctx context.Context, userID, id int64) (*contact.Contact, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var c contact.Contact
	if err := scanContact(r.db.Pool.QueryRow(ctx, qContactByID, userID, id), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns the user's contacts in id order. limit <= 0 means no limit.
func (r *ContactRepo) List(ctx context.Context, userID int64, skip, limit int) ([]contact.Contact, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var (
		rows pgx.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.db.Pool.Query(ctx, qContactListLimit, userID, skip, limit)
	} else {
		rows, err = r.db.Pool.Query(ctx, qContactList, userID, skip)
	}
	if err != nil {
		return nil, fmt.Errorf("contact list: %w", err)
	}
	return collectContacts(rows)
}

// Search matches q as a substring of name, last name or email.
func (r *ContactRepo) Search(ctx context.Context, userID int64, q string) ([]contact.Contact, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	pattern := "%" + escapeLike(q) + "%"
	rows, err := r.db.Pool.Query(ctx, qContactSearch, userID, pattern)
	if err != nil {
		return nil, fmt.Errorf("contact search: %w", err)
	}
	return collectContacts(rows)
}

func (r *ContactRepo) Update(ctx context.Context, userID, id int64, p contact.Patch) (*contact.Contact, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	set := make([]string, 0, 6)
	args := []any{userID, id}
	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.LastName != nil {
		add("last_name", *p.LastName)
	}
	if p.Phone != nil {
		add("phone", *p.Phone)
	}
	if p.Email != nil {
		add("email", *p.Email)
	}
	if p.Birthday != nil {
		add("b_day", *p.Birthday)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if len(set) == 0 {
		return r.GetByID(ctx, userID, id)
	}

	q := `UPDATE contacts SET ` + strings.Join(set, ", ") +
		` WHERE user_id = $1 AND id = $2 RETURNING ` + contactColumns + `;`

	var c contact.Contact
	if err := scanContact(r.db.Pool.QueryRow(ctx, q, args...), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ContactRepo) Delete(ctx context.Context, userID, id int64) (*contact.Contact, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	c, err := r.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if _, err := r.db.Pool.Exec(ctx, qContactDelete, userID, id); err != nil {
		return nil, fmt.Errorf("contact delete: %w", err)
	}
	return c, nil
}

func scanContact(row pgx.Row, out *contact.Contact) error {
	if err := row.Scan(&out.ID, &out.UserID, &out.Name, &out.LastName,
		&out.Phone, &out.Email, &out.Birthday, &out.Description); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return contact.ErrNotFound
		}
		return fmt.Errorf("scan contact: %w", err)
	}
	return nil
}

func collectContacts(rows pgx.Rows) ([]contact.Contact, error) {
	defer rows.Close()

	var out []contact.Contact
	for rows.Next() {
		var c contact.Contact
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.LastName,
			&c.Phone, &c.Email, &c.Birthday, &c.Description); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contacts: %w", err)
	}
	return out, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
