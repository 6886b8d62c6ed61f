package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bomanihosts/backend/internal/domain/contact"
	"github.com/bomanihosts/backend/internal/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ContactRepository struct {
	pool *pgxpool.Pool
}

var _ contact.Repository = (*ContactRepository)(nil)

const contactColumns = `id, name, email, phone, subject, message, is_resolved, created_at`

func (r *ContactRepository) Create(ctx context.Context, msg contact.Message) (_ *contact.Message, err error) {
	start := time.Now()
	defer func() { metrics.RecordQuery("insert_contact", start, err) }()

	row := r.pool.QueryRow(ctx, `
INSERT INTO contact_messages (name, email, phone, subject, message)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+contactColumns,
		msg.Name, msg.Email, nullableText(msg.Phone), msg.Subject, msg.Body,
	)
	created, err := scanContact(row)
	if err != nil {
		return nil, fmt.Errorf("insert contact message: %w", err)
	}
	return created, nil
}

func (r *ContactRepository) GetByID(ctx context.Context, id int64) (*contact.Message, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+contactColumns+` FROM contact_messages WHERE id = $1`, id)
	msg, err := scanContact(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contact.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get contact message: %w", err)
	}
	return msg, nil
}

func (r *ContactRepository) List(ctx context.Context, filter contact.ListFilter) (_ []contact.Message, err error) {
	start := time.Now()
	defer func() { metrics.RecordQuery("list_contacts", start, err) }()

	limit := filter.Limit
	if limit <= 0 {
		limit = contact.DefaultListLimit
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+contactColumns+`
  FROM contact_messages
 WHERE (NOT $1 OR is_resolved = FALSE)
 ORDER BY created_at DESC, id DESC
 LIMIT $2`, filter.UnresolvedOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("list contact messages: %w", err)
	}
	defer rows.Close()

	var out []contact.Message
	for rows.Next() {
		msg, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact message: %w", err)
		}
		out = append(out, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contact messages: %w", err)
	}
	return out, nil
}

func (r *ContactRepository) MarkResolved(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE contact_messages SET is_resolved = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("resolve contact message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return contact.ErrNotFound
	}
	return nil
}

func scanContact(row pgx.Row) (*contact.Message, error) {
	var (
		msg   contact.Message
		phone *string
	)
	if err := row.Scan(&msg.ID, &msg.Name, &msg.Email, &phone, &msg.Subject, &msg.Body, &msg.IsResolved, &msg.CreatedAt); err != nil {
		return nil, err
	}
	msg.Phone = derefString(phone)
	return &msg, nil
}
