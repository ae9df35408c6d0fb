package shared

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Notification is a message surfaced to a dashboard user.
type Notification struct {
	UserID int64
	Title  string
	Body   string
	Kind   string
	Link   string
}

// Notifier delivers notifications. Injected into services that emit them;
// absent collaborators default to NopNotifier.
type Notifier interface {
	Create(ctx context.Context, n Notification) error
}

// PGNotifier stores notifications in the notifications table.
type PGNotifier struct {
	pool *pgxpool.Pool
}

// NewPGNotifier returns a PGNotifier.
func NewPGNotifier(pool *pgxpool.Pool) *PGNotifier {
	return &PGNotifier{pool: pool}
}

// Create inserts the notification row.
func (n *PGNotifier) Create(ctx context.Context, note Notification) error {
	if n == nil || n.pool == nil {
		return errors.New("notifier not initialised")
	}
	if note.Title == "" {
		return errors.New("notification requires a title")
	}
	_, err := n.pool.Exec(ctx, `INSERT INTO notifications (user_id, title, body, kind, link, created_at) VALUES ($1, $2, $3, $4, $5, NOW())`, note.UserID, note.Title, note.Body, note.Kind, note.Link)
	return err
}

// NopNotifier drops notifications.
type NopNotifier struct{}

// Create implements Notifier.
func (NopNotifier) Create(context.Context, Notification) error { return nil }
