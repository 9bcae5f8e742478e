package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/event-booking-engine/internal/model"
)

// NotificationRepo is the in-app inbox.
type NotificationRepo struct {
	db *sqlx.DB
}

func NewNotificationRepo(db *sqlx.DB) *NotificationRepo { return &NotificationRepo{db: db} }

type notificationRecord struct {
	ID        int64     `db:"id"`
	Username  string    `db:"username"`
	Message   string    `db:"message"`
	Kind      string    `db:"kind"`
	Read      bool      `db:"is_read"`
	CreatedAt time.Time `db:"created_at"`
}

// AddNotification stores n under a fresh id.  Kind defaults to user.
func (r *NotificationRepo) AddNotification(ctx context.Context, n model.Notification) error {
	id, err := nextVal(ctx, r.db, "notification")
	if err != nil {
		return storageErr("add notification", err)
	}
	if n.Kind == "" {
		n.Kind = model.NotificationUser
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO notifications (id, username, message, kind, is_read, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, n.Username, n.Message, n.Kind, n.Read, n.CreatedAt.UTC())
	if err != nil {
		return storageErr("add notification", err)
	}
	return nil
}

// ListNotifications returns username's notifications newest first.  An
// empty kind matches every kind.
func (r *NotificationRepo) ListNotifications(ctx context.Context, username, kind string) ([]model.Notification, error) {
	q := `SELECT id, username, message, kind, is_read, created_at FROM notifications WHERE username = ?`
	args := []any{username}
	if kind != "" {
		q += ` AND kind = ?`
		args = append(args, kind)
	}
	q += ` ORDER BY id DESC`

	var recs []notificationRecord
	if err := r.db.SelectContext(ctx, &recs, q, args...); err != nil {
		return nil, storageErr("list notifications", err)
	}
	out := make([]model.Notification, 0, len(recs))
	for _, rec := range recs {
		out = append(out, model.Notification{
			ID: rec.ID, Username: rec.Username, Message: rec.Message,
			Kind: rec.Kind, Read: rec.Read, CreatedAt: rec.CreatedAt.UTC(),
		})
	}
	return out, nil
}

func (r *NotificationRepo) UnreadCount(ctx context.Context, username string) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM notifications WHERE username = ? AND is_read = 0`, username); err != nil {
		return 0, storageErr("count notifications", err)
	}
	return n, nil
}

// MarkRead flags one of username's notifications as read.
func (r *NotificationRepo) MarkRead(ctx context.Context, username string, id int64) error {
	var owner string
	err := r.db.GetContext(ctx, &owner, `SELECT username FROM notifications WHERE id = ?`, id)
	if err != nil {
		return notFoundOr("mark notification", "notification", id, err)
	}
	if owner != username {
		return model.NotFound("notification", id)
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ?`, id); err != nil {
		return storageErr("mark notification", err)
	}
	return nil
}

func (r *NotificationRepo) MarkAllRead(ctx context.Context, username string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE username = ? AND is_read = 0`, username); err != nil {
		return storageErr("mark notifications", err)
	}
	return nil
}

// DeleteNotification removes one of username's notifications.
func (r *NotificationRepo) DeleteNotification(ctx context.Context, username string, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = ? AND username = ?`, id, username)
	if err != nil {
		return storageErr("delete notification", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.NotFound("notification", id)
	}
	return nil
}
