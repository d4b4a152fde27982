package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kirillkom/document-approval/internal/core/domain"
)

type NotificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) CreateNotification(ctx context.Context, n *domain.Notification) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO notifications (id, user_id, type, message_key, title, body, priority, link, read_at, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`, n.ID, n.UserID, n.Type, n.MessageKey, n.Title, n.Body, n.Priority, n.Link, n.ReadAt, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (r *NotificationRepository) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	query := `
SELECT id, user_id, type, message_key, title, body, priority, link, read_at, created_at
FROM notifications
WHERE user_id = $1
`
	if unreadOnly {
		query += "AND read_at IS NULL\n"
	}
	query += "ORDER BY created_at DESC, id\nLIMIT $2"

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}

// MarkNotificationRead is idempotent; the first read time is kept.
func (r *NotificationRepository) MarkNotificationRead(ctx context.Context, userID, notificationID string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE notifications
SET read_at = COALESCE(read_at, $3)
WHERE user_id = $1 AND id = $2
`, userID, notificationID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark notification read rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, "mark notification read", fmt.Errorf("notification %s", notificationID))
	}
	return nil
}

func scanNotification(row rowScanner) (domain.Notification, error) {
	var n domain.Notification
	err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.Type,
		&n.MessageKey,
		&n.Title,
		&n.Body,
		&n.Priority,
		&n.Link,
		&n.ReadAt,
		&n.CreatedAt,
	)
	if err != nil {
		return domain.Notification{}, err
	}
	return n, nil
}
