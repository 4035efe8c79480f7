package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/foodshare/internal/model"
)

const notificationColumns = `id, user_id, type, title, message, listing_id, read, created_at`

func scanNotification(row rowScanner) (*model.Notification, error) {
	var (
		n   model.Notification
		typ string
	)
	if err := row.Scan(&n.ID, &n.UserID, &typ, &n.Title, &n.Message, &n.ListingID, &n.Read, &n.CreatedAt); err != nil {
		return nil, err
	}
	n.Type = model.NotificationType(typ)
	return &n, nil
}

// CreateNotification сохраняет уведомление пользователя.
func (r *PostgresRepository) CreateNotification(ctx context.Context, n *model.Notification) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO notifications (id, user_id, type, title, message, listing_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING read, created_at`,
		n.ID, n.UserID, string(n.Type), n.Title, n.Message, n.ListingID,
	).Scan(&n.Read, &n.CreatedAt)
	if err != nil {
		return persistenceError("insert notification", err)
	}
	return nil
}

// ListNotifications возвращает уведомления пользователя, новые первыми.
func (r *PostgresRepository) ListNotifications(ctx context.Context, userID string) ([]model.Notification, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select notifications: %w", err)
	}
	defer rows.Close()

	var res []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		res = append(res, *n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// MarkNotificationRead помечает уведомление пользователя прочитанным.
func (r *PostgresRepository) MarkNotificationRead(ctx context.Context, id, userID string) (*model.Notification, error) {
	n, err := scanNotification(r.pool.QueryRow(ctx,
		`UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2 RETURNING `+notificationColumns,
		id, userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, persistenceError("mark notification read", err)
	}
	return n, nil
}

// MarkAllNotificationsRead помечает все непрочитанные уведомления пользователя.
func (r *PostgresRepository) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE notifications SET read = true WHERE user_id = $1 AND read = false`,
		userID,
	)
	if err != nil {
		return 0, persistenceError("mark notifications read", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteNotification удаляет уведомление пользователя.
func (r *PostgresRepository) DeleteNotification(ctx context.Context, id, userID string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM notifications WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return persistenceError("delete notification", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
