package service

import (
	"context"

	"github.com/mmeshcher/foodshare/internal/model"
)

// ListNotifications возвращает уведомления пользователя.
func (s *Service) ListNotifications(ctx context.Context, userID string) ([]model.Notification, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.repo.ListNotifications(ctx, userID)
}

// MarkNotificationRead помечает уведомление прочитанным.
func (s *Service) MarkNotificationRead(ctx context.Context, userID, id string) (*model.Notification, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	n, err := s.repo.MarkNotificationRead(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	s.publish(model.TableNotifications, model.EventUpdate, n, nil)
	return n, nil
}

// MarkAllNotificationsRead помечает прочитанными все уведомления пользователя.
func (s *Service) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.repo.MarkAllNotificationsRead(ctx, userID)
}

// DeleteNotification удаляет уведомление пользователя.
func (s *Service) DeleteNotification(ctx context.Context, userID, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.repo.DeleteNotification(ctx, id, userID); err != nil {
		return err
	}

	s.publish(model.TableNotifications, model.EventDelete, nil, model.Notification{ID: id, UserID: userID})
	return nil
}
