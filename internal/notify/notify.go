// Package notify создаёт уведомления пользователей, рассылает их подписчикам
// и при наличии почтового клиента дублирует письмом.
package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/foodshare/internal/model"
)

// Store описывает хранилище уведомлений.
type Store interface {
	CreateNotification(ctx context.Context, n *model.Notification) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// Publisher рассылает изменения строк подписчикам.
type Publisher interface {
	Publish(table string, eventType model.EventType, newRow, oldRow any)
}

// Mailer отправляет письмо.
type Mailer interface {
	Send(ctx context.Context, toEmail, toName, subject, plainText, htmlContent string) error
}

// Notifier создаёт уведомления.
type Notifier struct {
	store     Store
	publisher Publisher
	mailer    Mailer
	logger    *zap.Logger
}

// New создаёт Notifier. publisher и mailer могут быть nil.
func New(store Store, publisher Publisher, mailer Mailer, logger *zap.Logger) *Notifier {
	return &Notifier{
		store:     store,
		publisher: publisher,
		mailer:    mailer,
		logger:    logger,
	}
}

// Notify сохраняет уведомление для userID. Ошибка отправки письма только логируется.
func (n *Notifier) Notify(ctx context.Context, userID string, typ model.NotificationType, title, message string, listingID *string) (*model.Notification, error) {
	notification := &model.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		ListingID: listingID,
	}

	if err := n.store.CreateNotification(ctx, notification); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}

	if n.publisher != nil {
		n.publisher.Publish(model.TableNotifications, model.EventInsert, notification, nil)
	}

	if n.mailer != nil {
		n.mail(ctx, notification)
	}

	return notification, nil
}

func (n *Notifier) mail(ctx context.Context, notification *model.Notification) {
	u, err := n.store.GetUserByID(ctx, notification.UserID)
	if err != nil {
		n.logger.Warn("notification recipient lookup failed", zap.Error(err), zap.String("userID", notification.UserID))
		return
	}

	html := "<p>" + notification.Message + "</p>"
	if err := n.mailer.Send(ctx, u.Email, u.FullName, notification.Title, notification.Message, html); err != nil {
		n.logger.Warn("notification mail failed", zap.Error(err), zap.String("userID", u.ID))
	}
}
