// Package service реализует бизнес-логику платформы передачи излишков еды.
package service

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/foodshare/internal/identity"
	"github.com/mmeshcher/foodshare/internal/model"
	"github.com/mmeshcher/foodshare/internal/repository"
)

var (
	// ErrMalformedRequest возвращается, если запрос не содержит обязательных полей или они некорректны.
	ErrMalformedRequest = errors.New("malformed request")
	// ErrForbidden возвращается, если пользователь не может выполнить операцию.
	ErrForbidden = errors.New("forbidden")
	// ErrUpstream возвращается при ошибке провайдера учётных записей.
	ErrUpstream = errors.New("signup failed")
	// ErrImagesDisabled возвращается, если хранилище изображений не настроено.
	ErrImagesDisabled = errors.New("image storage is not configured")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	Ping(ctx context.Context) error

	GetUserByID(ctx context.Context, id string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	SetUserRole(ctx context.Context, email string, role model.Role) error

	CreateListing(ctx context.Context, l *model.Listing) error
	GetListing(ctx context.Context, id string) (*model.Listing, error)
	ListAvailableListings(ctx context.Context, filter repository.ListingFilter, now time.Time) ([]model.Listing, error)
	ListListingsByDonor(ctx context.Context, donorID string) ([]model.Listing, error)
	ListAllListings(ctx context.Context) ([]model.Listing, error)
	CompleteListing(ctx context.Context, listingID string, now time.Time) (*model.Listing, []model.Claim, error)
	ExpireListings(ctx context.Context, now time.Time) ([]model.Listing, error)
	AddListingImage(ctx context.Context, listingID, url string) (*model.Listing, error)
	RemoveListingImage(ctx context.Context, listingID, url string) (*model.Listing, error)

	ClaimListing(ctx context.Context, req repository.ClaimRequest, now time.Time) (*model.Listing, *model.Claim, error)
	GetClaim(ctx context.Context, id string) (*model.Claim, error)
	ListClaimsByUser(ctx context.Context, userID string) ([]model.Claim, error)
	ListAllClaims(ctx context.Context) ([]model.Claim, error)
	ListClaimsByListing(ctx context.Context, listingID string) ([]model.Claim, error)
	MarkClaimReceived(ctx context.Context, claimID string, now time.Time) (*model.Claim, error)
	CancelClaim(ctx context.Context, claimID string, now time.Time) (*model.Claim, *model.Listing, error)

	CountSignupAttemptsByIP(ctx context.Context, ip string, since time.Time) (int, error)
	CountSignupAttemptsByEmail(ctx context.Context, email string, since time.Time) (int, error)
	RecordSignupAttempt(ctx context.Context, a *model.SignupAttempt) error

	ListNotifications(ctx context.Context, userID string) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID string) (*model.Notification, error)
	MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error)
	DeleteNotification(ctx context.Context, id, userID string) error

	GetPlatformTotals(ctx context.Context) (*model.PlatformTotals, error)
}

// Publisher рассылает изменения строк подписчикам.
type Publisher interface {
	Publish(table string, eventType model.EventType, newRow, oldRow any)
}

// Notifier создаёт уведомления пользователей.
type Notifier interface {
	Notify(ctx context.Context, userID string, typ model.NotificationType, title, message string, listingID *string) (*model.Notification, error)
}

// ImageStore хранит изображения объявлений.
type ImageStore interface {
	Upload(ctx context.Context, listingID string, file io.Reader) (string, error)
	Delete(ctx context.Context, imageURL string) error
}

// Actor описывает пользователя, выполняющего операцию.
type Actor struct {
	ID   string
	Role model.Role
}

// Options содержит необязательные параметры сервиса.
type Options struct {
	Timeout          time.Duration
	SignupWindow     time.Duration
	SignupIPLimit    int
	SignupEmailLimit int

	Publisher Publisher
	Notifier  Notifier
	Images    ImageStore
}

// Service содержит бизнес-логику платформы.
type Service struct {
	repo      Repository
	provider  identity.Provider
	tokens    *identity.Tokens
	publisher Publisher
	notifier  Notifier
	images    ImageStore
	logger    *zap.Logger

	timeout          time.Duration
	signupWindow     time.Duration
	signupIPLimit    int
	signupEmailLimit int

	now func() time.Time
}

// NewService создаёт сервис. Нулевые значения в opts заменяются значениями по умолчанию.
func NewService(repo Repository, provider identity.Provider, tokens *identity.Tokens, logger *zap.Logger, opts Options) *Service {
	s := &Service{
		repo:             repo,
		provider:         provider,
		tokens:           tokens,
		publisher:        opts.Publisher,
		notifier:         opts.Notifier,
		images:           opts.Images,
		logger:           logger,
		timeout:          opts.Timeout,
		signupWindow:     opts.SignupWindow,
		signupIPLimit:    opts.SignupIPLimit,
		signupEmailLimit: opts.SignupEmailLimit,
		now:              time.Now,
	}

	if s.timeout <= 0 {
		s.timeout = 5 * time.Second
	}
	if s.signupWindow <= 0 {
		s.signupWindow = time.Hour
	}
	if s.signupIPLimit <= 0 {
		s.signupIPLimit = 5
	}
	if s.signupEmailLimit <= 0 {
		s.signupEmailLimit = 3
	}

	return s
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Ping проверяет доступность хранилища.
func (s *Service) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.repo.Ping(ctx)
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Service) publish(table string, eventType model.EventType, newRow, oldRow any) {
	if s.publisher != nil {
		s.publisher.Publish(table, eventType, newRow, oldRow)
	}
}

func (s *Service) notify(ctx context.Context, userID string, typ model.NotificationType, title, message string, listingID string) {
	if s.notifier == nil || userID == "" {
		return
	}
	if _, err := s.notifier.Notify(ctx, userID, typ, title, message, &listingID); err != nil {
		s.logger.Warn("create notification error", zap.Error(err), zap.String("userID", userID), zap.String("type", string(typ)))
	}
}
