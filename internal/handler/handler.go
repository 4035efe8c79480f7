// Package handler содержит HTTP-обработчики API платформы.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/netip"

	"go.uber.org/zap"

	"github.com/mmeshcher/foodshare/internal/identity"
	"github.com/mmeshcher/foodshare/internal/middleware"
	"github.com/mmeshcher/foodshare/internal/model"
	"github.com/mmeshcher/foodshare/internal/repository"
	"github.com/mmeshcher/foodshare/internal/service"
	"github.com/mmeshcher/foodshare/internal/storage"
	"github.com/mmeshcher/foodshare/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Ping(ctx context.Context) error

	Signup(ctx context.Context, req service.SignupRequest) (*model.User, error)
	SignIn(ctx context.Context, email, password string) (*identity.Session, error)
	Session(ctx context.Context, userID string) (*model.User, error)

	CreateListing(ctx context.Context, actor service.Actor, in validation.ListingInput) (*model.Listing, error)
	BrowseListings(ctx context.Context, q service.ListingQuery) ([]model.Listing, error)
	ListingsByDonor(ctx context.Context, donorID string) ([]model.Listing, error)
	AttachImage(ctx context.Context, actor service.Actor, listingID string, file io.Reader) (*model.Listing, error)
	RemoveImage(ctx context.Context, actor service.Actor, listingID, imageURL string) (*model.Listing, error)

	Claim(ctx context.Context, actor service.Actor, listingID string, in service.ClaimInput) (*model.Claim, error)
	ClaimsByUser(ctx context.Context, userID string) ([]model.Claim, error)
	ListingClaims(ctx context.Context, actor service.Actor, listingID string) ([]model.Claim, error)
	MarkReceived(ctx context.Context, actor service.Actor, claimID string) (*model.Claim, error)
	MarkCollected(ctx context.Context, actor service.Actor, claimID string) (*model.Claim, error)
	MarkCompleted(ctx context.Context, actor service.Actor, listingID string) (*model.Listing, error)
	CancelClaim(ctx context.Context, actor service.Actor, claimID string) (*model.Claim, error)

	ListNotifications(ctx context.Context, userID string) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id string) (*model.Notification, error)
	MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error)
	DeleteNotification(ctx context.Context, userID, id string) error

	PlatformStats(ctx context.Context, actor service.Actor) (*service.PlatformStats, error)
	UserSummary(ctx context.Context, actor service.Actor) (*service.UserSummary, error)
}

// Handler реализует HTTP-обработчики API.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	realtime       http.Handler
	trustedProxies []netip.Prefix
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов. realtime обслуживает
// WebSocket-подписки и может быть nil. Заголовкам с адресом клиента верим только
// для запросов от trustedProxies.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, realtime http.Handler, trustedProxies []netip.Prefix) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		realtime:       realtime,
		trustedProxies: trustedProxies,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError переводит ошибку сервиса в HTTP-статус.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var rl *service.RateLimitError

	switch {
	case errors.As(err, &rl):
		writeError(w, http.StatusTooManyRequests, rl.Error())
	case errors.Is(err, service.ErrMalformedRequest),
		errors.Is(err, service.ErrUpstream),
		errors.Is(err, storage.ErrForeignImage):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, identity.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, repository.ErrSelfClaim),
		errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, repository.ErrListingNotFound),
		errors.Is(err, repository.ErrClaimNotFound),
		errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrNotificationNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, repository.ErrInvalidState):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrImagesDisabled):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn(op+" timeout", zap.Error(err), zap.String("uri", r.RequestURI))
		writeError(w, http.StatusGatewayTimeout, "request timed out")
	default:
		h.logger.Error(op+" error", zap.Error(err), zap.String("uri", r.RequestURI))
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// actor извлекает пользователя из контекста запроса. При отсутствии пишет 401.
func actor(w http.ResponseWriter, r *http.Request) (service.Actor, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return service.Actor{}, false
	}
	role, _ := middleware.GetRoleFromContext(r.Context())
	return service.Actor{ID: userID, Role: role}, true
}

// decodeJSON декодирует тело запроса. Пустое тело допустимо, если allowEmpty.
func decodeJSON(r *http.Request, v any, allowEmpty bool) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) && allowEmpty {
		return nil
	}
	return err
}

// Health проверяет доступность хранилища.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
