package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/foodshare/internal/identity"
	"github.com/mmeshcher/foodshare/internal/model"
	"github.com/mmeshcher/foodshare/internal/validation"
)

// Причины отказа в регистрации.
const (
	RateLimitIP    = "ip"
	RateLimitEmail = "email"
)

// attemptRecordTimeout ограничивает запись попытки, которая выполняется и после
// истечения контекста запроса.
const attemptRecordTimeout = 2 * time.Second

// RateLimitError возвращается, если превышен лимит попыток регистрации.
type RateLimitError struct {
	Reason string
}

func (e *RateLimitError) Error() string {
	if e.Reason == RateLimitEmail {
		return "Too many attempts with this email. Please try again later."
	}
	return "Too many signup attempts. Please try again later."
}

// SignupRequest содержит данные регистрации.
type SignupRequest struct {
	Email     string
	Password  string
	UserData  model.UserData
	IPAddress string
}

// signupRole приводит роль к допустимой для самостоятельной регистрации.
// Неизвестные роли и admin заменяются на donor.
func signupRole(s string) model.Role {
	switch r := model.Role(s); r {
	case model.RoleDonor, model.RoleNGO, model.RoleRecipient:
		return r
	}
	return model.RoleDonor
}

// Signup регистрирует пользователя с ограничением числа попыток на IP-адрес и email.
// Каждая попытка, включая отклонённые, записывается в журнал.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*model.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	email := strings.ToLower(strings.TrimSpace(req.Email))
	ip := strings.TrimSpace(req.IPAddress)

	if email == "" || req.Password == "" {
		s.recordAttempt(ctx, ip, email, false)
		return nil, fmt.Errorf("%w: email and password are required", ErrMalformedRequest)
	}

	since := s.now().Add(-s.signupWindow)

	if ip != "" {
		n, err := s.repo.CountSignupAttemptsByIP(ctx, ip, since)
		if err != nil {
			s.recordAttempt(ctx, ip, email, false)
			return nil, err
		}
		if n >= s.signupIPLimit {
			s.recordAttempt(ctx, ip, email, false)
			return nil, &RateLimitError{Reason: RateLimitIP}
		}
	}

	n, err := s.repo.CountSignupAttemptsByEmail(ctx, email, since)
	if err != nil {
		s.recordAttempt(ctx, ip, email, false)
		return nil, err
	}
	if n >= s.signupEmailLimit {
		s.recordAttempt(ctx, ip, email, false)
		return nil, &RateLimitError{Reason: RateLimitEmail}
	}

	if err := validation.Credentials(email, req.Password); err != nil {
		s.recordAttempt(ctx, ip, email, false)
		return nil, fmt.Errorf("%w: %w", ErrMalformedRequest, err)
	}

	data := req.UserData
	data.Role = string(signupRole(data.Role))

	u, err := s.provider.CreateUser(ctx, email, req.Password, data)
	s.recordAttempt(ctx, ip, email, err == nil)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	s.logger.Info("user signed up", zap.String("userID", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}

// recordAttempt пишет попытку регистрации даже при отменённом контексте запроса,
// иначе зависший провайдер не попадает в окна ограничения.
func (s *Service) recordAttempt(ctx context.Context, ip, email string, success bool) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), attemptRecordTimeout)
	defer cancel()

	err := s.repo.RecordSignupAttempt(ctx, &model.SignupAttempt{
		ID:          uuid.NewString(),
		IPAddress:   ip,
		Email:       email,
		AttemptTime: s.now(),
		Success:     success,
	})
	if err != nil {
		s.logger.Error("record signup attempt error", zap.Error(err))
	}
}

// SignIn проверяет учётные данные и выпускает сессию.
func (s *Service) SignIn(ctx context.Context, email, password string) (*identity.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrMalformedRequest)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	u, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}

	return s.tokens.Issue(u)
}

// Session возвращает профиль пользователя текущей сессии.
func (s *Service) Session(ctx context.Context, userID string) (*model.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.repo.GetUserByID(ctx, userID)
}

// SetRole меняет роль пользователя. Используется операторской утилитой.
func (s *Service) SetRole(ctx context.Context, email string, role model.Role) error {
	if _, err := model.ParseRole(string(role)); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedRequest, err)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.repo.SetUserRole(ctx, strings.ToLower(strings.TrimSpace(email)), role)
}
