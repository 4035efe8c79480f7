package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/foodshare/internal/model"
	"github.com/mmeshcher/foodshare/internal/repository"
)

const bcryptCost = 12

// LocalProvider хранит учётные записи в собственной БД с bcrypt-хешами паролей.
type LocalProvider struct {
	store UserStore
	cost  int
}

// NewLocalProvider создаёт провайдер поверх хранилища пользователей.
func NewLocalProvider(store UserStore) *LocalProvider {
	return &LocalProvider{store: store, cost: bcryptCost}
}

// CreateUser регистрирует пользователя. Учётная запись сразу активна.
func (p *LocalProvider) CreateUser(ctx context.Context, email, password string, data model.UserData) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &model.User{
		ID:               uuid.NewString(),
		Email:            email,
		PasswordHash:     hash,
		FullName:         data.FullName,
		Role:             roleOrDefault(data.Role),
		OrganizationName: data.OrganizationName,
		Phone:            data.Phone,
	}

	if err := p.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	return u, nil
}

// SignIn проверяет пароль пользователя.
func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (*model.User, error) {
	u, err := p.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if len(u.PasswordHash) == 0 {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}
