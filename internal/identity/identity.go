// Package identity реализует границу провайдера учётных записей: создание
// пользователей, вход по паролю и выпуск сессионных токенов.
package identity

import (
	"context"
	"errors"

	"github.com/mmeshcher/foodshare/internal/model"
)

var (
	// ErrUserExists возвращается, если email уже зарегистрирован.
	ErrUserExists = errors.New("email already registered")
	// ErrInvalidCredentials возвращается при неверной паре email/пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken возвращается для просроченного или поддельного токена.
	ErrInvalidToken = errors.New("invalid token")
)

// Provider описывает внешний или локальный провайдер учётных записей.
type Provider interface {
	CreateUser(ctx context.Context, email, password string, data model.UserData) (*model.User, error)
	SignIn(ctx context.Context, email, password string) (*model.User, error)
}

// UserStore описывает хранилище профилей пользователей.
type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

func roleOrDefault(s string) model.Role {
	role, err := model.ParseRole(s)
	if err != nil {
		return model.RoleDonor
	}
	return role
}
