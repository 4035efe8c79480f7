// Package validation содержит функции валидации входных данных.
package validation

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mmeshcher/foodshare/internal/model"
)

const (
	minPasswordLength = 6
	maxTitleLength    = 200
)

// ErrInvalidInput оборачивает все ошибки валидации.
var ErrInvalidInput = errors.New("invalid input")

// ListingInput содержит поля нового объявления в том виде, в каком их прислал клиент.
type ListingInput struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Quantity        string    `json:"quantity"`
	Category        string    `json:"category"`
	ExpiryDate      time.Time `json:"expiry_date"`
	PickupTimeStart time.Time `json:"pickup_time_start"`
	PickupTimeEnd   time.Time `json:"pickup_time_end"`
	PickupLocation  string    `json:"pickup_location"`
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// IsValidEmail проверяет, что строка является одиночным адресом без отображаемого имени.
func IsValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return addr.Address == email && strings.Contains(email[strings.LastIndex(email, "@"):], ".")
}

// Credentials проверяет email и пароль.
func Credentials(email, password string) error {
	if email == "" || password == "" {
		return invalid("email and password are required")
	}
	if !IsValidEmail(email) {
		return invalid("email %q is not valid", email)
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return invalid("password must be at least %d characters", minPasswordLength)
	}
	return nil
}

// Listing проверяет поля объявления и возвращает его категорию.
// Срок годности должен быть позже now, окно самовывоза не может быть пустым.
func Listing(in ListingInput, now time.Time) (model.Category, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return "", invalid("title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", invalid("title is longer than %d characters", maxTitleLength)
	}
	if strings.TrimSpace(in.Quantity) == "" {
		return "", invalid("quantity is required")
	}
	if strings.TrimSpace(in.PickupLocation) == "" {
		return "", invalid("pickup location is required")
	}

	category, err := model.ParseCategory(in.Category)
	if err != nil {
		return "", invalid("%v", err)
	}

	if in.ExpiryDate.IsZero() || !in.ExpiryDate.After(now) {
		return "", invalid("expiry date must be in the future")
	}
	if in.PickupTimeStart.IsZero() || in.PickupTimeEnd.IsZero() {
		return "", invalid("pickup window is required")
	}
	if !in.PickupTimeStart.Before(in.PickupTimeEnd) {
		return "", invalid("pickup window start must be before its end")
	}

	return category, nil
}

// QuantityRequested проверяет необязательное запрошенное количество.
func QuantityRequested(q *int) error {
	if q != nil && *q <= 0 {
		return invalid("requested quantity must be positive")
	}
	return nil
}
