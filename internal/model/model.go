// Package model содержит доменные сущности платформы передачи излишков еды.
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Role описывает роль пользователя платформы.
type Role string

const (
	RoleDonor     Role = "donor"
	RoleNGO       Role = "ngo"
	RoleRecipient Role = "recipient"
	RoleAdmin     Role = "admin"
)

// ParseRole проверяет, что значение является известной ролью.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleDonor, RoleNGO, RoleRecipient, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// CanClaim сообщает, может ли роль бронировать объявления.
func (r Role) CanClaim() bool {
	return r == RoleNGO || r == RoleRecipient || r == RoleAdmin
}

// CanList сообщает, может ли роль публиковать объявления.
func (r Role) CanList() bool {
	return r == RoleDonor || r == RoleAdmin
}

// ListingStatus описывает состояние объявления.
type ListingStatus string

const (
	ListingAvailable ListingStatus = "available"
	ListingClaimed   ListingStatus = "claimed"
	ListingCompleted ListingStatus = "completed"
	ListingExpired   ListingStatus = "expired"
)

// ParseListingStatus разбирает статус объявления. Устаревшее значение booked
// соответствует claimed.
func ParseListingStatus(s string) (ListingStatus, error) {
	switch st := ListingStatus(s); st {
	case ListingAvailable, ListingClaimed, ListingCompleted, ListingExpired:
		return st, nil
	case "booked":
		return ListingClaimed, nil
	}
	return "", fmt.Errorf("unknown listing status %q", s)
}

// CanTransition сообщает, допустим ли переход объявления в состояние next.
func (s ListingStatus) CanTransition(next ListingStatus) bool {
	switch s {
	case ListingAvailable:
		return next == ListingClaimed || next == ListingExpired
	case ListingClaimed:
		// Отмена брони возвращает объявление в available.
		return next == ListingCompleted || next == ListingAvailable
	}
	return false
}

// ClaimStatus описывает состояние брони.
type ClaimStatus string

const (
	ClaimPending   ClaimStatus = "pending"
	ClaimReceived  ClaimStatus = "received"
	ClaimCancelled ClaimStatus = "cancelled"
)

// ParseClaimStatus разбирает статус брони. Устаревшее значение collected
// соответствует received.
func ParseClaimStatus(s string) (ClaimStatus, error) {
	switch st := ClaimStatus(s); st {
	case ClaimPending, ClaimReceived, ClaimCancelled:
		return st, nil
	case "collected":
		return ClaimReceived, nil
	}
	return "", fmt.Errorf("unknown claim status %q", s)
}

// Terminal сообщает, что из статуса нет переходов.
func (s ClaimStatus) Terminal() bool {
	return s == ClaimReceived || s == ClaimCancelled
}

// Category описывает категорию продуктов.
type Category string

const (
	CategoryVegetables   Category = "vegetables"
	CategoryFruits       Category = "fruits"
	CategoryGrains       Category = "grains"
	CategoryDairy        Category = "dairy"
	CategoryMeat         Category = "meat"
	CategoryBakery       Category = "bakery"
	CategoryPreparedFood Category = "prepared_food"
	CategoryOther        Category = "other"
)

// ParseCategory проверяет, что значение является известной категорией.
func ParseCategory(s string) (Category, error) {
	switch c := Category(s); c {
	case CategoryVegetables, CategoryFruits, CategoryGrains, CategoryDairy,
		CategoryMeat, CategoryBakery, CategoryPreparedFood, CategoryOther:
		return c, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// User представляет учётную запись вместе с профилем.
type User struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	PasswordHash     []byte    `json:"-"`
	FullName         string    `json:"full_name"`
	Role             Role      `json:"role"`
	OrganizationName string    `json:"organization_name,omitempty"`
	Phone            string    `json:"phone,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// UserData содержит данные профиля, передаваемые при регистрации.
type UserData struct {
	FullName         string `json:"full_name"`
	Role             string `json:"role"`
	OrganizationName string `json:"organization_name,omitempty"`
	Phone            string `json:"phone,omitempty"`
}

// Listing описывает объявление донора об излишках еды.
type Listing struct {
	ID              string        `json:"id"`
	DonorID         string        `json:"donor_id"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	Quantity        string        `json:"quantity"`
	Category        Category      `json:"category"`
	ExpiryDate      time.Time     `json:"expiry_date"`
	PickupTimeStart time.Time     `json:"pickup_time_start"`
	PickupTimeEnd   time.Time     `json:"pickup_time_end"`
	PickupLocation  string        `json:"pickup_location"`
	Images          []string      `json:"images"`
	Status          ListingStatus `json:"status"`
	ClaimedBy       *string       `json:"claimed_by"`
	ClaimedAt       *time.Time    `json:"claimed_at"`
	CompletedAt     *time.Time    `json:"completed_at"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Claim описывает бронь получателя на объявление.
type Claim struct {
	ID                string      `json:"id"`
	ListingID         string      `json:"listing_id"`
	ClaimedBy         string      `json:"claimed_by"`
	QuantityRequested *int        `json:"quantity_requested"`
	Status            ClaimStatus `json:"status"`
	Notes             string      `json:"notes"`
	ClaimedAt         time.Time   `json:"claimed_at"`
	PickupScheduledAt *time.Time  `json:"pickup_scheduled_at"`
	ReceivedAt        *time.Time  `json:"received_at"`
	CancelledAt       *time.Time  `json:"cancelled_at"`
	CompletedAt       *time.Time  `json:"completed_at"`

	Listing *Listing `json:"listing,omitempty"`
}

// SignupAttempt фиксирует одну попытку регистрации.
type SignupAttempt struct {
	ID          string    `json:"id"`
	IPAddress   string    `json:"ip_address,omitempty"`
	Email       string    `json:"email,omitempty"`
	AttemptTime time.Time `json:"attempt_time"`
	Success     bool      `json:"success"`
}

// NotificationType описывает тип уведомления.
type NotificationType string

const (
	NotificationListingClaimed  NotificationType = "listing_claimed"
	NotificationPickupCompleted NotificationType = "pickup_completed"
	NotificationListingExpired  NotificationType = "listing_expired"
)

// Notification описывает уведомление пользователя.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	ListingID *string          `json:"listing_id"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}

// PlatformTotals содержит накопленные показатели платформы.
type PlatformTotals struct {
	TotalMealsServed   int       `json:"total_meals_served"`
	TotalFoodSavedKg   float64   `json:"total_food_saved_kg"`
	TotalNGOsOnboarded int       `json:"total_ngos_onboarded"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// EventType описывает вид изменения строки.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// Имена таблиц, изменения которых рассылаются подписчикам.
const (
	TableListings      = "food_listings"
	TableClaims        = "claims"
	TableNotifications = "notifications"
)

// ChangeEvent описывает изменение строки таблицы.
type ChangeEvent struct {
	EventType       EventType       `json:"eventType"`
	Table           string          `json:"table"`
	New             json.RawMessage `json:"new,omitempty"`
	Old             json.RawMessage `json:"old,omitempty"`
	CommitTimestamp time.Time       `json:"commitTimestamp"`
}
