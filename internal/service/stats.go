package service

import (
	"context"
	"math"

	"github.com/mmeshcher/foodshare/internal/model"
)

// ListingCounts содержит число объявлений по статусам.
type ListingCounts struct {
	Total     int `json:"total"`
	Available int `json:"available"`
	Claimed   int `json:"claimed"`
	Completed int `json:"completed"`
	Expired   int `json:"expired"`
}

// ClaimCounts содержит число броней по статусам. Completed считает брони
// с проставленным completed_at.
type ClaimCounts struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Received  int `json:"received"`
	Cancelled int `json:"cancelled"`
	Completed int `json:"completed"`
}

// RoleCounts содержит число пользователей по ролям.
type RoleCounts struct {
	Total      int `json:"total"`
	Donors     int `json:"donors"`
	NGOs       int `json:"ngos"`
	Recipients int `json:"recipients"`
	Admins     int `json:"admins"`
}

// CountListings считает объявления по статусам.
func CountListings(listings []model.Listing) ListingCounts {
	c := ListingCounts{Total: len(listings)}
	for _, l := range listings {
		switch l.Status {
		case model.ListingAvailable:
			c.Available++
		case model.ListingClaimed:
			c.Claimed++
		case model.ListingCompleted:
			c.Completed++
		case model.ListingExpired:
			c.Expired++
		}
	}
	return c
}

// CountClaims считает брони по статусам.
func CountClaims(claims []model.Claim) ClaimCounts {
	c := ClaimCounts{Total: len(claims)}
	for _, cl := range claims {
		switch cl.Status {
		case model.ClaimPending:
			c.Pending++
		case model.ClaimReceived:
			c.Received++
		case model.ClaimCancelled:
			c.Cancelled++
		}
		if cl.CompletedAt != nil {
			c.Completed++
		}
	}
	return c
}

// CountRoles считает пользователей по ролям.
func CountRoles(users []model.User) RoleCounts {
	c := RoleCounts{Total: len(users)}
	for _, u := range users {
		switch u.Role {
		case model.RoleDonor:
			c.Donors++
		case model.RoleNGO:
			c.NGOs++
		case model.RoleRecipient:
			c.Recipients++
		case model.RoleAdmin:
			c.Admins++
		}
	}
	return c
}

// Percent возвращает округлённую долю part от total в процентах, 0 при total <= 0.
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) * 100 / float64(total)))
}

// SuccessRate возвращает долю завершённых броней.
func SuccessRate(c ClaimCounts) int {
	return Percent(c.Completed, c.Total)
}

// CompletionRate возвращает долю завершённых объявлений.
func CompletionRate(c ListingCounts) int {
	return Percent(c.Completed, c.Total)
}

// PlatformStats содержит сводку по платформе для администратора.
type PlatformStats struct {
	Users          RoleCounts           `json:"users"`
	Listings       ListingCounts        `json:"listings"`
	Claims         ClaimCounts          `json:"claims"`
	SuccessRate    int                  `json:"success_rate"`
	CompletionRate int                  `json:"completion_rate"`
	Totals         model.PlatformTotals `json:"totals"`
}

// PlatformStats собирает сводку по всем пользователям, объявлениям и броням.
func (s *Service) PlatformStats(ctx context.Context, actor Actor) (*PlatformStats, error) {
	if actor.Role != model.RoleAdmin {
		return nil, ErrForbidden
	}
	return s.platformStats(ctx)
}

// PlatformStatsUnchecked собирает сводку без проверки роли. Используется операторской утилитой.
func (s *Service) PlatformStatsUnchecked(ctx context.Context) (*PlatformStats, error) {
	return s.platformStats(ctx)
}

func (s *Service) platformStats(ctx context.Context) (*PlatformStats, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	listings, err := s.repo.ListAllListings(ctx)
	if err != nil {
		return nil, err
	}
	claims, err := s.repo.ListAllClaims(ctx)
	if err != nil {
		return nil, err
	}
	totals, err := s.repo.GetPlatformTotals(ctx)
	if err != nil {
		return nil, err
	}

	lc := CountListings(listings)
	cc := CountClaims(claims)

	return &PlatformStats{
		Users:          CountRoles(users),
		Listings:       lc,
		Claims:         cc,
		SuccessRate:    SuccessRate(cc),
		CompletionRate: CompletionRate(lc),
		Totals:         *totals,
	}, nil
}

// UserSummary содержит сводку для личного кабинета.
type UserSummary struct {
	Role           model.Role     `json:"role"`
	Listings       *ListingCounts `json:"listings,omitempty"`
	Claims         *ClaimCounts   `json:"claims,omitempty"`
	CompletionRate int            `json:"completion_rate"`
	SuccessRate    int            `json:"success_rate"`
}

// UserSummary собирает сводку по объявлениям донора или броням получателя.
func (s *Service) UserSummary(ctx context.Context, actor Actor) (*UserSummary, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	sum := &UserSummary{Role: actor.Role}

	if actor.Role.CanList() {
		listings, err := s.repo.ListListingsByDonor(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		lc := CountListings(listings)
		sum.Listings = &lc
		sum.CompletionRate = CompletionRate(lc)
	}

	if actor.Role.CanClaim() {
		claims, err := s.repo.ListClaimsByUser(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		cc := CountClaims(claims)
		sum.Claims = &cc
		sum.SuccessRate = SuccessRate(cc)
	}

	return sum, nil
}
