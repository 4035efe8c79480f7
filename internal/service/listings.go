package service

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/foodshare/internal/model"
	"github.com/mmeshcher/foodshare/internal/repository"
	"github.com/mmeshcher/foodshare/internal/validation"
)

const maxBrowseLimit = 100

// ListingQuery задаёт фильтры каталога доступных объявлений.
type ListingQuery struct {
	Category string
	Location string
	Search   string
	Limit    int
}

// CreateListing публикует новое объявление донора.
func (s *Service) CreateListing(ctx context.Context, actor Actor, in validation.ListingInput) (*model.Listing, error) {
	if !actor.Role.CanList() {
		return nil, ErrForbidden
	}

	now := s.now()
	category, err := validation.Listing(in, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRequest, err)
	}

	l := &model.Listing{
		ID:              uuid.NewString(),
		DonorID:         actor.ID,
		Title:           in.Title,
		Description:     in.Description,
		Quantity:        in.Quantity,
		Category:        category,
		ExpiryDate:      in.ExpiryDate,
		PickupTimeStart: in.PickupTimeStart,
		PickupTimeEnd:   in.PickupTimeEnd,
		PickupLocation:  in.PickupLocation,
		Images:          []string{},
		Status:          model.ListingAvailable,
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.repo.CreateListing(ctx, l); err != nil {
		return nil, err
	}

	s.publish(model.TableListings, model.EventInsert, l, nil)
	return l, nil
}

// BrowseListings возвращает доступные и не просроченные объявления, новые первыми.
func (s *Service) BrowseListings(ctx context.Context, q ListingQuery) ([]model.Listing, error) {
	filter := repository.ListingFilter{
		Location: q.Location,
		Search:   q.Search,
		Limit:    q.Limit,
	}
	if q.Category != "" && q.Category != "all" {
		c, err := model.ParseCategory(q.Category)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedRequest, err)
		}
		filter.Category = &c
	}
	if filter.Limit <= 0 || filter.Limit > maxBrowseLimit {
		filter.Limit = maxBrowseLimit
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.repo.ListAvailableListings(ctx, filter, s.now())
}

// ListingsByDonor возвращает объявления донора.
func (s *Service) ListingsByDonor(ctx context.Context, donorID string) ([]model.Listing, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.repo.ListListingsByDonor(ctx, donorID)
}

// ClaimsByUser возвращает брони пользователя вместе с объявлениями.
func (s *Service) ClaimsByUser(ctx context.Context, userID string) ([]model.Claim, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.repo.ListClaimsByUser(ctx, userID)
}

// ExpireListings помечает просроченные доступные объявления и уведомляет доноров.
func (s *Service) ExpireListings(ctx context.Context) ([]model.Listing, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	expired, err := s.repo.ExpireListings(ctx, s.now())
	if err != nil {
		return nil, err
	}

	for i := range expired {
		l := &expired[i]
		s.publish(model.TableListings, model.EventUpdate, l, nil)
		s.notify(ctx, l.DonorID, model.NotificationListingExpired,
			"Listing expired",
			fmt.Sprintf("%q expired before anyone claimed it.", l.Title),
			l.ID,
		)
	}

	return expired, nil
}

func (s *Service) ownedListing(ctx context.Context, actor Actor, listingID string) (*model.Listing, error) {
	l, err := s.repo.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if l.DonorID != actor.ID && actor.Role != model.RoleAdmin {
		return nil, ErrForbidden
	}
	return l, nil
}

// AttachImage загружает изображение и добавляет его к объявлению.
func (s *Service) AttachImage(ctx context.Context, actor Actor, listingID string, file io.Reader) (*model.Listing, error) {
	if s.images == nil {
		return nil, ErrImagesDisabled
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.ownedListing(ctx, actor, listingID); err != nil {
		return nil, err
	}

	url, err := s.images.Upload(ctx, listingID, file)
	if err != nil {
		return nil, err
	}

	l, err := s.repo.AddListingImage(ctx, listingID, url)
	if err != nil {
		if derr := s.images.Delete(ctx, url); derr != nil {
			s.logger.Warn("orphaned image", zap.Error(derr), zap.String("url", url))
		}
		return nil, err
	}

	s.publish(model.TableListings, model.EventUpdate, l, nil)
	return l, nil
}

// RemoveImage удаляет изображение объявления из хранилища и из объявления.
func (s *Service) RemoveImage(ctx context.Context, actor Actor, listingID, imageURL string) (*model.Listing, error) {
	if s.images == nil {
		return nil, ErrImagesDisabled
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	l, err := s.ownedListing(ctx, actor, listingID)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(l.Images, imageURL) {
		return nil, fmt.Errorf("%w: image is not attached to the listing", ErrMalformedRequest)
	}

	if err := s.images.Delete(ctx, imageURL); err != nil {
		return nil, err
	}

	l, err = s.repo.RemoveListingImage(ctx, listingID, imageURL)
	if err != nil {
		return nil, err
	}

	s.publish(model.TableListings, model.EventUpdate, l, nil)
	return l, nil
}
