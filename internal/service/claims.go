package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/foodshare/internal/model"
	"github.com/mmeshcher/foodshare/internal/repository"
	"github.com/mmeshcher/foodshare/internal/validation"
)

// ClaimInput содержит необязательные поля брони.
type ClaimInput struct {
	QuantityRequested *int
	Notes             string
}

// Claim бронирует доступное объявление. Статус объявления и новая бронь
// сохраняются атомарно, из конкурентных запросов успешен ровно один.
func (s *Service) Claim(ctx context.Context, actor Actor, listingID string, in ClaimInput) (*model.Claim, error) {
	if err := validation.QuantityRequested(in.QuantityRequested); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRequest, err)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if !actor.Role.CanClaim() {
		l, err := s.repo.GetListing(ctx, listingID)
		if err != nil {
			return nil, err
		}
		if l.DonorID == actor.ID {
			return nil, repository.ErrSelfClaim
		}
		return nil, ErrForbidden
	}

	listing, claim, err := s.repo.ClaimListing(ctx, repository.ClaimRequest{
		ClaimID:           uuid.NewString(),
		ListingID:         listingID,
		UserID:            actor.ID,
		QuantityRequested: in.QuantityRequested,
		Notes:             in.Notes,
	}, s.now())
	if err != nil {
		return nil, err
	}

	s.publish(model.TableListings, model.EventUpdate, listing, nil)
	s.publish(model.TableClaims, model.EventInsert, claim, nil)
	s.notify(ctx, listing.DonorID, model.NotificationListingClaimed,
		"Listing claimed",
		fmt.Sprintf("%q was claimed and is awaiting pickup.", listing.Title),
		listing.ID,
	)

	s.logger.Info("listing claimed", zap.String("listingID", listing.ID), zap.String("claimID", claim.ID), zap.String("userID", actor.ID))

	claim.Listing = listing
	return claim, nil
}

func (s *Service) ownClaim(ctx context.Context, actor Actor, claimID string) (*model.Claim, error) {
	c, err := s.repo.GetClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if c.ClaimedBy != actor.ID {
		return nil, ErrForbidden
	}
	if c.Status.Terminal() {
		return nil, fmt.Errorf("%w: claim is %s", repository.ErrInvalidState, c.Status)
	}
	return c, nil
}

// MarkReceived подтверждает получение продуктов по брони. Повторный вызов
// завершается ошибкой repository.ErrInvalidState.
func (s *Service) MarkReceived(ctx context.Context, actor Actor, claimID string) (*model.Claim, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.ownClaim(ctx, actor, claimID); err != nil {
		return nil, err
	}

	c, err := s.repo.MarkClaimReceived(ctx, claimID, s.now())
	if err != nil {
		return nil, err
	}

	s.publish(model.TableClaims, model.EventUpdate, c, nil)

	if l, err := s.repo.GetListing(ctx, c.ListingID); err == nil {
		s.notify(ctx, l.DonorID, model.NotificationPickupCompleted,
			"Pickup confirmed",
			fmt.Sprintf("The recipient confirmed pickup of %q.", l.Title),
			l.ID,
		)
	} else {
		s.logger.Warn("get listing for notification error", zap.Error(err), zap.String("listingID", c.ListingID))
	}

	return c, nil
}

// MarkCollected то же, что MarkReceived.
func (s *Service) MarkCollected(ctx context.Context, actor Actor, claimID string) (*model.Claim, error) {
	return s.MarkReceived(ctx, actor, claimID)
}

// MarkCompleted завершает забронированное объявление. Доступно донору и администратору.
func (s *Service) MarkCompleted(ctx context.Context, actor Actor, listingID string) (*model.Listing, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cur, err := s.ownedListing(ctx, actor, listingID)
	if err != nil {
		return nil, err
	}
	if !cur.Status.CanTransition(model.ListingCompleted) {
		return nil, fmt.Errorf("%w: listing is %s", repository.ErrInvalidState, cur.Status)
	}

	l, claims, err := s.repo.CompleteListing(ctx, listingID, s.now())
	if err != nil {
		return nil, err
	}

	s.publish(model.TableListings, model.EventUpdate, l, nil)
	for i := range claims {
		c := &claims[i]
		s.publish(model.TableClaims, model.EventUpdate, c, nil)
		s.notify(ctx, c.ClaimedBy, model.NotificationPickupCompleted,
			"Pickup completed",
			fmt.Sprintf("The donor marked %q as completed.", l.Title),
			l.ID,
		)
	}

	return l, nil
}

// ListingClaims возвращает все брони объявления, включая отменённые. Доступно донору и администратору.
func (s *Service) ListingClaims(ctx context.Context, actor Actor, listingID string) ([]model.Claim, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.ownedListing(ctx, actor, listingID); err != nil {
		return nil, err
	}

	return s.repo.ListClaimsByListing(ctx, listingID)
}

// CancelClaim отменяет ожидающую бронь и возвращает объявление в каталог.
func (s *Service) CancelClaim(ctx context.Context, actor Actor, claimID string) (*model.Claim, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.ownClaim(ctx, actor, claimID); err != nil {
		return nil, err
	}

	c, l, err := s.repo.CancelClaim(ctx, claimID, s.now())
	if err != nil {
		return nil, err
	}

	s.publish(model.TableClaims, model.EventUpdate, c, nil)
	s.publish(model.TableListings, model.EventUpdate, l, nil)

	c.Listing = l
	return c, nil
}
