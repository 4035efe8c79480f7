package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/foodshare/internal/model"
)

const claimColumns = `id, listing_id, claimed_by, quantity_requested, status, notes, claimed_at,
	pickup_scheduled_at, received_at, cancelled_at, completed_at`

func scanClaim(row rowScanner) (*model.Claim, error) {
	var (
		c      model.Claim
		status string
	)
	err := row.Scan(
		&c.ID, &c.ListingID, &c.ClaimedBy, &c.QuantityRequested, &status, &c.Notes, &c.ClaimedAt,
		&c.PickupScheduledAt, &c.ReceivedAt, &c.CancelledAt, &c.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	if c.Status, err = model.ParseClaimStatus(status); err != nil {
		return nil, fmt.Errorf("claim %s: %w", c.ID, err)
	}

	return &c, nil
}

func collectClaims(rows pgx.Rows) ([]model.Claim, error) {
	defer rows.Close()

	var res []model.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		res = append(res, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// ClaimRequest описывает запрос получателя на бронь объявления.
type ClaimRequest struct {
	ClaimID           string
	ListingID         string
	UserID            string
	QuantityRequested *int
	Notes             string
}

// ClaimListing бронирует доступное объявление. Условное обновление статуса и вставка
// брони выполняются в одной транзакции, поэтому из нескольких конкурентных запросов
// успешным будет ровно один.
func (r *PostgresRepository) ClaimListing(ctx context.Context, req ClaimRequest, now time.Time) (*model.Listing, *model.Claim, error) {
	var (
		listing *model.Listing
		claim   *model.Claim
	)

	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		listing, err = scanListing(tx.QueryRow(ctx,
			`UPDATE food_listings
			 SET status = $3, claimed_by = $2, claimed_at = $4, updated_at = $4
			 WHERE id = $1 AND status = $5 AND donor_id <> $2
			 RETURNING `+listingColumns,
			req.ListingID, req.UserID, string(model.ListingClaimed), now, string(model.ListingAvailable),
		))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return r.claimRejection(ctx, tx, req)
			}
			return persistenceError("claim listing", err)
		}

		claim, err = scanClaim(tx.QueryRow(ctx,
			`INSERT INTO claims (id, listing_id, claimed_by, quantity_requested, status, notes, claimed_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING `+claimColumns,
			req.ClaimID, req.ListingID, req.UserID, req.QuantityRequested, string(model.ClaimPending), req.Notes, now,
		))
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: listing already has an active claim", ErrInvalidState)
			}
			return persistenceError("insert claim", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return persistenceError("commit tx", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return listing, claim, nil
}

func (r *PostgresRepository) claimRejection(ctx context.Context, tx pgx.Tx, req ClaimRequest) error {
	var donorID, status string
	err := tx.QueryRow(ctx,
		`SELECT donor_id, status FROM food_listings WHERE id = $1`,
		req.ListingID,
	).Scan(&donorID, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrListingNotFound
		}
		return fmt.Errorf("select listing: %w", err)
	}

	if donorID == req.UserID {
		return ErrSelfClaim
	}
	return fmt.Errorf("%w: listing is %s", ErrInvalidState, status)
}

// GetClaim возвращает бронь по идентификатору.
func (r *PostgresRepository) GetClaim(ctx context.Context, id string) (*model.Claim, error) {
	c, err := scanClaim(r.pool.QueryRow(ctx,
		`SELECT `+claimColumns+` FROM claims WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClaimNotFound
		}
		return nil, fmt.Errorf("get claim: %w", err)
	}
	return c, nil
}

// ListClaimsByListing возвращает все брони объявления.
func (r *PostgresRepository) ListClaimsByListing(ctx context.Context, listingID string) ([]model.Claim, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+claimColumns+` FROM claims WHERE listing_id = $1 ORDER BY claimed_at DESC`,
		listingID,
	)
	if err != nil {
		return nil, fmt.Errorf("select listing claims: %w", err)
	}
	return collectClaims(rows)
}

// ListClaimsByUser возвращает брони пользователя вместе с данными объявлений.
func (r *PostgresRepository) ListClaimsByUser(ctx context.Context, userID string) ([]model.Claim, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+claimColumns+` FROM claims WHERE claimed_by = $1 ORDER BY claimed_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select user claims: %w", err)
	}

	claims, err := collectClaims(rows)
	if err != nil {
		return nil, err
	}

	for i := range claims {
		l, err := r.GetListing(ctx, claims[i].ListingID)
		if err != nil {
			return nil, err
		}
		claims[i].Listing = l
	}

	return claims, nil
}

// ListAllClaims возвращает все брони платформы.
func (r *PostgresRepository) ListAllClaims(ctx context.Context) ([]model.Claim, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+claimColumns+` FROM claims ORDER BY claimed_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select claims: %w", err)
	}
	return collectClaims(rows)
}

// MarkClaimReceived переводит бронь из pending в received.
func (r *PostgresRepository) MarkClaimReceived(ctx context.Context, claimID string, now time.Time) (*model.Claim, error) {
	c, err := scanClaim(r.pool.QueryRow(ctx,
		`UPDATE claims SET status = $2, received_at = $3
		 WHERE id = $1 AND status = $4
		 RETURNING `+claimColumns,
		claimID, string(model.ClaimReceived), now, string(model.ClaimPending),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.claimStateError(ctx, claimID)
		}
		return nil, persistenceError("mark claim received", err)
	}
	return c, nil
}

// CancelClaim отменяет ожидающую бронь и возвращает объявление в статус available.
func (r *PostgresRepository) CancelClaim(ctx context.Context, claimID string, now time.Time) (*model.Claim, *model.Listing, error) {
	var (
		claim   *model.Claim
		listing *model.Listing
	)

	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		claim, err = scanClaim(tx.QueryRow(ctx,
			`UPDATE claims SET status = $2, cancelled_at = $3
			 WHERE id = $1 AND status = $4
			 RETURNING `+claimColumns,
			claimID, string(model.ClaimCancelled), now, string(model.ClaimPending),
		))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return r.claimStateError(ctx, claimID)
			}
			return persistenceError("cancel claim", err)
		}

		listing, err = scanListing(tx.QueryRow(ctx,
			`UPDATE food_listings
			 SET status = $2, claimed_by = NULL, claimed_at = NULL, updated_at = $3
			 WHERE id = $1 AND status = $4 AND claimed_by = $5
			 RETURNING `+listingColumns,
			claim.ListingID, string(model.ListingAvailable), now, string(model.ListingClaimed), claim.ClaimedBy,
		))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return r.listingStateError(ctx, tx, claim.ListingID)
			}
			return persistenceError("release listing", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return persistenceError("commit tx", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return claim, listing, nil
}

func (r *PostgresRepository) claimStateError(ctx context.Context, claimID string) error {
	var status string
	err := r.pool.QueryRow(ctx, `SELECT status FROM claims WHERE id = $1`, claimID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrClaimNotFound
		}
		return fmt.Errorf("select claim status: %w", err)
	}
	return fmt.Errorf("%w: claim is %s", ErrInvalidState, status)
}
