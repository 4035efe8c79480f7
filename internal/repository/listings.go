package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/foodshare/internal/model"
)

const listingColumns = `id, donor_id, title, description, quantity, category, expiry_date,
	pickup_time_start, pickup_time_end, pickup_location, images, status,
	claimed_by, claimed_at, completed_at, created_at, updated_at`

func scanListing(row rowScanner) (*model.Listing, error) {
	var (
		l        model.Listing
		category string
		status   string
	)
	err := row.Scan(
		&l.ID, &l.DonorID, &l.Title, &l.Description, &l.Quantity, &category, &l.ExpiryDate,
		&l.PickupTimeStart, &l.PickupTimeEnd, &l.PickupLocation, &l.Images, &status,
		&l.ClaimedBy, &l.ClaimedAt, &l.CompletedAt, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if l.Category, err = model.ParseCategory(category); err != nil {
		return nil, fmt.Errorf("listing %s: %w", l.ID, err)
	}
	if l.Status, err = model.ParseListingStatus(status); err != nil {
		return nil, fmt.Errorf("listing %s: %w", l.ID, err)
	}
	if l.Images == nil {
		l.Images = []string{}
	}

	return &l, nil
}

func collectListings(rows pgx.Rows) ([]model.Listing, error) {
	defer rows.Close()

	var res []model.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		res = append(res, *l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// ListingFilter задаёт условия поиска доступных объявлений.
type ListingFilter struct {
	Category *model.Category
	Location string
	Search   string
	Limit    int
}

// CreateListing сохраняет новое объявление.
func (r *PostgresRepository) CreateListing(ctx context.Context, l *model.Listing) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO food_listings (id, donor_id, title, description, quantity, category, expiry_date,
			pickup_time_start, pickup_time_end, pickup_location, images, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING created_at, updated_at`,
		l.ID, l.DonorID, l.Title, l.Description, l.Quantity, string(l.Category), l.ExpiryDate,
		l.PickupTimeStart, l.PickupTimeEnd, l.PickupLocation, l.Images, string(l.Status),
	).Scan(&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return persistenceError("insert listing", err)
	}
	return nil
}

// GetListing возвращает объявление по идентификатору.
func (r *PostgresRepository) GetListing(ctx context.Context, id string) (*model.Listing, error) {
	l, err := scanListing(r.pool.QueryRow(ctx,
		`SELECT `+listingColumns+` FROM food_listings WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("get listing: %w", err)
	}
	return l, nil
}

const likeEscape = ` ESCAPE '\'`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern строит шаблон поиска подстроки: символы % и _ из ввода пользователя
// сопоставляются буквально.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// ListAvailableListings возвращает доступные и не просроченные объявления, новые первыми.
func (r *PostgresRepository) ListAvailableListings(ctx context.Context, filter ListingFilter, now time.Time) ([]model.Listing, error) {
	var (
		conds = []string{"status = $1", "expiry_date >= $2"}
		args  = []any{string(model.ListingAvailable), now}
	)

	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Category != nil {
		conds = append(conds, "category = "+arg(string(*filter.Category)))
	}
	if filter.Location != "" {
		conds = append(conds, "pickup_location ILIKE "+arg(likePattern(filter.Location))+likeEscape)
	}
	if filter.Search != "" {
		p := arg(likePattern(filter.Search))
		conds = append(conds, "(title ILIKE "+p+likeEscape+" OR description ILIKE "+p+likeEscape+")")
	}

	query := `SELECT ` + listingColumns + ` FROM food_listings WHERE ` +
		strings.Join(conds, " AND ") + ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select listings: %w", err)
	}
	return collectListings(rows)
}

// ListListingsByDonor возвращает объявления донора.
func (r *PostgresRepository) ListListingsByDonor(ctx context.Context, donorID string) ([]model.Listing, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+listingColumns+` FROM food_listings WHERE donor_id = $1 ORDER BY created_at DESC`,
		donorID,
	)
	if err != nil {
		return nil, fmt.Errorf("select donor listings: %w", err)
	}
	return collectListings(rows)
}

// ListAllListings возвращает все объявления платформы.
func (r *PostgresRepository) ListAllListings(ctx context.Context) ([]model.Listing, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+listingColumns+` FROM food_listings ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select listings: %w", err)
	}
	return collectListings(rows)
}

// CompleteListing переводит объявление из claimed в completed и проставляет
// completed_at активной брони. Возвращает изменённые объявление и брони.
func (r *PostgresRepository) CompleteListing(ctx context.Context, listingID string, now time.Time) (*model.Listing, []model.Claim, error) {
	var (
		listing *model.Listing
		claims  []model.Claim
	)

	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		listing, err = scanListing(tx.QueryRow(ctx,
			`UPDATE food_listings
			 SET status = $2, completed_at = $3, updated_at = $3
			 WHERE id = $1 AND status = $4
			 RETURNING `+listingColumns,
			listingID, string(model.ListingCompleted), now, string(model.ListingClaimed),
		))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return r.listingStateError(ctx, tx, listingID)
			}
			return persistenceError("complete listing", err)
		}

		rows, err := tx.Query(ctx,
			`UPDATE claims SET completed_at = $2
			 WHERE listing_id = $1 AND status <> $3
			 RETURNING `+claimColumns,
			listingID, now, string(model.ClaimCancelled),
		)
		if err != nil {
			return persistenceError("complete claims", err)
		}
		claims, err = collectClaims(rows)
		if err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return persistenceError("commit tx", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return listing, claims, nil
}

// listingStateError определяет причину, по которой условное обновление не затронуло строку.
func (r *PostgresRepository) listingStateError(ctx context.Context, q pgx.Tx, listingID string) error {
	var status string
	err := q.QueryRow(ctx, `SELECT status FROM food_listings WHERE id = $1`, listingID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrListingNotFound
		}
		return fmt.Errorf("select listing status: %w", err)
	}
	return fmt.Errorf("%w: listing is %s", ErrInvalidState, status)
}

// ExpireListings помечает просроченные доступные объявления как expired.
func (r *PostgresRepository) ExpireListings(ctx context.Context, now time.Time) ([]model.Listing, error) {
	rows, err := r.pool.Query(ctx,
		`UPDATE food_listings
		 SET status = $1, updated_at = $3
		 WHERE status = $2 AND expiry_date < $3
		 RETURNING `+listingColumns,
		string(model.ListingExpired), string(model.ListingAvailable), now,
	)
	if err != nil {
		return nil, persistenceError("expire listings", err)
	}
	return collectListings(rows)
}

// AddListingImage добавляет ссылку на изображение к объявлению.
func (r *PostgresRepository) AddListingImage(ctx context.Context, listingID, url string) (*model.Listing, error) {
	return r.updateImages(ctx,
		`UPDATE food_listings SET images = array_append(images, $2), updated_at = now()
		 WHERE id = $1 RETURNING `+listingColumns,
		listingID, url,
	)
}

// RemoveListingImage удаляет ссылку на изображение из объявления.
func (r *PostgresRepository) RemoveListingImage(ctx context.Context, listingID, url string) (*model.Listing, error) {
	return r.updateImages(ctx,
		`UPDATE food_listings SET images = array_remove(images, $2), updated_at = now()
		 WHERE id = $1 RETURNING `+listingColumns,
		listingID, url,
	)
}

func (r *PostgresRepository) updateImages(ctx context.Context, query, listingID, url string) (*model.Listing, error) {
	l, err := scanListing(r.pool.QueryRow(ctx, query, listingID, url))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrListingNotFound
		}
		return nil, persistenceError("update images", err)
	}
	return l, nil
}
