package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/foodshare/internal/model"
)

// GetPlatformTotals возвращает накопленные показатели платформы.
func (r *PostgresRepository) GetPlatformTotals(ctx context.Context) (*model.PlatformTotals, error) {
	var t model.PlatformTotals
	err := r.pool.QueryRow(ctx,
		`SELECT total_meals_served, total_food_saved_kg, total_ngos_onboarded, updated_at
		 FROM platform_stats WHERE id = 1`,
	).Scan(&t.TotalMealsServed, &t.TotalFoodSavedKg, &t.TotalNGOsOnboarded, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &model.PlatformTotals{}, nil
		}
		return nil, fmt.Errorf("select platform stats: %w", err)
	}
	return &t, nil
}
