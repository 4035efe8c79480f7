package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/mmeshcher/foodshare/internal/model"
)

// CountSignupAttemptsByIP возвращает число попыток регистрации с IP-адреса начиная с since.
func (r *PostgresRepository) CountSignupAttemptsByIP(ctx context.Context, ip string, since time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM signup_attempts WHERE ip_address = $1 AND attempt_time >= $2`,
		ip, since,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count attempts by ip: %w", err)
	}
	return n, nil
}

// CountSignupAttemptsByEmail возвращает число попыток регистрации с email начиная с since.
func (r *PostgresRepository) CountSignupAttemptsByEmail(ctx context.Context, email string, since time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM signup_attempts WHERE email = $1 AND attempt_time >= $2`,
		email, since,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count attempts by email: %w", err)
	}
	return n, nil
}

// RecordSignupAttempt добавляет запись о попытке регистрации. Записи никогда не изменяются.
func (r *PostgresRepository) RecordSignupAttempt(ctx context.Context, a *model.SignupAttempt) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO signup_attempts (id, ip_address, email, attempt_time, success)
		 VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5)`,
		a.ID, a.IPAddress, a.Email, a.AttemptTime, a.Success,
	)
	if err != nil {
		return persistenceError("insert signup attempt", err)
	}
	return nil
}
