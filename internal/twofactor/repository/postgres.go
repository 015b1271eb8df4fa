package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/projectNEWM/newm-server-sub005/internal/twofactor/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a two-factor challenge repository backed by db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Replace upserts the challenge keyed by subject, resetting the attempt counter.
func (r *PostgresRepository) Replace(ctx context.Context, c *domain.Challenge) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO two_factor_challenges (id, subject, code_hash, expires_at, attempts, created_at)
		VALUES ($1, $2, $3, $4, 0, $5)
		ON CONFLICT (subject) DO UPDATE SET
			id = EXCLUDED.id,
			code_hash = EXCLUDED.code_hash,
			expires_at = EXCLUDED.expires_at,
			attempts = 0,
			created_at = EXCLUDED.created_at`,
		c.ID, c.Subject, c.CodeHash, c.ExpiresAt, c.CreatedAt)
	return err
}

// GetBySubject returns the challenge for subject, or nil if not found.
func (r *PostgresRepository) GetBySubject(ctx context.Context, subject string) (*domain.Challenge, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, subject, code_hash, expires_at, attempts, created_at
		FROM two_factor_challenges WHERE subject = $1`, subject)
	var c domain.Challenge
	err := row.Scan(&c.ID, &c.Subject, &c.CodeHash, &c.ExpiresAt, &c.Attempts, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// Consume deletes the matching challenge row. The single DELETE makes
// concurrent verification race-free: exactly one caller observes a removed row.
func (r *PostgresRepository) Consume(ctx context.Context, subject, codeHash string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM two_factor_challenges
		WHERE subject = $1 AND code_hash = $2`, subject, codeHash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// IncrementAttempts bumps the counter atomically and returns the new value.
func (r *PostgresRepository) IncrementAttempts(ctx context.Context, subject string) (int, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE two_factor_challenges SET attempts = attempts + 1
		WHERE subject = $1 RETURNING attempts`, subject)
	var attempts int
	if err := row.Scan(&attempts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return attempts, nil
}

// DeleteBySubject removes the challenge for subject.
func (r *PostgresRepository) DeleteBySubject(ctx context.Context, subject string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM two_factor_challenges WHERE subject = $1`, subject)
	return err
}

// PruneExpired removes challenges that expired before now.
func (r *PostgresRepository) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM two_factor_challenges WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
