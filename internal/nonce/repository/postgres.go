package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/projectNEWM/newm-server-sub005/internal/nonce/domain"
)

// PostgresRepository persists consumed nonces. The (key_fingerprint, nonce)
// primary key plus ON CONFLICT DO NOTHING gives the exactly-one-wins
// guarantee under concurrent inserts.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a nonce repository that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert records the nonce; returns false when the pair already exists.
func (r *PostgresRepository) Insert(ctx context.Context, rec *domain.Record) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO nonces (key_fingerprint, nonce, first_seen)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (key_fingerprint, nonce) DO NOTHING`,
		rec.KeyFingerprint, rec.Nonce, rec.FirstSeen)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// PruneBefore deletes nonce records first seen before cutoff.
func (r *PostgresRepository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM nonces WHERE first_seen < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
