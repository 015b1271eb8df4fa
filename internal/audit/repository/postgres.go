package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/projectNEWM/newm-server-sub005/internal/audit/domain"
)

const decisionColumns = "id, identity_id, mechanism, outcome, reason, ip, platform, created_at"

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a decision-log repository backed by db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the decision for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Decision, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+decisionColumns+" FROM auth_decisions WHERE id = $1", id)
	return scanDecision(row)
}

// ListByIdentity returns decisions involving identityID, newest first.
func (r *PostgresRepository) ListByIdentity(ctx context.Context, identityID string, limit, offset int32) ([]*domain.Decision, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+decisionColumns+` FROM auth_decisions
		WHERE identity_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		identityID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Create persists the decision. The decision must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, d *domain.Decision) error {
	identityID := sql.NullString{String: d.IdentityID, Valid: d.IdentityID != ""}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO auth_decisions (id, identity_id, mechanism, outcome, reason, ip, platform, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		d.ID, identityID, d.Mechanism, d.Outcome, d.Reason, d.IP, d.Platform, d.CreatedAt)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDecision(row rowScanner) (*domain.Decision, error) {
	var d domain.Decision
	var identityID sql.NullString
	err := row.Scan(&d.ID, &identityID, &d.Mechanism, &d.Outcome, &d.Reason, &d.IP, &d.Platform, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	d.IdentityID = identityID.String
	return &d, nil
}
