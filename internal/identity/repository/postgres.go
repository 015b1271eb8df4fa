package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/projectNEWM/newm-server-sub005/internal/identity/domain"
)

// PostgresRepository persists identities, OAuth links, and key bindings.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an identity repository that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const identityColumns = `id, email, first_name, last_name, picture_url, password_hash, two_factor_enrolled, admin, created_at, updated_at`

func scanIdentity(row *sql.Row) (*domain.Identity, error) {
	var i domain.Identity
	err := row.Scan(&i.ID, &i.Email, &i.FirstName, &i.LastName, &i.PictureURL,
		&i.PasswordHash, &i.TwoFactorEnrolled, &i.Admin, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &i, nil
}

// GetByID returns the identity for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id = $1`, id)
	return scanIdentity(row)
}

// GetByEmail returns the identity for email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE email = $1`, email)
	return scanIdentity(row)
}

// Create persists the identity. The identity must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, i *domain.Identity) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO identities (`+identityColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		i.ID, i.Email, i.FirstName, i.LastName, i.PictureURL,
		i.PasswordHash, i.TwoFactorEnrolled, i.Admin, i.CreatedAt, i.UpdatedAt)
	return err
}

// UpdateProfile updates the mutable profile fields of an existing identity.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, i *domain.Identity) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE identities
		 SET first_name = $2, last_name = $3, picture_url = $4, password_hash = $5,
		     two_factor_enrolled = $6, updated_at = $7
		 WHERE id = $1`,
		i.ID, i.FirstName, i.LastName, i.PictureURL, i.PasswordHash,
		i.TwoFactorEnrolled, i.UpdatedAt)
	return err
}

// GetByOAuthLink returns the identity linked to (provider, subjectID), or nil if not found.
func (r *PostgresRepository) GetByOAuthLink(ctx context.Context, provider domain.Provider, subjectID string) (*domain.Identity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT i.id, i.email, i.first_name, i.last_name, i.picture_url,
		        i.password_hash, i.two_factor_enrolled, i.admin, i.created_at, i.updated_at
		 FROM identities i
		 JOIN oauth_links l ON l.identity_id = i.id
		 WHERE l.provider = $1 AND l.subject_id = $2`, string(provider), subjectID)
	var i domain.Identity
	err := row.Scan(&i.ID, &i.Email, &i.FirstName, &i.LastName, &i.PictureURL,
		&i.PasswordHash, &i.TwoFactorEnrolled, &i.Admin, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &i, nil
}

// LinkOAuth persists the OAuth link. A provider subject links to at most one
// identity; duplicates fail on the unique constraint.
func (r *PostgresRepository) LinkOAuth(ctx context.Context, l *domain.OAuthLink) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO oauth_links (id, identity_id, provider, subject_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		l.ID, l.IdentityID, string(l.Provider), l.SubjectID, l.CreatedAt)
	return err
}

// GetKeyBinding returns the signing-key binding for fingerprint, or nil if not found.
func (r *PostgresRepository) GetKeyBinding(ctx context.Context, fingerprint string) (*domain.KeyBinding, error) {
	var b domain.KeyBinding
	err := r.db.QueryRowContext(ctx,
		`SELECT fingerprint, identity_id, algorithm, public_key, created_at
		 FROM signing_key_bindings WHERE fingerprint = $1`, fingerprint).
		Scan(&b.Fingerprint, &b.IdentityID, &b.Algorithm, &b.PublicKey, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

// BindKey persists the signing-key binding. The fingerprint is the primary
// key, so a public key binds to at most one identity; rebinding fails.
func (r *PostgresRepository) BindKey(ctx context.Context, b *domain.KeyBinding) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO signing_key_bindings (fingerprint, identity_id, algorithm, public_key, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		b.Fingerprint, b.IdentityID, b.Algorithm, b.PublicKey, b.CreatedAt)
	return err
}
