package repository

import (
	"context"

	"github.com/projectNEWM/newm-server-sub005/internal/audit/domain"
)

// Repository defines persistence for authentication decision records.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Decision, error)
	ListByIdentity(ctx context.Context, identityID string, limit, offset int32) ([]*domain.Decision, error)
	Create(ctx context.Context, d *domain.Decision) error
}
