package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/invoicecore/internal/domain/entity"
)

// IdempotencyRepository defines the interface for idempotency key operations
type IdempotencyRepository interface {
	// GetByKey retrieves an idempotency key scoped to a tenant and user
	GetByKey(ctx context.Context, tenantID, userID uuid.UUID, key string) (*entity.IdempotencyKey, error)
	// Create stores a new idempotency key
	Create(ctx context.Context, ikey *entity.IdempotencyKey) error
	// DeleteExpired removes expired idempotency keys
	DeleteExpired(ctx context.Context) (int64, error)
}
