package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/domain"
)

// CartRepository persists user carts. Implementations must persist
// synchronously: a mutation is not acknowledged to the caller until the
// store has accepted it.
type CartRepository interface {
	// Get returns the cart for the given user, or apperrors.ErrNotFound if
	// none is stored (or the stored document carries a stale schema version).
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Save(ctx context.Context, cart *domain.Cart) error
	Delete(ctx context.Context, userID string) error
}

// LoyaltyRepository caches loyalty balances between backend refreshes.
type LoyaltyRepository interface {
	Get(ctx context.Context, userID string) (*domain.LoyaltyBalance, error)
	Save(ctx context.Context, balance *domain.LoyaltyBalance) error
	Delete(ctx context.Context, userID string) error
}

// ReconciliationRepository journals captured-but-unmaterialized payments.
type ReconciliationRepository interface {
	Create(ctx context.Context, rec *domain.Reconciliation) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Reconciliation, error)
	ListOpen(ctx context.Context, limit, offset int) ([]domain.Reconciliation, int, error)
	Resolve(ctx context.Context, id uuid.UUID, resolvedBy string) error
}
