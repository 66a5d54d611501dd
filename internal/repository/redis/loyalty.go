package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/domain"
	apperrors "github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/errors"
)

const loyaltyKeyPrefix = "loyalty:"

// LoyaltyRepository caches loyalty balances in Redis between backend
// refreshes.
type LoyaltyRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLoyaltyRepository creates a Redis-backed loyalty cache.
func NewLoyaltyRepository(client *redis.Client, ttl time.Duration) *LoyaltyRepository {
	return &LoyaltyRepository{
		client: client,
		ttl:    ttl,
	}
}

// Get retrieves a cached balance by user ID.
func (r *LoyaltyRepository) Get(ctx context.Context, userID string) (*domain.LoyaltyBalance, error) {
	data, err := r.client.Get(ctx, loyaltyKeyPrefix+userID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.NotFound("loyalty balance", userID)
		}
		return nil, fmt.Errorf("redis get loyalty: %w", err)
	}

	var balance domain.LoyaltyBalance
	if err := json.Unmarshal(data, &balance); err != nil {
		return nil, fmt.Errorf("unmarshal loyalty balance: %w", err)
	}

	return &balance, nil
}

// Save caches a balance with the configured TTL.
func (r *LoyaltyRepository) Save(ctx context.Context, balance *domain.LoyaltyBalance) error {
	data, err := json.Marshal(balance)
	if err != nil {
		return fmt.Errorf("marshal loyalty balance: %w", err)
	}

	if err := r.client.Set(ctx, loyaltyKeyPrefix+balance.UserID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set loyalty: %w", err)
	}

	return nil
}

// Delete evicts a cached balance.
func (r *LoyaltyRepository) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, loyaltyKeyPrefix+userID).Err(); err != nil {
		return fmt.Errorf("redis del loyalty: %w", err)
	}

	return nil
}
