package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/domain"
	apperrors "github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/errors"
)

func setupLoyaltyRepo(t *testing.T) (*LoyaltyRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewLoyaltyRepository(client, time.Hour), mr
}

func TestLoyaltyRepository_RoundTrip(t *testing.T) {
	repo, _ := setupLoyaltyRepo(t)

	balance := &domain.LoyaltyBalance{
		UserID:      "user-001",
		Points:      120,
		Unconfirmed: true,
		UpdatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, repo.Save(context.Background(), balance))

	got, err := repo.Get(context.Background(), "user-001")
	require.NoError(t, err)
	assert.Equal(t, 120, got.Points)
	assert.True(t, got.Unconfirmed)
}

func TestLoyaltyRepository_GetMiss(t *testing.T) {
	repo, _ := setupLoyaltyRepo(t)

	got, err := repo.Get(context.Background(), "nobody")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestLoyaltyRepository_Delete(t *testing.T) {
	repo, mr := setupLoyaltyRepo(t)

	balance := &domain.LoyaltyBalance{UserID: "user-001", Points: 10}
	require.NoError(t, repo.Save(context.Background(), balance))
	assert.True(t, mr.Exists("loyalty:user-001"))

	require.NoError(t, repo.Delete(context.Background(), "user-001"))
	assert.False(t, mr.Exists("loyalty:user-001"))
}
