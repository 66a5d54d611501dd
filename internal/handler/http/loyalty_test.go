package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/domain"
	apperrors "github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/errors"
)

func TestLoyaltyBalance_Cached(t *testing.T) {
	env := newTestEnv(t)
	env.loyalty.On("Get", mock.Anything, "user-123").
		Return(&domain.LoyaltyBalance{UserID: "user-123", Points: 150}, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/loyalty/balance", customerToken, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	data := dataMap(t, decodeResponse(t, rec))
	assert.Equal(t, float64(150), data["points"])
}

func TestLoyaltyBalance_MissReadsAsZero(t *testing.T) {
	env := newTestEnv(t)
	env.loyalty.On("Get", mock.Anything, "user-123").
		Return(nil, apperrors.NotFound("loyalty balance", "user-123"))

	rec := env.do(t, http.MethodGet, "/api/v1/loyalty/balance", customerToken, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	data := dataMap(t, decodeResponse(t, rec))
	assert.Equal(t, float64(0), data["points"])
}

func TestLoyaltyAdjust_Staff(t *testing.T) {
	env := newTestEnv(t)
	env.loyaltyBackend.On("AdjustLoyalty", mock.Anything, staffToken, "user-123", 50).Return(200, nil)
	env.loyalty.On("Save", mock.Anything, mock.MatchedBy(func(b *domain.LoyaltyBalance) bool {
		return b.UserID == "user-123" && b.Points == 200 && !b.Unconfirmed
	})).Return(nil)

	rec := env.do(t, http.MethodPost, "/api/v1/loyalty/adjust", staffToken, AdjustRequest{
		UserID: "user-123",
		Points: 50,
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	data := dataMap(t, decodeResponse(t, rec))
	assert.Equal(t, float64(200), data["points"])
	env.loyaltyBackend.AssertExpectations(t)
	env.loyalty.AssertExpectations(t)
}

func TestLoyaltyAdjust_CustomerForbidden(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/loyalty/adjust", customerToken, AdjustRequest{
		UserID: "user-123",
		Points: 50,
	})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLoyaltyAdjust_ZeroPoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/loyalty/adjust", staffToken, AdjustRequest{
		UserID: "user-123",
		Points: 0,
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	env.loyaltyBackend.AssertNotCalled(t, "AdjustLoyalty", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
