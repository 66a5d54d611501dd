package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/domain"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/event"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/repository"
	apperrors "github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/errors"
)

// LoyaltyBackend is the slice of the backend client loyalty needs.
type LoyaltyBackend interface {
	AdjustLoyalty(ctx context.Context, token, userID string, points int) (int, error)
}

// AdjustInput holds the parameters for a staff loyalty adjustment.
type AdjustInput struct {
	UserID string `json:"user_id" validate:"required"`
	Points int    `json:"points" validate:"required"`
}

// LoyaltyService serves the cached balance view and forwards staff
// adjustments to the backend. The cache is written on checkout (optimistic,
// flagged unconfirmed) and on adjustments (confirmed by the backend's own
// number).
type LoyaltyService struct {
	repo     repository.LoyaltyRepository
	backend  LoyaltyBackend
	producer *event.Producer
	logger   *slog.Logger
}

// NewLoyaltyService creates a new loyalty service.
func NewLoyaltyService(repo repository.LoyaltyRepository, loyaltyBackend LoyaltyBackend, producer *event.Producer, logger *slog.Logger) *LoyaltyService {
	return &LoyaltyService{
		repo:     repo,
		backend:  loyaltyBackend,
		producer: producer,
		logger:   logger,
	}
}

// Balance returns the cached balance for a user. A cache miss reads as a
// zero balance rather than an error; the flag tells the caller whether the
// number has been confirmed by the backend.
func (s *LoyaltyService) Balance(ctx context.Context, userID string) (*domain.LoyaltyBalance, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}

	balance, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &domain.LoyaltyBalance{UserID: userID}, nil
		}
		return nil, fmt.Errorf("get loyalty balance: %w", err)
	}

	return balance, nil
}

// Adjust applies a signed point delta through the backend and refreshes the
// cache with the confirmed balance.
func (s *LoyaltyService) Adjust(ctx context.Context, token, staffID string, input AdjustInput) (*domain.LoyaltyBalance, error) {
	if input.UserID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if input.Points == 0 {
		return nil, apperrors.InvalidInput("points must not be zero")
	}

	confirmed, err := s.backend.AdjustLoyalty(ctx, token, input.UserID, input.Points)
	if err != nil {
		return nil, fmt.Errorf("adjust loyalty: %w", err)
	}

	balance := &domain.LoyaltyBalance{
		UserID:      input.UserID,
		Points:      confirmed,
		Unconfirmed: false,
		UpdatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Save(ctx, balance); err != nil {
		s.logger.WarnContext(ctx, "failed to cache adjusted loyalty balance",
			slog.String("user_id", input.UserID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishLoyaltyAdjusted(ctx, input.UserID, input.Points, confirmed, staffID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish loyalty.adjusted event",
			slog.String("user_id", input.UserID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "loyalty adjusted",
		slog.String("user_id", input.UserID),
		slog.Int("points", input.Points),
		slog.Int("new_balance", confirmed),
		slog.String("adjusted_by", staffID),
	)

	return balance, nil
}
