package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/domain"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/repository"
)

// ReconciliationService serves the operator queue of captured payments that
// never became orders.
type ReconciliationService struct {
	repo   repository.ReconciliationRepository
	logger *slog.Logger
}

// NewReconciliationService creates a new reconciliation service.
func NewReconciliationService(repo repository.ReconciliationRepository, logger *slog.Logger) *ReconciliationService {
	return &ReconciliationService{
		repo:   repo,
		logger: logger,
	}
}

// ListOpen returns open records newest first with the total open count.
func (s *ReconciliationService) ListOpen(ctx context.Context, limit, offset int) ([]domain.Reconciliation, int, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	recs, total, err := s.repo.ListOpen(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list open reconciliations: %w", err)
	}
	return recs, total, nil
}

// Resolve marks a record as handled by the given operator.
func (s *ReconciliationService) Resolve(ctx context.Context, id uuid.UUID, resolvedBy string) error {
	if err := s.repo.Resolve(ctx, id, resolvedBy); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "reconciliation resolved",
		slog.String("reconciliation_id", id.String()),
		slog.String("resolved_by", resolvedBy),
	)

	return nil
}
