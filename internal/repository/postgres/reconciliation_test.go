package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/domain"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/database"
	apperrors "github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/errors"
)

func sampleReconciliation() *domain.Reconciliation {
	return &domain.Reconciliation{
		ID:              uuid.MustParse("4fb7e9d2-8a3c-4a1e-9a51-000000000001"),
		UserID:          "usr-001",
		Email:           "cliente@example.com",
		GatewayIntentID: "pi_3abc123",
		Amount:          18400,
		Lines: []domain.CartLine{
			{ProductID: 1, Name: "Crepa de Nutella", UnitPrice: 8500, Quantity: 2, Notes: "sin fresas"},
		},
		FailureReason: "order store returned status 500",
		Status:        domain.ReconciliationOpen,
		CreatedAt:     time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

var reconciliationCols = []string{
	"id", "user_id", "email", "gateway_intent_id", "amount", "lines",
	"failure_reason", "status", "created_at", "resolved_at", "resolved_by",
}

func reconciliationRow(rec *domain.Reconciliation) *pgxmock.Rows {
	linesJSON, _ := json.Marshal(rec.Lines)
	return pgxmock.NewRows(reconciliationCols).AddRow(
		rec.ID, rec.UserID, rec.Email, rec.GatewayIntentID, rec.Amount,
		linesJSON, rec.FailureReason, rec.Status, rec.CreatedAt,
		rec.ResolvedAt, rec.ResolvedBy,
	)
}

func TestReconciliationRepository_Create(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewReconciliationRepository(mock)
	rec := sampleReconciliation()

	linesJSON, err := json.Marshal(rec.Lines)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO reconciliations").
		WithArgs(
			rec.ID, rec.UserID, rec.Email, rec.GatewayIntentID,
			rec.Amount, linesJSON, rec.FailureReason, rec.Status, rec.CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconciliationRepository_Create_ExecError(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewReconciliationRepository(mock)
	rec := sampleReconciliation()

	linesJSON, err := json.Marshal(rec.Lines)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO reconciliations").
		WithArgs(
			rec.ID, rec.UserID, rec.Email, rec.GatewayIntentID,
			rec.Amount, linesJSON, rec.FailureReason, rec.Status, rec.CreatedAt,
		).
		WillReturnError(errors.New("connection refused"))

	err = repo.Create(context.Background(), rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert reconciliation")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconciliationRepository_GetByID(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewReconciliationRepository(mock)
	rec := sampleReconciliation()

	mock.ExpectQuery("SELECT (.+) FROM reconciliations WHERE id").
		WithArgs(rec.ID).
		WillReturnRows(reconciliationRow(rec))

	got, err := repo.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.GatewayIntentID, got.GatewayIntentID)
	assert.Equal(t, rec.Amount, got.Amount)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, "sin fresas", got.Lines[0].Notes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconciliationRepository_GetByID_NotFound(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewReconciliationRepository(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM reconciliations WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(reconciliationCols))

	got, err := repo.GetByID(context.Background(), id)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconciliationRepository_ListOpen(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewReconciliationRepository(mock)
	rec := sampleReconciliation()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM reconciliations").
		WithArgs(domain.ReconciliationOpen).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

	mock.ExpectQuery("SELECT (.+) FROM reconciliations").
		WithArgs(domain.ReconciliationOpen, 20, 0).
		WillReturnRows(reconciliationRow(rec))

	recs, total, err := repo.ListOpen(context.Background(), 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, recs, 1)
	assert.Equal(t, rec.ID, recs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconciliationRepository_Resolve(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewReconciliationRepository(mock)
	id := uuid.New()

	mock.ExpectExec("UPDATE reconciliations").
		WithArgs(domain.ReconciliationResolved, pgxmock.AnyArg(), "staff-9", id, domain.ReconciliationOpen).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.Resolve(context.Background(), id, "staff-9"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconciliationRepository_Resolve_AlreadyResolved(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewReconciliationRepository(mock)
	rec := sampleReconciliation()
	resolvedAt := time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC)
	rec.Status = domain.ReconciliationResolved
	rec.ResolvedAt = &resolvedAt
	rec.ResolvedBy = "staff-1"

	mock.ExpectExec("UPDATE reconciliations").
		WithArgs(domain.ReconciliationResolved, pgxmock.AnyArg(), "staff-9", rec.ID, domain.ReconciliationOpen).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	// Record exists but is no longer open.
	mock.ExpectQuery("SELECT (.+) FROM reconciliations WHERE id").
		WithArgs(rec.ID).
		WillReturnRows(reconciliationRow(rec))

	err = repo.Resolve(context.Background(), rec.ID, "staff-9")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}
