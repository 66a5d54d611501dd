package http

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/domain"
)

func openReconciliation() domain.Reconciliation {
	return domain.Reconciliation{
		ID:              uuid.MustParse("550e8400-e29b-41d4-a716-446655440001"),
		UserID:          "user-123",
		Email:           "ana@example.com",
		GatewayIntentID: "pi_3abc123",
		Amount:          23900,
		FailureReason:   "backend returned 500",
		Status:          domain.ReconciliationOpen,
		CreatedAt:       time.Now().UTC(),
	}
}

func TestReconciliations_List(t *testing.T) {
	env := newTestEnv(t)
	env.journal.On("ListOpen", mock.Anything, 20, 0).
		Return([]domain.Reconciliation{openReconciliation()}, 1, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/reconciliations", staffToken, nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data       []domain.Reconciliation `json:"data"`
		TotalCount int                     `json:"total_count"`
		Page       int                     `json:"page"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "pi_3abc123", resp.Data[0].GatewayIntentID)
	assert.Equal(t, 1, resp.TotalCount)
	assert.Equal(t, 1, resp.Page)
	env.journal.AssertExpectations(t)
}

func TestReconciliations_ListPagination(t *testing.T) {
	env := newTestEnv(t)
	env.journal.On("ListOpen", mock.Anything, 10, 20).
		Return([]domain.Reconciliation{}, 21, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/reconciliations?limit=10&offset=20", staffToken, nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Page    int  `json:"page"`
		HasNext bool `json:"has_next"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 3, resp.Page)
	assert.False(t, resp.HasNext)
}

func TestReconciliations_CustomerForbidden(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/reconciliations", customerToken, nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestReconciliations_Resolve(t *testing.T) {
	env := newTestEnv(t)
	id := uuid.MustParse("550e8400-e29b-41d4-a716-446655440001")
	env.journal.On("Resolve", mock.Anything, id, "staff-9").Return(nil)

	rec := env.do(t, http.MethodPost, "/api/v1/reconciliations/"+id.String()+"/resolve", staffToken, nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	env.journal.AssertExpectations(t)
}

func TestReconciliations_ResolveBadID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/reconciliations/not-a-uuid/resolve", staffToken, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
