package domain

import (
	"time"

	"github.com/google/uuid"
)

// Reconciliation record states.
const (
	ReconciliationOpen     = "open"
	ReconciliationResolved = "resolved"
)

// Reconciliation journals a payment that was captured by the gateway but
// whose order could not be materialized. Records are never retried
// automatically; an operator resolves them by hand against the gateway
// dashboard.
type Reconciliation struct {
	ID              uuid.UUID  `json:"id"`
	UserID          string     `json:"user_id"`
	Email           string     `json:"email"`
	GatewayIntentID string     `json:"gateway_intent_id"`
	Amount          int64      `json:"amount"`
	Lines           []CartLine `json:"lines"`
	FailureReason   string     `json:"failure_reason"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy      string     `json:"resolved_by,omitempty"`
}
