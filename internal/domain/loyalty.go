package domain

import "time"

// LoyaltyBalance is a user's points balance as known to this service.
// Unconfirmed is set when the balance includes an optimistic post-checkout
// patch that the backend has not yet confirmed.
type LoyaltyBalance struct {
	UserID      string    `json:"user_id"`
	Points      int       `json:"points"`
	Unconfirmed bool      `json:"unconfirmed"`
	UpdatedAt   time.Time `json:"updated_at"`
}
