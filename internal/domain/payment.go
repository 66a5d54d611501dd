package domain

// PaymentIntent is the backend's handle on a pending charge. The client
// secret embeds the gateway intent ID ("pi_..._secret_...").
type PaymentIntent struct {
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
}

// Card carries the card details collected at checkout. It is passed through
// to the payment gateway and never persisted or logged.
type Card struct {
	Number     string `json:"number"`
	ExpMonth   int    `json:"exp_month"`
	ExpYear    int    `json:"exp_year"`
	CVC        string `json:"cvc"`
	PostalCode string `json:"postal_code"`
}

// Confirmation outcomes reported by the payment gateway.
const (
	PaymentSucceeded = "succeeded"
	PaymentDeclined  = "declined"
)

// PaymentResult is the outcome of confirming a payment intent with the
// gateway.
type PaymentResult struct {
	IntentID string `json:"intent_id"`
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
}
