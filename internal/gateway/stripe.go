package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/domain"
)

// HTTPDoer is the interface for executing HTTP requests.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// StripeGateway confirms payment intents against a Stripe-shaped API.
type StripeGateway struct {
	http    HTTPDoer
	baseURL string
	apiKey  string
	logger  *slog.Logger
}

// NewStripeGateway creates a gateway client.
func NewStripeGateway(doer HTTPDoer, baseURL, apiKey string, logger *slog.Logger) *StripeGateway {
	return &StripeGateway{
		http:    doer,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		logger:  logger,
	}
}

type confirmIntentResponse struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	LastPaymentError *struct {
		Message     string `json:"message"`
		DeclineCode string `json:"decline_code"`
	} `json:"last_payment_error"`
}

type gatewayErrorResponse struct {
	Error *struct {
		Message     string `json:"message"`
		Code        string `json:"code"`
		DeclineCode string `json:"decline_code"`
	} `json:"error"`
}

// ConfirmIntent submits the card against the intent derived from the client
// secret. Card details go only onto the wire; they are never logged.
func (g *StripeGateway) ConfirmIntent(ctx context.Context, clientSecret string, card domain.Card) (*domain.PaymentResult, error) {
	intentID := IntentIDFromSecret(clientSecret)

	form := url.Values{}
	form.Set("client_secret", clientSecret)
	form.Set("payment_method_data[type]", "card")
	form.Set("payment_method_data[card][number]", card.Number)
	form.Set("payment_method_data[card][exp_month]", strconv.Itoa(card.ExpMonth))
	form.Set("payment_method_data[card][exp_year]", strconv.Itoa(card.ExpYear))
	form.Set("payment_method_data[card][cvc]", card.CVC)
	if card.PostalCode != "" {
		form.Set("payment_method_data[billing_details][address][postal_code]", card.PostalCode)
	}

	endpoint := g.baseURL + "/v1/payment_intents/" + intentID + "/confirm"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create confirm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("confirm intent %s: %w", intentID, err)
	}
	defer resp.Body.Close()

	// A card decline comes back as 402 with a structured error body.
	if resp.StatusCode == http.StatusPaymentRequired {
		var gwErr gatewayErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&gwErr); decodeErr == nil && gwErr.Error != nil {
			g.logger.InfoContext(ctx, "payment declined",
				slog.String("intent_id", intentID),
				slog.String("decline_code", gwErr.Error.DeclineCode),
			)
			return &domain.PaymentResult{
				IntentID: intentID,
				Status:   domain.PaymentDeclined,
				Message:  gwErr.Error.Message,
			}, nil
		}
		return &domain.PaymentResult{
			IntentID: intentID,
			Status:   domain.PaymentDeclined,
			Message:  "card declined",
		}, nil
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("confirm intent %s: gateway returned status %d", intentID, resp.StatusCode)
	}

	var confirm confirmIntentResponse
	if err := json.NewDecoder(resp.Body).Decode(&confirm); err != nil {
		return nil, fmt.Errorf("decode confirm response: %w", err)
	}

	switch confirm.Status {
	case "succeeded":
		return &domain.PaymentResult{IntentID: intentID, Status: domain.PaymentSucceeded}, nil
	case "requires_payment_method", "canceled":
		message := "card declined"
		if confirm.LastPaymentError != nil && confirm.LastPaymentError.Message != "" {
			message = confirm.LastPaymentError.Message
		}
		return &domain.PaymentResult{IntentID: intentID, Status: domain.PaymentDeclined, Message: message}, nil
	default:
		return nil, fmt.Errorf("confirm intent %s: unexpected gateway status %q", intentID, confirm.Status)
	}
}
