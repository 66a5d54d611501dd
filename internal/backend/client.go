// Package backend is the typed HTTP client for the backend order store.
// All catalog, order, payment and loyalty calls go through here; callers
// work with domain types only.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/domain"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/httpclient"
)

// metodoPagoTarjeta is the only payment method the storefront offers.
const metodoPagoTarjeta = "tarjeta"

// HTTPDoer is the interface for executing HTTP requests.
// Both httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client talks to the backend order store. It forwards the caller's bearer
// token so the backend applies its own authorization.
type Client struct {
	http    HTTPDoer
	baseURL string
	logger  *slog.Logger
}

// NewClient creates a backend client. baseURL is the API root, for example
// "http://localhost:5000/api".
func NewClient(doer HTTPDoer, baseURL string, logger *slog.Logger) *Client {
	return &Client{
		http:    doer,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// CreateIntentInput holds the parameters for opening a payment intent.
type CreateIntentInput struct {
	Amount      int64
	Email       string
	Description string
}

// CreatePaymentIntent opens a payment intent for the given amount and
// returns the gateway client secret.
func (c *Client) CreatePaymentIntent(ctx context.Context, token string, in CreateIntentInput) (string, error) {
	body := createIntentRequest{
		Monto:       in.Amount,
		Email:       in.Email,
		Descripcion: in.Description,
		MetodoPago:  metodoPagoTarjeta,
	}

	var resp createIntentResponse
	if err := c.do(ctx, http.MethodPost, "/payments/create-intent", token, body, &resp); err != nil {
		return "", fmt.Errorf("create payment intent: %w", err)
	}

	secret := resp.secret()
	if secret == "" {
		return "", fmt.Errorf("create payment intent: backend returned no client secret")
	}
	return secret, nil
}

// ConfirmOrderInput holds the parameters for materializing an order from a
// captured payment.
type ConfirmOrderInput struct {
	GatewayIntentID string
	Lines           []domain.CartLine
}

// ConfirmOrder posts the captured payment plus the cart lines and returns
// the server-created order with the loyalty points it earned. The gateway
// intent ID doubles as the backend-side idempotency hint.
func (c *Client) ConfirmOrder(ctx context.Context, token string, in ConfirmOrderInput) (*domain.OrderConfirmation, error) {
	body := confirmRequest{
		PaymentIntentID: in.GatewayIntentID,
		MetodoPago:      metodoPagoTarjeta,
		Productos:       make([]confirmProductDTO, len(in.Lines)),
	}
	for i, line := range in.Lines {
		body.Productos[i] = confirmProductDTO{
			ProductoID:     line.ProductID,
			Cantidad:       line.Quantity,
			PrecioUnitario: line.UnitPrice,
			Notas:          line.Notes,
		}
	}

	var resp confirmResponse
	if err := c.do(ctx, http.MethodPost, "/payments/confirm", token, body, &resp); err != nil {
		return nil, fmt.Errorf("confirm order: %w", err)
	}

	order := resp.Pedido.toDomain()

	c.logger.InfoContext(ctx, "order materialized",
		slog.Int64("order_id", order.ID),
		slog.String("gateway_intent_id", in.GatewayIntentID),
		slog.Int("points_earned", resp.PuntosGanados),
	)

	return &domain.OrderConfirmation{
		Order:           order,
		PointsEarned:    resp.PuntosGanados,
		GatewayIntentID: in.GatewayIntentID,
	}, nil
}

// GetPaymentStatus reports the backend's view of a payment intent.
func (c *Client) GetPaymentStatus(ctx context.Context, token, intentID string) (string, error) {
	var resp paymentStatusResponse
	if err := c.do(ctx, http.MethodGet, "/payments/status/"+intentID, token, nil, &resp); err != nil {
		return "", fmt.Errorf("get payment status: %w", err)
	}
	return resp.Status, nil
}

// ListOrders returns every order. The backend restricts this listing to
// kitchen and admin tokens; customers use ListMyOrders.
func (c *Client) ListOrders(ctx context.Context, token string) ([]domain.Order, error) {
	return c.fetchOrders(ctx, "/orders", token)
}

// ListMyOrders returns the orders belonging to the presented customer token.
func (c *Client) ListMyOrders(ctx context.Context, token string) ([]domain.Order, error) {
	return c.fetchOrders(ctx, "/orders/my-orders", token)
}

func (c *Client) fetchOrders(ctx context.Context, path, token string) ([]domain.Order, error) {
	var dtos []orderDTO
	if err := c.do(ctx, http.MethodGet, path, token, nil, &dtos); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	orders := make([]domain.Order, len(dtos))
	for i, dto := range dtos {
		orders[i] = dto.toDomain()
	}
	return orders, nil
}

// UpdateOrderStatus moves an order to the given fulfillment status and
// returns the backend's updated view of it.
func (c *Client) UpdateOrderStatus(ctx context.Context, token string, orderID int64, status string) (*domain.Order, error) {
	path := "/orders/" + strconv.FormatInt(orderID, 10) + "/status"

	var dto orderDTO
	if err := c.do(ctx, http.MethodPatch, path, token, updateStatusRequest{Estado: status}, &dto); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	order := dto.toDomain()
	return &order, nil
}

// AdjustLoyalty applies a signed point delta to a user's balance and
// returns the confirmed balance.
func (c *Client) AdjustLoyalty(ctx context.Context, token, userID string, points int) (int, error) {
	var resp adjustLoyaltyResponse
	if err := c.do(ctx, http.MethodPost, "/loyalty/adjust", token, adjustLoyaltyRequest{UserID: userID, Points: points}, &resp); err != nil {
		return 0, fmt.Errorf("adjust loyalty: %w", err)
	}
	return resp.PuntosActuales, nil
}

// ListProducts returns the catalog.
func (c *Client) ListProducts(ctx context.Context, token string) ([]domain.Product, error) {
	var dtos []productDTO
	if err := c.do(ctx, http.MethodGet, "/products", token, nil, &dtos); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	products := make([]domain.Product, len(dtos))
	for i, dto := range dtos {
		products[i] = dto.toDomain()
	}
	return products, nil
}

// do executes one backend call: marshal body, set headers, map non-2xx
// responses through the shared downstream error parser, decode into out.
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("call backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return httpclient.ParseResponseError(resp, "backend")
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
