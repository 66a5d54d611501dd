package service

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/backend"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/domain"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/event"
	pkgkafka "github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/kafka"
)

// --- Shared test doubles ---

type mockCartRepository struct {
	mock.Mock
}

func (m *mockCartRepository) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockCartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	args := m.Called(ctx, cart)
	return args.Error(0)
}

func (m *mockCartRepository) Delete(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type mockLoyaltyRepository struct {
	mock.Mock
}

func (m *mockLoyaltyRepository) Get(ctx context.Context, userID string) (*domain.LoyaltyBalance, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoyaltyBalance), args.Error(1)
}

func (m *mockLoyaltyRepository) Save(ctx context.Context, balance *domain.LoyaltyBalance) error {
	args := m.Called(ctx, balance)
	return args.Error(0)
}

func (m *mockLoyaltyRepository) Delete(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type mockReconciliationRepository struct {
	mock.Mock
}

func (m *mockReconciliationRepository) Create(ctx context.Context, rec *domain.Reconciliation) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *mockReconciliationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Reconciliation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reconciliation), args.Error(1)
}

func (m *mockReconciliationRepository) ListOpen(ctx context.Context, limit, offset int) ([]domain.Reconciliation, int, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Reconciliation), args.Int(1), args.Error(2)
}

func (m *mockReconciliationRepository) Resolve(ctx context.Context, id uuid.UUID, resolvedBy string) error {
	args := m.Called(ctx, id, resolvedBy)
	return args.Error(0)
}

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) ListProducts(ctx context.Context, token string) ([]domain.Product, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

type mockPaymentBackend struct {
	mock.Mock
}

func (m *mockPaymentBackend) CreatePaymentIntent(ctx context.Context, token string, in backend.CreateIntentInput) (string, error) {
	args := m.Called(ctx, token, in)
	return args.String(0), args.Error(1)
}

func (m *mockPaymentBackend) ConfirmOrder(ctx context.Context, token string, in backend.ConfirmOrderInput) (*domain.OrderConfirmation, error) {
	args := m.Called(ctx, token, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OrderConfirmation), args.Error(1)
}

func (m *mockPaymentBackend) GetPaymentStatus(ctx context.Context, token, intentID string) (string, error) {
	args := m.Called(ctx, token, intentID)
	return args.String(0), args.Error(1)
}

type mockOrderBackend struct {
	mock.Mock
}

func (m *mockOrderBackend) ListOrders(ctx context.Context, token string) ([]domain.Order, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *mockOrderBackend) UpdateOrderStatus(ctx context.Context, token string, orderID int64, status string) (*domain.Order, error) {
	args := m.Called(ctx, token, orderID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

type mockLoyaltyBackend struct {
	mock.Mock
}

func (m *mockLoyaltyBackend) AdjustLoyalty(ctx context.Context, token, userID string, points int) (int, error) {
	args := m.Called(ctx, token, userID, points)
	return args.Int(0), args.Error(1)
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) ConfirmIntent(ctx context.Context, clientSecret string, card domain.Card) (*domain.PaymentResult, error) {
	args := m.Called(ctx, clientSecret, card)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentResult), args.Error(1)
}

// --- Shared helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestProducer points at no real broker; publishes fail silently, which
// is fine because producers are best-effort everywhere in this service.
func newTestProducer(t *testing.T) *event.Producer {
	t.Helper()
	logger := newTestLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:1"})
	kafkaProducer := pkgkafka.NewProducer(kafkaCfg, logger)
	t.Cleanup(func() { _ = kafkaProducer.Close() })
	return event.NewProducer(kafkaProducer, logger)
}

func cartWithLines(userID string) *domain.Cart {
	cart := domain.NewCart(userID)
	cart.Lines = []domain.CartLine{
		{ProductID: 1, Name: "Crepa de Nutella", UnitPrice: 8500, Quantity: 2, Notes: "sin fresas"},
		{ProductID: 3, Name: "Crepa de Queso", UnitPrice: 6900, Quantity: 1},
	}
	cart.UpdatedAt = time.Now().UTC()
	return cart
}

func sampleCatalog() []domain.Product {
	return []domain.Product{
		{ID: 1, Name: "Crepa de Nutella", Price: 8500, Available: true},
		{ID: 2, Name: "Crepa de Fresa", Price: 7900, Available: false},
		{ID: 3, Name: "Crepa de Queso", Price: 6900, Available: true},
	}
}
