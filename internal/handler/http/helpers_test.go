package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/backend"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/domain"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/event"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/service"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/tracker"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/health"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/httputil"
	pkgkafka "github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/kafka"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/middleware"
)

// ============================================================================
// Mocks
// ============================================================================

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

// ============================================================================
// Test helpers
// ============================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testProducer points at an unreachable broker; best-effort publishes fail
// fast and silently, matching production behavior without a real cluster.
func testProducer(t *testing.T) *event.Producer {
	t.Helper()
	logger := testLogger()
	kafkaProducer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig([]string{"localhost:1"}), logger)
	t.Cleanup(func() { _ = kafkaProducer.Close() })
	return event.NewProducer(kafkaProducer, logger)
}

// testValidator decodes "userID:role" tokens so tests exercise the real auth
// middleware without signing JWTs.
func testValidator() middleware.TokenValidator {
	return func(token string) (*middleware.Claims, error) {
		userID, role, ok := strings.Cut(token, ":")
		if !ok || userID == "" {
			return nil, errors.New("malformed test token")
		}
		return &middleware.Claims{UserID: userID, Role: role}, nil
	}
}

const (
	customerToken = "user-123:customer"
	staffToken    = "staff-9:staff"
)

// mineList is the thread-safe order listing backing the per-user trackers.
type mineList struct {
	mu     sync.Mutex
	orders []domain.Order
	tokens []string
}

func (l *mineList) list(_ context.Context, token string) ([]domain.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens = append(l.tokens, token)
	return l.orders, nil
}

func (l *mineList) set(orders []domain.Order) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.orders = orders
}

func (l *mineList) lastToken() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.tokens) == 0 {
		return ""
	}
	return l.tokens[len(l.tokens)-1]
}

type testEnv struct {
	carts          *mockCartRepository
	loyalty        *mockLoyaltyRepository
	journal        *mockReconciliationRepository
	catalog        *mockCatalog
	payments       *mockPaymentBackend
	orders         *mockOrderBackend
	loyaltyBackend *mockLoyaltyBackend
	gateway        *mockGateway
	mine           *mineList

	router http.Handler
}

// newTestEnv wires real services over mocks behind the production router, so
// every test goes through auth, role gates and routing.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := testLogger()
	producer := testProducer(t)

	env := &testEnv{
		carts:          new(mockCartRepository),
		loyalty:        new(mockLoyaltyRepository),
		journal:        new(mockReconciliationRepository),
		catalog:        new(mockCatalog),
		payments:       new(mockPaymentBackend),
		orders:         new(mockOrderBackend),
		loyaltyBackend: new(mockLoyaltyBackend),
		gateway:        new(mockGateway),
		mine:           &mineList{},
	}

	cartSvc := service.NewCartService(env.carts, env.catalog, producer, logger)
	checkoutSvc := service.NewCheckoutService(env.carts, env.loyalty, env.journal, env.payments, env.gateway, producer, logger, service.CheckoutTimeouts{})
	orderSvc := service.NewOrderService(env.orders, producer, logger)
	loyaltySvc := service.NewLoyaltyService(env.loyalty, env.loyaltyBackend, producer, logger)
	catalogSvc := service.NewCatalogService(env.catalog)
	reconSvc := service.NewReconciliationService(env.journal, logger)

	trackerCtx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	active := tracker.New("active", tracker.ActiveOnly(func(_ context.Context) ([]domain.Order, error) {
		return kitchenOrders(), nil
	}), 10*time.Millisecond, logger)
	active.Start(trackerCtx)

	manager := tracker.NewManager(env.mine.list, 10*time.Millisecond, time.Minute, logger)
	manager.Start(trackerCtx)

	env.router = NewRouter(RouterConfig{
		Cart:            NewCartHandler(cartSvc, logger),
		Checkout:        NewCheckoutHandler(checkoutSvc, logger),
		Orders:          NewOrderHandler(orderSvc, manager, active, logger),
		Loyalty:         NewLoyaltyHandler(loyaltySvc, logger),
		Catalog:         NewCatalogHandler(catalogSvc, logger),
		Reconciliations: NewReconciliationHandler(reconSvc, logger),
		Health:          health.NewHandler(),
		TokenValidator:  testValidator(),
		CORS:            middleware.DefaultCORSConfig(),
		Logger:          logger,
	})

	return env
}

func (e *testEnv) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

// dataMap re-decodes the envelope's data member into a map for field-level
// assertions.
func dataMap(t *testing.T, resp httputil.Response) map[string]any {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

// ============================================================================
// Fixtures
// ============================================================================

func sampleCatalog() []domain.Product {
	return []domain.Product{
		{ID: 1, Name: "Crepa de Nutella", Price: 8500, Available: true, ImageURL: "https://img.example.com/nutella.jpg"},
		{ID: 2, Name: "Crepa de Fresa", Price: 7900, Available: false},
		{ID: 3, Name: "Crepa de Queso", Price: 6900, Available: true},
	}
}

func cartWithLines(userID string) *domain.Cart {
	cart := domain.NewCart(userID)
	cart.Lines = []domain.CartLine{
		{ProductID: 1, Name: "Crepa de Nutella", UnitPrice: 8500, Quantity: 2, Notes: "sin fresas"},
		{ProductID: 3, Name: "Crepa de Queso", UnitPrice: 6900, Quantity: 1},
	}
	return cart
}

func kitchenOrders() []domain.Order {
	return []domain.Order{
		{ID: 7, CustomerName: "Ana", Status: domain.StatusPending, Total: 23900},
		{ID: 8, CustomerName: "Luis", Status: domain.StatusPreparing, Total: 8500},
		{ID: 9, CustomerName: "Eva", Status: domain.StatusDelivered, Total: 6900},
	}
}
