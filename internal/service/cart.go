package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/domain"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/event"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/repository"
	apperrors "github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/errors"
)

// Cart operation upper-bound limits to prevent abuse.
const (
	// MaxQuantityPerLine is the maximum quantity allowed for a single line.
	MaxQuantityPerLine = 50
	// MaxLinesPerCart is the maximum number of distinct lines in a cart.
	MaxLinesPerCart = 30
)

// Catalog is the slice of the backend client the cart needs: product
// lookups for price, name and availability. The cart never trusts
// client-supplied prices.
type Catalog interface {
	ListProducts(ctx context.Context, token string) ([]domain.Product, error)
}

// AddItemInput holds the parameters for adding a product to the cart.
type AddItemInput struct {
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
	Notes     string `json:"notes" validate:"max=200"`
}

// CartService implements the business logic for cart operations. Every
// mutation persists synchronously before returning and then raises a change
// notification; nothing observes the cart by polling.
type CartService struct {
	repo     repository.CartRepository
	catalog  Catalog
	producer *event.Producer
	logger   *slog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(repo repository.CartRepository, catalog Catalog, producer *event.Producer, logger *slog.Logger) *CartService {
	return &CartService{
		repo:     repo,
		catalog:  catalog,
		producer: producer,
		logger:   logger,
	}
}

// GetCart retrieves the cart for a user. If no cart exists (or a stored cart
// was discarded for a schema mismatch), returns an empty cart.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}

	cart, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.NewCart(userID), nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	return cart, nil
}

// Snapshot returns an immutable view of the cart with derived totals.
func (s *CartService) Snapshot(ctx context.Context, userID string) (domain.CartSnapshot, error) {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return domain.CartSnapshot{}, err
	}
	return cart.Snapshot(), nil
}

// AddItem adds a product to the user's cart, merging on product ID. Price,
// name and availability come from the catalog; an unavailable product is
// rejected with no effect on the cart.
func (s *CartService) AddItem(ctx context.Context, userID, token string, input AddItemInput) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if input.ProductID <= 0 {
		return nil, apperrors.InvalidInput("product id is required")
	}
	if input.Quantity <= 0 {
		return nil, apperrors.InvalidInput("quantity must be greater than 0")
	}
	if input.Quantity > MaxQuantityPerLine {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerLine))
	}

	product, err := s.lookupProduct(ctx, token, input.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.Available {
		return nil, apperrors.ProductUnavailable(product.Name)
	}

	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	if idx := cart.FindLineIndex(input.ProductID); idx >= 0 {
		newQty := cart.Lines[idx].Quantity + input.Quantity
		if newQty > MaxQuantityPerLine {
			return nil, apperrors.InvalidInput(fmt.Sprintf("combined quantity must not exceed %d", MaxQuantityPerLine))
		}
		cart.Lines[idx].Quantity = newQty
		// Refresh catalog-owned fields in case they changed.
		cart.Lines[idx].Name = product.Name
		cart.Lines[idx].UnitPrice = product.Price
		cart.Lines[idx].ImageURL = product.ImageURL
		if input.Notes != "" {
			cart.Lines[idx].Notes = input.Notes
		}
	} else {
		if len(cart.Lines) >= MaxLinesPerCart {
			return nil, apperrors.InvalidInput(fmt.Sprintf("cart must not contain more than %d lines", MaxLinesPerCart))
		}
		cart.Lines = append(cart.Lines, domain.CartLine{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  input.Quantity,
			Notes:     input.Notes,
			ImageURL:  product.ImageURL,
		})
	}

	if err := s.persist(ctx, cart); err != nil {
		return nil, err
	}

	s.notifyUpdated(ctx, cart)
	return cart, nil
}

// SetQuantity sets the quantity of a cart line. Quantity zero removes the
// line; no line ever persists with a non-positive quantity.
func (s *CartService) SetQuantity(ctx context.Context, userID string, productID int64, quantity int) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if quantity < 0 {
		return nil, apperrors.InvalidInput("quantity must not be negative")
	}
	if quantity > MaxQuantityPerLine {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerLine))
	}

	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	idx := cart.FindLineIndex(productID)
	if idx < 0 {
		return nil, apperrors.NotFound("cart line", fmt.Sprintf("%d", productID))
	}

	if quantity == 0 {
		cart.Lines = append(cart.Lines[:idx], cart.Lines[idx+1:]...)
	} else {
		cart.Lines[idx].Quantity = quantity
	}

	if err := s.persist(ctx, cart); err != nil {
		return nil, err
	}

	s.notifyUpdated(ctx, cart)
	return cart, nil
}

// RemoveItem removes a line from the cart.
func (s *CartService) RemoveItem(ctx context.Context, userID string, productID int64) (*domain.Cart, error) {
	return s.SetQuantity(ctx, userID, productID, 0)
}

// Clear atomically empties the user's cart.
func (s *CartService) Clear(ctx context.Context, userID string) error {
	if userID == "" {
		return apperrors.InvalidInput("user id is required")
	}

	if err := s.repo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}

	if err := s.producer.PublishCartCleared(ctx, userID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// lookupProduct finds a catalog product by ID.
func (s *CartService) lookupProduct(ctx context.Context, token string, productID int64) (*domain.Product, error) {
	products, err := s.catalog.ListProducts(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("lookup product: %w", err)
	}
	for i := range products {
		if products[i].ID == productID {
			return &products[i], nil
		}
	}
	return nil, apperrors.NotFound("product", fmt.Sprintf("%d", productID))
}

// persist writes the cart to the store before the mutation is acknowledged.
func (s *CartService) persist(ctx context.Context, cart *domain.Cart) error {
	cart.UpdatedAt = time.Now().UTC()
	if err := s.repo.Save(ctx, cart); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (s *CartService) notifyUpdated(ctx context.Context, cart *domain.Cart) {
	if err := s.producer.PublishCartUpdated(ctx, cart); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.updated event",
			slog.String("user_id", cart.UserID),
			slog.String("error", err.Error()),
		)
	}
}
