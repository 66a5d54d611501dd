package service

import (
	"context"
	"fmt"

	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/domain"
)

// CatalogService proxies the backend catalog for the menu surface.
type CatalogService struct {
	catalog Catalog
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(catalog Catalog) *CatalogService {
	return &CatalogService{catalog: catalog}
}

// Products returns the backend catalog.
func (s *CatalogService) Products(ctx context.Context, token string) ([]domain.Product, error) {
	products, err := s.catalog.ListProducts(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}
