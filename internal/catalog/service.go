package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ANUSHA12-K/juicy-cart-delight/internal/common"
)

// ErrNotFound indicates the requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Repository reads products from persistence.
type Repository interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id string) (Product, error)
}

// Service serves catalog reads through an optional cache.
type Service struct {
	repo  Repository
	cache *Cache
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Repository Repository
	Cache      *Cache
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Repository == nil {
		return nil, errors.New("catalog: repository is required")
	}
	return &Service{repo: cfg.Repository, cache: cfg.Cache}, nil
}

// ListProducts returns all products ordered by name.
func (s *Service) ListProducts(ctx context.Context) ([]Product, error) {
	var cached []Product
	if ok, err := s.cache.GetJSON(ctx, listCacheKey, &cached); err == nil && ok {
		return cached, nil
	}
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if products == nil {
		products = []Product{}
	}
	_ = s.cache.SetJSON(ctx, listCacheKey, products)
	return products, nil
}

// GetProduct returns a single product by identifier.
func (s *Service) GetProduct(ctx context.Context, id string) (Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Product{}, &common.AppError{Code: "BAD_REQUEST", Message: "product id is required", HTTPStatus: http.StatusBadRequest}
	}
	var cached Product
	if ok, err := s.cache.GetJSON(ctx, detailCachePrefix+id, &cached); err == nil && ok {
		return cached, nil
	}
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Product{}, &common.AppError{Code: "NOT_FOUND", Message: "product not found", HTTPStatus: http.StatusNotFound, Err: err}
		}
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	_ = s.cache.SetJSON(ctx, detailCachePrefix+id, product)
	return product, nil
}
