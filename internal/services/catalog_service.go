package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"

	"github.com/voltmart/storefront/internal/domain"
	"github.com/voltmart/storefront/internal/repositories"
)

const (
	defaultCatalogProbeTimeout = 2 * time.Second
	maxProductNameLength       = 200
	maxProductTextLength       = 4000
	maxProductTags             = 20
)

var (
	// ErrCatalogInvalidInput indicates the admin supplied an invalid product.
	ErrCatalogInvalidInput = errors.New("catalog: invalid input")
	// ErrCatalogNotFound indicates the product does not exist.
	ErrCatalogNotFound = errors.New("catalog: product not found")
)

// CatalogServiceDeps wires the live catalog, the optional static fallback and admin helpers.
type CatalogServiceDeps struct {
	Products     repositories.ProductRepository
	Fallback     repositories.ProductRepository
	ProbeTimeout time.Duration
	IDGenerator  func() string
	Clock        func() time.Time
	Logger       func(ctx context.Context, event string, fields map[string]any)
}

type catalogService struct {
	products     repositories.ProductRepository
	fallback     repositories.ProductRepository
	probeTimeout time.Duration
	policy       *bluemonday.Policy
	newID        func() string
	now          func() time.Time
	logger       func(ctx context.Context, event string, fields map[string]any)
}

var _ CatalogService = (*catalogService)(nil)

// NewCatalogService constructs a CatalogService. Without a Fallback, an unreachable live store is
// reported as ErrCatalogUnavailable.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Products == nil {
		return nil, errors.New("catalog service: product repository is required")
	}
	timeout := deps.ProbeTimeout
	if timeout <= 0 {
		timeout = defaultCatalogProbeTimeout
	}
	newID := deps.IDGenerator
	if newID == nil {
		newID = func() string { return strings.ToLower(ulid.Make().String()) }
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &catalogService{
		products:     deps.Products,
		fallback:     deps.Fallback,
		probeTimeout: timeout,
		policy:       bluemonday.StrictPolicy(),
		newID:        newID,
		now: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

func (s *catalogService) ListProducts(ctx context.Context, query ProductQuery) (ProductPage, error) {
	query = query.Normalized()
	store, fallback, err := s.readStore(ctx)
	if err != nil {
		return ProductPage{}, err
	}
	page, err := store.Query(ctx, query)
	if err != nil && !fallback && s.canFallBack(err) {
		s.logFallback(ctx, "query", err)
		store, fallback = s.fallback, true
		page, err = store.Query(ctx, query)
	}
	if err != nil {
		return ProductPage{}, translateCatalogError(err)
	}
	page.Fallback = fallback
	if page.Products == nil {
		page.Products = []Product{}
	}
	return page, nil
}

func (s *catalogService) GetProduct(ctx context.Context, productID string) (ProductDetail, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return ProductDetail{}, ErrCatalogNotFound
	}
	store, fallback, err := s.readStore(ctx)
	if err != nil {
		return ProductDetail{}, err
	}
	product, err := store.Get(ctx, productID)
	if err != nil && !fallback && s.canFallBack(err) {
		s.logFallback(ctx, "get", err)
		store, fallback = s.fallback, true
		product, err = store.Get(ctx, productID)
	}
	switch {
	case err == nil:
		return ProductDetail{Product: product, Fallback: fallback}, nil
	case repositories.IsNotFound(err):
		return ProductDetail{}, ErrCatalogNotFound
	default:
		return ProductDetail{}, translateCatalogError(err)
	}
}

func (s *catalogService) AdminListProducts(ctx context.Context) ([]Product, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, translateCatalogError(err)
	}
	if products == nil {
		products = []Product{}
	}
	return products, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, cmd CreateProductCommand) (Product, error) {
	now := s.now()
	product := Product{
		ID:            s.newID(),
		Name:          s.sanitize(cmd.Name),
		Description:   s.sanitize(cmd.Description),
		Price:         cmd.Price,
		PreviousPrice: cmd.PreviousPrice,
		Brand:         s.sanitize(cmd.Brand),
		Category:      domain.Category(strings.ToLower(strings.TrimSpace(string(cmd.Category)))),
		Image:         strings.TrimSpace(cmd.Image),
		Stock:         cmd.Stock,
		Featured:      cmd.Featured,
		Rating:        domain.DefaultProductRating,
		Tags:          s.sanitizeTags(cmd.Tags),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if cmd.Rating != nil {
		product.Rating = *cmd.Rating
	}
	if err := validateProduct(product); err != nil {
		return Product{}, err
	}

	created, err := s.products.Insert(ctx, product)
	if err != nil {
		return Product{}, translateCatalogError(err)
	}
	s.logger(ctx, "catalog.product.created", map[string]any{"productId": created.ID})
	return created, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, cmd UpdateProductCommand) (Product, error) {
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return Product{}, ErrCatalogNotFound
	}
	product, err := s.products.Get(ctx, productID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return Product{}, ErrCatalogNotFound
		}
		return Product{}, translateCatalogError(err)
	}

	if cmd.Name != nil {
		product.Name = s.sanitize(*cmd.Name)
	}
	if cmd.Description != nil {
		product.Description = s.sanitize(*cmd.Description)
	}
	if cmd.Price != nil {
		product.Price = *cmd.Price
	}
	if cmd.PreviousPrice != nil {
		product.PreviousPrice = cmd.PreviousPrice
	}
	if cmd.Brand != nil {
		product.Brand = s.sanitize(*cmd.Brand)
	}
	if cmd.Category != nil {
		product.Category = domain.Category(strings.ToLower(strings.TrimSpace(string(*cmd.Category))))
	}
	if cmd.Image != nil {
		product.Image = strings.TrimSpace(*cmd.Image)
	}
	if cmd.Stock != nil {
		product.Stock = *cmd.Stock
	}
	if cmd.Featured != nil {
		product.Featured = *cmd.Featured
	}
	if cmd.Rating != nil {
		product.Rating = *cmd.Rating
	}
	if cmd.Tags != nil {
		product.Tags = s.sanitizeTags(cmd.Tags)
	}
	product.UpdatedAt = s.now()
	if err := validateProduct(product); err != nil {
		return Product{}, err
	}

	updated, err := s.products.Update(ctx, product)
	if err != nil {
		if repositories.IsNotFound(err) {
			return Product{}, ErrCatalogNotFound
		}
		return Product{}, translateCatalogError(err)
	}
	s.logger(ctx, "catalog.product.updated", map[string]any{"productId": updated.ID})
	return updated, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, productID string) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return ErrCatalogNotFound
	}
	if err := s.products.Delete(ctx, productID); err != nil {
		if repositories.IsNotFound(err) {
			return ErrCatalogNotFound
		}
		return translateCatalogError(err)
	}
	s.logger(ctx, "catalog.product.deleted", map[string]any{"productId": productID})
	return nil
}

// readStore picks the live store when its probe succeeds and the static catalog otherwise.
func (s *catalogService) readStore(ctx context.Context) (repositories.ProductRepository, bool, error) {
	if s.fallback == nil {
		return s.products, false, nil
	}
	probeCtx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()
	if err := s.products.Ping(probeCtx); err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		s.logFallback(ctx, "probe", err)
		return s.fallback, true, nil
	}
	return s.products, false, nil
}

func (s *catalogService) canFallBack(err error) bool {
	return s.fallback != nil && repositories.IsUnavailable(err)
}

func (s *catalogService) logFallback(ctx context.Context, stage string, err error) {
	s.logger(ctx, "catalog.fallback", map[string]any{
		"severity": "WARNING",
		"stage":    stage,
		"error":    err.Error(),
	})
}

func (s *catalogService) sanitize(value string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(value)))
}

func (s *catalogService) sanitizeTags(tags []string) []string {
	result := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		clean := strings.ToLower(s.sanitize(tag))
		if clean == "" {
			continue
		}
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		result = append(result, clean)
	}
	return result
}

func validateProduct(product Product) error {
	switch {
	case product.Name == "":
		return fmt.Errorf("%w: name is required", ErrCatalogInvalidInput)
	case len(product.Name) > maxProductNameLength:
		return fmt.Errorf("%w: name must be at most %d characters", ErrCatalogInvalidInput, maxProductNameLength)
	case product.Description == "":
		return fmt.Errorf("%w: description is required", ErrCatalogInvalidInput)
	case len(product.Description) > maxProductTextLength:
		return fmt.Errorf("%w: description must be at most %d characters", ErrCatalogInvalidInput, maxProductTextLength)
	case product.Brand == "":
		return fmt.Errorf("%w: brand is required", ErrCatalogInvalidInput)
	case !product.Category.Valid():
		return fmt.Errorf("%w: category %q is not supported", ErrCatalogInvalidInput, product.Category)
	case product.Price < 0:
		return fmt.Errorf("%w: price must not be negative", ErrCatalogInvalidInput)
	case product.PreviousPrice != nil && *product.PreviousPrice < 0:
		return fmt.Errorf("%w: previousPrice must not be negative", ErrCatalogInvalidInput)
	case product.Stock < 0:
		return fmt.Errorf("%w: stock must not be negative", ErrCatalogInvalidInput)
	case product.Rating < 0 || product.Rating > 5:
		return fmt.Errorf("%w: rating must be between 0 and 5", ErrCatalogInvalidInput)
	case len(product.Tags) > maxProductTags:
		return fmt.Errorf("%w: at most %d tags are allowed", ErrCatalogInvalidInput, maxProductTags)
	}
	return nil
}
