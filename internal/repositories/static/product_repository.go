// Package static serves the built-in sample catalog. It never fails reads and refuses writes.
package static

import (
	"context"
	"errors"
	"strings"

	"github.com/voltmart/storefront/internal/domain"
	"github.com/voltmart/storefront/internal/repositories"
)

var errReadOnly = errors.New("static catalog is read-only")

// ProductRepository is an immutable in-memory catalog.
type ProductRepository struct {
	products []domain.Product
	byID     map[string]domain.Product
}

var _ repositories.ProductRepository = (*ProductRepository)(nil)

// NewProductRepository builds a repository over products. A nil slice uses SampleProducts.
func NewProductRepository(products []domain.Product) *ProductRepository {
	if products == nil {
		products = SampleProducts()
	}
	repo := &ProductRepository{
		products: append([]domain.Product(nil), products...),
		byID:     make(map[string]domain.Product, len(products)),
	}
	for _, product := range repo.products {
		repo.byID[product.ID] = product
	}
	return repo
}

func (r *ProductRepository) FindByIDs(_ context.Context, ids []string) (map[string]domain.Product, error) {
	found := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if product, ok := r.byID[strings.TrimSpace(id)]; ok {
			found[product.ID] = product
		}
	}
	return found, nil
}

func (r *ProductRepository) Get(_ context.Context, id string) (domain.Product, error) {
	product, ok := r.byID[strings.TrimSpace(id)]
	if !ok {
		return domain.Product{}, repositories.NewStoreError("static.products.get", repositories.StoreErrorNotFound, nil)
	}
	return product, nil
}

func (r *ProductRepository) Query(_ context.Context, query domain.ProductQuery) (domain.ProductPage, error) {
	return repositories.EvaluateProductQuery(r.products, query), nil
}

func (r *ProductRepository) List(context.Context) ([]domain.Product, error) {
	products := append([]domain.Product(nil), r.products...)
	repositories.SortProducts(products, domain.ProductSortNewest)
	return products, nil
}

func (r *ProductRepository) Count(context.Context) (int, error) {
	return len(r.products), nil
}

func (r *ProductRepository) Insert(context.Context, domain.Product) (domain.Product, error) {
	return domain.Product{}, repositories.NewStoreError("static.products.insert", repositories.StoreErrorReadOnly, errReadOnly)
}

func (r *ProductRepository) Update(context.Context, domain.Product) (domain.Product, error) {
	return domain.Product{}, repositories.NewStoreError("static.products.update", repositories.StoreErrorReadOnly, errReadOnly)
}

func (r *ProductRepository) Delete(context.Context, string) error {
	return repositories.NewStoreError("static.products.delete", repositories.StoreErrorReadOnly, errReadOnly)
}

func (r *ProductRepository) Ping(context.Context) error { return nil }
