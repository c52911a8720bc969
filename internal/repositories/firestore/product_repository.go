package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/voltmart/storefront/internal/domain"
	pfirestore "github.com/voltmart/storefront/internal/platform/firestore"
	"github.com/voltmart/storefront/internal/repositories"
)

const productCollection = "products"

// ProductRepository stores the catalog in Firestore. Prices are persisted in minor units.
type ProductRepository struct {
	provider *pfirestore.Provider
	products *pfirestore.Collection[productDocument]
}

var _ repositories.ProductRepository = (*ProductRepository)(nil)

// NewProductRepository constructs a Firestore-backed catalog store.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	return &ProductRepository{
		provider: provider,
		products: pfirestore.NewCollection[productDocument](provider, productCollection),
	}, nil
}

func (r *ProductRepository) FindByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	docs, err := r.products.GetAll(ctx, ids)
	if err != nil {
		return nil, err
	}
	found := make(map[string]domain.Product, len(docs))
	for _, doc := range docs {
		found[doc.ID] = doc.Data.toDomain(doc.ID)
	}
	return found, nil
}

func (r *ProductRepository) Get(ctx context.Context, id string) (domain.Product, error) {
	doc, err := r.products.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Product{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// Query loads the catalog and evaluates the query in memory. Firestore has no substring search
// and the facets need the whole catalog anyway.
func (r *ProductRepository) Query(ctx context.Context, query domain.ProductQuery) (domain.ProductPage, error) {
	products, err := r.List(ctx)
	if err != nil {
		return domain.ProductPage{}, err
	}
	return repositories.EvaluateProductQuery(products, query), nil
}

func (r *ProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	docs, err := r.products.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("createdAt", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}
	products := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, doc.Data.toDomain(doc.ID))
	}
	return products, nil
}

func (r *ProductRepository) Count(ctx context.Context) (int, error) {
	return r.products.Count(ctx)
}

func (r *ProductRepository) Insert(ctx context.Context, product domain.Product) (domain.Product, error) {
	if err := r.products.Create(ctx, product.ID, newProductDocument(product)); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

func (r *ProductRepository) Update(ctx context.Context, product domain.Product) (domain.Product, error) {
	if err := r.products.Replace(ctx, product.ID, newProductDocument(product)); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	return r.products.Delete(ctx, strings.TrimSpace(id))
}

func (r *ProductRepository) Ping(ctx context.Context) error {
	return r.provider.Ping(ctx)
}

type productDocument struct {
	Name          string    `firestore:"name"`
	Description   string    `firestore:"description"`
	Price         int64     `firestore:"price"`
	PreviousPrice *int64    `firestore:"previousPrice,omitempty"`
	Brand         string    `firestore:"brand"`
	Category      string    `firestore:"category"`
	Image         string    `firestore:"image,omitempty"`
	Stock         int       `firestore:"stock"`
	Featured      bool      `firestore:"featured"`
	Rating        float64   `firestore:"rating"`
	Tags          []string  `firestore:"tags,omitempty"`
	CreatedAt     time.Time `firestore:"createdAt"`
	UpdatedAt     time.Time `firestore:"updatedAt"`
}

func newProductDocument(product domain.Product) productDocument {
	doc := productDocument{
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price.MinorUnits(),
		Brand:       product.Brand,
		Category:    string(product.Category),
		Image:       product.Image,
		Stock:       product.Stock,
		Featured:    product.Featured,
		Rating:      product.Rating,
		Tags:        append([]string(nil), product.Tags...),
		CreatedAt:   product.CreatedAt.UTC(),
		UpdatedAt:   product.UpdatedAt.UTC(),
	}
	if product.PreviousPrice != nil {
		prev := product.PreviousPrice.MinorUnits()
		doc.PreviousPrice = &prev
	}
	return doc
}

func (d productDocument) toDomain(id string) domain.Product {
	product := domain.Product{
		ID:          id,
		Name:        d.Name,
		Description: d.Description,
		Price:       domain.Money(d.Price),
		Brand:       d.Brand,
		Category:    domain.Category(d.Category),
		Image:       d.Image,
		Stock:       d.Stock,
		Featured:    d.Featured,
		Rating:      d.Rating,
		Tags:        append([]string(nil), d.Tags...),
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
	if d.PreviousPrice != nil {
		prev := domain.Money(*d.PreviousPrice)
		product.PreviousPrice = &prev
	}
	return product
}
