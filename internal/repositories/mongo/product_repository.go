package mongo

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/voltmart/storefront/internal/domain"
	"github.com/voltmart/storefront/internal/repositories"
)

const productCollection = "products"

// ProductRepository stores the catalog in MongoDB and evaluates listing queries server side.
type ProductRepository struct {
	collection *mongo.Collection
}

var _ repositories.ProductRepository = (*ProductRepository)(nil)

// NewProductRepository binds the repository to the products collection of db.
func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{collection: db.Collection(productCollection)}
}

func (r *ProductRepository) FindByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	if len(ids) == 0 {
		return map[string]domain.Product{}, nil
	}
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, wrapError("products.find_by_ids", err)
	}
	var docs []productDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, wrapError("products.find_by_ids", err)
	}
	found := make(map[string]domain.Product, len(docs))
	for _, doc := range docs {
		found[doc.ID] = doc.toDomain()
	}
	return found, nil
}

func (r *ProductRepository) Get(ctx context.Context, id string) (domain.Product, error) {
	var doc productDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": strings.TrimSpace(id)}).Decode(&doc)
	if err != nil {
		return domain.Product{}, wrapError("products.get", err)
	}
	return doc.toDomain(), nil
}

func (r *ProductRepository) Query(ctx context.Context, query domain.ProductQuery) (domain.ProductPage, error) {
	query = query.Normalized()
	filter := productFilter(query)

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return domain.ProductPage{}, wrapError("products.query", err)
	}

	opts := options.Find().
		SetSort(productSort(query.Sort)).
		SetSkip(int64(query.Skip)).
		SetLimit(int64(query.Limit))
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return domain.ProductPage{}, wrapError("products.query", err)
	}
	var docs []productDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return domain.ProductPage{}, wrapError("products.query", err)
	}

	brands, err := r.distinctStrings(ctx, "brand")
	if err != nil {
		return domain.ProductPage{}, err
	}
	rawCategories, err := r.distinctStrings(ctx, "category")
	if err != nil {
		return domain.ProductPage{}, err
	}
	categories := make([]domain.Category, 0, len(rawCategories))
	for _, c := range rawCategories {
		categories = append(categories, domain.Category(c))
	}

	page := domain.ProductPage{
		Products:   make([]domain.Product, 0, len(docs)),
		Total:      int(total),
		Brands:     brands,
		Categories: categories,
	}
	for _, doc := range docs {
		page.Products = append(page.Products, doc.toDomain())
	}
	return page, nil
}

func (r *ProductRepository) distinctStrings(ctx context.Context, field string) ([]string, error) {
	values, err := r.collection.Distinct(ctx, field, bson.M{})
	if err != nil {
		return nil, wrapError("products.distinct", err)
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out, nil
}

func productFilter(query domain.ProductQuery) bson.M {
	filter := bson.M{}
	if query.Category != "" {
		filter["category"] = string(query.Category)
	}
	if brand := strings.TrimSpace(query.Brand); brand != "" {
		filter["brand"] = bson.M{"$regex": "^" + regexp.QuoteMeta(brand) + "$", "$options": "i"}
	}
	price := bson.M{}
	if query.MinPrice != nil {
		price["$gte"] = query.MinPrice.MinorUnits()
	}
	if query.MaxPrice != nil {
		price["$lte"] = query.MaxPrice.MinorUnits()
	}
	if len(price) > 0 {
		filter["price"] = price
	}
	if query.Featured != nil {
		filter["featured"] = *query.Featured
	}
	if search := strings.TrimSpace(query.Search); search != "" {
		pattern := bson.M{"$regex": regexp.QuoteMeta(search), "$options": "i"}
		filter["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"description": pattern},
			bson.M{"brand": pattern},
		}
	}
	return filter
}

func productSort(order domain.ProductSort) bson.D {
	switch order {
	case domain.ProductSortPriceAsc:
		return bson.D{{Key: "price", Value: 1}, {Key: "_id", Value: 1}}
	case domain.ProductSortPriceDesc:
		return bson.D{{Key: "price", Value: -1}, {Key: "_id", Value: 1}}
	case domain.ProductSortTopRated:
		return bson.D{{Key: "rating", Value: -1}, {Key: "_id", Value: 1}}
	default:
		return bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}
	}
}

func (r *ProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(productSort(domain.ProductSortNewest)))
	if err != nil {
		return nil, wrapError("products.list", err)
	}
	var docs []productDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, wrapError("products.list", err)
	}
	products := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, doc.toDomain())
	}
	return products, nil
}

func (r *ProductRepository) Count(ctx context.Context) (int, error) {
	n, err := r.collection.EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, wrapError("products.count", err)
	}
	return int(n), nil
}

func (r *ProductRepository) Insert(ctx context.Context, product domain.Product) (domain.Product, error) {
	if _, err := r.collection.InsertOne(ctx, newProductDocument(product)); err != nil {
		return domain.Product{}, wrapError("products.insert", err)
	}
	return product, nil
}

func (r *ProductRepository) Update(ctx context.Context, product domain.Product) (domain.Product, error) {
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": product.ID}, newProductDocument(product))
	if err != nil {
		return domain.Product{}, wrapError("products.update", err)
	}
	if result.MatchedCount == 0 {
		return domain.Product{}, notFound("products.update")
	}
	return product, nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": strings.TrimSpace(id)})
	if err != nil {
		return wrapError("products.delete", err)
	}
	if result.DeletedCount == 0 {
		return notFound("products.delete")
	}
	return nil
}

func (r *ProductRepository) Ping(ctx context.Context) error {
	if err := r.collection.Database().Client().Ping(ctx, readpref.Primary()); err != nil {
		return &Error{op: "products.ping", err: err, unavailable: true}
	}
	return nil
}

type productDocument struct {
	ID            string    `bson:"_id"`
	Name          string    `bson:"name"`
	Description   string    `bson:"description"`
	Price         int64     `bson:"price"`
	PreviousPrice *int64    `bson:"previousPrice,omitempty"`
	Brand         string    `bson:"brand"`
	Category      string    `bson:"category"`
	Image         string    `bson:"image,omitempty"`
	Stock         int       `bson:"stock"`
	Featured      bool      `bson:"featured"`
	Rating        float64   `bson:"rating"`
	Tags          []string  `bson:"tags,omitempty"`
	CreatedAt     time.Time `bson:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt"`
}

func newProductDocument(product domain.Product) productDocument {
	doc := productDocument{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price.MinorUnits(),
		Brand:       product.Brand,
		Category:    string(product.Category),
		Image:       product.Image,
		Stock:       product.Stock,
		Featured:    product.Featured,
		Rating:      product.Rating,
		Tags:        product.Tags,
		CreatedAt:   product.CreatedAt.UTC(),
		UpdatedAt:   product.UpdatedAt.UTC(),
	}
	if product.PreviousPrice != nil {
		prev := product.PreviousPrice.MinorUnits()
		doc.PreviousPrice = &prev
	}
	return doc
}

func (d productDocument) toDomain() domain.Product {
	product := domain.Product{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Price:       domain.Money(d.Price),
		Brand:       d.Brand,
		Category:    domain.Category(d.Category),
		Image:       d.Image,
		Stock:       d.Stock,
		Featured:    d.Featured,
		Rating:      d.Rating,
		Tags:        d.Tags,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
	if d.PreviousPrice != nil {
		prev := domain.Money(*d.PreviousPrice)
		product.PreviousPrice = &prev
	}
	return product
}
