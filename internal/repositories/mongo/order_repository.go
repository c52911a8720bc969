package mongo

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/voltmart/storefront/internal/domain"
	"github.com/voltmart/storefront/internal/repositories"
)

const (
	orderCollection    = "orders"
	paymentIntentIndex = "orders_payment_intent_unique"
	orderNumberIndex   = "orders_order_number_unique"
)

// OrderRepository persists orders. Uniqueness of paymentIntentId and orderNumber is enforced by
// the indexes created in EnsureIndexes.
type OrderRepository struct {
	collection *mongo.Collection
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

// NewOrderRepository binds the repository to the orders collection of db.
func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{collection: db.Collection(orderCollection)}
}

func (r *OrderRepository) Create(ctx context.Context, order domain.Order) (domain.Order, error) {
	if strings.TrimSpace(order.PaymentIntentID) == "" {
		return domain.Order{}, errors.New("order repository: payment intent id is required")
	}
	_, err := r.collection.InsertOne(ctx, newOrderDocument(order))
	switch {
	case err == nil:
		return order, nil
	case duplicateOn(err, orderNumberIndex):
		return domain.Order{}, repositories.ErrOrderNumberTaken
	default:
		return domain.Order{}, wrapError("orders.create", err)
	}
}

func (r *OrderRepository) FindByPaymentIntent(ctx context.Context, paymentIntentID string) (domain.Order, error) {
	var doc orderDocument
	err := r.collection.FindOne(ctx, bson.M{"paymentIntentId": strings.TrimSpace(paymentIntentID)}).Decode(&doc)
	if err != nil {
		return domain.Order{}, wrapError("orders.find_by_payment_intent", err)
	}
	return doc.toDomain(), nil
}

func (r *OrderRepository) OrderNumberExists(ctx context.Context, orderNumber string) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"orderNumber": orderNumber}, options.Count().SetLimit(1))
	if err != nil {
		return false, wrapError("orders.order_number_exists", err)
	}
	return n > 0, nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"userId": strings.TrimSpace(userID)}, opts)
	if err != nil {
		return nil, wrapError("orders.list_by_user", err)
	}
	var docs []orderDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, wrapError("orders.list_by_user", err)
	}
	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		orders = append(orders, doc.toDomain())
	}
	return orders, nil
}

type orderItemDocument struct {
	ProductID string `bson:"product"`
	Name      string `bson:"name"`
	Image     string `bson:"image,omitempty"`
	Quantity  int    `bson:"quantity"`
	Price     int64  `bson:"price"`
}

type orderDocument struct {
	ID              string              `bson:"_id"`
	OrderNumber     string              `bson:"orderNumber"`
	UserID          string              `bson:"userId"`
	Items           []orderItemDocument `bson:"items"`
	Subtotal        int64               `bson:"subtotal"`
	Shipping        int64               `bson:"shipping"`
	Total           int64               `bson:"total"`
	Status          string              `bson:"status"`
	PaymentIntentID string              `bson:"paymentIntentId"`
	CreatedAt       time.Time           `bson:"createdAt"`
	UpdatedAt       time.Time           `bson:"updatedAt"`
}

func newOrderDocument(order domain.Order) orderDocument {
	items := make([]orderItemDocument, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemDocument{
			ProductID: item.ProductID,
			Name:      item.Name,
			Image:     item.Image,
			Quantity:  item.Quantity,
			Price:     item.Price.MinorUnits(),
		})
	}
	return orderDocument{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		UserID:          order.UserID,
		Items:           items,
		Subtotal:        order.Subtotal.MinorUnits(),
		Shipping:        order.Shipping.MinorUnits(),
		Total:           order.Total.MinorUnits(),
		Status:          string(order.Status),
		PaymentIntentID: order.PaymentIntentID,
		CreatedAt:       order.CreatedAt.UTC(),
		UpdatedAt:       order.UpdatedAt.UTC(),
	}
}

func (d orderDocument) toDomain() domain.Order {
	items := make([]domain.OrderItem, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, domain.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Image:     item.Image,
			Quantity:  item.Quantity,
			Price:     domain.Money(item.Price),
		})
	}
	return domain.Order{
		ID:              d.ID,
		OrderNumber:     d.OrderNumber,
		UserID:          d.UserID,
		Items:           items,
		Subtotal:        domain.Money(d.Subtotal),
		Shipping:        domain.Money(d.Shipping),
		Total:           domain.Money(d.Total),
		Status:          domain.OrderStatus(d.Status),
		PaymentIntentID: d.PaymentIntentID,
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
	}
}
