package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/voltmart/storefront/internal/domain"
	pfirestore "github.com/voltmart/storefront/internal/platform/firestore"
	"github.com/voltmart/storefront/internal/repositories"
)

const (
	orderCollection       = "orders"
	orderNumberCollection = "orderNumbers"
)

// OrderRepository stores orders keyed by payment intent id, which makes the intent the
// uniqueness constraint. Order numbers are reserved in a sibling collection inside the same
// transaction.
type OrderRepository struct {
	provider *pfirestore.Provider
	orders   *pfirestore.Collection[orderDocument]
	numbers  *pfirestore.Collection[orderNumberDocument]
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

// NewOrderRepository constructs a Firestore-backed order store.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		provider: provider,
		orders:   pfirestore.NewCollection[orderDocument](provider, orderCollection),
		numbers:  pfirestore.NewCollection[orderNumberDocument](provider, orderNumberCollection),
	}, nil
}

func (r *OrderRepository) Create(ctx context.Context, order domain.Order) (domain.Order, error) {
	intentID := strings.TrimSpace(order.PaymentIntentID)
	if intentID == "" {
		return domain.Order{}, errors.New("order repository: payment intent id is required")
	}
	orderRef, err := r.orders.Doc(ctx, intentID)
	if err != nil {
		return domain.Order{}, err
	}
	numberRef, err := r.numbers.Doc(ctx, order.OrderNumber)
	if err != nil {
		return domain.Order{}, err
	}

	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		exists, err := documentExists(tx, orderRef)
		if err != nil {
			return err
		}
		if exists {
			return pfirestore.Conflict("orders.create", errors.New("order already recorded for payment intent"))
		}
		exists, err = documentExists(tx, numberRef)
		if err != nil {
			return err
		}
		if exists {
			return repositories.ErrOrderNumberTaken
		}
		if err := tx.Create(orderRef, newOrderDocument(order)); err != nil {
			return err
		}
		return tx.Create(numberRef, orderNumberDocument{PaymentIntentID: intentID, CreatedAt: order.CreatedAt.UTC()})
	})
	if err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

func (r *OrderRepository) FindByPaymentIntent(ctx context.Context, paymentIntentID string) (domain.Order, error) {
	doc, err := r.orders.Get(ctx, strings.TrimSpace(paymentIntentID))
	if err != nil {
		return domain.Order{}, err
	}
	return doc.Data.toDomain(), nil
}

func (r *OrderRepository) OrderNumberExists(ctx context.Context, orderNumber string) (bool, error) {
	_, err := r.numbers.Get(ctx, orderNumber)
	switch {
	case err == nil:
		return true, nil
	case repositories.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	docs, err := r.orders.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("userId", "==", strings.TrimSpace(userID)).OrderBy("createdAt", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}
	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		orders = append(orders, doc.Data.toDomain())
	}
	return orders, nil
}

func documentExists(tx *firestore.Transaction, ref *firestore.DocumentRef) (bool, error) {
	snap, err := tx.Get(ref)
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return snap.Exists(), nil
}

type orderNumberDocument struct {
	PaymentIntentID string    `firestore:"paymentIntentId"`
	CreatedAt       time.Time `firestore:"createdAt"`
}

type orderItemDocument struct {
	ProductID string `firestore:"product"`
	Name      string `firestore:"name"`
	Image     string `firestore:"image,omitempty"`
	Quantity  int    `firestore:"quantity"`
	Price     int64  `firestore:"price"`
}

type orderDocument struct {
	ID              string              `firestore:"id"`
	OrderNumber     string              `firestore:"orderNumber"`
	UserID          string              `firestore:"userId"`
	Items           []orderItemDocument `firestore:"items"`
	Subtotal        int64               `firestore:"subtotal"`
	Shipping        int64               `firestore:"shipping"`
	Total           int64               `firestore:"total"`
	Status          string              `firestore:"status"`
	PaymentIntentID string              `firestore:"paymentIntentId"`
	CreatedAt       time.Time           `firestore:"createdAt"`
	UpdatedAt       time.Time           `firestore:"updatedAt"`
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
