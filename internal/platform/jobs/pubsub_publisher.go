package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"

	"github.com/voltmart/storefront/internal/domain"
)

// OrderPaidEvent is the Pub/Sub payload announcing a newly settled order.
type OrderPaidEvent struct {
	Type            string          `json:"type"`
	OrderID         string          `json:"orderId"`
	OrderNumber     string          `json:"orderNumber"`
	UserID          string          `json:"userId"`
	PaymentIntentID string          `json:"paymentIntentId"`
	Items           []OrderPaidItem `json:"items"`
	Subtotal        domain.Money    `json:"subtotal"`
	Shipping        domain.Money    `json:"shipping"`
	Total           domain.Money    `json:"total"`
	PaidAt          time.Time       `json:"paidAt"`
}

// OrderPaidItem is a purchased line within OrderPaidEvent.
type OrderPaidItem struct {
	ProductID string       `json:"productId"`
	Quantity  int          `json:"quantity"`
	Price     domain.Money `json:"price"`
}

const orderPaidEventType = "order.paid"

// PubSubOrderPublisher publishes order events to a Pub/Sub topic.
type PubSubOrderPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubOrderPublisher constructs a Pub/Sub backed order event publisher.
func NewPubSubOrderPublisher(topic *pubsub.Topic) (*PubSubOrderPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub order publisher: topic is required")
	}
	return &PubSubOrderPublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// PublishOrderPaid publishes an order.paid event and waits for the server acknowledgement.
func (p *PubSubOrderPublisher) PublishOrderPaid(ctx context.Context, order domain.Order) error {
	if p == nil || p.topic == nil {
		return errors.New("pubsub order publisher: not initialised")
	}

	event := OrderPaidEvent{
		Type:            orderPaidEventType,
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		UserID:          order.UserID,
		PaymentIntentID: order.PaymentIntentID,
		Items:           make([]OrderPaidItem, 0, len(order.Items)),
		Subtotal:        order.Subtotal,
		Shipping:        order.Shipping,
		Total:           order.Total,
		PaidAt:          order.CreatedAt.UTC(),
	}
	for _, item := range order.Items {
		event.Items = append(event.Items, OrderPaidItem{ProductID: item.ProductID, Quantity: item.Quantity, Price: item.Price})
	}

	data, err := p.marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	attrs := map[string]string{"eventType": orderPaidEventType}
	setAttr(attrs, "orderNumber", order.OrderNumber)
	setAttr(attrs, "paymentIntentId", order.PaymentIntentID)

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish order event: %w", err)
	}
	return nil
}

// Stop flushes pending messages.
func (p *PubSubOrderPublisher) Stop() {
	if p != nil && p.topic != nil {
		p.topic.Stop()
	}
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
