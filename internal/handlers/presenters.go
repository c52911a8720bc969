package handlers

import (
	"time"

	"github.com/voltmart/storefront/internal/domain"
)

// productPayload mirrors the storefront's product document. _id is kept for existing clients.
type productPayload struct {
	LegacyID      string        `json:"_id"`
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	Price         domain.Money  `json:"price"`
	PreviousPrice *domain.Money `json:"previousPrice,omitempty"`
	Brand         string        `json:"brand"`
	Category      string        `json:"category"`
	Image         string        `json:"image"`
	Stock         int           `json:"stock"`
	Featured      bool          `json:"featured"`
	Rating        float64       `json:"rating"`
	Tags          []string      `json:"tags"`
	CreatedAt     string        `json:"createdAt,omitempty"`
	UpdatedAt     string        `json:"updatedAt,omitempty"`
}

type orderItemPayload struct {
	ProductID string       `json:"product"`
	Name      string       `json:"name"`
	Image     string       `json:"image"`
	Quantity  int          `json:"quantity"`
	Price     domain.Money `json:"price"`
}

type orderPayload struct {
	LegacyID        string             `json:"_id"`
	ID              string             `json:"id"`
	OrderNumber     string             `json:"orderNumber"`
	UserID          string             `json:"user"`
	Items           []orderItemPayload `json:"items"`
	Subtotal        domain.Money       `json:"subtotal"`
	Shipping        domain.Money       `json:"shipping"`
	Total           domain.Money       `json:"total"`
	Status          string             `json:"status"`
	PaymentIntentID string             `json:"paymentIntentId"`
	CreatedAt       string             `json:"createdAt,omitempty"`
	UpdatedAt       string             `json:"updatedAt,omitempty"`
}

type productListMeta struct {
	Total      int      `json:"total"`
	Brands     []string `json:"brands"`
	Categories []string `json:"categories"`
	Fallback   bool     `json:"fallback,omitempty"`
}

func presentProduct(p domain.Product) productPayload {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return productPayload{
		LegacyID:      p.ID,
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price,
		PreviousPrice: p.PreviousPrice,
		Brand:         p.Brand,
		Category:      string(p.Category),
		Image:         p.Image,
		Stock:         p.Stock,
		Featured:      p.Featured,
		Rating:        p.Rating,
		Tags:          tags,
		CreatedAt:     formatTime(p.CreatedAt),
		UpdatedAt:     formatTime(p.UpdatedAt),
	}
}

func presentProducts(products []domain.Product) []productPayload {
	out := make([]productPayload, 0, len(products))
	for _, p := range products {
		out = append(out, presentProduct(p))
	}
	return out
}

func presentOrder(o domain.Order) orderPayload {
	items := make([]orderItemPayload, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemPayload{
			ProductID: item.ProductID,
			Name:      item.Name,
			Image:     item.Image,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}
	return orderPayload{
		LegacyID:        o.ID,
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		Items:           items,
		Subtotal:        o.Subtotal,
		Shipping:        o.Shipping,
		Total:           o.Total,
		Status:          string(o.Status),
		PaymentIntentID: o.PaymentIntentID,
		CreatedAt:       formatTime(o.CreatedAt),
		UpdatedAt:       formatTime(o.UpdatedAt),
	}
}

func presentOrders(orders []domain.Order) []orderPayload {
	out := make([]orderPayload, 0, len(orders))
	for _, o := range orders {
		out = append(out, presentOrder(o))
	}
	return out
}

func presentMeta(page domain.ProductPage) productListMeta {
	brands := page.Brands
	if brands == nil {
		brands = []string{}
	}
	categories := make([]string, 0, len(page.Categories))
	for _, c := range page.Categories {
		categories = append(categories, string(c))
	}
	return productListMeta{
		Total:      page.Total,
		Brands:     brands,
		Categories: categories,
		Fallback:   page.Fallback,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
