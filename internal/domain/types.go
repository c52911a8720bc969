package domain

import (
	"slices"
	"time"
)

// Category groups catalog products for navigation and filtering.
type Category string

const (
	CategoryPhones      Category = "phones"
	CategoryLaptops     Category = "laptops"
	CategoryTablets     Category = "tablets"
	CategoryAudio       Category = "audio"
	CategoryAccessories Category = "accessories"
	CategorySmartHome   Category = "smart-home"
	CategoryWearables   Category = "wearables"
)

// Categories lists every supported category in display order.
var Categories = []Category{
	CategoryPhones,
	CategoryLaptops,
	CategoryTablets,
	CategoryAudio,
	CategoryAccessories,
	CategorySmartHome,
	CategoryWearables,
}

// Valid reports whether c is one of the supported categories.
func (c Category) Valid() bool {
	return slices.Contains(Categories, c)
}

// DefaultProductRating is assigned to products created without a rating.
const DefaultProductRating = 4.5

// Product is a catalog entry. Price is authoritative for checkout.
type Product struct {
	ID            string
	Name          string
	Description   string
	Price         Money
	PreviousPrice *Money
	Brand         string
	Category      Category
	Image         string
	Stock         int
	Featured      bool
	Rating        float64
	Tags          []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ProductSort selects the ordering of catalog listings.
type ProductSort string

const (
	// ProductSortNewest orders by creation time, newest first.
	ProductSortNewest ProductSort = "newest"
	// ProductSortPriceAsc orders by price, cheapest first.
	ProductSortPriceAsc ProductSort = "price-asc"
	// ProductSortPriceDesc orders by price, most expensive first.
	ProductSortPriceDesc ProductSort = "price-desc"
	// ProductSortTopRated orders by rating, highest first.
	ProductSortTopRated ProductSort = "top-rated"
)

const (
	// DefaultProductPageSize applies when a listing omits its limit.
	DefaultProductPageSize = 20
	// MaxProductPageSize caps a single listing page.
	MaxProductPageSize = 50
)

// ProductQuery captures catalog search, filter, sort and skip/limit pagination inputs.
type ProductQuery struct {
	Search   string
	Category Category
	Brand    string
	MinPrice *Money
	MaxPrice *Money
	Featured *bool
	Sort     ProductSort
	Skip     int
	Limit    int
}

// Normalized returns a copy with defaults applied and bounds enforced.
func (q ProductQuery) Normalized() ProductQuery {
	switch q.Sort {
	case ProductSortNewest, ProductSortPriceAsc, ProductSortPriceDesc, ProductSortTopRated:
	default:
		q.Sort = ProductSortNewest
	}
	if q.Skip < 0 {
		q.Skip = 0
	}
	if q.Limit <= 0 {
		q.Limit = DefaultProductPageSize
	}
	if q.Limit > MaxProductPageSize {
		q.Limit = MaxProductPageSize
	}
	return q
}

// ProductPage is one page of a catalog listing plus facet metadata across the whole catalog.
type ProductPage struct {
	Products   []Product
	Total      int
	Brands     []string
	Categories []Category
	Fallback   bool
}

// OrderStatus tracks fulfilment of an order.
type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// OrderItem snapshots a purchased product. Price is the unit price times the quantity.
type OrderItem struct {
	ProductID string
	Name      string
	Image     string
	Quantity  int
	Price     Money
}

// Order is a durable record of a settled purchase. Exactly one order exists per payment intent.
type Order struct {
	ID              string
	OrderNumber     string
	UserID          string
	Items           []OrderItem
	Subtotal        Money
	Shipping        Money
	Total           Money
	Status          OrderStatus
	PaymentIntentID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

const (
	// HealthStatusOK indicates all dependencies are healthy.
	HealthStatusOK = "ok"
	// HealthStatusDegraded indicates at least one dependency is degraded but service remains running.
	HealthStatusDegraded = "degraded"
	// HealthStatusError indicates the service or a critical dependency is unavailable.
	HealthStatusError = "error"
)

// SystemHealthCheck describes the outcome of an individual dependency probe.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency status for health endpoints.
type SystemHealthReport struct {
	Status      string
	Checks      map[string]SystemHealthCheck
	Version     string
	CommitSHA   string
	Environment string
	Uptime      time.Duration
	GeneratedAt time.Time
}
