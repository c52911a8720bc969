package domain

const (
	// FreeShippingThreshold is the subtotal at which shipping becomes free (inclusive).
	FreeShippingThreshold Money = 50000
	// FlatShippingFee applies to any subtotal below FreeShippingThreshold.
	FlatShippingFee Money = 1500

	// MaxLineQuantity is the largest quantity a single cart line may request.
	MaxLineQuantity = 999
	// MaxChargeableTotal is the largest order total the payment processor accepts ($999,999.99).
	MaxChargeableTotal Money = 99_999_999
)

// ShippingFor returns the shipping charge for a subtotal.
func ShippingFor(subtotal Money) Money {
	if subtotal < FreeShippingThreshold {
		return FlatShippingFee
	}
	return 0
}

// CartLine is a client-supplied reference to a product and a requested quantity. The client never
// contributes a price.
type CartLine struct {
	ProductID string
	Quantity  int
}

// ResolvedLine pairs a catalog snapshot with the coerced quantity and its line total.
type ResolvedLine struct {
	Product   Product
	Quantity  int
	LineTotal Money
}

// ResolvedCart is the authoritative pricing of a cart computed from catalog prices.
type ResolvedCart struct {
	Lines    []ResolvedLine
	Subtotal Money
	Shipping Money
	Total    Money
}

// OrderItems snapshots resolved lines into order items.
func (c ResolvedCart) OrderItems() []OrderItem {
	items := make([]OrderItem, 0, len(c.Lines))
	for _, line := range c.Lines {
		items = append(items, OrderItem{
			ProductID: line.Product.ID,
			Name:      line.Product.Name,
			Image:     line.Product.Image,
			Quantity:  line.Quantity,
			Price:     line.LineTotal,
		})
	}
	return items
}
