package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/voltmart/storefront/internal/domain"
	"github.com/voltmart/storefront/internal/repositories"
)

// CartResolverDeps wires the catalog used to price carts.
type CartResolverDeps struct {
	Products repositories.ProductRepository
}

type cartResolver struct {
	products repositories.ProductRepository
}

var _ CartResolver = (*cartResolver)(nil)

// NewCartResolver constructs a CartResolver backed by the live catalog. It never consults the static
// fallback catalog: a price quoted for payment must come from the store of record.
func NewCartResolver(deps CartResolverDeps) (CartResolver, error) {
	if deps.Products == nil {
		return nil, errors.New("cart resolver: product repository is required")
	}
	return &cartResolver{products: deps.Products}, nil
}

// ResolveCart looks every line up in a single catalog round trip and computes authoritative totals.
// Lines keep their input order; repeated product ids are priced as separate lines.
func (r *cartResolver) ResolveCart(ctx context.Context, lines []CartLine) (ResolvedCart, error) {
	if len(lines) == 0 {
		return ResolvedCart{}, ErrEmptyCart
	}

	ids := make([]string, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		id := strings.TrimSpace(line.ProductID)
		if id == "" {
			return ResolvedCart{}, &ProductUnavailableError{}
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	products, err := r.products.FindByIDs(ctx, ids)
	if err != nil {
		return ResolvedCart{}, translateCatalogError(err)
	}

	resolved := ResolvedCart{Lines: make([]domain.ResolvedLine, 0, len(lines))}
	for _, line := range lines {
		id := strings.TrimSpace(line.ProductID)
		product, ok := products[id]
		if !ok {
			return ResolvedCart{}, &ProductUnavailableError{ProductID: id}
		}
		quantity := normalizeQuantity(line.Quantity)
		if quantity > domain.MaxLineQuantity {
			return ResolvedCart{}, fmt.Errorf("%w: product %q requested %d", ErrQuantityOutOfRange, id, quantity)
		}
		lineTotal, err := product.Price.Times(quantity)
		if err != nil {
			return ResolvedCart{}, fmt.Errorf("%w: %w", ErrCartTotalOutOfRange, err)
		}
		subtotal, err := resolved.Subtotal.Plus(lineTotal)
		if err != nil || subtotal > domain.MaxChargeableTotal {
			return ResolvedCart{}, chargeableRangeError(subtotal, err)
		}
		resolved.Lines = append(resolved.Lines, domain.ResolvedLine{
			Product:   product,
			Quantity:  quantity,
			LineTotal: lineTotal,
		})
		resolved.Subtotal = subtotal
	}
	resolved.Shipping = domain.ShippingFor(resolved.Subtotal)
	total, err := resolved.Subtotal.Plus(resolved.Shipping)
	if err != nil || !chargeable(total) {
		return ResolvedCart{}, chargeableRangeError(total, err)
	}
	resolved.Total = total
	return resolved, nil
}

func normalizeQuantity(quantity int) int {
	if quantity < 1 {
		return 1
	}
	return quantity
}

// chargeable reports whether the processor can collect total.
func chargeable(total domain.Money) bool {
	return total > 0 && total <= domain.MaxChargeableTotal
}

func chargeableRangeError(total domain.Money, cause error) error {
	if cause != nil {
		return fmt.Errorf("%w: %w", ErrCartTotalOutOfRange, cause)
	}
	return fmt.Errorf("%w: %s", ErrCartTotalOutOfRange, total)
}

func translateCatalogError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
}
