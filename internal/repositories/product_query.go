package repositories

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/voltmart/storefront/internal/domain"
)

// EvaluateProductQuery filters, sorts and paginates an in-memory product set. Stores without
// native text search (the static fallback, Firestore) delegate to it so every backend answers a
// query identically.
func EvaluateProductQuery(products []domain.Product, query domain.ProductQuery) domain.ProductPage {
	query = query.Normalized()
	folder := cases.Fold()
	needle := folder.String(strings.TrimSpace(query.Search))
	brand := folder.String(strings.TrimSpace(query.Brand))

	matched := make([]domain.Product, 0, len(products))
	for _, product := range products {
		if query.Category != "" && product.Category != query.Category {
			continue
		}
		if brand != "" && folder.String(product.Brand) != brand {
			continue
		}
		if query.MinPrice != nil && product.Price < *query.MinPrice {
			continue
		}
		if query.MaxPrice != nil && product.Price > *query.MaxPrice {
			continue
		}
		if query.Featured != nil && product.Featured != *query.Featured {
			continue
		}
		if needle != "" && !matchesSearch(folder, product, needle) {
			continue
		}
		matched = append(matched, product)
	}

	SortProducts(matched, query.Sort)

	page := domain.ProductPage{
		Total:      len(matched),
		Brands:     DistinctBrands(products),
		Categories: DistinctCategories(products),
	}
	start := min(query.Skip, len(matched))
	end := min(start+query.Limit, len(matched))
	page.Products = append([]domain.Product(nil), matched[start:end]...)
	return page
}

func matchesSearch(folder cases.Caser, product domain.Product, needle string) bool {
	for _, field := range []string{product.Name, product.Description, product.Brand} {
		if strings.Contains(folder.String(field), needle) {
			return true
		}
	}
	return false
}

// SortProducts orders products in place. Ties fall back to id for deterministic paging.
func SortProducts(products []domain.Product, order domain.ProductSort) {
	sort.SliceStable(products, func(i, j int) bool {
		a, b := products[i], products[j]
		switch order {
		case domain.ProductSortPriceAsc:
			if a.Price != b.Price {
				return a.Price < b.Price
			}
		case domain.ProductSortPriceDesc:
			if a.Price != b.Price {
				return a.Price > b.Price
			}
		case domain.ProductSortTopRated:
			if a.Rating != b.Rating {
				return a.Rating > b.Rating
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		}
		return a.ID < b.ID
	})
}

// DistinctBrands returns the sorted set of non-empty brands.
func DistinctBrands(products []domain.Product) []string {
	seen := make(map[string]struct{})
	brands := make([]string, 0)
	for _, product := range products {
		if product.Brand == "" {
			continue
		}
		if _, ok := seen[product.Brand]; ok {
			continue
		}
		seen[product.Brand] = struct{}{}
		brands = append(brands, product.Brand)
	}
	sort.Strings(brands)
	return brands
}

// DistinctCategories returns the sorted set of categories in use.
func DistinctCategories(products []domain.Product) []domain.Category {
	seen := make(map[domain.Category]struct{})
	categories := make([]domain.Category, 0)
	for _, product := range products {
		if product.Category == "" {
			continue
		}
		if _, ok := seen[product.Category]; ok {
			continue
		}
		seen[product.Category] = struct{}{}
		categories = append(categories, product.Category)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })
	return categories
}
