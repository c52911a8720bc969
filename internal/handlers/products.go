package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/voltmart/storefront/internal/domain"
	"github.com/voltmart/storefront/internal/platform/httpx"
	"github.com/voltmart/storefront/internal/services"
)

// ProductHandlers serves public catalog browsing.
type ProductHandlers struct {
	catalog services.CatalogService
}

// NewProductHandlers constructs catalog handlers.
func NewProductHandlers(catalog services.CatalogService) *ProductHandlers {
	return &ProductHandlers{catalog: catalog}
}

// Routes registers product endpoints on the provided router.
func (h *ProductHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listProducts)
	r.Get("/{productID}", h.getProduct)
}

type productListResponse struct {
	Products []productPayload `json:"products"`
	Meta     productListMeta  `json:"meta"`
}

type productResponse struct {
	Product  productPayload `json:"product"`
	Fallback bool           `json:"fallback,omitempty"`
}

func (h *ProductHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "Failed to load products", http.StatusServiceUnavailable))
		return
	}

	page, err := h.catalog.ListProducts(ctx, parseProductQuery(r))
	if err != nil {
		writeServiceError(ctx, w, err, "Failed to load products")
		return
	}
	writeJSONResponse(w, http.StatusOK, productListResponse{
		Products: presentProducts(page.Products),
		Meta:     presentMeta(page),
	})
}

func (h *ProductHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "Failed to load product", http.StatusServiceUnavailable))
		return
	}
	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if productID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "Product not found", http.StatusNotFound))
		return
	}

	detail, err := h.catalog.GetProduct(ctx, productID)
	if err != nil {
		writeServiceError(ctx, w, err, "Failed to load product")
		return
	}
	writeJSONResponse(w, http.StatusOK, productResponse{
		Product:  presentProduct(detail.Product),
		Fallback: detail.Fallback,
	})
}

// parseProductQuery reads listing filters. Malformed numbers are ignored rather than rejected.
func parseProductQuery(r *http.Request) domain.ProductQuery {
	values := r.URL.Query()
	query := domain.ProductQuery{
		Search:   strings.TrimSpace(values.Get("search")),
		Category: domain.Category(strings.TrimSpace(values.Get("category"))),
		Brand:    strings.TrimSpace(values.Get("brand")),
		Sort:     domain.ProductSort(strings.TrimSpace(values.Get("sort"))),
	}
	if price, ok := parseMoneyParam(values.Get("minPrice")); ok {
		query.MinPrice = &price
	}
	if price, ok := parseMoneyParam(values.Get("maxPrice")); ok {
		query.MaxPrice = &price
	}
	if raw := strings.TrimSpace(values.Get("featured")); raw != "" {
		featured := raw == "true"
		query.Featured = &featured
	}
	if skip, err := strconv.Atoi(strings.TrimSpace(values.Get("skip"))); err == nil {
		query.Skip = skip
	}
	if limit, err := strconv.Atoi(strings.TrimSpace(values.Get("limit"))); err == nil {
		query.Limit = limit
	}
	return query.Normalized()
}

func parseMoneyParam(raw string) (domain.Money, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	price, err := domain.ParseMoney(raw)
	if err != nil || price < 0 {
		return 0, false
	}
	return price, true
}
