package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/voltmart/storefront/internal/domain"
	"github.com/voltmart/storefront/internal/platform/httpx"
	"github.com/voltmart/storefront/internal/services"
)

// AdminProductHandlers exposes the product editor for administrators.
type AdminProductHandlers struct {
	catalog services.CatalogService
}

// NewAdminProductHandlers constructs the admin catalog handlers.
func NewAdminProductHandlers(catalog services.CatalogService) *AdminProductHandlers {
	return &AdminProductHandlers{catalog: catalog}
}

// Routes registers admin product endpoints.
func (h *AdminProductHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/products", h.listProducts)
	r.Post("/products", h.createProduct)
	r.Put("/products/{productID}", h.updateProduct)
	r.Delete("/products/{productID}", h.deleteProduct)
}

type adminProductRequest struct {
	Name          *string          `json:"name"`
	Description   *string          `json:"description"`
	Price         *domain.Money    `json:"price"`
	PreviousPrice *domain.Money    `json:"previousPrice"`
	Brand         *string          `json:"brand"`
	Category      *domain.Category `json:"category"`
	Image         *string          `json:"image"`
	Stock         *int             `json:"stock"`
	Featured      *bool            `json:"featured"`
	Rating        *float64         `json:"rating"`
	Tags          []string         `json:"tags"`
}

type adminProductListResponse struct {
	Products []productPayload `json:"products"`
}

type adminProductResponse struct {
	Product productPayload `json:"product"`
}

func (h *AdminProductHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(w, r) {
		return
	}
	products, err := h.catalog.AdminListProducts(ctx)
	if err != nil {
		writeServiceError(ctx, w, err, "Unable to load products")
		return
	}
	writeJSONResponse(w, http.StatusOK, adminProductListResponse{Products: presentProducts(products)})
}

func (h *AdminProductHandlers) createProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(w, r) {
		return
	}
	var body adminProductRequest
	if err := decodeJSONBody(r, &body); err != nil {
		writeBodyError(w, r, err)
		return
	}

	cmd := services.CreateProductCommand{
		Name:          deref(body.Name),
		Description:   deref(body.Description),
		PreviousPrice: body.PreviousPrice,
		Brand:         deref(body.Brand),
		Image:         deref(body.Image),
		Rating:        body.Rating,
		Tags:          body.Tags,
	}
	if body.Price != nil {
		cmd.Price = *body.Price
	}
	if body.Category != nil {
		cmd.Category = *body.Category
	}
	if body.Stock != nil {
		cmd.Stock = *body.Stock
	}
	if body.Featured != nil {
		cmd.Featured = *body.Featured
	}

	product, err := h.catalog.CreateProduct(ctx, cmd)
	if err != nil {
		writeServiceError(ctx, w, err, "Unable to create product")
		return
	}
	writeJSONResponse(w, http.StatusCreated, adminProductResponse{Product: presentProduct(product)})
}

func (h *AdminProductHandlers) updateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(w, r) {
		return
	}
	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	var body adminProductRequest
	if err := decodeJSONBody(r, &body); err != nil {
		writeBodyError(w, r, err)
		return
	}

	product, err := h.catalog.UpdateProduct(ctx, services.UpdateProductCommand{
		ProductID:     productID,
		Name:          body.Name,
		Description:   body.Description,
		Price:         body.Price,
		PreviousPrice: body.PreviousPrice,
		Brand:         body.Brand,
		Category:      body.Category,
		Image:         body.Image,
		Stock:         body.Stock,
		Featured:      body.Featured,
		Rating:        body.Rating,
		Tags:          body.Tags,
	})
	if err != nil {
		writeServiceError(ctx, w, err, "Unable to update product")
		return
	}
	writeJSONResponse(w, http.StatusOK, adminProductResponse{Product: presentProduct(product)})
}

func (h *AdminProductHandlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(w, r) {
		return
	}
	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if err := h.catalog.DeleteProduct(ctx, productID); err != nil {
		writeServiceError(ctx, w, err, "Unable to delete product")
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AdminProductHandlers) ready(w http.ResponseWriter, r *http.Request) bool {
	if h.catalog == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("catalog_unavailable", "Database is currently unavailable", http.StatusServiceUnavailable))
		return false
	}
	return true
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
