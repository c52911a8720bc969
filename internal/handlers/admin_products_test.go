package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/voltmart/storefront/internal/domain"
	"github.com/voltmart/storefront/internal/services"
)

func newAdminRouter(svc services.CatalogService) chi.Router {
	router := chi.NewRouter()
	router.Route("/admin", NewAdminProductHandlers(svc).Routes)
	return router
}

func TestAdminProductHandlersCreate(t *testing.T) {
	var captured services.CreateProductCommand
	svc := &stubCatalogService{
		createFunc: func(_ context.Context, cmd services.CreateProductCommand) (services.Product, error) {
			captured = cmd
			return domain.Product{ID: "p-new", Name: cmd.Name, Price: cmd.Price, Category: cmd.Category, Rating: domain.DefaultProductRating}, nil
		},
	}

	payload := `{"name":"Pixel 9","description":"Phone","price":"799.00","previousPrice":899,"brand":"Google","category":"phones","image":"https://img/p9.png","stock":4,"featured":true,"tags":["android"]}`
	req := httptest.NewRequest(http.MethodPost, "/admin/products", bytes.NewBufferString(payload))
	rr := httptest.NewRecorder()
	newAdminRouter(svc).ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.Name != "Pixel 9" || captured.Price != 79900 || captured.Category != domain.CategoryPhones {
		t.Fatalf("unexpected command %+v", captured)
	}
	if captured.PreviousPrice == nil || *captured.PreviousPrice != 89900 {
		t.Fatalf("expected previous price 899.00, got %v", captured.PreviousPrice)
	}
	if captured.Stock != 4 || !captured.Featured || captured.Rating != nil || len(captured.Tags) != 1 {
		t.Fatalf("unexpected command %+v", captured)
	}

	var body struct {
		Product map[string]any `json:"product"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Product["_id"] != "p-new" || body.Product["rating"] != domain.DefaultProductRating {
		t.Fatalf("unexpected product %v", body.Product)
	}
}

func TestAdminProductHandlersCreateValidation(t *testing.T) {
	svc := &stubCatalogService{
		createFunc: func(context.Context, services.CreateProductCommand) (services.Product, error) {
			return services.Product{}, fmt.Errorf("%w: name is required", services.ErrCatalogInvalidInput)
		},
	}
	rr := httptest.NewRecorder()
	newAdminRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/admin/products", bytes.NewBufferString(`{}`)))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	if msg := errorMessage(t, rr); msg != "Name is required" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestAdminProductHandlersRejectsMalformedJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	newAdminRouter(&stubCatalogService{}).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/admin/products", bytes.NewBufferString(`{"name":`)))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	if code := errorCode(t, rr); code != "invalid_request" {
		t.Fatalf("expected invalid_request, got %s", code)
	}
}

func TestAdminProductHandlersUpdatePartial(t *testing.T) {
	var captured services.UpdateProductCommand
	svc := &stubCatalogService{
		updateFunc: func(_ context.Context, cmd services.UpdateProductCommand) (services.Product, error) {
			captured = cmd
			return domain.Product{ID: cmd.ProductID, Price: *cmd.Price}, nil
		},
	}
	req := httptest.NewRequest(http.MethodPut, "/admin/products/p1", bytes.NewBufferString(`{"price":12.5,"stock":0}`))
	rr := httptest.NewRecorder()
	newAdminRouter(svc).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.ProductID != "p1" || captured.Price == nil || *captured.Price != 1250 {
		t.Fatalf("unexpected command %+v", captured)
	}
	if captured.Stock == nil || *captured.Stock != 0 {
		t.Fatalf("expected explicit zero stock to be forwarded")
	}
	if captured.Name != nil || captured.Featured != nil {
		t.Fatalf("expected omitted fields to stay nil, got %+v", captured)
	}
}

func TestAdminProductHandlersUpdateNotFound(t *testing.T) {
	svc := &stubCatalogService{
		updateFunc: func(context.Context, services.UpdateProductCommand) (services.Product, error) {
			return services.Product{}, services.ErrCatalogNotFound
		},
	}
	rr := httptest.NewRecorder()
	newAdminRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/admin/products/nope", bytes.NewBufferString(`{"name":"x"}`)))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestAdminProductHandlersListAndDelete(t *testing.T) {
	var deleted string
	svc := &stubCatalogService{
		adminListFunc: func(context.Context) ([]services.Product, error) {
			return []domain.Product{{ID: "p2"}, {ID: "p1"}}, nil
		},
		deleteFunc: func(_ context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	router := newAdminRouter(svc)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/products", nil))
	var list struct {
		Products []map[string]any `json:"products"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if rr.Code != http.StatusOK || len(list.Products) != 2 || list.Products[0]["id"] != "p2" {
		t.Fatalf("unexpected list response %d %v", rr.Code, list.Products)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/admin/products/p1", nil))
	if rr.Code != http.StatusOK || deleted != "p1" {
		t.Fatalf("unexpected delete response %d deleted=%s", rr.Code, deleted)
	}
	var body map[string]bool
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil || !body["success"] {
		t.Fatalf("expected success body, got %s", rr.Body.String())
	}
}

func TestAdminProductHandlersStoreUnavailable(t *testing.T) {
	svc := &stubCatalogService{
		deleteFunc: func(context.Context, string) error {
			return services.ErrCatalogUnavailable
		},
	}
	rr := httptest.NewRecorder()
	newAdminRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/admin/products/p1", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
	if msg := errorMessage(t, rr); msg != "Database is currently unavailable" {
		t.Fatalf("unexpected message %q", msg)
	}
}
