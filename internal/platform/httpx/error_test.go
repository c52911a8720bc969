package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/voltmart/storefront/internal/platform/requestctx"
)

func TestWriteErrorEnvelope(t *testing.T) {
	ctx := requestctx.WithTrace(context.Background(), requestctx.TraceInfo{TraceID: "trace-1"})
	rec := httptest.NewRecorder()

	WriteError(ctx, rec, NewError("amount_mismatch", "Paid amount does not match order total\n", http.StatusBadRequest).
		WithDetails(map[string]any{"error": "overridden", "expected": "100.00"}))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %s", ct)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "Paid amount does not match order total" {
		t.Fatalf("expected human message in error field, got %v", body["error"])
	}
	if body["code"] != "amount_mismatch" || body["status"] != float64(400) {
		t.Fatalf("unexpected body %v", body)
	}
	if body["trace_id"] != "trace-1" || body["expected"] != "100.00" {
		t.Fatalf("expected trace id and details, got %v", body)
	}
	if _, ok := body["request_id"]; ok {
		t.Fatalf("request id should be omitted when absent")
	}
}

func TestWriteErrorDefaultsMessageFromStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), rec, Error{Code: "internal"})

	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if rec.Code != http.StatusInternalServerError || body["error"] != "Internal Server Error" {
		t.Fatalf("unexpected response %d %v", rec.Code, body)
	}
}
