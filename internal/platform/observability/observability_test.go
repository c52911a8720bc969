package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/voltmart/storefront/internal/platform/requestctx"
)

func TestEventLoggerMapsSeverityAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := EventLogger(zap.New(core))

	log(context.Background(), "checkout.amount_mismatch", map[string]any{"severity": "WARNING", "expected": int64(10000)})
	log(context.Background(), "checkout.order.created", map[string]any{"orderId": "o1"})

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel || entries[0].ContextMap()["expected"] != int64(10000) {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	if _, ok := entries[0].ContextMap()["severity"]; ok {
		t.Fatalf("severity must not be duplicated as a field")
	}
	if entries[1].Level != zapcore.InfoLevel || entries[1].ContextMap()["event"] != "checkout.order.created" {
		t.Fatalf("unexpected second entry %+v", entries[1])
	}
}

func TestEventLoggerPrefersRequestLogger(t *testing.T) {
	baseCore, baseLogs := observer.New(zapcore.InfoLevel)
	reqCore, reqLogs := observer.New(zapcore.InfoLevel)
	ctx := requestctx.WithLogger(context.Background(), zap.New(reqCore))

	EventLogger(zap.New(baseCore))(ctx, "catalog.fallback", nil)

	if baseLogs.Len() != 0 || reqLogs.Len() != 1 {
		t.Fatalf("expected request logger to receive the entry")
	}
}

func TestRecoveryAndRequestLogging(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	handler := InjectLoggerMiddleware(zap.New(core))(
		RecoveryMiddleware()(
			RequestLoggerMiddleware()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				panic("boom")
			})),
		),
	)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"code":"internal"`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
	if logs.FilterMessage("panic recovered").Len() != 1 {
		t.Fatalf("expected panic to be logged")
	}
	completed := logs.FilterMessage("request completed").All()
	if len(completed) != 1 || completed[0].ContextMap()["status"] != int64(500) {
		t.Fatalf("expected a 500 completion entry, got %+v", completed)
	}
}

func TestTraceMiddlewareContinuesCloudTrace(t *testing.T) {
	var info requestctx.TraceInfo
	handler := TraceMiddleware("voltmart-prod")(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		info, _ = requestctx.Trace(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set(cloudTraceHeader, "105445aa7843bc8bf206b12000100000/1;o=1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if info.ProjectID != "voltmart-prod" {
		t.Fatalf("unexpected project %q", info.ProjectID)
	}
	if info.TraceID != "105445aa7843bc8bf206b12000100000" {
		t.Fatalf("expected incoming trace id to be continued, got %q", info.TraceID)
	}
}

func TestParseCloudTraceContextRejectsMalformed(t *testing.T) {
	for _, header := range []string{"", "abc", "105445aa7843bc8bf206b12000100000/x", "zz/1"} {
		if _, ok := parseCloudTraceContext(header); ok {
			t.Fatalf("expected %q to be rejected", header)
		}
	}
}
