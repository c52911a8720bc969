package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/voltmart/storefront/internal/domain"
	"github.com/voltmart/storefront/internal/platform/auth"
	"github.com/voltmart/storefront/internal/platform/httpx"
)

const maxRequestBodySize = 16 * 1024

var (
	errEmptyBody    = errors.New("request body is required")
	errBodyTooLarge = errors.New("request body too large")
	errInvalidJSON  = errors.New("request body must be valid JSON")
)

// readLimitedBody reads at most limit bytes and reports errBodyTooLarge beyond that.
func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	if limit <= 0 {
		limit = maxRequestBodySize
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errBodyTooLarge
		}
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errEmptyBody
	}
	return data, nil
}

// decodeJSONBody reads and decodes a bounded JSON request body into dst.
func decodeJSONBody(r *http.Request, dst any) error {
	data, err := readLimitedBody(r, maxRequestBodySize)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return errInvalidJSON
	}
	return nil
}

func writeBodyError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadRequest
	message := "Invalid request body"
	switch {
	case errors.Is(err, errBodyTooLarge):
		status = http.StatusRequestEntityTooLarge
		message = "Request body too large"
	case errors.Is(err, errEmptyBody):
		message = "Request body is required"
	case errors.Is(err, errInvalidJSON):
		message = "Request body must be valid JSON"
	}
	httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", message, status))
}

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	httpx.WriteJSON(w, status, payload)
}

// requireIdentity returns the authenticated caller or writes a 401.
func requireIdentity(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(r.Context(), w, httpx.NewError("unauthenticated", "Unauthenticated", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

// cartLinePayload accepts both {productId, quantity} and the older {product: {_id}, quantity}.
type cartLinePayload struct {
	ProductID string          `json:"productId"`
	Product   json.RawMessage `json:"product"`
	Quantity  json.RawMessage `json:"quantity"`
}

type nestedProductRef struct {
	ID    string `json:"_id"`
	AltID string `json:"id"`
}

// normalizeCartLines converts raw cart payload lines into domain lines. Quantities that are
// missing or below one become one. Fractions are truncated.
func normalizeCartLines(items []cartLinePayload) []domain.CartLine {
	lines := make([]domain.CartLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, domain.CartLine{
			ProductID: item.productID(),
			Quantity:  coerceQuantity(item.Quantity),
		})
	}
	return lines
}

func (p cartLinePayload) productID() string {
	if id := strings.TrimSpace(p.ProductID); id != "" {
		return id
	}
	raw := bytes.TrimSpace(p.Product)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var id string
		if err := json.Unmarshal(raw, &id); err == nil {
			return strings.TrimSpace(id)
		}
		return ""
	}
	var ref nestedProductRef
	if err := json.Unmarshal(raw, &ref); err != nil {
		return ""
	}
	if id := strings.TrimSpace(ref.ID); id != "" {
		return id
	}
	return strings.TrimSpace(ref.AltID)
}

// coerceQuantity accepts numbers and numeric strings, truncating fractions. Non-numeric values and
// values below one become one. Oversized values saturate so the resolver rejects them.
func coerceQuantity(raw json.RawMessage) int {
	value := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if errors.Is(err, strconv.ErrRange) && f > 0 {
		return math.MaxInt32
	}
	if err != nil || math.IsNaN(f) || f < 1 {
		return 1
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}
