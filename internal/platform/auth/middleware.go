package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/voltmart/storefront/internal/platform/httpx"
)

const (
	defaultVerifyTimeout = 5 * time.Second
	defaultCookieName    = "token"
)

var (
	// ErrTokenExpired signals that the presented token has expired.
	ErrTokenExpired = errors.New("auth: token expired")
	// ErrTokenInvalid signals that the presented token is invalid for other reasons.
	ErrTokenInvalid = errors.New("auth: token invalid")
)

// Verifier turns a raw credential into an Identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// Authenticator wires token verification into HTTP middleware. Session cookies are checked with the
// session verifier; bearer tokens are offered to each verifier in turn.
type Authenticator struct {
	session    Verifier
	bearer     []Verifier
	cookieName string
}

// Option customises Authenticator behaviour.
type Option func(*Authenticator)

// WithSessionVerifier enables cookie sessions and lets bearer tokens be session tokens too.
func WithSessionVerifier(v Verifier) Option {
	return func(a *Authenticator) {
		if v != nil {
			a.session = v
			a.bearer = append(a.bearer, v)
		}
	}
}

// WithBearerVerifier adds a verifier for Authorization bearer tokens (typically Firebase).
func WithBearerVerifier(v Verifier) Option {
	return func(a *Authenticator) {
		if v != nil {
			a.bearer = append(a.bearer, v)
		}
	}
}

// WithCookieName overrides the session cookie name.
func WithCookieName(name string) Option {
	return func(a *Authenticator) {
		if name = strings.TrimSpace(name); name != "" {
			a.cookieName = name
		}
	}
}

// NewAuthenticator constructs an Authenticator for middleware composition.
func NewAuthenticator(opts ...Option) *Authenticator {
	a := &Authenticator{cookieName: defaultCookieName}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// RequireAuth authenticates the request and ensures the identity holds one of allowedRoles. With no
// roles any authenticated identity passes.
func (a *Authenticator) RequireAuth(allowedRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := a.authenticate(r)
			if err != nil {
				respondVerificationError(r.Context(), w, err)
				return
			}
			if len(allowedRoles) > 0 && !identity.HasAnyRole(allowedRoles...) {
				httpx.WriteError(r.Context(), w, httpx.NewError("insufficient_role", "Forbidden", http.StatusForbidden))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

var errCredentialsMissing = errors.New("auth: credentials missing")

func (a *Authenticator) authenticate(r *http.Request) (*Identity, error) {
	if a == nil {
		return nil, errCredentialsMissing
	}
	if token, ok := extractBearerToken(r.Header.Get("Authorization")); ok {
		if len(a.bearer) == 0 {
			return nil, errCredentialsMissing
		}
		var lastErr error
		for _, verifier := range a.bearer {
			identity, err := verifier.Verify(r.Context(), token)
			if err == nil {
				return identity, nil
			}
			lastErr = err
		}
		return nil, lastErr
	}
	if a.session != nil {
		if cookie, err := r.Cookie(a.cookieName); err == nil && strings.TrimSpace(cookie.Value) != "" {
			return a.session.Verify(r.Context(), strings.TrimSpace(cookie.Value))
		}
	}
	return nil, errCredentialsMissing
}

func extractBearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func respondVerificationError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTokenExpired):
		httpx.WriteError(ctx, w, httpx.NewError("token_expired", "Session expired", http.StatusUnauthorized))
	case errors.Is(err, errCredentialsMissing):
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "Unauthenticated", http.StatusUnauthorized))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_token", "Unauthenticated", http.StatusUnauthorized))
	}
}
