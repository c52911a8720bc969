package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	firebaseauth "firebase.google.com/go/v4/auth"
	jwt "github.com/golang-jwt/jwt/v4"
)

const testSecret = "test-session-secret"

func signSession(t *testing.T, claims SessionClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func validClaims(role string) SessionClaims {
	return SessionClaims{
		UserID:    "user-1",
		Email:     "ada@example.com",
		Role:      role,
		FirstName: "Ada",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "voltmart",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func newSessionAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	verifier, err := NewSessionVerifier(testSecret, "voltmart")
	if err != nil {
		t.Fatalf("NewSessionVerifier: %v", err)
	}
	return NewAuthenticator(WithSessionVerifier(verifier))
}

func serve(t *testing.T, authn *Authenticator, req *http.Request, roles ...string) (*httptest.ResponseRecorder, *Identity) {
	t.Helper()
	var seen *Identity
	handler := authn.RequireAuth(roles...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, seen
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body
}

func TestRequireAuthAcceptsSessionCookie(t *testing.T) {
	authn := newSessionAuthenticator(t)
	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: signSession(t, validClaims("user"))})

	rec, identity := serve(t, authn, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if identity == nil || identity.UID != "user-1" || identity.FirstName != "Ada" || identity.Source != SourceSession {
		t.Fatalf("unexpected identity %+v", identity)
	}
	if identity.IsAdmin() {
		t.Fatalf("user must not be admin")
	}
}

func TestRequireAuthAcceptsSessionBearer(t *testing.T) {
	authn := newSessionAuthenticator(t)
	req := httptest.NewRequest(http.MethodGet, "/api/admin/products", nil)
	req.Header.Set("Authorization", "Bearer "+signSession(t, validClaims("ADMIN")))

	rec, identity := serve(t, authn, req, RoleAdmin)

	if rec.Code != http.StatusNoContent || !identity.IsAdmin() {
		t.Fatalf("expected admin access, got %d %+v", rec.Code, identity)
	}
}

func TestRequireAuthRejectsNonAdmin(t *testing.T) {
	authn := newSessionAuthenticator(t)
	req := httptest.NewRequest(http.MethodGet, "/api/admin/products", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: signSession(t, validClaims("user"))})

	rec, _ := serve(t, authn, req, RoleAdmin)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body["code"] != "insufficient_role" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestRequireAuthRejectsBadSessions(t *testing.T) {
	expired := validClaims("user")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	wrongIssuer := validClaims("user")
	wrongIssuer.Issuer = "elsewhere"
	noSubject := validClaims("user")
	noSubject.UserID = ""

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims("admin")).SignedString([]byte("other-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	cases := map[string]struct {
		token string
		code  string
	}{
		"expired":      {token: signSession(t, expired), code: "token_expired"},
		"wrong issuer": {token: signSession(t, wrongIssuer), code: "invalid_token"},
		"no subject":   {token: signSession(t, noSubject), code: "invalid_token"},
		"forged":       {token: forged, code: "invalid_token"},
		"garbage":      {token: "not-a-jwt", code: "invalid_token"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(&http.Cookie{Name: "token", Value: tc.token})
			rec, identity := serve(t, newSessionAuthenticator(t), req)
			if rec.Code != http.StatusUnauthorized || identity != nil {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			if body := decodeError(t, rec); body["code"] != tc.code || body["error"] == "" {
				t.Fatalf("unexpected body %v", body)
			}
		})
	}
}

func TestRequireAuthMissingCredentials(t *testing.T) {
	rec, _ := serve(t, newSessionAuthenticator(t), httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body["error"] != "Unauthenticated" || body["code"] != "unauthenticated" {
		t.Fatalf("unexpected body %v", body)
	}
}

type stubFirebaseClient struct {
	token *firebaseauth.Token
	err   error
}

func (s stubFirebaseClient) VerifyIDToken(context.Context, string) (*firebaseauth.Token, error) {
	return s.token, s.err
}

func TestRequireAuthFallsThroughToFirebase(t *testing.T) {
	session, _ := NewSessionVerifier(testSecret, "")
	firebase := newFirebaseVerifier(stubFirebaseClient{token: &firebaseauth.Token{
		UID:    "fb-uid",
		Claims: map[string]any{"email": "fb@example.com", "role": []any{"Admin", "admin", ""}},
	}})
	authn := NewAuthenticator(WithSessionVerifier(session), WithBearerVerifier(firebase))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer firebase-id-token")
	rec, identity := serve(t, authn, req, RoleAdmin)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if identity.UID != "fb-uid" || identity.Source != SourceFirebase || len(identity.Roles) != 1 {
		t.Fatalf("unexpected identity %+v", identity)
	}
}

func TestFirebaseVerifierDefaultsToUserRole(t *testing.T) {
	verifier := newFirebaseVerifier(stubFirebaseClient{token: &firebaseauth.Token{UID: "u", Claims: map[string]any{}}})
	identity, err := verifier.Verify(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !identity.HasRole(RoleUser) || identity.IsAdmin() {
		t.Fatalf("unexpected roles %v", identity.Roles)
	}

	failing := newFirebaseVerifier(stubFirebaseClient{err: errors.New("boom")})
	if _, err := failing.Verify(context.Background(), "tok"); err == nil {
		t.Fatalf("expected verification error")
	}
}

func TestNewSessionVerifierRequiresSecret(t *testing.T) {
	if _, err := NewSessionVerifier(" ", ""); err == nil {
		t.Fatalf("expected error for blank secret")
	}
}
