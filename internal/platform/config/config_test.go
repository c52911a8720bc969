package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	env := map[string]string{
		"API_FIREBASE_PROJECT_ID": "voltmart-dev",
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout != 60*time.Second {
		t.Errorf("unexpected request timeout: %s", cfg.Server.RequestTimeout)
	}
	if cfg.Firestore.ProjectID != "voltmart-dev" {
		t.Errorf("expected firestore project to default to firebase project, got %s", cfg.Firestore.ProjectID)
	}
	if cfg.Catalog.Backend != CatalogBackendFirestore {
		t.Errorf("expected firestore backend, got %s", cfg.Catalog.Backend)
	}
	if !cfg.Catalog.SeedOnStart || !cfg.Catalog.FallbackEnabled {
		t.Errorf("expected seeding and fallback enabled by default: %+v", cfg.Catalog)
	}
	if cfg.PSP.Currency != "usd" || cfg.PSP.Timeout != 10*time.Second {
		t.Errorf("unexpected psp defaults: %+v", cfg.PSP)
	}
	if cfg.PSP.BreakerFailures != 5 || cfg.PSP.BreakerCooldown != 30*time.Second {
		t.Errorf("unexpected breaker defaults: %+v", cfg.PSP)
	}
	if cfg.Session.CookieName != "token" {
		t.Errorf("unexpected session cookie name %s", cfg.Session.CookieName)
	}
	if cfg.Redis.Enabled() {
		t.Errorf("redis should be disabled without an address")
	}
	if cfg.Idempotency.Header != defaultIdempotencyHeader || cfg.Idempotency.TTL != defaultIdempotencyTTL {
		t.Errorf("unexpected idempotency defaults: %+v", cfg.Idempotency)
	}
	if cfg.Security.Environment != "local" {
		t.Errorf("expected local environment, got %s", cfg.Security.Environment)
	}
}

func TestLoadHonoursPlatformPort(t *testing.T) {
	env := map[string]string{
		"API_FIREBASE_PROJECT_ID": "voltmart-dev",
		"PORT":                    "3000",
	}
	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "3000" {
		t.Fatalf("expected PORT fallback, got %s", cfg.Server.Port)
	}
}

func TestLoadWithOverridesAndSecrets(t *testing.T) {
	env := map[string]string{
		"API_SERVER_PORT":           "9090",
		"API_SESSION_SECRET":        "sm://session/hs256",
		"API_CATALOG_BACKEND":       "MONGO",
		"API_MONGO_URI":             "secret://mongo/uri",
		"API_MONGO_DATABASE":        "shop",
		"API_REDIS_ADDR":            "localhost:6379",
		"API_PSP_STRIPE_API_KEY":    "secret://stripe/api",
		"API_PSP_TIMEOUT":           "4s",
		"API_CATALOG_SEED_ON_START": "false",
		"API_PUBSUB_PROJECT_ID":     "voltmart-prod",
		"API_SECURITY_ENVIRONMENT":  "PROD",
	}
	secrets := map[string]string{
		"secret://session/hs256": "hs-secret",
		"secret://mongo/uri":     "mongodb://db:27017",
		"secret://stripe/api":    "sk_live_123",
	}
	var calls []string
	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		calls = append(calls, ref)
		value, ok := secrets[ref]
		if !ok {
			return "", errors.New("unknown ref")
		}
		return value, nil
	})

	cfg, err := Load(context.Background(),
		WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""),
		WithSecretResolver(resolver),
		WithRequiredSecrets("PSP.StripeAPIKey", "Session.Secret"),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port override, got %s", cfg.Server.Port)
	}
	if cfg.Catalog.Backend != CatalogBackendMongo || cfg.Catalog.SeedOnStart {
		t.Errorf("unexpected catalog config %+v", cfg.Catalog)
	}
	if cfg.Mongo.URI != "mongodb://db:27017" || cfg.Mongo.Database != "shop" {
		t.Errorf("unexpected mongo config %+v", cfg.Mongo)
	}
	if cfg.Session.Secret != "hs-secret" {
		t.Errorf("expected sm:// reference to resolve, got %q", cfg.Session.Secret)
	}
	if cfg.PSP.StripeAPIKey != "sk_live_123" || cfg.PSP.Timeout != 4*time.Second {
		t.Errorf("unexpected psp config %+v", cfg.PSP)
	}
	if !cfg.Redis.Enabled() {
		t.Errorf("expected redis to be enabled")
	}
	if cfg.Security.Environment != "prod" {
		t.Errorf("expected lowercased environment, got %s", cfg.Security.Environment)
	}
	if len(calls) != 3 {
		t.Errorf("expected 3 resolver calls, got %v", calls)
	}
}

func TestLoadValidation(t *testing.T) {
	env := map[string]string{
		"API_CATALOG_BACKEND": "mongo",
		"API_PSP_CURRENCY":    "dollars",
	}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := map[string]bool{"Mongo.URI": true, "Firebase.ProjectID|Session.Secret": true, "PSP.Currency": true}
	for _, field := range vErr.Fields() {
		delete(want, field)
	}
	if len(want) != 0 {
		t.Fatalf("expected fields %v to be reported, got %v", want, vErr.Fields())
	}
}

func TestLoadUnknownBackend(t *testing.T) {
	env := map[string]string{
		"API_FIREBASE_PROJECT_ID": "voltmart-dev",
		"API_CATALOG_BACKEND":     "postgres",
	}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Fields()[0] != "Catalog.Backend" {
		t.Fatalf("expected Catalog.Backend validation error, got %v", err)
	}
}

func TestLoadSecretResolutionFailure(t *testing.T) {
	env := map[string]string{
		"API_FIREBASE_PROJECT_ID": "voltmart-dev",
		"API_PSP_STRIPE_API_KEY":  "secret://stripe/api",
	}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var sErr *SecretError
	if !errors.As(err, &sErr) {
		t.Fatalf("expected SecretError, got %v", err)
	}
	if sErr.Ref != "secret://stripe/api" {
		t.Fatalf("unexpected ref %s", sErr.Ref)
	}
	if !errors.Is(err, errSecretResolverNotConfigured) {
		t.Fatalf("expected unconfigured resolver cause, got %v", err)
	}
}

func TestLoadMissingRequiredSecrets(t *testing.T) {
	env := map[string]string{"API_FIREBASE_PROJECT_ID": "voltmart-dev"}
	_, err := Load(context.Background(),
		WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""),
		WithRequiredSecrets("PSP.StripeAPIKey", "PSP.StripeAPIKey"),
	)
	var missing *MissingSecretsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingSecretsError, got %v", err)
	}
	if names := missing.Names(); len(names) != 1 || names[0] != "PSP.StripeAPIKey" {
		t.Fatalf("unexpected names %v", names)
	}
	if redacted := missing.RedactedNames(); len(redacted) != 1 || redacted[0] == "PSP.StripeAPIKey" {
		t.Fatalf("expected hashed names, got %v", redacted)
	}
}

func TestLoadReadsDotEnvWithLowestPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	contents := "API_FIREBASE_PROJECT_ID=from-file\nexport API_SERVER_PORT=7070\nAPI_PSP_CURRENCY=\"eur\"\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(context.Background(),
		WithEnvFile(path),
		WithoutSystemEnv(),
		WithEnvMap(map[string]string{"API_SERVER_PORT": "9191"}),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Firebase.ProjectID != "from-file" {
		t.Errorf("expected dotenv value, got %s", cfg.Firebase.ProjectID)
	}
	if cfg.Server.Port != "9191" {
		t.Errorf("expected env map to override dotenv, got %s", cfg.Server.Port)
	}
	if cfg.PSP.Currency != "eur" {
		t.Errorf("expected quoted dotenv value to be unquoted, got %s", cfg.PSP.Currency)
	}
}

func TestEnvironmentValuesMissingFile(t *testing.T) {
	values, err := EnvironmentValues(WithEnvFile(filepath.Join(t.TempDir(), "absent.env")), WithoutSystemEnv())
	if err != nil {
		t.Fatalf("EnvironmentValues: %v", err)
	}
	if len(values) != 0 {
		t.Fatalf("expected empty environment, got %v", values)
	}
}
