package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	defaultEnvFile             = ".env"
	defaultPort                = "8080"
	defaultReadTimeout         = 15 * time.Second
	defaultWriteTimeout        = 30 * time.Second
	defaultIdleTimeout         = 120 * time.Second
	defaultRequestTimeout      = 60 * time.Second
	defaultSecurityEnvironment = "local"
	defaultCatalogBackend      = CatalogBackendFirestore
	defaultCatalogProbeTimeout = 750 * time.Millisecond
	defaultMongoDatabase       = "storefront"
	defaultMongoConnectTimeout = 10 * time.Second
	defaultMongoMaxPool        = 100
	defaultMongoMinPool        = 10
	defaultSeedLockTTL         = 30 * time.Second
	defaultPSPCurrency         = "usd"
	defaultPSPTimeout          = 10 * time.Second
	defaultBreakerFailures     = 5
	defaultBreakerCooldown     = 30 * time.Second
	defaultSessionCookie       = "token"
	defaultOrderTopic          = "orders"
	defaultIdempotencyHeader   = "Idempotency-Key"
	defaultIdempotencyTTL      = 24 * time.Hour
)

const (
	// CatalogBackendFirestore stores products and orders in Firestore.
	CatalogBackendFirestore = "firestore"
	// CatalogBackendMongo stores products and orders in MongoDB.
	CatalogBackendMongo = "mongo"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server      ServerConfig
	Firebase    FirebaseConfig
	Firestore   FirestoreConfig
	Mongo       MongoConfig
	Catalog     CatalogConfig
	Redis       RedisConfig
	PSP         PSPConfig
	Session     SessionConfig
	PubSub      PubSubConfig
	Idempotency IdempotencyConfig
	Security    SecurityConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
}

// FirebaseConfig stores Firebase project settings used for ID token verification.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// MongoConfig configures the MongoDB backend.
type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	MaxPoolSize    int
	MinPoolSize    int
}

// CatalogConfig selects the live store and controls seeding and the static fallback.
type CatalogConfig struct {
	Backend         string
	SeedOnStart     bool
	FallbackEnabled bool
	ProbeTimeout    time.Duration
}

// RedisConfig is optional; when Addr is empty idempotency records stay in memory and seeding is
// not coordinated across replicas.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	SeedLockTTL time.Duration
}

// Enabled reports whether a Redis address is configured.
func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

// PSPConfig configures the payment processor client.
type PSPConfig struct {
	StripeAPIKey    string
	Currency        string
	Timeout         time.Duration
	BreakerFailures int
	BreakerCooldown time.Duration
}

// SessionConfig configures verification of HS256 session tokens issued by the storefront login.
type SessionConfig struct {
	Secret     string
	CookieName string
	Issuer     string
}

// PubSubConfig configures order event publishing. An empty ProjectID disables publishing.
type PubSubConfig struct {
	ProjectID  string
	OrderTopic string
}

// IdempotencyConfig controls idempotency middleware behaviour.
type IdempotencyConfig struct {
	Header string
	TTL    time.Duration
}

// SecurityConfig groups deployment level settings.
type SecurityConfig struct {
	Environment string
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile         string
	envMap          map[string]string
	useSystemEnv    bool
	secret          SecretResolver
	requiredSecrets []string
}

func newLoaderOptions(opts []Option) loaderOptions {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
		secret:       unconfiguredResolver,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return options
}

// WithEnvFile overrides the .env file path used for local overrides. An empty path disables it.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map. Values in the map take precedence over the
// system environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver sets the resolver used for secret:// and sm:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

// WithRequiredSecrets marks secret fields (e.g. "PSP.StripeAPIKey") as mandatory.
func WithRequiredSecrets(names ...string) Option {
	return func(o *loaderOptions) {
		o.requiredSecrets = append(o.requiredSecrets, names...)
	}
}

// Load assembles the application configuration from defaults, the .env file, the process
// environment, explicit overrides and Secret Manager references, in increasing precedence.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := newLoaderOptions(opts)
	env, err := options.environment()
	if err != nil {
		return Config{}, err
	}
	lookup := func(key string) (string, bool) {
		value, ok := env[key]
		return value, ok
	}

	cfg := Config{
		Server: ServerConfig{
			Port:           stringWithDefault(lookup, "API_SERVER_PORT", portFallback(lookup)),
			ReadTimeout:    durationWithDefault(lookup, "API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:   durationWithDefault(lookup, "API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:    durationWithDefault(lookup, "API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			RequestTimeout: durationWithDefault(lookup, "API_SERVER_REQUEST_TIMEOUT", defaultRequestTimeout),
		},
		Firebase: FirebaseConfig{
			ProjectID:       stringWithDefault(lookup, "API_FIREBASE_PROJECT_ID", ""),
			CredentialsFile: stringWithDefault(lookup, "API_FIREBASE_CREDENTIALS_FILE", ""),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "API_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(lookup, "API_FIRESTORE_EMULATOR_HOST", ""),
		},
		Mongo: MongoConfig{
			URI:            stringWithDefault(lookup, "API_MONGO_URI", ""),
			Database:       stringWithDefault(lookup, "API_MONGO_DATABASE", defaultMongoDatabase),
			ConnectTimeout: durationWithDefault(lookup, "API_MONGO_CONNECT_TIMEOUT", defaultMongoConnectTimeout),
			MaxPoolSize:    intWithDefault(lookup, "API_MONGO_MAX_POOL", defaultMongoMaxPool),
			MinPoolSize:    intWithDefault(lookup, "API_MONGO_MIN_POOL", defaultMongoMinPool),
		},
		Catalog: CatalogConfig{
			Backend:         strings.ToLower(stringWithDefault(lookup, "API_CATALOG_BACKEND", defaultCatalogBackend)),
			SeedOnStart:     boolWithDefault(lookup, "API_CATALOG_SEED_ON_START", true),
			FallbackEnabled: boolWithDefault(lookup, "API_CATALOG_FALLBACK_ENABLED", true),
			ProbeTimeout:    durationWithDefault(lookup, "API_CATALOG_PROBE_TIMEOUT", defaultCatalogProbeTimeout),
		},
		Redis: RedisConfig{
			Addr:        stringWithDefault(lookup, "API_REDIS_ADDR", ""),
			Password:    stringWithDefault(lookup, "API_REDIS_PASSWORD", ""),
			DB:          intWithDefault(lookup, "API_REDIS_DB", 0),
			SeedLockTTL: durationWithDefault(lookup, "API_REDIS_SEED_LOCK_TTL", defaultSeedLockTTL),
		},
		PSP: PSPConfig{
			StripeAPIKey:    stringWithDefault(lookup, "API_PSP_STRIPE_API_KEY", ""),
			Currency:        strings.ToLower(stringWithDefault(lookup, "API_PSP_CURRENCY", defaultPSPCurrency)),
			Timeout:         durationWithDefault(lookup, "API_PSP_TIMEOUT", defaultPSPTimeout),
			BreakerFailures: intWithDefault(lookup, "API_PSP_BREAKER_FAILURES", defaultBreakerFailures),
			BreakerCooldown: durationWithDefault(lookup, "API_PSP_BREAKER_COOLDOWN", defaultBreakerCooldown),
		},
		Session: SessionConfig{
			Secret:     stringWithDefault(lookup, "API_SESSION_SECRET", ""),
			CookieName: stringWithDefault(lookup, "API_SESSION_COOKIE", defaultSessionCookie),
			Issuer:     stringWithDefault(lookup, "API_SESSION_ISSUER", ""),
		},
		PubSub: PubSubConfig{
			ProjectID:  stringWithDefault(lookup, "API_PUBSUB_PROJECT_ID", ""),
			OrderTopic: stringWithDefault(lookup, "API_PUBSUB_ORDER_TOPIC", defaultOrderTopic),
		},
		Idempotency: IdempotencyConfig{
			Header: stringWithDefault(lookup, "API_IDEMPOTENCY_HEADER", defaultIdempotencyHeader),
			TTL:    durationWithDefault(lookup, "API_IDEMPOTENCY_TTL", defaultIdempotencyTTL),
		},
		Security: SecurityConfig{
			Environment: strings.ToLower(stringWithDefault(lookup, "API_SECURITY_ENVIRONMENT", defaultSecurityEnvironment)),
		},
	}

	if cfg.Firestore.ProjectID == "" {
		cfg.Firestore.ProjectID = cfg.Firebase.ProjectID
	}

	resolved, err := resolveSecretFields(ctx, options.secret, []secretField{
		{"PSP.StripeAPIKey", &cfg.PSP.StripeAPIKey},
		{"Session.Secret", &cfg.Session.Secret},
		{"Mongo.URI", &cfg.Mongo.URI},
		{"Redis.Password", &cfg.Redis.Password},
	})
	if err != nil {
		return Config{}, err
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	if missing := findMissingSecrets(options.requiredSecrets, resolved); missing != nil {
		return Config{}, missing
	}
	return cfg, nil
}

// portFallback honours the PORT variable injected by Cloud Run and similar platforms.
func portFallback(lookup func(string) (string, bool)) string {
	return stringWithDefault(lookup, "PORT", defaultPort)
}

func validateConfig(cfg Config) error {
	var invalid []string
	add := func(field string) { invalid = append(invalid, field) }

	if strings.TrimSpace(cfg.Server.Port) == "" {
		add("Server.Port")
	}
	switch cfg.Catalog.Backend {
	case CatalogBackendFirestore:
		if cfg.Firestore.ProjectID == "" {
			add("Firestore.ProjectID")
		}
	case CatalogBackendMongo:
		if cfg.Mongo.URI == "" {
			add("Mongo.URI")
		}
		if cfg.Mongo.Database == "" {
			add("Mongo.Database")
		}
		if cfg.Mongo.MinPoolSize < 0 || cfg.Mongo.MaxPoolSize < cfg.Mongo.MinPoolSize {
			add("Mongo.MaxPoolSize")
		}
	default:
		add("Catalog.Backend")
	}
	if cfg.Firebase.ProjectID == "" && cfg.Session.Secret == "" {
		add("Firebase.ProjectID|Session.Secret")
	}
	if cfg.PSP.Timeout <= 0 {
		add("PSP.Timeout")
	}
	if cfg.PSP.BreakerFailures <= 0 {
		add("PSP.BreakerFailures")
	}
	if len(cfg.PSP.Currency) != 3 {
		add("PSP.Currency")
	}
	if strings.TrimSpace(cfg.Idempotency.Header) == "" {
		add("Idempotency.Header")
	}
	if cfg.Idempotency.TTL <= 0 {
		add("Idempotency.TTL")
	}

	if len(invalid) > 0 {
		return &ValidationError{fields: invalid}
	}
	return nil
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	return append([]string(nil), e.fields...)
}

// EnvironmentValues returns the effective environment after applying the same precedence rules
// as Load, so callers can initialise dependencies (e.g. the secret fetcher) before loading.
func EnvironmentValues(opts ...Option) (map[string]string, error) {
	options := newLoaderOptions(opts)
	return options.environment()
}

func (o loaderOptions) environment() (map[string]string, error) {
	values, err := readDotEnv(o.envFile)
	if err != nil {
		return nil, err
	}
	if o.useSystemEnv {
		for _, entry := range os.Environ() {
			key, value, ok := strings.Cut(entry, "=")
			if ok && strings.TrimSpace(key) != "" {
				values[key] = value
			}
		}
	}
	for key, value := range o.envMap {
		values[key] = value
	}
	return values, nil
}
