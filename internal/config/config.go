package config

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Config is the full service configuration, read from the environment
type Config struct {
	Env         string            `env:"ENV,default=development"`
	Server      ServerConfig      `env:",prefix=SERVER_"`
	Database    DatabaseConfig    `env:",prefix=DB_"`
	Redis       RedisConfig       `env:",prefix=REDIS_"`
	Auth        AuthConfig        `env:",prefix=AUTH_"`
	OAuth       OAuthConfig       `env:",prefix=OAUTH_"`
	Credentials CredentialsConfig `env:",prefix=CREDENTIALS_"`
	Refresh     RefreshConfig     `env:",prefix=REFRESH_"`
	Providers   ProvidersConfig   `env:",prefix="`
}

type ServerConfig struct {
	Host            string   `env:"HOST,default=0.0.0.0"`
	Port            string   `env:"PORT,default=8080"`
	ReadTimeout     Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout    Duration `env:"WRITE_TIMEOUT,default=30s"`
	ShutdownTimeout Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

// DatabaseConfig describes the Postgres connection. When SecretName is set the
// credentials come from AWS Secrets Manager instead.
type DatabaseConfig struct {
	Host       string `env:"HOST,default=localhost"`
	Port       string `env:"PORT,default=5432"`
	User       string `env:"USER,default=socialconnect"`
	Password   string `env:"PASSWORD"`
	Name       string `env:"NAME,default=socialconnect"`
	SSLMode    string `env:"SSLMODE,default=require"`
	SecretName string `env:"SECRET_NAME"`
	MaxConns   int32  `env:"MAX_CONNS,default=10"`
	// MemoryStore swaps Postgres for the in-process store (local development).
	MemoryStore bool `env:"MEMORY_STORE,default=false"`
}

// RedisConfig is optional; an empty Addr disables single-use state enforcement.
type RedisConfig struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB,default=0"`
}

// Enabled reports whether a Redis address is configured
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

type AuthConfig struct {
	// JWTSecret verifies HS256 bearer tokens issued by the application.
	JWTSecret string `env:"JWT_SECRET"`
}

type OAuthConfig struct {
	StateSecret     string   `env:"STATE_SECRET"`
	StateTTL        Duration `env:"STATE_TTL,default=10m"`
	RedirectBaseURL string   `env:"REDIRECT_BASE_URL,default=http://localhost:8080"`
	LandingURL      string   `env:"LANDING_URL,default=http://localhost:3000/oauth/callback"`
}

// CallbackURL is the redirect URI registered with every provider
func (o OAuthConfig) CallbackURL() string {
	return o.RedirectBaseURL + "/oauth/callback"
}

type CredentialsConfig struct {
	// EncryptionKey is a base64-encoded 32-byte AES-256 key.
	EncryptionKey string `env:"ENCRYPTION_KEY"`
}

// Key decodes the encryption key
func (c CredentialsConfig) Key() ([]byte, error) {
	if c.EncryptionKey == "" {
		return nil, errors.New("CREDENTIALS_ENCRYPTION_KEY is required")
	}
	key, err := base64.StdEncoding.DecodeString(c.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("CREDENTIALS_ENCRYPTION_KEY is not valid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("CREDENTIALS_ENCRYPTION_KEY must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

type RefreshConfig struct {
	// Window selects connections whose tokens expire within this duration.
	Window Duration `env:"WINDOW,default=7d"`
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom reads configuration from an arbitrary lookuper
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	cfg.Providers.applyDefaults()
	if err := cfg.Providers.Validate(); err != nil {
		return nil, fmt.Errorf("invalid provider configuration: %w", err)
	}

	return &cfg, nil
}

// ValidateServe checks the settings the HTTP server needs on top of Load
func (c *Config) ValidateServe() error {
	if len(c.Auth.JWTSecret) < 32 {
		return errors.New("AUTH_JWT_SECRET must be at least 32 characters long")
	}
	if len(c.OAuth.StateSecret) < 32 {
		return errors.New("OAUTH_STATE_SECRET must be at least 32 characters long")
	}
	if c.OAuth.StateTTL.Duration <= 0 {
		return errors.New("OAUTH_STATE_TTL must be positive")
	}
	if !c.Database.MemoryStore {
		if _, err := c.Credentials.Key(); err != nil {
			return err
		}
	}
	return nil
}

// IsProduction reports whether the service runs with production defaults
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Address returns the HTTP listen address
func (s ServerConfig) Address() string {
	return s.Host + ":" + s.Port
}
