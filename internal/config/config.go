// Package config manages environment variables.
//
// It reads variables from the process environment (and an optional `.env`
// file), loads them into structured Go types, and validates that required
// values are present so they can be reused across the application runtime.
//
// Responsibilities:
//   - Load environment variables (optionally from a `.env` file).
//   - Map env vars into a structured Go config (structs).
//   - Validate required values so the app fails fast on bad/missing config.
//   - Provide sane defaults for optional config blocks (e.g. observability).
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	// Side-effect import: if a `.env` file exists, it gets loaded into the
	// process env before any variable is read.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

/*
	Env vars are read using the prefix PWADMIN_. Keys are lowercased, the
	prefix is removed and a double underscore marks nesting:

	  PWADMIN_SERVER__PORT        -> server.port        -> Config.Server.Port
	  PWADMIN_ROLE_STORE__DRIVER  -> role_store.driver  -> Config.RoleStore.Driver
*/

// EnvPrefix is the prefix every configuration variable must carry.
const EnvPrefix = "PWADMIN_"

// ServiceName identifies this service in logs, traces and APM dashboards.
const ServiceName = "password-admin"

const (
	ProviderFirebase = "firebase"
	ProviderClerk    = "clerk"

	RoleStoreFirestore = "firestore"
	RoleStorePostgres  = "postgres"
	RoleStoreClerk     = "clerk"
)

// Config is the root configuration object for the application.
//
// Optional sections (firebase, clerk, database, redis) are only checked by
// Validate when the selected identity provider or role store needs them.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Identity      IdentityConfig       `koanf:"identity" validate:"required"`
	RoleStore     RoleStoreConfig      `koanf:"role_store" validate:"required"`
	Firebase      FirebaseConfig       `koanf:"firebase"`
	Clerk         ClerkConfig          `koanf:"clerk"`
	Database      DatabaseConfig       `koanf:"database"`
	Redis         RedisConfig          `koanf:"redis"`
	Notification  NotificationConfig   `koanf:"notification"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

// Primary holds top-level information about the runtime environment.
type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// ServerConfig groups settings for the HTTP server runtime.
// Timeouts are expressed in seconds.
type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required,min=1"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required,min=1"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required,min=1"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required"`

	// Headers written by the HTTP endpoint on every response.
	HTTPAllowOrigin  string `koanf:"http_allow_origin" validate:"required"`
	HTTPAllowMethods string `koanf:"http_allow_methods" validate:"required"`
	HTTPAllowHeaders string `koanf:"http_allow_headers" validate:"required"`

	// RateLimit is the sustained number of requests per second allowed per
	// client IP on the password endpoints. Zero disables limiting.
	RateLimit float64 `koanf:"rate_limit" validate:"min=0"`
}

// IdentityConfig selects the managed identity platform that verifies caller
// tokens and owns user passwords.
type IdentityConfig struct {
	Provider string `koanf:"provider" validate:"required,oneof=firebase clerk"`
}

// RoleStoreConfig selects where caller role records are read from.
type RoleStoreConfig struct {
	Driver     string `koanf:"driver" validate:"required,oneof=firestore postgres clerk"`
	Collection string `koanf:"collection"`
	RoleField  string `koanf:"role_field" validate:"required"`
}

// FirebaseConfig configures the Firebase Admin SDK. Leaving CredentialsFile
// empty falls back to Application Default Credentials.
type FirebaseConfig struct {
	ProjectID       string `koanf:"project_id"`
	CredentialsFile string `koanf:"credentials_file"`
	CheckRevoked    bool   `koanf:"check_revoked"`
}

// ClerkConfig stores the Clerk backend secret.
type ClerkConfig struct {
	SecretKey string `koanf:"secret_key"`
}

// DatabaseConfig contains PostgreSQL connection parameters and pool tuning.
type DatabaseConfig struct {
	Host            string `koanf:"host"`
	Port            int    `koanf:"port"`
	User            string `koanf:"user"`
	Password        string `koanf:"password"`
	Name            string `koanf:"name"`
	SSLMode         string `koanf:"ssl_mode"`
	MaxOpenConns    int    `koanf:"max_open_conns"`
	MaxIdleConns    int    `koanf:"max_idle_conns"`
	ConnMaxLifetime int    `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime int    `koanf:"conn_max_idle_time"`
	Migrate         bool   `koanf:"migrate"`
}

// RedisConfig contains Redis connection details.
// Address is typically "host:port"; empty disables Redis.
type RedisConfig struct {
	Address string `koanf:"address"`
}

// NotificationConfig controls the "your password was changed" email sent
// to the target user after an administrator reset.
type NotificationConfig struct {
	Enabled      bool   `koanf:"enabled"`
	ResendAPIKey string `koanf:"resend_api_key"`
	FromAddress  string `koanf:"from_address"`
	RunWorker    bool   `koanf:"run_worker"`
}

// defaults are loaded before the environment so a bare deployment only
// needs to pick an identity provider and role store.
var defaults = map[string]any{
	"primary.env":                 "development",
	"server.port":                 "8080",
	"server.read_timeout":         30,
	"server.write_timeout":        30,
	"server.idle_timeout":         60,
	"server.cors_allowed_origins": []string{"*"},
	"server.http_allow_origin":    "*",
	"server.http_allow_methods":   "POST",
	"server.http_allow_headers":   "Content-Type, Authorization",
	"server.rate_limit":           0,
	"identity.provider":           ProviderFirebase,
	"role_store.driver":           RoleStoreFirestore,
	"role_store.collection":       "users",
	"role_store.role_field":       "role",
	"database.port":               5432,
	"database.ssl_mode":           "disable",
	"database.max_open_conns":     10,
	"database.max_idle_conns":     2,
	"database.conn_max_lifetime":  300,
	"database.conn_max_idle_time": 60,
	"notification.from_address":   "Password Admin <no-reply@example.com>",
	"notification.run_worker":     true,
}

// LoadConfig loads configuration from environment variables, unmarshals it
// into Config, validates it, applies observability defaults and returns it.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("could not load config defaults: %w", err)
	}

	err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKeyValue), nil)
	if err != nil {
		return nil, fmt.Errorf("could not load env variables: %w", err)
	}

	// Observability is seeded with defaults so env vars only override the
	// fields they name.
	mainConfig := &Config{Observability: DefaultObservabilityConfig()}
	if err := k.Unmarshal("", mainConfig); err != nil {
		return nil, fmt.Errorf("could not unmarshal main config: %w", err)
	}

	// Service name and environment always follow the primary config so that
	// logs and traces are tagged consistently.
	mainConfig.Observability.ServiceName = ServiceName
	mainConfig.Observability.Environment = mainConfig.Primary.Env

	validate := validator.New()
	if err := validate.Struct(mainConfig); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if err := mainConfig.Validate(); err != nil {
		return nil, err
	}

	if err := mainConfig.Observability.Validate(); err != nil {
		return nil, fmt.Errorf("invalid observability config: %w", err)
	}

	return mainConfig, nil
}

// envKeyValue maps PWADMIN_SECTION__FIELD into section.field and splits
// list-valued settings on commas.
func envKeyValue(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")

	if strings.HasSuffix(key, "allowed_origins") || strings.HasSuffix(key, ".checks") {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return key, parts
	}

	return key, value
}

// Validate applies cross-section rules that struct tags cannot express:
// every backend named by identity.provider and role_store.driver must have
// its own section filled in.
func (c *Config) Validate() error {
	if c.UsesClerk() && c.Clerk.SecretKey == "" {
		return fmt.Errorf("clerk.secret_key is required when clerk is the identity provider or role store")
	}

	if c.RoleStore.Driver == RoleStoreFirestore && c.RoleStore.Collection == "" {
		return fmt.Errorf("role_store.collection is required for the firestore role store")
	}

	if c.RoleStore.Driver == RoleStorePostgres {
		if c.Database.Host == "" || c.Database.User == "" || c.Database.Name == "" {
			return fmt.Errorf("database.host, database.user and database.name are required for the postgres role store")
		}
	}

	if c.Notification.Enabled {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address is required when notifications are enabled")
		}
		if c.Notification.ResendAPIKey == "" {
			return fmt.Errorf("notification.resend_api_key is required when notifications are enabled")
		}
	}

	return nil
}

// UsesFirebase reports whether any configured backend needs the Firebase app.
func (c *Config) UsesFirebase() bool {
	return c.Identity.Provider == ProviderFirebase || c.RoleStore.Driver == RoleStoreFirestore
}

// UsesClerk reports whether any configured backend needs the Clerk client.
func (c *Config) UsesClerk() bool {
	return c.Identity.Provider == ProviderClerk || c.RoleStore.Driver == RoleStoreClerk
}
