// Package config assembles runtime configuration from defaults, an optional
// .env file, and environment variables, in that precedence order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnvFile      = ".env"
	defaultPort         = "8080"
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 120 * time.Second

	defaultShopEmail = "info@akkervarken.be"
	defaultShopPhone = "+32494185076"

	defaultBeneficiary = "Akkervarken"
	defaultRemittance  = "Hoevewinkel Akkervarken"

	defaultCatalogPath = "content/catalog.yaml"
	defaultSitePath    = "content/site.yaml"
	defaultOrdersPath  = "data/orders.db"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server    ServerConfig
	Shop      ShopConfig
	Payment   PaymentConfig
	Analytics AnalyticsConfig
	Admin     AdminConfig
	Content   ContentConfig
	Orders    OrdersConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// ShopConfig holds the outbound order contact details.
type ShopConfig struct {
	Email string
	Phone string
}

// PaymentConfig holds the beneficiary account for the POS payment QR.
type PaymentConfig struct {
	IBAN        string
	BIC         string
	Beneficiary string
	Remittance  string
}

// AnalyticsConfig configures the GA4 Measurement Protocol collector. An empty
// MeasurementID disables collection entirely.
type AnalyticsConfig struct {
	MeasurementID string
	APISecret     string
}

// AdminConfig guards the order archive endpoints. Empty credentials disable
// the admin surface.
type AdminConfig struct {
	Username string
	Password string
}

// ContentConfig locates the catalog and site content files.
type ContentConfig struct {
	CatalogPath string
	SitePath    string
}

// OrdersConfig locates the order archive database.
type OrdersConfig struct {
	DatabasePath string
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values
// in the map take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided
// maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the application configuration by combining defaults, .env
// overrides, and environment variables.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "FARMSHOP_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "FARMSHOP_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "FARMSHOP_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "FARMSHOP_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Shop: ShopConfig{
			Email: stringWithDefault(lookup, "FARMSHOP_SHOP_EMAIL", defaultShopEmail),
			Phone: stringWithDefault(lookup, "FARMSHOP_SHOP_PHONE", defaultShopPhone),
		},
		Payment: PaymentConfig{
			IBAN:        stringWithDefault(lookup, "FARMSHOP_PAYMENT_IBAN", ""),
			BIC:         stringWithDefault(lookup, "FARMSHOP_PAYMENT_BIC", ""),
			Beneficiary: stringWithDefault(lookup, "FARMSHOP_PAYMENT_BENEFICIARY", defaultBeneficiary),
			Remittance:  stringWithDefault(lookup, "FARMSHOP_PAYMENT_REMITTANCE", defaultRemittance),
		},
		Analytics: AnalyticsConfig{
			MeasurementID: stringWithDefault(lookup, "FARMSHOP_GA_MEASUREMENT_ID", ""),
			APISecret:     stringWithDefault(lookup, "FARMSHOP_GA_API_SECRET", ""),
		},
		Admin: AdminConfig{
			Username: stringWithDefault(lookup, "FARMSHOP_ADMIN_USERNAME", ""),
			Password: stringWithDefault(lookup, "FARMSHOP_ADMIN_PASSWORD", ""),
		},
		Content: ContentConfig{
			CatalogPath: stringWithDefault(lookup, "FARMSHOP_CATALOG_PATH", defaultCatalogPath),
			SitePath:    stringWithDefault(lookup, "FARMSHOP_SITE_PATH", defaultSitePath),
		},
		Orders: OrdersConfig{
			DatabasePath: stringWithDefault(lookup, "FARMSHOP_ORDERS_DB", defaultOrdersPath),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Shop.Email == "" {
		missing = append(missing, "Shop.Email")
	}
	if cfg.Shop.Phone == "" {
		missing = append(missing, "Shop.Phone")
	}
	if cfg.Content.CatalogPath == "" {
		missing = append(missing, "Content.CatalogPath")
	}
	if cfg.Content.SitePath == "" {
		missing = append(missing, "Content.SitePath")
	}
	if cfg.Orders.DatabasePath == "" {
		missing = append(missing, "Orders.DatabasePath")
	}
	// The QR needs the full account tuple; partial configuration is a
	// deployment mistake rather than a disabled feature.
	if cfg.Payment.IBAN == "" && cfg.Payment.BIC != "" {
		missing = append(missing, "Payment.IBAN")
	}
	if cfg.Payment.IBAN != "" && cfg.Payment.BIC == "" {
		missing = append(missing, "Payment.BIC")
	}
	if cfg.Analytics.MeasurementID != "" && cfg.Analytics.APISecret == "" {
		missing = append(missing, "Analytics.APISecret")
	}
	if cfg.Admin.Username != "" && cfg.Admin.Password == "" {
		missing = append(missing, "Admin.Password")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", path, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}
