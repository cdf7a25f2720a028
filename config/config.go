package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ahmadzakiakmal/shiptrack/render"
	"github.com/ahmadzakiakmal/shiptrack/repository"
)

// EnvPrefix prefixes every environment override, e.g. SHIPTRACK_DATABASE_HOST
const EnvPrefix = "SHIPTRACK"

// Config holds all configuration for a shipment intake node
type Config struct {
	// Node Identity
	NodeID string `mapstructure:"node_id"`

	// Server Configuration
	HTTPPort string `mapstructure:"http_port"`
	LogLevel string `mapstructure:"log_level"`

	Database  DatabaseConfig  `mapstructure:"database"`
	Drafts    DraftsConfig    `mapstructure:"drafts"`
	Shipments ShipmentsConfig `mapstructure:"shipments"`
	Render    render.Config   `mapstructure:"render"`
}

// DatabaseConfig selects and addresses the shipment database
type DatabaseConfig struct {
	Dialect  string `mapstructure:"dialect"` // postgres or sqlite
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	Path     string `mapstructure:"path"` // sqlite file

	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
}

// DraftsConfig locates the draft store
type DraftsConfig struct {
	Dir string        `mapstructure:"dir"` // empty keeps drafts in memory
	TTL time.Duration `mapstructure:"ttl"`
}

// ShipmentsConfig points finalize at a remote shipment service. With no
// endpoint, shipments are stored in the local database.
type ShipmentsConfig struct {
	Endpoint string        `mapstructure:"endpoint"` // e.g., "http://localhost:6000"
	Timeout  time.Duration `mapstructure:"timeout"`
}

func setDefaults(v *viper.Viper) {
	rc := render.DefaultConfig()

	v.SetDefault("node_id", "intake-node-a")
	v.SetDefault("http_port", "6000")
	v.SetDefault("log_level", "info")

	v.SetDefault("database.dialect", repository.DialectPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgrespassword")
	v.SetDefault("database.name", "shiptrack")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "shiptrack.db")
	v.SetDefault("database.retry_attempts", 10)
	v.SetDefault("database.retry_delay", 2*time.Second)

	v.SetDefault("drafts.dir", "")
	v.SetDefault("drafts.ttl", 72*time.Hour)

	v.SetDefault("shipments.endpoint", "")
	v.SetDefault("shipments.timeout", 30*time.Second)

	v.SetDefault("render.module_width_px", rc.ModuleWidthPx)
	v.SetDefault("render.symbol_height_px", rc.SymbolHeightPx)
	v.SetDefault("render.show_caption", rc.ShowCaption)
	v.SetDefault("render.margin_px", rc.MarginPx)
}

// LoadConfig reads defaults, then the optional config file, then
// SHIPTRACK_* environment variables
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

// GetDSN returns the connection string for the configured dialect
func (c *Config) GetDSN() string {
	if c.Database.Dialect == repository.DialectSQLite {
		return c.Database.Path
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// Validate checks if required configuration is present and well formed
func (c *Config) Validate() error {
	if c.NodeID == "" {
		return errors.New("node_id is required")
	}
	if port, err := strconv.Atoi(c.HTTPPort); err != nil || port < 0 || port > 65535 {
		return fmt.Errorf("http_port %q is not a valid port", c.HTTPPort)
	}

	switch c.Database.Dialect {
	case repository.DialectPostgres:
		if c.Database.Host == "" || c.Database.Name == "" {
			return errors.New("database.host and database.name are required for postgres")
		}
	case repository.DialectSQLite:
		if c.Database.Path == "" {
			return errors.New("database.path is required for sqlite")
		}
	default:
		return fmt.Errorf("database.dialect %q is not supported", c.Database.Dialect)
	}
	if c.Database.RetryAttempts < 1 {
		return errors.New("database.retry_attempts must be at least 1")
	}

	if c.Drafts.TTL < 0 {
		return errors.New("drafts.ttl must not be negative")
	}

	if c.Shipments.Endpoint != "" {
		u, err := url.Parse(c.Shipments.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("shipments.endpoint %q is not an http(s) URL", c.Shipments.Endpoint)
		}
	}
	if c.Shipments.Timeout <= 0 {
		return errors.New("shipments.timeout must be positive")
	}

	if err := c.Render.Validate(); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}
