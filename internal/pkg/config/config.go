package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/samirrijal/geopin/internal/pkg/geospatial"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Log          LogConfig          `mapstructure:"log"`
	Geo          GeoConfig          `mapstructure:"geo"`
	Capabilities CapabilitiesConfig `mapstructure:"capabilities"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Position     PositionConfig     `mapstructure:"position"`
	NATS         NATSConfig         `mapstructure:"nats"`
	MQTT         MQTTConfig         `mapstructure:"mqtt"`
	Telemetry    TelemetryConfig    `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
	RateLimit    int `mapstructure:"rate_limit"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GeoConfig selects how a latitude is turned into a viewport span.
// "radians" converts degrees first; "legacy" feeds degrees to cos directly.
type GeoConfig struct {
	LatitudeMode string `mapstructure:"latitude_mode"`
}

// CapabilitiesConfig bounds each call to the position source or the store.
// A zero timeout waits forever.
type CapabilitiesConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// Storage drivers.
const (
	StorageValkey   = "valkey"
	StoragePostgres = "postgres"
	StorageMongo    = "mongo"
	StorageMemory   = "memory"
)

type StorageConfig struct {
	Driver   string         `mapstructure:"driver"`
	Valkey   ValkeyConfig   `mapstructure:"valkey"`
	Postgres DatabaseConfig `mapstructure:"postgres"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
}

type ValkeyConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type MongoConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

// Position drivers.
const (
	PositionStatic = "static"
	PositionNATS   = "nats"
	PositionMQTT   = "mqtt"
)

type PositionConfig struct {
	Driver string       `mapstructure:"driver"`
	Static StaticConfig `mapstructure:"static"`
	// Subject is the NATS request subject used by the nats driver.
	Subject string `mapstructure:"subject"`
}

// StaticConfig is the fix served by the static driver. Enabled=false
// models a host without any position capability.
type StaticConfig struct {
	Enabled   bool    `mapstructure:"enabled"`
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
	Accuracy  float64 `mapstructure:"accuracy"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

type MQTTConfig struct {
	Broker   string `mapstructure:"broker"`
	ClientID string `mapstructure:"client_id"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Topic    string `mapstructure:"topic"`
}

type TelemetryConfig struct {
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	Enabled      bool   `mapstructure:"enabled"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	return decode(v)
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.rate_limit", 120)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("geo.latitude_mode", "radians")
	v.SetDefault("capabilities.timeout", 10*time.Second)
	v.SetDefault("storage.driver", StorageValkey)
	v.SetDefault("storage.valkey.addr", "localhost:6379")
	v.SetDefault("storage.valkey.password", "")
	v.SetDefault("storage.valkey.db", 0)
	v.SetDefault("storage.postgres.host", "localhost")
	v.SetDefault("storage.postgres.port", 5432)
	v.SetDefault("storage.postgres.user", "geopin")
	v.SetDefault("storage.postgres.password", "")
	v.SetDefault("storage.postgres.dbname", "geopin")
	v.SetDefault("storage.postgres.sslmode", "disable")
	v.SetDefault("storage.postgres.max_conns", 4)
	v.SetDefault("storage.mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("storage.mongo.database", "geopin")
	v.SetDefault("storage.mongo.collection", "kv_store")
	v.SetDefault("position.driver", PositionStatic)
	v.SetDefault("position.static.enabled", false)
	v.SetDefault("position.static.latitude", 0.0)
	v.SetDefault("position.static.longitude", 0.0)
	v.SetDefault("position.static.accuracy", 0.0)
	v.SetDefault("position.subject", "geopin.position.request")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", true)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", service)
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.topic", "geopin/position")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")
	v.SetDefault("telemetry.enabled", false)
}

func decode(v *viper.Viper) (*Config, error) {
	// Environment variables: GEOPIN_STORAGE_DRIVER → storage.driver
	v.SetEnvPrefix("GEOPIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, "server.rate_limit must not be negative")
	}
	if _, err := geospatial.ParseLatitudeMode(c.Geo.LatitudeMode); err != nil {
		errs = append(errs, "geo.latitude_mode: "+err.Error())
	}
	if c.Capabilities.Timeout < 0 {
		errs = append(errs, "capabilities.timeout must not be negative")
	}

	switch c.Storage.Driver {
	case StorageValkey:
		if c.Storage.Valkey.Addr == "" {
			errs = append(errs, "storage.valkey.addr is required")
		}
	case StoragePostgres:
		d := c.Storage.Postgres
		if d.Host == "" {
			errs = append(errs, "storage.postgres.host is required")
		}
		if d.Port <= 0 || d.Port > 65535 {
			errs = append(errs, fmt.Sprintf("storage.postgres.port must be 1-65535, got %d", d.Port))
		}
		if d.User == "" {
			errs = append(errs, "storage.postgres.user is required")
		}
		if d.DBName == "" {
			errs = append(errs, "storage.postgres.dbname is required")
		}
	case StorageMongo:
		if c.Storage.Mongo.URI == "" {
			errs = append(errs, "storage.mongo.uri is required")
		}
		if c.Storage.Mongo.Database == "" {
			errs = append(errs, "storage.mongo.database is required")
		}
	case StorageMemory:
	default:
		errs = append(errs, fmt.Sprintf("storage.driver must be valkey, postgres, mongo or memory, got %q", c.Storage.Driver))
	}

	switch c.Position.Driver {
	case PositionStatic:
	case PositionNATS:
		if !c.NATS.Enabled || c.NATS.URL == "" {
			errs = append(errs, "position.driver nats requires nats.enabled and nats.url")
		}
		if c.Position.Subject == "" {
			errs = append(errs, "position.subject is required")
		}
	case PositionMQTT:
		if c.MQTT.Broker == "" {
			errs = append(errs, "mqtt.broker is required")
		}
		if c.MQTT.Topic == "" {
			errs = append(errs, "mqtt.topic is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("position.driver must be static, nats or mqtt, got %q", c.Position.Driver))
	}

	if c.NATS.Enabled && c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Telemetry.Enabled && c.Telemetry.OTLPEndpoint == "" {
		errs = append(errs, "telemetry.otlp_endpoint is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
