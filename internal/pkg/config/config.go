package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Routing   RoutingConfig   `mapstructure:"routing"`
	POI       POIConfig       `mapstructure:"poi"`
	Synthesis SynthesisConfig `mapstructure:"synthesis"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	AllowOrigins string `mapstructure:"allow_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	Enabled      bool   `mapstructure:"enabled"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// RoutingConfig configures the GraphHopper routing provider.
type RoutingConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	Profile        string `mapstructure:"profile"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

func (r RoutingConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// POIConfig configures the Overpass POI provider and the Photon place search.
type POIConfig struct {
	OverpassURL       string  `mapstructure:"overpass_url"`
	PhotonURL         string  `mapstructure:"photon_url"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	SearchCacheTTL    int     `mapstructure:"search_cache_ttl"`
}

func (p POIConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// SynthesisConfig tunes route generation.
type SynthesisConfig struct {
	Variants              int     `mapstructure:"variants"`
	SeedStep              int64   `mapstructure:"seed_step"`
	MaxPOIsPerRoute       int     `mapstructure:"max_pois_per_route"`
	MinimizeHillsGradient float64 `mapstructure:"minimize_hills_gradient"`
	MaximizeHillsGradient float64 `mapstructure:"maximize_hills_gradient"`
	MinSearchRadiusKm     float64 `mapstructure:"min_search_radius_km"`
	CallTimeoutSeconds    int     `mapstructure:"call_timeout_seconds"`
	LockTTLSeconds        int     `mapstructure:"lock_ttl_seconds"`
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

	// Environment variables: GROUPRIDE_DATABASE_HOST → database.host
	v.SetEnvPrefix("GROUPRIDE")
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

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 60)
	v.SetDefault("server.allow_origins", "http://localhost:3000, http://localhost:5173")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "groupride")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "groupride")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "route-generation")
	v.SetDefault("routing.base_url", "https://graphhopper.com/api/1")
	v.SetDefault("routing.api_key", "")
	v.SetDefault("routing.profile", "bike")
	v.SetDefault("routing.timeout_seconds", 20)
	v.SetDefault("poi.overpass_url", "https://overpass-api.de/api/interpreter")
	v.SetDefault("poi.photon_url", "https://photon.komoot.io")
	v.SetDefault("poi.timeout_seconds", 25)
	v.SetDefault("poi.requests_per_second", 1)
	v.SetDefault("poi.search_cache_ttl", 600)
	v.SetDefault("synthesis.variants", 2)
	v.SetDefault("synthesis.seed_step", 12345)
	v.SetDefault("synthesis.max_pois_per_route", 5)
	v.SetDefault("synthesis.minimize_hills_gradient", 10)
	v.SetDefault("synthesis.maximize_hills_gradient", 15)
	v.SetDefault("synthesis.min_search_radius_km", 5)
	v.SetDefault("synthesis.call_timeout_seconds", 30)
	v.SetDefault("synthesis.lock_ttl_seconds", 120)
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Routing.BaseURL == "" {
		errs = append(errs, "routing.base_url is required")
	}
	if c.Routing.TimeoutSeconds <= 0 {
		errs = append(errs, "routing.timeout_seconds must be positive")
	}
	if c.POI.OverpassURL == "" {
		errs = append(errs, "poi.overpass_url is required")
	}
	if c.POI.PhotonURL == "" {
		errs = append(errs, "poi.photon_url is required")
	}
	if c.POI.RequestsPerSecond <= 0 {
		errs = append(errs, "poi.requests_per_second must be positive")
	}
	if c.Synthesis.Variants < 1 {
		errs = append(errs, fmt.Sprintf("synthesis.variants must be at least 1, got %d", c.Synthesis.Variants))
	}
	if c.Synthesis.MinimizeHillsGradient >= c.Synthesis.MaximizeHillsGradient {
		errs = append(errs, "synthesis.minimize_hills_gradient must be below synthesis.maximize_hills_gradient")
	}
	if c.Temporal.TaskQueue == "" {
		errs = append(errs, "temporal.task_queue is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
