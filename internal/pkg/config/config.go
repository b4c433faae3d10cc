package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Strava    StravaConfig    `mapstructure:"strava"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Tracks    TracksConfig    `mapstructure:"tracks"`
	Shapes    ShapesConfig    `mapstructure:"shapes"`
}

type ServerConfig struct {
	Port          int      `mapstructure:"port"`
	ReadTimeout   int      `mapstructure:"read_timeout"`
	WriteTimeout  int      `mapstructure:"write_timeout"`
	BodyLimitMB   int      `mapstructure:"body_limit_mb"`
	AllowOrigins  []string `mapstructure:"allow_origins"`
	RateLimitRPM  int      `mapstructure:"rate_limit_rpm"`
	PublicBaseURL string   `mapstructure:"public_base_url"`
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

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// StorageConfig points at the S3-compatible bucket that archives exported GPX files.
type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type StravaConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURI  string `mapstructure:"redirect_uri"`
	StateSecret  string `mapstructure:"state_secret"`
	APIBaseURL   string `mapstructure:"api_base_url"`
	AuthURL      string `mapstructure:"auth_url"`
	TokenURL     string `mapstructure:"token_url"`
}

// Enabled reports whether Strava credentials are configured.
func (s StravaConfig) Enabled() bool {
	return s.ClientID != "" && s.ClientSecret != ""
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// TracksConfig holds the defaults applied to conversion requests.
type TracksConfig struct {
	CenterLat       float64       `mapstructure:"center_lat"`
	CenterLon       float64       `mapstructure:"center_lon"`
	ScaleMeters     float64       `mapstructure:"scale_meters"`
	NumPoints       int           `mapstructure:"num_points"`
	DurationSeconds int           `mapstructure:"duration_seconds"`
	CurveSteps      int           `mapstructure:"curve_steps"`
	MaxPoints       int           `mapstructure:"max_points"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
}

type ShapesConfig struct {
	CatalogFile string `mapstructure:"catalog_file"`
}

// Load reads configuration from .env, file and environment variables.
func Load(service string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("could not load .env file", "error", err)
	}

	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.body_limit_mb", 4)
	v.SetDefault("server.allow_origins", []string{"*"})
	v.SetDefault("server.rate_limit_rpm", 120)
	v.SetDefault("server.public_base_url", "http://localhost:8080")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "chalkin")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "chalkin")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 10)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.bucket", "chalkin-tracks")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("strava.client_id", "")
	v.SetDefault("strava.client_secret", "")
	v.SetDefault("strava.redirect_uri", "http://localhost:8080/v1/strava/callback")
	v.SetDefault("strava.state_secret", "")
	v.SetDefault("strava.api_base_url", "https://www.strava.com/api/v3")
	v.SetDefault("strava.auth_url", "https://www.strava.com/oauth/authorize")
	v.SetDefault("strava.token_url", "https://www.strava.com/oauth/token")
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "track-exports")
	v.SetDefault("tracks.center_lat", 40.416775)
	v.SetDefault("tracks.center_lon", -3.703790)
	v.SetDefault("tracks.scale_meters", 100.0)
	v.SetDefault("tracks.num_points", 300)
	v.SetDefault("tracks.duration_seconds", 3600)
	v.SetDefault("tracks.curve_steps", 8)
	v.SetDefault("tracks.max_points", 5000)
	v.SetDefault("tracks.cache_ttl", "1h")
	v.SetDefault("shapes.catalog_file", "")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: CHALKIN_DATABASE_HOST → database.host
	v.SetEnvPrefix("CHALKIN")
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
	if c.Storage.Bucket == "" {
		errs = append(errs, "storage.bucket is required")
	}
	if c.Strava.Enabled() && c.Strava.StateSecret == "" {
		errs = append(errs, "strava.state_secret is required when strava.client_id is set")
	}
	if c.Temporal.TaskQueue == "" {
		errs = append(errs, "temporal.task_queue is required")
	}

	t := c.Tracks
	if math.IsNaN(t.CenterLat) || t.CenterLat <= -90 || t.CenterLat >= 90 {
		errs = append(errs, fmt.Sprintf("tracks.center_lat must be within (-90, 90), got %g", t.CenterLat))
	}
	if math.IsNaN(t.CenterLon) || t.CenterLon < -180 || t.CenterLon > 180 {
		errs = append(errs, fmt.Sprintf("tracks.center_lon must be within [-180, 180], got %g", t.CenterLon))
	}
	if t.ScaleMeters <= 0 {
		errs = append(errs, "tracks.scale_meters must be positive")
	}
	if t.NumPoints < 2 {
		errs = append(errs, fmt.Sprintf("tracks.num_points must be at least 2, got %d", t.NumPoints))
	}
	if t.MaxPoints < t.NumPoints {
		errs = append(errs, "tracks.max_points must not be below tracks.num_points")
	}
	if t.DurationSeconds <= 0 {
		errs = append(errs, "tracks.duration_seconds must be positive")
	} else if t.DurationSeconds < t.NumPoints-1 {
		errs = append(errs, "tracks.duration_seconds must allow one second per point")
	}
	if t.CurveSteps < 1 {
		errs = append(errs, "tracks.curve_steps must be at least 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
