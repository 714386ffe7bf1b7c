package config

import (
	"errors"
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
	DriverSQLite   = "sqlite"
	DriverBolt     = "bolt"
	DriverRedis    = "redis"
)

// Sources.
const (
	SourceCraigslist = "craigslist"
	SourceStub       = "stub"
)

// Config holds all application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Scraper ScraperConfig `yaml:"scraper"`
	Server  ServerConfig  `yaml:"server"`
	Deals   DealsConfig   `yaml:"deals"`
	Log     LogConfig     `yaml:"log"`
}

// StoreConfig selects and configures the listing store.
type StoreConfig struct {
	Driver     string         `yaml:"driver"`
	Postgres   PostgresConfig `yaml:"postgres"`
	SQLitePath string         `yaml:"sqlite_path"`
	BoltPath   string         `yaml:"bolt_path"`
	Redis      RedisConfig    `yaml:"redis"`
}

// PostgresConfig is shared by the lib/pq and pgx drivers.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DB       string `yaml:"db"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int    `yaml:"max_conns"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// ScraperConfig drives the fetch side of ingestion.
type ScraperConfig struct {
	Source         string `yaml:"source"`
	City           string `yaml:"city"`
	Query          string `yaml:"query"`
	MaxResults     int    `yaml:"max_results"`
	MaxRetries     int    `yaml:"max_retries"`
	MaxConcurrency int    `yaml:"max_concurrency"`
	RateLimitMs    int    `yaml:"rate_limit_ms"`
	ChromeBin      string `yaml:"chrome_bin"`
	CSVOutputPath  string `yaml:"csv_output_path"`
	DefaultRegion  string `yaml:"default_region"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type DealsConfig struct {
	MinUndervaluePercent float64 `yaml:"min_undervalue_percent"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Driver: DriverSQLite,
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     "5432",
				User:     "cardeals",
				Password: "cardeals",
				DB:       "cardeals",
				SSLMode:  "disable",
				MaxConns: 4,
			},
			SQLitePath: "./data/cardeals.db",
			BoltPath:   "./data/cardeals.bolt",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "cardeals:",
			},
		},
		Scraper: ScraperConfig{
			Source:         SourceStub,
			City:           "austin",
			Query:          "honda civic",
			MaxResults:     10,
			MaxRetries:     3,
			MaxConcurrency: 2,
			RateLimitMs:    2000,
			DefaultRegion:  "unknown",
		},
		Server: ServerConfig{
			Addr:           ":8000",
			AllowedOrigins: []string{"http://127.0.0.1:5173", "http://localhost:5173"},
			RequestTimeout: 60 * time.Second,
		},
		Deals: DealsConfig{MinUndervaluePercent: 15.0},
		Log:   LogConfig{Level: "info", Format: "console"},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// any), then .env and process environment variables. An empty path falls
// back to CONFIG_FILE.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %q: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Store.Driver = getEnv("STORE_DRIVER", c.Store.Driver)
	c.Store.Postgres.Host = getEnv("POSTGRES_HOST", c.Store.Postgres.Host)
	c.Store.Postgres.Port = getEnv("POSTGRES_PORT", c.Store.Postgres.Port)
	c.Store.Postgres.User = getEnv("POSTGRES_USER", c.Store.Postgres.User)
	c.Store.Postgres.Password = getEnv("POSTGRES_PASSWORD", c.Store.Postgres.Password)
	c.Store.Postgres.DB = getEnv("POSTGRES_DB", c.Store.Postgres.DB)
	c.Store.Postgres.SSLMode = getEnv("POSTGRES_SSLMODE", c.Store.Postgres.SSLMode)
	c.Store.Postgres.MaxConns = getEnvInt("PG_MAX_CONNS", c.Store.Postgres.MaxConns)
	c.Store.SQLitePath = getEnv("SQLITE_PATH", c.Store.SQLitePath)
	c.Store.BoltPath = getEnv("BOLT_PATH", c.Store.BoltPath)
	c.Store.Redis.Addr = getEnv("REDIS_ADDR", c.Store.Redis.Addr)
	c.Store.Redis.Password = getEnv("REDIS_PASSWORD", c.Store.Redis.Password)
	c.Store.Redis.DB = getEnvInt("REDIS_DB", c.Store.Redis.DB)
	c.Store.Redis.Prefix = getEnv("REDIS_PREFIX", c.Store.Redis.Prefix)

	c.Scraper.Source = getEnv("SCRAPER_SOURCE", c.Scraper.Source)
	c.Scraper.City = getEnv("SCRAPER_CITY", c.Scraper.City)
	c.Scraper.Query = getEnv("SCRAPER_QUERY", c.Scraper.Query)
	c.Scraper.MaxResults = getEnvInt("MAX_RESULTS", c.Scraper.MaxResults)
	c.Scraper.MaxRetries = getEnvInt("MAX_RETRIES", c.Scraper.MaxRetries)
	c.Scraper.MaxConcurrency = getEnvInt("MAX_CONCURRENCY", c.Scraper.MaxConcurrency)
	c.Scraper.RateLimitMs = getEnvInt("RATE_LIMIT_MS", c.Scraper.RateLimitMs)
	c.Scraper.ChromeBin = getEnv("CHROME_BIN", c.Scraper.ChromeBin)
	c.Scraper.CSVOutputPath = getEnv("CSV_OUTPUT_PATH", c.Scraper.CSVOutputPath)
	c.Scraper.DefaultRegion = getEnv("DEFAULT_REGION", c.Scraper.DefaultRegion)

	c.Server.Addr = getEnv("HTTP_ADDR", c.Server.Addr)
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}
	c.Server.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", c.Server.RequestTimeout)

	c.Deals.MinUndervaluePercent = getEnvFloat("MIN_UNDERVALUE_PERCENT", c.Deals.MinUndervaluePercent)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

// Validate reports configuration that would make the process misbehave.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory, DriverPostgres, DriverPgx, DriverSQLite, DriverBolt, DriverRedis:
	default:
		return fmt.Errorf("%w: unknown store driver %q", ErrInvalid, c.Store.Driver)
	}
	switch c.Scraper.Source {
	case SourceCraigslist, SourceStub:
	default:
		return fmt.Errorf("%w: unknown scraper source %q", ErrInvalid, c.Scraper.Source)
	}
	if c.Scraper.MaxResults <= 0 {
		return fmt.Errorf("%w: max_results must be positive, got %d", ErrInvalid, c.Scraper.MaxResults)
	}
	if c.Scraper.MaxConcurrency <= 0 {
		return fmt.Errorf("%w: max_concurrency must be positive, got %d", ErrInvalid, c.Scraper.MaxConcurrency)
	}
	if strings.TrimSpace(c.Scraper.DefaultRegion) == "" {
		return fmt.Errorf("%w: default_region must not be empty", ErrInvalid)
	}
	return nil
}

// PostgresDSN returns a postgres:// URL understood by both lib/pq and pgx.
// Credentials and the database name are escaped, so any characters are safe.
func (c *Config) PostgresDSN() string {
	p := c.Store.Postgres
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     net.JoinHostPort(p.Host, p.Port),
		Path:     "/" + p.DB,
		RawQuery: url.Values{"sslmode": {p.SSLMode}}.Encode(),
	}
	return u.String()
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil {
			return d
		}
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
