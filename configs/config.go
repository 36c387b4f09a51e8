package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Providers ProvidersConfig
	Log       LogConfig
	Tracing   TracingConfig
	Admin     AdminConfig
	FeedSync  FeedSyncConfig
}

type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TLSCertFile    string
	TLSKeyFile     string
	AllowedOrigins []string
	Environment    string
	// Per-client request pacing of the public API. Zero disables it.
	RateLimitPerSec float64
	RateLimitBurst  int
}

// DatabaseConfig points at the optional feed mirror. An empty Host disables it.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	DSN      string
	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string
}

// Enabled reports whether a mirror database is configured.
func (c DatabaseConfig) Enabled() bool { return c.Host != "" }

// RedisConfig configures the shared cache tier. An empty URL disables the tier.
type RedisConfig struct {
	URL string
	// Pool and timeout settings
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
	IdleTimeout  time.Duration
	// OpTimeout bounds every individual tier operation, including the lazy connect.
	OpTimeout time.Duration
	ScanCount int64
}

type CacheConfig struct {
	ListTTL     time.Duration
	DetailTTL   time.Duration
	MaxPageSize int
	EventBuffer int
}

type ProvidersConfig struct {
	// Active lists provider names in query order (vista, dwv, mirror).
	Active []string
	Vista  VistaConfig
	DWV    DWVConfig
	// Shared client settings
	Timeout          time.Duration
	RequestsPerSec   float64
	Burst            int
	BreakerFailures  uint32
	BreakerOpenAfter time.Duration
}

type VistaConfig struct {
	BaseURL string
	APIKey  string
}

type DWVConfig struct {
	BaseURL string
	Token   string
}

type LogConfig struct {
	Level  string
	Format string // json or text
}

type TracingConfig struct {
	Endpoint    string
	ServiceName string
	Insecure    bool
}

// FeedSyncConfig drives cmd/feedsync, which copies live providers into the mirror table.
type FeedSyncConfig struct {
	Sources  []string
	PageSize int
	MaxPages int
}

type AdminConfig struct {
	// CacheAdminSecret signs invalidation tokens; empty disables the endpoint.
	CacheAdminSecret string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnv("SERVER_PORT", "8080"),
			ReadTimeout:    getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:    getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
			TLSCertFile:    getEnv("TLS_CERT_FILE", ""),
			TLSKeyFile:     getEnv("TLS_KEY_FILE", ""),
			AllowedOrigins: getListEnv("ALLOWED_ORIGINS", []string{"*"}),
			Environment:    getEnv("ENVIRONMENT", "development"),

			RateLimitPerSec: getFloatEnv("SERVER_RATE_LIMIT_RPS", 20),
			RateLimitBurst:  getIntEnv("SERVER_RATE_LIMIT_BURST", 40),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", ""),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "property_feed"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			MigrationsPath:  getEnv("DB_MIGRATIONS_PATH", "./migrations"),
		},
		Redis: RedisConfig{
			URL:          getEnv("REDIS_URL", ""),
			PoolSize:     getIntEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns: getIntEnv("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDurationEnv("REDIS_DIAL_TIMEOUT", 2*time.Second),
			ReadTimeout:  getDurationEnv("REDIS_READ_TIMEOUT", time.Second),
			WriteTimeout: getDurationEnv("REDIS_WRITE_TIMEOUT", time.Second),
			PoolTimeout:  getDurationEnv("REDIS_POOL_TIMEOUT", 2*time.Second),
			IdleTimeout:  getDurationEnv("REDIS_IDLE_TIMEOUT", 5*time.Minute),
			OpTimeout:    getDurationEnv("REDIS_OP_TIMEOUT", 1500*time.Millisecond),
			ScanCount:    int64(getIntEnv("REDIS_SCAN_COUNT", 200)),
		},
		Cache: CacheConfig{
			ListTTL:     getDurationEnv("CACHE_LIST_TTL", 5*time.Minute),
			DetailTTL:   getDurationEnv("CACHE_DETAIL_TTL", 10*time.Minute),
			MaxPageSize: getIntEnv("CACHE_MAX_PAGE_SIZE", 50),
			EventBuffer: getIntEnv("CACHE_EVENT_BUFFER", 64),
		},
		Providers: ProvidersConfig{
			Active: getListEnv("ACTIVE_PROVIDERS", []string{"vista"}),
			Vista: VistaConfig{
				BaseURL: getEnv("VISTA_BASE_URL", ""),
				APIKey:  getEnv("VISTA_API_KEY", ""),
			},
			DWV: DWVConfig{
				BaseURL: getEnv("DWV_BASE_URL", ""),
				Token:   getEnv("DWV_API_TOKEN", ""),
			},
			Timeout:          getDurationEnv("PROVIDER_TIMEOUT", 10*time.Second),
			RequestsPerSec:   getFloatEnv("PROVIDER_RPS", 5),
			Burst:            getIntEnv("PROVIDER_BURST", 10),
			BreakerFailures:  uint32(getIntEnv("PROVIDER_BREAKER_FAILURES", 5)),
			BreakerOpenAfter: getDurationEnv("PROVIDER_BREAKER_TIMEOUT", 30*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Tracing: TracingConfig{
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "property-data"),
			Insecure:    getBoolEnv("OTEL_EXPORTER_OTLP_INSECURE", true),
		},
		Admin: AdminConfig{
			CacheAdminSecret: getEnv("CACHE_ADMIN_SECRET", ""),
		},
		FeedSync: FeedSyncConfig{
			Sources:  getListEnv("FEED_SYNC_SOURCES", []string{"vista"}),
			PageSize: getIntEnv("FEED_SYNC_PAGE_SIZE", 50),
			MaxPages: getIntEnv("FEED_SYNC_MAX_PAGES", 0),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Build database DSN
	cfg.Database.DSN = fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.DBName,
		cfg.Database.SSLMode,
	)

	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.Providers.Active) == 0 {
		return fmt.Errorf("ACTIVE_PROVIDERS must name at least one provider")
	}
	for _, name := range c.Providers.Active {
		switch name {
		case "vista":
			if c.Providers.Vista.BaseURL == "" {
				return fmt.Errorf("VISTA_BASE_URL is required when vista is active")
			}
		case "dwv":
			if c.Providers.DWV.BaseURL == "" {
				return fmt.Errorf("DWV_BASE_URL is required when dwv is active")
			}
		case "mirror":
			if !c.Database.Enabled() {
				return fmt.Errorf("DB_HOST is required when mirror is active")
			}
		default:
			return fmt.Errorf("unknown provider %q in ACTIVE_PROVIDERS", name)
		}
	}
	if c.Cache.MaxPageSize < 1 {
		return fmt.Errorf("CACHE_MAX_PAGE_SIZE must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getListEnv splits a comma-separated value, dropping blanks.
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
