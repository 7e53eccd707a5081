package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Server        ServerConfig       `mapstructure:"server"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Supabase      SupabaseConfig     `mapstructure:"supabase"`
	Stripe        StripeConfig       `mapstructure:"stripe"`
	Backend       BackendConfig      `mapstructure:"backend"`
	Cache         CacheConfig        `mapstructure:"cache"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	BaseURL     string `mapstructure:"base_url"` // used for billing redirect construction
}

type ServerConfig struct {
	Address         string   `mapstructure:"address"`
	ReadTimeout     int      `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int      `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int      `mapstructure:"shutdown_timeout"` // milliseconds
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// --- External Services ---

// SupabaseConfig holds the managed auth settings. The anon key is the public
// project key sent as the apikey header on GoTrue calls.
type SupabaseConfig struct {
	URL     string `mapstructure:"url"`
	AnonKey string `mapstructure:"anon_key"`
}

// StripeConfig holds billing settings. Price IDs and per-plan analysis limits
// are keyed by plan type (starter, monthly).
type StripeConfig struct {
	SecretKey     string            `mapstructure:"secret_key"`
	WebhookSecret string            `mapstructure:"webhook_secret"`
	PriceIDs      map[string]string `mapstructure:"price_ids"`
	PlanLimits    map[string]int    `mapstructure:"plan_limits"`
}

// BackendConfig holds settings for the external video-analysis engine.
type BackendConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

// CacheConfig holds the job-status cache tuning knobs.
type CacheConfig struct {
	TTL        int `mapstructure:"ttl"`         // milliseconds
	MaxEntries int `mapstructure:"max_entries"` // eviction threshold
	EvictBatch int `mapstructure:"evict_batch"` // oldest entries removed per sweep
}

// NotificationConfig holds settings for payment notification emails.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
