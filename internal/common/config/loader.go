package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like STRIPE_SECRET_KEY
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment-specific overlay, ignored if not present
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig()

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads .env from multiple possible locations so the binary works
// when launched from the repo root or from a cmd directory.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders left in yaml values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// overrideEmptyConfig fills secrets straight from the environment when the
// yaml left them empty.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Supabase.URL == "" {
		if val := os.Getenv("SUPABASE_URL"); val != "" {
			cfg.Supabase.URL = val
		}
	}
	if cfg.Supabase.AnonKey == "" {
		if val := os.Getenv("SUPABASE_ANON_KEY"); val != "" {
			cfg.Supabase.AnonKey = val
		}
	}

	if cfg.Stripe.SecretKey == "" {
		if val := os.Getenv("STRIPE_SECRET_KEY"); val != "" {
			cfg.Stripe.SecretKey = val
		}
	}
	if cfg.Stripe.WebhookSecret == "" {
		if val := os.Getenv("STRIPE_WEBHOOK_SECRET"); val != "" {
			cfg.Stripe.WebhookSecret = val
		}
	}
	if cfg.Stripe.PriceIDs == nil {
		cfg.Stripe.PriceIDs = map[string]string{}
	}
	if cfg.Stripe.PriceIDs["starter"] == "" {
		if val := os.Getenv("STRIPE_STARTER_PRICE_ID"); val != "" {
			cfg.Stripe.PriceIDs["starter"] = val
		}
	}
	if cfg.Stripe.PriceIDs["monthly"] == "" {
		if val := os.Getenv("STRIPE_MONTHLY_PRICE_ID"); val != "" {
			cfg.Stripe.PriceIDs["monthly"] = val
		}
	}

	if cfg.Backend.BaseURL == "" {
		if val := os.Getenv("BACKEND_BASE_URL"); val != "" {
			cfg.Backend.BaseURL = val
		}
	}
	if cfg.Backend.APIKey == "" {
		if val := os.Getenv("BACKEND_API_KEY"); val != "" {
			cfg.Backend.APIKey = val
		}
	}

	if cfg.App.BaseURL == "" {
		if val := os.Getenv("APP_BASE_URL"); val != "" {
			cfg.App.BaseURL = val
		}
	}

	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30000
	}
	if cfg.Server.WriteTimeout == 0 {
		// Analyze uploads stream large multipart bodies upstream.
		cfg.Server.WriteTimeout = 300000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10000
	}

	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "require"
	}

	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = 120000
	}

	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 5000
	}
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = 1000
	}
	if cfg.Cache.EvictBatch == 0 {
		cfg.Cache.EvictBatch = 100
	}

	if cfg.Stripe.PlanLimits == nil {
		cfg.Stripe.PlanLimits = map[string]int{
			"starter": 3,
			"monthly": 12,
		}
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Supabase.URL == "" {
		return fmt.Errorf("supabase.url is required")
	}
	if cfg.Supabase.AnonKey == "" {
		return fmt.Errorf("supabase.anon_key is required")
	}

	if cfg.Stripe.SecretKey == "" {
		return fmt.Errorf("stripe.secret_key is required")
	}
	if cfg.Stripe.WebhookSecret == "" {
		return fmt.Errorf("stripe.webhook_secret is required")
	}

	if cfg.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}

	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}

	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
