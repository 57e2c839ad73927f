package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Girls-Girls-Inc/wits-quest-sub001/utils"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Duration is a time.Duration that reads "15s" style strings from TOML.
type Duration time.Duration

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	Port        string `toml:"port"`
	DatabaseURL string `toml:"database_url"`
	// StoreBackend is "postgres" or "memory".
	StoreBackend string `toml:"store_backend"`

	SupabaseURL            string   `toml:"supabase_url"`
	SupabaseAnonKey        string   `toml:"supabase_anon_key"`
	SupabaseServiceRoleKey string   `toml:"supabase_service_role_key"`
	AuthCacheTTL           Duration `toml:"auth_cache_ttl"`

	ThriftAPIBaseURL   string   `toml:"thrift_api_base_url"`
	ThriftAPIKey       string   `toml:"thrift_api_key"`
	ThriftAPITimeout   Duration `toml:"thrift_api_timeout"`
	ThriftSyncInterval Duration `toml:"thrift_sync_interval"`
	SystemUserID       string   `toml:"system_user_id"`
	DefaultRadiusM     float64  `toml:"default_radius_m"`
	ImportQuestPoints  string   `toml:"import_quest_points"`

	RedisURL     string   `toml:"redis_url"`
	RankInterval Duration `toml:"rank_interval"`

	AllowedOrigins string `toml:"allowed_origins"`
	LogLevel       string `toml:"log_level"`
	LogFormat      string `toml:"log_format"`

	R2 utils.R2Config `toml:"-"`
}

func defaults() Config {
	return Config{
		Port:              "5200",
		StoreBackend:      BackendPostgres,
		AuthCacheTTL:      Duration(60 * time.Second),
		ThriftAPITimeout:  Duration(15 * time.Second),
		DefaultRadiusM:    50,
		ImportQuestPoints: "10",
		RankInterval:      Duration(time.Minute),
		AllowedOrigins:    "http://localhost:3000",
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// Load reads .env (if present), the TOML file named by CONFIG_FILE (if set),
// then lets the process environment override both.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("[CONFIG] no .env file found, reading environment variables directly")
	}

	var file []byte
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		file = b
	}
	return loadFrom(os.LookupEnv, file)
}

func loadFrom(lookup func(string) (string, bool), file []byte) (*Config, error) {
	cfg := defaults()
	if len(file) > 0 {
		if err := toml.Unmarshal(file, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	dur := func(key string, dst *Duration) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		if err := dst.UnmarshalText([]byte(v)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}

	str("PORT", &cfg.Port)
	str("DATABASE_URL", &cfg.DatabaseURL)
	str("STORE_BACKEND", &cfg.StoreBackend)
	str("SUPABASE_URL", &cfg.SupabaseURL)
	str("SUPABASE_ANON_KEY", &cfg.SupabaseAnonKey)
	str("SUPABASE_SERVICE_ROLE_KEY", &cfg.SupabaseServiceRoleKey)
	dur("AUTH_CACHE_TTL", &cfg.AuthCacheTTL)
	str("THRIFT_API_BASE_URL", &cfg.ThriftAPIBaseURL)
	str("THRIFT_API_KEY", &cfg.ThriftAPIKey)
	dur("THRIFT_API_TIMEOUT", &cfg.ThriftAPITimeout)
	dur("THRIFT_SYNC_INTERVAL", &cfg.ThriftSyncInterval)
	str("SYSTEM_USER_ID", &cfg.SystemUserID)
	str("IMPORT_QUEST_POINTS", &cfg.ImportQuestPoints)
	str("REDIS_URL", &cfg.RedisURL)
	dur("RANK_INTERVAL", &cfg.RankInterval)
	str("ALLOWED_ORIGINS", &cfg.AllowedOrigins)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FORMAT", &cfg.LogFormat)

	if v, ok := lookup("DEFAULT_RADIUS_M"); ok && strings.TrimSpace(v) != "" {
		r, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("DEFAULT_RADIUS_M: %w", err))
		} else {
			cfg.DefaultRadiusM = r
		}
	}

	str("CLOUDFLARE_ACCOUNT_ID", &cfg.R2.AccountID)
	str("R2_ACCESS_KEY_ID", &cfg.R2.AccessKeyID)
	str("R2_ACCESS_KEY_SECRET", &cfg.R2.AccessKeySecret)
	str("R2_BUCKET_NAME", &cfg.R2.Bucket)
	str("CDN_BASE_URL", &cfg.R2.CDNBaseURL)

	cfg.StoreBackend = strings.ToLower(cfg.StoreBackend)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return &cfg, nil
}

// Origins splits ALLOWED_ORIGINS into trimmed, non-empty entries.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Validate reports the settings the HTTP server cannot start without.
func (c *Config) Validate() error {
	var missing []string
	switch c.StoreBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendPostgres, BackendMemory, c.StoreBackend)
	}
	if c.SupabaseURL == "" {
		missing = append(missing, "SUPABASE_URL")
	}
	if c.SupabaseAnonKey == "" {
		missing = append(missing, "SUPABASE_ANON_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	if c.DefaultRadiusM <= 0 {
		return fmt.Errorf("DEFAULT_RADIUS_M must be positive")
	}
	if c.ImportEnabled() {
		if _, err := uuid.Parse(c.SystemUserID); err != nil {
			return fmt.Errorf("SYSTEM_USER_ID must be a uuid when THRIFT_API_BASE_URL is set")
		}
	}
	return nil
}

// ImportEnabled reports whether the thrift store API is configured.
func (c *Config) ImportEnabled() bool {
	return c.ThriftAPIBaseURL != ""
}
