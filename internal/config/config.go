// Package config loads runtime settings from the environment (and an
// optional .env file) through viper.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/petermazzocco/slidedeck-api/internal/service"
)

const (
	AuthModeJWT    = "jwt"
	AuthModeRemote = "remote"
)

type Config struct {
	Port string

	DatabaseURL      string
	RowLevelSecurity bool

	SupabaseURL        string
	SupabaseServiceKey string
	SupabaseAnonKey    string
	SupabaseJWTSecret  string
	AuthMode           string

	StorageBucket     string
	S3Endpoint        string
	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAITimeout time.Duration
	Limits        service.Limits

	AllowedOrigins     []string
	RateLimitPerMinute int
	RequestTimeout     time.Duration
	SweepInterval      time.Duration
	MetricsEnabled     bool

	LogLevel  string
	LogFormat string
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	limits := service.DefaultLimits()

	v.SetDefault("port", "8000")
	v.SetDefault("db_row_level_security", false)
	v.SetDefault("auth_mode", AuthModeJWT)
	v.SetDefault("storage_bucket", "slidedecks")
	v.SetDefault("s3_region", "auto")
	v.SetDefault("openai_timeout", 60*time.Second)
	v.SetDefault("summary_model", limits.SummaryModel)
	v.SetDefault("chat_model", limits.ChatModel)
	v.SetDefault("summary_max_tokens", limits.SummaryMaxTokens)
	v.SetDefault("regenerate_max_tokens", limits.RegenerateMaxTokens)
	v.SetDefault("chat_max_tokens", limits.ChatMaxTokens)
	v.SetDefault("slide_image_max_dimension", limits.ImageMaxDimension)
	v.SetDefault("slide_image_max_pixels", limits.ImageMaxPixels)
	v.SetDefault("cors_allowed_origins", "http://localhost:5173")
	v.SetDefault("rate_limit_per_minute", 60)
	v.SetDefault("request_timeout", 90*time.Second)
	v.SetDefault("sweep_interval", 10*time.Minute)
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
}

// NewViper returns a viper instance reading upper-case environment
// variables, e.g. the key "openai_api_key" is read from OPENAI_API_KEY.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port: v.GetString("port"),

		DatabaseURL:      v.GetString("database_url"),
		RowLevelSecurity: v.GetBool("db_row_level_security"),

		SupabaseURL:        strings.TrimRight(v.GetString("supabase_url"), "/"),
		SupabaseServiceKey: v.GetString("supabase_service_key"),
		SupabaseAnonKey:    v.GetString("supabase_anon_key"),
		SupabaseJWTSecret:  v.GetString("supabase_jwt_secret"),
		AuthMode:           strings.ToLower(v.GetString("auth_mode")),

		StorageBucket:     v.GetString("storage_bucket"),
		S3Endpoint:        v.GetString("s3_endpoint"),
		S3Region:          v.GetString("s3_region"),
		S3AccessKeyID:     v.GetString("s3_access_key_id"),
		S3SecretAccessKey: v.GetString("s3_secret_access_key"),

		OpenAIAPIKey:  v.GetString("openai_api_key"),
		OpenAIBaseURL: v.GetString("openai_base_url"),
		OpenAITimeout: v.GetDuration("openai_timeout"),
		Limits: service.Limits{
			SummaryModel:        v.GetString("summary_model"),
			ChatModel:           v.GetString("chat_model"),
			SummaryMaxTokens:    v.GetInt("summary_max_tokens"),
			RegenerateMaxTokens: v.GetInt("regenerate_max_tokens"),
			ChatMaxTokens:       v.GetInt("chat_max_tokens"),
			ImageMaxDimension:   v.GetInt("slide_image_max_dimension"),
			ImageMaxPixels:      v.GetInt("slide_image_max_pixels"),
		},

		AllowedOrigins:     splitList(v.GetString("cors_allowed_origins")),
		RateLimitPerMinute: v.GetInt("rate_limit_per_minute"),
		RequestTimeout:     v.GetDuration("request_timeout"),
		SweepInterval:      v.GetDuration("sweep_interval"),
		MetricsEnabled:     v.GetBool("metrics_enabled"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
	}
	if cfg.S3Endpoint == "" && cfg.SupabaseURL != "" {
		cfg.S3Endpoint = cfg.SupabaseURL + "/storage/v1/s3"
	}
	return cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.OpenAIAPIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.StorageBucket == "" {
		missing = append(missing, "STORAGE_BUCKET")
	}
	switch c.AuthMode {
	case AuthModeJWT:
		if c.SupabaseJWTSecret == "" {
			missing = append(missing, "SUPABASE_JWT_SECRET")
		}
	case AuthModeRemote:
		if c.SupabaseURL == "" {
			missing = append(missing, "SUPABASE_URL")
		}
		if c.IdentityAPIKey() == "" {
			missing = append(missing, "SUPABASE_ANON_KEY")
		}
	default:
		return errors.Errorf("unknown AUTH_MODE %q, want %q or %q", c.AuthMode, AuthModeJWT, AuthModeRemote)
	}
	if len(missing) > 0 {
		return errors.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	for name, n := range map[string]int{
		"SUMMARY_MAX_TOKENS":    c.Limits.SummaryMaxTokens,
		"REGENERATE_MAX_TOKENS": c.Limits.RegenerateMaxTokens,
		"CHAT_MAX_TOKENS":       c.Limits.ChatMaxTokens,
	} {
		if n <= 0 {
			return errors.Errorf("%s must be positive, got %d", name, n)
		}
	}
	return nil
}

// IdentityAPIKey is the key sent to the identity service; the anonymous key
// when set, otherwise the service key.
func (c *Config) IdentityAPIKey() string {
	if c.SupabaseAnonKey != "" {
		return c.SupabaseAnonKey
	}
	return c.SupabaseServiceKey
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
