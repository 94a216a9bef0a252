package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port          string   `mapstructure:"PORT"`
	Env           string   `mapstructure:"ENV"`
	DatabaseURL   string   `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32    `mapstructure:"DB_MIN_CONNS"`
	MigrationsDir string   `mapstructure:"MIGRATIONS_DIR"`
	JWTSecret     string   `mapstructure:"JWT_SECRET"`
	JWTTTLMinutes int      `mapstructure:"JWT_TTL_MINUTES"`
	CORSOrigins   []string `mapstructure:"CORS_ORIGINS"`

	// Generative AI collaborator (assistant features are disabled when the
	// key is empty).
	AIAPIKey   string `mapstructure:"AI_API_KEY"`
	AIEndpoint string `mapstructure:"AI_ENDPOINT"`
	AIModel    string `mapstructure:"AI_MODEL"`

	// Speech collaborator endpoints.
	SpeechAPIKey        string `mapstructure:"SPEECH_API_KEY"`
	SpeechTranscribeURL string `mapstructure:"SPEECH_TRANSCRIBE_URL"`
	SpeechSynthesizeURL string `mapstructure:"SPEECH_SYNTHESIZE_URL"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("MIGRATIONS_DIR", "migrations")
	v.SetDefault("JWT_TTL_MINUTES", 720)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("AI_ENDPOINT", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("AI_MODEL", "gemini-1.5-flash")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("MIGRATIONS_DIR")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("JWT_TTL_MINUTES")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("AI_API_KEY")
	v.BindEnv("AI_ENDPOINT")
	v.BindEnv("AI_MODEL")
	v.BindEnv("SPEECH_API_KEY")
	v.BindEnv("SPEECH_TRANSCRIBE_URL")
	v.BindEnv("SPEECH_SYNTHESIZE_URL")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() && cfg.JWTSecret == "" {
		cfg.JWTSecret = "caresync-dev-secret"
		log.Println("WARNING: JWT_SECRET not set; using an insecure development secret.")
		log.Println("WARNING: Set ENV=production and a real JWT_SECRET before deploying.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// AssistantEnabled reports whether the generative AI collaborator is
// configured.
func (c *Config) AssistantEnabled() bool {
	return c.AIAPIKey != ""
}

// Validate checks that the configuration is safe to run. Outside development
// a real JWT secret must be configured so that issued tokens cannot be
// forged.
func (c *Config) Validate() error {
	if !c.IsDev() {
		if c.JWTSecret == "" || c.JWTSecret == "caresync-dev-secret" {
			return fmt.Errorf("JWT_SECRET must be set to a non-default value when ENV=%q", c.Env)
		}
		if len(c.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 bytes, got %d", len(c.JWTSecret))
		}
	}
	if c.JWTTTLMinutes <= 0 {
		return fmt.Errorf("JWT_TTL_MINUTES must be positive, got %d", c.JWTTTLMinutes)
	}
	if c.DBMaxConns < c.DBMinConns {
		return fmt.Errorf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", c.DBMaxConns, c.DBMinConns)
	}
	return nil
}
