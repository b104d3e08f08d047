// Package config loads process-wide configuration from environment
// variables, an optional .env file, and an optional config file, with
// typed defaults for everything the pipeline needs to boot.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all ambient process configuration. This is distinct
// from the database-backed Settings store (internal/settings): Config
// is what the process needs to reach the database and its providers
// in the first place.
type Config struct {
	App      App      `mapstructure:"app"`
	Database Database `mapstructure:"database"`
	AI       AI       `mapstructure:"ai"`
	Pipeline Pipeline `mapstructure:"pipeline"`
	Email    Email    `mapstructure:"email"`
	Logging  Logging  `mapstructure:"logging"`
}

// App holds general application configuration.
type App struct {
	LogLevel string `mapstructure:"log_level"`
}

// Database holds the shared Postgres connection configuration.
type Database struct {
	URL             string `mapstructure:"url"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
}

// AI holds LLM provider configuration.
type AI struct {
	Gemini     GeminiConfig     `mapstructure:"gemini"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	ElevenLabs ElevenLabsConfig `mapstructure:"elevenlabs"`
}

// ElevenLabsConfig configures the speech-to-text provider used to
// transcribe audio (podcast) episodes; YouTube episodes use yt-dlp
// captions instead and never call this provider.
type ElevenLabsConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// GeminiConfig holds Google Gemini configuration, used for scoring,
// arc extraction, newsletter selection, and embeddings.
type GeminiConfig struct {
	APIKey         string `mapstructure:"api_key"`
	ScoringModel   string `mapstructure:"scoring_model"`
	EmbeddingModel string `mapstructure:"embedding_model"`
}

// OpenAIConfig is carried for parity with the source system's
// environment variables; nothing in this module calls it directly.
type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// Pipeline holds process-level defaults for the orchestrator (worker
// count, grace period). A pipeline.max_workers Settings row, when
// present, overrides MaxWorkers for a run.
type Pipeline struct {
	MaxWorkers           int `mapstructure:"max_workers"`
	CancelGraceSeconds   int `mapstructure:"cancel_grace_seconds"`
}

// Logging holds logger configuration.
type Logging struct {
	Level string `mapstructure:"level"`
}

// Email holds the newsletter-issue delivery configuration for
// "newsletter send". This config is consumed by net/smtp directly in
// internal/delivery, one of this module's stdlib-justified exceptions
// (see DESIGN.md).
type Email struct {
	SMTP        SMTPConfig `mapstructure:"smtp"`
	FromAddress string     `mapstructure:"from_address"`
	FromName    string     `mapstructure:"from_name"`
	ToAddresses []string   `mapstructure:"to_addresses"`
}

// SMTPConfig holds SMTP relay configuration.
type SMTPConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
}

var globalConfig *Config

// Load reads configuration from (in ascending precedence) defaults,
// an optional config file, a .env file, and the environment, failing
// fast if a required environment variable is missing or empty, per
// the process's exit-code-2 environment validation contract.
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "warning: error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("pipeline")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateRequiredEnv(); err != nil {
		return nil, err
	}
	cfg.Database.URL = resolveDatabaseURL()

	globalConfig = cfg
	return cfg, nil
}

// Get returns the global configuration, loading it if necessary.
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("failed to load configuration: %v", err))
		}
		return cfg
	}
	return globalConfig
}

// Reset clears the cached global configuration; used by tests.
func Reset() {
	globalConfig = nil
}

func setDefaults() {
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("ai.gemini.scoring_model", "gemini-flash-lite-latest")
	viper.SetDefault("ai.gemini.embedding_model", "gemini-embedding-001")
	viper.SetDefault("ai.elevenlabs.model", "scribe_v1")
	viper.SetDefault("pipeline.max_workers", 4)
	viper.SetDefault("pipeline.cancel_grace_seconds", 30)
	viper.SetDefault("email.smtp.port", 587)
	viper.SetDefault("email.smtp.tls_enabled", true)
	viper.SetDefault("logging.level", "info")
}

func bindEnvironmentVariables() {
	bindEnvKeys("ai.gemini.api_key", []string{"GEMINI_API_KEY", "GOOGLE_GEMINI_API_KEY", "GOOGLE_AI_API_KEY"})
	bindEnvKeys("ai.openai.api_key", []string{"OPENAI_API_KEY"})
	bindEnvKeys("ai.elevenlabs.api_key", []string{"ELEVENLABS_API_KEY"})
	bindEnvKeys("app.log_level", []string{"LOG_LEVEL"})
	bindEnvKeys("email.smtp.host", []string{"SMTP_HOST"})
	bindEnvKeys("email.smtp.username", []string{"SMTP_USERNAME"})
	bindEnvKeys("email.smtp.password", []string{"SMTP_PASSWORD"})
	bindEnvKeys("email.from_address", []string{"NEWSLETTER_FROM_ADDRESS"})
}

func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// requiredEnvVars are fatal at process start if missing or empty, per
// the error-handling design's "configuration missing" kind (exit 2).
var requiredEnvVars = []string{
	"DATABASE_URL_OR_SUPABASE",
	"OPENAI_API_KEY",
	"ELEVENLABS_API_KEY",
	"GITHUB_TOKEN",
	"GITHUB_REPOSITORY",
}

// validateRequiredEnv checks every required environment variable is
// present, treating DATABASE_URL and the SUPABASE_URL/SUPABASE_PASSWORD
// pair as interchangeable satisfiers of the same requirement.
func validateRequiredEnv() error {
	var missing []string
	for _, name := range requiredEnvVars {
		switch name {
		case "DATABASE_URL_OR_SUPABASE":
			if os.Getenv("DATABASE_URL") == "" && !(os.Getenv("SUPABASE_URL") != "" && os.Getenv("SUPABASE_PASSWORD") != "") {
				missing = append(missing, "DATABASE_URL (or SUPABASE_URL+SUPABASE_PASSWORD)")
			}
		default:
			if os.Getenv(name) == "" {
				missing = append(missing, name)
			}
		}
	}
	if repo := os.Getenv("GITHUB_REPOSITORY"); repo != "" && !strings.Contains(repo, "/") {
		missing = append(missing, "GITHUB_REPOSITORY (must be owner/repo)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// resolveDatabaseURL returns DATABASE_URL verbatim if set, otherwise
// synthesizes a Postgres connection string from SUPABASE_URL and
// SUPABASE_PASSWORD.
func resolveDatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	supabaseURL := os.Getenv("SUPABASE_URL")
	password := os.Getenv("SUPABASE_PASSWORD")
	if supabaseURL == "" || password == "" {
		return ""
	}
	ref := strings.TrimPrefix(supabaseURL, "https://")
	ref = strings.TrimSuffix(ref, ".supabase.co")
	ref = strings.Split(ref, ".")[0]
	return fmt.Sprintf("postgres://postgres:%s@db.%s.supabase.co:5432/postgres?sslmode=require", password, ref)
}
