// Package config holds the server's settings. Every setting is a command
// line flag that can also be given as a SHADOWTAG_* environment variable,
// optionally loaded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable
const EnvPrefix = "SHADOWTAG"

// Storage backends
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

// Similarity oracles
const (
	OracleLexical   = "lexical"
	OracleHTTP      = "http"
	OracleEmbedding = "embedding"
)

// Config holds server configuration
type Config struct {
	// HTTP
	Host            string
	Port            int
	PublicURL       string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// Similarity cache
	Storage       string
	RedisURL      string
	SimilarityTTL time.Duration

	// Similarity oracle
	Oracle             string
	OracleURL          string
	OracleTimeout      time.Duration
	OpenAIAPIKey       string
	EmbeddingModel     string
	EmbeddingURL       string
	ResolveConcurrency int
	ResolveTimeout     time.Duration

	// Game
	CatalogPath        string
	HazardCount        int
	DescriptionSeconds int
	GuessingSeconds    int
	MaxGuessCount      int

	// Room lifecycle
	RoomIdleTimeout time.Duration
	ReapInterval    time.Duration
}

// Default returns the configuration used when nothing is set
func Default() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               8080,
		AllowedOrigins:     []string{"*"},
		ShutdownTimeout:    30 * time.Second,
		LogLevel:           "info",
		LogFormat:          "json",
		Storage:            StorageMemory,
		RedisURL:           "redis://localhost:6379",
		SimilarityTTL:      7 * 24 * time.Hour,
		Oracle:             OracleLexical,
		OracleTimeout:      5 * time.Second,
		EmbeddingModel:     "text-embedding-3-small",
		ResolveConcurrency: 8,
		ResolveTimeout:     10 * time.Second,
		HazardCount:        1,
		DescriptionSeconds: 120,
		GuessingSeconds:    120,
		MaxGuessCount:      4,
		RoomIdleTimeout:    30 * time.Minute,
		ReapInterval:       15 * time.Minute,
	}
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("invalid log format %q: must be json or text", c.LogFormat)
	}

	switch c.Storage {
	case StorageMemory:
	case StorageRedis:
		if c.RedisURL == "" {
			return errors.New("--redis-url is required when --storage=redis")
		}
	default:
		return fmt.Errorf("invalid storage %q: must be %s or %s", c.Storage, StorageMemory, StorageRedis)
	}

	switch c.Oracle {
	case OracleLexical:
	case OracleHTTP:
		if c.OracleURL == "" {
			return errors.New("--oracle-url is required when --oracle=http")
		}
	case OracleEmbedding:
		if c.OpenAIAPIKey == "" {
			return errors.New("--openai-api-key is required when --oracle=embedding")
		}
	default:
		return fmt.Errorf("invalid oracle %q: must be %s, %s or %s", c.Oracle, OracleLexical, OracleHTTP, OracleEmbedding)
	}

	if c.ResolveConcurrency < 1 {
		return fmt.Errorf("invalid resolve concurrency: %d", c.ResolveConcurrency)
	}
	if c.HazardCount < 0 {
		return fmt.Errorf("invalid hazard count: %d", c.HazardCount)
	}
	if c.DescriptionSeconds < 1 || c.GuessingSeconds < 1 {
		return errors.New("phase durations must be at least one second")
	}
	if c.MaxGuessCount < 1 {
		return fmt.Errorf("invalid max guess count: %d", c.MaxGuessCount)
	}
	for name, d := range map[string]time.Duration{
		"oracle-timeout":    c.OracleTimeout,
		"resolve-timeout":   c.ResolveTimeout,
		"room-idle-timeout": c.RoomIdleTimeout,
		"reap-interval":     c.ReapInterval,
		"shutdown-timeout":  c.ShutdownTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("--%s must be positive", name)
		}
	}
	return nil
}

// Level parses the configured log level
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return level, nil
}

// NewLogger builds the process logger
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := c.Level()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// RegisterFlags adds every setting to fs, defaulting to cfg's current values
func RegisterFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.Host, "host", "b", cfg.Host, "address to bind to (env: SHADOWTAG_HOST)")
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "port to listen on (env: SHADOWTAG_PORT)")
	fs.StringVar(&cfg.PublicURL, "public-url", cfg.PublicURL, "base URL used in invite links, derived from requests if empty (env: SHADOWTAG_PUBLIC_URL)")
	fs.StringSliceVar(&cfg.AllowedOrigins, "allowed-origins", cfg.AllowedOrigins, "origins allowed to call the API (env: SHADOWTAG_ALLOWED_ORIGINS)")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "time allowed for graceful shutdown (env: SHADOWTAG_SHUTDOWN_TIMEOUT)")

	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error (env: SHADOWTAG_LOG_LEVEL)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "json or text (env: SHADOWTAG_LOG_FORMAT)")

	fs.StringVar(&cfg.Storage, "storage", cfg.Storage, "similarity cache backend: memory or redis (env: SHADOWTAG_STORAGE)")
	fs.StringVar(&cfg.RedisURL, "redis-url", cfg.RedisURL, "redis connection URL (env: SHADOWTAG_REDIS_URL)")
	fs.DurationVar(&cfg.SimilarityTTL, "similarity-ttl", cfg.SimilarityTTL, "how long cached similarity scores are kept in redis (env: SHADOWTAG_SIMILARITY_TTL)")

	fs.StringVar(&cfg.Oracle, "oracle", cfg.Oracle, "similarity oracle: lexical, http or embedding (env: SHADOWTAG_ORACLE)")
	fs.StringVar(&cfg.OracleURL, "oracle-url", cfg.OracleURL, "base URL of the similarity service (env: SHADOWTAG_ORACLE_URL)")
	fs.DurationVar(&cfg.OracleTimeout, "oracle-timeout", cfg.OracleTimeout, "timeout for one similarity request (env: SHADOWTAG_ORACLE_TIMEOUT)")
	fs.StringVar(&cfg.OpenAIAPIKey, "openai-api-key", cfg.OpenAIAPIKey, "API key for the embedding oracle (env: SHADOWTAG_OPENAI_API_KEY)")
	fs.StringVar(&cfg.EmbeddingModel, "embedding-model", cfg.EmbeddingModel, "embedding model name (env: SHADOWTAG_EMBEDDING_MODEL)")
	fs.StringVar(&cfg.EmbeddingURL, "embedding-url", cfg.EmbeddingURL, "embeddings endpoint, OpenAI if empty (env: SHADOWTAG_EMBEDDING_URL)")
	fs.IntVar(&cfg.ResolveConcurrency, "resolve-concurrency", cfg.ResolveConcurrency, "parallel similarity requests per guess (env: SHADOWTAG_RESOLVE_CONCURRENCY)")
	fs.DurationVar(&cfg.ResolveTimeout, "resolve-timeout", cfg.ResolveTimeout, "time allowed to resolve one guess (env: SHADOWTAG_RESOLVE_TIMEOUT)")

	fs.StringVar(&cfg.CatalogPath, "catalog", cfg.CatalogPath, "file of image URLs, one per line; built-in set if empty (env: SHADOWTAG_CATALOG)")
	fs.IntVar(&cfg.HazardCount, "hazards", cfg.HazardCount, "red hazard images per board (env: SHADOWTAG_HAZARDS)")
	fs.IntVar(&cfg.DescriptionSeconds, "description-seconds", cfg.DescriptionSeconds, "length of the description phase (env: SHADOWTAG_DESCRIPTION_SECONDS)")
	fs.IntVar(&cfg.GuessingSeconds, "guessing-seconds", cfg.GuessingSeconds, "length of the guessing phase (env: SHADOWTAG_GUESSING_SECONDS)")
	fs.IntVar(&cfg.MaxGuessCount, "max-guess-count", cfg.MaxGuessCount, "largest count a codebreaker may claim (env: SHADOWTAG_MAX_GUESS_COUNT)")

	fs.DurationVar(&cfg.RoomIdleTimeout, "room-idle-timeout", cfg.RoomIdleTimeout, "time before rooms with no connections are closed (env: SHADOWTAG_ROOM_IDLE_TIMEOUT)")
	fs.DurationVar(&cfg.ReapInterval, "reap-interval", cfg.ReapInterval, "how often idle rooms are checked (env: SHADOWTAG_REAP_INTERVAL)")
}

// ApplyEnv fills every flag not given on the command line from its
// SHADOWTAG_* environment variable
func ApplyEnv(fs *pflag.FlagSet) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			if err := fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name))); err != nil {
				errs = append(errs, fmt.Errorf("%s_%s: %w", EnvPrefix, strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_")), err))
			}
		}
	})
	return errors.Join(errs...)
}

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}
