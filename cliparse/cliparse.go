package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const minSecretLength = 16

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string
	MongoDB      string

	TokenSecret string
	TokenTTL    time.Duration

	VoteRateLimit   int
	VoteRateWindow  time.Duration
	AdminRateLimit  int
	AdminRateWindow time.Duration
	MaxVotesPerIP   int

	AdminAPIKey    string
	RedisURL       string
	RequestTimeout time.Duration

	LogLevel  string
	LogFormat string
}

// LoadDotEnv loads variables from a .env file if it exists.
// Variables already set in the environment win.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ParseFlags validates flags and falls back to environment variables
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("onevote", flag.ContinueOnError)

	// Network and storage (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL or SQLite path")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite, postgres or mongo)")
	fs.StringVar(&cfg.MongoDB, "mongo-db", "", "MongoDB database name")
	fs.StringVar(&cfg.RedisURL, "redis", "", "Redis URL for shared rate limiting")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.TokenSecret, "token-secret", "", "Vote token signing secret (prefer env)")
	fs.StringVar(&cfg.AdminAPIKey, "api-key", "", "Admin API key (prefer env)")

	// Limits
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", 0, "Vote token lifetime")
	fs.IntVar(&cfg.VoteRateLimit, "vote-limit", 0, "Vote submissions per IP per window")
	fs.DurationVar(&cfg.VoteRateWindow, "vote-window", 0, "Vote rate limit window")
	fs.IntVar(&cfg.AdminRateLimit, "admin-limit", 0, "Admin requests per IP per window")
	fs.DurationVar(&cfg.AdminRateWindow, "admin-window", 0, "Admin rate limit window")
	fs.IntVar(&cfg.MaxVotesPerIP, "max-votes-per-ip", 0, "Accepted votes allowed per IP")
	fs.DurationVar(&cfg.RequestTimeout, "timeout", 0, "Per-request timeout")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	var err error
	if cfg.Port, err = intSetting(cfg.Port, "PORT", 3318); err != nil {
		return Config{}, err
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	cfg.DatabaseType = strings.ToLower(cfg.DatabaseType)
	switch cfg.DatabaseType {
	case "sqlite", "postgres", "mongo":
	default:
		return Config{}, fmt.Errorf("unsupported DATABASE_TYPE %q", cfg.DatabaseType)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.MongoDB == "" {
		cfg.MongoDB = os.Getenv("MONGODB_DB")
		if cfg.MongoDB == "" {
			cfg.MongoDB = "onevote"
		}
	}

	// Secrets - MUST be provided
	if cfg.TokenSecret == "" {
		cfg.TokenSecret = os.Getenv("VOTE_TOKEN_SECRET")
	}
	if cfg.TokenSecret == "" {
		return Config{}, errors.New("VOTE_TOKEN_SECRET required")
	}
	if len(cfg.TokenSecret) < minSecretLength {
		return Config{}, fmt.Errorf("VOTE_TOKEN_SECRET must be at least %d bytes", minSecretLength)
	}

	// Optional - summary endpoint stays locked without it
	if cfg.AdminAPIKey == "" {
		cfg.AdminAPIKey = os.Getenv("ADMIN_API_KEY")
	}
	if cfg.RedisURL == "" {
		cfg.RedisURL = os.Getenv("REDIS_URL")
	}

	if cfg.TokenTTL, err = durationSetting(cfg.TokenTTL, "VOTE_TOKEN_TTL", 2*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.VoteRateLimit, err = intSetting(cfg.VoteRateLimit, "VOTE_RATE_LIMIT", 5); err != nil {
		return Config{}, err
	}
	if cfg.VoteRateWindow, err = durationSetting(cfg.VoteRateWindow, "VOTE_RATE_WINDOW", time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.AdminRateLimit, err = intSetting(cfg.AdminRateLimit, "ADMIN_RATE_LIMIT", 60); err != nil {
		return Config{}, err
	}
	if cfg.AdminRateWindow, err = durationSetting(cfg.AdminRateWindow, "ADMIN_RATE_WINDOW", time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.MaxVotesPerIP, err = intSetting(cfg.MaxVotesPerIP, "MAX_VOTES_PER_IP", 20); err != nil {
		return Config{}, err
	}
	if cfg.RequestTimeout, err = durationSetting(cfg.RequestTimeout, "REQUEST_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	cfg.LogFormat = strings.ToLower(os.Getenv("LOG_FORMAT"))
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}

	return cfg, nil
}

// intSetting keeps a positive flag value, else reads env, else uses def
func intSetting(flagVal int, env string, def int) (int, error) {
	if flagVal > 0 {
		return flagVal, nil
	}
	s := os.Getenv(env)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s env variable", env)
	}
	return v, nil
}

func durationSetting(flagVal time.Duration, env string, def time.Duration) (time.Duration, error) {
	if flagVal > 0 {
		return flagVal, nil
	}
	s := os.Getenv(env)
	if s == "" {
		return def, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s env variable", env)
	}
	return v, nil
}
