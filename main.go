package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/danielhkuo/onevote/analytics"
	"github.com/danielhkuo/onevote/auth"
	"github.com/danielhkuo/onevote/cliparse"
	"github.com/danielhkuo/onevote/db"
	"github.com/danielhkuo/onevote/middleware"
	"github.com/danielhkuo/onevote/ratelimit"
	"github.com/danielhkuo/onevote/router"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

// Client event throttle: sustained rate and burst per IP
const (
	eventRatePerSecond = 2
	eventBurst         = 20
)

const janitorInterval = 5 * time.Minute

func main() {
	var err error

	if err := cliparse.LoadDotEnv(""); err != nil {
		slog.Error("Error loading .env", "error", err)
		os.Exit(1)
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to the vote store
	openCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	store, err := db.Open(openCtx, db.Options{
		Type:    cfg.DatabaseType,
		URL:     cfg.DatabaseURL,
		MongoDB: cfg.MongoDB,
	})
	cancel()
	if err != nil {
		slog.Error("database connection failed", "type", cfg.DatabaseType, "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Vote store ready", "type", cfg.DatabaseType)

	clock := clockwork.NewRealClock()

	issuer, err := auth.NewTokenIssuer([]byte(cfg.TokenSecret), cfg.TokenTTL, clock)
	if err != nil {
		slog.Error("token issuer setup failed", "error", err)
		os.Exit(1)
	}

	voteLimiter, adminLimiter, closeLimiters, err := newLimiters(ctx, cfg, clock)
	if err != nil {
		slog.Error("rate limiter setup failed", "error", err)
		os.Exit(1)
	}
	defer closeLimiters()

	eventLimiter := ratelimit.NewBucket(eventRatePerSecond, eventBurst, ratelimit.WithClock(clock))
	eventLimiter.StartJanitor(ctx, janitorInterval)

	events := analytics.NewLogger(store, analytics.WithClock(clock))

	// Create router
	mux := router.NewRouter(router.Deps{
		Store:        store,
		Issuer:       issuer,
		VoteLimiter:  voteLimiter,
		AdminLimiter: adminLimiter,
		EventLimiter: eventLimiter,
		Events:       events,
		Clock:        clock,
	}, cfg)

	// Create server
	server := http.Server{
		Handler:           middleware.CORS(mux),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		// Wait for Ctrl-C signal
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown failed", "error", err)
		}
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := events.Close(flushCtx); err != nil {
		slog.Warn("analytics events not flushed", "error", err, "dropped", events.Dropped())
	}
}

// newLimiters returns Redis-backed limiters when REDIS_URL is set, and
// in-process sliding windows otherwise.
func newLimiters(ctx context.Context, cfg cliparse.Config, clock clockwork.Clock) (vote, admin ratelimit.Limiter, closeFn func(), err error) {
	if cfg.RedisURL == "" {
		v := ratelimit.NewWindow(cfg.VoteRateLimit, cfg.VoteRateWindow, clock)
		a := ratelimit.NewWindow(cfg.AdminRateLimit, cfg.AdminRateWindow, clock)
		v.StartJanitor(ctx, janitorInterval)
		a.StartJanitor(ctx, janitorInterval)
		return v, a, func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, err
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		// Limiters fail open, so an unreachable Redis is not fatal
		slog.Warn("redis ping failed", "error", err)
	}
	slog.Info("Using Redis rate limiting", "addr", opts.Addr)

	v := ratelimit.NewRedisWindow(rdb, cfg.VoteRateLimit, cfg.VoteRateWindow, clock, ratelimit.WithKeyPrefix("onevote:ratelimit:vote"))
	a := ratelimit.NewRedisWindow(rdb, cfg.AdminRateLimit, cfg.AdminRateWindow, clock, ratelimit.WithKeyPrefix("onevote:ratelimit:admin"))
	return v, a, func() { rdb.Close() }, nil
}

func newLogger(cfg cliparse.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
