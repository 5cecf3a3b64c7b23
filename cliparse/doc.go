// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	_ = cliparse.LoadDotEnv(".env")
	cfg, err := cliparse.ParseFlags(os.Args[1:])

LoadDotEnv never overrides variables that are already set.

# CLI Flags and Environment

	-p                 PORT               3318
	-d                 DATABASE_URL       (required)
	-t                 DATABASE_TYPE      sqlite | postgres | mongo
	-mongo-db          MONGODB_DB         onevote
	-token-secret      VOTE_TOKEN_SECRET  (required, 16+ bytes)
	-token-ttl         VOTE_TOKEN_TTL     2m
	-vote-limit        VOTE_RATE_LIMIT    5
	-vote-window       VOTE_RATE_WINDOW   1h
	-admin-limit       ADMIN_RATE_LIMIT   60
	-admin-window      ADMIN_RATE_WINDOW  1m
	-max-votes-per-ip  MAX_VOTES_PER_IP   20
	-api-key           ADMIN_API_KEY      (empty disables the summary)
	-redis             REDIS_URL          (empty uses in-process limits)
	-timeout           REQUEST_TIMEOUT    5s
	                   LOG_LEVEL          info
	                   LOG_FORMAT         text | json

CLI flags take precedence over environment variables. Numeric and duration
settings must be positive.

# Example

	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	store, err := db.Open(ctx, db.Options{Type: cfg.DatabaseType, URL: cfg.DatabaseURL, MongoDB: cfg.MongoDB})
	// ...
	mux := router.NewRouter(deps, cfg)
*/
package cliparse
