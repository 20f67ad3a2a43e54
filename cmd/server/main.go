package main

import (
	"context"
	"database/sql"
	"log"
	"os"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/permgate/permgate/internal/config"
	"github.com/permgate/permgate/perms"
	"github.com/permgate/permgate/router"
)

func main() {
	if err := config.LoadConfig(""); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logLevel, err := zerolog.ParseLevel(config.App.LogLevel)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr).Level(logLevel).With().Timestamp().Logger()

	if config.App.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	pg, err := sql.Open("postgres", config.App.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pg.Close()

	if err := pg.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	var redisClient *redis.Client
	if config.App.RedisURL != "" {
		opts, err := redis.ParseURL(config.App.RedisURL)
		if err != nil {
			log.Fatalf("Invalid REDIS_URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warn().Err(err).Msg("redis unreachable, cache invalidation stays process-local")
			redisClient = nil
		}
	}

	r, engine := router.NewGinRouter(pg, redisClient, logger)

	// Flush the local projection cache when another process mutates the
	// rule table.
	if redisClient != nil {
		inv := perms.NewRedisInvalidator(redisClient, logger)
		go inv.Listen(context.Background(), engine.Invalidate)
	}

	addr := ":" + config.App.Port
	logger.Info().Str("addr", addr).Msg("permgate listening")
	if err := r.Run(addr); err != nil {
		log.Fatalf("Server exited: %v", err)
	}
}
