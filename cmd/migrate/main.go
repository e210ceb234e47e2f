package main

import (
	"context"
	"flag"
	"os"
	"time"

	"garagepro/internal/logger"
	"garagepro/internal/repository"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	logger := logger.New()

	dsn := flag.String("dsn", os.Getenv("DATABASE_URL"), "Postgres connection string")
	direction := flag.String("direction", "up", "migration direction: up, down or status")
	flag.Parse()

	if *dsn == "" {
		logger.Fatal().Msg("DATABASE_URL or -dsn is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := repository.NewPool(ctx, *dsn, os.Getenv("ENV") == "development")
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	if err := repository.Migrate(ctx, pool, *direction); err != nil {
		pool.Close()
		logger.Fatal().Err(err).Str("direction", *direction).Msg("Migration failed")
	}
	logger.Info().Str("direction", *direction).Msg("Migrations complete")
}
