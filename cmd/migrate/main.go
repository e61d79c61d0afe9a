// migrate применяет схему базы без запуска HTTP сервера
package main

import (
	"context"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"avastore-backend/internal/common/config"
	"avastore-backend/internal/common/logger"
	"avastore-backend/internal/platform/postgres"
)

func main() {
	logger.Init("avastore-migrate", os.Getenv("DEBUG") == "true")

	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg(".env file not found, using process environment")
	}

	// только секция Postgres: токены бота и JWT здесь не нужны
	var cfg config.PostgresConfig
	if err := env.Parse(&cfg); err != nil {
		logger.Fatal().Err(err).Msg("Failed to parse postgres config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client, err := postgres.NewClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer client.Close()

	if err := client.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Migration failed")
	}

	logger.Info().
		Str("host", cfg.Host).
		Str("database", cfg.Database).
		Msg("Migrations applied")
}
