package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"avastore-backend/internal/common/config"
	"avastore-backend/internal/common/logger"
)

const (
	connectAttempts = 5
	connectBackoff  = time.Second
	pingTimeout     = 5 * time.Second
)

// Client владеет пулом *sql.DB, репозитории получают его через DB()
type Client struct {
	db *sql.DB
}

// NewClient открывает пул и ждет, пока база ответит; в docker-compose
// postgres часто поднимается позже приложения
func NewClient(ctx context.Context, cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := ping(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Int("max_open_conns", cfg.MaxOpenConns).
		Msg("PostgreSQL client initialized")

	return &Client{db: db}, nil
}

func ping(ctx context.Context, db *sql.DB) error {
	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err = db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}

		logger.Warn().Err(err).Int("attempt", attempt).Msg("PostgreSQL is not ready yet")
		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to ping database: %w", ctx.Err())
		case <-time.After(time.Duration(attempt) * connectBackoff):
		}
	}
	return fmt.Errorf("failed to ping database after %d attempts: %w", connectAttempts, err)
}

func (c *Client) DB() *sql.DB {
	return c.db
}

func (c *Client) Close() error {
	return c.db.Close()
}

// HealthCheck для /ready
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Client) Migrate(ctx context.Context) error {
	return Migrate(ctx, c.db)
}
