package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Port   int    `env:"PORT" envDefault:"8080"`
		Origin string `env:"ORIGIN" envDefault:"http://localhost:5173"`
	}

	Storage struct {
		// postgres | memory
		Driver string `env:"STORAGE_DRIVER" envDefault:"postgres"`
	}

	Postgres PostgresConfig

	Redis struct {
		Enabled  bool   `env:"REDIS_ENABLED" envDefault:"true"`
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int    `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Telegram struct {
		BotToken  string `env:"TELEGRAM_BOT_TOKEN,required"`
		WebAppURL string `env:"TELEGRAM_WEBAPP_URL" envDefault:"http://localhost:5173"`
		// Время жизни init data; 0 отключает проверку auth_date
		InitDataTTL time.Duration `env:"INIT_DATA_TTL" envDefault:"24h"`
		Polling     bool          `env:"TELEGRAM_BOT_POLLING" envDefault:"false"`
		AdminIDs    []string      `env:"ADMIN_IDS" envSeparator:","`
	}

	Auth struct {
		JWTSecret string        `env:"JWT_SECRET,required"`
		TokenTTL  time.Duration `env:"JWT_TTL" envDefault:"720h"`
	}

	Orders struct {
		TxTimeout            time.Duration `env:"ORDER_TX_TIMEOUT" envDefault:"5s"`
		LockTTL              time.Duration `env:"ORDER_LOCK_TTL" envDefault:"10s"`
		DefaultPaymentMethod string        `env:"ORDER_DEFAULT_PAYMENT_METHOD" envDefault:"cash"`
	}

	Cache struct {
		ProductTTL time.Duration `env:"CACHE_PRODUCT_TTL" envDefault:"5m"`
	}

	Events struct {
		// redis | kafka | none
		Driver       string   `env:"EVENTS_DRIVER" envDefault:"redis"`
		StreamKey    string   `env:"EVENTS_STREAM_KEY" envDefault:"orders:events"`
		KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
		KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"order-events"`
		Consume      bool     `env:"EVENTS_CONSUME" envDefault:"true"`
	}
}

type PostgresConfig struct {
	Host            string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port            int           `env:"POSTGRES_PORT" envDefault:"5432"`
	User            string        `env:"POSTGRES_USER" envDefault:"postgres"`
	Password        string        `env:"POSTGRES_PASSWORD" envDefault:""`
	Database        string        `env:"POSTGRES_DB" envDefault:"avastore"`
	SSLMode         string        `env:"POSTGRES_SSLMODE" envDefault:"disable"`
	MaxOpenConns    int           `env:"POSTGRES_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"POSTGRES_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"POSTGRES_CONN_MAX_LIFETIME" envDefault:"5m"`
	AutoMigrate     bool          `env:"DB_AUTO_MIGRATE" envDefault:"false"`
}

// GetDSN собирает строку подключения для lib/pq
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// RedisAddr возвращает адрес redis в формате host:port
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// AdminTelegramIDs разбирает ADMIN_IDS, пропуская некорректные значения
func (c *Config) AdminTelegramIDs() []int64 {
	ids := make([]int64, 0, len(c.Telegram.AdminIDs))
	for _, raw := range c.Telegram.AdminIDs {
		if id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

func Load() (*Config, error) {
	// .env может отсутствовать: в production переменные задаются окружением
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	switch cfg.Storage.Driver {
	case "postgres", "memory":
	default:
		return nil, fmt.Errorf("invalid STORAGE_DRIVER: %q", cfg.Storage.Driver)
	}

	switch cfg.Events.Driver {
	case "redis", "kafka", "none":
	default:
		return nil, fmt.Errorf("invalid EVENTS_DRIVER: %q", cfg.Events.Driver)
	}

	if cfg.Orders.TxTimeout <= 0 {
		return nil, fmt.Errorf("ORDER_TX_TIMEOUT must be positive")
	}

	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
