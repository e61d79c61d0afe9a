package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "avastore-backend/docs"
	"avastore-backend/internal/common/cache"
	"avastore-backend/internal/common/config"
	applog "avastore-backend/internal/common/logger"
	"avastore-backend/internal/common/middleware"
	authHTTP "avastore-backend/internal/features/auth/delivery/http"
	"avastore-backend/internal/features/auth/initdata"
	authService "avastore-backend/internal/features/auth/service"
	"avastore-backend/internal/features/auth/token"
	"avastore-backend/internal/features/bot"
	cartHTTP "avastore-backend/internal/features/cart/delivery/http"
	cartRepository "avastore-backend/internal/features/cart/repository"
	cartMemory "avastore-backend/internal/features/cart/repository/memory"
	cartPostgres "avastore-backend/internal/features/cart/repository/postgres"
	cartService "avastore-backend/internal/features/cart/service"
	catalogHTTP "avastore-backend/internal/features/catalog/delivery/http"
	catalogRepository "avastore-backend/internal/features/catalog/repository"
	catalogMemory "avastore-backend/internal/features/catalog/repository/memory"
	catalogPostgres "avastore-backend/internal/features/catalog/repository/postgres"
	catalogService "avastore-backend/internal/features/catalog/service"
	orderHTTP "avastore-backend/internal/features/order/delivery/http"
	"avastore-backend/internal/features/order/events"
	orderRepository "avastore-backend/internal/features/order/repository"
	orderMemory "avastore-backend/internal/features/order/repository/memory"
	orderPostgres "avastore-backend/internal/features/order/repository/postgres"
	orderService "avastore-backend/internal/features/order/service"
	userHTTP "avastore-backend/internal/features/user/delivery/http"
	userRepository "avastore-backend/internal/features/user/repository"
	userMemory "avastore-backend/internal/features/user/repository/memory"
	userPostgres "avastore-backend/internal/features/user/repository/postgres"
	userService "avastore-backend/internal/features/user/service"
	"avastore-backend/internal/platform/memory"
	"avastore-backend/internal/platform/postgres"
	"avastore-backend/internal/platform/redis"
	"avastore-backend/internal/platform/telegram"
	"avastore-backend/internal/workers"
)

// @title           AvaStore API
// @version         1.0
// @description     Backend for the AvaStore Telegram Mini App storefront.

// @host      localhost:8080
// @BasePath  /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description "Bearer <jwt>" issued by POST /auth/telegram

// @securityDefinitions.apikey TelegramInitData
// @in header
// @name init_data
// @description Telegram Mini App init data string

// @tag.name auth
// @tag.description Init data verification and sessions

// @tag.name users
// @tag.description Profile

// @tag.name cart
// @tag.description Shopping cart

// @tag.name products
// @tag.description Catalog and reviews

// @tag.name categories
// @tag.description Category tree

// @tag.name orders
// @tag.description Checkout and order lifecycle

type repositories struct {
	users   userRepository.UserRepository
	catalog catalogRepository.CatalogRepository
	cart    cartRepository.CartRepository
	orders  orderRepository.OrderRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	applog.Init("avastore-backend", cfg.Debug)

	// Инициализируем логгер
	var logger *zap.Logger
	if cfg.Debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting AvaStore Backend",
		zap.String("version", "1.0.0"),
		zap.Bool("debug", cfg.Debug),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("events", cfg.Events.Driver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Хранилище
	var (
		repos          repositories
		postgresClient *postgres.Client
	)
	switch cfg.Storage.Driver {
	case "memory":
		store := memory.NewStore()
		repos = repositories{
			users:   userMemory.NewMemoryRepository(store),
			catalog: catalogMemory.NewMemoryRepository(store),
			cart:    cartMemory.NewMemoryRepository(store),
			orders:  orderMemory.NewMemoryRepository(store),
		}
		logger.Warn("Using in-memory storage, data is lost on restart")
	default:
		postgresClient, err = postgres.NewClient(ctx, cfg.Postgres)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer postgresClient.Close()

		if cfg.Postgres.AutoMigrate {
			if err := postgresClient.Migrate(ctx); err != nil {
				logger.Fatal("Failed to apply migrations", zap.Error(err))
			}
			logger.Info("Database schema is up to date")
		}

		db := postgresClient.DB()
		repos = repositories{
			users:   userPostgres.NewPostgresRepository(db),
			catalog: catalogPostgres.NewPostgresRepository(db),
			cart:    cartPostgres.NewPostgresRepository(db),
			orders:  orderPostgres.NewPostgresRepository(db),
		}
		logger.Info("Database connection established")
	}

	// Redis не обязателен: без него нет кэша, блокировки оформления и стрима событий
	var redisClient redis.RedisClient
	if cfg.Redis.Enabled {
		redisClient, err = redis.CreateRedisClient(ctx, cfg)
		if err != nil {
			logger.Warn("Redis unavailable, continuing without cache and locks", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	cacheService := cache.NewCacheService(redisClient)

	var locker orderService.Locker
	if redisClient != nil {
		locker = redis.NewLocker(redisClient, "avastore:lock:")
	}

	publisher := events.NewPublisher(cfg, redisClient)
	defer publisher.Close()

	// Сервисы
	userSvc := userService.NewUserService(repos.users, logger)
	authSvc := authService.NewAuthService(
		initdata.NewVerifier(cfg.Telegram.BotToken, cfg.Telegram.InitDataTTL),
		token.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		userSvc,
		cfg.AdminTelegramIDs(),
		logger,
	)
	catalogSvc := catalogService.NewCatalogService(repos.catalog, cacheService, cfg.Cache.ProductTTL, logger)
	cartSvc := cartService.NewCartService(repos.cart, catalogSvc, logger)
	orderSvc := orderService.NewOrderService(repos.orders, locker, publisher, cacheService, orderService.Options{
		TxTimeout:            cfg.Orders.TxTimeout,
		LockTTL:              cfg.Orders.LockTTL,
		DefaultPaymentMethod: cfg.Orders.DefaultPaymentMethod,
	}, logger)

	logger.Info("Services initialized")

	telegramClient := telegram.NewClient(cfg.Telegram.BotToken)
	shopBot := bot.New(telegramClient, cfg.Telegram.WebAppURL)

	var wg sync.WaitGroup
	if cfg.Telegram.Polling {
		wg.Add(1)
		go func() {
			defer wg.Done()
			shopBot.Run(ctx)
		}()
	}
	if cfg.Events.Consume && cfg.Events.Driver == "redis" && redisClient != nil {
		worker := workers.NewOrderEventsWorker(redisClient, cfg.Events.StreamKey, userSvc, shopBot)
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Start(ctx)
		}()
	}

	// Настраиваем Gin
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler(logger))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.Origin}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", "Accept", "init_data", "X-Request-ID"}
	router.Use(cors.New(corsConfig))

	requireAuth := middleware.RequireAuth(authSvc, logger)

	api := router.Group("/api")
	authHTTP.NewAuthHandler(authSvc, logger).RegisterRoutes(api, requireAuth)
	catalogHTTP.NewCatalogHandler(catalogSvc, logger).RegisterRoutes(api, requireAuth)

	protected := api.Group("", requireAuth)
	userHTTP.NewUserHandler(userSvc, logger).RegisterRoutes(protected)
	cartHTTP.NewCartHandler(cartSvc, logger).RegisterRoutes(protected)
	orderHTTP.NewOrderHandler(orderSvc, logger).RegisterRoutes(protected)

	setupProbes(router, postgresClient, redisClient)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	logger.Info("Routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	wg.Wait()
	logger.Info("Server exited")
}

// setupProbes: postgresClient и redisClient могут быть nil
func setupProbes(router *gin.Engine, postgresClient *postgres.Client, redisClient redis.RedisClient) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   "avastore-backend",
		})
	})

	router.GET("/live", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if postgresClient != nil {
			if err := postgresClient.HealthCheck(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "unready",
					"error":   "postgres unavailable",
					"details": err.Error(),
				})
				return
			}
		}

		if redisClient != nil {
			if err := redisClient.Ping(ctx).Err(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "unready",
					"error":   "redis unavailable",
					"details": err.Error(),
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "ready",
			"timestamp": time.Now().UTC(),
			"service":   "avastore-backend",
		})
	})
}
