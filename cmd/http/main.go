package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fekuna/vialtrack-service/config"
	"github.com/fekuna/vialtrack-service/internal/audit/publisher"
	"github.com/fekuna/vialtrack-service/internal/auth"
	"github.com/fekuna/vialtrack-service/internal/pkg/cache"
	"github.com/fekuna/vialtrack-service/internal/pkg/httpx"
	"github.com/fekuna/vialtrack-service/internal/pkg/logger"
	"github.com/fekuna/vialtrack-service/internal/pkg/postgres"
	"github.com/fekuna/vialtrack-service/internal/server"
	"github.com/fekuna/vialtrack-service/internal/store/memory"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load() // Load .env file if it exists
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	appLogger := logger.NewZapLogger(&logger.ZapLoggerConfig{
		IsDevelopment:     cfg.IsDevelopment(),
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
		ServiceName:       "vialtrack-service",
	})
	defer appLogger.Sync()

	// 3. Storage
	var repos server.Repositories
	if cfg.Postgres.Enabled {
		db, err := postgres.NewPostgres(&postgres.Config{
			Host:            cfg.Postgres.Host,
			Port:            cfg.Postgres.Port,
			User:            cfg.Postgres.User,
			Password:        cfg.Postgres.Password,
			DBName:          cfg.Postgres.DBName,
			SSLMode:         cfg.Postgres.SSLMode,
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
			ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
		})
		if err != nil {
			appLogger.Fatal("Could not connect to database", zap.Error(err))
		}
		defer db.Close()
		appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

		if cfg.Postgres.AutoMigrate {
			if err := postgres.Migrate(db); err != nil {
				appLogger.Fatal("Could not apply migrations", zap.Error(err))
			}
			appLogger.Info("Database migrations applied")
		}
		repos = server.PostgresRepositories(db, appLogger)
	} else {
		appLogger.Warn("DB_ENABLED=false, using in-memory store; data is lost on restart")
		repos = server.MemoryRepositories(memory.NewStore())
	}

	opts := server.Options{
		Limiter:  httpx.NewRateLimiter(float64(cfg.RateLimit.RPS), cfg.RateLimit.Burst),
		CacheTTL: cfg.Redis.CacheTTL,
		Logger:   appLogger,
	}

	// 4. Session tokens
	tokens, err := auth.NewTokenManager(cfg.JWT.SecretKey, cfg.JWT.Issuer, cfg.JWT.TTL)
	if err != nil {
		appLogger.Fatal("Invalid JWT configuration", zap.Error(err))
	}
	opts.Tokens = tokens

	// 5. Initialize Redis
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(&cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			appLogger.Warn("Could not connect to Redis, dashboard caching disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			opts.Cache = redisClient
			appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
		}
	}

	// 6. Initialize Kafka audit publisher
	if cfg.Kafka.Enabled {
		kafkaPublisher := publisher.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		defer kafkaPublisher.Close()
		opts.Publisher = kafkaPublisher
		appLogger.Info("Publishing audit events to Kafka",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.AuditTopic),
		)
	}

	// 7. Start HTTP Server
	port := cfg.Server.HTTPPort
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	srv := &http.Server{
		Addr:         port,
		Handler:      server.NewHandler(repos, opts),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	appLogger.Info("Starting HTTP server", zap.String("port", port))

	// Graceful Shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("failed to serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Graceful shutdown failed", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}
