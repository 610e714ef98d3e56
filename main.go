package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"ms-preorder/internal/auth"
	"ms-preorder/internal/catalog"
	"ms-preorder/internal/config"
	"ms-preorder/internal/database/migrations"
	"ms-preorder/internal/kafka"
	"ms-preorder/internal/logger"
	"ms-preorder/internal/metrics"
	"ms-preorder/internal/order"
	"ms-preorder/internal/order/db"
	"ms-preorder/internal/order/order_api"
	rediswrap "ms-preorder/internal/order/redis"
	"ms-preorder/internal/pickup"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func openPostgres(cfg config.DatabaseConfig, logger *logger.Logger) *sql.DB {
	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		logger.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.DSN)
		if err != nil {
			logger.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		logger.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}
	return sqldb
}

func migratePostgres(cfg config.DatabaseConfig, logger *logger.Logger) {
	// the runner closes its handle, so it gets its own
	migDB, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		logger.Fatal("MIGRATION", fmt.Sprintf("Failed to open migration connection: %v", err))
	}
	runner := migrations.NewRunner(migDB, migrations.MigrateOptions{
		AutoMigrate: cfg.AutoMigrate,
		SeedData:    cfg.SeedData,
	}, logger)
	defer runner.Close()

	if err := runner.RunMigrations(); err != nil {
		logger.Fatal("MIGRATION", fmt.Sprintf("Migrations failed: %v", err))
	}
}

func verifyConnections(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*bun.DB, *redis.Client) {
	var bunDB *bun.DB

	switch cfg.Database.Driver {
	case "sqlite":
		sqldb, err := sql.Open(sqliteshim.ShimName, cfg.Database.DSN)
		if err != nil {
			logger.Fatal("DATABASE", fmt.Sprintf("Failed to open sqlite: %v", err))
		}
		// sqlite serializes writers; one connection keeps transactions from deadlocking
		sqldb.SetMaxOpenConns(1)
		bunDB = bun.NewDB(sqldb, sqlitedialect.New())

		if err := db.CreateSchema(ctx, bunDB); err != nil {
			logger.Fatal("DATABASE", fmt.Sprintf("Failed to create schema: %v", err))
		}
		if cfg.Database.SeedData {
			n, err := db.SeedMenu(ctx, bunDB, db.DefaultMenu)
			if err != nil {
				logger.Fatal("DATABASE", fmt.Sprintf("Failed to seed menu: %v", err))
			}
			logger.LogDatabase("SEED", "menu", fmt.Sprintf("%d items inserted", n))
		}
		logger.Info("DATABASE", "✅ SQLite store ready")

	case "postgres":
		if cfg.Database.AutoMigrate {
			migratePostgres(cfg.Database, logger)
		}
		sqldb := openPostgres(cfg.Database, logger)
		sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)
		bunDB = bun.NewDB(sqldb, pgdialect.New())
		logger.Info("DATABASE", "✅ PostgreSQL connection successful")

	default:
		logger.Fatal("CONFIG", fmt.Sprintf("Unsupported DB_DRIVER %q", cfg.Database.Driver))
	}

	if !cfg.Redis.Enabled {
		logger.Warn("REDIS", "Redis disabled, Idempotency-Key headers will be ignored")
		return bunDB, nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	logger.Info("DATABASE", fmt.Sprintf("✅ Redis connection successful to %s (DB: %d)", cfg.Redis.Addr, redisClient.Options().DB))
	return bunDB, redisClient
}

func tokenVerifier(ctx context.Context, cfg config.AuthConfig, logger *logger.Logger) auth.TokenVerifier {
	if cfg.OIDCIssuer != "" {
		verifier, err := auth.NewOIDCVerifier(ctx, cfg.OIDCIssuer, cfg.OIDCClientID)
		if err != nil {
			logger.Fatal("AUTH", err.Error())
		}
		logger.Info("AUTH", fmt.Sprintf("Verifying tokens against OIDC issuer %s", cfg.OIDCIssuer))
		return verifier
	}

	if cfg.JWTSecret == "" {
		logger.Fatal("CONFIG", "JWT_SECRET or OIDC_ISSUER must be set")
	}
	logger.Info("AUTH", "Verifying HS256 tokens with JWT_SECRET")
	return auth.HS256Verifier{Secret: cfg.JWTSecret}
}

func requestLogger(logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.LogAPI(r.Method, r.URL.Path, strconv.Itoa(ww.Status()), time.Since(start).String())
		})
	}
}

func main() {
	logger := logger.NewLogger("preorder-service")
	defer logger.Close()

	logger.Info("APP", "Starting Pre-order Service initialization")

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		logger.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()
	verifier := tokenVerifier(ctx, cfg.Auth, logger)

	logger.Info("APP", "Verifying database connections")
	bunDB, redisClient := verifyConnections(ctx, cfg, logger)
	defer bunDB.Close()

	registry := metrics.NewRegistry()

	orderService := order.NewOrderService(db.New(bunDB), catalog.NewMenuStore(), cfg.Engine, logger)
	orderService.Metrics = registry

	if redisClient != nil {
		defer redisClient.Close()
		orderService.Idempotency = rediswrap.NewRedis(redisClient, cfg.Redis.IdempotencyTTL, logger)
	}

	if cfg.Kafka.Enabled {
		logger.Info("KAFKA", fmt.Sprintf("Using Kafka brokers: %v", cfg.Kafka.Brokers))
		requiredTopics := []string{cfg.Kafka.Topics.OrderCreated, cfg.Kafka.Topics.OrderStatusChanged}
		if err := kafka.EnsureTopicsExist(ctx, cfg.Kafka.Brokers, requiredTopics, logger); err != nil {
			logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			logger.Info("KAFKA", "Required topics ensured successfully")
		}

		kafkaProducer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics, logger)
		defer kafkaProducer.Close()
		orderService.Kafka = kafkaProducer
		logger.Info("KAFKA", "Kafka producer initialized successfully")
	}

	handler := order_api.NewHandler(orderService, pickup.NewQRGenerator(cfg.Auth.QRSecret), logger)

	logger.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	// --- Public Routes ---
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := bunDB.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", registry.Handler())

	// --- Protected Routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(verifier, cfg.Auth.CookieName, logger))
		logger.Info("AUTH", "JWT middleware applied to protected API routes")

		r.Route("/api", func(r chi.Router) {
			handler.RegisterRoutes(r)
		})
		logger.Info("ROUTER", "Order routes registered under /api/orders")
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("🚀 Pre-order Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		logger.Info("HTTP", "✅ Pre-order Service shutdown complete")
	}
}
