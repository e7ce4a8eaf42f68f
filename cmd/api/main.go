package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/password-policy/internal/config"
	"github.com/jwalitptl/password-policy/internal/handler/health"
	"github.com/jwalitptl/password-policy/internal/repository"
	"github.com/jwalitptl/password-policy/internal/repository/memory"
	"github.com/jwalitptl/password-policy/internal/repository/postgres"
	"github.com/jwalitptl/password-policy/internal/server"
	"github.com/jwalitptl/password-policy/pkg/cache"
	"github.com/jwalitptl/password-policy/pkg/event"
	"github.com/jwalitptl/password-policy/pkg/logger"
	"github.com/jwalitptl/password-policy/pkg/messaging/redis"
	"github.com/jwalitptl/password-policy/pkg/metrics"
	"github.com/jwalitptl/password-policy/pkg/security"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		JSON:       cfg.Log.JSON,
	})
	gin.SetMode(gin.ReleaseMode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	m := metrics.New("app", reg)
	checks := map[string]health.Pinger{}

	// Cache backs the expiry cache and the flash bag
	var store cache.Store = cache.NewMemoryStore(time.Hour, 10*time.Minute)
	if cfg.Storage.Cache == "redis" {
		redisStore, err := cache.NewRedisStore(ctx, cache.RedisConfig{
			URL:          cfg.Redis.URL,
			Prefix:       cfg.Redis.Prefix,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
		})
		if err != nil {
			log.Fatal(err, "failed to connect to Redis cache")
		}
		defer redisStore.Close()
		store = redisStore
	}

	// Events: relayed to the worker through redis when it is available
	dispatcher := event.NewAsync(log, m)
	defer dispatcher.Wait()
	if cfg.Redis.URL != "" {
		broker, err := redis.NewRedisBroker(ctx, redis.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			RetryBackoff: cfg.Redis.RetryBackoff,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			Group:        cfg.Redis.EventsGroup,
			MaxLen:       cfg.Redis.StreamMaxLen,
		}, log)
		if err != nil {
			log.Warn("Event broker unavailable, events stay in process", "error", err.Error())
		} else {
			defer broker.Close()
			dispatcher.Subscribe(event.BrokerHandler(broker, cfg.Redis.EventsTopic))
		}
	}

	eng, err := server.NewEngine(cfg, store, dispatcher, log, m)
	if err != nil {
		log.Fatal(err, "invalid password policy configuration")
	}

	var accounts repository.AccountRepository
	switch cfg.Storage.Driver {
	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.Database.DSN())
		if err != nil {
			log.Fatal(err, "failed to connect to database")
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Fatal(err, "failed to migrate database")
		}
		checks["database"] = db
		accounts = postgres.NewAccountRepository(postgres.NewBaseRepository(db), eng.FlushHook)
	default:
		accounts = memory.NewStore(eng.FlushHook)
	}

	r := server.NewRouter(server.Deps{
		Config:       cfg,
		Engine:       eng,
		Accounts:     accounts,
		Cache:        store,
		Hasher:       security.NewBcryptHasher(bcrypt.DefaultCost),
		Registry:     reg,
		HealthChecks: checks,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("Server starting", "addr", srv.Addr, "storage", cfg.Storage.Driver, "cache", cfg.Storage.Cache)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "server forced to shutdown")
	}

	log.Info("server exited properly")
}
