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

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jwalitptl/password-policy/internal/config"
	"github.com/jwalitptl/password-policy/internal/mail"
	"github.com/jwalitptl/password-policy/internal/model"
	"github.com/jwalitptl/password-policy/internal/repository/postgres"
	"github.com/jwalitptl/password-policy/internal/worker"
	"github.com/jwalitptl/password-policy/pkg/cache"
	"github.com/jwalitptl/password-policy/pkg/logger"
	"github.com/jwalitptl/password-policy/pkg/messaging"
	"github.com/jwalitptl/password-policy/pkg/messaging/redis"
	"github.com/jwalitptl/password-policy/pkg/policy"
)

// serveProbes exposes liveness, readiness and metrics for the worker on :8081.
func serveProbes(log *logger.Logger, db *sqlx.DB, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	go func() {
		if err := http.ListenAndServe(":8081", mux); err != nil {
			log.Fatal(err, "Probe server failed")
		}
	}()
}

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		JSON:       cfg.Log.JSON,
	}).WithFields(map[string]interface{}{"component": "worker"})

	if cfg.Storage.Driver != "postgres" {
		log.Fatal(fmt.Errorf("storage driver %q", cfg.Storage.Driver), "worker requires postgres storage")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	configs, err := cfg.PolicyConfigs(model.NewPasswordHistory)
	if err != nil {
		log.Fatal(err, "invalid password policy configuration")
	}
	registry, err := policy.NewRegistry(nil, configs...)
	if err != nil {
		log.Fatal(err, "invalid password policy configuration")
	}

	db, err := postgres.NewDB(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal(err, "Failed to connect to database")
	}
	defer db.Close()

	base := postgres.NewBaseRepository(db)
	accounts := postgres.NewAccountRepository(base, nil)
	history := postgres.NewPasswordHistoryRepository(base)

	reg := prometheus.NewRegistry()
	serveProbes(log, db, reg)

	// Retention sweeper
	sweeper := worker.NewRetentionSweeper(accounts, history, registry, cfg.Retention.Interval, cfg.Retention.BatchSize, log)
	go sweeper.Start(ctx)

	// Event relay
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
			log.Fatal(err, "Failed to create Redis broker")
		}
		defer broker.Close()

		var sender mail.Sender = mail.NewLogSender(log)
		if cfg.Mail.Enabled {
			sender = mail.NewSMTPSender(mail.SMTPConfig{
				Host:     cfg.Mail.Host,
				Port:     cfg.Mail.Port,
				Username: cfg.Mail.Username,
				Password: cfg.Mail.Password,
				From:     cfg.Mail.From,
			})
		}

		var sent cache.Store = cache.NewMemoryStore(worker.ExpiryMailInterval, time.Hour)
		if cfg.Storage.Cache == "redis" {
			redisStore, err := cache.NewRedisStore(ctx, cache.RedisConfig{
				URL:          cfg.Redis.URL,
				Prefix:       cfg.Redis.Prefix,
				PoolSize:     cfg.Redis.PoolSize,
				MinIdleConns: cfg.Redis.MinIdleConns,
				MaxRetries:   cfg.Redis.MaxRetries,
			})
			if err != nil {
				log.Fatal(err, "Failed to connect to Redis cache")
			}
			defer redisStore.Close()
			sent = redisStore
		}

		relay := worker.NewEventRelay(messaging.NewBrokerAdapter(broker, log), cfg.Redis.EventsTopic,
			accounts, mail.NewService(sender), sent, log, reg)
		if err := relay.Start(ctx); err != nil {
			log.Fatal(err, "Failed to start event relay")
		}
	} else {
		log.Warn("No redis configured, event relay disabled")
	}

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info("Shutting down...")
}
