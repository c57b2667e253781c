// Package main wires the verification service: provider gateway, session and
// profile stores, audit pipeline, and the HTTP surface. Business logic lives
// in the internal packages.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"homehelp/internal/audit"
	audithandler "homehelp/internal/audit/handler"
	"homehelp/internal/audit/outbox"
	"homehelp/internal/ekyc"
	"homehelp/internal/platform/config"
	"homehelp/internal/platform/database"
	"homehelp/internal/platform/health"
	"homehelp/internal/platform/kafka/producer"
	"homehelp/internal/platform/logger"
	"homehelp/internal/platform/metrics"
	"homehelp/internal/platform/middleware"
	"homehelp/internal/platform/middleware/auth"
	"homehelp/internal/platform/redis"
	profilestore "homehelp/internal/profile/store"
	verificationhandler "homehelp/internal/verification/handler"
	"homehelp/internal/verification/service"
	"homehelp/internal/verification/store/session"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing homehelp verification service",
		"addr", cfg.Server.Addr,
		"provider_base_url", cfg.Provider.BaseURL,
	)

	m := metrics.New()

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Audit persistence falls back to memory when no database is configured,
	// which keeps local development a single binary.
	var auditStore audit.Store
	if db != nil {
		auditStore = audit.NewPostgresStore(db.DB())
	} else {
		log.Warn("no database configured, audit entries held in memory")
		auditStore = audit.NewInMemoryStore()
	}
	auditPublisher := audit.NewPublisher(auditStore, log, 256, m.IncrementAuditEntriesDropped)
	defer auditPublisher.Close()

	var kafkaProducer outbox.Producer = producer.NewNoopProducer()
	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := producer.New(producer.Config{
			Brokers:         cfg.Kafka.Brokers,
			Retries:         5,
			DeliveryTimeout: 30 * time.Second,
		}, log)
		if err != nil {
			log.Error("kafka producer init failed", "error", err)
			os.Exit(1)
		}
		defer kp.Close()
		kafkaProducer = kp
	} else {
		log.Warn("no kafka brokers configured, audit stream disabled")
	}

	var sessionStore session.Store
	if redisClient != nil {
		sessionStore = session.NewRedisStore(redisClient.Client)
	} else {
		log.Warn("no redis configured, verification sessions held in memory")
		sessionStore = session.NewInMemoryStore()
	}

	var profiles profilestore.Store
	if db != nil {
		profiles = profilestore.NewPostgresStore(db.DB())
	} else {
		log.Warn("no database configured, profiles held in memory")
		profiles = profilestore.NewInMemoryStore()
	}

	gateway := ekyc.NewGateway(ekyc.NewHTTPClient(cfg.Provider), auditPublisher, m, log)
	verificationService := service.New(gateway, sessionStore, profiles, log,
		service.WithSessionTTL(cfg.Session.TTL),
		service.WithMetrics(m),
	)

	validator := auth.NewValidator(cfg.Server.JWTSigningKey)

	healthHandler := health.New(os.Getenv("HOMEHELP_ENV"))
	if db != nil {
		healthHandler.RegisterCheck("database", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return db.Health(ctx)
		})
	}
	if redisClient != nil {
		healthHandler.RegisterCheck("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisClient.Health(ctx)
		})
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logger(log))
	router.Use(middleware.Metrics(m.ObserveEndpointLatency))
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	healthHandler.Register(router)
	router.Handle("/metrics", promhttp.Handler())

	router.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(auth.RequireAuth(validator, log))
		verificationhandler.NewHandler(verificationService, log).Register(r)
	})

	router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(validator, log))
		r.Use(auth.RequireAdmin(log))
		audithandler.New(auditStore, log).Register(r)
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if db != nil {
		outboxStore := outbox.NewPostgresStore(db.DB())
		worker := outbox.NewWorker(outboxStore, kafkaProducer, cfg.Kafka.AuditTopic, log,
			outbox.WithDepthGauge(m.SetOutboxDepth),
		)
		g.Go(func() error {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("service exited with error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
