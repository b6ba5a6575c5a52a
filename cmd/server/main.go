package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	accessloghandler "trustid/internal/accesslog/handler"
	accesslogservice "trustid/internal/accesslog/service"
	alerthandler "trustid/internal/alert/handler"
	alertservice "trustid/internal/alert/service"
	authhandler "trustid/internal/auth/handler"
	authmetrics "trustid/internal/auth/metrics"
	authservice "trustid/internal/auth/service"
	consenthandler "trustid/internal/consent/handler"
	consentmetrics "trustid/internal/consent/metrics"
	consentservice "trustid/internal/consent/service"
	directoryhandler "trustid/internal/directory/handler"
	directoryservice "trustid/internal/directory/service"
	entityhandler "trustid/internal/entity/handler"
	entityservice "trustid/internal/entity/service"
	jwttoken "trustid/internal/jwt_token"
	"trustid/internal/notify/consentsms"
	"trustid/internal/notify/sms"
	onboardinghandler "trustid/internal/onboarding/handler"
	onboardingservice "trustid/internal/onboarding/service"
	outboxmetrics "trustid/internal/outbox/metrics"
	outboxworker "trustid/internal/outbox/worker"
	"trustid/internal/platform/config"
	"trustid/internal/platform/database"
	"trustid/internal/platform/health"
	"trustid/internal/platform/kafka"
	"trustid/internal/platform/kafka/producer"
	"trustid/internal/platform/logger"
	redisclient "trustid/internal/platform/redis"
	"trustid/internal/platform/tracing"
	"trustid/internal/seeder"
	httptransport "trustid/internal/transport/http"
	"trustid/migrations"
	"trustid/pkg/platform/middleware/auth"
	"trustid/pkg/platform/middleware/request"
)

const statsInterval = 15 * time.Second

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Server.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// run wires dependencies and blocks until SIGINT/SIGTERM or a fatal error.
func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("initializing trustid",
		"addr", cfg.Server.Addr,
		"environment", cfg.Server.Environment,
	)

	probes := health.New(cfg.Server.Environment)

	pool, err := database.New(cfg.Database)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close() //nolint:errcheck
		if err := database.Migrate(ctx, pool.DB(), migrations.FS); err != nil {
			return err
		}
		probes.RegisterCheck("postgres", pool.Health)
		prometheus.MustRegister(pool.Collector())
	}

	rdb, err := redisclient.New(cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close() //nolint:errcheck
		probes.RegisterCheck("redis", rdb.Health)
		prometheus.MustRegister(rdb.Collector())
	}

	st := newStorage(pool, rdb, log)

	notifier := newNotifier(cfg.SMS, log)
	defer notifier.Wait()

	entities := entityservice.NewService(st.ledger.Entities, st.users, entityservice.WithLogger(log))
	ledger := consentservice.NewService(st.ledger, st.tx, entities,
		consentservice.WithLogger(log),
		consentservice.WithMetrics(consentmetrics.New()),
		consentservice.WithTracer(tracing.NewOTel()),
		consentservice.WithRequestNotifier(consentsms.New(st.users, notifier, log)),
	)
	accessLogs := accesslogservice.NewService(st.ledger.AccessLog, entities, log)
	alerts := alertservice.NewService(st.ledger.Alerts, entities, log)

	tokens := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.Audience)
	accounts := authservice.NewService(st.users, st.sessions, st.otps, entities, tokens, notifier,
		authservice.Config{
			UserTokenTTL:       cfg.Auth.UserTokenTTL,
			GovernmentTokenTTL: cfg.Auth.GovernmentTokenTTL,
			LoginOTPTTL:        cfg.Auth.LoginOTPTTL,
			VerifyOTPTTL:       cfg.Auth.VerifyOTPTTL,
		},
		authservice.WithLogger(log),
		authservice.WithMetrics(authmetrics.New()),
		authservice.WithLoginAlerts(alerts),
	)

	onboarding := onboardingservice.NewService(st.requests, st.users, accounts, log)
	directory := directoryservice.NewService(st.services, entities, log)

	if cfg.Server.SeedDemoData {
		if st.durable {
			log.Warn("SEED_DEMO_DATA ignored with a database configured")
		} else if err := seeder.New(accounts, entities, ledger, directory, log).SeedAll(ctx); err != nil {
			return err
		}
	}

	authRoutes := authhandler.New(accounts, log)
	consentRoutes := consenthandler.New(ledger, log)
	accessLogRoutes := accessloghandler.New(accessLogs, log)
	onboardingRoutes := onboardinghandler.New(onboarding, log)
	directoryRoutes := directoryhandler.New(directory, log)
	router := httptransport.NewRouter(httptransport.Config{
		Logger:         log,
		TrustedProxies: cfg.Server.TrustedProxies,
		RequestTimeout: cfg.Server.RequestTimeout,
		AdminToken:     cfg.Server.AdminToken,
		Auth:           auth.RequireAuth(jwttoken.NewMiddlewareAdapter(tokens), accounts, log),
		Metrics:        request.NewMetrics(),
		Health:         probes,
		Public:         []httptransport.PublicRoutes{authRoutes, onboardingRoutes, directoryRoutes},
		Authenticated: []httptransport.Routes{
			authRoutes,
			entityhandler.New(entities, log),
			consentRoutes,
			accessLogRoutes,
			alerthandler.New(alerts, log),
			onboardingRoutes,
			directoryRoutes,
		},
		Admin: []httptransport.AdminRoutes{consentRoutes, accessLogRoutes, directoryRoutes},
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := startOutbox(gctx, g, cfg.Kafka, st, probes, log); err != nil {
		return err
	}

	return g.Wait()
}

// newNotifier sends OTPs through the SMS gateway when an API key is
// configured, otherwise it logs them. Delivery never blocks a request.
func newNotifier(cfg config.SMSConfig, log *slog.Logger) *sms.Async {
	var inner sms.Notifier
	if cfg.APIKey != "" {
		inner = sms.NewGateway(sms.GatewayConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Timeout: cfg.Timeout,
		}, log)
	} else {
		log.Warn("TWO_FACTOR_API_KEY not set, OTPs will be logged instead of sent")
		inner = sms.NewLogNotifier(log)
	}
	return sms.NewAsync(inner, 2*cfg.Timeout, log)
}

// startOutbox publishes ledger events to Kafka. Without brokers the events
// stay queued in the outbox table.
func startOutbox(ctx context.Context, g *errgroup.Group, cfg config.KafkaConfig, st storage, probes *health.Handler, log *slog.Logger) error {
	if cfg.Brokers == "" {
		log.Warn("KAFKA_BROKERS not set, consent events stay in the outbox")
		return nil
	}

	prod, err := producer.New(producer.DefaultConfig(cfg.Brokers), log)
	if err != nil {
		return err
	}
	if err := kafka.EnsureTopic(ctx, prod.Client(), cfg.Topic, cfg.Partitions, cfg.Replication); err != nil {
		prod.Close() //nolint:errcheck
		return err
	}
	probes.RegisterCheck("kafka", prod.Health)

	worker := outboxworker.New(st.ledger.Outbox, prod,
		outboxworker.WithTopic(cfg.Topic),
		outboxworker.WithBatchSize(cfg.BatchSize),
		outboxworker.WithPollInterval(cfg.PollInterval),
		outboxworker.WithRetention(cfg.Retention),
		outboxworker.WithMetrics(outboxmetrics.New()),
		outboxworker.WithLogger(log),
	)

	g.Go(func() error {
		defer prod.Close() //nolint:errcheck
		return worker.Run(ctx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := worker.UpdateMetrics(ctx); err != nil {
					log.WarnContext(ctx, "failed to update outbox metrics", "error", err)
				}
				if _, err := worker.Prune(ctx); err != nil {
					log.WarnContext(ctx, "failed to prune outbox", "error", err)
				}
			}
		}
	})
	return nil
}
