// Command server wires the validation, session, rate-limit and audit
// services behind the HTTP gate chain. Business logic lives in the internal
// packages; this file only assembles dependencies and owns the process
// lifecycle.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"garrison/internal/platform/config"
	"garrison/internal/platform/httpserver"
	"garrison/internal/platform/logger"
	platformRedis "garrison/internal/platform/redis"
	ratelimitMetrics "garrison/internal/ratelimit/metrics"
	ratelimitMiddleware "garrison/internal/ratelimit/middleware"
	ratelimitService "garrison/internal/ratelimit/service"
	ratelimitMemory "garrison/internal/ratelimit/store/memory"
	ratelimitRedis "garrison/internal/ratelimit/store/redis"
	"garrison/internal/session/csrf"
	sessionMemory "garrison/internal/session/store/memory"
	sessionRedis "garrison/internal/session/store/redis"
	"garrison/internal/session/token"
	httptransport "garrison/internal/transport/http"
	"garrison/internal/validation/engine"
	validationMetrics "garrison/internal/validation/metrics"
	audit "garrison/pkg/platform/audit"
	"garrison/pkg/platform/audit/alerts"
	auditMetrics "garrison/pkg/platform/audit/metrics"
	"garrison/pkg/platform/audit/publishers/security"
	"garrison/pkg/platform/audit/publishers/siem"
	"garrison/pkg/platform/audit/recorder"
	auditMemory "garrison/pkg/platform/audit/store/memory"
	auditPostgres "garrison/pkg/platform/audit/store/postgres"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

type auditStore interface {
	audit.Store
	ListRecent(ctx context.Context, limit int) ([]audit.Event, error)
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Audit store: Postgres when configured, in-memory otherwise.
	var store auditStore = auditMemory.New()
	if cfg.PostgresDSN != "" {
		db, err := sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx, auditPostgres.Schema); err != nil {
			return err
		}
		store = auditPostgres.New(db)
		log.Info("audit store: postgres")
	} else {
		log.Warn("audit store: in-memory, events will not survive restart")
	}

	redisClient, err := platformRedis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	auditM := auditMetrics.New()

	// Security feed: always the audit store, plus Kafka when brokers are set.
	securitySinks := []security.Sink{store}
	if len(cfg.KafkaBrokers) > 0 {
		siemPublisher, err := siem.New(cfg.KafkaBrokers, cfg.SecurityTopic, log)
		if err != nil {
			return err
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = siemPublisher.Close(closeCtx)
		}()
		securitySinks = append(securitySinks, siemPublisher)
		log.Info("siem feed enabled", "topic", cfg.SecurityTopic)
	}
	securityPublisher := security.New(securitySinks,
		security.WithLogger(log),
		security.WithMetrics(auditM),
	)

	dispatcher := alerts.NewDispatcher(logNotifier{log},
		alerts.WithLogger(log),
		alerts.WithMetrics(auditM),
	)

	auditor, err := recorder.New(store,
		recorder.WithLogger(log),
		recorder.WithMetrics(auditM),
		recorder.WithSecurityPublisher(securityPublisher),
		recorder.WithAlertDispatcher(dispatcher),
		recorder.WithAlertThreshold(cfg.AlertRiskThreshold),
	)
	if err != nil {
		return err
	}

	// Rate limiting: shared counters on Redis when available.
	var attemptStore ratelimitService.Store = ratelimitMemory.New()
	if redisClient != nil {
		attemptStore = ratelimitRedis.New(redisClient.Client)
	}
	limiter, err := ratelimitService.New(attemptStore,
		ratelimitService.WithLogger(log),
		ratelimitService.WithMetrics(ratelimitMetrics.New()),
		ratelimitService.WithAuditor(auditor),
		ratelimitService.WithDefaultLimit(cfg.MutationMaxAttempts, cfg.MutationWindow),
	)
	if err != nil {
		return err
	}

	var tokenStore csrf.TokenStore = sessionMemory.New()
	if redisClient != nil {
		tokenStore = sessionRedis.New(redisClient.Client)
	}
	guard, err := csrf.New(tokenStore, csrf.WithLogger(log))
	if err != nil {
		return err
	}

	jwtValidator, err := token.New([]byte(cfg.JWTSigningKey), "")
	if err != nil {
		return err
	}

	validator := engine.New(
		engine.WithLogger(log),
		engine.WithMetrics(validationMetrics.New()),
	)

	router, err := httptransport.NewRouter(httptransport.Deps{
		Logger:         log,
		JWTValidator:   jwtValidator,
		CSRFIssuer:     guard,
		CSRFVerifier:   guard,
		RateLimiter:    ratelimitMiddleware.New(limiter, log),
		Validator:      validator,
		Auditor:        auditor,
		AuditReader:    store,
		AdminTokenHash: cfg.AdminTokenHash,
	})
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", router)

	srv := httpserver.New(cfg.Addr, mux)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return securityPublisher.Run(groupCtx)
	})
	group.Go(func() error {
		dispatcher.Run(groupCtx)
		return nil
	})
	group.Go(func() error {
		log.Info("starting garrison", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

// logNotifier is the default alert sink: high-risk events surface in the
// process log until a pager integration is configured.
type logNotifier struct {
	log *slog.Logger
}

func (n logNotifier) Notify(ctx context.Context, event audit.Event, riskScore int) error {
	n.log.WarnContext(ctx, "high risk audit event",
		"action", event.Action,
		"resource_type", event.ResourceType,
		"resource_id", event.ResourceID,
		"actor_id", event.ActorID.String(),
		"risk_score", riskScore,
	)
	return nil
}
