package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/document-approval/internal/config"
	"github.com/kirillkom/document-approval/internal/core/ports"
	"github.com/kirillkom/document-approval/internal/core/usecase"
	"github.com/kirillkom/document-approval/internal/infrastructure/auth"
	"github.com/kirillkom/document-approval/internal/infrastructure/export/xlsx"
	"github.com/kirillkom/document-approval/internal/infrastructure/i18n"
	"github.com/kirillkom/document-approval/internal/infrastructure/queue/nats"
	"github.com/kirillkom/document-approval/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/document-approval/internal/infrastructure/resilience"
	"github.com/kirillkom/document-approval/internal/infrastructure/storage/localfs"
)

// Options carries process-specific observers; both binaries share the rest of the graph.
type Options struct {
	Logger          *slog.Logger
	Observer        resilience.Observer
	WorkflowMetrics ports.WorkflowMetrics
	// RequireTokens fails startup when no JWT secret is configured.
	RequireTokens bool
}

type App struct {
	Config config.Config

	Bus        *nats.Bus
	Workflow   *usecase.WorkflowUseCase
	Queries    *usecase.DocumentQueryUseCase
	Inbox      *usecase.NotificationUseCase
	Tokens     *auth.TokenVerifier
	Subscriber ports.NotificationSubscriber

	db      *sql.DB
	closeFn func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var tokens *auth.TokenVerifier
	if cfg.AuthJWTSecret != "" {
		v, err := auth.NewTokenVerifier(cfg.AuthJWTSecret, cfg.AuthJWTIssuer)
		if err != nil {
			return nil, fmt.Errorf("init token verifier: %w", err)
		}
		tokens = v
	} else if opts.RequireTokens {
		return nil, errors.New("AUTH_JWT_SECRET is required")
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	catalog, err := i18n.NewDefaultCatalog(cfg.NotifyDefaultLocale)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message catalog: %w", err)
	}

	execOpts := []resilience.ExecutorOption{resilience.WithObserver(opts.Observer)}
	busExecutor := resilience.NewExecutor(resilienceConfig(cfg, cfg.ResilienceRetryMaxAttempts), execOpts...)
	bus, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSNotifySubject, nats.Options{
		QueueGroup:         cfg.NATSQueueGroup,
		ResilienceExecutor: busExecutor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init notification bus: %w", err)
	}

	conflictCfg := resilience.ForConflicts(resilienceConfig(cfg, cfg.ResilienceRetryMaxAttempts), cfg.WorkflowConflictRetries)
	retrier := resilience.NewWorkflowRetrier(resilience.NewExecutor(conflictCfg, execOpts...))

	store := postgres.NewWorkflowStore(db)
	users := postgres.NewUserRepository(db)
	notifications := postgres.NewNotificationRepository(db)

	wfOpts := []usecase.WorkflowOption{
		usecase.WithRetrier(retrier),
		usecase.WithLogger(logger),
	}
	if opts.WorkflowMetrics != nil {
		wfOpts = append(wfOpts, usecase.WithWorkflowMetrics(opts.WorkflowMetrics))
	}

	return &App{
		Config:     cfg,
		Bus:        bus,
		Workflow:   usecase.NewWorkflowUseCase(store, users, storage, bus, wfOpts...),
		Queries:    usecase.NewDocumentQueryUseCase(store, storage, xlsx.NewExporter()),
		Inbox:      usecase.NewNotificationUseCase(notifications, users, catalog, cfg.NotifyDefaultLocale, logger),
		Tokens:     tokens,
		Subscriber: bus,
		db:         db,
		closeFn: func() {
			bus.Close()
			_ = db.Close()
		},
	}, nil
}

// Ready reports whether postgres and NATS are reachable.
func (a *App) Ready(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := a.db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if !a.Bus.Healthy() {
		return errors.New("nats: not connected")
	}
	return nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func resilienceConfig(cfg config.Config, attempts int) resilience.Config {
	minRequests := cfg.ResilienceBreakerMinRequests
	if minRequests < 0 {
		minRequests = 0
	}
	return resilience.Config{
		Retry: resilience.RetryPolicy{
			MaxAttempts:    attempts,
			InitialBackoff: cfg.ResilienceRetryInitialBackoff,
			MaxBackoff:     cfg.ResilienceRetryMaxBackoff,
			Multiplier:     2,
		},
		Breaker: resilience.BreakerPolicy{
			Enabled:      cfg.ResilienceBreakerEnabled,
			MinRequests:  uint32(minRequests),
			FailureRatio: cfg.ResilienceBreakerFailureRatio,
			OpenTimeout:  cfg.ResilienceBreakerOpenTimeout,
		},
	}
}
