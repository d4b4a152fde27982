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

	"github.com/kirillkom/document-approval/internal/bootstrap"
	"github.com/kirillkom/document-approval/internal/config"
	"github.com/kirillkom/document-approval/internal/core/domain"
	"github.com/kirillkom/document-approval/internal/observability/logging"
	"github.com/kirillkom/document-approval/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Logger:   logger,
		Observer: workerMetrics,
	})
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker_subscribed", "subject", cfg.NATSNotifySubject, "queue_group", cfg.NATSQueueGroup)
	err = app.Subscriber.SubscribeNotifications(ctx, func(handlerCtx context.Context, intent domain.NotificationIntent) error {
		deliverCtx, cancel := context.WithTimeout(handlerCtx, cfg.WorkerDeliverTimeout)
		defer cancel()

		started := time.Now()
		workerMetrics.StartDelivery()
		err := app.Inbox.Deliver(deliverCtx, intent)
		workerMetrics.FinishDelivery(intent.MessageKey, time.Since(started), err)
		return err
	})
	if err != nil {
		slog.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
