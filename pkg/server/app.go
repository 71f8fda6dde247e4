package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	mid "BluffScan/internal/middleware"
	"BluffScan/internal/usecase"
	pkgch "BluffScan/pkg/clickhouse"
	"BluffScan/pkg/config"
	xhttp "BluffScan/pkg/http"
	pkgkafka "BluffScan/pkg/kafka"
	applogger "BluffScan/pkg/logger"
	"BluffScan/pkg/queue"
)

// App encapsulates the entire application lifecycle: the HTTP API, the async
// job queue, the record pipeline, and (with the kafka backend) the run-event
// consumer.
type App struct {
	cfg      *config.Config
	logger   *applogger.Logger
	handler  xhttp.Handler
	consumer *pkgkafka.Consumer
	kh       pkgkafka.MessageHandler
	jobs     *queue.RedisQueue
	pipeline *mid.RecordPipeline
	recorder *usecase.RunRecorder
	chClient *pkgch.Client

	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies. consumer and kh are
// nil unless the kafka backend is configured; jobs is nil when Redis is not
// configured.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	handler xhttp.Handler,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	jobs *queue.RedisQueue,
	pipeline *mid.RecordPipeline,
	recorder *usecase.RunRecorder,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:      cfg,
		logger:   logger,
		handler:  handler,
		consumer: consumer,
		kh:       kh,
		jobs:     jobs,
		pipeline: pipeline,
		recorder: recorder,
		chClient: chClient,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.logger

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Start record pipeline flushing
	if a.pipeline != nil {
		a.pipeline.Start(ctx)
		l.Info("record pipeline started")
	}

	// Start consumer for the kafka backend
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// Start async job queue
	if a.jobs != nil {
		if err := a.jobs.Start(); err != nil {
			l.Error("job queue start error", applogger.Error(err))
			return err
		}
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}
	l.Info("api listening", applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	l := a.logger

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop accepting requests first
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	// Drain the job queue
	if a.jobs != nil {
		if err := a.jobs.Stop(shutdownCtx); err != nil {
			l.Warn("job queue stop error", applogger.Error(err))
		}
	}

	// Stop consumer
	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Stop pipeline flushing, then close its downstream
	if a.pipeline != nil {
		a.pipeline.Stop()
	}
	if a.recorder != nil {
		a.recorder.Close()
	}

	// Close infrastructure clients
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
