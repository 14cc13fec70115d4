package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"SignalForge/internal/handler/api"
	"SignalForge/internal/usecase"
	pkgch "SignalForge/pkg/clickhouse"
	"SignalForge/pkg/config"
	xhttp "SignalForge/pkg/http"
	pkgkafka "SignalForge/pkg/kafka"
	applogger "SignalForge/pkg/logger"
	"SignalForge/pkg/queue"
)

// App encapsulates the entire application lifecycle: the production loop,
// the optional live candle collector, the webhook consumer, the retry queue,
// and the ops HTTP server.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	runner     *usecase.CycleRunner
	collector  *usecase.CandleCollector
	consumer   *pkgkafka.Consumer
	wh         pkgkafka.MessageHandler
	retryQueue *queue.RedisQueue
	producer   *pkgkafka.Producer
	chClient   *pkgch.Client
	handler    *api.EngineEchoHandler
	httpServer *xhttp.Server

	// once runs a single cycle and exits instead of watching.
	once bool
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	runner *usecase.CycleRunner,
	collector *usecase.CandleCollector,
	consumer *pkgkafka.Consumer,
	wh pkgkafka.MessageHandler,
	retryQueue *queue.RedisQueue,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
	handler *api.EngineEchoHandler,
) *App {
	return &App{
		cfg:        cfg,
		l:          l,
		runner:     runner,
		collector:  collector,
		consumer:   consumer,
		wh:         wh,
		retryQueue: retryQueue,
		producer:   producer,
		chClient:   chClient,
		handler:    handler,
	}
}

// SetOnce makes Run execute a single cycle and return.
func (a *App) SetOnce(once bool) { a.once = once }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.l

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	if a.collector != nil {
		if a.handler != nil {
			a.handler.SetReadyCheck(a.collector.IsConnected)
		}
		go func() {
			if err := a.collector.Start(ctx); err != nil {
				l.Error("collector error", applogger.Error(err))
			}
		}()
		l.Info("candle collector started", applogger.Strings("symbols", a.cfg.Engine.Symbols))
	}

	if a.consumer != nil && a.wh != nil {
		a.consumer.RegisterHandler(a.wh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("webhook consumer started", applogger.String("topic", a.wh.Topic()))
	}

	if a.retryQueue != nil {
		if err := a.retryQueue.Start(); err != nil {
			l.Error("retry queue start error", applogger.Error(err))
		} else {
			a.retryQueue.StartRetryProcessor()
			l.Info("retry queue started")
		}
	}

	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	if a.once {
		if err := a.runner.RunOnce(ctx); err != nil {
			l.Error("cycle error", applogger.Error(err))
			return err
		}
		if report := a.runner.LastReport(); report != nil {
			l.Info("cycle complete",
				applogger.Int("dispatched", report.Dispatched),
				applogger.Int("skipped", report.Skipped),
				applogger.Int("failed", report.Failed),
			)
		}
		return a.shutdown(ctx)
	}

	interval := a.cfg.Engine.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	go a.runner.Watch(ctx, interval)
	l.Info("production loop started",
		applogger.Duration("interval", interval),
		applogger.Strings("symbols", a.cfg.Engine.Symbols),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	cancel()
	return a.shutdown(context.Background())
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	l := a.l

	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			l.Warn("collector stop error", applogger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.retryQueue != nil {
		if err := a.retryQueue.Stop(shutdownCtx); err != nil {
			l.Warn("retry queue stop error", applogger.Error(err))
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			l.Warn("kafka producer close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
