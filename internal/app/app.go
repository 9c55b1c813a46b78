package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/dossier-backend/internal/http"
	"github.com/yungbote/dossier-backend/internal/observability"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Metrics  *observability.Metrics
	Services Services
	Router   *gin.Engine

	closers       []func() error
	shutdownTrace func(context.Context) error
}

// New builds every service. The returned App must be closed.
func New(ctx context.Context, cfg Config) (*App, error) {
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	shutdownTrace := observability.InitOTel(ctx, log, cfg.Otel)

	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		metrics = observability.NewMetrics()
	}

	services, closers, err := wireServices(ctx, log, cfg, metrics)
	if err != nil {
		runClosers(log, closers)
		_ = shutdownTrace(ctx)
		log.Sync()
		return nil, err
	}

	handlers := wireHandlers(log, services)
	router := wireRouter(log, cfg, metrics, handlers)

	return &App{
		Log:           log,
		Cfg:           cfg,
		Metrics:       metrics,
		Services:      services,
		Router:        router,
		closers:       closers,
		shutdownTrace: shutdownTrace,
	}, nil
}

// Run serves HTTP until ctx is done, then drains for up to 10s.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	addr := a.Cfg.Addr()
	a.Log.Info("HTTP server listening", "addr", addr)
	err := http.NewServer(addr, a.Router).Run(ctx, shutdownTimeout)
	a.Log.Info("HTTP server stopped")
	return err
}

func (a *App) Close() {
	if a == nil {
		return
	}
	runClosers(a.Log, a.closers)
	a.closers = nil
	if a.shutdownTrace != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.shutdownTrace(ctx); err != nil {
			a.Log.Warn("Trace shutdown failed", "error", err)
		}
		cancel()
	}
	a.Log.Sync()
}

func runClosers(log *logger.Logger, closers []func() error) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			log.Warn("Close failed", "error", err)
		}
	}
}
