package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"golang.org/x/sync/errgroup"

	httpserver "github.com/yungbote/employee-directory/internal/http"
	"github.com/yungbote/employee-directory/internal/observability"
	"github.com/yungbote/employee-directory/internal/pkg/logger"
	"github.com/yungbote/employee-directory/internal/realtime"
	"github.com/yungbote/employee-directory/internal/realtime/bus"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Store    Store
	Services Services
	SSEHub   *realtime.SSEHub
	Bus      bus.Bus
	Metrics  *observability.Metrics
	Server   *httpserver.Server

	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading configuration...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(ctx, log, cfg)
}

// NewWithConfig wires the app from an already loaded configuration.
func NewWithConfig(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	otelShutdown := observability.InitOTel(ctx, log, cfg.Otel)

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics()
	}

	store, err := wireStore(ctx, log, cfg.Store)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init store: %w", err)
	}

	hub := realtime.NewSSEHub(log)

	var b bus.Bus
	if cfg.Redis.Addr != "" {
		b, err = bus.NewRedisBus(cfg.Redis, log)
		if err != nil {
			_ = store.Close()
			log.Sync()
			return nil, fmt.Errorf("init redis bus: %w", err)
		}
	}

	svc := wireServices(log, store, wireEmitter(log, hub, b), metrics)
	handlers := wireHandlers(log, svc, store, hub)
	server := wireServer(log, cfg, handlers, metrics)
	server.OnShutdown(hub.CloseAll)

	return &App{
		Log:          log,
		Cfg:          cfg,
		Store:        store,
		Services:     svc,
		SSEHub:       hub,
		Bus:          b,
		Metrics:      metrics,
		Server:       server,
		otelShutdown: otelShutdown,
	}, nil
}

// Run serves HTTP until ctx is cancelled, then drains within the configured
// shutdown timeout.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	ln, err := net.Listen("tcp", a.Cfg.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.Cfg.HTTP.Addr, err)
	}
	return a.Serve(ctx, ln)
}

func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	if a.Bus != nil {
		if err := a.Bus.StartForwarder(gctx, a.SSEHub.Broadcast); err != nil {
			_ = ln.Close()
			return fmt.Errorf("start bus forwarder: %w", err)
		}
	}

	g.Go(func() error {
		a.Log.Info("HTTP server listening", "addr", ln.Addr().String(), "driver", a.Cfg.Store.Driver)
		return a.Server.Serve(ln)
	})

	g.Go(func() error {
		<-gctx.Done()
		a.Log.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), a.Cfg.HTTP.ShutdownTimeout.Duration)
		defer cancel()
		return a.Server.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return err
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Bus != nil {
		if err := a.Bus.Close(); err != nil {
			a.Log.Warn("bus close failed", "error", err)
		}
	}
	if a.Store.Close != nil {
		if err := a.Store.Close(); err != nil {
			a.Log.Warn("store close failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.Cfg.HTTP.ShutdownTimeout.Duration)
		defer cancel()
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	a.Log.Sync()
}
