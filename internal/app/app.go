package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/storelane/auth-engine/internal/config"
	"github.com/storelane/auth-engine/internal/observability"
	"github.com/storelane/auth-engine/internal/service"
)

type App struct {
	Config          *config.Config
	Logger          *slog.Logger
	Server          *http.Server
	Sweeper         *service.SessionSweeper
	Observability   *observability.Runtime
	ShutdownTimeout time.Duration
}

func New(cfg *config.Config, logger *slog.Logger, server *http.Server, sweeper *service.SessionSweeper, runtime *observability.Runtime) *App {
	return &App{
		Config:          cfg,
		Logger:          logger,
		Server:          server,
		Sweeper:         sweeper,
		Observability:   runtime,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}
}

// Run serves HTTP and the background sweeper until ctx is cancelled, then
// drains in-flight requests and flushes telemetry.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfoContext(gctx, "http server starting", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if a.Sweeper != nil {
		g.Go(func() error {
			if err := a.Sweeper.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.ShutdownTimeout)
		defer cancel()
		a.Logger.InfoContext(shutdownCtx, "http server draining")
		return a.Server.Shutdown(shutdownCtx)
	})

	err := g.Wait()

	if a.Observability != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), a.ShutdownTimeout)
		defer cancel()
		if flushErr := a.Observability.Shutdown(flushCtx); flushErr != nil {
			a.Logger.Error("observability shutdown failed", "error", flushErr.Error())
		}
	}
	return err
}
