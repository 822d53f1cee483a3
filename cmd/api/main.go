package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"csgclient/infrastructure/config"
	"csgclient/infrastructure/di"
	"csgclient/interfaces/http/rest"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, cleanup, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer cleanup()
	logger := container.Logger

	router := rest.NewRouter(
		cfg,
		container.Analysis,
		container.QueryBus,
		container.ErrorHandler,
		container.Metrics,
		logger,
	)

	// WriteTimeout leaves room for the slowest upstream analysis.
	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.UpstreamTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		upstream, configured := container.Analysis.UpstreamURL()
		logger.Info("Starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
			zap.String("data_dir", container.Store.Dir()),
			zap.String("upstream", upstream),
			zap.Bool("upstream_configured", configured),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if container.Watcher != nil {
		g.Go(func() error {
			return container.Watcher.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		cleanup()
		os.Exit(1)
	}
	logger.Info("Server stopped")
}
