package di

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"csgclient/application/queries/bus"
	"csgclient/application/queries/handlers"
	"csgclient/application/services"
	"csgclient/domain/graph"
	"csgclient/infrastructure/config"
	"csgclient/infrastructure/persistence/filestore"
	"csgclient/infrastructure/upstream"
	"csgclient/pkg/errors"
	"csgclient/pkg/observability"
)

const serviceName = "csgclient"

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	var zcfg zap.Config
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zcfg.Build()
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { _ = logger.Sync() }
	return logger, cleanup, nil
}

// ProvideErrorHandler exposes stack traces outside production
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *errors.ErrorHandler {
	return errors.NewErrorHandler(logger, cfg.IsDevelopment())
}

func ProvideMetrics() *observability.Collector {
	return observability.NewCollector(serviceName)
}

// ProvideTracing installs the global tracer provider
func ProvideTracing(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*observability.TracerProvider, func(), error) {
	tp, err := observability.InitTracing(ctx, cfg.EnableTracing, serviceName, cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn("Tracer shutdown failed", zap.Error(err))
		}
	}
	return tp, cleanup, nil
}

func ProvideUpstreamSetting(cfg *config.Config) *config.UpstreamSetting {
	return config.NewUpstreamSetting(cfg)
}

func ProvideStore(cfg *config.Config, metrics *observability.Collector, logger *zap.Logger) (*filestore.Store, error) {
	return filestore.NewStore(cfg, metrics, logger)
}

// ProvideCatalogWatcher returns nil when catalog watching is disabled
func ProvideCatalogWatcher(cfg *config.Config, store *filestore.Store, metrics *observability.Collector, logger *zap.Logger) (*filestore.CatalogWatcher, error) {
	if !cfg.WatchCatalog {
		return nil, nil
	}
	return filestore.NewCatalogWatcher(store, metrics, logger)
}

// ProvideUpstreamClient takes the tracer provider so spans are exported from
// the first call.
func ProvideUpstreamClient(
	cfg *config.Config,
	setting *config.UpstreamSetting,
	metrics *observability.Collector,
	_ *observability.TracerProvider,
	logger *zap.Logger,
) *upstream.Client {
	return upstream.NewClient(cfg, setting, metrics, logger)
}

func ProvideNormalizer() *graph.Normalizer {
	return graph.NewNormalizer(graph.DefaultOptions())
}

func ProvideEnvelopeBuilder(normalizer *graph.Normalizer, metrics *observability.Collector, logger *zap.Logger) *services.EnvelopeBuilder {
	return services.NewEnvelopeBuilder(normalizer, metrics, logger)
}

// ProvideQueryBus creates the query bus with the use case handlers registered
func ProvideQueryBus(store *filestore.Store, builder *services.EnvelopeBuilder, logger *zap.Logger) (*bus.QueryBus, error) {
	b := bus.NewQueryBus()
	err := handlers.Register(b,
		handlers.NewListUseCasesHandler(store, logger),
		handlers.NewGetUseCaseHandler(store, builder, logger),
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register query handlers: %w", err)
	}
	return b, nil
}
