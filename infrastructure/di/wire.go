//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	"csgclient/application/ports"
	querybus "csgclient/application/queries/bus"
	"csgclient/application/services"
	"csgclient/infrastructure/config"
	"csgclient/infrastructure/persistence/filestore"
	"csgclient/infrastructure/upstream"
	"csgclient/pkg/errors"
	"csgclient/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *zap.Logger
	ErrorHandler *errors.ErrorHandler
	Metrics      *observability.Collector
	Tracing      *observability.TracerProvider
	Store        *filestore.Store
	Watcher      *filestore.CatalogWatcher
	Upstream     *upstream.Client
	Analysis     *services.AnalysisService
	QueryBus     *querybus.QueryBus
}

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideErrorHandler,
	ProvideMetrics,
	ProvideTracing,
	ProvideUpstreamSetting,
	ProvideStore,
	ProvideCatalogWatcher,
	ProvideUpstreamClient,
	ProvideNormalizer,
	ProvideEnvelopeBuilder,
	services.NewAnalysisService,
	ProvideQueryBus,
	wire.Bind(new(ports.UpstreamConfig), new(*config.UpstreamSetting)),
	wire.Bind(new(ports.UpstreamGateway), new(*upstream.Client)),
	wire.Bind(new(ports.UseCaseRepository), new(*filestore.Store)),
	wire.Bind(new(ports.NormalizationObserver), new(*observability.Collector)),
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container. The returned cleanup
// flushes traces and closes the logger.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil // Wire will replace this
}
