// Package ports declares the interfaces the application layer depends on.
package ports

import (
	"context"

	"csgclient/domain/graph"
	"csgclient/domain/usecase"
)

// UpstreamGateway talks to the external graph analysis service. Every method
// returns the decoded JSON body of the upstream response.
type UpstreamGateway interface {
	Analyze(ctx context.Context, body map[string]interface{}) (interface{}, error)
	Schema(ctx context.Context) (interface{}, error)
	SaveData(ctx context.Context, body interface{}) (interface{}, error)
	MockAnalysis(ctx context.Context, body interface{}) (interface{}, error)
}

// UpstreamConfig exposes the runtime upstream setting
type UpstreamConfig interface {
	Get() (string, bool)
	Set(raw string) (string, error)
}

// UseCaseRepository reads the use case catalog and its recorded responses
type UseCaseRepository interface {
	Catalog(ctx context.Context) (*usecase.Catalog, error)
	LoadResponse(ctx context.Context, uc usecase.UseCase) (interface{}, error)
	LoadSchema(ctx context.Context) (interface{}, error)
}

// GraphNormalizer turns a decoded analysis document into a graph
type GraphNormalizer interface {
	Normalize(raw interface{}) graph.Result
}

// NormalizationObserver is told about each normalization outcome
type NormalizationObserver interface {
	RecordNormalization(shape string)
}
