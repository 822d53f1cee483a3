package services

import (
	"context"

	"go.uber.org/zap"

	"csgclient/application/ports"
	"csgclient/pkg/errors"
)

// AnalysisService fronts the upstream analysis service
type AnalysisService struct {
	upstream ports.UpstreamGateway
	setting  ports.UpstreamConfig
	useCases ports.UseCaseRepository
	builder  *EnvelopeBuilder
	logger   *zap.Logger
}

func NewAnalysisService(
	upstream ports.UpstreamGateway,
	setting ports.UpstreamConfig,
	useCases ports.UseCaseRepository,
	builder *EnvelopeBuilder,
	logger *zap.Logger,
) *AnalysisService {
	return &AnalysisService{
		upstream: upstream,
		setting:  setting,
		useCases: useCases,
		builder:  builder,
		logger:   logger,
	}
}

// Analyze forwards body to the upstream analyzer with include_data forced on
// unless the caller set it, then normalizes the answer.
func (s *AnalysisService) Analyze(ctx context.Context, body map[string]interface{}) (*Envelope, error) {
	if _, ok := s.setting.Get(); !ok {
		return nil, errors.NewUpstreamNotConfiguredError()
	}

	req := make(map[string]interface{}, len(body)+1)
	for k, v := range body {
		req[k] = v
	}
	if _, ok := req["include_data"]; !ok {
		req["include_data"] = true
	}

	doc, err := s.upstream.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}

	env := s.builder.Build(doc)
	s.logger.Info("Upstream analysis normalized",
		zap.Bool("graph_present", env.GraphPresent),
		zap.Bool("data_included", env.DataIncluded),
	)
	return &env, nil
}

// Schema prefers the live upstream schema and falls back to the local file
func (s *AnalysisService) Schema(ctx context.Context) (interface{}, error) {
	if _, ok := s.setting.Get(); ok {
		return s.upstream.Schema(ctx)
	}
	return s.useCases.LoadSchema(ctx)
}

// SaveData proxies to the upstream data endpoint
func (s *AnalysisService) SaveData(ctx context.Context, body interface{}) (interface{}, error) {
	return s.upstream.SaveData(ctx, body)
}

// MockAnalysis proxies to the upstream mock analysis endpoint
func (s *AnalysisService) MockAnalysis(ctx context.Context, body interface{}) (interface{}, error) {
	return s.upstream.MockAnalysis(ctx, body)
}

// UpstreamURL reports the current upstream setting
func (s *AnalysisService) UpstreamURL() (string, bool) {
	return s.setting.Get()
}

// ConfigureUpstream replaces the upstream URL. Invalid values are rejected
// and the previous value is kept.
func (s *AnalysisService) ConfigureUpstream(raw string) (string, error) {
	u, err := s.setting.Set(raw)
	if err != nil {
		return "", errors.NewValidationError(err.Error()).WithCause(err)
	}
	s.logger.Info("Upstream API configured", zap.String("upstream", u))
	return u, nil
}
