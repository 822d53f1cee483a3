package services

import (
	"go.uber.org/zap"

	"csgclient/application/ports"
	"csgclient/domain/graph"
	"csgclient/domain/usecase"
)

// Envelope is the response shape shared by /upstream/analyze and
// /use-cases/{id}.
type Envelope struct {
	UseCase      *usecase.UseCase `json:"use_case,omitempty"`
	Analysis     interface{}      `json:"analysis"`
	Graph        *graph.Graph     `json:"graph"`
	GraphPresent bool             `json:"graph_present"`
	DataIncluded bool             `json:"data_included"`
}

// EnvelopeBuilder normalizes analysis documents into envelopes
type EnvelopeBuilder struct {
	normalizer ports.GraphNormalizer
	observer   ports.NormalizationObserver
	logger     *zap.Logger
}

func NewEnvelopeBuilder(normalizer ports.GraphNormalizer, observer ports.NormalizationObserver, logger *zap.Logger) *EnvelopeBuilder {
	return &EnvelopeBuilder{normalizer: normalizer, observer: observer, logger: logger}
}

// Build never fails. A diagnostic from the normalizer is logged and the
// envelope carries a null graph.
func (b *EnvelopeBuilder) Build(doc interface{}) Envelope {
	res := b.normalizer.Normalize(doc)
	b.observer.RecordNormalization(string(res.Shape))

	env := Envelope{
		Analysis:     analysisOf(doc),
		DataIncluded: res.OK() && res.Shape.DataBearing(),
	}

	if !res.OK() {
		b.logger.Warn("Normalization degraded to empty graph", zap.Error(res.Diagnostic))
		return env
	}
	if !res.Graph.IsEmpty() {
		g := res.Graph
		env.Graph = &g
		env.GraphPresent = true
	}
	return env
}

// BuildForUseCase is Build with the use case attached
func (b *EnvelopeBuilder) BuildForUseCase(uc usecase.UseCase, doc interface{}) Envelope {
	env := b.Build(doc)
	env.UseCase = &uc
	return env
}

func analysisOf(doc interface{}) interface{} {
	if m, ok := doc.(map[string]interface{}); ok {
		if a, ok := m["analysis"]; ok {
			return a
		}
	}
	return doc
}
