// Package mocks holds testify mocks of the application ports.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"csgclient/application/ports"
	"csgclient/domain/graph"
	"csgclient/domain/usecase"
)

var (
	_ ports.UpstreamGateway       = (*MockUpstreamGateway)(nil)
	_ ports.UpstreamConfig        = (*MockUpstreamConfig)(nil)
	_ ports.UseCaseRepository     = (*MockUseCaseRepository)(nil)
	_ ports.NormalizationObserver = (*MockNormalizationObserver)(nil)
	_ ports.GraphNormalizer       = (*MockGraphNormalizer)(nil)
)

type MockUpstreamGateway struct {
	mock.Mock
}

func (m *MockUpstreamGateway) Analyze(ctx context.Context, body map[string]interface{}) (interface{}, error) {
	args := m.Called(ctx, body)
	return args.Get(0), args.Error(1)
}

func (m *MockUpstreamGateway) Schema(ctx context.Context) (interface{}, error) {
	args := m.Called(ctx)
	return args.Get(0), args.Error(1)
}

func (m *MockUpstreamGateway) SaveData(ctx context.Context, body interface{}) (interface{}, error) {
	args := m.Called(ctx, body)
	return args.Get(0), args.Error(1)
}

func (m *MockUpstreamGateway) MockAnalysis(ctx context.Context, body interface{}) (interface{}, error) {
	args := m.Called(ctx, body)
	return args.Get(0), args.Error(1)
}

type MockUpstreamConfig struct {
	mock.Mock
}

func (m *MockUpstreamConfig) Get() (string, bool) {
	args := m.Called()
	return args.String(0), args.Bool(1)
}

func (m *MockUpstreamConfig) Set(raw string) (string, error) {
	args := m.Called(raw)
	return args.String(0), args.Error(1)
}

type MockUseCaseRepository struct {
	mock.Mock
}

func (m *MockUseCaseRepository) Catalog(ctx context.Context) (*usecase.Catalog, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.Catalog), args.Error(1)
}

func (m *MockUseCaseRepository) LoadResponse(ctx context.Context, uc usecase.UseCase) (interface{}, error) {
	args := m.Called(ctx, uc)
	return args.Get(0), args.Error(1)
}

func (m *MockUseCaseRepository) LoadSchema(ctx context.Context) (interface{}, error) {
	args := m.Called(ctx)
	return args.Get(0), args.Error(1)
}

// MockNormalizationObserver accepts any call; tests that care assert on it
type MockNormalizationObserver struct {
	mock.Mock
}

func (m *MockNormalizationObserver) RecordNormalization(shape string) {
	m.Called(shape)
}

type MockGraphNormalizer struct {
	mock.Mock
}

func (m *MockGraphNormalizer) Normalize(raw interface{}) graph.Result {
	args := m.Called(raw)
	return args.Get(0).(graph.Result)
}
