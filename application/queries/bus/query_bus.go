package bus

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"go.uber.org/zap"

	"csgclient/pkg/errors"
)

// Query represents a read-only query
type Query interface {
	Validate() error
}

// QueryHandler handles a specific query type
type QueryHandler interface {
	Handle(ctx context.Context, query Query) (interface{}, error)
}

// QueryBus dispatches queries to their handlers by concrete type
type QueryBus struct {
	handlers map[reflect.Type]QueryHandler
	mu       sync.RWMutex
}

func NewQueryBus() *QueryBus {
	return &QueryBus{
		handlers: make(map[reflect.Type]QueryHandler),
	}
}

// Register registers a handler for a query type
func (b *QueryBus) Register(queryType Query, handler QueryHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := reflect.TypeOf(queryType)
	if _, exists := b.handlers[t]; exists {
		return fmt.Errorf("handler already registered for query type %s", t.Name())
	}

	b.handlers[t] = handler
	return nil
}

// Ask validates the query and dispatches it to its handler
func (b *QueryBus) Ask(ctx context.Context, query Query) (interface{}, error) {
	if err := query.Validate(); err != nil {
		return nil, errors.NewValidationError(err.Error()).WithCause(err)
	}

	b.mu.RLock()
	handler, exists := b.handlers[reflect.TypeOf(query)]
	b.mu.RUnlock()

	if !exists {
		return nil, errors.NewInternalError(fmt.Sprintf("no handler registered for query type %T", query))
	}

	return handler.Handle(ctx, query)
}

// QueryHandlerFunc is an adapter to allow functions to be used as handlers
type QueryHandlerFunc func(ctx context.Context, query Query) (interface{}, error)

func (f QueryHandlerFunc) Handle(ctx context.Context, query Query) (interface{}, error) {
	return f(ctx, query)
}

// LoggingMiddleware logs query outcomes and durations
type LoggingMiddleware struct {
	logger *zap.Logger
}

func NewLoggingMiddleware(logger *zap.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{logger: logger}
}

// Wrap wraps a query handler with logging
func (m *LoggingMiddleware) Wrap(next QueryHandler) QueryHandler {
	return QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		start := time.Now()
		result, err := next.Handle(ctx, query)

		fields := []zap.Field{
			zap.String("query", reflect.TypeOf(query).Name()),
			zap.Duration("duration", time.Since(start)),
		}
		if err != nil {
			m.logger.Debug("Query failed", append(fields, zap.Error(err))...)
			return nil, err
		}
		m.logger.Debug("Query handled", fields...)
		return result, nil
	})
}
