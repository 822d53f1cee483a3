package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"csgclient/application/ports"
	"csgclient/application/queries"
	"csgclient/application/queries/bus"
	"csgclient/application/services"
	"csgclient/pkg/errors"
)

// ListUseCasesHandler returns the catalog
type ListUseCasesHandler struct {
	repo   ports.UseCaseRepository
	logger *zap.Logger
}

func NewListUseCasesHandler(repo ports.UseCaseRepository, logger *zap.Logger) *ListUseCasesHandler {
	return &ListUseCasesHandler{repo: repo, logger: logger}
}

func (h *ListUseCasesHandler) Handle(ctx context.Context, q bus.Query) (interface{}, error) {
	if _, ok := q.(queries.ListUseCasesQuery); !ok {
		return nil, fmt.Errorf("unexpected query type %T", q)
	}
	return h.repo.Catalog(ctx)
}

// GetUseCaseHandler loads a recorded response and wraps it in an envelope
type GetUseCaseHandler struct {
	repo    ports.UseCaseRepository
	builder *services.EnvelopeBuilder
	logger  *zap.Logger
}

func NewGetUseCaseHandler(repo ports.UseCaseRepository, builder *services.EnvelopeBuilder, logger *zap.Logger) *GetUseCaseHandler {
	return &GetUseCaseHandler{repo: repo, builder: builder, logger: logger}
}

func (h *GetUseCaseHandler) Handle(ctx context.Context, q bus.Query) (interface{}, error) {
	query, ok := q.(queries.GetUseCaseQuery)
	if !ok {
		return nil, fmt.Errorf("unexpected query type %T", q)
	}

	catalog, err := h.repo.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	uc, found := catalog.Find(query.ID)
	if !found {
		return nil, errors.NewNotFoundError(fmt.Sprintf("use case '%s'", query.ID))
	}

	doc, err := h.repo.LoadResponse(ctx, uc)
	if err != nil {
		return nil, err
	}

	env := h.builder.BuildForUseCase(uc, doc)
	h.logger.Debug("Use case served",
		zap.String("use_case", uc.ID),
		zap.Bool("graph_present", env.GraphPresent),
	)
	return &env, nil
}

// Register wires both handlers into the bus
func Register(b *bus.QueryBus, list *ListUseCasesHandler, get *GetUseCaseHandler, logger *zap.Logger) error {
	mw := bus.NewLoggingMiddleware(logger)
	if err := b.Register(queries.ListUseCasesQuery{}, mw.Wrap(list)); err != nil {
		return err
	}
	return b.Register(queries.GetUseCaseQuery{}, mw.Wrap(get))
}
