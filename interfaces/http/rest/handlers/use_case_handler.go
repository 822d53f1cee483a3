package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"csgclient/application/queries"
	querybus "csgclient/application/queries/bus"
	"csgclient/pkg/common"
	"csgclient/pkg/errors"
)

// UseCaseHandler serves the recorded use case catalog
type UseCaseHandler struct {
	queryBus   *querybus.QueryBus
	errHandler *errors.ErrorHandler
	logger     *zap.Logger
}

func NewUseCaseHandler(queryBus *querybus.QueryBus, errHandler *errors.ErrorHandler, logger *zap.Logger) *UseCaseHandler {
	return &UseCaseHandler{queryBus: queryBus, errHandler: errHandler, logger: logger}
}

// ListUseCases handles GET /use-cases
func (h *UseCaseHandler) ListUseCases(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.ListUseCasesQuery{})
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// GetUseCase handles GET /use-cases/{useCaseID}
func (h *UseCaseHandler) GetUseCase(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "useCaseID")

	result, err := h.queryBus.Ask(r.Context(), queries.GetUseCaseQuery{ID: id})
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}
