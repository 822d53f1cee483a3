package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"csgclient/application/services"
	"csgclient/pkg/common"
	"csgclient/pkg/errors"
	"csgclient/pkg/utils"
)

// AnalysisHandler serves the upstream proxy and upstream configuration endpoints
type AnalysisHandler struct {
	service    *services.AnalysisService
	errHandler *errors.ErrorHandler
	logger     *zap.Logger
}

func NewAnalysisHandler(service *services.AnalysisService, errHandler *errors.ErrorHandler, logger *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{service: service, errHandler: errHandler, logger: logger}
}

// Analyze handles POST /upstream/analyze
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	if err := common.ParseJSONBody(r, &body, common.DefaultMaxBodyBytes, false); err != nil {
		h.errHandler.Handle(w, r, errors.NewInvalidJSONError(err))
		return
	}
	if body == nil {
		body = make(map[string]interface{})
	}

	env, err := h.service.Analyze(r.Context(), body)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, env)
}

// Schema handles GET /schema
func (h *AnalysisHandler) Schema(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.Schema(r.Context())
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, doc)
}

// SaveData handles POST /data
func (h *AnalysisHandler) SaveData(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, h.service.SaveData)
}

// MockAnalysis handles POST /analysis/mock
func (h *AnalysisHandler) MockAnalysis(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, h.service.MockAnalysis)
}

// forward relays an optional JSON body to the upstream; an empty body is sent as {}
func (h *AnalysisHandler) forward(w http.ResponseWriter, r *http.Request, call func(context.Context, interface{}) (interface{}, error)) {
	var body interface{}
	if r.ContentLength != 0 {
		if err := common.ParseJSONBody(r, &body, common.DefaultMaxBodyBytes, false); err != nil {
			h.errHandler.Handle(w, r, errors.NewInvalidJSONError(err))
			return
		}
	}
	if body == nil {
		body = map[string]interface{}{}
	}

	doc, err := call(r.Context(), body)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, doc)
}

// UpstreamConfigRequest is the body of POST /config/upstream
type UpstreamConfigRequest struct {
	Upstream string `json:"upstream" validate:"required,httpurl"`
}

// UpstreamConfigResponse describes the current upstream setting
type UpstreamConfigResponse struct {
	Upstream   *string `json:"upstream"`
	Configured bool    `json:"configured"`
	Message    string  `json:"message,omitempty"`
}

// GetUpstream handles GET /config/upstream
func (h *AnalysisHandler) GetUpstream(w http.ResponseWriter, r *http.Request) {
	resp := UpstreamConfigResponse{}
	if u, ok := h.service.UpstreamURL(); ok {
		resp.Upstream = &u
		resp.Configured = true
	}
	common.RespondJSON(w, http.StatusOK, resp)
}

// SetUpstream handles POST /config/upstream
func (h *AnalysisHandler) SetUpstream(w http.ResponseWriter, r *http.Request) {
	var req UpstreamConfigRequest
	if err := common.ParseJSONBody(r, &req, 1<<16, true); err != nil {
		h.errHandler.Handle(w, r, errors.NewInvalidJSONError(err))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errHandler.Handle(w, r, errors.NewValidationError(err.Error()))
		return
	}

	u, err := h.service.ConfigureUpstream(req.Upstream)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, UpstreamConfigResponse{
		Upstream:   &u,
		Configured: true,
		Message:    "upstream API updated",
	})
}
