package handlers

import (
	"net/http"

	"csgclient/application/services"
	"csgclient/pkg/common"
	"csgclient/pkg/errors"
)

const removedHint = "file-based endpoints were replaced; use GET /use-cases and GET /use-cases/{id}, or POST /upstream/analyze"

// Endpoint documents one route in the service index
type Endpoint struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

// Endpoints lists the public routes
var Endpoints = []Endpoint{
	{"POST", "/upstream/analyze", "forward an analysis request upstream and normalize the graph"},
	{"GET", "/use-cases", "list recorded use cases"},
	{"GET", "/use-cases/{id}", "recorded use case response with normalized graph"},
	{"GET", "/config/upstream", "current upstream API"},
	{"POST", "/config/upstream", "set the upstream API: {\"upstream\": \"http://host:port\"}"},
	{"GET", "/schema", "response schema, upstream or local"},
	{"POST", "/data", "proxy to upstream /data"},
	{"POST", "/analysis/mock", "proxy to upstream /analysis/mock"},
	{"GET", "/health", "liveness"},
	{"GET", "/ready", "readiness"},
}

// SystemHandler serves the index and compatibility endpoints
type SystemHandler struct {
	service    *services.AnalysisService
	errHandler *errors.ErrorHandler
	version    string
}

func NewSystemHandler(service *services.AnalysisService, errHandler *errors.ErrorHandler, version string) *SystemHandler {
	return &SystemHandler{service: service, errHandler: errHandler, version: version}
}

// Index handles GET /
func (h *SystemHandler) Index(w http.ResponseWriter, r *http.Request) {
	upstream, configured := h.service.UpstreamURL()
	resp := map[string]interface{}{
		"name":                "cybersecurity graph analysis client",
		"version":             h.version,
		"status":              "running",
		"upstream_configured": configured,
		"endpoints":           Endpoints,
	}
	if configured {
		resp["upstream"] = upstream
	}
	common.RespondJSON(w, http.StatusOK, resp)
}

// Removed answers the retired file endpoints with a migration hint
func (h *SystemHandler) Removed(w http.ResponseWriter, r *http.Request) {
	h.errHandler.Handle(w, r, errors.NewEndpointRemovedError(r.URL.Path, removedHint))
}
