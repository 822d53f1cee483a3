package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"csgclient/application/queries"
	querybus "csgclient/application/queries/bus"
	"csgclient/application/services"
	"csgclient/infrastructure/config"
	"csgclient/interfaces/http/rest/handlers"
	"csgclient/interfaces/http/rest/middleware"
	"csgclient/pkg/common"
	"csgclient/pkg/errors"
	"csgclient/pkg/observability"
)

// Version is reported by GET /
const Version = "1.0.0"

// Router creates and configures the HTTP router
type Router struct {
	cfg        *config.Config
	analysis   *services.AnalysisService
	queryBus   *querybus.QueryBus
	errHandler *errors.ErrorHandler
	metrics    *observability.Collector
	logger     *zap.Logger
}

func NewRouter(
	cfg *config.Config,
	analysis *services.AnalysisService,
	queryBus *querybus.QueryBus,
	errHandler *errors.ErrorHandler,
	metrics *observability.Collector,
	logger *zap.Logger,
) *Router {
	return &Router{
		cfg:        cfg,
		analysis:   analysis,
		queryBus:   queryBus,
		errHandler: errHandler,
		metrics:    metrics,
		logger:     logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() *chi.Mux {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(rt.errHandler.Middleware)
	router.Use(middleware.Logger(rt.logger))
	if rt.cfg.EnableMetrics {
		router.Use(middleware.Metrics(rt.metrics))
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: !allowsAnyOrigin(rt.cfg.CORSOrigins),
		MaxAge:           300,
	}))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		rt.errHandler.Handle(w, r, errors.NewNotFoundError("route "+r.URL.Path))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		rt.errHandler.HandleStatus(w, r, http.StatusMethodNotAllowed, "method "+r.Method+" not allowed on "+r.URL.Path)
	})

	system := handlers.NewSystemHandler(rt.analysis, rt.errHandler, Version)
	analysis := handlers.NewAnalysisHandler(rt.analysis, rt.errHandler, rt.logger)
	useCases := handlers.NewUseCaseHandler(rt.queryBus, rt.errHandler, rt.logger)

	router.Get("/", system.Index)
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.cfg.EnableMetrics {
		router.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	router.Post("/upstream/analyze", analysis.Analyze)
	router.Route("/config/upstream", func(r chi.Router) {
		r.Get("/", analysis.GetUpstream)
		r.Post("/", analysis.SetUpstream)
	})
	router.Get("/schema", analysis.Schema)
	router.Post("/data", analysis.SaveData)
	router.Post("/analysis/mock", analysis.MockAnalysis)

	router.Route("/use-cases", func(r chi.Router) {
		r.Get("/", useCases.ListUseCases)
		r.Get("/{useCaseID}", useCases.GetUseCase)
	})

	router.HandleFunc("/files", system.Removed)
	router.HandleFunc("/analysis/{filename}", system.Removed)
	router.HandleFunc("/graph/{filename}", system.Removed)
	router.HandleFunc("/stats/{filename}", system.Removed)

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// readinessCheck reports ready once the use case catalog can be served
func (rt *Router) readinessCheck(w http.ResponseWriter, r *http.Request) {
	_, configured := rt.analysis.UpstreamURL()
	if _, err := rt.queryBus.Ask(r.Context(), queries.ListUseCasesQuery{}); err != nil {
		common.RespondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":              "not ready",
			"reason":              err.Error(),
			"upstream_configured": configured,
		})
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status":              "ready",
		"upstream_configured": configured,
	})
}

func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
