package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ErrorResponse is the JSON body of every error answer
type ErrorResponse struct {
	Error     bool                   `json:"error"`
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Code      string                 `json:"code,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	TraceID   string                 `json:"trace_id,omitempty"`
}

// ErrorHandler turns errors into HTTP responses and logs them
type ErrorHandler struct {
	logger *zap.Logger
	debug  bool
}

func NewErrorHandler(logger *zap.Logger, debug bool) *ErrorHandler {
	return &ErrorHandler{logger: logger, debug: debug}
}

// Handle writes err as a JSON error response. AppErrors keep their status;
// anything else is a 500 with a generic message outside debug mode.
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	requestID := requestIDFrom(r)
	traceID := traceIDFrom(r)

	appErr := GetAppError(err)
	if appErr == nil {
		h.logger.Error("Unhandled error",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestID),
		)
		message := "An internal error occurred"
		if h.debug {
			message = err.Error()
		}
		h.sendJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:     true,
			Type:      string(ErrorTypeInternal),
			Message:   message,
			RequestID: requestID,
			TraceID:   traceID,
		})
		return
	}

	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	h.logError(r, appErr, status, requestID)

	details := appErr.Details
	if h.debug && appErr.StackTrace != "" {
		details = make(map[string]interface{}, len(appErr.Details)+1)
		for k, v := range appErr.Details {
			details[k] = v
		}
		details["stack_trace"] = appErr.StackTrace
	}

	h.sendJSON(w, status, ErrorResponse{
		Error:     true,
		Type:      string(appErr.Type),
		Message:   appErr.Message,
		Code:      appErr.Code,
		Details:   details,
		RequestID: requestID,
		TraceID:   traceID,
	})
}

// HandleStatus sends an error response with a specific status code
func (h *ErrorHandler) HandleStatus(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.logger.Warn("HTTP error",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("message", message),
	)
	h.sendJSON(w, status, ErrorResponse{
		Error:     true,
		Type:      statusToErrorType(status),
		Message:   message,
		RequestID: requestIDFrom(r),
		TraceID:   traceIDFrom(r),
	})
}

func statusToErrorType(status int) string {
	switch {
	case status == http.StatusNotFound:
		return string(ErrorTypeNotFound)
	case status == http.StatusBadGateway:
		return string(ErrorTypeExternal)
	case status == http.StatusGatewayTimeout || status == http.StatusRequestTimeout:
		return string(ErrorTypeTimeout)
	case status >= 400 && status < 500:
		return string(ErrorTypeValidation)
	default:
		return string(ErrorTypeInternal)
	}
}

func (h *ErrorHandler) logError(r *http.Request, err *AppError, status int, requestID string) {
	fields := []zap.Field{
		zap.String("error_type", string(err.Type)),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("request_id", requestID),
	}
	if err.Code != "" {
		fields = append(fields, zap.String("error_code", err.Code))
	}
	if err.Cause != nil {
		fields = append(fields, zap.Error(err.Cause))
	}

	switch {
	case status >= 500:
		h.logger.Error(err.Message, fields...)
	case status >= 400:
		h.logger.Warn(err.Message, fields...)
	default:
		h.logger.Info(err.Message, fields...)
	}
}

func (h *ErrorHandler) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode error response", zap.Error(err))
	}
}

// Middleware recovers panics into 500 responses
func (h *ErrorHandler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				h.Handle(w, r, NewInternalError(fmt.Sprintf("panic: %v", rec)))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func requestIDFrom(r *http.Request) string {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return r.Header.Get("X-Request-ID")
}

func traceIDFrom(r *http.Request) string {
	sc := trace.SpanContextFromContext(r.Context())
	if sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}
