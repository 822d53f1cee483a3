package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"csgclient/application/services"
	"csgclient/domain/graph"
	"csgclient/domain/usecase"
	"csgclient/infrastructure/graphdb"
)

const maxResponseBytes = 64 << 20

// Harness replays catalog questions against a running csgclient server and
// records the answers as use case response files.
type Harness struct {
	backend  string
	client   *http.Client
	attempts int
	delay    time.Duration
	sleep    func(context.Context, time.Duration) error
	logger   *zap.Logger
}

func NewHarness(backend string, timeout time.Duration, attempts int, delay time.Duration, logger *zap.Logger) *Harness {
	if attempts < 1 {
		attempts = 1
	}
	return &Harness{
		backend:  strings.TrimRight(backend, "/"),
		client:   &http.Client{Timeout: timeout},
		attempts: attempts,
		delay:    delay,
		sleep:    sleepContext,
		logger:   logger,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// attemptError is one failed call to the backend
type attemptError struct {
	status    int
	message   string
	retryable bool
	cause     error
}

func (e *attemptError) Error() string {
	if e.status != 0 {
		return fmt.Sprintf("HTTP %d: %s", e.status, e.message)
	}
	return e.message
}

func (e *attemptError) Unwrap() error { return e.cause }

func isRetryable(err error) bool {
	var ae *attemptError
	return errors.As(err, &ae) && ae.retryable
}

// CheckBackend verifies the server answers GET /
func (h *Harness) CheckBackend(ctx context.Context) error {
	var index map[string]interface{}
	if err := h.getJSON(ctx, "/", &index); err != nil {
		return fmt.Errorf("backend %s is not reachable: %w", h.backend, err)
	}
	return nil
}

// CheckUpstream returns the server's upstream URL, failing when none is set
func (h *Harness) CheckUpstream(ctx context.Context) (string, error) {
	var resp struct {
		Upstream *string `json:"upstream"`
	}
	if err := h.getJSON(ctx, "/config/upstream", &resp); err != nil {
		return "", fmt.Errorf("could not read upstream configuration: %w", err)
	}
	if resp.Upstream == nil || *resp.Upstream == "" {
		return "", fmt.Errorf(`upstream is not configured; POST {"upstream": "http://host:port"} to %s/config/upstream`, h.backend)
	}
	return *resp.Upstream, nil
}

// Ask posts one question, retrying gateway failures, timeouts and transport
// errors up to the configured number of attempts. It returns the number of
// attempts made.
func (h *Harness) Ask(ctx context.Context, question string) (*services.Envelope, int, error) {
	body, err := json.Marshal(map[string]interface{}{
		"question":     question,
		"include_data": true,
	})
	if err != nil {
		return nil, 0, err
	}

	for attempt := 1; ; attempt++ {
		env, err := h.analyze(ctx, body)
		if err == nil {
			return env, attempt, nil
		}
		if !isRetryable(err) || attempt >= h.attempts || ctx.Err() != nil {
			return nil, attempt, err
		}
		h.logger.Warn("Analyze attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", h.delay),
			zap.Error(err),
		)
		if err := h.sleep(ctx, h.delay); err != nil {
			return nil, attempt, err
		}
	}
}

func (h *Harness) analyze(ctx context.Context, body []byte) (*services.Envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.backend+"/upstream/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &attemptError{message: err.Error(), retryable: ctx.Err() == nil, cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &attemptError{message: err.Error(), retryable: true, cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &attemptError{
			status:    resp.StatusCode,
			message:   errorMessage(data),
			retryable: resp.StatusCode == http.StatusBadGateway || resp.StatusCode == http.StatusGatewayTimeout,
		}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var env services.Envelope
	if err := dec.Decode(&env); err != nil {
		return nil, &attemptError{message: "invalid response: " + err.Error(), cause: err}
	}
	return &env, nil
}

func (h *Harness) getJSON(ctx context.Context, path string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.backend+path, nil)
	if err != nil {
		return err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &attemptError{status: resp.StatusCode, message: errorMessage(data)}
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// errorMessage pulls the message out of an error response body
func errorMessage(data []byte) string {
	var resp struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &resp); err == nil && resp.Message != "" {
		return resp.Message
	}
	s := strings.TrimSpace(string(data))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

// recordedResponse is the response file written for a replayed use case. Its
// data section uses the exporter's field names so serving it reproduces the
// same graph.
type recordedResponse struct {
	Analysis interface{}   `json:"analysis"`
	Data     *recordedData `json:"data,omitempty"`
}

type recordedData struct {
	Nodes         []recordedNode               `json:"nodes"`
	Relationships []graphdb.ExportRelationship `json:"relationships"`
}

// recordedNode is an export node plus the top-level name some upstream
// records carry. Name is only set for unlabeled nodes.
type recordedNode struct {
	graphdb.ExportNode
	Name string `json:"name,omitempty"`
}

func newRecordedResponse(env *services.Envelope) recordedResponse {
	rec := recordedResponse{Analysis: env.Analysis}
	if env.Graph == nil || !env.DataIncluded {
		return rec
	}

	// analysis.data already holds the upstream records verbatim
	if _, ok := graph.Parse(map[string]interface{}{"analysis": env.Analysis}).(graph.AnalysisPayload); ok {
		return rec
	}

	data := &recordedData{
		Nodes:         make([]recordedNode, 0, len(env.Graph.Nodes)),
		Relationships: make([]graphdb.ExportRelationship, 0, len(env.Graph.Edges)),
	}
	for _, n := range env.Graph.Nodes {
		node := recordedNode{ExportNode: graphdb.ExportNode{
			ID:         n.ID,
			Labels:     n.Labels,
			Properties: n.Properties,
		}}
		if len(n.Labels) == 0 && n.Label != n.ID {
			node.Name = n.Label
		}
		data.Nodes = append(data.Nodes, node)
	}
	for _, e := range env.Graph.Edges {
		data.Relationships = append(data.Relationships, graphdb.ExportRelationship{
			Type:       e.Label,
			StartID:    e.From,
			EndID:      e.To,
			Properties: e.Properties,
		})
	}
	rec.Data = data
	return rec
}

// caseResult is one row of the run summary
type caseResult struct {
	UseCase  usecase.UseCase
	Attempts int
	Nodes    int
	Edges    int
	File     string
	Duration time.Duration
	Err      error
}

func (r caseResult) status() string {
	if r.Err != nil {
		return "failed"
	}
	return "ok"
}

// responseSaver is the part of the file store the harness writes through
type responseSaver interface {
	SaveJSON(name string, doc interface{}) (string, error)
}

// Run replays every use case in order and records the successful answers.
func (h *Harness) Run(ctx context.Context, cases []usecase.UseCase, store responseSaver) []caseResult {
	results := make([]caseResult, 0, len(cases))
	for _, uc := range cases {
		start := time.Now()
		res := caseResult{UseCase: uc}

		env, attempts, err := h.Ask(ctx, uc.Question)
		res.Attempts = attempts
		if err == nil {
			if env.Graph != nil {
				res.Nodes = len(env.Graph.Nodes)
				res.Edges = len(env.Graph.Edges)
			}
			res.File, err = store.SaveJSON(uc.ResponseFile, newRecordedResponse(env))
		}
		res.Err = err
		res.Duration = time.Since(start)

		if err != nil {
			h.logger.Error("Use case failed", zap.String("use_case", uc.ID), zap.Error(err))
		} else {
			h.logger.Info("Use case recorded", zap.String("use_case", uc.ID), zap.String("file", res.File))
		}
		results = append(results, res)

		if ctx.Err() != nil {
			break
		}
	}
	return results
}
