package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Records(t *testing.T) {
	c := NewCollector("csg_test")

	c.RecordHTTPRequest(http.MethodGet, "/use-cases", 200, 10*time.Millisecond)
	c.RecordUpstreamCall("analyze", nil, time.Second)
	c.RecordUpstreamCall("analyze", errors.New("down"), time.Second)
	c.RecordNormalization("analysis")
	c.RecordCacheHit()
	c.RecordCacheMiss()
	c.RecordCacheMiss()

	assert.Equal(t, 1.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "/use-cases", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.UpstreamCalls.WithLabelValues("analyze", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Normalizations.WithLabelValues("analysis")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.CacheMisses))
}

func TestCollector_IndependentRegistries(t *testing.T) {
	require.NotPanics(t, func() {
		NewCollector("csg_test")
		NewCollector("csg_test")
	})
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("csg_test")
	c.RecordNormalization("tree")

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `csg_test_normalizations_total{shape="tree"} 1`)
}

func TestInitTracing_Disabled(t *testing.T) {
	tp, err := InitTracing(context.Background(), false, "csg", "test", "")
	require.NoError(t, err)

	_, span := tp.Tracer().Start(context.Background(), "noop")
	span.End()
	assert.NoError(t, tp.Shutdown(context.Background()))
}
