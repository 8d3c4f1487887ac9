package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	require.NoError(t, err)

	c.Decision("reply")
	c.Decision("reply")
	c.Decision("raffle")
	c.Strategy("price")
	c.BackendCall("gemini", "error")
	c.Violation("hashtag")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.decisions.WithLabelValues("reply")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.decisions.WithLabelValues("raffle")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.backends.WithLabelValues("gemini", "error")))

	_, err = New(reg)
	assert.Error(t, err, "double registration fails")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `replybot_watchdog_violations_total{rule="hashtag"} 1`)
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.Decision("x")
		c.Strategy("x")
		c.BackendCall("x", "y")
		c.Violation("x")
	})
}
