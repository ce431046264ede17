package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.GateDecision("allowed", "public")
	m.GateDecision("allowed", "public")
	m.GateDecision("not allowed", "invalid token")
	m.AuthOperation("login", nil)
	m.AuthOperation("login", errors.New("bad credentials"))
	m.UserOperation("create", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.gateDecisions.WithLabelValues("allowed", "public")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gateDecisions.WithLabelValues("not allowed", "invalid token")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authOperations.WithLabelValues("login", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authOperations.WithLabelValues("login", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.userOperations.WithLabelValues("create", "success")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.GateDecision("allowed", "public")
	m.AuthOperation("login", nil)
	m.UserOperation("create", nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.AuthOperation("rotate", nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `usersvc_auth_operations_total{operation="rotate",result="success"} 1`)
}
