package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsHandler(t *testing.T) {
	m := New()
	m.Actions.WithLabelValues("add-entry", "ok").Inc()
	m.Entries.Set(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Actions.WithLabelValues("add-entry", "ok")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `fintrack_ledger_actions_total{action="add-entry",outcome="ok"} 1`)
	assert.Contains(t, string(body), "fintrack_ledger_entries 3")
}

func TestNewIsIndependent(t *testing.T) {
	a, b := New(), New()
	a.PersistFailures.Inc()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.PersistFailures))
}
