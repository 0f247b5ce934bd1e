package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterValue sums the counter samples of a family whose labels match.
func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metric:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metric
				}
			}
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestNewCollector(t *testing.T) {
	reg := prometheus.NewRegistry()

	c, err := NewCollector(reg)
	require.NoError(t, err)
	assert.NotNil(t, c.rootFetches)
	assert.NotNil(t, c.lifecycleActions)
	assert.NotNil(t, c.requestDuration)
}

func TestNewCollector_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()

	_, err := NewCollector(reg)
	require.NoError(t, err)

	_, err = NewCollector(reg)
	assert.Error(t, err, "registering twice on one registry should fail")
	assert.Panics(t, func() { MustNewCollector(reg) })
}

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := MustNewCollector(reg)

	c.RecordRootFetch()
	c.RecordRootFetch()
	c.RecordSubtreeFetch()
	c.RecordCacheHit()
	c.RecordStale()
	c.RecordAction("start", OutcomeSuccess)
	c.RecordAction("start", OutcomeFailure)
	c.RecordAction("complete", OutcomeSuccess)
	c.RecordPatch("completion_percentage", OutcomeInvalid)

	assert.Equal(t, 2.0, counterValue(t, reg, "taskboard_root_fetches_total", nil))
	assert.Equal(t, 1.0, counterValue(t, reg, "taskboard_subtree_fetches_total", nil))
	assert.Equal(t, 1.0, counterValue(t, reg, "taskboard_subtree_cache_hits_total", nil))
	assert.Equal(t, 1.0, counterValue(t, reg, "taskboard_stale_responses_total", nil))
	assert.Equal(t, 2.0, counterValue(t, reg, "taskboard_lifecycle_actions_total", map[string]string{"action": "start"}))
	assert.Equal(t, 2.0, counterValue(t, reg, "taskboard_lifecycle_actions_total", map[string]string{"outcome": OutcomeSuccess}))
	assert.Equal(t, 1.0, counterValue(t, reg, "taskboard_patches_total", map[string]string{"field": "completion_percentage", "outcome": OutcomeInvalid}))
}

func TestNilCollector(t *testing.T) {
	var c *Collector

	assert.NotPanics(t, func() {
		c.RecordRootFetch()
		c.RecordSubtreeFetch()
		c.RecordCacheHit()
		c.RecordStale()
		c.RecordAction("start", OutcomeSuccess)
		c.RecordPatch("title", OutcomeSuccess)
		c.ObserveRequest(http.MethodGet, "/health", http.StatusOK, time.Millisecond)
	})
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := MustNewCollector(reg)
	c.ObserveRequest(http.MethodPost, "/projects/department-tasks/{id}/start", http.StatusOK, 20*time.Millisecond)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "taskboard_http_request_duration_seconds_count")
	assert.Contains(t, string(body), `status="200"`)
}
