// File: internal/metrics/metrics_test.go
package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/access-provisioner/internal/provision"
	"github.com/xkilldash9x/access-provisioner/internal/reporting"
)

var _ provision.OutcomeRecorder = (*Collector)(nil)

// gathered returns the value of every sample of family name keyed by its
// first label value, or "" when unlabeled.
func gathered(t *testing.T, c *Collector, name string) map[string]float64 {
	t.Helper()
	families, err := c.Registry().Gather()
	require.NoError(t, err)

	out := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			key := ""
			if labels := m.GetLabel(); len(labels) > 0 {
				key = labels[0].GetValue()
			}
			switch {
			case m.GetCounter() != nil:
				out[key] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[key] = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				out[key] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return out
}

func TestRecordOutcome(t *testing.T) {
	c := NewCollector()
	c.RecordOutcome("success", 3*time.Second)
	c.RecordOutcome("success", 4*time.Second)
	c.RecordOutcome("FrameNotFound", 15*time.Second)

	counts := gathered(t, c, "access_provisioner_records_total")
	assert.Equal(t, 2.0, counts["success"])
	assert.Equal(t, 1.0, counts["FrameNotFound"])

	samples := gathered(t, c, "access_provisioner_record_duration_seconds")
	assert.Equal(t, 2.0, samples["success"])
}

func TestObserveRun(t *testing.T) {
	c := NewCollector()
	c.ObserveRun(reporting.Summary{Total: 4, SuccessRate: 75, ElapsedSeconds: 42.5})

	assert.Equal(t, 4.0, gathered(t, c, "access_provisioner_last_run_records")[""])
	assert.Equal(t, 75.0, gathered(t, c, "access_provisioner_last_run_success_rate_percent")[""])
	assert.Equal(t, 42.5, gathered(t, c, "access_provisioner_last_run_elapsed_seconds")[""])
}

func TestPush(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		var (
			mu     sync.Mutex
			method string
			path   string
			body   string
		)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b, _ := io.ReadAll(r.Body)
			mu.Lock()
			method, path, body = r.Method, r.URL.Path, string(b)
			mu.Unlock()
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		c := NewCollector()
		c.RecordOutcome("success", time.Second)
		require.NoError(t, c.Push(context.Background(), srv.URL, "access_provisioner"))

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, http.MethodPut, method)
		assert.Equal(t, "/metrics/job/access_provisioner", path)
		assert.NotEmpty(t, body)
	})

	t.Run("GatewayError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		err := NewCollector().Push(context.Background(), srv.URL, "job")
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "failed to push metrics"))
	})
}
