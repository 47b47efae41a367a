package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := New()

	m.RecordPoolObserved()
	m.RecordPoolObserved()
	m.RecordAdmission("admitted")
	m.RecordFilterRound(false, map[string]string{"burned": "fail", "mutable": "pass"})
	m.RecordExecution("buy", "jito", time.Second, nil)
	m.RecordExecution("buy", "jito", 0, errors.New("dropped"))
	m.SetPositions(2, 3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PoolsObserved))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Admissions.WithLabelValues("admitted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FilterRounds.WithLabelValues("fail")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FilterOutcomes.WithLabelValues("burned", "fail")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExecutionAttempts.WithLabelValues("buy", "jito", "confirmed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExecutionAttempts.WithLabelValues("buy", "jito", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.OpenPositions))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.PendingPositions))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordPoolObserved()
		m.RecordTrade("sell", "closed")
		m.SetPositions(1, 1)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.RecordTrade("sell", "closed")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	res, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `pool_sniper_execution_trades_total{result="closed",side="sell"} 1`)
}
