package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
	"time"
)

func TestIncrementCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	svc := New(reg, "shop")

	require.NoError(t, svc.IncrementCounter("orders.created", "region", "eu"))
	require.NoError(t, svc.IncrementCounter("orders.created", "region", "eu"))
	require.NoError(t, svc.IncrementCounter("orders.created", "region", "us"))

	expected := `
# HELP orders_created_total Counter orders.created.
# TYPE orders_created_total counter
orders_created_total{application="shop",region="eu"} 2
orders_created_total{application="shop",region="us"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "orders_created_total"))
}

func TestIncrementCounterWithoutApplication(t *testing.T) {
	reg := prometheus.NewRegistry()
	svc := New(reg, "")

	require.NoError(t, svc.IncrementCounter("logins"))

	expected := `
# HELP logins_total Counter logins.
# TYPE logins_total counter
logins_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "logins_total"))
}

func TestOddTags(t *testing.T) {
	svc := New(prometheus.NewRegistry(), "shop")

	assert.ErrorIs(t, svc.IncrementCounter("c", "only-key"), ErrOddTags)
	assert.ErrorIs(t, svc.RecordExecutionTime("t", 1, time.Second, "a"), ErrOddTags)
}

func TestConflictingLabelsReturnError(t *testing.T) {
	svc := New(prometheus.NewRegistry(), "shop")

	require.NoError(t, svc.IncrementCounter("jobs", "queue", "a"))
	assert.Error(t, svc.IncrementCounter("jobs", "worker", "1"))
}

func histogram(t *testing.T, reg *prometheus.Registry, name string) (count uint64, sum float64) {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			count += m.GetHistogram().GetSampleCount()
			sum += m.GetHistogram().GetSampleSum()
		}
		return count, sum
	}
	t.Fatalf("metric %s not found", name)
	return 0, 0
}

func TestRecordExecutionTime(t *testing.T) {
	reg := prometheus.NewRegistry()
	svc := New(reg, "shop")

	require.NoError(t, svc.RecordExecutionTime("checkout.latency", 250, time.Millisecond, "step", "pay"))
	require.NoError(t, svc.RecordExecutionTime("checkout.latency", 2, time.Second, "step", "pay"))

	count, sum := histogram(t, reg, "checkout_latency_seconds")
	assert.Equal(t, uint64(2), count)
	assert.InDelta(t, 2.25, sum, 1e-9)
}

func TestStartStopTimer(t *testing.T) {
	reg := prometheus.NewRegistry()
	svc := New(reg, "shop")

	sample := svc.StartTimer()
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, svc.StopTimer(sample, "db.query", "table", "orders"))
	require.NoError(t, svc.RecordTimer(svc.StartTimer(), "db.query", "table", "orders"))

	count, sum := histogram(t, reg, "db_query_seconds")
	assert.Equal(t, uint64(2), count)
	assert.GreaterOrEqual(t, sum, 0.005)

	assert.Error(t, svc.StopTimer(nil, "db.query"))
}

func TestNames(t *testing.T) {
	assert.Equal(t, "http_server_requests_total", CounterName("http.server.requests"))
	assert.Equal(t, "requests_total", CounterName("requests_total"))
	assert.Equal(t, "_5xx_errors_total", CounterName("5xx-errors"))
	assert.Equal(t, "db_query_seconds", TimerName("db.query"))
	assert.Equal(t, "db_query_seconds", TimerName("db_query_seconds"))
}

func TestConcurrentUse(t *testing.T) {
	reg := prometheus.NewRegistry()
	svc := New(reg, "shop")

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 50; j++ {
				_ = svc.IncrementCounter("hits", "path", "/")
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	expected := `
# HELP hits_total Counter hits.
# TYPE hits_total counter
hits_total{application="shop",path="/"} 400
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "hits_total"))
}

func TestApplicationTagOverridesCommonLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	svc := New(reg, "orders")

	require.NoError(t, svc.IncrementCounter("x", "application", "billing"))
	require.NoError(t, svc.IncrementCounter("x"))
	require.NoError(t, svc.RecordExecutionTime("y", 1, time.Second, "application", "billing"))

	expected := `
# HELP x_total Counter x.
# TYPE x_total counter
x_total{application="billing"} 1
x_total{application="orders"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "x_total"))

	count, _ := histogram(t, reg, "y_seconds")
	assert.Equal(t, uint64(1), count)
}
