package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestContractMetricsCountsOutcomes(t *testing.T) {
	m := ContractMetrics()
	require.Same(t, m, ContractMetrics())

	okBefore := testutil.ToFloat64(m.calls.WithLabelValues("Arbiter", "addToken", "success"))
	errBefore := testutil.ToFloat64(m.calls.WithLabelValues("Arbiter", "addToken", "error"))
	kindBefore := testutil.ToFloat64(m.failures.WithLabelValues("Arbiter", "addToken", "call"))

	m.ObserveContractCall("Arbiter", "addToken", "", 10*time.Millisecond)
	m.ObserveContractCall("Arbiter", "addToken", "call", 5*time.Millisecond)

	require.Equal(t, okBefore+1, testutil.ToFloat64(m.calls.WithLabelValues("Arbiter", "addToken", "success")))
	require.Equal(t, errBefore+1, testutil.ToFloat64(m.calls.WithLabelValues("Arbiter", "addToken", "error")))
	require.Equal(t, kindBefore+1, testutil.ToFloat64(m.failures.WithLabelValues("Arbiter", "addToken", "call")))
}

func TestContractMetricsNilSafe(t *testing.T) {
	var m *ContractMetricsRegistry
	require.NotPanics(t, func() { m.ObserveContractCall("x", "y", "", time.Second) })
	var r *RPCMetricsRegistry
	require.NotPanics(t, func() {
		r.ObserveRequest("host", nil)
		r.ObserveThrottle("host", time.Second)
	})
}

func TestRPCMetricsLabelsUnknownHost(t *testing.T) {
	m := RPCMetrics()
	before := testutil.ToFloat64(m.requests.WithLabelValues("unknown", "error"))
	m.ObserveRequest("", errors.New("boom"))
	require.Equal(t, before+1, testutil.ToFloat64(m.requests.WithLabelValues("unknown", "error")))
}
