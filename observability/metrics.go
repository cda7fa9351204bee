package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ContractMetricsRegistry records SDK contract operations.
type ContractMetricsRegistry struct {
	calls    *prometheus.CounterVec
	failures *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// RPCMetricsRegistry records traffic leaving the chain connection.
type RPCMetricsRegistry struct {
	requests *prometheus.CounterVec
	waits    *prometheus.HistogramVec
}

var (
	contractMetricsOnce sync.Once
	contractRegistry    *ContractMetricsRegistry

	rpcMetricsOnce sync.Once
	rpcRegistry    *RPCMetricsRegistry
)

// ContractMetrics returns the lazily-initialised registry used by contract
// clients.
func ContractMetrics() *ContractMetricsRegistry {
	contractMetricsOnce.Do(func() {
		contractRegistry = &ContractMetricsRegistry{
			calls: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "contractus",
				Subsystem: "contract",
				Name:      "operations_total",
				Help:      "Contract operations segmented by contract, operation and outcome.",
			}, []string{"contract", "operation", "outcome"}),
			failures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "contractus",
				Subsystem: "contract",
				Name:      "failures_total",
				Help:      "Failed contract operations segmented by error kind.",
			}, []string{"contract", "operation", "kind"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "contractus",
				Subsystem: "contract",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for contract operations, including receipt waits.",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			}, []string{"contract", "operation"}),
		}
		prometheus.MustRegister(
			contractRegistry.calls,
			contractRegistry.failures,
			contractRegistry.latency,
		)
	})
	return contractRegistry
}

// ObserveContractCall records one contract operation. kind is empty on
// success and names the error class otherwise.
func (m *ContractMetricsRegistry) ObserveContractCall(contract, operation, kind string, elapsed time.Duration) {
	if m == nil {
		return
	}
	contract = labelOrUnknown(contract)
	operation = labelOrUnknown(operation)
	outcome := "success"
	if kind != "" {
		outcome = "error"
		m.failures.WithLabelValues(contract, operation, kind).Inc()
	}
	m.calls.WithLabelValues(contract, operation, outcome).Inc()
	m.latency.WithLabelValues(contract, operation).Observe(elapsed.Seconds())
}

// RPCMetrics returns the lazily-initialised registry used by the chain
// connection transport.
func RPCMetrics() *RPCMetricsRegistry {
	rpcMetricsOnce.Do(func() {
		rpcRegistry = &RPCMetricsRegistry{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "contractus",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "JSON-RPC HTTP requests segmented by host and outcome.",
			}, []string{"host", "outcome"}),
			waits: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "contractus",
				Subsystem: "rpc",
				Name:      "throttle_wait_seconds",
				Help:      "Time spent waiting on the client-side rate limiter.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"host"}),
		}
		prometheus.MustRegister(rpcRegistry.requests, rpcRegistry.waits)
	})
	return rpcRegistry
}

// ObserveRequest records the outcome of one HTTP round trip.
func (m *RPCMetricsRegistry) ObserveRequest(host string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.requests.WithLabelValues(labelOrUnknown(host), outcome).Inc()
}

// ObserveThrottle records time spent blocked on the rate limiter.
func (m *RPCMetricsRegistry) ObserveThrottle(host string, waited time.Duration) {
	if m == nil {
		return
	}
	m.waits.WithLabelValues(labelOrUnknown(host)).Observe(waited.Seconds())
}

func labelOrUnknown(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
