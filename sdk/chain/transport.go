package chain

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"contractus/observability"
)

// meteredTransport records the outcome of every round trip per host. With a
// limiter it first waits for a token and records the wait.
type meteredTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
	metrics *observability.RPCMetricsRegistry
}

func newMeteredTransport(base http.RoundTripper, perSecond float64, burst int) *meteredTransport {
	if burst <= 0 {
		burst = 1
	}
	var limiter *rate.Limiter
	if perSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
	return &meteredTransport{base: base, limiter: limiter, metrics: observability.RPCMetrics()}
}

func (t *meteredTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	host := req.URL.Host
	if t.limiter != nil {
		start := time.Now()
		if err := t.limiter.Wait(req.Context()); err != nil {
			t.metrics.ObserveRequest(host, err)
			return nil, err
		}
		t.metrics.ObserveThrottle(host, time.Since(start))
	}
	resp, err := t.base.RoundTrip(req)
	t.metrics.ObserveRequest(host, err)
	return resp, err
}
