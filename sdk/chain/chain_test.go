package chain

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"contractus/observability"
)

type rpcServer struct {
	mu      sync.Mutex
	headers []http.Header
}

func (s *rpcServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.headers = append(s.headers, r.Header.Clone())
	s.mu.Unlock()

	var req struct {
		ID     json.RawMessage `json:"id"`
		Method string          `json:"method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	switch req.Method {
	case "eth_chainId":
		resp["result"] = "0x539"
	default:
		resp["error"] = map[string]any{"code": -32601, "message": "method not found"}
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *rpcServer) last() http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headers[len(s.headers)-1]
}

func TestDialFetchesChainID(t *testing.T) {
	srv := &rpcServer{}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	conn, err := Dial(context.Background(), ts.URL, WithHeader("X-Client", "contractus"), WithBearerToken("tok"))
	require.NoError(t, err)
	defer conn.Close()

	require.Equal(t, int64(1337), conn.ChainID().Int64())
	require.Equal(t, "contractus", srv.last().Get("X-Client"))
	require.Equal(t, "Bearer tok", srv.last().Get("Authorization"))
	require.NotNil(t, conn.Backend())
}

func TestDialSignsJWT(t *testing.T) {
	srv := &rpcServer{}
	ts := httptest.NewServer(srv)
	defer ts.Close()
	secret := []byte("0123456789abcdef0123456789abcdef")

	conn, err := Dial(context.Background(), ts.URL, WithJWTSecret(secret))
	require.NoError(t, err)
	defer conn.Close()

	header := srv.last().Get("Authorization")
	require.True(t, strings.HasPrefix(header, "Bearer "))
	token, err := jwt.Parse(strings.TrimPrefix(header, "Bearer "), func(token *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	require.NoError(t, err)
	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	iat, err := claims.GetIssuedAt()
	require.NoError(t, err)
	require.WithinDuration(t, time.Now(), iat.Time, time.Minute)
}

func TestDialWithRateLimitAndTracing(t *testing.T) {
	srv := &rpcServer{}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	conn, err := Dial(context.Background(), ts.URL, WithRateLimit(100, 2), WithTracing(), WithTimeout(5*time.Second))
	require.NoError(t, err)
	defer conn.Close()
	require.Equal(t, int64(1337), conn.ChainID().Int64())
}

func TestDialRejectsEmptyEndpoint(t *testing.T) {
	_, err := Dial(context.Background(), "  ")
	require.ErrorContains(t, err, "endpoint is required")
}

func TestDialSurfacesRPCFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	_, err := Dial(context.Background(), ts.URL)
	require.ErrorContains(t, err, "fetch chain id")
}

func TestTransactor(t *testing.T) {
	srv := &rpcServer{}
	ts := httptest.NewServer(srv)
	defer ts.Close()
	conn, err := Dial(context.Background(), ts.URL)
	require.NoError(t, err)
	defer conn.Close()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	opts, err := conn.Transactor(key)
	require.NoError(t, err)
	require.Equal(t, crypto.PubkeyToAddress(key.PublicKey), opts.From)

	_, err = conn.Transactor(nil)
	require.Error(t, err)

	clientOpts := conn.Options(opts)
	require.Same(t, opts, clientOpts.Signer)
}

func TestWithTLSConfigRaisesMinimum(t *testing.T) {
	cfg := config{}
	WithTLSConfig(&tls.Config{MinVersion: tls.VersionTLS10}).apply(&cfg)
	require.Equal(t, uint16(tls.VersionTLS12), cfg.tls.MinVersion)

	WithTLSConfig(nil).apply(&cfg)
	require.Equal(t, uint16(tls.VersionTLS12), cfg.tls.MinVersion)
}

func TestTLSConfigFromFilesRequiresPair(t *testing.T) {
	_, err := TLSConfigFromFiles("cert.pem", "", "")
	require.ErrorContains(t, err, "both certificate and key")

	cfg, err := TLSConfigFromFiles("", "", "")
	require.NoError(t, err)
	require.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestTLSAppliesToSuppliedTransport(t *testing.T) {
	supplied := &http.Transport{MaxIdleConns: 7}
	cfg := config{}
	WithHTTPClient(&http.Client{Transport: supplied}).apply(&cfg)
	WithTLSConfig(&tls.Config{ServerName: "node.internal"}).apply(&cfg)

	client, err := cfg.buildHTTPClient()
	require.NoError(t, err)
	metered, ok := client.Transport.(*meteredTransport)
	require.True(t, ok)
	inner, ok := metered.base.(*http.Transport)
	require.True(t, ok)
	require.Equal(t, 7, inner.MaxIdleConns)
	require.Equal(t, "node.internal", inner.TLSClientConfig.ServerName)
	require.Nil(t, supplied.TLSClientConfig)
}

func TestTLSRejectsOpaqueTransport(t *testing.T) {
	cfg := config{}
	WithHTTPClient(&http.Client{Transport: roundTripFunc(http.DefaultTransport.RoundTrip)}).apply(&cfg)
	WithTLSConfig(nil).apply(&cfg)

	_, err := cfg.buildHTTPClient()
	require.ErrorContains(t, err, "tls config needs an *http.Transport")

	_, err = Dial(context.Background(), "http://127.0.0.1:1", WithHTTPClient(&http.Client{Transport: roundTripFunc(http.DefaultTransport.RoundTrip)}), WithTLSConfig(nil))
	require.ErrorContains(t, err, "tls config")
}

func requestCount(t *testing.T, host, outcome string) float64 {
	t.Helper()
	observability.RPCMetrics()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "contractus_rpc_requests_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := map[string]string{}
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			if labels["host"] == host && labels["outcome"] == outcome {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestRequestsAreMeteredWithoutRateLimit(t *testing.T) {
	srv := &rpcServer{}
	ts := httptest.NewServer(srv)
	defer ts.Close()
	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	before := requestCount(t, u.Host, "success")

	conn, err := Dial(context.Background(), ts.URL)
	require.NoError(t, err)
	defer conn.Close()

	require.Equal(t, before+1, requestCount(t, u.Host, "success"))
}
