// Package chain opens the JSON-RPC connection the contract clients run on.
package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"contractus/sdk/contract"
)

// Connection is a dialed endpoint together with its chain ID.
type Connection struct {
	client  *ethclient.Client
	chainID *big.Int
}

// Dial connects to endpoint and fetches the chain ID. The endpoint may be
// http(s), ws(s) or an IPC path; HTTP-only options are ignored for the others.
func Dial(ctx context.Context, endpoint string, opts ...Option) (*Connection, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("chain: endpoint is required")
	}
	cfg := config{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.apply(&cfg)
	}

	clientOpts, err := cfg.clientOptions()
	if err != nil {
		return nil, err
	}
	rpcClient, err := rpc.DialOptions(ctx, endpoint, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("chain: dial: %w", err)
	}
	client := ethclient.NewClient(rpcClient)
	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("chain: fetch chain id: %w", err)
	}
	return &Connection{client: client, chainID: chainID}, nil
}

func (cfg config) clientOptions() ([]rpc.ClientOption, error) {
	httpClient, err := cfg.buildHTTPClient()
	if err != nil {
		return nil, err
	}
	out := []rpc.ClientOption{rpc.WithHTTPClient(httpClient)}
	if len(cfg.headers) > 0 {
		out = append(out, rpc.WithHeaders(cfg.headers))
	}
	switch {
	case len(cfg.jwtSecret) > 0:
		out = append(out, rpc.WithHTTPAuth(jwtAuth(cfg.jwtSecret)))
	case cfg.bearer != "":
		token := cfg.bearer
		out = append(out, rpc.WithHTTPAuth(func(h http.Header) error {
			h.Set("Authorization", "Bearer "+token)
			return nil
		}))
	}
	return out, nil
}

func (cfg config) buildHTTPClient() (*http.Client, error) {
	client := &http.Client{}
	if cfg.httpClient != nil {
		clone := *cfg.httpClient
		client = &clone
	}
	var base http.RoundTripper
	switch rt := client.Transport.(type) {
	case nil:
		base = cfg.withTLS(http.DefaultTransport.(*http.Transport))
	case *http.Transport:
		base = cfg.withTLS(rt)
	default:
		if cfg.tls != nil {
			return nil, fmt.Errorf("chain: tls config needs an *http.Transport, got %T", rt)
		}
		base = rt
	}
	base = newMeteredTransport(base, cfg.rateLimit, cfg.burst)
	if cfg.tracing {
		base = otelhttp.NewTransport(base)
	}
	client.Transport = base
	if cfg.timeout > 0 {
		client.Timeout = cfg.timeout
	}
	return client, nil
}

// withTLS returns a clone of transport carrying the configured TLS settings.
func (cfg config) withTLS(transport *http.Transport) *http.Transport {
	clone := transport.Clone()
	if cfg.tls != nil {
		clone.TLSClientConfig = cfg.tls.Clone()
	}
	return clone
}

// jwtAuth issues a token per request with an iat claim, as nodes reject
// tokens older than a few seconds.
func jwtAuth(secret []byte) rpc.HTTPAuth {
	return func(h http.Header) error {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"iat": time.Now().Unix(),
		})
		signed, err := token.SignedString(secret)
		if err != nil {
			return fmt.Errorf("sign jwt: %w", err)
		}
		h.Set("Authorization", "Bearer "+signed)
		return nil
	}
}

// Backend returns the connection as a contract backend.
func (c *Connection) Backend() contract.Backend {
	return c.client
}

// Client exposes the underlying ethclient.
func (c *Connection) Client() *ethclient.Client {
	return c.client
}

// ChainID returns the chain ID fetched at dial time.
func (c *Connection) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// Transactor builds a signer for key on this chain.
func (c *Connection) Transactor(key *ecdsa.PrivateKey) (*bind.TransactOpts, error) {
	if key == nil {
		return nil, errors.New("chain: signing key is required")
	}
	return bind.NewKeyedTransactorWithChainID(key, c.chainID)
}

// Options bundles the backend and an optional signer into client options.
func (c *Connection) Options(signer *bind.TransactOpts) contract.Options {
	return contract.Options{Backend: c.client, Signer: signer}
}

// Close releases the connection.
func (c *Connection) Close() {
	c.client.Close()
}
