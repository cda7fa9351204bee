package chain

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// Option controls how Dial builds the JSON-RPC connection.
type Option interface {
	apply(*config)
}

type optionFunc func(*config)

func (f optionFunc) apply(cfg *config) {
	f(cfg)
}

type config struct {
	headers    http.Header
	bearer     string
	jwtSecret  []byte
	tls        *tls.Config
	httpClient *http.Client
	tracing    bool
	rateLimit  float64
	burst      int
	timeout    time.Duration
}

// WithHeader adds a static header to every request.
func WithHeader(key, value string) Option {
	return optionFunc(func(cfg *config) {
		if cfg.headers == nil {
			cfg.headers = make(http.Header)
		}
		cfg.headers.Add(key, value)
	})
}

// WithBearerToken authenticates with a fixed bearer token.
func WithBearerToken(token string) Option {
	return optionFunc(func(cfg *config) {
		cfg.bearer = strings.TrimSpace(token)
	})
}

// WithJWTSecret authenticates every request with a fresh HS256 token signed by
// secret, the scheme used by engine-style node endpoints.
func WithJWTSecret(secret []byte) Option {
	return optionFunc(func(cfg *config) {
		cfg.jwtSecret = append([]byte(nil), secret...)
	})
}

// WithTLSConfig configures the HTTPS transport. The configuration is cloned
// and its minimum version raised to TLS 1.2 when unset or lower.
func WithTLSConfig(tlsCfg *tls.Config) Option {
	return optionFunc(func(cfg *config) {
		var clone *tls.Config
		if tlsCfg == nil {
			clone = defaultTLSConfig()
		} else {
			clone = tlsCfg.Clone()
			if clone.MinVersion == 0 || clone.MinVersion < tls.VersionTLS12 {
				clone.MinVersion = tls.VersionTLS12
			}
		}
		cfg.tls = clone
	})
}

// WithHTTPClient replaces the base HTTP client. Its transport is still wrapped
// by metrics, tracing and rate limiting. WithTLSConfig requires the transport
// to be nil or an *http.Transport.
func WithHTTPClient(client *http.Client) Option {
	return optionFunc(func(cfg *config) {
		cfg.httpClient = client
	})
}

// WithTracing records an OpenTelemetry client span per HTTP request.
func WithTracing() Option {
	return optionFunc(func(cfg *config) {
		cfg.tracing = true
	})
}

// WithRateLimit throttles outgoing requests to perSecond with the given burst.
// Non-positive values disable throttling.
func WithRateLimit(perSecond float64, burst int) Option {
	return optionFunc(func(cfg *config) {
		cfg.rateLimit = perSecond
		cfg.burst = burst
	})
}

// WithTimeout bounds every HTTP request.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(cfg *config) {
		cfg.timeout = d
	})
}

// TLSConfigFromFiles loads TLS material from disk. A cert/key pair enables
// mutual authentication; a CA file alone pins the server trust roots. Empty
// paths are ignored.
func TLSConfigFromFiles(certPath, keyPath, caPath string) (*tls.Config, error) {
	certPath = strings.TrimSpace(certPath)
	keyPath = strings.TrimSpace(keyPath)
	caPath = strings.TrimSpace(caPath)

	if (certPath == "") != (keyPath == "") {
		return nil, errors.New("tls requires both certificate and key when enabling mutual authentication")
	}

	cfg := defaultTLSConfig()

	if certPath != "" {
		cert, err := tls.LoadX509KeyPair(certPath, keyPath)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	if caPath != "" {
		pem, err := os.ReadFile(caPath)
		if err != nil {
			return nil, fmt.Errorf("read ca certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.New("parse ca certificate: invalid pem data")
		}
		cfg.RootCAs = pool
	}

	return cfg, nil
}

func defaultTLSConfig() *tls.Config {
	return &tls.Config{MinVersion: tls.VersionTLS12}
}
