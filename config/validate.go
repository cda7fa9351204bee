package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Validate checks the settings that would otherwise fail late, after a
// keystore prompt or a dial.
func (cfg *Config) Validate() error {
	if cfg == nil {
		return fmt.Errorf("configuration is missing")
	}
	if err := validateEndpoint(cfg.RPCEndpoint); err != nil {
		return fmt.Errorf("RPCEndpoint: %w", err)
	}
	if cfg.RateLimit < 0 {
		return fmt.Errorf("RateLimit must not be negative")
	}
	if cfg.RateBurst < 0 {
		return fmt.Errorf("RateBurst must not be negative")
	}
	for name, addr := range map[string]string{
		"contracts.Arbiter":  cfg.Contracts.Arbiter,
		"contracts.Regimen":  cfg.Contracts.Regimen,
		"contracts.Sigillum": cfg.Contracts.Sigillum,
		"contracts.Ordo":     cfg.Contracts.Ordo,
	} {
		if addr != "" && !common.IsHexAddress(addr) {
			return fmt.Errorf("%s: invalid address %q", name, addr)
		}
	}
	if cfg.Telemetry.Endpoint != "" {
		if _, err := url.Parse(cfg.Telemetry.Endpoint); err != nil {
			return fmt.Errorf("telemetry.Endpoint: %w", err)
		}
	}
	return nil
}

func validateEndpoint(raw string) error {
	if raw == "" {
		return fmt.Errorf("endpoint is required")
	}
	if strings.HasSuffix(raw, ".ipc") {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
