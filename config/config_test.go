package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, DefaultRPCEndpoint, cfg.RPCEndpoint)
	require.Equal(t, DefaultPassphraseEnv, cfg.PassphraseEnv)
	require.Equal(t, DefaultPollInterval, cfg.PollInterval)
	require.Equal(t, DefaultTimeout, cfg.Timeout)
	require.Equal(t, DefaultServiceName, cfg.Telemetry.ServiceName)
	require.NoError(t, cfg.Validate())
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "contractus.toml", `RPCEndpoint = "https://rpc.example.org"
ChainID = 11155111
KeystorePath = "./operator.keystore"
RateLimit = 5.0
PollInterval = "250ms"
Debug = true

[contracts]
Arbiter = " 0x52908400098527886E0F7030069857D2E4169EE7 "

[artifacts]
Sigillum = "./build/Sigillum.hex"

[telemetry]
Endpoint = "otel.example.org:4318"
Traces = true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://rpc.example.org", cfg.RPCEndpoint)
	require.Equal(t, uint64(11155111), cfg.ChainID)
	require.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	require.Equal(t, 1, cfg.RateBurst)
	require.True(t, cfg.Debug)
	require.Equal(t, "0x52908400098527886E0F7030069857D2E4169EE7", cfg.Contracts.Arbiter)
	require.Equal(t, "./build/Sigillum.hex", cfg.Artifacts.Sigillum)
	require.True(t, cfg.Telemetry.Traces)
	require.False(t, cfg.Telemetry.Metrics)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "contractus.yaml", `rpc_endpoint: ws://127.0.0.1:8546
rate_limit: 10
rate_burst: 20
timeout: 30s
silent: true
contracts:
  sigillum: "0x52908400098527886e0f7030069857d2e4169ee7"
telemetry:
  service_name: ops
  headers:
    authorization: token
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "ws://127.0.0.1:8546", cfg.RPCEndpoint)
	require.Equal(t, 20, cfg.RateBurst)
	require.Equal(t, 30*time.Second, cfg.Timeout)
	require.True(t, cfg.Silent)
	require.Equal(t, "ops", cfg.Telemetry.ServiceName)
	require.Equal(t, map[string]string{"authorization": "token"}, cfg.Telemetry.Headers)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeFile(t, "c.toml", "ListenAddress = \":6001\"\n"))
	require.ErrorContains(t, err, "unknown key")

	_, err = Load(writeFile(t, "c.yml", "listen: \":6001\"\n"))
	require.Error(t, err)
}

func TestLoadRejectsUnsupportedExtension(t *testing.T) {
	_, err := Load(writeFile(t, "c.json", "{}"))
	require.ErrorContains(t, err, "unsupported extension")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.ErrorContains(t, err, "read config")
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"scheme":   func(c *Config) { c.RPCEndpoint = "ftp://host" },
		"host":     func(c *Config) { c.RPCEndpoint = "http://" },
		"rate":     func(c *Config) { c.RateLimit = -1 },
		"burst":    func(c *Config) { c.RateBurst = -1 },
		"contract": func(c *Config) { c.Contracts.Regimen = "0x1234" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}

	cfg := Default()
	cfg.RPCEndpoint = "/var/run/geth.ipc"
	require.NoError(t, cfg.Validate())
}
