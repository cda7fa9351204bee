package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	DefaultRPCEndpoint   = "http://127.0.0.1:8545"
	DefaultPassphraseEnv = "CONTRACTUS_PASSPHRASE"
	DefaultPollInterval  = time.Second
	DefaultTimeout       = 2 * time.Minute
	DefaultServiceName   = "contractusctl"
)

// Config is the operator configuration of the command line client.
type Config struct {
	RPCEndpoint    string        `toml:"RPCEndpoint" yaml:"rpc_endpoint"`
	ChainID        uint64        `toml:"ChainID" yaml:"chain_id"`
	KeystorePath   string        `toml:"KeystorePath" yaml:"keystore_path"`
	PassphraseEnv  string        `toml:"PassphraseEnv" yaml:"passphrase_env"`
	PassphraseFile string        `toml:"PassphraseFile" yaml:"passphrase_file"`
	JWTSecretFile  string        `toml:"JWTSecretFile" yaml:"jwt_secret_file"`
	RateLimit      float64       `toml:"RateLimit" yaml:"rate_limit"`
	RateBurst      int           `toml:"RateBurst" yaml:"rate_burst"`
	PollInterval   time.Duration `toml:"PollInterval" yaml:"poll_interval"`
	Timeout        time.Duration `toml:"Timeout" yaml:"timeout"`

	Debug   bool   `toml:"Debug" yaml:"debug"`
	Silent  bool   `toml:"Silent" yaml:"silent"`
	LogFile string `toml:"LogFile" yaml:"log_file"`

	Contracts Contracts `toml:"contracts" yaml:"contracts"`
	Artifacts Artifacts `toml:"artifacts" yaml:"artifacts"`
	Telemetry Telemetry `toml:"telemetry" yaml:"telemetry"`
}

// Contracts holds the addresses of already deployed contracts.
type Contracts struct {
	Arbiter  string `toml:"Arbiter" yaml:"arbiter"`
	Regimen  string `toml:"Regimen" yaml:"regimen"`
	Sigillum string `toml:"Sigillum" yaml:"sigillum"`
	Ordo     string `toml:"Ordo" yaml:"ordo"`
}

// Artifacts points at hex encoded creation bytecode files.
type Artifacts struct {
	Arbiter  string `toml:"Arbiter" yaml:"arbiter"`
	Regimen  string `toml:"Regimen" yaml:"regimen"`
	Sigillum string `toml:"Sigillum" yaml:"sigillum"`
	Ordo     string `toml:"Ordo" yaml:"ordo"`
}

// Telemetry configures OTLP export.
type Telemetry struct {
	ServiceName string            `toml:"ServiceName" yaml:"service_name"`
	Environment string            `toml:"Environment" yaml:"environment"`
	Endpoint    string            `toml:"Endpoint" yaml:"endpoint"`
	Insecure    bool              `toml:"Insecure" yaml:"insecure"`
	Headers     map[string]string `toml:"Headers" yaml:"headers"`
	Metrics     bool              `toml:"Metrics" yaml:"metrics"`
	Traces      bool              `toml:"Traces" yaml:"traces"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.normalize()
	return cfg
}

// Load reads a TOML or YAML file, chosen by extension, fills defaults and
// validates the result. An empty path yields Default.
func Load(path string) (*Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		meta, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config file %s has unknown key %s", path, undecoded[0])
		}
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	default:
		return nil, fmt.Errorf("config file %s: unsupported extension %q", path, ext)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) normalize() {
	cfg.RPCEndpoint = strings.TrimSpace(cfg.RPCEndpoint)
	if cfg.RPCEndpoint == "" {
		cfg.RPCEndpoint = DefaultRPCEndpoint
	}
	cfg.PassphraseEnv = strings.TrimSpace(cfg.PassphraseEnv)
	if cfg.PassphraseEnv == "" {
		cfg.PassphraseEnv = DefaultPassphraseEnv
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateLimit > 0 && cfg.RateBurst <= 0 {
		cfg.RateBurst = 1
	}
	cfg.KeystorePath = strings.TrimSpace(cfg.KeystorePath)
	cfg.LogFile = strings.TrimSpace(cfg.LogFile)
	cfg.Contracts.normalize()
	if strings.TrimSpace(cfg.Telemetry.ServiceName) == "" {
		cfg.Telemetry.ServiceName = DefaultServiceName
	}
}

func (c *Contracts) normalize() {
	c.Arbiter = strings.TrimSpace(c.Arbiter)
	c.Regimen = strings.TrimSpace(c.Regimen)
	c.Sigillum = strings.TrimSpace(c.Sigillum)
	c.Ordo = strings.TrimSpace(c.Ordo)
}
