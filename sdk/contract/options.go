package contract

import (
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// Options are the settings accepted by every concrete client.
type Options struct {
	Backend Backend
	// Signer is optional for read-only use.
	Signer *bind.TransactOpts

	Debug  bool
	Silent bool
	Logger *slog.Logger

	Metrics      MetricsRecorder
	PollInterval time.Duration
}

// Config expands o into a client configuration for one contract.
func (o Options) Config(name string, contractABI *abi.ABI, address common.Address) Config {
	return Config{
		Name:         name,
		Address:      address,
		ABI:          contractABI,
		Backend:      o.Backend,
		Signer:       o.Signer,
		Debug:        o.Debug,
		Silent:       o.Silent,
		Logger:       o.Logger,
		Metrics:      o.Metrics,
		PollInterval: o.PollInterval,
	}
}

// Options returns the settings c was built with, for attaching related
// contracts with the same backend, signer and logging.
func (c *Client) Options() Options {
	return Options{
		Backend:      c.backend,
		Signer:       c.signer,
		Debug:        c.debug,
		Silent:       c.silent,
		Logger:       c.baseLogger,
		Metrics:      c.metrics,
		PollInterval: c.poll,
	}
}
