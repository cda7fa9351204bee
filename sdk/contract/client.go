// Package contract is the generic lifecycle shared by every governance
// contract client: deploy or attach, view calls, transactions, receipt event
// extraction and error normalization.
package contract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"contractus/observability/logging"
)

const defaultPollInterval = time.Second

var tracer = otel.Tracer("contractus/sdk/contract")

// Backend is the chain access a client needs: calls, transaction submission
// and receipt lookup. *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// MetricsRecorder receives one observation per client operation. kind is
// empty on success.
type MetricsRecorder interface {
	ObserveContractCall(contract, operation, kind string, elapsed time.Duration)
}

// Config binds a client to a contract.
type Config struct {
	// Name is the contract class used in log lines, e.g. "Arbiter".
	Name    string
	Address common.Address
	ABI     *abi.ABI
	Backend Backend
	// Signer is required for transactions and deployments only.
	Signer *bind.TransactOpts

	Debug  bool
	Silent bool
	Logger *slog.Logger

	Metrics      MetricsRecorder
	PollInterval time.Duration
}

// DeployConfig describes a contract creation.
type DeployConfig struct {
	Config
	Bytecode []byte
	Args     []any
	// Check, when set, validates Args before anything is sent.
	Check func() error
}

// DeployResult identifies a freshly created contract.
type DeployResult struct {
	Address common.Address
	TxHash  common.Hash
}

// StateChangeResult pairs the value decoded from a transaction's events with
// its receipt.
type StateChangeResult[T any] struct {
	Result  T
	Receipt *types.Receipt
}

// Client is an immutable handle on one deployed contract. It is safe for
// concurrent use.
type Client struct {
	name    string
	op      string
	address common.Address
	abi     *abi.ABI
	backend Backend
	signer  *bind.TransactOpts
	bound   *bind.BoundContract
	logger  *slog.Logger
	metrics MetricsRecorder
	poll    time.Duration

	baseLogger *slog.Logger
	debug      bool
	silent     bool
}

// Attach binds a client to an existing address. It performs no chain I/O and
// does not check that code exists at the address.
func Attach(cfg Config) (*Client, error) {
	c, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	c.bind(cfg.Address)
	return c, nil
}

// Deploy submits the creation transaction, waits for its receipt and returns a
// client bound to the minted address.
func Deploy(ctx context.Context, cfg DeployConfig) (*Client, DeployResult, error) {
	c, err := newClient(cfg.Config)
	if err != nil {
		return nil, DeployResult{}, err
	}
	if cfg.Check != nil {
		if err := cfg.Check(); err != nil {
			return nil, DeployResult{}, c.Report(ctx, "deploy", fmt.Errorf("%s: invalid deploy options: %w", c.name, err))
		}
	}
	if len(cfg.Bytecode) == 0 {
		return nil, DeployResult{}, c.Report(ctx, "deploy", fmt.Errorf("%s: bytecode is required", c.name))
	}

	var result DeployResult
	err = c.run(ctx, "deploy", func(ctx context.Context) error {
		if c.signer == nil {
			return &CallError{Op: c.qualified("deploy"), Err: errNoSigner}
		}
		_, tx, _, err := bind.DeployContract(c.transactOpts(ctx), *c.abi, cfg.Bytecode, c.backend, cfg.Args...)
		if err != nil {
			return c.callError("deploy", err)
		}
		receipt, err := c.waitMined(ctx, tx.Hash())
		if err != nil {
			return &TransactionIncompleteError{Op: c.qualified("deploy"), TxHash: tx.Hash(), Err: err}
		}
		if receipt.Status != types.ReceiptStatusSuccessful {
			return &DeploymentError{TxHash: tx.Hash(), Err: errReverted}
		}
		if receipt.ContractAddress == (common.Address{}) {
			return &DeploymentError{TxHash: tx.Hash()}
		}
		c.bind(receipt.ContractAddress)
		result = DeployResult{Address: receipt.ContractAddress, TxHash: tx.Hash()}
		c.logger.DebugContext(ctx, c.qualified("deploy")+": deployed contract",
			"creator", Lower(c.signer.From),
			"address", Lower(receipt.ContractAddress),
			"tx_hash", tx.Hash().Hex(),
			"chain_id", chainID(tx),
		)
		return nil
	})
	if err != nil {
		return nil, DeployResult{}, err
	}
	return c, result, nil
}

func newClient(cfg Config) (*Client, error) {
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = "Contract"
	}
	if cfg.ABI == nil {
		return nil, fmt.Errorf("%s: abi is required", name)
	}
	if cfg.Backend == nil {
		return nil, fmt.Errorf("%s: backend is required", name)
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	return &Client{
		name:    name,
		abi:     cfg.ABI,
		backend: cfg.Backend,
		signer:  cfg.Signer,
		logger:  newLogger(name, cfg),
		metrics: cfg.Metrics,
		poll:    poll,

		baseLogger: cfg.Logger,
		debug:      cfg.Debug,
		silent:     cfg.Silent,
	}, nil
}

func newLogger(name string, cfg Config) *slog.Logger {
	level := logging.ClientLevel(cfg.Debug, cfg.Silent)
	var logger *slog.Logger
	if cfg.Logger != nil {
		logger = logging.WithLevel(cfg.Logger, level)
	} else {
		logger = slog.New(logging.NewHandler(os.Stderr, level))
	}
	return logger.With("component", name, "client_id", uuid.NewString())
}

func (c *Client) bind(address common.Address) {
	c.address = address
	c.bound = bind.NewBoundContract(address, *c.abi, c.backend, c.backend, c.backend)
}

// As returns a copy of the client that reports its operations under op in log
// lines, spans and metrics while calling whatever ABI method it is given.
func (c *Client) As(op string) *Client {
	clone := *c
	clone.op = op
	return &clone
}

// Address returns the contract address in canonical lowercase form.
func (c *Client) Address() string {
	return Lower(c.address)
}

// ContractAddress returns the bound address.
func (c *Client) ContractAddress() common.Address {
	return c.address
}

// Name returns the contract class used in log lines.
func (c *Client) Name() string {
	return c.name
}

// ABI returns the descriptor the client was bound with.
func (c *Client) ABI() *abi.ABI {
	return c.abi
}

// Backend returns the chain access the client was bound with.
func (c *Client) Backend() Backend {
	return c.backend
}

// Logger returns the client's leveled logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// Signer returns the transactor used for writes, or nil for read-only clients.
func (c *Client) Signer() *bind.TransactOpts {
	return c.signer
}

// Report logs err once under op and returns it unchanged. Concrete clients use
// it for failures outside a chain call, such as argument validation or
// decoding a successful result.
func (c *Client) Report(ctx context.Context, op string, err error) error {
	if err != nil {
		c.logFailure(ctx, c.qualified(op), err)
	}
	return err
}

// Call executes a view method and returns its decoded outputs.
func (c *Client) Call(ctx context.Context, method string, args ...any) ([]any, error) {
	return ReadWith(ctx, c, method, func(out []any) ([]any, error) { return out, nil }, args...)
}

// CallOptional behaves like Call but returns nil outputs and no error when the
// address holds no contract or the call returned no data.
func (c *Client) CallOptional(ctx context.Context, method string, args ...any) ([]any, error) {
	out, err := ReadOptionalWith(ctx, c, method, func(out []any) ([]any, error) { return out, nil }, args...)
	if err != nil || out == nil {
		return nil, err
	}
	return *out, nil
}

// Transact submits a state-changing call and waits for its receipt.
func (c *Client) Transact(ctx context.Context, method string, args ...any) (*types.Receipt, error) {
	var receipt *types.Receipt
	err := c.run(ctx, method, func(ctx context.Context) error {
		var err error
		receipt, err = c.transact(ctx, method, args...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// TransactForEvent submits a state-changing call and returns the first log of
// the named event found in the receipt.
func (c *Client) TransactForEvent(ctx context.Context, event, method string, args ...any) (*types.Receipt, *Event, error) {
	var (
		receipt *types.Receipt
		found   *Event
	)
	err := c.run(ctx, method, func(ctx context.Context) error {
		var err error
		receipt, found, err = c.transactForEvent(ctx, c.abi, event, method, args...)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return receipt, found, nil
}

// Read executes a view method and returns its first output as T.
func Read[T any](ctx context.Context, c *Client, method string, args ...any) (T, error) {
	return ReadWith(ctx, c, method, first[T], args...)
}

// ReadOptional is Read with not-found mapped to a nil result.
func ReadOptional[T any](ctx context.Context, c *Client, method string, args ...any) (*T, error) {
	return ReadOptionalWith(ctx, c, method, first[T], args...)
}

// ReadWith executes a view method and converts its outputs with decode.
func ReadWith[T any](ctx context.Context, c *Client, method string, decode func([]any) (T, error), args ...any) (T, error) {
	var value T
	err := c.run(ctx, method, func(ctx context.Context) error {
		out, err := c.call(ctx, method, args...)
		if err != nil {
			return c.callError(method, err)
		}
		value, err = decode(out)
		if err != nil {
			return c.callError(method, fmt.Errorf("decode %s: %w", method, err))
		}
		return nil
	})
	return value, err
}

// ReadOptionalWith is ReadWith with not-found mapped to a nil result.
func ReadOptionalWith[T any](ctx context.Context, c *Client, method string, decode func([]any) (T, error), args ...any) (*T, error) {
	var value *T
	err := c.run(ctx, method, func(ctx context.Context) error {
		out, err := c.call(ctx, method, args...)
		if IsNotFound(err) {
			c.logger.DebugContext(ctx, c.qualified(method)+": nothing at address", "address", c.Address(), "error", err)
			return nil
		}
		if err != nil {
			return c.callError(method, err)
		}
		decoded, err := decode(out)
		if err != nil {
			return c.callError(method, fmt.Errorf("decode %s: %w", method, err))
		}
		value = &decoded
		return nil
	})
	return value, err
}

// Emitted submits a state-changing call and returns one positional argument
// of the first matching event in its receipt.
func Emitted[T any](ctx context.Context, c *Client, method string, field EventField, args ...any) (StateChangeResult[T], error) {
	var result StateChangeResult[T]
	eventABI := field.ABI
	if eventABI == nil {
		eventABI = c.abi
	}
	err := c.run(ctx, method, func(ctx context.Context) error {
		receipt, ev, err := c.transactForEvent(ctx, eventABI, field.Event, method, args...)
		if err != nil {
			return err
		}
		value, err := Arg[T](ev, field.Index)
		if err != nil {
			return &EventNotFoundError{Op: c.qualified(method), Event: field.Event, TxHash: receipt.TxHash}
		}
		result = StateChangeResult[T]{Result: value, Receipt: receipt}
		return nil
	})
	return result, err
}

// Value converts the positional output i of a view call into T.
func Value[T any](out []any, i int) (T, error) {
	var zero T
	if i < 0 || i >= len(out) {
		return zero, fmt.Errorf("output %d out of range (%d outputs)", i, len(out))
	}
	return Convert[T](out[i])
}

// Convert coerces an ABI-decoded value into T. Tuples are matched field by
// field name.
func Convert[T any](v any) (value T, err error) {
	if direct, ok := v.(T); ok {
		return direct, nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("convert %T to %T: %v", v, value, r)
		}
	}()
	if target := reflect.TypeOf(value); target != nil && v != nil {
		if src := reflect.ValueOf(v); src.Type().ConvertibleTo(target) && src.Kind() == target.Kind() {
			return src.Convert(target).Interface().(T), nil
		}
	}
	converted, ok := abi.ConvertType(v, new(T)).(*T)
	if !ok {
		return value, fmt.Errorf("convert %T to %T", v, value)
	}
	return *converted, nil
}

func first[T any](out []any) (T, error) {
	return Value[T](out, 0)
}

func (c *Client) run(ctx context.Context, method string, fn func(ctx context.Context) error) error {
	op := c.opName(method)
	ctx, span := tracer.Start(ctx, c.name+"."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("contract.name", c.name),
			attribute.String("contract.address", c.Address()),
			attribute.String("contract.method", method),
		),
	)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	if c.metrics != nil {
		c.metrics.ObserveContractCall(c.name, op, Kind(err), time.Since(start))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, Kind(err))
		c.logFailure(ctx, c.qualified(method), err)
	}
	return err
}

func (c *Client) logFailure(ctx context.Context, qualified string, err error) {
	attrs := []any{"address", c.Address(), "error", err}
	var callErr *CallError
	if errors.As(err, &callErr) && callErr.Reason != "" {
		attrs = append(attrs, "reason", callErr.Reason)
	}
	c.logger.ErrorContext(ctx, qualified+": failed", attrs...)
}

func (c *Client) opName(method string) string {
	if c.op != "" {
		return c.op
	}
	return method
}

func (c *Client) qualified(method string) string {
	return c.name + "#" + c.opName(method)
}

func (c *Client) callError(method string, err error) error {
	var callErr *CallError
	if errors.As(err, &callErr) {
		return err
	}
	return &CallError{Op: c.qualified(method), Reason: RevertReason(c.abi, err), Err: err}
}

// call packs, executes and unpacks a view method. Empty output is classified
// before decoding so callers can tell a missing contract from a bad reply.
func (c *Client) call(ctx context.Context, method string, args ...any) ([]any, error) {
	def, ok := c.abi.Methods[method]
	if !ok {
		return nil, fmt.Errorf("method %q not in abi", method)
	}
	input, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &c.address, Data: input}
	if c.signer != nil {
		msg.From = c.signer.From
	}
	output, err := c.backend.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, err
	}
	if len(output) == 0 && len(def.Outputs) > 0 {
		code, err := c.backend.CodeAt(ctx, c.address, nil)
		if err != nil {
			return nil, err
		}
		if len(code) == 0 {
			return nil, bind.ErrNoCode
		}
		return nil, errEmptyResult
	}
	return def.Outputs.Unpack(output)
}

func (c *Client) transact(ctx context.Context, method string, args ...any) (*types.Receipt, error) {
	if c.signer == nil {
		return nil, &CallError{Op: c.qualified(method), Err: errNoSigner}
	}
	tx, err := c.bound.Transact(c.transactOpts(ctx), method, args...)
	if err != nil {
		return nil, c.callError(method, err)
	}
	c.logger.DebugContext(ctx, c.qualified(method)+": submitted transaction", "tx_hash", tx.Hash().Hex())

	receipt, err := c.waitMined(ctx, tx.Hash())
	if err != nil {
		return nil, &TransactionIncompleteError{Op: c.qualified(method), TxHash: tx.Hash(), Err: err}
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, &CallError{Op: c.qualified(method), TxHash: tx.Hash(), Err: errReverted}
	}
	logging.Success(ctx, c.logger, c.qualified(method)+": transaction confirmed",
		"tx_hash", tx.Hash().Hex(),
		"block", receipt.BlockNumber,
	)
	return receipt, nil
}

func (c *Client) transactForEvent(ctx context.Context, eventABI *abi.ABI, event, method string, args ...any) (*types.Receipt, *Event, error) {
	receipt, err := c.transact(ctx, method, args...)
	if err != nil {
		return nil, nil, err
	}
	found, ok := FindEvent(eventABI, event, receipt.Logs)
	if !ok {
		return nil, nil, &EventNotFoundError{Op: c.qualified(method), Event: event, TxHash: receipt.TxHash}
	}
	return receipt, found, nil
}

func (c *Client) transactOpts(ctx context.Context) *bind.TransactOpts {
	opts := *c.signer
	opts.Context = ctx
	return &opts
}

// waitMined polls for the receipt until it exists or ctx ends.
func (c *Client) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()
	for {
		receipt, err := c.backend.TransactionReceipt(ctx, hash)
		switch {
		case err == nil && receipt != nil:
			return receipt, nil
		case err != nil && !errors.Is(err, ethereum.NotFound):
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func chainID(tx *types.Transaction) string {
	if id := tx.ChainId(); id != nil && id.Sign() > 0 {
		return id.String()
	}
	return "-"
}
