package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"

	"contractus/cmd/internal/passphrase"
	"contractus/config"
	"contractus/crypto"
	"contractus/observability"
	"contractus/observability/logging"
	telemetry "contractus/observability/otel"
	"contractus/sdk/chain"
	"contractus/sdk/contract"
)

const serviceName = "contractusctl"

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// app carries the resolved configuration and lazily opened resources of one
// invocation.
type app struct {
	cfg    *config.Config
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger

	conn    *chain.Connection
	signer  *bind.TransactOpts
	closers []func()
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(serviceName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprintln(stderr, usage()) }
	var (
		configPath string
		rpcURL     string
		keystore   string
		debug      bool
		silent     bool
	)
	fs.StringVar(&configPath, "config", "", "Path to a TOML or YAML config file")
	fs.StringVar(&rpcURL, "rpc", "", "JSON-RPC endpoint, overrides the config file")
	fs.StringVar(&keystore, "keystore", "", "Keystore file of the signing account")
	fs.BoolVar(&debug, "debug", false, "Log every client operation")
	fs.BoolVar(&silent, "silent", false, "Log errors only")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fmt.Fprintln(stderr, usage())
		return 2
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if strings.TrimSpace(rpcURL) != "" {
		cfg.RPCEndpoint = strings.TrimSpace(rpcURL)
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}
	if strings.TrimSpace(keystore) != "" {
		cfg.KeystorePath = strings.TrimSpace(keystore)
	}
	cfg.Debug = cfg.Debug || debug
	cfg.Silent = cfg.Silent || silent

	a := &app{cfg: cfg, stdout: stdout, stderr: stderr}
	defer a.close()
	a.logger = a.newLogger()

	shutdown, err := telemetry.Init(ctx, a.telemetryConfig())
	if err != nil {
		fmt.Fprintf(stderr, "Error: telemetry: %v\n", err)
		return 1
	}
	a.closers = append(a.closers, func() {
		if err := shutdown(context.Background()); err != nil {
			a.logger.Warn("telemetry shutdown failed", "error", err)
		}
	})

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	err = a.dispatch(ctx, rest[0], rest[1:])
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		return 2
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
}

func (a *app) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "deploy":
		return a.runDeploy(ctx, args)
	case "arbiter":
		return a.runArbiter(ctx, args)
	case "proposal":
		return a.runProposal(ctx, args)
	case "regimen":
		return a.runRegimen(ctx, args)
	case "sigillum":
		return a.runSigillum(ctx, args)
	case "ordo":
		return a.runOrdo(ctx, args)
	case "keystore":
		return a.runKeystore(args)
	case "metadata":
		return a.runMetadata(args)
	case "help":
		fmt.Fprintln(a.stdout, usage())
		return nil
	default:
		fmt.Fprintf(a.stderr, "Unknown command: %s\n", command)
		fmt.Fprintln(a.stderr, usage())
		return errUsage
	}
}

func usage() string {
	return strings.TrimSpace(`
Usage: contractusctl [global flags] <command> <subcommand> [flags]

Global flags:
  -config <file>    TOML or YAML configuration
  -rpc <url>        JSON-RPC endpoint
  -keystore <file>  keystore of the signing account
  -debug, -silent   client log verbosity

Commands:
  deploy    arbiter | regimen | sigillum | ordo
  arbiter   add-executor | remove-executor | is-executor | add-custodian |
            remove-custodian | is-custodian | add-token | remove-token |
            eligibility | propose | proposal | cancel | execute | version
  proposal  details | results | has-voted | version
  regimen   add-token | remove-token | can-vote | version
  sigillum  mint | burn | token-of | token-uri | metadata | info | propose |
            vote | has-voted | set-arbiter
  ordo      mint | rank
  keystore  new | address
  metadata  decode <data-uri>`)
}

func (a *app) newLogger() *slog.Logger {
	if a.cfg.LogFile != "" {
		logger, closer := logging.SetupFile(serviceName, a.cfg.Telemetry.Environment,
			logging.FileOptions{Path: a.cfg.LogFile, MaxBackups: 3, Compress: true}, slog.LevelDebug)
		a.closers = append(a.closers, func() { _ = closer.Close() })
		return logger
	}
	return slog.New(logging.NewHandler(a.stderr, slog.LevelDebug)).With("service", serviceName)
}

func (a *app) telemetryConfig() telemetry.Config {
	t := a.cfg.Telemetry
	cfg := telemetry.FromEnv(t.ServiceName, t.Environment)
	if t.Endpoint != "" {
		cfg.Endpoint = t.Endpoint
		cfg.Insecure = t.Insecure
		cfg.Metrics = t.Metrics
		cfg.Traces = t.Traces
	}
	if len(t.Headers) > 0 {
		cfg.Headers = t.Headers
	}
	return cfg
}

func (a *app) close() {
	if a.conn != nil {
		a.conn.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *app) connect(ctx context.Context) (*chain.Connection, error) {
	if a.conn != nil {
		return a.conn, nil
	}
	opts := []chain.Option{chain.WithTracing()}
	if a.cfg.RateLimit > 0 {
		opts = append(opts, chain.WithRateLimit(a.cfg.RateLimit, a.cfg.RateBurst))
	}
	if a.cfg.JWTSecretFile != "" {
		secret, err := readHexFile(a.cfg.JWTSecretFile)
		if err != nil {
			return nil, fmt.Errorf("jwt secret: %w", err)
		}
		opts = append(opts, chain.WithJWTSecret(secret))
	}
	a.logger.Debug("dialing chain", "endpoint", logging.RedactEndpoint(a.cfg.RPCEndpoint))
	conn, err := chain.Dial(ctx, a.cfg.RPCEndpoint, opts...)
	if err != nil {
		return nil, err
	}
	if want := a.cfg.ChainID; want != 0 && conn.ChainID().Uint64() != want {
		conn.Close()
		return nil, fmt.Errorf("endpoint serves chain %s, config expects %d", conn.ChainID(), want)
	}
	a.conn = conn
	return conn, nil
}

func (a *app) loadSigner(conn *chain.Connection) (*bind.TransactOpts, error) {
	if a.signer != nil {
		return a.signer, nil
	}
	if a.cfg.KeystorePath == "" {
		return nil, errors.New("a keystore is required for this command; set KeystorePath or -keystore")
	}
	a.logger.Debug("unlocking keystore",
		"keystore", a.cfg.KeystorePath,
		logging.MaskField("passphrase_file", a.cfg.PassphraseFile))
	pass, err := passphrase.NewSource(a.cfg.PassphraseEnv, a.cfg.PassphraseFile).Get()
	if err != nil {
		return nil, err
	}
	key, err := crypto.LoadFromKeystore(a.cfg.KeystorePath, pass)
	if err != nil {
		return nil, fmt.Errorf("unlock keystore: %w", err)
	}
	signer, err := key.Transactor(conn.ChainID())
	if err != nil {
		return nil, err
	}
	a.signer = signer
	return signer, nil
}

// options connects and returns client options. A signer is loaded only when
// the command writes.
func (a *app) options(ctx context.Context, write bool) (contract.Options, error) {
	conn, err := a.connect(ctx)
	if err != nil {
		return contract.Options{}, err
	}
	opts := conn.Options(nil)
	if write {
		signer, err := a.loadSigner(conn)
		if err != nil {
			return contract.Options{}, err
		}
		opts.Signer = signer
	}
	opts.Debug = a.cfg.Debug
	opts.Silent = a.cfg.Silent
	opts.Logger = a.logger
	opts.Metrics = observability.ContractMetrics()
	opts.PollInterval = a.cfg.PollInterval
	return opts, nil
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
