package contract_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"contractus/sdk/abis"
	"contractus/sdk/contract"
	"contractus/sdk/internal/simchain"
)

type recordedCall struct {
	contract, operation, kind string
}

type fakeMetrics struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (m *fakeMetrics) ObserveContractCall(contract, operation, kind string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, recordedCall{contract, operation, kind})
}

func (m *fakeMetrics) last() recordedCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[len(m.calls)-1]
}

type harness struct {
	chain   *simchain.Backend
	signer  *bind.TransactOpts
	metrics *fakeMetrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	chain := simchain.New(nil)
	_, signer, err := chain.NewAccount()
	require.NoError(t, err)
	return &harness{chain: chain, signer: signer, metrics: &fakeMetrics{}}
}

func (h *harness) config(address common.Address) contract.Config {
	return contract.Config{
		Name:         "Arbiter",
		Address:      address,
		ABI:          abis.Arbiter,
		Backend:      h.chain,
		Signer:       h.signer,
		Logger:       slog.New(slog.NewJSONHandler(io.Discard, nil)),
		Metrics:      h.metrics,
		PollInterval: time.Millisecond,
	}
}

func (h *harness) deploy(t *testing.T) *contract.Client {
	t.Helper()
	c, result, err := contract.Deploy(context.Background(), contract.DeployConfig{
		Config:   h.config(common.Address{}),
		Bytecode: simchain.ArbiterCode,
	})
	require.NoError(t, err)
	require.Equal(t, crypto.CreateAddress(h.signer.From, 0), result.Address)
	require.Equal(t, result.Address, c.ContractAddress())
	return c
}

func TestDeployBindsMintedAddress(t *testing.T) {
	h := newHarness(t)
	c := h.deploy(t)

	require.Equal(t, contract.Lower(c.ContractAddress()), c.Address())
	version, err := contract.Read[string](context.Background(), c, "version")
	require.NoError(t, err)
	require.Equal(t, "1.0.0", version)
	require.Equal(t, recordedCall{"Arbiter", "version", ""}, h.metrics.last())
}

func TestDeployWithoutContractAddress(t *testing.T) {
	h := newHarness(t)
	h.chain.OmitContractAddress(true)

	_, _, err := contract.Deploy(context.Background(), contract.DeployConfig{
		Config:   h.config(common.Address{}),
		Bytecode: simchain.ArbiterCode,
	})
	require.ErrorIs(t, err, contract.ErrDeployment)
	var deployErr *contract.DeploymentError
	require.True(t, errors.As(err, &deployErr))
	require.NotEqual(t, common.Hash{}, deployErr.TxHash)
	require.Equal(t, "deployment", h.metrics.last().kind)
}

func TestDeployRequiresBytecode(t *testing.T) {
	h := newHarness(t)
	_, _, err := contract.Deploy(context.Background(), contract.DeployConfig{Config: h.config(common.Address{})})
	require.ErrorContains(t, err, "bytecode is required")
}

func TestDeployCheckFailureIsLoggedBeforeSending(t *testing.T) {
	h := newHarness(t)
	var logs bytes.Buffer
	cfg := h.config(common.Address{})
	cfg.Logger = slog.New(slog.NewJSONHandler(&logs, nil))
	before := h.chain.Calls()

	_, _, err := contract.Deploy(context.Background(), contract.DeployConfig{
		Config:   cfg,
		Bytecode: simchain.ArbiterCode,
		Check:    func() error { return errors.New("name is required") },
	})
	require.ErrorContains(t, err, "Arbiter: invalid deploy options: name is required")
	require.Equal(t, before, h.chain.Calls())

	var line map[string]any
	require.NoError(t, json.Unmarshal(logs.Bytes(), &line))
	require.Equal(t, "ERROR", line["level"])
	require.Equal(t, "Arbiter#deploy: failed", line["msg"])
	require.Equal(t, "Arbiter", line["component"])
}

func TestAttachPerformsNoChainIO(t *testing.T) {
	h := newHarness(t)
	addr := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	before := h.chain.Calls()

	first, err := contract.Attach(h.config(addr))
	require.NoError(t, err)
	second, err := contract.Attach(h.config(addr))
	require.NoError(t, err)

	require.Equal(t, before, h.chain.Calls())
	require.Equal(t, first.Address(), second.Address())
	require.Equal(t, "0x00000000000000000000000000000000000000aa", first.Address())
}

func TestAttachValidatesConfig(t *testing.T) {
	h := newHarness(t)
	cfg := h.config(common.Address{})
	cfg.ABI = nil
	_, err := contract.Attach(cfg)
	require.ErrorContains(t, err, "abi is required")

	cfg = h.config(common.Address{})
	cfg.Backend = nil
	_, err = contract.Attach(cfg)
	require.ErrorContains(t, err, "backend is required")
}

func TestTransactWithoutReceiptIsIncomplete(t *testing.T) {
	h := newHarness(t)
	c := h.deploy(t)
	h.chain.WithholdReceipts(true)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Transact(ctx, "addToken", common.HexToAddress("0x01"))
	require.ErrorIs(t, err, contract.ErrTransactionIncomplete)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	var incomplete *contract.TransactionIncompleteError
	require.True(t, errors.As(err, &incomplete))
	require.Equal(t, "Arbiter#addToken", incomplete.Op)
	require.Equal(t, "incomplete", h.metrics.last().kind)
}

func TestTransactRevertCarriesReason(t *testing.T) {
	h := newHarness(t)
	c := h.deploy(t)
	ctx := context.Background()
	token := common.HexToAddress("0x01")

	_, err := c.Transact(ctx, "addToken", token)
	require.NoError(t, err)

	_, err = c.Transact(ctx, "addToken", token)
	require.ErrorIs(t, err, contract.ErrCall)
	var callErr *contract.CallError
	require.True(t, errors.As(err, &callErr))
	require.Equal(t, "token already added", callErr.Reason)
	require.Equal(t, "Arbiter#addToken", callErr.Op)
}

func TestTransactCustomErrorReason(t *testing.T) {
	h := newHarness(t)
	c := h.deploy(t)

	_, outsider, err := h.chain.NewAccount()
	require.NoError(t, err)
	cfg := h.config(c.ContractAddress())
	cfg.Signer = outsider
	stranger, err := contract.Attach(cfg)
	require.NoError(t, err)

	_, err = stranger.Transact(context.Background(), "addToken", common.HexToAddress("0x01"))
	var callErr *contract.CallError
	require.True(t, errors.As(err, &callErr))
	require.Contains(t, callErr.Reason, "AccessControlUnauthorizedAccount")
}

func TestTransactRequiresSigner(t *testing.T) {
	h := newHarness(t)
	cfg := h.config(common.HexToAddress("0x01"))
	cfg.Signer = nil
	c, err := contract.Attach(cfg)
	require.NoError(t, err)

	_, err = c.Transact(context.Background(), "addToken", common.HexToAddress("0x02"))
	require.ErrorIs(t, err, contract.ErrCall)
}

func TestViewRevertReason(t *testing.T) {
	h := newHarness(t)
	c := h.deploy(t)

	_, err := c.Call(context.Background(), "hasVoted", common.Big1, common.HexToAddress("0x0b"))
	var callErr *contract.CallError
	require.True(t, errors.As(err, &callErr))
	require.Equal(t, "unknown proposal", callErr.Reason)
	require.False(t, contract.IsNotFound(err))
}

func TestCallOptionalMapsMissingContractToNil(t *testing.T) {
	h := newHarness(t)
	c, err := contract.Attach(h.config(common.HexToAddress("0x0c")))
	require.NoError(t, err)
	ctx := context.Background()

	out, err := c.CallOptional(ctx, "version")
	require.NoError(t, err)
	require.Nil(t, out)

	version, err := contract.ReadOptional[string](ctx, c, "version")
	require.NoError(t, err)
	require.Nil(t, version)

	_, err = c.Call(ctx, "version")
	require.ErrorIs(t, err, contract.ErrCall)
	require.True(t, contract.IsNotFound(err))
	require.Equal(t, "not_found", h.metrics.last().kind)
}

func TestCallOptionalKeepsGenericFailures(t *testing.T) {
	h := newHarness(t)
	c := h.deploy(t)

	out, err := c.CallOptional(context.Background(), "hasVoted", common.Big1, common.HexToAddress("0x0b"))
	require.Nil(t, out)
	require.ErrorIs(t, err, contract.ErrCall)
}

func TestTransactForEventMissingEvent(t *testing.T) {
	h := newHarness(t)
	c := h.deploy(t)

	_, _, err := c.TransactForEvent(context.Background(), "ProposalCreated", "addToken", common.HexToAddress("0x01"))
	require.ErrorIs(t, err, contract.ErrEventNotFound)
	require.Equal(t, "event_not_found", h.metrics.last().kind)
}

func TestTransactForEventDecodesFields(t *testing.T) {
	h := newHarness(t)
	c := h.deploy(t)
	token := common.HexToAddress("0x01")

	receipt, ev, err := c.TransactForEvent(context.Background(), "TokenAdded", "addToken", token)
	require.NoError(t, err)
	require.Equal(t, receipt.TxHash, ev.Log.TxHash)
	got, err := contract.Arg[common.Address](ev, 0)
	require.NoError(t, err)
	require.Equal(t, token, got)
}

func TestAsRenamesOperation(t *testing.T) {
	h := newHarness(t)
	c := h.deploy(t)

	_, err := contract.Read[bool](context.Background(), c.As("isExecutor"), "hasRole",
		[32]byte(contract.RoleHash("EXECUTOR_ROLE")), h.signer.From)
	require.NoError(t, err)
	require.Equal(t, recordedCall{"Arbiter", "isExecutor", ""}, h.metrics.last())
}

func TestOptionsRoundTrip(t *testing.T) {
	h := newHarness(t)
	c := h.deploy(t)

	opts := c.Options()
	require.Same(t, h.signer, opts.Signer)
	require.Equal(t, time.Millisecond, opts.PollInterval)

	sibling, err := contract.Attach(opts.Config("Proposal", abis.Proposal, common.HexToAddress("0x0d")))
	require.NoError(t, err)
	require.Equal(t, "Proposal", sibling.Name())
}
