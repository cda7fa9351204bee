// Package simchain is an in-memory chain for tests. It implements the
// go-ethereum contract backend interfaces, recovers senders from really
// signed transactions and runs Go emulations of the governance contracts
// behind marker bytecodes, so client code can be exercised end to end
// without a node.
package simchain

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

const gasPerTx = 150_000

// DefaultChainID is used when New is given no chain ID.
var DefaultChainID = big.NewInt(1337)

var errSubscriptions = errors.New("simchain: log subscriptions are not supported")

type instance interface {
	call(e *env, method string, args []any) ([]any, error)
}

type kind struct {
	name   string
	code   []byte
	abi    *abi.ABI
	create func(e *env, args []any) (instance, error)
}

type deployed struct {
	kind *kind
	impl instance
}

// Backend is a single-node chain that seals one block per transaction.
type Backend struct {
	mu sync.Mutex

	chainID *big.Int
	signer  types.Signer
	now     uint64
	block   uint64

	nonces    map[common.Address]uint64
	contracts map[common.Address]*deployed
	receipts  map[common.Hash]*types.Receipt
	logs      []*types.Log
	kinds     []*kind

	withholdReceipts    bool
	omitContractAddress bool
	calls               int
}

// New returns a chain whose clock starts at the current wall time.
func New(chainID *big.Int) *Backend {
	if chainID == nil {
		chainID = DefaultChainID
	}
	b := &Backend{
		chainID:   new(big.Int).Set(chainID),
		signer:    types.LatestSignerForChainID(chainID),
		now:       uint64(time.Now().Unix()),
		nonces:    make(map[common.Address]uint64),
		contracts: make(map[common.Address]*deployed),
		receipts:  make(map[common.Hash]*types.Receipt),
	}
	b.kinds = []*kind{arbiterKind, proposalKind, regimenKind, sigillumKind, ordoKind}
	return b
}

// NewAccount generates a key and a transactor for it on this chain.
func (b *Backend) NewAccount() (*ecdsa.PrivateKey, *bind.TransactOpts, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, nil, err
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, b.chainID)
	if err != nil {
		return nil, nil, err
	}
	return key, opts, nil
}

// ChainID returns the chain identifier used for signing.
func (b *Backend) ChainID(context.Context) (*big.Int, error) {
	return new(big.Int).Set(b.chainID), nil
}

// Now returns the timestamp of the next block.
func (b *Backend) Now() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.now
}

// SetTime moves the block clock to unix.
func (b *Backend) SetTime(unix uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = unix
}

// Advance moves the block clock forward.
func (b *Backend) Advance(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now += uint64(d / time.Second)
}

// WithholdReceipts makes every later transaction execute without its receipt
// ever becoming visible.
func (b *Backend) WithholdReceipts(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.withholdReceipts = on
}

// OmitContractAddress makes later creation receipts report no contract.
func (b *Backend) OmitContractAddress(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.omitContractAddress = on
}

// Calls counts every backend method invocation.
func (b *Backend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func (b *Backend) enter() {
	b.mu.Lock()
	b.calls++
}

// CodeAt implements bind.ContractCaller.
func (b *Backend) CodeAt(_ context.Context, account common.Address, _ *big.Int) ([]byte, error) {
	b.enter()
	defer b.mu.Unlock()
	return b.codeAt(account), nil
}

// PendingCodeAt implements bind.ContractTransactor.
func (b *Backend) PendingCodeAt(_ context.Context, account common.Address) ([]byte, error) {
	b.enter()
	defer b.mu.Unlock()
	return b.codeAt(account), nil
}

func (b *Backend) codeAt(account common.Address) []byte {
	if d, ok := b.contracts[account]; ok {
		return common.CopyBytes(d.kind.code)
	}
	return nil
}

// CallContract implements bind.ContractCaller.
func (b *Backend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	b.enter()
	defer b.mu.Unlock()
	if msg.To == nil {
		return nil, errors.New("simchain: call without recipient")
	}
	out, _, err := b.execute(msg.From, *msg.To, msg.Data, false)
	return out, err
}

// HeaderByNumber implements bind.ContractTransactor. Headers carry no base
// fee, so clients build legacy transactions.
func (b *Backend) HeaderByNumber(_ context.Context, _ *big.Int) (*types.Header, error) {
	b.enter()
	defer b.mu.Unlock()
	return &types.Header{
		Number:   new(big.Int).SetUint64(b.block),
		Time:     b.now,
		GasLimit: 30_000_000,
	}, nil
}

// PendingNonceAt implements bind.ContractTransactor.
func (b *Backend) PendingNonceAt(_ context.Context, account common.Address) (uint64, error) {
	b.enter()
	defer b.mu.Unlock()
	return b.nonces[account], nil
}

// SuggestGasPrice implements bind.ContractTransactor.
func (b *Backend) SuggestGasPrice(context.Context) (*big.Int, error) {
	b.enter()
	defer b.mu.Unlock()
	return big.NewInt(1), nil
}

// SuggestGasTipCap implements bind.ContractTransactor.
func (b *Backend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	b.enter()
	defer b.mu.Unlock()
	return big.NewInt(1), nil
}

// EstimateGas implements bind.ContractTransactor by dry-running the message.
func (b *Backend) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	b.enter()
	defer b.mu.Unlock()
	var err error
	if msg.To == nil {
		_, _, err = b.create(msg.From, b.nonces[msg.From], msg.Data, false)
	} else {
		_, _, err = b.execute(msg.From, *msg.To, msg.Data, false)
	}
	if err != nil {
		return 0, err
	}
	return gasPerTx, nil
}

// SendTransaction implements bind.ContractTransactor. The transaction is
// executed and sealed immediately.
func (b *Backend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	b.enter()
	defer b.mu.Unlock()

	from, err := types.Sender(b.signer, tx)
	if err != nil {
		return fmt.Errorf("simchain: recover sender: %w", err)
	}
	if want := b.nonces[from]; tx.Nonce() != want {
		return fmt.Errorf("simchain: nonce %d for %s, want %d", tx.Nonce(), from.Hex(), want)
	}
	b.nonces[from]++
	b.block++

	receipt := &types.Receipt{
		Type:              tx.Type(),
		TxHash:            tx.Hash(),
		GasUsed:           gasPerTx,
		CumulativeGasUsed: gasPerTx,
		BlockNumber:       new(big.Int).SetUint64(b.block),
		BlockHash:         crypto.Keccak256Hash(tx.Hash().Bytes(), new(big.Int).SetUint64(b.block).Bytes()),
		Status:            types.ReceiptStatusSuccessful,
	}

	var logs []*types.Log
	if tx.To() == nil {
		var addr common.Address
		addr, logs, err = b.create(from, tx.Nonce(), tx.Data(), true)
		if err == nil && !b.omitContractAddress {
			receipt.ContractAddress = addr
		}
	} else {
		_, logs, err = b.execute(from, *tx.To(), tx.Data(), true)
	}
	if err != nil {
		receipt.Status = types.ReceiptStatusFailed
		logs = nil
	}

	for i, log := range logs {
		log.TxHash = receipt.TxHash
		log.BlockNumber = b.block
		log.BlockHash = receipt.BlockHash
		log.Index = uint(len(b.logs) + i)
	}
	receipt.Logs = logs
	b.logs = append(b.logs, logs...)

	if !b.withholdReceipts {
		b.receipts[tx.Hash()] = receipt
	}
	return nil
}

// TransactionReceipt implements bind.DeployBackend.
func (b *Backend) TransactionReceipt(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
	b.enter()
	defer b.mu.Unlock()
	receipt, ok := b.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

// FilterLogs implements bind.ContractFilterer.
func (b *Backend) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	b.enter()
	defer b.mu.Unlock()
	var out []types.Log
	for _, log := range b.logs {
		if matches(q, log) {
			out = append(out, *log)
		}
	}
	return out, nil
}

// SubscribeFilterLogs implements bind.ContractFilterer.
func (b *Backend) SubscribeFilterLogs(context.Context, ethereum.FilterQuery, chan<- types.Log) (ethereum.Subscription, error) {
	b.enter()
	defer b.mu.Unlock()
	return nil, errSubscriptions
}

func matches(q ethereum.FilterQuery, log *types.Log) bool {
	if q.FromBlock != nil && log.BlockNumber < q.FromBlock.Uint64() {
		return false
	}
	if q.ToBlock != nil && q.ToBlock.Sign() >= 0 && log.BlockNumber > q.ToBlock.Uint64() {
		return false
	}
	if len(q.Addresses) > 0 {
		found := false
		for _, addr := range q.Addresses {
			if addr == log.Address {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for i, alternatives := range q.Topics {
		if len(alternatives) == 0 {
			continue
		}
		if i >= len(log.Topics) {
			return false
		}
		found := false
		for _, topic := range alternatives {
			if topic == log.Topics[i] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (b *Backend) kindForCode(data []byte) (*kind, []byte, bool) {
	for _, k := range b.kinds {
		if bytes.HasPrefix(data, k.code) {
			return k, data[len(k.code):], true
		}
	}
	return nil, nil, false
}

// create runs a contract creation from an externally owned account.
func (b *Backend) create(from common.Address, nonce uint64, data []byte, commit bool) (common.Address, []*types.Log, error) {
	k, ctorInput, ok := b.kindForCode(data)
	if !ok {
		return common.Address{}, nil, revert("unknown bytecode")
	}
	args, err := k.abi.Constructor.Inputs.Unpack(ctorInput)
	if err != nil {
		return common.Address{}, nil, revert("bad constructor arguments: " + err.Error())
	}
	tx := newTxState(commit)
	addr := crypto.CreateAddress(from, nonce)
	e := &env{b: b, tx: tx, sender: from, self: addr}
	if err := e.instantiate(k, addr, args); err != nil {
		return common.Address{}, nil, err
	}
	tx.finish()
	return addr, tx.logs, nil
}

// execute runs a call from an externally owned account.
func (b *Backend) execute(from, to common.Address, data []byte, commit bool) ([]byte, []*types.Log, error) {
	d, ok := b.contracts[to]
	if !ok {
		return nil, nil, nil
	}
	if len(data) < 4 {
		return nil, nil, revert("missing selector")
	}
	method, err := d.kind.abi.MethodById(data[:4])
	if err != nil {
		return nil, nil, revert("unknown selector")
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, revert("bad arguments: " + err.Error())
	}

	tx := newTxState(commit)
	e := &env{b: b, tx: tx, sender: from, self: to}
	out, err := e.invoke(d, method.Name, args)
	if err != nil {
		return nil, nil, err
	}
	packed, err := method.Outputs.Pack(out...)
	if err != nil {
		return nil, nil, fmt.Errorf("simchain: pack %s outputs: %w", method.Name, err)
	}
	tx.finish()
	return packed, tx.logs, nil
}
