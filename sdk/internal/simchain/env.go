package simchain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	revertSelector = crypto.Keccak256([]byte("Error(string)"))[:4]
	stringArgs     = abi.Arguments{{Type: mustType("string")}}
)

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

// RevertError is returned for reverted calls. Like a node's JSON-RPC error it
// carries the raw revert payload through ErrorData.
type RevertError struct {
	reason string
	data   []byte
}

func (e *RevertError) Error() string {
	return "execution reverted: " + e.reason
}

// ErrorCode mirrors the JSON-RPC code nodes use for reverts.
func (e *RevertError) ErrorCode() int { return 3 }

// ErrorData returns the hex encoded revert payload.
func (e *RevertError) ErrorData() interface{} { return hexutil.Encode(e.data) }

func revert(reason string) error {
	packed, err := stringArgs.Pack(reason)
	if err != nil {
		panic(err)
	}
	data := append(common.CopyBytes(revertSelector), packed...)
	return &RevertError{reason: reason, data: data}
}

func customError(contractABI *abi.ABI, name string, args ...any) error {
	def, ok := contractABI.Errors[name]
	if !ok {
		panic(fmt.Sprintf("simchain: error %s not in abi", name))
	}
	packed, err := def.Inputs.Pack(args...)
	if err != nil {
		panic(err)
	}
	data := append(common.CopyBytes(def.ID[:4]), packed...)
	return &RevertError{reason: name, data: data}
}

// txState collects the effects of one top-level message. Effects are applied
// only when the message commits and fully succeeds.
type txState struct {
	commit  bool
	applies []func()
	logs    []*types.Log
	created map[common.Address]*deployed
	nonces  map[common.Address]uint64
}

func newTxState(commit bool) *txState {
	return &txState{
		commit:  commit,
		created: make(map[common.Address]*deployed),
		nonces:  make(map[common.Address]uint64),
	}
}

func (t *txState) finish() {
	if !t.commit {
		t.logs = nil
		return
	}
	for _, fn := range t.applies {
		fn()
	}
}

// env is the execution context of one contract frame.
type env struct {
	b      *Backend
	tx     *txState
	sender common.Address
	self   common.Address
}

func (e *env) now() uint64 {
	return e.b.now
}

// apply defers a state mutation until the message commits.
func (e *env) apply(fn func()) {
	e.tx.applies = append(e.tx.applies, fn)
}

func (e *env) emit(contractABI *abi.ABI, name string, args ...any) {
	def, ok := contractABI.Events[name]
	if !ok {
		panic(fmt.Sprintf("simchain: event %s not in abi", name))
	}
	if len(args) != len(def.Inputs) {
		panic(fmt.Sprintf("simchain: event %s takes %d args, got %d", name, len(def.Inputs), len(args)))
	}
	topics := []common.Hash{def.ID}
	var data []any
	for i, input := range def.Inputs {
		if input.Indexed {
			topics = append(topics, topicOf(args[i]))
			continue
		}
		data = append(data, args[i])
	}
	packed, err := def.Inputs.NonIndexed().Pack(data...)
	if err != nil {
		panic(err)
	}
	e.tx.logs = append(e.tx.logs, &types.Log{
		Address: e.self,
		Topics:  topics,
		Data:    packed,
	})
}

func topicOf(v any) common.Hash {
	switch value := v.(type) {
	case common.Address:
		return common.BytesToHash(value.Bytes())
	case *big.Int:
		return common.BigToHash(value)
	case [32]byte:
		return common.Hash(value)
	case common.Hash:
		return value
	default:
		panic(fmt.Sprintf("simchain: unsupported topic type %T", v))
	}
}

func (e *env) lookup(addr common.Address) (*deployed, bool) {
	if d, ok := e.tx.created[addr]; ok {
		return d, true
	}
	d, ok := e.b.contracts[addr]
	return d, ok
}

// call performs a message call from the current contract to another.
func (e *env) call(to common.Address, method string, args ...any) ([]any, error) {
	d, ok := e.lookup(to)
	if !ok {
		return nil, revert("call to non-contract")
	}
	if _, ok := d.kind.abi.Methods[method]; !ok {
		return nil, revert("unknown method " + method)
	}
	inner := &env{b: e.b, tx: e.tx, sender: e.self, self: to}
	return inner.invoke(d, method, args)
}

func (e *env) invoke(d *deployed, method string, args []any) (out []any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = revert(fmt.Sprintf("panic in %s.%s: %v", d.kind.name, method, r))
		}
	}()
	return d.impl.call(e, method, args)
}

// deploy creates a contract from the current contract, CREATE style.
func (e *env) deploy(k *kind, args ...any) (common.Address, error) {
	base := e.b.nonces[e.self]
	if base == 0 {
		base = 1
	}
	nonce := base + e.tx.nonces[e.self]
	addr := crypto.CreateAddress(e.self, nonce)
	e.tx.nonces[e.self]++
	inner := &env{b: e.b, tx: e.tx, sender: e.self, self: addr}
	if err := inner.instantiate(k, addr, args); err != nil {
		return common.Address{}, err
	}
	creator := e.self
	e.apply(func() {
		if e.b.nonces[creator] == 0 {
			e.b.nonces[creator] = 1
		}
		e.b.nonces[creator]++
	})
	return addr, nil
}

func (e *env) instantiate(k *kind, addr common.Address, args []any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = revert(fmt.Sprintf("panic in %s constructor: %v", k.name, r))
		}
	}()
	impl, err := k.create(e, args)
	if err != nil {
		return err
	}
	d := &deployed{kind: k, impl: impl}
	e.tx.created[addr] = d
	e.apply(func() { e.b.contracts[addr] = d })
	return nil
}

// methods dispatches calls by ABI method name.
type methods map[string]func(e *env, args []any) ([]any, error)

func (m methods) call(e *env, method string, args []any) ([]any, error) {
	fn, ok := m[method]
	if !ok {
		return nil, revert("unsupported method " + method)
	}
	return fn(e, args)
}

func none() ([]any, error) { return nil, nil }

func one(v any) ([]any, error) { return []any{v}, nil }
