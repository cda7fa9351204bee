package simchain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"contractus/sdk/abis"
)

// Marker bytecodes. Deploying one of them instantiates the matching emulator;
// anything appended is decoded as constructor arguments.
var (
	ArbiterCode  = []byte("simchain:arbiter:")
	ProposalCode = []byte("simchain:proposal:")
	RegimenCode  = []byte("simchain:regimen:")
	SigillumCode = []byte("simchain:sigillum:")
	OrdoCode     = []byte("simchain:ordo:")
)

const emulatedVersion = "1.0.0"

var arbiterKind = &kind{
	name: "Arbiter",
	code: ArbiterCode,
	abi:  abis.Arbiter,
	create: func(e *env, _ []any) (instance, error) {
		return &arbiter{
			access:    newAccessControl(abis.Arbiter, e.sender),
			tokens:    make(map[common.Address]bool),
			proposals: make(map[common.Address]bool),
		}, nil
	},
}

type arbiter struct {
	access    *accessControl
	tokens    map[common.Address]bool
	proposals map[common.Address]bool
}

func (a *arbiter) call(e *env, method string, args []any) ([]any, error) {
	return a.methods().call(e, method, args)
}

func (a *arbiter) methods() methods {
	m := methods{
		"CUSTODIAN_ROLE": func(*env, []any) ([]any, error) { return one([32]byte(custodianRole)) },
		"EXECUTOR_ROLE":  func(*env, []any) ([]any, error) { return one([32]byte(executorRole)) },
		"version":        func(*env, []any) ([]any, error) { return one(emulatedVersion) },
		"eligibility": func(_ *env, args []any) ([]any, error) {
			return one(a.tokens[args[0].(common.Address)])
		},
		"addToken":    a.addToken,
		"removeToken": a.removeToken,
		"cancel":      a.forward("cancel"),
		"execute":     a.forward("execute"),
		"propose":     a.propose,
		"vote":        a.vote,
		"hasVoted":    a.hasVoted,
	}
	return a.access.methods(m)
}

func (a *arbiter) addToken(e *env, args []any) ([]any, error) {
	if err := a.access.require(e, defaultAdminRole, custodianRole); err != nil {
		return nil, err
	}
	token := args[0].(common.Address)
	if a.tokens[token] {
		return nil, revert("token already added")
	}
	e.apply(func() { a.tokens[token] = true })
	e.emit(abis.Arbiter, "TokenAdded", token)
	return none()
}

func (a *arbiter) removeToken(e *env, args []any) ([]any, error) {
	if err := a.access.require(e, defaultAdminRole, custodianRole); err != nil {
		return nil, err
	}
	token := args[0].(common.Address)
	if !a.tokens[token] {
		return nil, revert("token not added")
	}
	e.apply(func() { delete(a.tokens, token) })
	e.emit(abis.Arbiter, "TokenRemoved", token)
	return none()
}

func (a *arbiter) forward(method string) func(e *env, args []any) ([]any, error) {
	return func(e *env, args []any) ([]any, error) {
		if err := a.access.require(e, executorRole); err != nil {
			return nil, err
		}
		proposal := args[0].(common.Address)
		if !a.proposals[proposal] {
			return nil, revert("unknown proposal")
		}
		if _, err := e.call(proposal, method); err != nil {
			return nil, err
		}
		return none()
	}
}

func (a *arbiter) propose(e *env, args []any) ([]any, error) {
	if !a.tokens[e.sender] && !a.access.has(defaultAdminRole, e.sender) {
		return nil, revert("caller may not propose")
	}
	proposer := args[0].(common.Address)
	title := args[1].(string)
	start := args[2].(*big.Int)
	duration := args[3].(uint32)
	if duration == 0 {
		return nil, revert("duration must be positive")
	}

	addr, err := e.deploy(proposalKind, proposer, title, start, duration)
	if err != nil {
		return nil, err
	}
	e.apply(func() { a.proposals[addr] = true })
	e.emit(abis.Arbiter, "ProposalCreated", addr, proposer, start, duration)
	return one(addr)
}

func (a *arbiter) vote(e *env, args []any) ([]any, error) {
	if !a.tokens[e.sender] {
		return nil, revert("token not eligible")
	}
	tokenID := args[0].(*big.Int)
	proposal := args[1].(common.Address)
	choice := args[2].(uint8)
	if !a.proposals[proposal] {
		return nil, revert("unknown proposal")
	}
	if _, err := e.call(proposal, "vote", e.sender, tokenID, choice); err != nil {
		return nil, err
	}
	return none()
}

func (a *arbiter) hasVoted(e *env, args []any) ([]any, error) {
	tokenID := args[0].(*big.Int)
	proposal := args[1].(common.Address)
	if !a.proposals[proposal] {
		return nil, revert("unknown proposal")
	}
	out, err := e.call(proposal, "hasVoted", e.sender, tokenID)
	if err != nil {
		return nil, err
	}
	v := out[0].(voteRecord)
	return []any{v.Vote, v.Voted}, nil
}
