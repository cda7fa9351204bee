package simchain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"contractus/sdk/abis"
)

// Vote choice codes.
const (
	choiceAbstain uint8 = iota
	choiceAccept
	choiceReject
)

// voteRecord mirrors the Proposal.Vote tuple.
type voteRecord struct {
	Vote  uint8
	Voted bool
}

var proposalKind = &kind{
	name: "Proposal",
	code: ProposalCode,
	abi:  abis.Proposal,
	create: func(e *env, args []any) (instance, error) {
		return &proposal{
			owner:    e.sender,
			proposer: args[0].(common.Address),
			title:    args[1].(string),
			start:    new(big.Int).Set(args[2].(*big.Int)),
			duration: args[3].(uint32),
			votes:    make(map[common.Address]map[string]voteRecord),
		}, nil
	},
}

type proposal struct {
	owner    common.Address
	proposer common.Address
	title    string
	start    *big.Int
	duration uint32

	canceled bool
	executed bool
	tally    [3]uint32
	votes    map[common.Address]map[string]voteRecord
}

func (p *proposal) call(e *env, method string, args []any) ([]any, error) {
	return p.methods().call(e, method, args)
}

func (p *proposal) methods() methods {
	return methods{
		"version":      func(*env, []any) ([]any, error) { return one(emulatedVersion) },
		"owner":        func(*env, []any) ([]any, error) { return one(p.owner) },
		"acceptVotes":  func(*env, []any) ([]any, error) { return one(p.tally[choiceAccept]) },
		"abstainVotes": func(*env, []any) ([]any, error) { return one(p.tally[choiceAbstain]) },
		"rejectVotes":  func(*env, []any) ([]any, error) { return one(p.tally[choiceReject]) },
		"details": func(*env, []any) ([]any, error) {
			return []any{p.canceled, p.duration, p.executed, p.proposer, new(big.Int).Set(p.start), p.title}, nil
		},
		"voteResults": func(*env, []any) ([]any, error) {
			return []any{p.tally[choiceAccept], p.tally[choiceAbstain], p.tally[choiceReject]}, nil
		},
		"hasVoted": func(_ *env, args []any) ([]any, error) {
			return one(p.votes[args[0].(common.Address)][args[1].(*big.Int).String()])
		},
		"cancel":  p.close(func() { p.canceled = true }, "ProposalCanceled"),
		"execute": p.close(func() { p.executed = true }, "ProposalExecuted"),
		"vote":    p.vote,
	}
}

func (p *proposal) onlyOwner(e *env) error {
	if e.sender != p.owner {
		return customError(abis.Proposal, "OwnableUnauthorizedAccount", e.sender)
	}
	return nil
}

func (p *proposal) close(mark func(), event string) func(e *env, args []any) ([]any, error) {
	return func(e *env, _ []any) ([]any, error) {
		if err := p.onlyOwner(e); err != nil {
			return nil, err
		}
		if p.canceled || p.executed {
			return nil, revert("proposal closed")
		}
		e.apply(mark)
		e.emit(abis.Proposal, event)
		return none()
	}
}

func (p *proposal) vote(e *env, args []any) ([]any, error) {
	if err := p.onlyOwner(e); err != nil {
		return nil, err
	}
	token := args[0].(common.Address)
	tokenID := args[1].(*big.Int)
	choice := args[2].(uint8)

	now := new(big.Int).SetUint64(e.now())
	end := new(big.Int).Add(p.start, new(big.Int).SetUint64(uint64(p.duration)))
	switch {
	case p.canceled || p.executed:
		return nil, revert("proposal closed")
	case now.Cmp(p.start) < 0:
		return nil, revert("voting has not started")
	case now.Cmp(end) >= 0:
		return nil, revert("voting has ended")
	case choice > choiceReject:
		return nil, revert("invalid choice")
	}
	key := tokenID.String()
	if p.votes[token][key].Voted {
		return nil, revert("token already voted")
	}

	e.apply(func() {
		if p.votes[token] == nil {
			p.votes[token] = make(map[string]voteRecord)
		}
		p.votes[token][key] = voteRecord{Vote: choice, Voted: true}
		p.tally[choice]++
	})
	e.emit(abis.Proposal, "Voted", token, new(big.Int).Set(tokenID))
	return none()
}
