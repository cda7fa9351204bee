package arbiter

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"contractus/sdk/abis"
	"contractus/sdk/contract"
)

const proposalName = "Proposal"

// Proposal is a read-only client for one proposal contract. Proposals are
// created through Arbiter.Propose and never deployed directly.
type Proposal struct {
	c *contract.Client
}

// AttachProposal binds to an existing proposal without touching the chain.
func AttachProposal(address common.Address, opts contract.Options) (*Proposal, error) {
	c, err := contract.Attach(opts.Config(proposalName, abis.Proposal, address))
	if err != nil {
		return nil, err
	}
	return &Proposal{c: c}, nil
}

// Address returns the contract address in lowercase hex.
func (p *Proposal) Address() string {
	return p.c.Address()
}

// Details fetches a fresh snapshot of the proposal.
func (p *Proposal) Details(ctx context.Context) (ProposalRecord, error) {
	return contract.ReadWith(ctx, p.c, "details", p.decodeDetails)
}

func (p *Proposal) detailsOptional(ctx context.Context, op string) (*ProposalRecord, error) {
	return contract.ReadOptionalWith(ctx, p.c.As(op), "details", p.decodeDetails)
}

func (p *Proposal) decodeDetails(out []any) (ProposalRecord, error) {
	var (
		record ProposalRecord
		err    error
	)
	if record.Canceled, err = contract.Value[bool](out, 0); err != nil {
		return ProposalRecord{}, err
	}
	if record.Duration, err = contract.Value[uint32](out, 1); err != nil {
		return ProposalRecord{}, err
	}
	if record.Executed, err = contract.Value[bool](out, 2); err != nil {
		return ProposalRecord{}, err
	}
	if record.Proposer, err = contract.Value[common.Address](out, 3); err != nil {
		return ProposalRecord{}, err
	}
	start, err := contract.Value[*big.Int](out, 4)
	if err != nil {
		return ProposalRecord{}, err
	}
	record.Start = start.Uint64()
	if record.Title, err = contract.Value[string](out, 5); err != nil {
		return ProposalRecord{}, err
	}
	record.ID = p.c.ContractAddress()
	return record, nil
}

// VoteResults fetches the current tally.
func (p *Proposal) VoteResults(ctx context.Context) (VoteResult, error) {
	return contract.ReadWith(ctx, p.c, "voteResults", func(out []any) (VoteResult, error) {
		var (
			result VoteResult
			err    error
		)
		if result.Accept, err = contract.Value[uint32](out, 0); err != nil {
			return VoteResult{}, err
		}
		if result.Abstain, err = contract.Value[uint32](out, 1); err != nil {
			return VoteResult{}, err
		}
		if result.Reject, err = contract.Value[uint32](out, 2); err != nil {
			return VoteResult{}, err
		}
		return result, nil
	})
}

type voteTuple struct {
	Vote  uint8
	Voted bool
}

// HasVoted reports whether tokenID of the token contract has voted.
func (p *Proposal) HasVoted(ctx context.Context, token common.Address, tokenID *big.Int) (HasVotedResult, error) {
	return contract.ReadWith(ctx, p.c, "hasVoted", func(out []any) (HasVotedResult, error) {
		vote, err := contract.Value[voteTuple](out, 0)
		if err != nil {
			return HasVotedResult{}, err
		}
		return HasVotedResult{
			Proposal: p.c.ContractAddress(),
			Choice:   Choice(vote.Vote),
			Voted:    vote.Voted,
		}, nil
	}, token, tokenID)
}

// Version returns the contract version string.
func (p *Proposal) Version(ctx context.Context) (string, error) {
	return contract.Read[string](ctx, p.c, "version")
}
