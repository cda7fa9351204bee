package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"contractus/sdk/arbiter"
	"contractus/sdk/contract"
)

func (a *app) runProposal(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.stderr, "Usage: proposal <details|results|has-voted|version> --contract <address> [flags]")
		return errUsage
	}
	sub := args[0]
	switch sub {
	case "details", "results", "has-voted", "version":
	default:
		fmt.Fprintf(a.stderr, "Unknown proposal subcommand: %s\n", sub)
		return errUsage
	}
	fs := a.flagSet("proposal " + sub)
	var contractFlag, token, id string
	fs.StringVar(&contractFlag, "contract", "", "Proposal address")
	if sub == "has-voted" {
		fs.StringVar(&token, "token", "", "Token contract that cast the vote")
		fs.StringVar(&id, "id", "", "Token ID")
	}
	if err := fs.Parse(args[1:]); err != nil {
		return errUsage
	}
	addr, err := requireAddress("contract", contractFlag)
	if err != nil {
		return err
	}

	if sub == "has-voted" {
		tokenAddr, err := requireAddress("token", token)
		if err != nil {
			return err
		}
		tokenID, err := requireTokenID(id)
		if err != nil {
			return err
		}
		proposal, err := a.attachProposal(ctx, addr)
		if err != nil {
			return err
		}
		voted, err := proposal.HasVoted(ctx, tokenAddr, tokenID)
		if err != nil {
			return err
		}
		return a.print(newHasVotedOutput(voted))
	}

	proposal, err := a.attachProposal(ctx, addr)
	if err != nil {
		return err
	}
	switch sub {
	case "details":
		record, err := proposal.Details(ctx)
		if err != nil {
			return err
		}
		return a.print(newProposalOutput(record))
	case "results":
		results, err := proposal.VoteResults(ctx)
		if err != nil {
			return err
		}
		return a.print(map[string]any{
			"accept":  results.Accept,
			"abstain": results.Abstain,
			"reject":  results.Reject,
			"total":   results.Total(),
		})
	default:
		version, err := proposal.Version(ctx)
		if err != nil {
			return err
		}
		return a.print(map[string]string{"version": version})
	}
}

func (a *app) attachProposal(ctx context.Context, addr common.Address) (*arbiter.Proposal, error) {
	opts, err := a.options(ctx, false)
	if err != nil {
		return nil, err
	}
	return arbiter.AttachProposal(addr, opts)
}

type hasVotedOutput struct {
	Proposal string `json:"proposal"`
	Voted    bool   `json:"voted"`
	Choice   string `json:"choice,omitempty"`
}

func newHasVotedOutput(result arbiter.HasVotedResult) hasVotedOutput {
	out := hasVotedOutput{Proposal: contract.Lower(result.Proposal), Voted: result.Voted}
	if result.Voted {
		out.Choice = result.Choice.String()
	}
	return out
}
