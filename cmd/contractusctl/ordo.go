package main

import (
	"context"
	"fmt"

	"contractus/sdk/contract"
	"contractus/sdk/ordo"
	"contractus/sdk/sigillum/rank"
)

func (a *app) runOrdo(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.stderr, "Usage: ordo <mint|rank> [flags]")
		return errUsage
	}
	sub := args[0]
	fs := a.flagSet("ordo " + sub)
	var flags tokenFlags
	var to, rankFlag string
	switch sub {
	case "mint":
		flags.register(fs)
		fs.StringVar(&to, "to", "", "Recipient address")
		fs.StringVar(&rankFlag, "rank", "", "Rank name, e.g. novitiate")
	case "rank":
		flags.register(fs, "owner")
	default:
		fmt.Fprintf(a.stderr, "Unknown ordo subcommand: %s\n", sub)
		return errUsage
	}
	if err := fs.Parse(args[1:]); err != nil {
		return errUsage
	}

	policy := rank.Default()
	if sub == "mint" {
		recipient, err := requireAddress("to", to)
		if err != nil {
			return err
		}
		r, err := policy.Lookup(rankFlag)
		if err != nil {
			return err
		}
		token, err := a.attachOrdo(ctx, flags.contract, policy, true)
		if err != nil {
			return err
		}
		result, err := token.Mint(ctx, recipient, r)
		if err != nil {
			return err
		}
		return a.print(map[string]any{"tokenId": result.Result.String(), "rank": r.String(), "receipt": newReceiptOutput(result.Receipt)})
	}

	owner, err := requireAddress("owner", flags.owner)
	if err != nil {
		return err
	}
	token, err := a.attachOrdo(ctx, flags.contract, policy, false)
	if err != nil {
		return err
	}
	holding, err := token.TokenOf(ctx, owner)
	if err != nil {
		return err
	}
	out := map[string]any{"owner": contract.Lower(owner)}
	if holding != nil {
		out["tokenId"] = holding.ID.String()
		if holding.Rank != "" {
			out["rank"] = holding.Rank.String()
		}
	}
	return a.print(out)
}

func (a *app) attachOrdo(ctx context.Context, raw string, policy rank.Policy, write bool) (*ordo.Token, error) {
	addr, err := contractAddress(raw, a.cfg.Contracts.Ordo)
	if err != nil {
		return nil, err
	}
	opts, err := a.options(ctx, write)
	if err != nil {
		return nil, err
	}
	return ordo.Attach(addr, opts, policy)
}
