package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"contractus/sdk/contract"
	"contractus/sdk/regimen"
)

func (a *app) runRegimen(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.stderr, "Usage: regimen <add-token|remove-token|can-vote|version> [flags]")
		return errUsage
	}
	sub := args[0]
	fs := a.flagSet("regimen " + sub)
	var contractFlag, token string
	fs.StringVar(&contractFlag, "contract", "", "Regimen address")
	if sub != "version" {
		fs.StringVar(&token, "token", "", "Token contract address")
	}
	if err := fs.Parse(args[1:]); err != nil {
		return errUsage
	}
	write := false
	switch sub {
	case "add-token", "remove-token":
		write = true
	case "can-vote", "version":
	default:
		fmt.Fprintf(a.stderr, "Unknown regimen subcommand: %s\n", sub)
		return errUsage
	}
	var tokenAddr common.Address
	if sub != "version" {
		addr, err := requireAddress("token", token)
		if err != nil {
			return err
		}
		tokenAddr = addr
	}

	addr, err := contractAddress(contractFlag, a.cfg.Contracts.Regimen)
	if err != nil {
		return err
	}
	opts, err := a.options(ctx, write)
	if err != nil {
		return err
	}
	reg, err := regimen.Attach(addr, opts)
	if err != nil {
		return err
	}

	switch sub {
	case "add-token":
		receipt, err := reg.AddToken(ctx, tokenAddr)
		if err != nil {
			return err
		}
		return a.print(newReceiptOutput(receipt))
	case "remove-token":
		receipt, err := reg.RemoveToken(ctx, tokenAddr)
		if err != nil {
			return err
		}
		return a.print(newReceiptOutput(receipt))
	case "can-vote":
		ok, err := reg.CanVote(ctx, tokenAddr)
		if err != nil {
			return err
		}
		return a.print(map[string]any{"token": contract.Lower(tokenAddr), "canVote": ok})
	default:
		version, err := reg.Version(ctx)
		if err != nil {
			return err
		}
		return a.print(map[string]string{"version": version})
	}
}
