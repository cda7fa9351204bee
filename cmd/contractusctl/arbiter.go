package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"contractus/sdk/arbiter"
	"contractus/sdk/contract"
)

type accountAction struct {
	flag  string
	write func(*arbiter.Arbiter, context.Context, common.Address) (*types.Receipt, error)
	read  func(*arbiter.Arbiter, context.Context, common.Address) (bool, error)
}

var arbiterAccountActions = map[string]accountAction{
	"add-executor":     {flag: "account", write: (*arbiter.Arbiter).AddExecutor},
	"remove-executor":  {flag: "account", write: (*arbiter.Arbiter).RemoveExecutor},
	"is-executor":      {flag: "account", read: (*arbiter.Arbiter).IsExecutor},
	"add-custodian":    {flag: "account", write: (*arbiter.Arbiter).AddCustodian},
	"remove-custodian": {flag: "account", write: (*arbiter.Arbiter).RemoveCustodian},
	"is-custodian":     {flag: "account", read: (*arbiter.Arbiter).IsCustodian},
	"add-token":        {flag: "token", write: (*arbiter.Arbiter).AddToken},
	"remove-token":     {flag: "token", write: (*arbiter.Arbiter).RemoveToken},
	"eligibility":      {flag: "token", read: (*arbiter.Arbiter).Eligibility},
	"cancel":           {flag: "proposal", write: (*arbiter.Arbiter).Cancel},
	"execute":          {flag: "proposal", write: (*arbiter.Arbiter).Execute},
}

func (a *app) runArbiter(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.stderr, "Usage: arbiter <subcommand> [flags]")
		return errUsage
	}
	sub, rest := args[0], args[1:]
	if action, ok := arbiterAccountActions[sub]; ok {
		return a.arbiterAccount(ctx, sub, action, rest)
	}
	switch sub {
	case "propose":
		return a.arbiterPropose(ctx, rest)
	case "proposal":
		return a.arbiterProposal(ctx, rest)
	case "version":
		fs := a.flagSet("arbiter version")
		var contractFlag string
		fs.StringVar(&contractFlag, "contract", "", "Arbiter address")
		if err := fs.Parse(rest); err != nil {
			return errUsage
		}
		arb, err := a.attachArbiter(ctx, contractFlag, false)
		if err != nil {
			return err
		}
		version, err := arb.Version(ctx)
		if err != nil {
			return err
		}
		return a.print(map[string]string{"version": version})
	default:
		fmt.Fprintf(a.stderr, "Unknown arbiter subcommand: %s\n", sub)
		return errUsage
	}
}

func (a *app) attachArbiter(ctx context.Context, raw string, write bool) (*arbiter.Arbiter, error) {
	addr, err := contractAddress(raw, a.cfg.Contracts.Arbiter)
	if err != nil {
		return nil, err
	}
	opts, err := a.options(ctx, write)
	if err != nil {
		return nil, err
	}
	return arbiter.Attach(addr, opts)
}

func (a *app) arbiterAccount(ctx context.Context, sub string, action accountAction, args []string) error {
	fs := a.flagSet("arbiter " + sub)
	var contractFlag, target string
	fs.StringVar(&contractFlag, "contract", "", "Arbiter address")
	fs.StringVar(&target, action.flag, "", "Target address")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	addr, err := requireAddress(action.flag, target)
	if err != nil {
		return err
	}
	arb, err := a.attachArbiter(ctx, contractFlag, action.write != nil)
	if err != nil {
		return err
	}
	if action.read != nil {
		ok, err := action.read(arb, ctx, addr)
		if err != nil {
			return err
		}
		return a.print(map[string]any{action.flag: contract.Lower(addr), "result": ok})
	}
	receipt, err := action.write(arb, ctx, addr)
	if err != nil {
		return err
	}
	return a.print(newReceiptOutput(receipt))
}

func (a *app) arbiterPropose(ctx context.Context, args []string) error {
	fs := a.flagSet("arbiter propose")
	var contractFlag, proposer, title string
	var start uint64
	var duration time.Duration
	fs.StringVar(&contractFlag, "contract", "", "Arbiter address")
	fs.StringVar(&proposer, "proposer", "", "Proposer recorded on the proposal, defaults to the signer")
	fs.StringVar(&title, "title", "", "Proposal title")
	fs.Uint64Var(&start, "start", 0, "Voting start as unix seconds, defaults to now")
	fs.DurationVar(&duration, "duration", 0, "Voting window, e.g. 72h")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if start == 0 {
		start = uint64(time.Now().Unix())
	}
	seconds, err := durationSeconds(duration)
	if err != nil {
		return err
	}
	if err := arbiter.ValidateStart(start); err != nil {
		return err
	}
	arb, err := a.attachArbiter(ctx, contractFlag, true)
	if err != nil {
		return err
	}
	from := arb.Client().Signer().From
	if proposer != "" {
		if from, err = requireAddress("proposer", proposer); err != nil {
			return err
		}
	}
	result, err := arb.Propose(ctx, arbiter.ProposeOptions{Proposer: from, Title: title, Start: start, Duration: seconds})
	if err != nil {
		return err
	}
	return a.print(map[string]any{"proposal": contract.Lower(result.Result), "receipt": newReceiptOutput(result.Receipt)})
}

func (a *app) arbiterProposal(ctx context.Context, args []string) error {
	fs := a.flagSet("arbiter proposal")
	var contractFlag, proposal string
	fs.StringVar(&contractFlag, "contract", "", "Arbiter address")
	fs.StringVar(&proposal, "proposal", "", "Proposal address")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	addr, err := requireAddress("proposal", proposal)
	if err != nil {
		return err
	}
	arb, err := a.attachArbiter(ctx, contractFlag, false)
	if err != nil {
		return err
	}
	record, err := arb.ProposalByAddress(ctx, addr)
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("no proposal at %s", contract.Lower(addr))
	}
	return a.print(newProposalOutput(*record))
}

type proposalOutput struct {
	Address  string `json:"address"`
	Proposer string `json:"proposer"`
	Title    string `json:"title"`
	Start    uint64 `json:"start"`
	End      uint64 `json:"end"`
	Duration uint32 `json:"duration"`
	Canceled bool   `json:"canceled"`
	Executed bool   `json:"executed"`
	Open     bool   `json:"open"`
}

func newProposalOutput(record arbiter.ProposalRecord) proposalOutput {
	return proposalOutput{
		Address:  contract.Lower(record.ID),
		Proposer: contract.Lower(record.Proposer),
		Title:    record.Title,
		Start:    record.Start,
		End:      record.End(),
		Duration: record.Duration,
		Canceled: record.Canceled,
		Executed: record.Executed,
		Open:     record.Open(uint64(time.Now().Unix())),
	}
}
