package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"contractus/sdk/arbiter"
	"contractus/sdk/contract"
	"contractus/sdk/sigillum"
	"contractus/sdk/sigillum/rank"
)

// tokenFlags are the flags shared by the sigillum and ordo subcommands.
type tokenFlags struct {
	contract string
	id       string
	owner    string
	proposal string
}

func (f *tokenFlags) register(fs *flag.FlagSet, names ...string) {
	fs.StringVar(&f.contract, "contract", "", "Token address")
	for _, name := range names {
		switch name {
		case "id":
			fs.StringVar(&f.id, "id", "", "Token ID")
		case "owner":
			fs.StringVar(&f.owner, "owner", "", "Holder address")
		case "proposal":
			fs.StringVar(&f.proposal, "proposal", "", "Proposal address")
		}
	}
}

func (a *app) runSigillum(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.stderr, "Usage: sigillum <subcommand> [flags]")
		return errUsage
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "mint":
		return a.sigillumMint(ctx, rest)
	case "burn", "token-uri":
		return a.sigillumByID(ctx, sub, rest)
	case "token-of":
		return a.sigillumTokenOf(ctx, rest)
	case "metadata":
		return a.sigillumMetadata(ctx, rest)
	case "info":
		return a.sigillumInfo(ctx, rest)
	case "propose":
		return a.sigillumPropose(ctx, rest)
	case "vote":
		return a.sigillumVote(ctx, rest)
	case "has-voted":
		return a.sigillumHasVoted(ctx, rest)
	case "set-arbiter":
		return a.sigillumSetArbiter(ctx, rest)
	default:
		fmt.Fprintf(a.stderr, "Unknown sigillum subcommand: %s\n", sub)
		return errUsage
	}
}

func (a *app) attachSigillum(ctx context.Context, raw string, write bool) (*sigillum.Token, error) {
	addr, err := contractAddress(raw, a.cfg.Contracts.Sigillum)
	if err != nil {
		return nil, err
	}
	opts, err := a.options(ctx, write)
	if err != nil {
		return nil, err
	}
	return sigillum.Attach(addr, opts)
}

// parseRank accepts a rank name known to the default policy or a raw 32 byte
// hash.
func parseRank(raw string) (common.Hash, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return common.Hash{}, fmt.Errorf("--rank is required")
	}
	if strings.HasPrefix(raw, "0x") {
		decoded, err := decodeHex(raw)
		if err != nil || len(decoded) != common.HashLength {
			return common.Hash{}, fmt.Errorf("invalid --rank hash %q", raw)
		}
		return common.BytesToHash(decoded), nil
	}
	r, err := rank.Default().Lookup(raw)
	if err != nil {
		return common.Hash{}, err
	}
	return r.Hash(), nil
}

func (a *app) sigillumMint(ctx context.Context, args []string) error {
	fs := a.flagSet("sigillum mint")
	var flags tokenFlags
	var to, rankFlag string
	flags.register(fs)
	fs.StringVar(&to, "to", "", "Recipient address")
	fs.StringVar(&rankFlag, "rank", "", "Rank name or hashed rank")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	recipient, err := requireAddress("to", to)
	if err != nil {
		return err
	}
	hashed, err := parseRank(rankFlag)
	if err != nil {
		return err
	}
	token, err := a.attachSigillum(ctx, flags.contract, true)
	if err != nil {
		return err
	}
	result, err := token.MintHashed(ctx, recipient, hashed)
	if err != nil {
		return err
	}
	return a.print(map[string]any{"tokenId": result.Result.String(), "receipt": newReceiptOutput(result.Receipt)})
}

func (a *app) sigillumByID(ctx context.Context, sub string, args []string) error {
	fs := a.flagSet("sigillum " + sub)
	var flags tokenFlags
	flags.register(fs, "id")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	id, err := requireTokenID(flags.id)
	if err != nil {
		return err
	}
	token, err := a.attachSigillum(ctx, flags.contract, sub == "burn")
	if err != nil {
		return err
	}
	if sub == "burn" {
		receipt, err := token.Burn(ctx, id)
		if err != nil {
			return err
		}
		return a.print(newReceiptOutput(receipt))
	}
	uri, err := token.TokenURI(ctx, id)
	if err != nil {
		return err
	}
	return a.print(map[string]string{"tokenId": id.String(), "uri": uri})
}

func (a *app) sigillumTokenOf(ctx context.Context, args []string) error {
	fs := a.flagSet("sigillum token-of")
	var flags tokenFlags
	flags.register(fs, "owner")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	owner, err := requireAddress("owner", flags.owner)
	if err != nil {
		return err
	}
	token, err := a.attachSigillum(ctx, flags.contract, false)
	if err != nil {
		return err
	}
	holding, err := token.TokenOf(ctx, owner)
	if err != nil {
		return err
	}
	if holding == nil {
		return a.print(map[string]any{"owner": contract.Lower(owner), "token": nil})
	}
	out := map[string]any{"owner": contract.Lower(owner), "tokenId": holding.ID.String(), "hashedRank": holding.HashedRank.Hex()}
	if r, ok := rank.Default().Parse(holding.HashedRank); ok {
		out["rank"] = r.String()
	}
	return a.print(out)
}

func (a *app) sigillumMetadata(ctx context.Context, args []string) error {
	fs := a.flagSet("sigillum metadata")
	var flags tokenFlags
	flags.register(fs, "id")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	token, err := a.attachSigillum(ctx, flags.contract, false)
	if err != nil {
		return err
	}
	if flags.id == "" {
		meta, err := token.ContractMetadata(ctx)
		if err != nil {
			return err
		}
		return a.print(meta)
	}
	id, err := requireTokenID(flags.id)
	if err != nil {
		return err
	}
	meta, err := token.TokenMetadata(ctx, id)
	if err != nil {
		return err
	}
	return a.print(meta)
}

func (a *app) sigillumInfo(ctx context.Context, args []string) error {
	fs := a.flagSet("sigillum info")
	var flags tokenFlags
	flags.register(fs)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	token, err := a.attachSigillum(ctx, flags.contract, false)
	if err != nil {
		return err
	}
	name, err := token.Name(ctx)
	if err != nil {
		return err
	}
	symbol, err := token.Symbol(ctx)
	if err != nil {
		return err
	}
	description, err := token.Description(ctx)
	if err != nil {
		return err
	}
	supply, err := token.Supply(ctx)
	if err != nil {
		return err
	}
	arb, err := token.Arbiter(ctx)
	if err != nil {
		return err
	}
	version, err := token.Version(ctx)
	if err != nil {
		return err
	}
	return a.print(map[string]string{
		"address":     token.Address(),
		"name":        name,
		"symbol":      symbol,
		"description": description,
		"supply":      supply.String(),
		"arbiter":     contract.Lower(arb),
		"version":     version,
	})
}

func (a *app) sigillumPropose(ctx context.Context, args []string) error {
	fs := a.flagSet("sigillum propose")
	var flags tokenFlags
	var title string
	var start uint64
	var duration time.Duration
	flags.register(fs)
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
	token, err := a.attachSigillum(ctx, flags.contract, true)
	if err != nil {
		return err
	}
	result, err := token.Propose(ctx, title, start, seconds)
	if err != nil {
		return err
	}
	return a.print(map[string]any{"proposal": contract.Lower(result.Result), "receipt": newReceiptOutput(result.Receipt)})
}

func (a *app) sigillumVote(ctx context.Context, args []string) error {
	fs := a.flagSet("sigillum vote")
	var flags tokenFlags
	var choiceFlag string
	flags.register(fs, "id", "proposal")
	fs.StringVar(&choiceFlag, "choice", "", "accept, abstain or reject")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	id, err := requireTokenID(flags.id)
	if err != nil {
		return err
	}
	proposal, err := requireAddress("proposal", flags.proposal)
	if err != nil {
		return err
	}
	choice, err := arbiter.ParseChoice(choiceFlag)
	if err != nil {
		return err
	}
	token, err := a.attachSigillum(ctx, flags.contract, true)
	if err != nil {
		return err
	}
	receipt, err := token.Vote(ctx, sigillum.VoteOptions{TokenID: id, Proposal: proposal, Choice: choice})
	if err != nil {
		return err
	}
	return a.print(newReceiptOutput(receipt))
}

func (a *app) sigillumHasVoted(ctx context.Context, args []string) error {
	fs := a.flagSet("sigillum has-voted")
	var flags tokenFlags
	flags.register(fs, "id", "proposal")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	id, err := requireTokenID(flags.id)
	if err != nil {
		return err
	}
	proposal, err := requireAddress("proposal", flags.proposal)
	if err != nil {
		return err
	}
	token, err := a.attachSigillum(ctx, flags.contract, false)
	if err != nil {
		return err
	}
	voted, err := token.HasVoted(ctx, id, proposal)
	if err != nil {
		return err
	}
	return a.print(newHasVotedOutput(voted))
}

func (a *app) sigillumSetArbiter(ctx context.Context, args []string) error {
	fs := a.flagSet("sigillum set-arbiter")
	var flags tokenFlags
	var arbiterFlag string
	flags.register(fs)
	fs.StringVar(&arbiterFlag, "arbiter", "", "New arbiter address")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	next, err := requireAddress("arbiter", arbiterFlag)
	if err != nil {
		return err
	}
	token, err := a.attachSigillum(ctx, flags.contract, true)
	if err != nil {
		return err
	}
	receipt, err := token.SetArbiter(ctx, next)
	if err != nil {
		return err
	}
	return a.print(newReceiptOutput(receipt))
}
