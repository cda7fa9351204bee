package ordo_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"contractus/sdk/arbiter"
	"contractus/sdk/contract"
	"contractus/sdk/internal/simchain"
	"contractus/sdk/ordo"
	"contractus/sdk/sigillum"
	"contractus/sdk/sigillum/rank"
)

type fixture struct {
	chain *simchain.Backend
	opts  contract.Options
	token *ordo.Token
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	chain := simchain.New(nil)
	_, signer, err := chain.NewAccount()
	require.NoError(t, err)
	opts := contract.Options{
		Backend:      chain,
		Signer:       signer,
		Logger:       slog.New(slog.NewJSONHandler(io.Discard, nil)),
		PollInterval: time.Millisecond,
	}
	_, deployed, err := arbiter.Deploy(ctx, opts, simchain.ArbiterCode)
	require.NoError(t, err)
	token, _, err := ordo.Deploy(ctx, sigillum.DeployOptions{
		Options:     opts,
		Name:        "Ordo Administratorum",
		Symbol:      "ORDO",
		Description: "Officers of the administration",
		Arbiter:     deployed.Address,
		Bytecode:    simchain.OrdoCode,
	}, rank.Policy{})
	require.NoError(t, err)
	return &fixture{chain: chain, opts: opts, token: token}
}

func (f *fixture) member(t *testing.T) (*ordo.Token, *bind.TransactOpts) {
	t.Helper()
	_, signer, err := f.chain.NewAccount()
	require.NoError(t, err)
	opts := f.opts
	opts.Signer = signer
	addr, err := contract.ParseAddress(f.token.Address())
	require.NoError(t, err)
	token, err := ordo.Attach(addr, opts, f.token.Policy())
	require.NoError(t, err)
	return token, signer
}

func TestMintAndRank(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, member := f.member(t)

	result, err := f.token.Mint(ctx, member.From, rank.Novitiate)
	require.NoError(t, err)
	require.Equal(t, int64(1), result.Result.Int64())

	r, err := f.token.Rank(ctx, member.From)
	require.NoError(t, err)
	require.NotNil(t, r)
	require.Equal(t, rank.Novitiate, *r)

	holding, err := f.token.TokenOf(ctx, member.From)
	require.NoError(t, err)
	require.Equal(t, &ordo.Holding{ID: result.Result, Rank: rank.Novitiate}, holding)

	supply, err := f.token.Token().Supply(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), supply.Int64())
}

func TestRankOfNonHolderIsNil(t *testing.T) {
	f := newFixture(t)
	r, err := f.token.Rank(context.Background(), common.HexToAddress("0x00000000000000000000000000000000000000ab"))
	require.NoError(t, err)
	require.Nil(t, r)
}

func TestRankOutsidePolicy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, member := f.member(t)
	before := f.chain.Calls()

	_, err := f.token.Mint(ctx, member.From, rank.Rank("TRIBUNUS_RANK"))
	require.ErrorContains(t, err, "not in policy")
	require.Equal(t, before, f.chain.Calls())

	// A hash minted through the generic token but unknown to the policy.
	_, err = f.token.Token().MintHashed(ctx, member.From, rank.Rank("TRIBUNUS_RANK").Hash())
	require.NoError(t, err)
	r, err := f.token.Rank(ctx, member.From)
	require.NoError(t, err)
	require.Nil(t, r)
	holding, err := f.token.TokenOf(ctx, member.From)
	require.NoError(t, err)
	require.NotNil(t, holding)
	require.Empty(t, holding.Rank)
}

func TestIssuerRankMayMint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prefect, prefectSigner := f.member(t)
	adept, adeptSigner := f.member(t)
	_, recruit := f.member(t)

	_, err := f.token.Mint(ctx, prefectSigner.From, rank.Prefectus)
	require.NoError(t, err)
	_, err = f.token.Mint(ctx, adeptSigner.From, rank.Adeptus)
	require.NoError(t, err)

	_, err = adept.Mint(ctx, recruit.From, rank.Novitiate)
	var callErr *contract.CallError
	require.True(t, errors.As(err, &callErr))
	require.Contains(t, callErr.Reason, "AccessControlUnauthorizedAccount")

	_, err = prefect.Mint(ctx, recruit.From, rank.Novitiate)
	require.NoError(t, err)
	r, err := f.token.Rank(ctx, recruit.From)
	require.NoError(t, err)
	require.Equal(t, rank.Novitiate, *r)
}

func TestCustomPolicy(t *testing.T) {
	f := newFixture(t)
	policy, err := rank.NewPolicy(rank.Adeptus)
	require.NoError(t, err)
	addr, err := contract.ParseAddress(f.token.Address())
	require.NoError(t, err)
	narrow, err := ordo.Attach(addr, f.opts, policy)
	require.NoError(t, err)

	_, err = narrow.Mint(context.Background(), common.HexToAddress("0x01"), rank.Novitiate)
	require.ErrorContains(t, err, "not in policy")
}
