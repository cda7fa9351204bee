package sigillum_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"contractus/sdk/arbiter"
	"contractus/sdk/contract"
	"contractus/sdk/internal/simchain"
	"contractus/sdk/metadata"
	"contractus/sdk/sigillum"
)

var rankHash = contract.RoleHash("NOVITIATE_RANK")

type fixture struct {
	chain *simchain.Backend
	opts  contract.Options
	arb   *arbiter.Arbiter
	token *sigillum.Token
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

	arb, deployed, err := arbiter.Deploy(ctx, opts, simchain.ArbiterCode)
	require.NoError(t, err)
	token, _, err := sigillum.Deploy(ctx, sigillum.DeployOptions{
		Options:     opts,
		Name:        "Legio",
		Symbol:      "LEG",
		Description: "Members of the legion",
		Arbiter:     deployed.Address,
		Bytecode:    simchain.SigillumCode,
	})
	require.NoError(t, err)
	return &fixture{chain: chain, opts: opts, arb: arb, token: token}
}

func (f *fixture) tokenAddress(t *testing.T) common.Address {
	t.Helper()
	addr, err := contract.ParseAddress(f.token.Address())
	require.NoError(t, err)
	return addr
}

func (f *fixture) member(t *testing.T) (*sigillum.Token, *bind.TransactOpts) {
	t.Helper()
	_, signer, err := f.chain.NewAccount()
	require.NoError(t, err)
	opts := f.opts
	opts.Signer = signer
	token, err := sigillum.Attach(f.tokenAddress(t), opts)
	require.NoError(t, err)
	return token, signer
}

func (f *fixture) mint(t *testing.T, recipient common.Address) *big.Int {
	t.Helper()
	result, err := f.token.MintHashed(context.Background(), recipient, rankHash)
	require.NoError(t, err)
	return result.Result
}

func reason(t *testing.T, err error) string {
	t.Helper()
	var callErr *contract.CallError
	require.True(t, errors.As(err, &callErr), "want CallError, got %v", err)
	return callErr.Reason
}

func TestTokenBecomesEligible(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tokenAddr := f.tokenAddress(t)

	eligible, err := f.arb.Eligibility(ctx, tokenAddr)
	require.NoError(t, err)
	require.False(t, eligible)

	_, err = f.arb.AddToken(ctx, tokenAddr)
	require.NoError(t, err)

	eligible, err = f.arb.Eligibility(ctx, tokenAddr)
	require.NoError(t, err)
	require.True(t, eligible)

	bound, err := f.token.Arbiter(ctx)
	require.NoError(t, err)
	require.True(t, contract.SameAddress(f.arb.Address(), contract.Lower(bound)))
}

func TestMintOncePerRecipient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, member := f.member(t)

	supply, err := f.token.Supply(ctx)
	require.NoError(t, err)
	require.Zero(t, supply.Sign())

	id := f.mint(t, member.From)
	require.Equal(t, int64(1), id.Int64())

	supply, err = f.token.Supply(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), supply.Int64())

	_, err = f.token.MintHashed(ctx, member.From, rankHash)
	require.ErrorIs(t, err, contract.ErrCall)
	require.Equal(t, "recipient already has token", reason(t, err))

	owner, err := f.token.OwnerOf(ctx, id)
	require.NoError(t, err)
	require.Equal(t, member.From, owner)

	holding, err := f.token.TokenOf(ctx, member.From)
	require.NoError(t, err)
	require.Equal(t, &sigillum.TokenOfResult{ID: id, HashedRank: rankHash}, holding)

	none, err := f.token.TokenOf(ctx, common.HexToAddress("0x00000000000000000000000000000000000000ab"))
	require.NoError(t, err)
	require.Nil(t, none)
}

func TestMintRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	stranger, signer := f.member(t)

	_, err := stranger.MintHashed(context.Background(), signer.From, rankHash)
	require.Contains(t, reason(t, err), "AccessControlUnauthorizedAccount")
}

func TestMetadata(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, member := f.member(t)
	id := f.mint(t, member.From)

	collection, err := f.token.ContractMetadata(ctx)
	require.NoError(t, err)
	require.Equal(t, "Legio", collection.Name)
	require.Equal(t, "LEG", collection.Symbol)
	require.Equal(t, "Members of the legion", collection.Description)

	uri, err := f.token.TokenURI(ctx, id)
	require.NoError(t, err)
	var decoded metadata.TokenMetadata
	require.NoError(t, metadata.Decode(uri, &decoded))

	meta, err := f.token.TokenMetadata(ctx, id)
	require.NoError(t, err)
	require.Equal(t, decoded, meta)
	require.Equal(t, "Legio #1", meta.Name)
	rank, ok := meta.Attribute("rank")
	require.True(t, ok)
	require.Equal(t, rankHash.Hex(), rank)

	name, err := f.token.Name(ctx)
	require.NoError(t, err)
	require.Equal(t, "Legio", name)
	symbol, err := f.token.Symbol(ctx)
	require.NoError(t, err)
	require.Equal(t, "LEG", symbol)
	description, err := f.token.Description(ctx)
	require.NoError(t, err)
	require.Equal(t, "Members of the legion", description)
	version, err := f.token.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, "1.0.0", version)
}

func TestTokenURIOfMissingTokenIsCallError(t *testing.T) {
	f := newFixture(t)

	_, err := f.token.TokenURI(context.Background(), big.NewInt(99))
	require.ErrorIs(t, err, contract.ErrCall)
	require.False(t, contract.IsNotFound(err))
	require.Equal(t, "ERC721NonexistentToken(99)", reason(t, err))

	_, err = f.token.TokenMetadata(context.Background(), big.NewInt(99))
	require.ErrorIs(t, err, contract.ErrCall)
}

func TestProposeAndVote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.arb.AddToken(ctx, f.tokenAddress(t))
	require.NoError(t, err)

	memberToken, member := f.member(t)
	id := f.mint(t, member.From)

	start := f.chain.Now() + 100
	proposed, err := memberToken.Propose(ctx, "Build the aqueduct", start, 600)
	require.NoError(t, err)
	proposalAddr := proposed.Result

	record, err := f.arb.ProposalByAddress(ctx, proposalAddr)
	require.NoError(t, err)
	require.NotNil(t, record)
	require.Equal(t, "Build the aqueduct", record.Title)
	require.Equal(t, member.From, record.Proposer)

	missing, err := f.arb.ProposalByAddress(ctx, common.HexToAddress("0x00000000000000000000000000000000000000cd"))
	require.NoError(t, err)
	require.Nil(t, missing)

	ballot := sigillum.VoteOptions{TokenID: id, Proposal: proposalAddr, Choice: arbiter.ChoiceAccept}
	_, err = memberToken.Vote(ctx, ballot)
	require.Equal(t, "voting has not started", reason(t, err))

	f.chain.Advance(100 * time.Second)
	_, err = memberToken.Vote(ctx, ballot)
	require.NoError(t, err)

	voted, err := memberToken.HasVoted(ctx, id, proposalAddr)
	require.NoError(t, err)
	require.Equal(t, arbiter.HasVotedResult{Proposal: proposalAddr, Choice: arbiter.ChoiceAccept, Voted: true}, voted)

	proposal, err := arbiter.AttachProposal(proposalAddr, f.opts)
	require.NoError(t, err)
	results, err := proposal.VoteResults(ctx)
	require.NoError(t, err)
	require.Equal(t, arbiter.VoteResult{Accept: 1}, results)

	direct, err := proposal.HasVoted(ctx, f.tokenAddress(t), id)
	require.NoError(t, err)
	require.True(t, direct.Voted)

	_, err = memberToken.Vote(ctx, ballot)
	require.Equal(t, "token already voted", reason(t, err))

	f.chain.Advance(600 * time.Second)
	_, err = memberToken.Vote(ctx, sigillum.VoteOptions{TokenID: id, Proposal: proposalAddr, Choice: arbiter.ChoiceReject})
	require.Equal(t, "voting has ended", reason(t, err))
}

func TestVoteWithForeignTokenRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.arb.AddToken(ctx, f.tokenAddress(t))
	require.NoError(t, err)

	holderToken, holder := f.member(t)
	id := f.mint(t, holder.From)
	proposed, err := holderToken.Propose(ctx, "Tax the provinces", f.chain.Now(), 600)
	require.NoError(t, err)

	thief, _ := f.member(t)
	_, err = thief.Vote(ctx, sigillum.VoteOptions{TokenID: id, Proposal: proposed.Result, Choice: arbiter.ChoiceReject})
	require.Contains(t, reason(t, err), "ERC721IncorrectOwner")
}

func TestInputValidationSkipsChain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	before := f.chain.Calls()

	_, err := f.token.Propose(ctx, "Overflow", 1<<48, 10)
	require.ErrorContains(t, err, "invalid proposal")

	_, err = f.token.Vote(ctx, sigillum.VoteOptions{TokenID: big.NewInt(1), Proposal: common.HexToAddress("0x01"), Choice: arbiter.Choice(7)})
	require.ErrorContains(t, err, "invalid choice")
	_, err = f.token.Vote(ctx, sigillum.VoteOptions{Proposal: common.HexToAddress("0x01")})
	require.ErrorContains(t, err, "token id")
	_, err = f.token.Vote(ctx, sigillum.VoteOptions{TokenID: big.NewInt(1)})
	require.ErrorContains(t, err, "proposal address")

	require.Equal(t, before, f.chain.Calls())

	_, _, err = sigillum.Deploy(ctx, sigillum.DeployOptions{Options: f.opts, Symbol: "X", Arbiter: common.HexToAddress("0x01")})
	require.ErrorContains(t, err, "name is required")
}

func TestBurn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	memberToken, member := f.member(t)
	id := f.mint(t, member.From)

	_, err := memberToken.Burn(ctx, id)
	require.NoError(t, err)

	supply, err := f.token.Supply(ctx)
	require.NoError(t, err)
	require.Zero(t, supply.Sign())

	holding, err := f.token.TokenOf(ctx, member.From)
	require.NoError(t, err)
	require.Nil(t, holding)
}

func TestSetArbiter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	next := common.HexToAddress("0x00000000000000000000000000000000000000a2")

	stranger, _ := f.member(t)
	_, err := stranger.SetArbiter(ctx, next)
	require.Contains(t, reason(t, err), "AccessControlUnauthorizedAccount")

	_, err = f.token.SetArbiter(ctx, next)
	require.NoError(t, err)
	got, err := f.token.Arbiter(ctx)
	require.NoError(t, err)
	require.Equal(t, next, got)
}
