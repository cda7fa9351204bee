// Package sigillum wraps the soulbound membership token. Each holder owns at
// most one token, which carries a hashed rank and lets its owner propose and
// vote through the Arbiter.
package sigillum

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"contractus/sdk/abis"
	"contractus/sdk/arbiter"
	"contractus/sdk/contract"
	"contractus/sdk/metadata"
)

const className = "Sigillum"

// DeployOptions are the constructor arguments of a token.
type DeployOptions struct {
	contract.Options
	Name        string
	Symbol      string
	Description string
	Arbiter     common.Address
	Bytecode    []byte
}

// Validate checks the constructor arguments.
func (o DeployOptions) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(o.Symbol) == "" {
		return fmt.Errorf("symbol is required")
	}
	if o.Arbiter == (common.Address{}) {
		return fmt.Errorf("arbiter address is required")
	}
	return nil
}

// VoteOptions are the arguments of Token.Vote. The token ID is always given
// explicitly.
type VoteOptions struct {
	TokenID  *big.Int
	Proposal common.Address
	Choice   arbiter.Choice
}

// Validate checks the ballot before it is sent.
func (o VoteOptions) Validate() error {
	if o.TokenID == nil || o.TokenID.Sign() <= 0 {
		return fmt.Errorf("token id must be positive")
	}
	if o.Proposal == (common.Address{}) {
		return fmt.Errorf("proposal address is required")
	}
	if !o.Choice.Valid() {
		return fmt.Errorf("invalid choice %s", o.Choice)
	}
	return nil
}

// TokenOfResult is the raw holding of an owner.
type TokenOfResult struct {
	ID         *big.Int
	HashedRank common.Hash
}

// Token is a client for one deployed token contract.
type Token struct {
	c *contract.Client
}

// Deploy creates a new token bound to an Arbiter.
func Deploy(ctx context.Context, opts DeployOptions) (*Token, contract.DeployResult, error) {
	return DeployAs(ctx, className, opts)
}

// DeployAs is Deploy for token variants that log under their own class name.
func DeployAs(ctx context.Context, name string, opts DeployOptions) (*Token, contract.DeployResult, error) {
	c, result, err := contract.Deploy(ctx, contract.DeployConfig{
		Config:   opts.Options.Config(name, abis.Sigillum, common.Address{}),
		Bytecode: opts.Bytecode,
		Args:     []any{opts.Name, opts.Symbol, opts.Description, opts.Arbiter},
		Check:    opts.Validate,
	})
	if err != nil {
		return nil, contract.DeployResult{}, err
	}
	return &Token{c: c}, result, nil
}

// Attach binds to an existing token without touching the chain.
func Attach(address common.Address, opts contract.Options) (*Token, error) {
	return AttachAs(className, address, opts)
}

// AttachAs is Attach for token variants that log under their own class name.
func AttachAs(name string, address common.Address, opts contract.Options) (*Token, error) {
	c, err := contract.Attach(opts.Config(name, abis.Sigillum, address))
	if err != nil {
		return nil, err
	}
	return &Token{c: c}, nil
}

// Address returns the contract address in lowercase hex.
func (t *Token) Address() string {
	return t.c.Address()
}

// Client exposes the underlying contract client.
func (t *Token) Client() *contract.Client {
	return t.c
}

// Arbiter returns the Arbiter the token votes through.
func (t *Token) Arbiter(ctx context.Context) (common.Address, error) {
	return contract.Read[common.Address](ctx, t.c, "arbiter")
}

// SetArbiter points the token at another Arbiter. Requires the admin role.
func (t *Token) SetArbiter(ctx context.Context, address common.Address) (*types.Receipt, error) {
	return t.c.Transact(ctx, "setArbiter", address)
}

// Burn destroys tokenID.
func (t *Token) Burn(ctx context.Context, tokenID *big.Int) (*types.Receipt, error) {
	return t.c.Transact(ctx, "burn", tokenID)
}

// ContractURI returns the collection metadata as a base64 JSON data URI.
func (t *Token) ContractURI(ctx context.Context) (string, error) {
	return contract.Read[string](ctx, t.c, "contractURI")
}

// ContractMetadata fetches and decodes the collection metadata.
func (t *Token) ContractMetadata(ctx context.Context) (metadata.ContractMetadata, error) {
	var out metadata.ContractMetadata
	if err := t.decodeURI(ctx, "contractMetadata", "contractURI", &out); err != nil {
		return metadata.ContractMetadata{}, err
	}
	return out, nil
}

// TokenURI returns the metadata of tokenID as a base64 JSON data URI.
func (t *Token) TokenURI(ctx context.Context, tokenID *big.Int) (string, error) {
	return contract.Read[string](ctx, t.c, "tokenURI", tokenID)
}

// TokenMetadata fetches and decodes the metadata of tokenID.
func (t *Token) TokenMetadata(ctx context.Context, tokenID *big.Int) (metadata.TokenMetadata, error) {
	var out metadata.TokenMetadata
	if err := t.decodeURI(ctx, "tokenMetadata", "tokenURI", &out, tokenID); err != nil {
		return metadata.TokenMetadata{}, err
	}
	return out, nil
}

func (t *Token) decodeURI(ctx context.Context, op, method string, out any, args ...any) error {
	uri, err := contract.Read[string](ctx, t.c.As(op), method, args...)
	if err != nil {
		return err
	}
	return t.c.Report(ctx, op, metadata.Decode(uri, out))
}

// Description returns the token description.
func (t *Token) Description(ctx context.Context) (string, error) {
	return contract.Read[string](ctx, t.c, "description")
}

// Name returns the token name.
func (t *Token) Name(ctx context.Context) (string, error) {
	return contract.Read[string](ctx, t.c, "name")
}

// Symbol returns the token symbol.
func (t *Token) Symbol(ctx context.Context) (string, error) {
	return contract.Read[string](ctx, t.c, "symbol")
}

// Supply returns the number of tokens in existence.
func (t *Token) Supply(ctx context.Context) (*big.Int, error) {
	return contract.Read[*big.Int](ctx, t.c, "supply")
}

// Version returns the contract version string.
func (t *Token) Version(ctx context.Context) (string, error) {
	return contract.Read[string](ctx, t.c, "version")
}

// OwnerOf returns the holder of tokenID.
func (t *Token) OwnerOf(ctx context.Context, tokenID *big.Int) (common.Address, error) {
	return contract.Read[common.Address](ctx, t.c, "ownerOf", tokenID)
}

// MintHashed issues a token with an already hashed rank and returns its ID,
// taken from the Transfer event.
func (t *Token) MintHashed(ctx context.Context, recipient common.Address, hashedRank common.Hash) (contract.StateChangeResult[*big.Int], error) {
	return t.mintHashed(ctx, "mint", recipient, hashedRank)
}

// MintHashedAs is MintHashed reported under op, for variants that hash the
// rank themselves.
func (t *Token) MintHashedAs(ctx context.Context, op string, recipient common.Address, hashedRank common.Hash) (contract.StateChangeResult[*big.Int], error) {
	return t.mintHashed(ctx, op, recipient, hashedRank)
}

func (t *Token) mintHashed(ctx context.Context, op string, recipient common.Address, hashedRank common.Hash) (contract.StateChangeResult[*big.Int], error) {
	return contract.Emitted[*big.Int](ctx, t.c.As(op), "mint",
		contract.EventField{Event: "Transfer", Index: 2},
		recipient, [32]byte(hashedRank),
	)
}

// TokenOf returns the holding of owner, or nil when owner holds no token.
func (t *Token) TokenOf(ctx context.Context, owner common.Address) (*TokenOfResult, error) {
	result, err := contract.ReadWith(ctx, t.c, "tokenOf", func(out []any) (*TokenOfResult, error) {
		id, err := contract.Value[*big.Int](out, 0)
		if err != nil {
			return nil, err
		}
		rank, err := contract.Value[[32]byte](out, 1)
		if err != nil {
			return nil, err
		}
		if id.Sign() == 0 {
			return nil, nil
		}
		return &TokenOfResult{ID: id, HashedRank: common.Hash(rank)}, nil
	}, owner)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Propose creates a proposal through the Arbiter on behalf of the signer and
// returns the proposal address.
func (t *Token) Propose(ctx context.Context, title string, start uint64, duration uint32) (contract.StateChangeResult[common.Address], error) {
	if err := arbiter.ValidateStart(start); err != nil {
		return contract.StateChangeResult[common.Address]{}, t.c.Report(ctx, "propose", fmt.Errorf("invalid proposal: %w", err))
	}
	return contract.Emitted[common.Address](ctx, t.c, "propose",
		contract.EventField{ABI: abis.Arbiter, Event: "ProposalCreated", Index: 0},
		title, new(big.Int).SetUint64(start), duration,
	)
}

// Vote casts a ballot with the signer's token.
func (t *Token) Vote(ctx context.Context, opts VoteOptions) (*types.Receipt, error) {
	if err := opts.Validate(); err != nil {
		return nil, t.c.Report(ctx, "vote", fmt.Errorf("invalid vote: %w", err))
	}
	return t.c.Transact(ctx, "vote", opts.TokenID, opts.Proposal, uint8(opts.Choice))
}

// HasVoted reports whether tokenID has voted on proposal.
func (t *Token) HasVoted(ctx context.Context, tokenID *big.Int, proposal common.Address) (arbiter.HasVotedResult, error) {
	return contract.ReadWith(ctx, t.c, "hasVoted", func(out []any) (arbiter.HasVotedResult, error) {
		choice, err := contract.Value[uint8](out, 0)
		if err != nil {
			return arbiter.HasVotedResult{}, err
		}
		voted, err := contract.Value[bool](out, 1)
		if err != nil {
			return arbiter.HasVotedResult{}, err
		}
		return arbiter.HasVotedResult{Proposal: proposal, Choice: arbiter.Choice(choice), Voted: voted}, nil
	}, tokenID, proposal)
}
