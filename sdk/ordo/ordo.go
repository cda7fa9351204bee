// Package ordo wraps the Sigillum Ordo Administratorum, a Sigillum token
// whose holders carry one rank from a fixed policy.
package ordo

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"contractus/sdk/contract"
	"contractus/sdk/sigillum"
	"contractus/sdk/sigillum/rank"
)

const className = "SigillumOrdoAdministratorum"

// Holding is the token and decoded rank of an owner.
type Holding struct {
	ID   *big.Int
	Rank rank.Rank
}

// Token is a client for one deployed Ordo contract.
type Token struct {
	token  *sigillum.Token
	policy rank.Policy
}

// Deploy creates a new Ordo token. A zero policy means rank.Default.
func Deploy(ctx context.Context, opts sigillum.DeployOptions, policy rank.Policy) (*Token, contract.DeployResult, error) {
	token, result, err := sigillum.DeployAs(ctx, className, opts)
	if err != nil {
		return nil, contract.DeployResult{}, err
	}
	return &Token{token: token, policy: orDefault(policy)}, result, nil
}

// Attach binds to an existing Ordo token without touching the chain.
func Attach(address common.Address, opts contract.Options, policy rank.Policy) (*Token, error) {
	token, err := sigillum.AttachAs(className, address, opts)
	if err != nil {
		return nil, err
	}
	return &Token{token: token, policy: orDefault(policy)}, nil
}

func orDefault(policy rank.Policy) rank.Policy {
	if len(policy.Ranks()) == 0 {
		return rank.Default()
	}
	return policy
}

// Token returns the generic token operations.
func (t *Token) Token() *sigillum.Token {
	return t.token
}

// Address returns the contract address in lowercase hex.
func (t *Token) Address() string {
	return t.token.Address()
}

// Policy returns the ranks the client accepts.
func (t *Token) Policy() rank.Policy {
	return t.policy
}

// Mint issues a token of rank r to recipient. Ranks outside the policy are
// rejected before anything is sent.
func (t *Token) Mint(ctx context.Context, recipient common.Address, r rank.Rank) (contract.StateChangeResult[*big.Int], error) {
	if !t.policy.Contains(r) {
		err := fmt.Errorf("%s: rank %q is not in policy", className, r)
		return contract.StateChangeResult[*big.Int]{}, t.token.Client().Report(ctx, "mint", err)
	}
	return t.token.MintHashedAs(ctx, "mint", recipient, r.Hash())
}

// TokenOf returns the holding of owner, or nil when owner holds no token. A
// rank outside the policy is returned empty.
func (t *Token) TokenOf(ctx context.Context, owner common.Address) (*Holding, error) {
	raw, err := t.token.TokenOf(ctx, owner)
	if err != nil || raw == nil {
		return nil, err
	}
	r, _ := t.policy.Parse(raw.HashedRank)
	return &Holding{ID: raw.ID, Rank: r}, nil
}

// Rank returns the rank of owner, or nil when owner holds no token or its rank
// is unknown to the policy.
func (t *Token) Rank(ctx context.Context, owner common.Address) (*rank.Rank, error) {
	holding, err := t.TokenOf(ctx, owner)
	if err != nil || holding == nil || holding.Rank == "" {
		return nil, err
	}
	r := holding.Rank
	return &r, nil
}
