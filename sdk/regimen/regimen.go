// Package regimen wraps the Regimen registry of tokens allowed to vote.
package regimen

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"contractus/sdk/abis"
	"contractus/sdk/contract"
)

const className = "Regimen"

// Regimen is a client for one deployed Regimen contract.
type Regimen struct {
	c *contract.Client
}

// Deploy creates a new Regimen. The signer becomes its admin.
func Deploy(ctx context.Context, opts contract.Options, bytecode []byte) (*Regimen, contract.DeployResult, error) {
	c, result, err := contract.Deploy(ctx, contract.DeployConfig{
		Config:   opts.Config(className, abis.Regimen, common.Address{}),
		Bytecode: bytecode,
	})
	if err != nil {
		return nil, contract.DeployResult{}, err
	}
	return &Regimen{c: c}, result, nil
}

// Attach binds to an existing Regimen without touching the chain.
func Attach(address common.Address, opts contract.Options) (*Regimen, error) {
	c, err := contract.Attach(opts.Config(className, abis.Regimen, address))
	if err != nil {
		return nil, err
	}
	return &Regimen{c: c}, nil
}

// Address returns the contract address in lowercase hex.
func (r *Regimen) Address() string {
	return r.c.Address()
}

// Client exposes the underlying contract client.
func (r *Regimen) Client() *contract.Client {
	return r.c
}

// AddToken registers token as a voting token.
func (r *Regimen) AddToken(ctx context.Context, token common.Address) (*types.Receipt, error) {
	return r.c.Transact(ctx, "addToken", token)
}

// RemoveToken unregisters token.
func (r *Regimen) RemoveToken(ctx context.Context, token common.Address) (*types.Receipt, error) {
	return r.c.Transact(ctx, "removeToken", token)
}

// CanVote reports whether token is registered.
func (r *Regimen) CanVote(ctx context.Context, token common.Address) (bool, error) {
	return contract.Read[bool](ctx, r.c, "canVote", token)
}

// Version returns the contract version string.
func (r *Regimen) Version(ctx context.Context) (string, error) {
	return contract.Read[string](ctx, r.c, "version")
}
