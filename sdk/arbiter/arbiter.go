// Package arbiter wraps the Arbiter governance hub and the Proposal contracts
// it creates.
package arbiter

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"contractus/sdk/abis"
	"contractus/sdk/contract"
)

const arbiterName = "Arbiter"

// Arbiter is a client for one deployed Arbiter contract.
type Arbiter struct {
	c *contract.Client
}

// Deploy creates a new Arbiter from bytecode. The signer becomes its admin.
func Deploy(ctx context.Context, opts contract.Options, bytecode []byte) (*Arbiter, contract.DeployResult, error) {
	c, result, err := contract.Deploy(ctx, contract.DeployConfig{
		Config:   opts.Config(arbiterName, abis.Arbiter, common.Address{}),
		Bytecode: bytecode,
	})
	if err != nil {
		return nil, contract.DeployResult{}, err
	}
	return &Arbiter{c: c}, result, nil
}

// Attach binds to an existing Arbiter without touching the chain.
func Attach(address common.Address, opts contract.Options) (*Arbiter, error) {
	c, err := contract.Attach(opts.Config(arbiterName, abis.Arbiter, address))
	if err != nil {
		return nil, err
	}
	return &Arbiter{c: c}, nil
}

// Address returns the contract address in lowercase hex.
func (a *Arbiter) Address() string {
	return a.c.Address()
}

// Client exposes the underlying contract client.
func (a *Arbiter) Client() *contract.Client {
	return a.c
}

// AddExecutor grants the executor role to account.
func (a *Arbiter) AddExecutor(ctx context.Context, account common.Address) (*types.Receipt, error) {
	return a.grant(ctx, "addExecutor", RoleExecutor, account)
}

// RemoveExecutor revokes the executor role from account.
func (a *Arbiter) RemoveExecutor(ctx context.Context, account common.Address) (*types.Receipt, error) {
	return a.revoke(ctx, "removeExecutor", RoleExecutor, account)
}

// IsExecutor reports whether account holds the executor role.
func (a *Arbiter) IsExecutor(ctx context.Context, account common.Address) (bool, error) {
	return a.hasRole(ctx, "isExecutor", RoleExecutor, account)
}

// AddCustodian grants the custodian role to account.
func (a *Arbiter) AddCustodian(ctx context.Context, account common.Address) (*types.Receipt, error) {
	return a.grant(ctx, "addCustodian", RoleCustodian, account)
}

// RemoveCustodian revokes the custodian role from account.
func (a *Arbiter) RemoveCustodian(ctx context.Context, account common.Address) (*types.Receipt, error) {
	return a.revoke(ctx, "removeCustodian", RoleCustodian, account)
}

// IsCustodian reports whether account holds the custodian role.
func (a *Arbiter) IsCustodian(ctx context.Context, account common.Address) (bool, error) {
	return a.hasRole(ctx, "isCustodian", RoleCustodian, account)
}

func (a *Arbiter) grant(ctx context.Context, op, role string, account common.Address) (*types.Receipt, error) {
	return a.c.As(op).Transact(ctx, "grantRole", [32]byte(contract.RoleHash(role)), account)
}

func (a *Arbiter) revoke(ctx context.Context, op, role string, account common.Address) (*types.Receipt, error) {
	return a.c.As(op).Transact(ctx, "revokeRole", [32]byte(contract.RoleHash(role)), account)
}

func (a *Arbiter) hasRole(ctx context.Context, op, role string, account common.Address) (bool, error) {
	return contract.Read[bool](ctx, a.c.As(op), "hasRole", [32]byte(contract.RoleHash(role)), account)
}

// AddToken makes holders of token eligible to propose and vote.
func (a *Arbiter) AddToken(ctx context.Context, token common.Address) (*types.Receipt, error) {
	return a.c.Transact(ctx, "addToken", token)
}

// RemoveToken withdraws the eligibility of token.
func (a *Arbiter) RemoveToken(ctx context.Context, token common.Address) (*types.Receipt, error) {
	return a.c.Transact(ctx, "removeToken", token)
}

// Eligibility reports whether token has been added.
func (a *Arbiter) Eligibility(ctx context.Context, token common.Address) (bool, error) {
	return contract.Read[bool](ctx, a.c, "eligibility", token)
}

// Cancel cancels proposal. Requires the executor role.
func (a *Arbiter) Cancel(ctx context.Context, proposal common.Address) (*types.Receipt, error) {
	return a.c.Transact(ctx, "cancel", proposal)
}

// Execute marks proposal executed. Requires the executor role.
func (a *Arbiter) Execute(ctx context.Context, proposal common.Address) (*types.Receipt, error) {
	return a.c.Transact(ctx, "execute", proposal)
}

// Propose creates a proposal and returns its address, taken from the
// ProposalCreated event.
func (a *Arbiter) Propose(ctx context.Context, opts ProposeOptions) (contract.StateChangeResult[common.Address], error) {
	if err := opts.Validate(); err != nil {
		return contract.StateChangeResult[common.Address]{}, a.c.Report(ctx, "propose", fmt.Errorf("invalid proposal: %w", err))
	}
	return contract.Emitted[common.Address](ctx, a.c, "propose",
		contract.EventField{Event: "ProposalCreated", Index: 0},
		opts.Proposer, opts.Title, new(big.Int).SetUint64(opts.Start), opts.Duration,
	)
}

// ProposalByAddress fetches the proposal at address. It returns nil when the
// address holds no proposal contract.
func (a *Arbiter) ProposalByAddress(ctx context.Context, address common.Address) (*ProposalRecord, error) {
	p, err := AttachProposal(address, a.c.Options())
	if err != nil {
		return nil, err
	}
	return p.detailsOptional(ctx, "proposalByAddress")
}

// Version returns the contract version string.
func (a *Arbiter) Version(ctx context.Context) (string, error) {
	return contract.Read[string](ctx, a.c, "version")
}
