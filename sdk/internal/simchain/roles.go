package simchain

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"contractus/sdk/contract"
)

var (
	defaultAdminRole = common.Hash{}
	executorRole     = contract.RoleHash("EXECUTOR_ROLE")
	custodianRole    = contract.RoleHash("CUSTODIAN_ROLE")
)

// accessControl emulates OpenZeppelin AccessControl with every role
// administered by the default admin role.
type accessControl struct {
	abi     *abi.ABI
	members map[common.Hash]map[common.Address]bool
}

func newAccessControl(contractABI *abi.ABI, admin common.Address) *accessControl {
	ac := &accessControl{abi: contractABI, members: make(map[common.Hash]map[common.Address]bool)}
	ac.set(defaultAdminRole, admin, true)
	return ac
}

func (ac *accessControl) has(role common.Hash, account common.Address) bool {
	return ac.members[role][account]
}

func (ac *accessControl) set(role common.Hash, account common.Address, on bool) {
	if ac.members[role] == nil {
		ac.members[role] = make(map[common.Address]bool)
	}
	ac.members[role][account] = on
}

func (ac *accessControl) require(e *env, roles ...common.Hash) error {
	for _, role := range roles {
		if ac.has(role, e.sender) {
			return nil
		}
	}
	return customError(ac.abi, "AccessControlUnauthorizedAccount", e.sender, [32]byte(roles[0]))
}

func (ac *accessControl) grant(e *env, role common.Hash, account common.Address) {
	if ac.has(role, account) {
		return
	}
	e.apply(func() { ac.set(role, account, true) })
	e.emit(ac.abi, "RoleGranted", [32]byte(role), account, e.sender)
}

func (ac *accessControl) revoke(e *env, role common.Hash, account common.Address) {
	if !ac.has(role, account) {
		return
	}
	e.apply(func() { ac.set(role, account, false) })
	e.emit(ac.abi, "RoleRevoked", [32]byte(role), account, e.sender)
}

func (ac *accessControl) methods(m methods) methods {
	m["DEFAULT_ADMIN_ROLE"] = func(*env, []any) ([]any, error) { return one([32]byte(defaultAdminRole)) }
	m["getRoleAdmin"] = func(*env, []any) ([]any, error) { return one([32]byte(defaultAdminRole)) }
	m["hasRole"] = func(_ *env, args []any) ([]any, error) {
		return one(ac.has(common.Hash(args[0].([32]byte)), args[1].(common.Address)))
	}
	m["grantRole"] = func(e *env, args []any) ([]any, error) {
		if err := ac.require(e, defaultAdminRole); err != nil {
			return nil, err
		}
		ac.grant(e, common.Hash(args[0].([32]byte)), args[1].(common.Address))
		return none()
	}
	m["revokeRole"] = func(e *env, args []any) ([]any, error) {
		if err := ac.require(e, defaultAdminRole); err != nil {
			return nil, err
		}
		ac.revoke(e, common.Hash(args[0].([32]byte)), args[1].(common.Address))
		return none()
	}
	m["renounceRole"] = func(e *env, args []any) ([]any, error) {
		if args[1].(common.Address) != e.sender {
			return nil, customError(ac.abi, "AccessControlBadConfirmation")
		}
		ac.revoke(e, common.Hash(args[0].([32]byte)), e.sender)
		return none()
	}
	m["supportsInterface"] = func(*env, []any) ([]any, error) { return one(true) }
	return m
}
