package simchain

import (
	"github.com/ethereum/go-ethereum/common"

	"contractus/sdk/abis"
)

var regimenKind = &kind{
	name: "Regimen",
	code: RegimenCode,
	abi:  abis.Regimen,
	create: func(e *env, _ []any) (instance, error) {
		return &regimen{
			access: newAccessControl(abis.Regimen, e.sender),
			tokens: make(map[common.Address]bool),
		}, nil
	},
}

type regimen struct {
	access *accessControl
	tokens map[common.Address]bool
}

func (r *regimen) call(e *env, method string, args []any) ([]any, error) {
	return r.methods().call(e, method, args)
}

func (r *regimen) methods() methods {
	m := methods{
		"version": func(*env, []any) ([]any, error) { return one(emulatedVersion) },
		"canVote": func(_ *env, args []any) ([]any, error) {
			return one(r.tokens[args[0].(common.Address)])
		},
		"addToken": func(e *env, args []any) ([]any, error) {
			return r.setToken(e, args[0].(common.Address), true, "TokenAdded")
		},
		"removeToken": func(e *env, args []any) ([]any, error) {
			return r.setToken(e, args[0].(common.Address), false, "TokenRemoved")
		},
	}
	return r.access.methods(m)
}

func (r *regimen) setToken(e *env, token common.Address, on bool, event string) ([]any, error) {
	if err := r.access.require(e, defaultAdminRole); err != nil {
		return nil, err
	}
	if r.tokens[token] == on {
		return nil, revert("token already in requested state")
	}
	e.apply(func() { r.tokens[token] = on })
	e.emit(abis.Regimen, event, token)
	return none()
}
