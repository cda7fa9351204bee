package simchain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"contractus/sdk/abis"
	"contractus/sdk/contract"
	"contractus/sdk/metadata"
)

// IssuerRank is the rank whose holders may mint on the Ordo variant.
var IssuerRank = contract.RoleHash("PREFECTUS_RANK")

var (
	sigillumKind = &kind{name: "Sigillum", code: SigillumCode, abi: abis.Sigillum, create: newSigillum(false)}
	ordoKind     = &kind{name: "SigillumOrdoAdministratorum", code: OrdoCode, abi: abis.Sigillum, create: newSigillum(true)}
)

func newSigillum(ranked bool) func(e *env, args []any) (instance, error) {
	return func(e *env, args []any) (instance, error) {
		return &sigillum{
			access:      newAccessControl(abis.Sigillum, e.sender),
			ranked:      ranked,
			name:        args[0].(string),
			symbol:      args[1].(string),
			description: args[2].(string),
			arbiter:     args[3].(common.Address),
			nextID:      1,
			owners:      make(map[uint64]common.Address),
			ranks:       make(map[uint64][32]byte),
			holdings:    make(map[common.Address]uint64),
		}, nil
	}
}

// sigillum is a soulbound token: one token per holder, each with a rank.
type sigillum struct {
	access *accessControl
	ranked bool

	name        string
	symbol      string
	description string
	arbiter     common.Address

	nextID   uint64
	owners   map[uint64]common.Address
	ranks    map[uint64][32]byte
	holdings map[common.Address]uint64
}

func (s *sigillum) call(e *env, method string, args []any) ([]any, error) {
	return s.methods().call(e, method, args)
}

func (s *sigillum) methods() methods {
	m := methods{
		"name":        func(*env, []any) ([]any, error) { return one(s.name) },
		"symbol":      func(*env, []any) ([]any, error) { return one(s.symbol) },
		"description": func(*env, []any) ([]any, error) { return one(s.description) },
		"version":     func(*env, []any) ([]any, error) { return one(emulatedVersion) },
		"arbiter":     func(*env, []any) ([]any, error) { return one(s.arbiter) },
		"supply": func(*env, []any) ([]any, error) {
			return one(new(big.Int).SetUint64(uint64(len(s.owners))))
		},
		"balanceOf": func(_ *env, args []any) ([]any, error) {
			if s.holdings[args[0].(common.Address)] != 0 {
				return one(big.NewInt(1))
			}
			return one(new(big.Int))
		},
		"ownerOf": func(_ *env, args []any) ([]any, error) {
			id, err := s.existing(args[0].(*big.Int))
			if err != nil {
				return nil, err
			}
			return one(s.owners[id])
		},
		"tokenOf": func(_ *env, args []any) ([]any, error) {
			id := s.holdings[args[0].(common.Address)]
			return []any{new(big.Int).SetUint64(id), s.ranks[id]}, nil
		},
		"contractURI": s.contractURI,
		"tokenURI":    s.tokenURI,
		"setArbiter":  s.setArbiter,
		"mint":        s.mint,
		"burn":        s.burn,
		"propose":     s.propose,
		"vote":        s.vote,
		"hasVoted":    s.hasVoted,
	}
	return s.access.methods(m)
}

func (s *sigillum) existing(tokenID *big.Int) (uint64, error) {
	if tokenID.IsUint64() {
		if _, ok := s.owners[tokenID.Uint64()]; ok {
			return tokenID.Uint64(), nil
		}
	}
	return 0, customError(abis.Sigillum, "ERC721NonexistentToken", new(big.Int).Set(tokenID))
}

func (s *sigillum) contractURI(*env, []any) ([]any, error) {
	uri, err := metadata.EncodeJSON(metadata.ContractMetadata{
		Name:        s.name,
		Description: s.description,
		Symbol:      s.symbol,
	})
	if err != nil {
		return nil, err
	}
	return one(uri)
}

func (s *sigillum) tokenURI(_ *env, args []any) ([]any, error) {
	id, err := s.existing(args[0].(*big.Int))
	if err != nil {
		return nil, err
	}
	rank := s.ranks[id]
	uri, err := metadata.EncodeJSON(metadata.TokenMetadata{
		Name:        fmt.Sprintf("%s #%d", s.name, id),
		Description: s.description,
		Attributes: []metadata.Attribute{
			{TraitType: "rank", Value: hexutil.Encode(rank[:])},
		},
	})
	if err != nil {
		return nil, err
	}
	return one(uri)
}

func (s *sigillum) setArbiter(e *env, args []any) ([]any, error) {
	if err := s.access.require(e, defaultAdminRole); err != nil {
		return nil, err
	}
	previous, next := s.arbiter, args[0].(common.Address)
	e.apply(func() { s.arbiter = next })
	e.emit(abis.Sigillum, "ArbiterUpdated", previous, next)
	return none()
}

func (s *sigillum) mayMint(e *env) error {
	if s.access.has(defaultAdminRole, e.sender) {
		return nil
	}
	if s.ranked {
		if id := s.holdings[e.sender]; id != 0 && s.ranks[id] == [32]byte(IssuerRank) {
			return nil
		}
	}
	return s.access.require(e, defaultAdminRole)
}

func (s *sigillum) mint(e *env, args []any) ([]any, error) {
	if err := s.mayMint(e); err != nil {
		return nil, err
	}
	recipient := args[0].(common.Address)
	rank := args[1].([32]byte)
	if recipient == (common.Address{}) {
		return nil, revert("mint to zero address")
	}
	if s.holdings[recipient] != 0 {
		return nil, revert("recipient already has token")
	}
	id := s.nextID
	e.apply(func() {
		s.nextID++
		s.owners[id] = recipient
		s.ranks[id] = rank
		s.holdings[recipient] = id
	})
	e.emit(abis.Sigillum, "Transfer", common.Address{}, recipient, new(big.Int).SetUint64(id))
	return none()
}

func (s *sigillum) burn(e *env, args []any) ([]any, error) {
	id, err := s.existing(args[0].(*big.Int))
	if err != nil {
		return nil, err
	}
	owner := s.owners[id]
	if e.sender != owner && !s.access.has(defaultAdminRole, e.sender) {
		return nil, customError(abis.Sigillum, "ERC721IncorrectOwner", e.sender, new(big.Int).SetUint64(id), owner)
	}
	e.apply(func() {
		delete(s.owners, id)
		delete(s.ranks, id)
		delete(s.holdings, owner)
	})
	e.emit(abis.Sigillum, "Transfer", owner, common.Address{}, new(big.Int).SetUint64(id))
	return none()
}

func (s *sigillum) propose(e *env, args []any) ([]any, error) {
	if s.holdings[e.sender] == 0 {
		return nil, revert("caller holds no token")
	}
	out, err := e.call(s.arbiter, "propose", e.sender, args[0].(string), args[1].(*big.Int), args[2].(uint32))
	if err != nil {
		return nil, err
	}
	return one(out[0])
}

func (s *sigillum) vote(e *env, args []any) ([]any, error) {
	tokenID := args[0].(*big.Int)
	id, err := s.existing(tokenID)
	if err != nil {
		return nil, err
	}
	if owner := s.owners[id]; owner != e.sender {
		return nil, customError(abis.Sigillum, "ERC721IncorrectOwner", e.sender, new(big.Int).Set(tokenID), owner)
	}
	if _, err := e.call(s.arbiter, "vote", tokenID, args[1].(common.Address), args[2].(uint8)); err != nil {
		return nil, err
	}
	return none()
}

func (s *sigillum) hasVoted(e *env, args []any) ([]any, error) {
	out, err := e.call(args[1].(common.Address), "hasVoted", e.self, args[0].(*big.Int))
	if err != nil {
		return nil, err
	}
	v := out[0].(voteRecord)
	return []any{v.Vote, v.Voted}, nil
}
