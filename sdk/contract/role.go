package contract

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// RoleHash returns keccak256 over the UTF-8 bytes of name, the identifier the
// contracts use for roles and ranks.
func RoleHash(name string) common.Hash {
	return crypto.Keccak256Hash([]byte(name))
}
