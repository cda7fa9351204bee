package contract

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Lower renders an address in the canonical lowercase 0x-hex form returned to
// callers.
func Lower(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

// ParseAddress validates a 0x-hex address in any letter case.
func ParseAddress(raw string) (common.Address, error) {
	trimmed := strings.TrimSpace(raw)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("invalid address %q", raw)
	}
	return common.HexToAddress(trimmed), nil
}

// NormalizeAddress returns the canonical lowercase form of raw. It is
// idempotent and insensitive to the letter case of its input.
func NormalizeAddress(raw string) (string, error) {
	addr, err := ParseAddress(raw)
	if err != nil {
		return "", err
	}
	return Lower(addr), nil
}

// SameAddress reports whether a and b name the same account. Invalid inputs
// never compare equal.
func SameAddress(a, b string) bool {
	left, err := NormalizeAddress(a)
	if err != nil {
		return false
	}
	right, err := NormalizeAddress(b)
	if err != nil {
		return false
	}
	return left == right
}
