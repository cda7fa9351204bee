// Package rank maps the rank names carried by Ordo tokens to the hashes the
// contract stores.
package rank

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"contractus/sdk/contract"
)

// Rank is the name of a rank, e.g. "PREFECTUS_RANK".
type Rank string

// Ranks known to the Ordo Administratorum contract. Holders of Prefectus may
// mint.
const (
	Prefectus Rank = "PREFECTUS_RANK"
	Adeptus   Rank = "ADEPTUS_RANK"
	Novitiate Rank = "NOVITIATE_RANK"
)

// Hash returns the on-chain identifier of r.
func (r Rank) Hash() common.Hash {
	return contract.RoleHash(string(r))
}

func (r Rank) String() string {
	return string(r)
}

// Policy is a fixed set of ranks. The zero value accepts nothing.
type Policy struct {
	byHash map[common.Hash]Rank
	order  []Rank
}

// NewPolicy builds a policy from ranks. Names are trimmed and must be
// non-empty and distinct.
func NewPolicy(ranks ...Rank) (Policy, error) {
	p := Policy{byHash: make(map[common.Hash]Rank, len(ranks))}
	for _, r := range ranks {
		r = Rank(strings.TrimSpace(string(r)))
		if r == "" {
			return Policy{}, fmt.Errorf("empty rank name")
		}
		h := r.Hash()
		if _, dup := p.byHash[h]; dup {
			return Policy{}, fmt.Errorf("duplicate rank %s", r)
		}
		p.byHash[h] = r
		p.order = append(p.order, r)
	}
	return p, nil
}

// Default is the policy of the Ordo Administratorum contract.
func Default() Policy {
	p, err := NewPolicy(Prefectus, Adeptus, Novitiate)
	if err != nil {
		panic(err)
	}
	return p
}

// Contains reports whether r belongs to the policy.
func (p Policy) Contains(r Rank) bool {
	_, ok := p.byHash[r.Hash()]
	return ok
}

// Parse maps a stored hash back to its rank.
func (p Policy) Parse(hashed common.Hash) (Rank, bool) {
	r, ok := p.byHash[hashed]
	return r, ok
}

// Ranks lists the policy in declaration order.
func (p Policy) Ranks() []Rank {
	return append([]Rank(nil), p.order...)
}

// Lookup resolves a rank by name, ignoring letter case and accepting the name
// with or without the _RANK suffix.
func (p Policy) Lookup(name string) (Rank, error) {
	candidate := strings.ToUpper(strings.TrimSpace(name))
	if !strings.HasSuffix(candidate, "_RANK") {
		candidate += "_RANK"
	}
	r := Rank(candidate)
	if !p.Contains(r) {
		return "", fmt.Errorf("unknown rank %q", name)
	}
	return r, nil
}
