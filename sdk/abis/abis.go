// Package abis embeds the ABI descriptors of the governance contracts. The
// descriptors are parsed once at init; a malformed descriptor is a build
// defect and panics.
package abis

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

var (
	//go:embed arbiter.json
	arbiterJSON []byte
	//go:embed proposal.json
	proposalJSON []byte
	//go:embed regimen.json
	regimenJSON []byte
	//go:embed sigillum.json
	sigillumJSON []byte
)

var (
	// Arbiter is the ABI of the governance hub contract.
	Arbiter = mustParse("arbiter", arbiterJSON)
	// Proposal is the ABI of the per-proposal contracts created by the Arbiter.
	Proposal = mustParse("proposal", proposalJSON)
	// Regimen is the ABI of the token registry contract.
	Regimen = mustParse("regimen", regimenJSON)
	// Sigillum is the ABI of the soulbound membership token. The Ordo
	// Administratorum variant exposes the same interface.
	Sigillum = mustParse("sigillum", sigillumJSON)
)

func mustParse(name string, raw []byte) *abi.ABI {
	parsed, err := abi.JSON(bytes.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("abis: parse %s: %v", name, err))
	}
	return &parsed
}
