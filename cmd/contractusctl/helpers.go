package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"math"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"contractus/sdk/contract"
)

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func requireAddress(name, raw string) (common.Address, error) {
	if strings.TrimSpace(raw) == "" {
		return common.Address{}, fmt.Errorf("--%s is required", name)
	}
	addr, err := contract.ParseAddress(raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return addr, nil
}

// contractAddress prefers the flag value and falls back to the address
// configured for the contract.
func contractAddress(raw, configured string) (common.Address, error) {
	if strings.TrimSpace(raw) == "" {
		raw = configured
	}
	return requireAddress("contract", raw)
}

func requireTokenID(raw string) (*big.Int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("--id is required")
	}
	id, ok := new(big.Int).SetString(raw, 0)
	if !ok || id.Sign() <= 0 {
		return nil, fmt.Errorf("invalid --id %q", raw)
	}
	return id, nil
}

// durationSeconds converts --duration to the contract's uint32 seconds.
func durationSeconds(d time.Duration) (uint32, error) {
	switch {
	case d == 0:
		return 0, fmt.Errorf("--duration is required")
	case d < 0 || d/time.Second > math.MaxUint32:
		return 0, fmt.Errorf("invalid --duration %s", d)
	}
	return uint32(d / time.Second), nil
}

func readHexFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodeHex(string(data))
}

func decodeHex(raw string) ([]byte, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	if raw == "" {
		return nil, fmt.Errorf("empty hex input")
	}
	out, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	return out, nil
}

// bytecode resolves creation code from an explicit file or the configured
// artifact.
func bytecode(flagPath, artifact string) ([]byte, error) {
	path := strings.TrimSpace(flagPath)
	if path == "" {
		path = strings.TrimSpace(artifact)
	}
	if path == "" {
		return nil, fmt.Errorf("--bytecode is required when no artifact is configured")
	}
	code, err := readHexFile(path)
	if err != nil {
		return nil, fmt.Errorf("bytecode %s: %w", path, err)
	}
	return code, nil
}

type receiptOutput struct {
	TxHash  string `json:"txHash"`
	Block   uint64 `json:"block"`
	GasUsed uint64 `json:"gasUsed"`
	Status  uint64 `json:"status"`
}

func newReceiptOutput(receipt *types.Receipt) *receiptOutput {
	if receipt == nil {
		return nil
	}
	out := &receiptOutput{TxHash: receipt.TxHash.Hex(), GasUsed: receipt.GasUsed, Status: receipt.Status}
	if receipt.BlockNumber != nil {
		out.Block = receipt.BlockNumber.Uint64()
	}
	return out
}

type deployOutput struct {
	Contract string `json:"contract"`
	Address  string `json:"address"`
	TxHash   string `json:"txHash"`
}

func newDeployOutput(name string, result contract.DeployResult) deployOutput {
	return deployOutput{Contract: name, Address: contract.Lower(result.Address), TxHash: result.TxHash.Hex()}
}
