package contract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

var (
	// ErrDeployment matches every *DeploymentError.
	ErrDeployment = errors.New("contract: deployment failed")
	// ErrTransactionIncomplete matches every *TransactionIncompleteError.
	ErrTransactionIncomplete = errors.New("contract: transaction incomplete")
	// ErrEventNotFound matches every *EventNotFoundError.
	ErrEventNotFound = errors.New("contract: event not found")
	// ErrCall matches every *CallError.
	ErrCall = errors.New("contract: call failed")

	errNoSigner    = errors.New("no signer configured")
	errEmptyResult = errors.New("call returned no data")
	errReverted    = errors.New("transaction reverted")
)

// DeploymentError reports a creation transaction that was included but did not
// produce a contract.
type DeploymentError struct {
	TxHash common.Hash
	Err    error
}

func (e *DeploymentError) Error() string {
	msg := fmt.Sprintf("contract: deployment %s produced no contract", e.TxHash.Hex())
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DeploymentError) Is(target error) bool { return target == ErrDeployment }
func (e *DeploymentError) Unwrap() error         { return e.Err }

// TransactionIncompleteError reports a submitted transaction for which no
// receipt was obtained.
type TransactionIncompleteError struct {
	Op     string
	TxHash common.Hash
	Err    error
}

func (e *TransactionIncompleteError) Error() string {
	msg := fmt.Sprintf("contract: %s: no receipt for transaction %s", e.Op, e.TxHash.Hex())
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransactionIncompleteError) Is(target error) bool { return target == ErrTransactionIncomplete }
func (e *TransactionIncompleteError) Unwrap() error         { return e.Err }

// EventNotFoundError reports a receipt that lacks the event an operation
// promises to decode.
type EventNotFoundError struct {
	Op     string
	Event  string
	TxHash common.Hash
}

func (e *EventNotFoundError) Error() string {
	return fmt.Sprintf("contract: %s: event %q not found in receipt %s", e.Op, e.Event, e.TxHash.Hex())
}

func (e *EventNotFoundError) Is(target error) bool { return target == ErrEventNotFound }

// CallError is the normalized failure of a view call or transaction. Reason
// carries the decoded revert reason when the chain returned one.
type CallError struct {
	Op     string
	Reason string
	TxHash common.Hash
	Err    error
}

func (e *CallError) Error() string {
	var b strings.Builder
	b.WriteString("contract: ")
	b.WriteString(e.Op)
	if e.Reason != "" {
		b.WriteString(": reverted: ")
		b.WriteString(e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *CallError) Is(target error) bool { return target == ErrCall }
func (e *CallError) Unwrap() error         { return e.Err }

// IsNotFound reports whether err belongs to the bounded set of chain failures
// that mean "nothing at this address": no contract code or empty return data.
func IsNotFound(err error) bool {
	return errors.Is(err, bind.ErrNoCode) || errors.Is(err, errEmptyResult)
}

// Kind names the error class for metrics labels. It is empty for nil.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDeployment):
		return "deployment"
	case errors.Is(err, ErrTransactionIncomplete):
		return "incomplete"
	case errors.Is(err, ErrEventNotFound):
		return "event_not_found"
	case IsNotFound(err):
		return "not_found"
	case errors.Is(err, ErrCall):
		return "call"
	default:
		return "other"
	}
}

// RevertReason extracts a human readable reason from a chain error. Standard
// Error(string) payloads, Panic(uint256) codes and custom errors declared in
// contractABI are decoded; otherwise the text after "execution reverted" is
// used.
func RevertReason(contractABI *abi.ABI, err error) string {
	if err == nil {
		return ""
	}
	if data := revertData(err); len(data) >= 4 {
		if reason, uerr := abi.UnpackRevert(data); uerr == nil {
			return reason
		}
		if reason, ok := customError(contractABI, data); ok {
			return reason
		}
		return hexutil.Encode(data)
	}
	const marker = "execution reverted"
	msg := err.Error()
	if idx := strings.Index(msg, marker); idx >= 0 {
		return strings.TrimLeft(msg[idx+len(marker):], ": ")
	}
	return ""
}

func revertData(err error) []byte {
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return nil
	}
	switch data := dataErr.ErrorData().(type) {
	case string:
		decoded, derr := hexutil.Decode(data)
		if derr != nil {
			return nil
		}
		return decoded
	case []byte:
		return data
	default:
		return nil
	}
}

func customError(contractABI *abi.ABI, data []byte) (string, bool) {
	if contractABI == nil {
		return "", false
	}
	for _, abiErr := range contractABI.Errors {
		if !bytes.Equal(abiErr.ID[:4], data[:4]) {
			continue
		}
		values, err := abiErr.Inputs.Unpack(data[4:])
		if err != nil {
			return abiErr.Name, true
		}
		parts := make([]string, 0, len(values))
		for _, v := range values {
			parts = append(parts, formatValue(v))
		}
		return fmt.Sprintf("%s(%s)", abiErr.Name, strings.Join(parts, ", ")), true
	}
	return "", false
}

func formatValue(v any) string {
	switch value := v.(type) {
	case common.Address:
		return Lower(value)
	case [32]byte:
		return hexutil.Encode(value[:])
	default:
		return fmt.Sprint(value)
	}
}
