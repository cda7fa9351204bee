package contract

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/core/types"
)

// Event is a decoded log. Args follow the declaration order of the event
// inputs, indexed and non-indexed alike; Fields holds the same values by name.
type Event struct {
	Name   string
	Log    *types.Log
	Args   []any
	Fields map[string]any
}

// EventField selects one positional argument of an event. ABI overrides the
// client's descriptor when the event is emitted by another contract during
// the same transaction.
type EventField struct {
	ABI   *abi.ABI
	Event string
	Index int
}

// FindEvent scans logs in order and returns the first one whose topic[0]
// matches the event and which decodes cleanly. Logs from other contracts or
// with a different shape are skipped.
func FindEvent(contractABI *abi.ABI, name string, logs []*types.Log) (*Event, bool) {
	if contractABI == nil {
		return nil, false
	}
	def, ok := contractABI.Events[name]
	if !ok {
		return nil, false
	}
	for _, log := range logs {
		if log == nil || len(log.Topics) == 0 || log.Topics[0] != def.ID {
			continue
		}
		ev, err := decodeEvent(def, log)
		if err != nil {
			continue
		}
		return ev, true
	}
	return nil, false
}

func decodeEvent(def abi.Event, log *types.Log) (*Event, error) {
	var indexed abi.Arguments
	for _, input := range def.Inputs {
		if input.Indexed {
			indexed = append(indexed, input)
		}
	}
	fields := make(map[string]any, len(def.Inputs))
	if err := abi.ParseTopicsIntoMap(fields, indexed, log.Topics[1:]); err != nil {
		return nil, err
	}
	nonIndexed := def.Inputs.NonIndexed()
	var values []any
	if len(nonIndexed) > 0 {
		var err error
		values, err = nonIndexed.UnpackValues(log.Data)
		if err != nil {
			return nil, err
		}
		if len(values) != len(nonIndexed) {
			return nil, fmt.Errorf("event %s: decoded %d of %d values", def.Name, len(values), len(nonIndexed))
		}
	}

	args := make([]any, 0, len(def.Inputs))
	next := 0
	for _, input := range def.Inputs {
		if input.Indexed {
			args = append(args, fields[input.Name])
			continue
		}
		fields[input.Name] = values[next]
		args = append(args, values[next])
		next++
	}
	return &Event{Name: def.Name, Log: log, Args: args, Fields: fields}, nil
}

// Arg returns the positional argument i of ev converted to T.
func Arg[T any](ev *Event, i int) (T, error) {
	var zero T
	if ev == nil {
		return zero, fmt.Errorf("nil event")
	}
	if i < 0 || i >= len(ev.Args) {
		return zero, fmt.Errorf("event %s has no argument %d", ev.Name, i)
	}
	value, ok := ev.Args[i].(T)
	if !ok {
		return zero, fmt.Errorf("event %s argument %d is %T, want %T", ev.Name, i, ev.Args[i], zero)
	}
	return value, nil
}
