package arbiter

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Role names granted on the Arbiter. The contracts identify them by
// contract.RoleHash of the name.
const (
	RoleExecutor  = "EXECUTOR_ROLE"
	RoleCustodian = "CUSTODIAN_ROLE"
)

// maxStart is the largest timestamp a uint48 can hold.
const maxStart = 1<<48 - 1

// Choice is a ballot option, sent to the contract as its numeric code.
type Choice uint8

const (
	ChoiceAbstain Choice = iota
	ChoiceAccept
	ChoiceReject
)

func (c Choice) String() string {
	switch c {
	case ChoiceAccept:
		return "accept"
	case ChoiceAbstain:
		return "abstain"
	case ChoiceReject:
		return "reject"
	default:
		return fmt.Sprintf("choice(%d)", uint8(c))
	}
}

// Valid reports whether c is one of the three ballot options.
func (c Choice) Valid() bool {
	return c <= ChoiceReject
}

// ParseChoice accepts the names returned by String.
func ParseChoice(raw string) (Choice, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "accept":
		return ChoiceAccept, nil
	case "abstain":
		return ChoiceAbstain, nil
	case "reject":
		return ChoiceReject, nil
	}
	return 0, fmt.Errorf("unknown choice %q", raw)
}

// ProposalRecord is a snapshot of a proposal contract. Start is a unix
// timestamp in seconds and Duration a number of seconds.
type ProposalRecord struct {
	ID       common.Address
	Proposer common.Address
	Title    string
	Start    uint64
	Duration uint32
	Canceled bool
	Executed bool
}

// End is the first second at which voting is closed.
func (p ProposalRecord) End() uint64 {
	return p.Start + uint64(p.Duration)
}

// Open reports whether a vote cast at unix would be accepted by the timing and
// status rules.
func (p ProposalRecord) Open(unix uint64) bool {
	return !p.Canceled && !p.Executed && unix >= p.Start && unix < p.End()
}

// VoteResult is the tally of a proposal.
type VoteResult struct {
	Accept  uint32
	Abstain uint32
	Reject  uint32
}

// Total is the number of ballots cast.
func (v VoteResult) Total() uint64 {
	return uint64(v.Accept) + uint64(v.Abstain) + uint64(v.Reject)
}

// HasVotedResult reports whether a token has voted on a proposal and how.
type HasVotedResult struct {
	Proposal common.Address
	Choice   Choice
	Voted    bool
}

// ProposeOptions are the arguments of Arbiter.Propose.
type ProposeOptions struct {
	Proposer common.Address
	Title    string
	Start    uint64
	Duration uint32
}

// Validate checks the arguments that cannot be encoded.
func (o ProposeOptions) Validate() error {
	if o.Proposer == (common.Address{}) {
		return fmt.Errorf("proposer is required")
	}
	return ValidateStart(o.Start)
}

// ValidateStart checks that start fits the contract's uint48 timestamp. The
// title and voting window are left to the contract.
func ValidateStart(start uint64) error {
	if start > maxStart {
		return fmt.Errorf("start %d exceeds uint48", start)
	}
	return nil
}
