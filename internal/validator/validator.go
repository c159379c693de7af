package validator

import (
	"github.com/sadullah47/libra/pkg/types"
)

// Status is the validator-supplied status code attached to a rejection.
type Status int32

const (
	StatusOK Status = iota
	StatusInvalidSignature
	StatusGasBelowFloor
	StatusInvalidGasParams
	StatusInsufficientBalance
	StatusTooOld
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusInvalidSignature:
		return "invalid_signature"
	case StatusGasBelowFloor:
		return "gas_below_floor"
	case StatusInvalidGasParams:
		return "invalid_gas_params"
	case StatusInsufficientBalance:
		return "insufficient_balance"
	case StatusTooOld:
		return "sequence_too_old"
	case StatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// AccountState is the externally supplied snapshot of an account used for
// stateful plausibility checks.
type AccountState struct {
	SequenceNumber uint64
	Balance        uint64
}

// StateProvider resolves account snapshots. Implemented by the ledger layer;
// tests substitute a deterministic fake.
type StateProvider interface {
	AccountState(addr types.Address) AccountState
}

// Validator performs signature, gas and balance checks on a single
// transaction against the given account snapshot. It is a synchronous,
// possibly failing call; StatusOK means the transaction is admissible.
type Validator interface {
	Validate(tx *types.Transaction, state AccountState) Status
}
