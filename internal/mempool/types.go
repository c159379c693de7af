package mempool

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sadullah47/libra/internal/validator"
	"github.com/sadullah47/libra/pkg/types"
)

const (
	btreeDegree = 10
)

const (
	DefaultPoolSize     = 50000
	DefaultAccountSlots = 100
	DefaultLockTimeout  = 500 * time.Millisecond
)

type Config struct {
	PoolSize     uint64
	AccountSlots uint64
	LockTimeout  time.Duration
	Logger       logrus.FieldLogger
	Validator    validator.Validator
	// StateProvider supplies account snapshots for validation and seeds the
	// watermark for accounts the pool has not seen yet.
	StateProvider validator.StateProvider
}

// txItem is a pool entry: the transaction plus pool-assigned bookkeeping.
type txItem struct {
	account    string
	tx         *types.Transaction
	insertTime int64
	timelineID uint64 // 0 until accepted into the timeline
	local      bool
}

// AdmissionOutcome is the synchronous result of a submission.
type AdmissionOutcome int32

const (
	Accepted AdmissionOutcome = iota
	InvalidSeqNumber
	Duplicate
	PoolFull
	ValidatorRejected
)

func (o AdmissionOutcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case InvalidSeqNumber:
		return "invalid_seq_number"
	case Duplicate:
		return "duplicate"
	case PoolFull:
		return "pool_full"
	case ValidatorRejected:
		return "validator_rejected"
	default:
		return "unknown"
	}
}

// SubmissionStatus is returned to every submitter. ValidatorStatus is only
// set when the validator rejected the transaction.
type SubmissionStatus struct {
	Outcome         AdmissionOutcome
	ValidatorStatus validator.Status
}

// AccountSequence identifies one transaction slot of one account.
type AccountSequence struct {
	Sender         types.Address
	SequenceNumber uint64
}

// CommittedTransaction names a transaction included in a committed block.
type CommittedTransaction struct {
	Sender         types.Address
	SequenceNumber uint64
}

// TransactionExclusion names a transaction dropped by consensus without
// being committed; its sequence number stays resubmittable.
type TransactionExclusion struct {
	Sender         types.Address
	SequenceNumber uint64
	Reason         string
}

// CommitNotification is delivered after a block commits.
type CommitNotification struct {
	Timestamp int64
	Committed []CommittedTransaction
	Excluded  []TransactionExclusion
}

type CommitResponse struct {
	Status string
}

// TimelineEntry is one record of the accepted-transaction log.
type TimelineEntry struct {
	ID uint64
	Tx *types.Transaction
}
