package mempool

import (
	"time"

	"github.com/sadullah47/libra/pkg/types"
)

var _ MemPool = (*mempoolImpl)(nil)

// MemPool is the authoritative in-memory transaction pool. All mutating
// operations are serialized behind a bounded-wait lock; ErrLockTimeout from
// any operation is transient and retryable.
type MemPool interface {
	// ProcessTransaction validates and admits one transaction, returning the
	// admission outcome synchronously.
	ProcessTransaction(tx *types.Transaction, local bool) (*SubmissionStatus, error)

	// GetBlock builds an ordered proposal of up to maxSize transactions,
	// skipping entries in exclude and preserving per-account sequencing.
	GetBlock(maxSize uint64, exclude map[AccountSequence]bool) ([]*types.Transaction, error)

	// Commit removes committed transactions and raises account watermarks.
	// It is idempotent.
	Commit(committed []CommittedTransaction, timestamp int64) error

	// Reject removes transactions without raising watermarks, leaving their
	// sequence numbers resubmittable.
	Reject(txs []AccountSequence, reason string) error

	// Expire sweeps entries whose expiration time has passed, returning the
	// number removed.
	Expire(now time.Time) (int, error)

	// ReadTimeline returns up to limit accepted transactions with timeline
	// id greater than after, in id order, skipping removed entries.
	ReadTimeline(after uint64, limit int) ([]TimelineEntry, error)

	// TimelineHead returns the highest timeline id assigned so far.
	TimelineHead() uint64

	// GetPendingSequence returns the account's next proposable sequence
	// number given the pool contents.
	GetPendingSequence(addr types.Address) (uint64, error)

	// PoolSize returns the current number of entries.
	PoolSize() uint64
}

// New returns the pool instance.
func New(config *Config) MemPool {
	return newMempoolImpl(config)
}
