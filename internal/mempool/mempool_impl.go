package mempool

import (
	"time"

	"github.com/google/btree"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/sadullah47/libra/internal/validator"
	"github.com/sadullah47/libra/pkg/types"
)

type mempoolImpl struct {
	poolSize     uint64
	accountSlots uint64
	logger       logrus.FieldLogger
	validator    validator.Validator
	stateOf      func(addr types.Address) validator.AccountState
	txStore      *transactionStore
	mu           *timedMutex
	timelineHead *atomic.Uint64
}

func newMempoolImpl(config *Config) *mempoolImpl {
	mpi := &mempoolImpl{
		poolSize:     config.PoolSize,
		accountSlots: config.AccountSlots,
		logger:       config.Logger,
		validator:    config.Validator,
		mu:           newTimedMutex(config.LockTimeout),
		txStore:      newTransactionStore(),
		timelineHead: atomic.NewUint64(0),
	}
	if config.PoolSize == 0 {
		mpi.poolSize = DefaultPoolSize
	}
	if config.AccountSlots == 0 {
		mpi.accountSlots = DefaultAccountSlots
	}
	if config.StateProvider != nil {
		mpi.stateOf = config.StateProvider.AccountState
		mpi.txStore.nonceCache.getAccountSeq = func(account string) uint64 {
			addr, err := types.HexToAddress(account)
			if err != nil {
				return 0
			}
			return config.StateProvider.AccountState(addr).SequenceNumber
		}
	} else {
		mpi.stateOf = func(types.Address) validator.AccountState { return validator.AccountState{} }
	}
	mpi.logger.Infof("MemPool capacity = %d", mpi.poolSize)
	mpi.logger.Infof("MemPool account slots = %d", mpi.accountSlots)
	return mpi
}

func (mpi *mempoolImpl) ProcessTransaction(tx *types.Transaction, local bool) (*SubmissionStatus, error) {
	if err := mpi.mu.lock(); err != nil {
		return nil, err
	}
	defer mpi.mu.unlock()

	status := mpi.insert(tx, local)
	admissionCounter.WithLabelValues(status.Outcome.String()).Inc()
	poolSizeGauge.Set(float64(mpi.txStore.poolSize))
	return status, nil
}

// insert runs under the pool lock.
func (mpi *mempoolImpl) insert(tx *types.Transaction, local bool) *SubmissionStatus {
	account := tx.Sender.Hex()
	commitSeq := mpi.txStore.nonceCache.getCommitSequence(account)

	if tx.SequenceNumber < commitSeq || tx.SequenceNumber >= commitSeq+mpi.accountSlots {
		mpi.logger.Debugf("Account %s, submitted sequence %d outside [%d, %d)",
			account, tx.SequenceNumber, commitSeq, commitSeq+mpi.accountSlots)
		return &SubmissionStatus{Outcome: InvalidSeqNumber}
	}

	if mpi.txStore.getTxItem(account, tx.SequenceNumber) != nil {
		mpi.logger.Debugf("Tx [account: %s, seq: %d] already in pool", account, tx.SequenceNumber)
		return &SubmissionStatus{Outcome: Duplicate}
	}

	if vstatus := mpi.validator.Validate(tx, mpi.stateOf(tx.Sender)); vstatus != validator.StatusOK {
		return &SubmissionStatus{Outcome: ValidatorRejected, ValidatorStatus: vstatus}
	}

	item := &txItem{
		account:    account,
		tx:         tx,
		insertTime: time.Now().UnixNano(),
		local:      local,
	}

	if mpi.txStore.poolSize >= mpi.poolSize {
		victim := mpi.txStore.lowestPriority()
		if victim == nil || !makePriorityKey(item).Less(makePriorityKey(victim)) {
			mpi.logger.Debugf("Pool full, tx [account: %s, seq: %d, gas: %d] does not beat lowest resident",
				account, tx.SequenceNumber, tx.GasUnitPrice)
			return &SubmissionStatus{Outcome: PoolFull}
		}
		mpi.logger.Debugf("Pool full, evicting [account: %s, seq: %d, gas: %d]",
			victim.account, victim.tx.SequenceNumber, victim.tx.GasUnitPrice)
		mpi.txStore.removeItem(victim)
		evictionCounter.Inc()
	}

	mpi.txStore.insertItem(item)
	mpi.timelineHead.Store(mpi.txStore.timeline.head())
	return &SubmissionStatus{Outcome: Accepted}
}

func (mpi *mempoolImpl) GetBlock(maxSize uint64, exclude map[AccountSequence]bool) ([]*types.Transaction, error) {
	if err := mpi.mu.lock(); err != nil {
		return nil, err
	}
	defer mpi.mu.unlock()

	start := time.Now()
	defer func() {
		getBlockDuration.Observe(time.Since(start).Seconds())
	}()

	skipped := make(map[orderedIndexKey]bool)
	selected := make(map[orderedIndexKey]bool)
	result := make([]*types.Transaction, 0, maxSize)

	mpi.txStore.priorityIndex.data.Ascend(func(i btree.Item) bool {
		key := i.(*priorityKey)
		item := mpi.txStore.getTxItem(key.account, key.nonce)
		if item == nil {
			return true
		}
		if exclude[AccountSequence{Sender: item.tx.Sender, SequenceNumber: key.nonce}] {
			return true
		}
		commitSeq := mpi.txStore.nonceCache.getCommitSequence(key.account)
		if key.nonce < commitSeq {
			// stale leftover, will be pruned on the next commit
			return true
		}
		var seenPrevious bool
		if key.nonce >= 1 {
			seenPrevious = selected[orderedIndexKey{account: key.account, nonce: key.nonce - 1}]
		}
		// include transaction if it's "next" for the account or its
		// predecessor was already picked into this block
		if !seenPrevious && key.nonce != commitSeq {
			skipped[orderedIndexKey{account: key.account, nonce: key.nonce}] = true
			return true
		}
		selected[orderedIndexKey{account: key.account, nonce: key.nonce}] = true
		result = append(result, item.tx)
		if uint64(len(result)) == maxSize {
			return false
		}
		// pull in any same-account successors skipped earlier in the scan
		next := orderedIndexKey{account: key.account, nonce: key.nonce + 1}
		for skipped[next] {
			successor := mpi.txStore.getTxItem(next.account, next.nonce)
			if successor == nil {
				break
			}
			selected[next] = true
			result = append(result, successor.tx)
			if uint64(len(result)) == maxSize {
				return false
			}
			next.nonce++
		}
		return true
	})

	mpi.logger.Debugf("Built block with %d txs, pool holds %d", len(result), mpi.txStore.poolSize)
	return result, nil
}

func (mpi *mempoolImpl) Commit(committed []CommittedTransaction, timestamp int64) error {
	if err := mpi.mu.lock(); err != nil {
		return err
	}
	defer mpi.mu.unlock()

	dirtyAccounts := make(map[string]bool)
	for _, ctx := range committed {
		account := ctx.Sender.Hex()
		newCommitSeq := ctx.SequenceNumber + 1
		if mpi.txStore.nonceCache.getCommitSequence(account) < newCommitSeq {
			mpi.txStore.nonceCache.setCommitSequence(account, newCommitSeq)
		}
		if item := mpi.txStore.getTxItem(account, ctx.SequenceNumber); item != nil {
			mpi.txStore.removeItem(item)
		}
		dirtyAccounts[account] = true
	}

	// raising a watermark implicitly invalidates lower-sequence leftovers
	for account := range dirtyAccounts {
		commitSeq := mpi.txStore.nonceCache.getCommitSequence(account)
		if list, ok := mpi.txStore.allTxs[account]; ok {
			for _, stale := range list.forward(commitSeq) {
				mpi.txStore.removeItem(stale)
			}
		}
	}
	poolSizeGauge.Set(float64(mpi.txStore.poolSize))
	mpi.logger.Debugf("Committed %d txs at %d, pool holds %d", len(committed), timestamp, mpi.txStore.poolSize)
	return nil
}

func (mpi *mempoolImpl) Reject(txs []AccountSequence, reason string) error {
	if err := mpi.mu.lock(); err != nil {
		return err
	}
	defer mpi.mu.unlock()

	removed := 0
	for _, ptr := range txs {
		if item := mpi.txStore.getTxItem(ptr.Sender.Hex(), ptr.SequenceNumber); item != nil {
			mpi.txStore.removeItem(item)
			removed++
		}
	}
	poolSizeGauge.Set(float64(mpi.txStore.poolSize))
	mpi.logger.Debugf("Rejected %d of %d txs, reason: %s", removed, len(txs), reason)
	return nil
}

func (mpi *mempoolImpl) Expire(now time.Time) (int, error) {
	if err := mpi.mu.lock(); err != nil {
		return 0, err
	}
	defer mpi.mu.unlock()

	deadline := now.Unix()
	expired := make([]*txItem, 0)
	mpi.txStore.ttlIndex.data.Ascend(func(i btree.Item) bool {
		key := i.(*ttlKey)
		if key.expiration > deadline {
			return false
		}
		if item := mpi.txStore.getTxItem(key.account, key.nonce); item != nil {
			expired = append(expired, item)
		}
		return true
	})
	for _, item := range expired {
		mpi.txStore.removeItem(item)
	}
	if len(expired) > 0 {
		expiredCounter.Add(float64(len(expired)))
		poolSizeGauge.Set(float64(mpi.txStore.poolSize))
		mpi.logger.Infof("Expired %d txs from pool", len(expired))
	}
	return len(expired), nil
}

func (mpi *mempoolImpl) ReadTimeline(after uint64, limit int) ([]TimelineEntry, error) {
	if err := mpi.mu.lock(); err != nil {
		return nil, err
	}
	defer mpi.mu.unlock()
	return mpi.txStore.timeline.read(after, limit), nil
}

// TimelineHead does not take the pool lock; broadcast loops poll it to
// decide whether a diff is worth computing.
func (mpi *mempoolImpl) TimelineHead() uint64 {
	return mpi.timelineHead.Load()
}

func (mpi *mempoolImpl) GetPendingSequence(addr types.Address) (uint64, error) {
	if err := mpi.mu.lock(); err != nil {
		return 0, err
	}
	defer mpi.mu.unlock()
	return mpi.txStore.pendingSequence(addr.Hex()), nil
}

func (mpi *mempoolImpl) PoolSize() uint64 {
	if err := mpi.mu.lock(); err != nil {
		return 0
	}
	defer mpi.mu.unlock()
	return mpi.txStore.poolSize
}
