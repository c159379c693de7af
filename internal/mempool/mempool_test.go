package mempool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sadullah47/libra/internal/validator"
)

func TestProcessTransaction_SequenceWindow(t *testing.T) {
	mpi := mockMempoolImpl(DefaultTestPoolSize)

	// beyond the look-ahead window
	status, err := mpi.ProcessTransaction(constructTx(1, DefaultTestAccountSlots, 10), true)
	require.Nil(t, err)
	require.Equal(t, InvalidSeqNumber, status.Outcome)

	// below the watermark after a commit
	require.Nil(t, mpi.Commit([]CommittedTransaction{{Sender: testAccount(1), SequenceNumber: 2}}, time.Now().Unix()))
	status, err = mpi.ProcessTransaction(constructTx(1, 1, 10), true)
	require.Nil(t, err)
	require.Equal(t, InvalidSeqNumber, status.Outcome)

	// watermark+1 is admissible
	status, err = mpi.ProcessTransaction(constructTx(1, 3, 10), true)
	require.Nil(t, err)
	require.Equal(t, Accepted, status.Outcome)
}

func TestProcessTransaction_Duplicate(t *testing.T) {
	mpi := mockMempoolImpl(DefaultTestPoolSize)

	require.Equal(t, Accepted, mustAccept(mpi, constructTx(1, 0, 10)).Outcome)

	// same slot, different content
	status, err := mpi.ProcessTransaction(constructTx(1, 0, 99), true)
	require.Nil(t, err)
	require.Equal(t, Duplicate, status.Outcome)
	require.Equal(t, uint64(1), mpi.PoolSize())
}

func TestProcessTransaction_ValidatorRejected(t *testing.T) {
	mpi := mockMempoolWithValidator(DefaultTestPoolSize, &acceptAllValidator{status: validator.StatusGasBelowFloor})

	status, err := mpi.ProcessTransaction(constructTx(1, 0, 10), true)
	require.Nil(t, err)
	require.Equal(t, ValidatorRejected, status.Outcome)
	require.Equal(t, validator.StatusGasBelowFloor, status.ValidatorStatus)
	require.Equal(t, uint64(0), mpi.PoolSize())
}

func TestGetBlock_PriorityAndContiguity(t *testing.T) {
	mpi := mockMempoolImpl(DefaultTestPoolSize)

	// inserted out of sequence order on purpose
	require.Equal(t, Accepted, mustAccept(mpi, constructTx(1, 1, 10)).Outcome)
	require.Equal(t, Accepted, mustAccept(mpi, constructTx(1, 0, 10)).Outcome)
	require.Equal(t, Accepted, mustAccept(mpi, constructTx(2, 0, 20)).Outcome)

	block, err := mpi.GetBlock(2, nil)
	require.Nil(t, err)
	require.Len(t, block, 2)
	require.Equal(t, testAccount(2), block[0].Sender)
	require.Equal(t, uint64(0), block[0].SequenceNumber)
	require.Equal(t, testAccount(1), block[1].Sender)
	require.Equal(t, uint64(0), block[1].SequenceNumber)

	block, err = mpi.GetBlock(3, nil)
	require.Nil(t, err)
	require.Len(t, block, 3)
	require.Equal(t, uint64(0), block[1].SequenceNumber)
	require.Equal(t, uint64(1), block[2].SequenceNumber)
	require.Equal(t, testAccount(1), block[2].Sender)
}

func TestGetBlock_NeverReturnsGappedSequence(t *testing.T) {
	mpi := mockMempoolImpl(DefaultTestPoolSize)

	// seq 1 without seq 0: unproposable until the gap is filled
	require.Equal(t, Accepted, mustAccept(mpi, constructTx(1, 1, 50)).Outcome)
	block, err := mpi.GetBlock(10, nil)
	require.Nil(t, err)
	require.Len(t, block, 0)

	require.Equal(t, Accepted, mustAccept(mpi, constructTx(1, 0, 1)).Outcome)
	block, err = mpi.GetBlock(10, nil)
	require.Nil(t, err)
	require.Len(t, block, 2)
	require.Equal(t, uint64(0), block[0].SequenceNumber)
	require.Equal(t, uint64(1), block[1].SequenceNumber)
}

func TestGetBlock_WatermarkSatisfiesContiguity(t *testing.T) {
	mpi := mockMempoolImpl(DefaultTestPoolSize)

	require.Equal(t, Accepted, mustAccept(mpi, constructTx(1, 0, 10)).Outcome)
	require.Equal(t, Accepted, mustAccept(mpi, constructTx(1, 1, 10)).Outcome)

	require.Nil(t, mpi.Commit([]CommittedTransaction{{Sender: testAccount(1), SequenceNumber: 0}}, time.Now().Unix()))
	require.Equal(t, uint64(1), mpi.PoolSize())

	// A1 is proposable even though A0 left the pool
	block, err := mpi.GetBlock(10, nil)
	require.Nil(t, err)
	require.Len(t, block, 1)
	require.Equal(t, uint64(1), block[0].SequenceNumber)
}

func TestGetBlock_ExcludeSet(t *testing.T) {
	mpi := mockMempoolImpl(DefaultTestPoolSize)

	require.Equal(t, Accepted, mustAccept(mpi, constructTx(1, 0, 10)).Outcome)
	require.Equal(t, Accepted, mustAccept(mpi, constructTx(1, 1, 10)).Outcome)

	exclude := map[AccountSequence]bool{
		{Sender: testAccount(1), SequenceNumber: 0}: true,
	}
	// excluding seq 0 also blocks seq 1: exclusion is not selection
	block, err := mpi.GetBlock(10, exclude)
	require.Nil(t, err)
	require.Len(t, block, 0)
}

func TestCapacityEviction(t *testing.T) {
	poolSize := uint64(4)
	mpi := mockMempoolImpl(poolSize)

	for i := byte(0); i < 4; i++ {
		require.Equal(t, Accepted, mustAccept(mpi, constructTx(i+1, 0, uint64(10+i))).Outcome)
	}
	require.Equal(t, poolSize, mpi.PoolSize())

	// newcomer with higher gas price evicts the lowest-priced resident
	status := mustAccept(mpi, constructTx(9, 0, 100))
	require.Equal(t, Accepted, status.Outcome)
	require.Equal(t, poolSize, mpi.PoolSize())
	require.Nil(t, mpi.txStore.getTxItem(testAccount(1).Hex(), 0))

	// newcomer that does not beat the lowest resident is refused
	status = mustAccept(mpi, constructTx(8, 0, 5))
	require.Equal(t, PoolFull, status.Outcome)
	require.Equal(t, poolSize, mpi.PoolSize())
}

func TestCommit_Idempotent(t *testing.T) {
	mpi := mockMempoolImpl(DefaultTestPoolSize)

	require.Equal(t, Accepted, mustAccept(mpi, constructTx(1, 0, 10)).Outcome)
	require.Equal(t, Accepted, mustAccept(mpi, constructTx(1, 1, 10)).Outcome)

	notification := []CommittedTransaction{{Sender: testAccount(1), SequenceNumber: 0}}
	require.Nil(t, mpi.Commit(notification, 1))
	sizeAfterFirst := mpi.PoolSize()
	seqAfterFirst := mpi.txStore.nonceCache.getCommitSequence(testAccount(1).Hex())

	require.Nil(t, mpi.Commit(notification, 2))
	require.Equal(t, sizeAfterFirst, mpi.PoolSize())
	require.Equal(t, seqAfterFirst, mpi.txStore.nonceCache.getCommitSequence(testAccount(1).Hex()))
}

func TestCommit_PrunesStaleLowerSequences(t *testing.T) {
	mpi := mockMempoolImpl(DefaultTestPoolSize)

	require.Equal(t, Accepted, mustAccept(mpi, constructTx(1, 0, 10)).Outcome)
	require.Equal(t, Accepted, mustAccept(mpi, constructTx(1, 1, 10)).Outcome)
	require.Equal(t, Accepted, mustAccept(mpi, constructTx(1, 2, 10)).Outcome)

	// committing seq 1 implies seq 0 is stale even if never reported
	require.Nil(t, mpi.Commit([]CommittedTransaction{{Sender: testAccount(1), SequenceNumber: 1}}, 1))
	require.Equal(t, uint64(1), mpi.PoolSize())
	require.Nil(t, mpi.txStore.getTxItem(testAccount(1).Hex(), 0))
	require.NotNil(t, mpi.txStore.getTxItem(testAccount(1).Hex(), 2))
}

func TestReject_LeavesSequenceResubmittable(t *testing.T) {
	mpi := mockMempoolImpl(DefaultTestPoolSize)

	require.Equal(t, Accepted, mustAccept(mpi, constructTx(2, 0, 20)).Outcome)
	require.Nil(t, mpi.Reject([]AccountSequence{{Sender: testAccount(2), SequenceNumber: 0}}, "bad_sequence"))
	require.Equal(t, uint64(0), mpi.PoolSize())

	// watermark untouched, the slot accepts a resubmission
	status := mustAccept(mpi, constructTx(2, 0, 20))
	require.Equal(t, Accepted, status.Outcome)
}

func TestExpire(t *testing.T) {
	mpi := mockMempoolImpl(DefaultTestPoolSize)

	fresh := constructTx(1, 0, 10)
	stale := constructTx(2, 0, 10)
	stale.ExpirationTime = time.Now().Add(-time.Minute).Unix()
	require.Equal(t, Accepted, mustAccept(mpi, fresh).Outcome)
	require.Equal(t, Accepted, mustAccept(mpi, stale).Outcome)

	removed, err := mpi.Expire(time.Now())
	require.Nil(t, err)
	require.Equal(t, 1, removed)
	require.Equal(t, uint64(1), mpi.PoolSize())
	require.NotNil(t, mpi.txStore.getTxItem(testAccount(1).Hex(), 0))
}

func TestTimeline_DiffSkipsRemovedEntries(t *testing.T) {
	mpi := mockMempoolImpl(DefaultTestPoolSize)

	require.Equal(t, Accepted, mustAccept(mpi, constructTx(1, 0, 10)).Outcome)
	require.Equal(t, Accepted, mustAccept(mpi, constructTx(2, 0, 10)).Outcome)
	require.Equal(t, Accepted, mustAccept(mpi, constructTx(3, 0, 10)).Outcome)
	require.Equal(t, uint64(3), mpi.TimelineHead())

	entries, err := mpi.ReadTimeline(0, 10)
	require.Nil(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, uint64(1), entries[0].ID)
	require.Equal(t, uint64(3), entries[2].ID)

	require.Nil(t, mpi.Commit([]CommittedTransaction{{Sender: testAccount(2), SequenceNumber: 0}}, 1))
	entries, err = mpi.ReadTimeline(0, 10)
	require.Nil(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, uint64(1), entries[0].ID)
	require.Equal(t, uint64(3), entries[1].ID)

	// ids keep growing, never reused
	require.Equal(t, Accepted, mustAccept(mpi, constructTx(4, 0, 10)).Outcome)
	require.Equal(t, uint64(4), mpi.TimelineHead())
}

func TestGetPendingSequence(t *testing.T) {
	mpi := mockMempoolImpl(DefaultTestPoolSize)

	seq, err := mpi.GetPendingSequence(testAccount(1))
	require.Nil(t, err)
	require.Equal(t, uint64(0), seq)

	require.Equal(t, Accepted, mustAccept(mpi, constructTx(1, 0, 10)).Outcome)
	require.Equal(t, Accepted, mustAccept(mpi, constructTx(1, 1, 10)).Outcome)
	require.Equal(t, Accepted, mustAccept(mpi, constructTx(1, 3, 10)).Outcome)

	seq, err = mpi.GetPendingSequence(testAccount(1))
	require.Nil(t, err)
	require.Equal(t, uint64(2), seq)
}

func TestLockTimeoutIsRetryable(t *testing.T) {
	mpi := mockMempoolImpl(DefaultTestPoolSize)

	require.Nil(t, mpi.mu.lock())
	_, err := mpi.ProcessTransaction(constructTx(1, 0, 10), true)
	require.ErrorIs(t, err, ErrLockTimeout)
	mpi.mu.unlock()

	status, err := mpi.ProcessTransaction(constructTx(1, 0, 10), true)
	require.Nil(t, err)
	require.Equal(t, Accepted, status.Outcome)
}
