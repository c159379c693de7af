package mempool

import (
	"testing"

	"github.com/google/btree"
	"github.com/stretchr/testify/require"
)

func TestPriorityKeyOrdering(t *testing.T) {
	idx := newBtreeIndex()
	cheap := &txItem{account: "a", tx: constructTx(1, 0, 5), insertTime: 100}
	rich := &txItem{account: "b", tx: constructTx(2, 0, 50), insertTime: 200}
	older := &txItem{account: "c", tx: constructTx(3, 0, 5), insertTime: 50}

	idx.insertByPriorityKey(cheap)
	idx.insertByPriorityKey(rich)
	idx.insertByPriorityKey(older)

	order := make([]string, 0, 3)
	idx.data.Ascend(func(i btree.Item) bool {
		order = append(order, i.(*priorityKey).account)
		return true
	})
	// highest gas price first, then earlier insertion on ties
	require.Equal(t, []string{"b", "c", "a"}, order)

	// max of the index is the eviction candidate
	require.Equal(t, "a", idx.data.Max().(*priorityKey).account)
}

func TestSortedNonceKeyOrdering(t *testing.T) {
	idx := newBtreeIndex()
	for _, nonce := range []uint64{5, 1, 3} {
		idx.insertBySortedNonceKey(nonce)
	}
	require.Equal(t, uint64(3), idx.size())

	nonces := make([]uint64, 0, 3)
	idx.data.Ascend(func(i btree.Item) bool {
		nonces = append(nonces, i.(*sortedNonceKey).nonce)
		return true
	})
	require.Equal(t, []uint64{1, 3, 5}, nonces)

	idx.removeBySortedNonceKey(3)
	require.Equal(t, uint64(2), idx.size())
}

func TestTtlKeyOrdering(t *testing.T) {
	idx := newBtreeIndex()
	early := &txItem{account: "a", tx: constructTx(1, 0, 1)}
	early.tx.ExpirationTime = 100
	late := &txItem{account: "b", tx: constructTx(2, 0, 1)}
	late.tx.ExpirationTime = 900

	idx.insertByTtlKey(late)
	idx.insertByTtlKey(early)

	first := idx.data.Min().(*ttlKey)
	require.Equal(t, int64(100), first.expiration)
	require.Equal(t, "a", first.account)
}
