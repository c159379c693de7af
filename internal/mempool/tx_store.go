package mempool

import (
	"github.com/google/btree"
)

type transactionStore struct {
	// track all valid tx hashes cached in mempool
	txHashMap map[string]*orderedIndexKey
	// track all valid txs, mapping account to its ordered queue
	allTxs map[string]*txSortedMap
	// track the committed watermark of each account
	nonceCache *nonceCache
	// pool-wide index ordered by (gas unit price desc, insertion time asc),
	// covers every resident entry; its max is the eviction candidate
	priorityIndex *btreeIndex
	// entries ordered by expiration time for the sweep
	ttlIndex *btreeIndex
	// append-only log of accepted txs used for broadcast diffs
	timeline *timelineIndex
	// track the current number of entries in the pool
	poolSize uint64
}

func newTransactionStore() *transactionStore {
	return &transactionStore{
		txHashMap:     make(map[string]*orderedIndexKey),
		allTxs:        make(map[string]*txSortedMap),
		nonceCache:    newNonceCache(),
		priorityIndex: newBtreeIndex(),
		ttlIndex:      newBtreeIndex(),
		timeline:      newTimelineIndex(),
	}
}

// getTxItem returns the pool entry at account+sequence, nil if absent.
func (txStore *transactionStore) getTxItem(account string, seqNo uint64) *txItem {
	if list, ok := txStore.allTxs[account]; ok {
		return list.items[seqNo]
	}
	return nil
}

// insertItem links a new entry into every index. Caller has checked
// duplicates and capacity.
func (txStore *transactionStore) insertItem(item *txItem) {
	list, ok := txStore.allTxs[item.account]
	if !ok {
		list = newTxSortedMap()
		txStore.allTxs[item.account] = list
	}
	list.items[item.tx.SequenceNumber] = item
	list.index.insertBySortedNonceKey(item.tx.SequenceNumber)
	txStore.txHashMap[item.tx.Hash().Hex()] = &orderedIndexKey{account: item.account, nonce: item.tx.SequenceNumber}
	txStore.priorityIndex.insertByPriorityKey(item)
	txStore.ttlIndex.insertByTtlKey(item)
	item.timelineID = txStore.timeline.append(item)
	txStore.poolSize++
}

// removeItem unlinks the entry from every index including the timeline, so
// broadcast diffs issued later never observe it.
func (txStore *transactionStore) removeItem(item *txItem) {
	list, ok := txStore.allTxs[item.account]
	if !ok {
		return
	}
	if _, ok := list.items[item.tx.SequenceNumber]; !ok {
		return
	}
	delete(list.items, item.tx.SequenceNumber)
	list.index.removeBySortedNonceKey(item.tx.SequenceNumber)
	if len(list.items) == 0 {
		delete(txStore.allTxs, item.account)
	}
	delete(txStore.txHashMap, item.tx.Hash().Hex())
	txStore.priorityIndex.removeByPriorityKey(item)
	txStore.ttlIndex.removeByTtlKey(item)
	txStore.timeline.remove(item.timelineID)
	txStore.poolSize--
}

// lowestPriority returns the pool entry that would be evicted at capacity:
// the max of the priority index (lowest gas price, newest on ties).
func (txStore *transactionStore) lowestPriority() *txItem {
	max := txStore.priorityIndex.data.Max()
	if max == nil {
		return nil
	}
	key := max.(*priorityKey)
	return txStore.getTxItem(key.account, key.nonce)
}

// pendingSequence returns the next sequence number the account could commit
// given what the pool holds: the first gap at or above the watermark.
func (txStore *transactionStore) pendingSequence(account string) uint64 {
	demand := txStore.nonceCache.getCommitSequence(account)
	list, ok := txStore.allTxs[account]
	if !ok {
		return demand
	}
	list.index.data.AscendGreaterOrEqual(makeSortedNonceKey(demand), func(i btree.Item) bool {
		nonce := i.(*sortedNonceKey).nonce
		if nonce != demand {
			return false
		}
		demand++
		return true
	})
	return demand
}

type txSortedMap struct {
	items map[uint64]*txItem // map sequence number to entry
	index *btreeIndex        // sorted sequence numbers of items
}

func newTxSortedMap() *txSortedMap {
	return &txSortedMap{
		items: make(map[uint64]*txItem),
		index: newBtreeIndex(),
	}
}

// forward collects every entry with a sequence number strictly below the
// watermark; such entries are stale once the account committed past them.
func (m *txSortedMap) forward(watermark uint64) []*txItem {
	stale := make([]*txItem, 0)
	m.index.data.AscendLessThan(makeSortedNonceKey(watermark), func(i btree.Item) bool {
		nonce := i.(*sortedNonceKey).nonce
		stale = append(stale, m.items[nonce])
		return true
	})
	return stale
}

// nonceCache records each account's committed sequence number: the next
// sequence the chain expects. Accounts the pool has never seen are resolved
// through the external sequence lookup.
type nonceCache struct {
	commitSequences map[string]uint64
	getAccountSeq   func(account string) uint64
}

func newNonceCache() *nonceCache {
	return &nonceCache{
		commitSequences: make(map[string]uint64),
	}
}

func (nc *nonceCache) getCommitSequence(account string) uint64 {
	seq, ok := nc.commitSequences[account]
	if !ok {
		if nc.getAccountSeq != nil {
			seq = nc.getAccountSeq(account)
		}
		nc.commitSequences[account] = seq
	}
	return seq
}

func (nc *nonceCache) setCommitSequence(account string, seq uint64) {
	nc.commitSequences[account] = seq
}
