package mempool

import (
	"github.com/google/btree"
)

// orderedIndexKey points at one (account, sequence) slot. Used as the value
// type of txHashMap and as the key of per-account queues.
type orderedIndexKey struct {
	account string
	nonce   uint64
}

// Less should guarantee item can be cast into orderedIndexKey.
func (oik *orderedIndexKey) Less(than btree.Item) bool {
	other := than.(*orderedIndexKey)
	if oik.account != other.account {
		return oik.account < other.account
	}
	return oik.nonce < other.nonce
}

type sortedNonceKey struct {
	nonce uint64
}

// Less should guarantee item can be cast into sortedNonceKey.
func (snk *sortedNonceKey) Less(item btree.Item) bool {
	dst, _ := item.(*sortedNonceKey)
	return snk.nonce < dst.nonce
}

func makeSortedNonceKey(nonce uint64) *sortedNonceKey {
	return &sortedNonceKey{nonce: nonce}
}

// priorityKey orders the pool-wide priority index: higher gas unit price
// first, earlier insertion first on price ties. account+nonce make the key
// unique so equal-priced entries never collide.
type priorityKey struct {
	gasPrice   uint64
	insertTime int64
	account    string
	nonce      uint64
}

func (pk *priorityKey) Less(than btree.Item) bool {
	other := than.(*priorityKey)
	if pk.gasPrice != other.gasPrice {
		return pk.gasPrice > other.gasPrice
	}
	if pk.insertTime != other.insertTime {
		return pk.insertTime < other.insertTime
	}
	if pk.account != other.account {
		return pk.account < other.account
	}
	return pk.nonce < other.nonce
}

func makePriorityKey(item *txItem) *priorityKey {
	return &priorityKey{
		gasPrice:   item.tx.GasUnitPrice,
		insertTime: item.insertTime,
		account:    item.account,
		nonce:      item.tx.SequenceNumber,
	}
}

// ttlKey orders entries by expiration time for the sweep.
type ttlKey struct {
	expiration int64
	account    string
	nonce      uint64
}

func (tk *ttlKey) Less(than btree.Item) bool {
	other := than.(*ttlKey)
	if tk.expiration != other.expiration {
		return tk.expiration < other.expiration
	}
	if tk.account != other.account {
		return tk.account < other.account
	}
	return tk.nonce < other.nonce
}

func makeTtlKey(item *txItem) *ttlKey {
	return &ttlKey{
		expiration: item.tx.ExpirationTime,
		account:    item.account,
		nonce:      item.tx.SequenceNumber,
	}
}

type btreeIndex struct {
	data *btree.BTree
}

func newBtreeIndex() *btreeIndex {
	return &btreeIndex{
		data: btree.New(btreeDegree),
	}
}

func (idx *btreeIndex) insertBySortedNonceKey(nonce uint64) {
	idx.data.ReplaceOrInsert(makeSortedNonceKey(nonce))
}

func (idx *btreeIndex) removeBySortedNonceKey(nonce uint64) {
	idx.data.Delete(makeSortedNonceKey(nonce))
}

func (idx *btreeIndex) insertByPriorityKey(item *txItem) {
	idx.data.ReplaceOrInsert(makePriorityKey(item))
}

func (idx *btreeIndex) removeByPriorityKey(item *txItem) {
	idx.data.Delete(makePriorityKey(item))
}

func (idx *btreeIndex) insertByTtlKey(item *txItem) {
	idx.data.ReplaceOrInsert(makeTtlKey(item))
}

func (idx *btreeIndex) removeByTtlKey(item *txItem) {
	idx.data.Delete(makeTtlKey(item))
}

// size returns the number of keys in the index.
func (idx *btreeIndex) size() uint64 {
	return uint64(idx.data.Len())
}
