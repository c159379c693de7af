package mempool

import (
	"github.com/google/btree"
)

// timelineKey orders the timeline log by id.
type timelineKey struct {
	id   uint64
	item *txItem
}

func (tk *timelineKey) Less(than btree.Item) bool {
	return tk.id < than.(*timelineKey).id
}

// timelineIndex is the append-only log of accepted transactions. Ids are
// assigned monotonically starting at 1 and never reused; removing an entry
// unlinks its id so diffs computed afterwards skip it.
type timelineIndex struct {
	nextID uint64
	data   *btree.BTree
}

func newTimelineIndex() *timelineIndex {
	return &timelineIndex{
		nextID: 1,
		data:   btree.New(btreeDegree),
	}
}

// append assigns the next timeline id to the entry and records it.
func (t *timelineIndex) append(item *txItem) uint64 {
	id := t.nextID
	t.nextID++
	t.data.ReplaceOrInsert(&timelineKey{id: id, item: item})
	return id
}

func (t *timelineIndex) remove(id uint64) {
	if id == 0 {
		return
	}
	t.data.Delete(&timelineKey{id: id})
}

// head is the highest id assigned so far.
func (t *timelineIndex) head() uint64 {
	return t.nextID - 1
}

// read returns up to limit resident entries with id > after, in id order.
func (t *timelineIndex) read(after uint64, limit int) []TimelineEntry {
	entries := make([]TimelineEntry, 0, limit)
	t.data.AscendGreaterOrEqual(&timelineKey{id: after + 1}, func(i btree.Item) bool {
		key := i.(*timelineKey)
		entries = append(entries, TimelineEntry{ID: key.id, Tx: key.item.tx})
		return len(entries) < limit
	})
	return entries
}
