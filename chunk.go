package retriever

import (
	"cmp"
	"slices"

	"golang.org/x/exp/constraints"
)

// chunk holds every record sharing one chunk key, ascending by item
// key, no duplicates. rev is the storage revision of the last mutation
// here; dependents compare it against their own bookkeeping to decide
// whether the chunk is dirty for them.
type chunk[C, I constraints.Ordered, R Record[C, I]] struct {
	key  C
	recs []R
	rev  uint64
}

func newChunk[C, I constraints.Ordered, R Record[C, I]](key C, capacity int) *chunk[C, I, R] {
	return &chunk[C, I, R]{key: key, recs: make([]R, 0, capacity)}
}

// search locates item, or the slot it would occupy.
func (ch *chunk[C, I, R]) search(item I) (int, bool) {
	return slices.BinarySearchFunc(ch.recs, item, func(r R, target I) int {
		return cmp.Compare(r.ItemKey(), target)
	})
}

func (ch *chunk[C, I, R]) get(item I) (*R, bool) {
	i, ok := ch.search(item)
	if !ok {
		return nil, false
	}
	return &ch.recs[i], true
}

// put inserts r in item-key order, replacing any record already filed
// under the same item key.
func (ch *chunk[C, I, R]) put(r R) {
	i, ok := ch.search(r.ItemKey())
	if ok {
		ch.recs[i] = r
		return
	}
	ch.recs = slices.Insert(ch.recs, i, r)
}

func (ch *chunk[C, I, R]) remove(item I) (R, bool) {
	var zero R
	i, ok := ch.search(item)
	if !ok {
		return zero, false
	}
	out := ch.recs[i]
	ch.recs = slices.Delete(ch.recs, i, i+1)
	return out, true
}

// removeAt deletes the records at the given ascending positions in one
// compaction sweep, handing each to consumed.
func (ch *chunk[C, I, R]) removeAt(idxs []int, consumed func(R)) {
	w := idxs[0]
	next := 0
	for r := idxs[0]; r < len(ch.recs); r++ {
		if next < len(idxs) && idxs[next] == r {
			if consumed != nil {
				consumed(ch.recs[r])
			}
			next++
			continue
		}
		ch.recs[w] = ch.recs[r]
		w++
	}
	clear(ch.recs[w:])
	ch.recs = ch.recs[:w]
}
