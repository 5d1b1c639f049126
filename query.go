package retriever

import (
	"cmp"
	"slices"

	"golang.org/x/exp/constraints"
)

// Query selects records by narrowing three things at once: the chunks
// worth visiting, the candidate item keys inside each, and a
// per-record predicate. Combinators only ever intersect; there is no
// union. Query values are immutable and reusable; the zero Query
// selects everything.
//
// The combinators in this package are the closed set of
// implementations; hosts compose them, they do not add their own.
type Query[C, I constraints.Ordered, R Record[C, I]] struct {
	node queryNode[C, I, R]
}

type queryNode[C, I constraints.Ordered, R Record[C, I]] interface {
	// scope reports the chunk keys the query may visit, ascending and
	// unique. restricted == false means every chunk.
	scope(s *Storage[C, I, R]) (keys []C, restricted bool)
	// candidates reports the item keys worth probing inside one chunk,
	// ascending. restricted == false means the whole chunk.
	candidates(s *Storage[C, I, R], chunk C) (items []I, restricted bool)
	// test reports whether r belongs to the result set.
	test(r *R) bool
}

func (q Query[C, I, R]) resolve() queryNode[C, I, R] {
	if q.node == nil {
		return everything[C, I, R]{}
	}
	return q.node
}

// Filter narrows q with a per-record predicate. Predicates never
// shrink the chunk scope, every candidate in scope is tested.
func (q Query[C, I, R]) Filter(pred func(*R) bool) Query[C, I, R] {
	return Query[C, I, R]{node: &filtered[C, I, R]{parent: q.resolve(), pred: pred}}
}

// Everything selects every record in the store.
func Everything[C, I constraints.Ordered, R Record[C, I]]() Query[C, I, R] {
	return Query[C, I, R]{}
}

// Chunks restricts the scope to an explicit set of chunk keys. Keys
// naming no chunk are ignored at evaluation time.
func Chunks[C, I constraints.Ordered, R Record[C, I]](keys ...C) Query[C, I, R] {
	ks := slices.Clone(keys)
	slices.Sort(ks)
	ks = slices.Compact(ks)
	return Query[C, I, R]{node: &chunkSet[C, I, R]{keys: ks}}
}

// OneChunk restricts the scope to a single chunk key.
func OneChunk[C, I constraints.Ordered, R Record[C, I]](key C) Query[C, I, R] {
	return Chunks[C, I, R](key)
}

// ChunkRange restricts the scope to chunk keys in [lo, hi], both ends
// inclusive.
func ChunkRange[C, I constraints.Ordered, R Record[C, I]](lo, hi C) Query[C, I, R] {
	return Query[C, I, R]{node: &chunkRange[C, I, R]{lo: lo, hi: hi}}
}

// Matching narrows q to the records idx maps to key: the candidate
// identities, and through them the chunk scope, shrink to exactly the
// chunks holding a match. The index revalidates itself when the query
// runs. idx must be derived from the storage the query runs against;
// anything else panics with ErrForeignIndex.
//
// This is a function rather than a method because it introduces the
// index's key type.
func Matching[C, I constraints.Ordered, R Record[C, I], K comparable](q Query[C, I, R], idx *SecondaryIndex[C, I, R, K], key K) Query[C, I, R] {
	return Query[C, I, R]{node: &matching[C, I, R]{
		parent: q.resolve(),
		lookup: func(s *Storage[C, I, R]) []Id[C, I] {
			if idx.storage != s {
				panic(ErrForeignIndex)
			}
			idx.revalidate()
			return idx.postings[key]
		},
	}}
}

type everything[C, I constraints.Ordered, R Record[C, I]] struct{}

func (everything[C, I, R]) scope(*Storage[C, I, R]) ([]C, bool)         { return nil, false }
func (everything[C, I, R]) candidates(*Storage[C, I, R], C) ([]I, bool) { return nil, false }
func (everything[C, I, R]) test(*R) bool                                { return true }

type chunkSet[C, I constraints.Ordered, R Record[C, I]] struct {
	keys []C
}

func (cs *chunkSet[C, I, R]) scope(*Storage[C, I, R]) ([]C, bool)         { return cs.keys, true }
func (cs *chunkSet[C, I, R]) candidates(*Storage[C, I, R], C) ([]I, bool) { return nil, false }
func (cs *chunkSet[C, I, R]) test(*R) bool                                { return true }

type chunkRange[C, I constraints.Ordered, R Record[C, I]] struct {
	lo, hi C
}

func (cr *chunkRange[C, I, R]) scope(s *Storage[C, I, R]) ([]C, bool) {
	var keys []C
	for ck := range s.chunks {
		if ck >= cr.lo && ck <= cr.hi {
			keys = append(keys, ck)
		}
	}
	slices.Sort(keys)
	return keys, true
}

func (cr *chunkRange[C, I, R]) candidates(*Storage[C, I, R], C) ([]I, bool) { return nil, false }
func (cr *chunkRange[C, I, R]) test(*R) bool                                { return true }

type filtered[C, I constraints.Ordered, R Record[C, I]] struct {
	parent queryNode[C, I, R]
	pred   func(*R) bool
}

func (f *filtered[C, I, R]) scope(s *Storage[C, I, R]) ([]C, bool) {
	return f.parent.scope(s)
}

func (f *filtered[C, I, R]) candidates(s *Storage[C, I, R], chunk C) ([]I, bool) {
	return f.parent.candidates(s, chunk)
}

func (f *filtered[C, I, R]) test(r *R) bool {
	return f.parent.test(r) && f.pred(r)
}

type matching[C, I constraints.Ordered, R Record[C, I]] struct {
	parent queryNode[C, I, R]
	// lookup resolves the posting list against the queried storage;
	// the closure erases the index's key type.
	lookup func(s *Storage[C, I, R]) []Id[C, I]
}

func (m *matching[C, I, R]) scope(s *Storage[C, I, R]) ([]C, bool) {
	ids := m.lookup(s)
	var keys []C
	for i := 0; i < len(ids); {
		ck := ids[i].Chunk
		keys = append(keys, ck)
		for i < len(ids) && ids[i].Chunk == ck {
			i++
		}
	}
	if parent, restricted := m.parent.scope(s); restricted {
		keys = intersectSorted(keys, parent)
	}
	return keys, true
}

func (m *matching[C, I, R]) candidates(s *Storage[C, I, R], chunk C) ([]I, bool) {
	ids := m.lookup(s)
	lo, hi := chunkSpan(ids, chunk)
	items := make([]I, 0, hi-lo)
	for _, id := range ids[lo:hi] {
		items = append(items, id.Item)
	}
	if parent, restricted := m.parent.candidates(s, chunk); restricted {
		items = intersectSorted(items, parent)
	}
	return items, true
}

func (m *matching[C, I, R]) test(r *R) bool {
	return m.parent.test(r)
}

// intersectSorted keeps the elements of a also present in b. Both
// inputs are ascending and unique; a's backing array is reused.
func intersectSorted[T constraints.Ordered](a, b []T) []T {
	out := a[:0]
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

// chunkSpan returns the half-open run of ids belonging to chunk; ids
// are ascending by (chunk, item).
func chunkSpan[C, I constraints.Ordered](ids []Id[C, I], chunk C) (int, int) {
	lo, _ := slices.BinarySearchFunc(ids, chunk, func(id Id[C, I], c C) int {
		return cmp.Compare(id.Chunk, c)
	})
	n, _ := slices.BinarySearchFunc(ids[lo:], chunk, func(id Id[C, I], c C) int {
		if id.Chunk > c {
			return 1
		}
		return -1
	})
	return lo, lo + n
}
