package retriever

import (
	"fmt"
	"iter"
	"slices"

	"golang.org/x/exp/constraints"

	"github.com/itsybitesyspider/retriever/utils"
)

// Options tune a Storage. The zero value is usable.
type Options struct {
	// Logger receives debug events: chunk lifecycle, index rescans,
	// reduction refolds. Nil means no logging.
	Logger utils.Logger

	// ChunkCapacityHint pre-sizes the record slice of every new chunk.
	ChunkCapacityHint int
}

func (o *Options) SetDefaults() {
	if o.Logger == nil {
		o.Logger = utils.NewNopLogger()
	}
}

// Storage owns a set of chunks, each an ordered run of records, and is
// the sole writer of their content. It carries the revision counter
// every dependent index and reduction keys its staleness off.
type Storage[C, I constraints.Ordered, R Record[C, I]] struct {
	chunks map[C]*chunk[C, I, R]
	rev    uint64
	opts   Options
}

// New creates an empty store with default options.
func New[C, I constraints.Ordered, R Record[C, I]]() *Storage[C, I, R] {
	return NewWithOptions[C, I, R](Options{})
}

// NewWithOptions creates an empty store.
func NewWithOptions[C, I constraints.Ordered, R Record[C, I]](opts Options) *Storage[C, I, R] {
	opts.SetDefaults()
	return &Storage[C, I, R]{
		chunks: make(map[C]*chunk[C, I, R]),
		opts:   opts,
	}
}

// Add files r under the identity it derives. If that identity is
// already present the old record is replaced in place; the total count
// does not change. The chunk is created on first use.
func (s *Storage[C, I, R]) Add(r R) {
	ck := r.ChunkKey()
	ch := s.chunks[ck]
	if ch == nil {
		ch = newChunk[C, I, R](ck, s.opts.ChunkCapacityHint)
		s.chunks[ck] = ch
		s.opts.Logger.Debug("chunk created", "chunk", ck)
	}
	ch.put(r)
	s.rev++
	ch.rev = s.rev
}

// Get returns the record at id, or (nil, false) when the chunk or the
// item is absent. Absence is not an error. The pointer stays valid
// until the next mutation; do not mutate through it, that is what
// GetMut, Modify and Entry are for.
func (s *Storage[C, I, R]) Get(id Id[C, I]) (*R, bool) {
	ch := s.chunks[id.Chunk]
	if ch == nil {
		return nil, false
	}
	return ch.get(id.Item)
}

// GetMut is Get with intent to write: on a hit the chunk is stamped
// dirty before the pointer is returned, so dependent indexes and
// reductions will pick the edit up. Fields feeding ChunkKey or ItemKey
// must not change through the pointer.
func (s *Storage[C, I, R]) GetMut(id Id[C, I]) (*R, bool) {
	ch := s.chunks[id.Chunk]
	if ch == nil {
		return nil, false
	}
	r, ok := ch.get(id.Item)
	if !ok {
		return nil, false
	}
	s.rev++
	ch.rev = s.rev
	return r, true
}

// All iterates every record: chunks in no particular order, records
// within a chunk ascending by item key. The sequence is lazy and may
// be abandoned; ranging again restarts from current state. Do not
// mutate the store while a loop is suspended mid-yield.
func (s *Storage[C, I, R]) All() iter.Seq[*R] {
	return func(yield func(*R) bool) {
		for _, ch := range s.chunks {
			for i := range ch.recs {
				if !yield(&ch.recs[i]) {
					return
				}
			}
		}
	}
}

// Query evaluates q lazily, visiting only the chunks q cannot rule
// out. Matching combinators revalidate their index when the sequence
// runs, so ranging twice sees the store as of each run.
func (s *Storage[C, I, R]) Query(q Query[C, I, R]) iter.Seq[*R] {
	return func(yield func(*R) bool) {
		node := q.resolve()
		s.eachScopedChunk(node, func(ch *chunk[C, I, R]) bool {
			return s.eachMatch(node, ch, func(i int) bool {
				return yield(&ch.recs[i])
			})
		})
	}
}

// Modify runs f once per record matched by q, handing it an Editor.
// Every chunk that produced at least one match is stamped dirty.
// Editors must not touch key-deriving fields; see Editor.
func (s *Storage[C, I, R]) Modify(q Query[C, I, R], f func(Editor[C, I, R])) {
	node := q.resolve()
	bumped := false
	s.eachScopedChunk(node, func(ch *chunk[C, I, R]) bool {
		touched := false
		s.eachMatch(node, ch, func(i int) bool {
			f(Editor[C, I, R]{
				id:  NewId(ch.key, ch.recs[i].ItemKey()),
				rec: &ch.recs[i],
			})
			touched = true
			return true
		})
		if touched {
			if !bumped {
				s.rev++
				bumped = true
			}
			ch.rev = s.rev
		}
		return true
	})
}

// Remove deletes every record matched by q, keeping chunks sorted, and
// hands each removed record to consumed exactly once (nil to discard).
// Returns the number removed. Emptied chunks are retained.
func (s *Storage[C, I, R]) Remove(q Query[C, I, R], consumed func(R)) int {
	node := q.resolve()
	removed := 0
	bumped := false
	s.eachScopedChunk(node, func(ch *chunk[C, I, R]) bool {
		var hits []int
		s.eachMatch(node, ch, func(i int) bool {
			hits = append(hits, i)
			return true
		})
		if len(hits) == 0 {
			return true
		}
		ch.removeAt(hits, consumed)
		removed += len(hits)
		if !bumped {
			s.rev++
			bumped = true
		}
		ch.rev = s.rev
		return true
	})
	return removed
}

// RemoveChunk drops a whole chunk, returning its records in item order.
// The slice is the chunk's former backing array; the caller owns it.
func (s *Storage[C, I, R]) RemoveChunk(key C) ([]R, bool) {
	ch := s.chunks[key]
	if ch == nil {
		return nil, false
	}
	delete(s.chunks, key)
	s.rev++
	s.opts.Logger.Debug("chunk removed", "chunk", key, "records", len(ch.recs))
	return ch.recs, true
}

// ChunkKeys lists the current chunk keys, ascending. Chunks emptied by
// Remove still appear until removed explicitly.
func (s *Storage[C, I, R]) ChunkKeys() []C {
	keys := make([]C, 0, len(s.chunks))
	for ck := range s.chunks {
		keys = append(keys, ck)
	}
	slices.Sort(keys)
	return keys
}

// Raw exposes each chunk's key and its live record slice, the escape
// hatch an external serializer consumes. The slices are the store's
// backing arrays: read, do not hold, do not mutate.
func (s *Storage[C, I, R]) Raw() iter.Seq2[C, []R] {
	return func(yield func(C, []R) bool) {
		for ck, ch := range s.chunks {
			if !yield(ck, ch.recs) {
				return
			}
		}
	}
}

// Dissolve empties the store and yields ownership of every record it
// held. The store is immediately reusable while the sequence is being
// drained.
func (s *Storage[C, I, R]) Dissolve() iter.Seq[R] {
	orphaned := s.chunks
	s.chunks = make(map[C]*chunk[C, I, R])
	if len(orphaned) > 0 {
		s.rev++
	}
	return func(yield func(R) bool) {
		for _, ch := range orphaned {
			for _, r := range ch.recs {
				if !yield(r) {
					return
				}
			}
		}
	}
}

// Revision is the mutation counter. It moves exactly when the store
// changes, once per mutating call; dependents and host-side caches key
// staleness off it.
func (s *Storage[C, I, R]) Revision() uint64 {
	return s.rev
}

// Len is the total record count.
func (s *Storage[C, I, R]) Len() int {
	n := 0
	for _, ch := range s.chunks {
		n += len(ch.recs)
	}
	return n
}

// ChunkLen is the record count of one chunk, 0 for unknown keys.
func (s *Storage[C, I, R]) ChunkLen(key C) int {
	if ch := s.chunks[key]; ch != nil {
		return len(ch.recs)
	}
	return 0
}

// Validate audits internal consistency: chunks filed under the keys
// their records derive, strictly ascending item keys, sane revision
// stamps. A debugging aid; it returns nil unless the documented caller
// contracts were broken.
func (s *Storage[C, I, R]) Validate() error {
	for ck, ch := range s.chunks {
		if ch.key != ck {
			return fmt.Errorf("retriever: chunk keyed %v filed under %v", ch.key, ck)
		}
		if ch.rev > s.rev {
			return fmt.Errorf("retriever: chunk %v stamped revision %d beyond storage revision %d", ck, ch.rev, s.rev)
		}
		for i := range ch.recs {
			if got := ch.recs[i].ChunkKey(); got != ck {
				return fmt.Errorf("retriever: record %v stored in chunk %v derives chunk key %v", ch.recs[i].ItemKey(), ck, got)
			}
			if i > 0 && ch.recs[i-1].ItemKey() >= ch.recs[i].ItemKey() {
				return fmt.Errorf("retriever: chunk %v out of order at item %v", ck, ch.recs[i].ItemKey())
			}
		}
	}
	return nil
}

// eachScopedChunk visits every chunk inside node's scope, stopping
// early when visit returns false.
func (s *Storage[C, I, R]) eachScopedChunk(node queryNode[C, I, R], visit func(*chunk[C, I, R]) bool) {
	keys, restricted := node.scope(s)
	if restricted {
		for _, ck := range keys {
			if ch := s.chunks[ck]; ch != nil {
				if !visit(ch) {
					return
				}
			}
		}
		return
	}
	for _, ch := range s.chunks {
		if !visit(ch) {
			return
		}
	}
}

// eachMatch visits the position of every record in ch matching node,
// ascending. Returns false if visit stopped the walk.
func (s *Storage[C, I, R]) eachMatch(node queryNode[C, I, R], ch *chunk[C, I, R], visit func(int) bool) bool {
	items, restricted := node.candidates(s, ch.key)
	if restricted {
		for _, item := range items {
			i, ok := ch.search(item)
			if !ok || !node.test(&ch.recs[i]) {
				continue
			}
			if !visit(i) {
				return false
			}
		}
		return true
	}
	for i := range ch.recs {
		if !node.test(&ch.recs[i]) {
			continue
		}
		if !visit(i) {
			return false
		}
	}
	return true
}
