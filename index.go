package retriever

import (
	"cmp"
	"fmt"
	"iter"
	"slices"
	"time"

	"golang.org/x/exp/constraints"
)

// SecondaryIndex maps keys computed from records back to the ordered
// identities of the records producing them. It is a derived read-only
// view: it never writes to the storage it mirrors, and it syncs itself
// lazily, one stale chunk at a time, whenever consulted. Between
// consultations it is allowed to be arbitrarily stale; staleness is
// never visible to callers, only the rescan cost is.
type SecondaryIndex[C, I constraints.Ordered, R Record[C, I], K comparable] struct {
	storage *Storage[C, I, R]
	extract func(*R) []K

	// postings hold, per secondary key, the matching identities in
	// ascending (chunk, item) order.
	postings map[K][]Id[C, I]
	// chunks remember, per chunk, the revision last scanned and the
	// keys the chunk contributed, so one chunk's entries can be
	// stripped without touching the rest.
	chunks map[C]*indexedChunk[K]
	rev    uint64
}

type indexedChunk[K comparable] struct {
	rev  uint64
	keys map[K]struct{}
}

// NewSecondaryIndex derives an index of s. extract returns the
// secondary keys of one record, zero or more; nil is fine, and
// identity-valued keys (K = Id[...]) are a common choice for modelling
// relationships. Nothing is scanned until the index is first consulted.
func NewSecondaryIndex[C, I constraints.Ordered, R Record[C, I], K comparable](s *Storage[C, I, R], extract func(*R) []K) *SecondaryIndex[C, I, R, K] {
	return &SecondaryIndex[C, I, R, K]{
		storage:  s,
		extract:  extract,
		postings: make(map[K][]Id[C, I]),
		chunks:   make(map[C]*indexedChunk[K]),
	}
}

// Lookup yields the identities whose extracted keys contained key, in
// ascending (chunk, item) order, as of the store's current state.
// Unknown keys yield nothing.
func (ix *SecondaryIndex[C, I, R, K]) Lookup(key K) iter.Seq[Id[C, I]] {
	return func(yield func(Id[C, I]) bool) {
		ix.revalidate()
		for _, id := range ix.postings[key] {
			if !yield(id) {
				return
			}
		}
	}
}

// Count reports how many identities key currently maps to.
func (ix *SecondaryIndex[C, I, R, K]) Count(key K) int {
	ix.revalidate()
	return len(ix.postings[key])
}

// Keys reports how many distinct secondary keys have matches.
func (ix *SecondaryIndex[C, I, R, K]) Keys() int {
	ix.revalidate()
	return len(ix.postings)
}

// revalidate brings the index in sync with the storage revision.
// Chunks whose stamp matches the last scan are skipped; stale ones are
// stripped and rescanned; postings of vanished chunks are collected.
func (ix *SecondaryIndex[C, I, R, K]) revalidate() {
	s := ix.storage
	if ix.rev == s.rev {
		return
	}
	start := time.Now()
	scans := 0
	for ck, ic := range ix.chunks {
		if _, live := s.chunks[ck]; !live {
			ix.strip(ck, ic.keys)
			delete(ix.chunks, ck)
			IndexChunkScans.WithLabelValues("removed").Inc()
		}
	}
	for ck, ch := range s.chunks {
		ic := ix.chunks[ck]
		if ic != nil && ic.rev == ch.rev {
			continue
		}
		cause := "build"
		if ic != nil {
			cause = "stale"
			ix.strip(ck, ic.keys)
		}
		ix.scan(ch)
		IndexChunkScans.WithLabelValues(cause).Inc()
		scans++
	}
	ix.rev = s.rev
	IndexRevalidations.Inc()
	IndexRevalidateDuration.Observe(time.Since(start).Seconds())
	if scans > 0 {
		s.opts.Logger.Debug("index revalidated", "chunks", scans)
	}
}

// scan indexes one chunk from scratch. Callers strip the chunk first.
func (ix *SecondaryIndex[C, I, R, K]) scan(ch *chunk[C, I, R]) {
	keys := make(map[K]struct{})
	grouped := make(map[K][]I)
	for i := range ch.recs {
		item := ch.recs[i].ItemKey()
		for _, k := range ix.extract(&ch.recs[i]) {
			g := grouped[k]
			if len(g) > 0 && g[len(g)-1] == item {
				continue
			}
			grouped[k] = append(g, item)
			keys[k] = struct{}{}
		}
	}
	for k, items := range grouped {
		ix.splice(k, ch.key, items)
	}
	ix.chunks[ch.key] = &indexedChunk[K]{rev: ch.rev, keys: keys}
}

// splice inserts one chunk's ascending items into the posting list of
// k; no identities of that chunk may be present yet.
func (ix *SecondaryIndex[C, I, R, K]) splice(k K, chunk C, items []I) {
	ids := make([]Id[C, I], len(items))
	for i, item := range items {
		ids[i] = Id[C, I]{Chunk: chunk, Item: item}
	}
	post := ix.postings[k]
	at, _ := slices.BinarySearchFunc(post, chunk, func(id Id[C, I], c C) int {
		return cmp.Compare(id.Chunk, c)
	})
	ix.postings[k] = slices.Insert(post, at, ids...)
}

// strip removes every identity of chunk from the postings named in keys.
func (ix *SecondaryIndex[C, I, R, K]) strip(chunk C, keys map[K]struct{}) {
	for k := range keys {
		post := ix.postings[k]
		lo, hi := chunkSpan(post, chunk)
		if lo == hi {
			continue
		}
		post = slices.Delete(post, lo, hi)
		if len(post) == 0 {
			delete(ix.postings, k)
		} else {
			ix.postings[k] = post
		}
	}
}

// Validate audits the index against its storage both ways: every
// posting names a live record whose extractor still emits the key, and
// every record's keys are posted. Forces a revalidation first.
func (ix *SecondaryIndex[C, I, R, K]) Validate() error {
	ix.revalidate()
	for k, post := range ix.postings {
		if len(post) == 0 {
			return fmt.Errorf("retriever: empty posting retained for key %v", k)
		}
		for i, id := range post {
			if i > 0 && post[i-1].Compare(id) >= 0 {
				return fmt.Errorf("retriever: posting for key %v out of order at %v", k, id)
			}
			r, ok := ix.storage.Get(id)
			if !ok {
				return fmt.Errorf("retriever: posting for key %v names missing record %v", k, id)
			}
			if !slices.Contains(ix.extract(r), k) {
				return fmt.Errorf("retriever: record %v no longer derives key %v", id, k)
			}
		}
	}
	for r := range ix.storage.All() {
		id := NewId((*r).ChunkKey(), (*r).ItemKey())
		for _, k := range ix.extract(r) {
			if _, ok := slices.BinarySearchFunc(ix.postings[k], id, Id[C, I].Compare); !ok {
				return fmt.Errorf("retriever: record %v not posted under key %v", id, k)
			}
		}
	}
	return nil
}
