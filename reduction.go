package retriever

import (
	"slices"
	"time"

	"golang.org/x/exp/constraints"
)

// Reduction maintains a cached two-level aggregation of a store: one
// summary per chunk, folded into one global summary. mapFn turns a
// record into a summary; foldFn combines two summaries and MUST be
// associative. Fold order is fixed: ascending item key within a chunk,
// ascending chunk key across chunks, so associative-but-non-commutative
// folds still give a deterministic result.
//
// Dirtiness is chunk-granular. A mutation anywhere in a chunk costs a
// refold of that chunk on the next Reduce; every other chunk's summary
// is reused as is. That is the point of chunking.
type Reduction[C, I constraints.Ordered, R Record[C, I], S any] struct {
	storage *Storage[C, I, R]
	mapFn   func(*R) S
	foldFn  func(S, S) S

	chunks map[C]*reducedChunk[S]
	global S
	valid  bool
	rev    uint64
}

type reducedChunk[S any] struct {
	rev uint64
	sum S
	// n is the record count at fold time; empty chunks stay out of the
	// global fold since foldFn has no identity element to offer.
	n int
}

// NewReduction derives a cached aggregation of s. Nothing is folded
// until the first Reduce or ReduceChunk.
func NewReduction[C, I constraints.Ordered, R Record[C, I], S any](s *Storage[C, I, R], mapFn func(*R) S, foldFn func(S, S) S) *Reduction[C, I, R, S] {
	return &Reduction[C, I, R, S]{
		storage: s,
		mapFn:   mapFn,
		foldFn:  foldFn,
		chunks:  make(map[C]*reducedChunk[S]),
	}
}

func (red *Reduction[C, I, R, S]) foldChunk(ch *chunk[C, I, R]) (S, int) {
	var sum S
	for i := range ch.recs {
		v := red.mapFn(&ch.recs[i])
		if i == 0 {
			sum = v
		} else {
			sum = red.foldFn(sum, v)
		}
	}
	ReductionChunkFolds.Inc()
	return sum, len(ch.recs)
}

// ReduceChunk returns the summary of one chunk, refolding only if the
// chunk changed since last asked. ok is false for unknown chunk keys;
// a known empty chunk summarizes to the zero value of S.
func (red *Reduction[C, I, R, S]) ReduceChunk(key C) (S, bool) {
	var zero S
	ch := red.storage.chunks[key]
	if ch == nil {
		return zero, false
	}
	rc := red.chunks[key]
	if rc != nil && rc.rev == ch.rev {
		return rc.sum, true
	}
	sum, n := red.foldChunk(ch)
	red.chunks[key] = &reducedChunk[S]{rev: ch.rev, sum: sum, n: n}
	red.valid = false
	return sum, true
}

// Reduce returns the global summary, refolding exactly the chunks that
// changed since the last call and dropping summaries of chunks that no
// longer exist. An empty store reduces to the zero value of S.
func (red *Reduction[C, I, R, S]) Reduce() S {
	s := red.storage
	if red.rev == s.rev && red.valid {
		return red.global
	}
	start := time.Now()
	changed := !red.valid
	for ck := range red.chunks {
		if _, live := s.chunks[ck]; !live {
			delete(red.chunks, ck)
			changed = true
		}
	}
	folds := 0
	for ck, ch := range s.chunks {
		rc := red.chunks[ck]
		if rc != nil && rc.rev == ch.rev {
			continue
		}
		sum, n := red.foldChunk(ch)
		red.chunks[ck] = &reducedChunk[S]{rev: ch.rev, sum: sum, n: n}
		changed = true
		folds++
	}
	if changed {
		keys := make([]C, 0, len(red.chunks))
		for ck := range red.chunks {
			keys = append(keys, ck)
		}
		slices.Sort(keys)
		var global S
		first := true
		for _, ck := range keys {
			rc := red.chunks[ck]
			if rc.n == 0 {
				continue
			}
			if first {
				global = rc.sum
				first = false
			} else {
				global = red.foldFn(global, rc.sum)
			}
		}
		red.global = global
		ReductionRefolds.Inc()
		if folds > 0 {
			s.opts.Logger.Debug("reduction refolded", "chunks", folds)
		}
	}
	red.valid = true
	red.rev = s.rev
	ReductionFoldDuration.Observe(time.Since(start).Seconds())
	return red.global
}
