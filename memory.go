package retriever

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/dustin/go-humanize"
)

// MemoryUsage is a coarse footprint report: live entries, allocated
// capacity, and the bytes that capacity pins. Bytes counts static
// element size only; memory reachable through pointers inside records
// is invisible here.
type MemoryUsage struct {
	Used  int
	Cap   int
	Bytes uint64
}

func (m MemoryUsage) String() string {
	return fmt.Sprintf("%s of %s entries, %s",
		humanize.Comma(int64(m.Used)), humanize.Comma(int64(m.Cap)), humanize.IBytes(m.Bytes))
}

// MemoryUsage reports the record slices across every chunk.
func (s *Storage[C, I, R]) MemoryUsage() MemoryUsage {
	var m MemoryUsage
	for _, ch := range s.chunks {
		m.Used += len(ch.recs)
		m.Cap += cap(ch.recs)
	}
	m.Bytes = uint64(reflect.TypeOf((*R)(nil)).Elem().Size()) * uint64(m.Cap)
	return m
}

// Shrink drops the spare slice capacity chunks no longer need. Churny
// hosts call this between bursts; see cmd/retriever-stress.
func (s *Storage[C, I, R]) Shrink() {
	for _, ch := range s.chunks {
		ch.recs = slices.Clip(ch.recs)
	}
}

// MemoryUsage reports the posting lists across every secondary key.
func (ix *SecondaryIndex[C, I, R, K]) MemoryUsage() MemoryUsage {
	var m MemoryUsage
	for _, post := range ix.postings {
		m.Used += len(post)
		m.Cap += cap(post)
	}
	m.Bytes = uint64(reflect.TypeOf((*Id[C, I])(nil)).Elem().Size()) * uint64(m.Cap)
	return m
}

// Shrink drops the spare capacity of every posting list.
func (ix *SecondaryIndex[C, I, R, K]) Shrink() {
	for k, post := range ix.postings {
		ix.postings[k] = slices.Clip(post)
	}
}

// MemoryUsage reports the cached per-chunk summaries.
func (red *Reduction[C, I, R, S]) MemoryUsage() MemoryUsage {
	n := len(red.chunks)
	return MemoryUsage{
		Used:  n,
		Cap:   n,
		Bytes: uint64(reflect.TypeOf((*reducedChunk[S])(nil)).Elem().Size()) * uint64(n),
	}
}

// Shrink drops summaries cached for chunks that no longer exist,
// without waiting for the next Reduce to collect them.
func (red *Reduction[C, I, R, S]) Shrink() {
	for ck := range red.chunks {
		if _, live := red.storage.chunks[ck]; !live {
			delete(red.chunks, ck)
			red.valid = false
		}
	}
}
