// Package retriever is an embedded, in-process, document-oriented store
// for application-defined record types.
//
// Records live in chunks. Every record derives two keys through the
// Record interface: a chunk key grouping related records, and an item
// key unique within the chunk. The pair is the record's Id. Chunks keep
// their records sorted by item key, so point lookups are binary
// searches and chunks double as the unit of cache invalidation for
// everything built on top.
//
// On top of Storage sit three derived facilities:
//
//   - queries, a closed set of combinators (Everything, Chunks,
//     ChunkRange, Filter, Matching) that narrow by intersection and
//     evaluate lazily;
//   - secondary indexes, mapping application-computed keys back to the
//     identities producing them, revalidated lazily chunk by chunk;
//   - reductions, cached two-level map-fold aggregations with
//     chunk-granular recomputation.
//
// A minimal session:
//
//	type Puppy struct {
//		Year int
//		Name string
//	}
//
//	func (p Puppy) ChunkKey() int   { return p.Year }
//	func (p Puppy) ItemKey() string { return p.Name }
//
//	store := retriever.New[int, string, Puppy]()
//	store.Add(Puppy{Year: 2019, Name: "lucky"})
//	p, ok := store.Get(retriever.NewId(2019, "lucky"))
//
// Everything is single-threaded and synchronous. Nothing inside locks;
// a host that shares a Storage across goroutines must hold one
// exclusive lock around the Storage and every index and reduction
// derived from it, since they revalidate themselves against the
// storage revision whenever consulted.
//
// Absent keys are empty results, never errors. Adding a record whose
// identity already exists replaces the old one; that is the intended
// upsert, not a failure.
package retriever

import "golang.org/x/exp/constraints"

// Record is the capability every stored type provides: deriving the
// two halves of its identity. Both methods must be cheap, and their
// results must not change while the record is stored; Storage consults
// them on every insert and relies on them to keep chunks sorted.
type Record[C, I constraints.Ordered] interface {
	// ChunkKey names the chunk this record belongs to.
	ChunkKey() C
	// ItemKey distinguishes this record within its chunk.
	ItemKey() I
}
