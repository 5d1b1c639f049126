package retriever

import "golang.org/x/exp/constraints"

// Entry is a handle on one identity, present or not, for mutation
// without a query pass.
type Entry[C, I constraints.Ordered, R Record[C, I]] struct {
	storage *Storage[C, I, R]
	id      Id[C, I]
}

// Entry addresses one identity for chained single-record operations:
//
//	store.Entry(id).AndModify(func(r *Rec) { r.Hits++ })
func (s *Storage[C, I, R]) Entry(id Id[C, I]) Entry[C, I, R] {
	return Entry[C, I, R]{storage: s, id: id}
}

// Id returns the identity the entry addresses.
func (e Entry[C, I, R]) Id() Id[C, I] {
	return e.id
}

// Get peeks at the record without marking anything dirty.
func (e Entry[C, I, R]) Get() (*R, bool) {
	return e.storage.Get(e.id)
}

// OrInsert returns the record at the entry's identity, inserting
// build()'s result first when it is absent. The chunk is stamped dirty
// either way; the caller may mutate non-key fields through the
// returned pointer. build must construct a record deriving exactly
// this identity, anything else panics with ErrEntryMismatch.
func (e Entry[C, I, R]) OrInsert(build func() R) *R {
	if r, ok := e.storage.GetMut(e.id); ok {
		return r
	}
	r := build()
	if r.ChunkKey() != e.id.Chunk || r.ItemKey() != e.id.Item {
		panic(ErrEntryMismatch)
	}
	e.storage.Add(r)
	out, _ := e.storage.Get(e.id)
	return out
}

// AndModify applies f when the record exists, stamping its chunk, and
// returns the entry for chaining.
func (e Entry[C, I, R]) AndModify(f func(*R)) Entry[C, I, R] {
	if r, ok := e.storage.GetMut(e.id); ok {
		f(r)
	}
	return e
}

// Remove deletes the record, returning it. A miss changes nothing.
func (e Entry[C, I, R]) Remove() (R, bool) {
	s := e.storage
	var zero R
	ch := s.chunks[e.id.Chunk]
	if ch == nil {
		return zero, false
	}
	out, ok := ch.remove(e.id.Item)
	if !ok {
		return zero, false
	}
	s.rev++
	ch.rev = s.rev
	return out, true
}

// RemoveIf deletes the record when pred approves of it.
func (e Entry[C, I, R]) RemoveIf(pred func(*R) bool) (R, bool) {
	var zero R
	r, ok := e.storage.Get(e.id)
	if !ok || !pred(r) {
		return zero, false
	}
	return e.Remove()
}
