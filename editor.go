package retriever

import "golang.org/x/exp/constraints"

// Editor is the per-record handle a Modify pass gives its callback.
// It is transient: use it inside the callback, do not keep it.
type Editor[C, I constraints.Ordered, R Record[C, I]] struct {
	id  Id[C, I]
	rec *R
}

// Id is the identity of the record being edited.
func (e Editor[C, I, R]) Id() Id[C, I] {
	return e.id
}

// Get returns the record for reading.
func (e Editor[C, I, R]) Get() *R {
	return e.rec
}

// Mut returns the record for writing. Fields that feed ChunkKey or
// ItemKey must keep their values: Storage does not re-sort or re-file
// mid-pass, and indexes still refer to the old identity. Such edits
// are not detected.
func (e Editor[C, I, R]) Mut() *R {
	return e.rec
}
