package retriever

import (
	"cmp"
	"fmt"

	"golang.org/x/exp/constraints"
)

// Id addresses one record: the chunk it lives in plus its item key
// there. Ids are small comparable values. Store them inside records to
// express relationships, cycles included, and resolve them later with
// a fresh Get; nothing about an Id keeps the record it names alive.
type Id[C, I constraints.Ordered] struct {
	Chunk C
	Item  I
}

// NewId composes an identity from its two halves.
func NewId[C, I constraints.Ordered](chunk C, item I) Id[C, I] {
	return Id[C, I]{Chunk: chunk, Item: item}
}

// IdOf derives the identity of r.
func IdOf[C, I constraints.Ordered](r Record[C, I]) Id[C, I] {
	return Id[C, I]{Chunk: r.ChunkKey(), Item: r.ItemKey()}
}

// ChunkKey returns the chunk half. An Id is itself a minimal Record,
// so key-only placeholders can be stored directly.
func (id Id[C, I]) ChunkKey() C { return id.Chunk }

// ItemKey returns the item half.
func (id Id[C, I]) ItemKey() I { return id.Item }

// Compare orders ids by chunk key, then item key.
func (id Id[C, I]) Compare(other Id[C, I]) int {
	if c := cmp.Compare(id.Chunk, other.Chunk); c != 0 {
		return c
	}
	return cmp.Compare(id.Item, other.Item)
}

func (id Id[C, I]) Less(other Id[C, I]) bool {
	return id.Compare(other) < 0
}

func (id Id[C, I]) String() string {
	return fmt.Sprintf("%v/%v", id.Chunk, id.Item)
}
