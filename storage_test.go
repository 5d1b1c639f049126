package retriever

import (
	"cmp"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// box is the workhorse record of the package tests: something filed
// under a shelf and a labeled slot.
type box struct {
	shelf int
	slot  string
	qty   int
}

func (b box) ChunkKey() int   { return b.shelf }
func (b box) ItemKey() string { return b.slot }

func testStore() *Storage[int, string, box] {
	s := New[int, string, box]()
	s.Add(box{shelf: 1, slot: "apples", qty: 3})
	s.Add(box{shelf: 1, slot: "pears", qty: 5})
	s.Add(box{shelf: 2, slot: "nails", qty: 100})
	s.Add(box{shelf: 2, slot: "screws", qty: 40})
	s.Add(box{shelf: 3, slot: "rope", qty: 1})
	return s
}

func TestAddGet(t *testing.T) {
	s := testStore()

	r, ok := s.Get(NewId(1, "pears"))
	require.True(t, ok)
	assert.Equal(t, 5, r.qty)

	_, ok = s.Get(NewId(1, "nails"))
	assert.False(t, ok, "item lives on another shelf")
	_, ok = s.Get(NewId(9, "apples"))
	assert.False(t, ok, "no such chunk")
	assert.Equal(t, 5, s.Len())
}

func TestUpsertReplacesInPlace(t *testing.T) {
	s := testStore()

	s.Add(box{shelf: 1, slot: "apples", qty: 7})

	assert.Equal(t, 5, s.Len(), "upsert must not grow the store")
	r, ok := s.Get(NewId(1, "apples"))
	require.True(t, ok)
	assert.Equal(t, 7, r.qty)
	assert.NoError(t, s.Validate())
}

func TestAllVisitsEverythingInItemOrder(t *testing.T) {
	s := testStore()

	seen := 0
	perChunk := map[int][]string{}
	for r := range s.All() {
		seen++
		perChunk[r.shelf] = append(perChunk[r.shelf], r.slot)
	}

	assert.Equal(t, s.Len(), seen)
	for shelf, slots := range perChunk {
		assert.True(t, slices.IsSorted(slots), "shelf %d out of order: %v", shelf, slots)
	}
}

func TestAllIsRestartable(t *testing.T) {
	s := testStore()

	n := 0
	for range s.All() {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)

	n = 0
	for range s.All() {
		n++
	}
	assert.Equal(t, s.Len(), n, "a fresh range starts over")
}

func TestGetMutStampsChunk(t *testing.T) {
	s := testStore()
	rev := s.Revision()

	_, ok := s.Get(NewId(3, "rope"))
	require.True(t, ok)
	assert.Equal(t, rev, s.Revision(), "plain Get must not stamp")

	r, ok := s.GetMut(NewId(3, "rope"))
	require.True(t, ok)
	r.qty = 2
	assert.Equal(t, rev+1, s.Revision())

	_, ok = s.GetMut(NewId(3, "chain"))
	assert.False(t, ok)
	assert.Equal(t, rev+1, s.Revision(), "a miss changes nothing")
}

func TestModifyEditsMatches(t *testing.T) {
	s := testStore()
	rev := s.Revision()

	s.Modify(Chunks[int, string, box](2), func(e Editor[int, string, box]) {
		assert.Equal(t, 2, e.Id().Chunk)
		assert.Equal(t, e.Get(), e.Mut())
		e.Mut().qty++
	})

	r, _ := s.Get(NewId(2, "nails"))
	assert.Equal(t, 101, r.qty)
	r, _ = s.Get(NewId(2, "screws"))
	assert.Equal(t, 41, r.qty)
	assert.Equal(t, rev+1, s.Revision(), "one mutating call, one bump")
}

func TestModifyStampsOnlyTouchedChunks(t *testing.T) {
	s := testStore()
	before := s.chunks[1].rev

	s.Modify(Chunks[int, string, box](2, 3), func(e Editor[int, string, box]) {
		e.Mut().qty = 0
	})

	assert.Equal(t, before, s.chunks[1].rev, "shelf 1 was out of scope")
	assert.Equal(t, s.Revision(), s.chunks[2].rev)
	assert.Equal(t, s.Revision(), s.chunks[3].rev)
}

func TestModifyWithoutMatchesChangesNothing(t *testing.T) {
	s := testStore()
	rev := s.Revision()

	s.Modify(Chunks[int, string, box](9), func(e Editor[int, string, box]) {
		t.Fatal("no record should match")
	})

	assert.Equal(t, rev, s.Revision())
}

func TestRemoveConsumesExactlyOnce(t *testing.T) {
	s := testStore()

	consumed := map[string]int{}
	n := s.Remove(Everything[int, string, box]().Filter(func(b *box) bool {
		return b.qty >= 40
	}), func(b box) {
		consumed[b.slot]++
	})

	assert.Equal(t, 2, n)
	assert.Equal(t, map[string]int{"nails": 1, "screws": 1}, consumed)
	_, ok := s.Get(NewId(2, "nails"))
	assert.False(t, ok)
	assert.Equal(t, 3, s.Len())
	assert.NoError(t, s.Validate())
}

func TestRemoveNilConsumer(t *testing.T) {
	s := testStore()

	n := s.Remove(Chunks[int, string, box](1), nil)

	assert.Equal(t, 2, n)
	assert.Equal(t, 0, s.ChunkLen(1))
}

func TestRemoveChunk(t *testing.T) {
	s := testStore()

	recs, ok := s.RemoveChunk(2)
	require.True(t, ok)
	assert.Equal(t, []string{"nails", "screws"}, []string{recs[0].slot, recs[1].slot})

	_, ok = s.RemoveChunk(2)
	assert.False(t, ok)
	assert.Equal(t, []int{1, 3}, s.ChunkKeys())
}

func TestEmptyChunkRetained(t *testing.T) {
	s := testStore()

	s.Remove(Chunks[int, string, box](3), nil)

	assert.Equal(t, 0, s.ChunkLen(3))
	assert.Contains(t, s.ChunkKeys(), 3, "emptied chunks are kept, not pruned")
	_, ok := s.Get(NewId(3, "rope"))
	assert.False(t, ok)

	s.Add(box{shelf: 3, slot: "rope", qty: 8})
	assert.Equal(t, 1, s.ChunkLen(3))
}

func TestChunkKeysSorted(t *testing.T) {
	s := New[int, string, box]()
	for _, shelf := range []int{7, 2, 9, 4} {
		s.Add(box{shelf: shelf, slot: "x"})
	}
	assert.Equal(t, []int{2, 4, 7, 9}, s.ChunkKeys())
}

func TestDissolve(t *testing.T) {
	s := testStore()
	rev := s.Revision()

	var slots []string
	for r := range s.Dissolve() {
		slots = append(slots, r.slot)
	}

	assert.Len(t, slots, 5)
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.ChunkKeys())
	assert.Equal(t, rev+1, s.Revision())

	s.Add(box{shelf: 1, slot: "fresh"})
	assert.Equal(t, 1, s.Len(), "the store is reusable right away")
}

func TestRawExposesLiveChunks(t *testing.T) {
	s := testStore()

	total := 0
	for shelf, recs := range s.Raw() {
		total += len(recs)
		for i := range recs {
			assert.Equal(t, shelf, recs[i].shelf)
		}
		assert.True(t, slices.IsSortedFunc(recs, func(a, b box) int {
			return cmp.Compare(a.slot, b.slot)
		}))
	}
	assert.Equal(t, s.Len(), total)
}

func TestRevisionMovesOncePerMutatingCall(t *testing.T) {
	s := testStore()
	rev := s.Revision()

	s.Remove(Everything[int, string, box]().Filter(func(b *box) bool {
		return b.shelf != 3
	}), nil)
	assert.Equal(t, rev+1, s.Revision(), "multi-chunk remove still bumps once")

	s.Remove(Chunks[int, string, box](9), nil)
	assert.Equal(t, rev+1, s.Revision(), "a no-op remove does not bump")
}

func TestOptions(t *testing.T) {
	s := NewWithOptions[int, string, box](Options{ChunkCapacityHint: 64})
	s.Add(box{shelf: 1, slot: "a"})

	assert.GreaterOrEqual(t, cap(s.chunks[1].recs), 64)
	assert.NotNil(t, s.opts.Logger)
}
