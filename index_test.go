package retriever

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func firstLetter(b *box) []string {
	return []string{b.slot[:1]}
}

func TestIndexBuildsOnFirstUse(t *testing.T) {
	s := testStore()
	calls := 0
	ix := NewSecondaryIndex(s, func(b *box) []string {
		calls++
		return firstLetter(b)
	})

	assert.Equal(t, 0, calls, "construction scans nothing")

	ids := slices.Collect(ix.Lookup("p"))
	assert.Equal(t, []Id[int, string]{NewId(1, "pears")}, ids)
	assert.Equal(t, s.Len(), calls, "first consultation scans everything once")

	ix.Count("p")
	assert.Equal(t, s.Len(), calls, "a clean index rescans nothing")
}

func TestIndexRescansOnlyStaleChunks(t *testing.T) {
	s := testStore()
	calls := 0
	ix := NewSecondaryIndex(s, func(b *box) []string {
		calls++
		return firstLetter(b)
	})
	require.Equal(t, 1, ix.Count("a"))
	calls = 0

	s.Add(box{shelf: 2, slot: "anvils", qty: 1})

	assert.Equal(t, 2, ix.Count("a"))
	assert.Equal(t, s.ChunkLen(2), calls, "only the touched chunk is rescanned")
}

func TestIndexUnknownKeyIsEmpty(t *testing.T) {
	s := testStore()
	ix := NewSecondaryIndex(s, firstLetter)

	assert.Empty(t, slices.Collect(ix.Lookup("z")))
	assert.Equal(t, 0, ix.Count("z"))
}

func TestIndexMultiValuedKeys(t *testing.T) {
	s := testStore()
	ix := NewSecondaryIndex(s, func(b *box) []string {
		return append([]string{"all"}, firstLetter(b)...)
	})

	assert.Equal(t, s.Len(), ix.Count("all"))
	assert.Equal(t, 1, ix.Count("r"))
	assert.Equal(t, 6, ix.Keys())
	assert.NoError(t, ix.Validate())
}

func TestIndexLookupOrdered(t *testing.T) {
	s := testStore()
	ix := NewSecondaryIndex(s, func(b *box) []string {
		return []string{"all"}
	})

	ids := slices.Collect(ix.Lookup("all"))
	assert.True(t, slices.IsSortedFunc(ids, Id[int, string].Compare))
	assert.Len(t, ids, s.Len())
}

func TestIndexFollowsRemoval(t *testing.T) {
	s := testStore()
	ix := NewSecondaryIndex(s, firstLetter)
	require.Equal(t, 1, ix.Count("n"))

	s.Entry(NewId(2, "nails")).Remove()

	assert.Equal(t, 0, ix.Count("n"))
	assert.Equal(t, 1, ix.Count("s"), "the chunk's other records survive the rescan")
	assert.NoError(t, ix.Validate())
}

func TestIndexCollectsRemovedChunks(t *testing.T) {
	s := testStore()
	ix := NewSecondaryIndex(s, func(b *box) []string {
		return []string{"all"}
	})
	require.Equal(t, 5, ix.Count("all"))

	s.RemoveChunk(2)

	ids := slices.Collect(ix.Lookup("all"))
	assert.Len(t, ids, 3)
	for _, id := range ids {
		assert.NotEqual(t, 2, id.Chunk)
	}
	assert.NoError(t, ix.Validate())
}

func TestIndexFollowsGetMut(t *testing.T) {
	s := testStore()
	ix := NewSecondaryIndex(s, func(b *box) []string {
		if b.qty >= 50 {
			return []string{"bulk"}
		}
		return nil
	})
	require.Equal(t, 1, ix.Count("bulk"))

	r, _ := s.GetMut(NewId(2, "screws"))
	r.qty = 400

	assert.Equal(t, 2, ix.Count("bulk"))
	assert.NoError(t, ix.Validate())
}

func TestIndexIdentityKeys(t *testing.T) {
	s := testStore()
	ix := NewSecondaryIndex(s, func(b *box) []Id[int, string] {
		if b.shelf == 1 {
			return []Id[int, string]{NewId(3, "rope")}
		}
		return nil
	})

	assert.Equal(t, 2, ix.Count(NewId(3, "rope")))
	assert.Equal(t, 0, ix.Count(NewId(1, "apples")))
}

func TestIndexAgreesWithFullScan(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 2026))
	s := New[int, string, box]()
	extract := func(b *box) []string {
		return []string{fmt.Sprintf("q%d", b.qty%7)}
	}
	ix := NewSecondaryIndex(s, extract)

	check := func() {
		brute := map[string][]Id[int, string]{}
		for r := range s.All() {
			id := NewId(r.shelf, r.slot)
			for _, k := range extract(r) {
				brute[k] = append(brute[k], id)
			}
		}
		for k, want := range brute {
			slices.SortFunc(want, Id[int, string].Compare)
			assert.Equal(t, want, slices.Collect(ix.Lookup(k)), "key %s", k)
		}
		for k := range 7 {
			key := fmt.Sprintf("q%d", k)
			assert.Equal(t, len(brute[key]), ix.Count(key))
		}
		require.NoError(t, ix.Validate())
	}

	for step := range 400 {
		switch rng.IntN(10) {
		case 0, 1, 2, 3, 4, 5:
			s.Add(box{
				shelf: rng.IntN(5),
				slot:  fmt.Sprintf("s%02d", rng.IntN(25)),
				qty:   rng.IntN(1000),
			})
		case 6, 7:
			s.Entry(NewId(rng.IntN(5), fmt.Sprintf("s%02d", rng.IntN(25)))).Remove()
		case 8:
			if r, ok := s.GetMut(NewId(rng.IntN(5), fmt.Sprintf("s%02d", rng.IntN(25)))); ok {
				r.qty = rng.IntN(1000)
			}
		case 9:
			s.RemoveChunk(rng.IntN(5))
		}
		if step%80 == 79 {
			check()
		}
	}
	check()
}

func TestIndexMemoryUsageAndShrink(t *testing.T) {
	s := testStore()
	ix := NewSecondaryIndex(s, func(b *box) []string {
		return []string{"all"}
	})
	require.Equal(t, 5, ix.Count("all"))

	m := ix.MemoryUsage()
	assert.Equal(t, 5, m.Used)
	assert.GreaterOrEqual(t, m.Cap, m.Used)
	assert.NotEmpty(t, m.String())

	ix.Shrink()
	assert.Equal(t, 5, ix.Count("all"))
	assert.Equal(t, ix.MemoryUsage().Used, ix.MemoryUsage().Cap)
}
