package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/itsybitesyspider/retriever"
	"github.com/itsybitesyspider/retriever/utils"
)

// Long-running churn harness for hunting leaks: preload a store, then
// cycle adds and removes through a shuffled pool while a sum reduction
// and the unlucky index stay warm, shrinking and reporting every lap.

type X struct{ v uint64 }

func (x X) ChunkKey() uint64 { return x.v >> 16 }
func (x X) ItemKey() uint64  { return x.v }

func main() {
	var (
		preload = flag.Uint64("preload", 10_000_000, "records inserted before churn begins")
		batch   = flag.Int("batch", 1000, "records added and removed per spin")
		spins   = flag.Int("spins", 1000, "spins per lap")
		laps    = flag.Int("laps", 0, "laps to run, 0 to run forever")
		verbose = flag.Bool("v", false, "log store debug events")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	storage := retriever.NewWithOptions[uint64, uint64, X](retriever.Options{
		Logger: utils.NewDefaultLogger(level),
	})
	sum := retriever.NewReduction(storage,
		func(x *X) uint64 { return x.v },
		func(a, b uint64) uint64 { return a + b })
	unlucky := retriever.NewSecondaryIndex(storage, func(x *X) []bool {
		if x.v%1313 == 0 {
			return []bool{true}
		}
		return nil
	})

	var pool, joined []X
	next := uint64(0)
	for ; next < *preload; next++ {
		x := X{v: next}
		storage.Add(x)
		joined = append(joined, x)
	}
	fmt.Printf("preloaded %s records\n", humanize.Comma(int64(storage.Len())))

	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	meter := utils.NewMeter()
	q := retriever.Matching(retriever.Everything[uint64, uint64, X](), unlucky, true)
	hits := 0

	for lap := 0; *laps == 0 || lap < *laps; lap++ {
		pool = append(pool, joined...)
		joined = joined[:0]
		rng.Shuffle(len(pool), func(i, j int) {
			pool[i], pool[j] = pool[j], pool[i]
		})

		for spin := 0; spin < *spins; spin++ {
			for j := 0; j < *batch; j++ {
				x := X{v: next}
				next++
				storage.Add(x)
				joined = append(joined, x)
			}
			for j := 0; j < *batch && len(pool) > 0; j++ {
				x := pool[len(pool)-1]
				pool = pool[:len(pool)-1]
				storage.Entry(retriever.IdOf[uint64, uint64](x)).Remove()
			}
			sum.Reduce()
			hits = 0
			for range storage.Query(q) {
				hits++
			}
			meter.Add(int64(2 * *batch))
		}

		storage.Shrink()
		sum.Shrink()
		unlucky.Shrink()

		fmt.Println(time.Now().Format(time.RFC3339))
		fmt.Printf("storage: %s\n", storage.MemoryUsage())
		fmt.Printf("sum: %s\n", sum.MemoryUsage())
		fmt.Printf("unlucky: %s\n", unlucky.MemoryUsage())
		fmt.Printf("unlucky matches: %d, %s mutations/s\n",
			hits, humanize.Comma(int64(meter.PerSecond())))
		meter.Reset()
	}
}
