package retriever_test

import (
	"fmt"

	"github.com/itsybitesyspider/retriever"
)

type tool struct {
	Drawer int
	Name   string
	Count  int
}

func (t tool) ChunkKey() int   { return t.Drawer }
func (t tool) ItemKey() string { return t.Name }

func workbench() *retriever.Storage[int, string, tool] {
	s := retriever.New[int, string, tool]()
	s.Add(tool{Drawer: 1, Name: "hammer", Count: 1})
	s.Add(tool{Drawer: 1, Name: "chisel", Count: 3})
	s.Add(tool{Drawer: 2, Name: "plane", Count: 1})
	s.Add(tool{Drawer: 2, Name: "rasp", Count: 4})
	return s
}

func ExampleStorage() {
	s := workbench()

	if r, ok := s.Get(retriever.NewId(1, "chisel")); ok {
		fmt.Println("chisels:", r.Count)
	}
	for r := range s.Query(retriever.ChunkRange[int, string, tool](1, 2)) {
		fmt.Println(r.Drawer, r.Name)
	}
	// Output:
	// chisels: 3
	// 1 chisel
	// 1 hammer
	// 2 plane
	// 2 rasp
}

func ExampleMatching() {
	s := workbench()
	stock := retriever.NewSecondaryIndex(s, func(r *tool) []string {
		if r.Count > 1 {
			return []string{"stocked"}
		}
		return []string{"low"}
	})

	q := retriever.Matching(retriever.ChunkRange[int, string, tool](1, 9), stock, "stocked")
	for r := range s.Query(q) {
		fmt.Println(r.Name)
	}
	// Output:
	// chisel
	// rasp
}

func ExampleReduction() {
	s := workbench()
	total := retriever.NewReduction(s,
		func(r *tool) int { return r.Count },
		func(a, b int) int { return a + b })

	fmt.Println(total.Reduce())
	s.Entry(retriever.NewId(2, "plane")).AndModify(func(r *tool) {
		r.Count += 2
	})
	fmt.Println(total.Reduce())
	// Output:
	// 9
	// 11
}
