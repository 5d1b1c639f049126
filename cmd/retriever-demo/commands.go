package main

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/itsybitesyspider/retriever"
)

// Note is one notebook page; the notebook is the chunk.
type Note struct {
	Notebook string
	Title    string
	Body     string
}

func (n Note) ChunkKey() string { return n.Notebook }
func (n Note) ItemKey() string  { return n.Title }

func noteWords(n *Note) []string {
	words := strings.Fields(strings.ToLower(n.Body))
	slices.Sort(words)
	return slices.Compact(words)
}

var ErrBadPath = errors.New("bad path, want notebook/title")

func parsePath(arg string) (retriever.Id[string, string], error) {
	book, title, ok := strings.Cut(arg, "/")
	if !ok || book == "" || title == "" {
		return retriever.Id[string, string]{}, ErrBadPath
	}
	return retriever.NewId(book, title), nil
}

var HelpPut = errors.New("put lab/day-one took delivery of the new dog")

func (repl *REPL) CommandPut(arg string) error {
	path, body, _ := strings.Cut(arg, " ")
	id, err := parsePath(path)
	if err != nil || body == "" {
		return HelpPut
	}
	repl.notes.Add(Note{Notebook: id.Chunk, Title: id.Item, Body: body})
	fmt.Printf("%s: %d bytes\n", id, len(body))
	return nil
}

var HelpGet = errors.New("get lab/day-one")

func (repl *REPL) CommandGet(arg string) error {
	id, err := parsePath(arg)
	if err != nil {
		return HelpGet
	}
	n, ok := repl.notes.Get(id)
	if !ok {
		fmt.Printf("%s: no such note\n", id)
		return nil
	}
	fmt.Println(n.Body)
	return nil
}

var HelpRm = errors.New("rm lab/day-one")

func (repl *REPL) CommandRm(arg string) error {
	id, err := parsePath(arg)
	if err != nil {
		return HelpRm
	}
	if _, ok := repl.notes.Entry(id).Remove(); ok {
		fmt.Printf("%s: removed\n", id)
	} else {
		fmt.Printf("%s: no such note\n", id)
	}
	return nil
}

var HelpDrop = errors.New("drop lab")

func (repl *REPL) CommandDrop(arg string) error {
	if arg == "" {
		return HelpDrop
	}
	recs, ok := repl.notes.RemoveChunk(arg)
	if !ok {
		fmt.Printf("%s: no such notebook\n", arg)
		return nil
	}
	fmt.Printf("%s: dropped %d notes\n", arg, len(recs))
	return nil
}

func (repl *REPL) CommandLs(arg string) error {
	q := retriever.Everything[string, string, Note]()
	if arg != "" {
		q = retriever.OneChunk[string, string, Note](arg)
	}
	for _, path := range repl.paths(q) {
		fmt.Println(path)
	}
	return nil
}

func (repl *REPL) CommandBooks() error {
	for _, book := range repl.notes.ChunkKeys() {
		fmt.Printf("%s: %d notes\n", book, repl.notes.ChunkLen(book))
	}
	return nil
}

var HelpFind = errors.New("find word")

func (repl *REPL) CommandFind(arg string) error {
	if arg == "" {
		return HelpFind
	}
	word := strings.ToLower(arg)
	n := 0
	for id := range repl.words.Lookup(word) {
		fmt.Println(id)
		n++
	}
	fmt.Printf("%d notes mention %q\n", n, word)
	return nil
}

var HelpGrep = errors.New("grep substring")

func (repl *REPL) CommandGrep(arg string) error {
	if arg == "" {
		return HelpGrep
	}
	q := retriever.Everything[string, string, Note]().Filter(func(n *Note) bool {
		return strings.Contains(n.Body, arg)
	})
	for _, path := range repl.paths(q) {
		fmt.Println(path)
	}
	return nil
}

func (repl *REPL) CommandBytes() error {
	fmt.Printf("%s bytes in %s notes\n",
		humanize.Comma(int64(repl.size.Reduce())),
		humanize.Comma(int64(repl.notes.Len())))
	return nil
}

func (repl *REPL) CommandMem() error {
	fmt.Println(repl.notes.MemoryUsage())
	return nil
}

func (repl *REPL) CommandHelp() error {
	fmt.Print(`put   notebook/title text of the note
get   notebook/title
rm    notebook/title
drop  notebook
ls    [notebook]
books
find  word
grep  substring
bytes
mem
exit
`)
	return nil
}

func (repl *REPL) paths(q retriever.Query[string, string, Note]) []string {
	var out []string
	for n := range repl.notes.Query(q) {
		out = append(out, n.Notebook+"/"+n.Title)
	}
	slices.Sort(out)
	return out
}
