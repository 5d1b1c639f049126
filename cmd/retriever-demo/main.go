package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ergochat/readline"

	"github.com/itsybitesyspider/retriever"
	"github.com/itsybitesyspider/retriever/utils"
)

// An interactive shell over a store of notes: one chunk per notebook,
// one record per page, with a word index and a byte-count reduction
// kept warm on the side.
type REPL struct {
	notes *retriever.Storage[string, string, Note]
	words *retriever.SecondaryIndex[string, string, Note, string]
	size  *retriever.Reduction[string, string, Note, int]
	rl    *readline.Instance
}

var completer = readline.NewPrefixCompleter(
	readline.PcItem("help"),

	readline.PcItem("put"),
	readline.PcItem("get"),
	readline.PcItem("rm"),
	readline.PcItem("drop"),

	readline.PcItem("ls"),
	readline.PcItem("books"),
	readline.PcItem("find"),
	readline.PcItem("grep"),

	readline.PcItem("bytes"),
	readline.PcItem("mem"),

	readline.PcItem("exit"),
	readline.PcItem("quit"),
)

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func NewREPL(verbose bool) *REPL {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	notes := retriever.NewWithOptions[string, string, Note](retriever.Options{
		Logger: utils.NewDefaultLogger(level),
	})
	return &REPL{
		notes: notes,
		words: retriever.NewSecondaryIndex(notes, noteWords),
		size: retriever.NewReduction(notes,
			func(n *Note) int { return len(n.Body) },
			func(a, b int) int { return a + b }),
	}
}

func (repl *REPL) Open() (err error) {
	repl.rl, err = readline.NewEx(&readline.Config{
		Prompt:          "◌ ",
		HistoryFile:     ".retriever_cmd_log.txt",
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return
	}
	repl.rl.CaptureExitSignal()
	return
}

func (repl *REPL) Close() error {
	if repl.rl != nil {
		_ = repl.rl.Close()
		repl.rl = nil
	}
	return nil
}

func (repl *REPL) REPL() (err error) {
	var line string
	line, err = repl.rl.Readline()
	if err == readline.ErrInterrupt && len(line) != 0 {
		return nil
	}
	if err != nil {
		return err
	}

	line = strings.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "help":
		err = repl.CommandHelp()
	// ----- notes -----
	case "put":
		err = repl.CommandPut(arg)
	case "get", "cat":
		err = repl.CommandGet(arg)
	case "rm":
		err = repl.CommandRm(arg)
	case "drop":
		err = repl.CommandDrop(arg)
	// ----- queries -----
	case "ls", "list":
		err = repl.CommandLs(arg)
	case "books":
		err = repl.CommandBooks()
	case "find":
		err = repl.CommandFind(arg)
	case "grep":
		err = repl.CommandGrep(arg)
	// ----- accounting -----
	case "bytes":
		err = repl.CommandBytes()
	case "mem":
		err = repl.CommandMem()
	case "exit", "quit":
		err = io.EOF
	default:
		_, _ = fmt.Fprintf(os.Stderr, "command unknown: %s\n", cmd)
	}
	return
}

func main() {
	verbose := flag.Bool("v", false, "log store debug events")
	flag.Parse()

	repl := NewREPL(*verbose)
	err := repl.Open()

	for err != io.EOF {
		if err != nil {
			_, _ = fmt.Fprintf(os.Stdout, "%s\n", err.Error())
			err = nil
		}
		err = repl.REPL()
	}
	_ = repl.Close()
}
