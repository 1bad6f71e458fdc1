// bsh is an interactive shell over an in-memory block store.
//
// Usage:
//
//	bsh                      # start with an empty store
//	bsh -i device.img        # start from an exported image
//	bsh -mmap -budget 96M    # back the store with anonymous mappings under a memory budget
//	bsh < script.txt         # run commands from stdin without a prompt
//
// Set BLOCKSTORE_DEBUG to see debug logging.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/dacapoday/blockstore"
	"github.com/dacapoday/blockstore/arena"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

func init() {
	if _, set := os.LookupEnv("BLOCKSTORE_DEBUG"); set {
		logrus.SetLevel(logrus.DebugLevel)
	}
}

var completer = readline.NewPrefixCompleter(
	readline.PcItem("alloc"),
	readline.PcItem("request"),
	readline.PcItem("release"),
	readline.PcItem("read"),
	readline.PcItem("write"),
	readline.PcItem("stat"),
	readline.PcItem("info"),
	readline.PcItem("export"),
	readline.PcItem("import"),
	readline.PcItem("save",
		readline.PcItem("none"),
		readline.PcItem("snappy"),
		readline.PcItem("zstd"),
	),
	readline.PcItem("restore"),
	readline.PcItem("sum"),
	readline.PcItem("reset"),
	readline.PcItem("help"),
	readline.PcItem("exit"),
)

func main() {
	importFlag := flag.String("i", "", "import an image file at startup")
	mmapFlag := flag.Bool("mmap", false, "allocate the store with anonymous mappings")
	budgetFlag := flag.String("budget", "", "memory budget for the store, e.g. 80M (default unlimited)")
	flag.Parse()

	opts, err := options(*mmapFlag, *budgetFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	sh := &shell{out: os.Stdout, opts: opts}
	if *importFlag != "" {
		sh.store, err = blockstore.Import(*importFlag, opts...)
	} else {
		sh.store, err = blockstore.Create(opts...)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer sh.close()

	if term.IsTerminal(int(os.Stdin.Fd())) {
		runInteractive(sh)
	} else {
		runScript(sh, os.Stdin)
	}
}

func options(mmap bool, budget string) ([]blockstore.Option, error) {
	alloc := arena.Heap
	if mmap {
		alloc = arena.Mmap()
	}
	if budget != "" {
		size, err := parseSize(budget)
		if err != nil {
			return nil, fmt.Errorf("budget: %w", err)
		}
		alloc = arena.Limit(alloc, size)
	}
	return []blockstore.Option{blockstore.WithAllocator(alloc)}, nil
}

// parseSize accepts a byte count with an optional K, M or G suffix.
func parseSize(s string) (int, error) {
	if s == "" {
		return 0, errors.New("empty size")
	}
	shift := 0
	switch strings.ToUpper(s[len(s)-1:]) {
	case "K":
		shift = 10
	case "M":
		shift = 20
	case "G":
		shift = 30
	}
	if shift != 0 {
		s = s[:len(s)-1]
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	if n > math.MaxInt>>shift {
		return 0, fmt.Errorf("size %q overflows", s)
	}
	return n << shift, nil
}

func runInteractive(sh *shell) {
	historyFile := filepath.Join(os.TempDir(), ".bsh_history")
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "bsh> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing readline: %s\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	sh.out = rl.Stdout()
	fmt.Fprintln(sh.out, "bsh - block store shell. Type help for commands.")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				return
			}
			continue
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return
		}
		if quit := sh.exec(line); quit {
			return
		}
	}
}

func runScript(sh *shell, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if quit := sh.exec(scanner.Text()); quit {
			return
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
}
