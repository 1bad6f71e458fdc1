package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dacapoday/blockstore"
	"github.com/dacapoday/blockstore/snapshot"
)

const helpText = `
Commands:
  alloc                      allocate the lowest free block
  request <id>               allocate a specific block
  release <id>               free a block
  write <id> <off> <text>    write text into a block at offset
  read <id> <off> <len>      read bytes from a block at offset
  stat <id>                  show allocation and dirty state of a block
  info                       show store geometry and usage
  export <path>              write the store as a flat image
  import <path>              replace the store with a flat image
  save <path> [codec]        write a compressed snapshot (none, snappy, zstd; default zstd)
  restore <path>             replace the store with a snapshot
  sum                        print the image fingerprint
  reset                      replace the store with an empty one
  help                       show this text
  exit                       leave
`

type shell struct {
	store *blockstore.Store
	opts  []blockstore.Option
	out   io.Writer
}

func (sh *shell) close() {
	if sh.store != nil {
		sh.store.Close()
		sh.store = nil
	}
}

// replace swaps in a store produced by open. The old store is only closed
// once the new one exists.
func (sh *shell) replace(open func() (*blockstore.Store, error)) error {
	store, err := open()
	if err != nil {
		return err
	}
	sh.close()
	sh.store = store
	return nil
}

// exec runs one command line and reports whether the shell should exit.
func (sh *shell) exec(line string) (quit bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return false
	}

	cmd, args := strings.ToLower(fields[0]), fields[1:]
	if cmd == "exit" || cmd == "quit" {
		return true
	}

	err := sh.run(cmd, args, line)
	switch {
	case err == nil:
	case blockstore.IsAdvisory(err):
		fmt.Fprintf(sh.out, "warning: %v\n", err)
	default:
		fmt.Fprintf(sh.out, "error: %v\n", err)
	}
	return false
}

var errUsage = errors.New("usage")

func (sh *shell) run(cmd string, args []string, line string) error {
	switch cmd {
	case "help":
		fmt.Fprint(sh.out, helpText)
		return nil

	case "alloc":
		id, err := sh.store.Allocate()
		if err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "block %d\n", id)
		return nil

	case "request", "release", "stat":
		if len(args) != 1 {
			return fmt.Errorf("%w: %s <id>", errUsage, cmd)
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		switch cmd {
		case "request":
			_, err = sh.store.Request(id)
		case "release":
			_, err = sh.store.Release(id)
		default:
			fmt.Fprintf(sh.out, "block %d allocated=%v dirty=%v\n", id, sh.store.Allocated(id), sh.store.Dirty(id))
		}
		return err

	case "write":
		if len(args) < 3 {
			return fmt.Errorf("%w: write <id> <off> <text>", errUsage)
		}
		id, off, err := parseSpan(args[0], args[1])
		if err != nil {
			return err
		}
		text := skipFields(line, 3)
		n, err := sh.store.Write(id, []byte(text), off)
		if n > 0 {
			fmt.Fprintf(sh.out, "wrote %d bytes\n", n)
		}
		return err

	case "read":
		if len(args) != 3 {
			return fmt.Errorf("%w: read <id> <off> <len>", errUsage)
		}
		id, off, err := parseSpan(args[0], args[1])
		if err != nil {
			return err
		}
		size, err := strconv.Atoi(args[2])
		if err != nil || size < 0 || size > blockstore.BlockSize {
			return fmt.Errorf("invalid length %q", args[2])
		}
		buf := make([]byte, size)
		n, err := sh.store.Read(id, buf, off)
		if n > 0 {
			fmt.Fprintf(sh.out, "%q\n", buf[:n])
		}
		return err

	case "info":
		fmt.Fprintf(sh.out, "blocks %d x %d bytes, %d reserved\n", blockstore.BlockCount, blockstore.BlockSize, blockstore.ReservedBlocks)
		fmt.Fprintf(sh.out, "free %d, dirty %d\n", sh.store.FreeBlocks(), sh.store.DirtyBlocks())
		return nil

	case "export", "import", "restore":
		if len(args) != 1 {
			return fmt.Errorf("%w: %s <path>", errUsage, cmd)
		}
		path := args[0]
		switch cmd {
		case "export":
			n, err := sh.store.Export(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(sh.out, "exported %d bytes\n", n)
			return nil
		case "import":
			return sh.replace(func() (*blockstore.Store, error) {
				return blockstore.Import(path, sh.opts...)
			})
		default:
			return sh.replace(func() (*blockstore.Store, error) {
				return snapshot.RestoreFile(path, sh.opts...)
			})
		}

	case "save":
		if len(args) < 1 || len(args) > 2 {
			return fmt.Errorf("%w: save <path> [codec]", errUsage)
		}
		codec := snapshot.Zstd
		if len(args) == 2 {
			var err error
			if codec, err = snapshot.ParseCodec(args[1]); err != nil {
				return err
			}
		}
		n, err := snapshot.SaveFile(args[0], sh.store, codec)
		if err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "saved %d bytes (%v)\n", n, codec)
		return nil

	case "sum":
		sum, err := snapshot.Fingerprint(sh.store)
		if err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "%016x\n", sum)
		return nil

	case "reset":
		return sh.replace(func() (*blockstore.Store, error) {
			return blockstore.Create(sh.opts...)
		})

	default:
		return fmt.Errorf("unknown command %q, type help", cmd)
	}
}

// skipFields drops the first n whitespace-separated fields of line and
// returns the remainder verbatim.
func skipFields(line string, n int) string {
	s := strings.TrimLeft(line, " \t")
	for range n {
		i := strings.IndexAny(s, " \t")
		if i < 0 {
			return ""
		}
		s = strings.TrimLeft(s[i:], " \t")
	}
	return s
}

func parseID(s string) (blockstore.BlockID, error) {
	id, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid block id %q", s)
	}
	return blockstore.BlockID(id), nil
}

func parseSpan(idArg, offArg string) (blockstore.BlockID, blockstore.Offset, error) {
	id, err := parseID(idArg)
	if err != nil {
		return 0, 0, err
	}
	off, err := strconv.ParseUint(offArg, 0, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid offset %q", offArg)
	}
	return id, blockstore.Offset(off), nil
}
