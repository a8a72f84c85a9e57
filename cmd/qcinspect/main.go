// Command qcinspect is an interactive REPL for browsing a live .qcdb
// table file: reading, writing, appending, deleting and scanning records
// by raw byte content. Grounded directly on cmd/sloty's liner-based REPL
// for the structurally similar slotcache format; adapted from sloty's
// key/value commands to this format's index-addressed commands.
//
// Not part of the core (spec.md §1 lists CLI front ends as external
// collaborators); included as a developer-ergonomics tool.
package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/qcdb-go/qcdb/pkg/qcdb"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: qcinspect <table-file>")
		os.Exit(1)
	}

	if err := run(os.Args[1]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type repl struct {
	tbl        *qcdb.Table
	recordSize int
	line       *liner.State
}

func run(path string) error {
	tbl, err := qcdb.Open(path)
	if err != nil {
		return err
	}
	defer tbl.Close()

	r := &repl{tbl: tbl, recordSize: int(tbl.RecordSize())}

	return r.run()
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".qcinspect_history")
}

func (r *repl) run() error {
	r.line = liner.NewLiner()
	defer r.line.Close()

	r.line.SetCtrlCAborts(true)

	if f, err := os.Open(historyFile()); err == nil {
		_, _ = r.line.ReadHistory(f)
		f.Close()
	}

	fmt.Printf("qcinspect - qcdb CLI (name=%s, capacity=%d, record_size=%d)\n", r.tbl.Name(), r.tbl.Capacity(), r.recordSize)
	fmt.Println("Type 'help' for available commands.")

	for {
		line, err := r.line.Prompt("qcdb> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nBye!")
				return nil
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.line.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			r.saveHistory()
			return nil

		case "help", "?":
			r.printHelp()

		case "read":
			r.cmdRead(args)

		case "write":
			r.cmdWrite(args)

		case "append":
			r.cmdAppend(args)

		case "delete", "del":
			r.cmdDelete(args)

		case "clear":
			r.cmdClear()

		case "find":
			r.cmdFind(args)

		case "len":
			r.cmdLen()

		default:
			fmt.Printf("unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (r *repl) saveHistory() {
	path := historyFile()
	if path == "" {
		return
	}

	f, err := os.Create(path)
	if err != nil {
		return
	}
	defer f.Close()

	_, _ = r.line.WriteHistory(f)
}

func (r *repl) printHelp() {
	fmt.Println(`Commands:
  read <index>                 read a record as hex
  write <index> <hex bytes>    write raw hex bytes into a slot
  append <hex bytes>           append raw hex bytes into the next free slot
  delete <index>               delete (zero) a record
  clear                        zero every record and reset watermarks
  find <hex byte> <offset>     find first record with that byte at offset
  len                          show last_written
  help                         show this help
  exit / quit / q              exit`)
}

func (r *repl) cmdRead(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: read <index>")
		return
	}

	idx, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		fmt.Println("invalid index:", err)
		return
	}

	buf := make([]byte, r.recordSize)
	if err := r.tbl.Read(idx, buf); err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println(hex.EncodeToString(buf))
}

func (r *repl) cmdWrite(args []string) {
	if len(args) != 2 {
		fmt.Println("usage: write <index> <hex bytes>")
		return
	}

	idx, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		fmt.Println("invalid index:", err)
		return
	}

	data, err := decodeRecordHex(args[1], r.recordSize)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	if err := r.tbl.WriteAt(idx, data); err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println("ok")
}

func (r *repl) cmdAppend(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: append <hex bytes>")
		return
	}

	data, err := decodeRecordHex(args[0], r.recordSize)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	idx, err := r.tbl.Append(data)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println("appended at index", idx)
}

func (r *repl) cmdDelete(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: delete <index>")
		return
	}

	idx, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		fmt.Println("invalid index:", err)
		return
	}

	if err := r.tbl.Delete(idx); err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println("ok")
}

func (r *repl) cmdClear() {
	if err := r.tbl.Clear(); err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println("ok")
}

func (r *repl) cmdFind(args []string) {
	if len(args) != 2 {
		fmt.Println("usage: find <hex byte> <offset>")
		return
	}

	want, err := hex.DecodeString(args[0])
	if err != nil || len(want) != 1 {
		fmt.Println("expected exactly one hex byte")
		return
	}

	offset, err := strconv.Atoi(args[1])
	if err != nil || offset < 0 || offset >= r.recordSize {
		fmt.Println("invalid offset")
		return
	}

	idx, err := r.tbl.FindFirst(func(rec []byte) bool { return rec[offset] == want[0] })
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println("found at index", idx)
}

func (r *repl) cmdLen() {
	lw, err := r.tbl.LastWritten()
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println("last_written:", lw)
}

func decodeRecordHex(s string, recordSize int) ([]byte, error) {
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}

	if len(data) > recordSize {
		return nil, fmt.Errorf("input is %d bytes, record size is %d", len(data), recordSize)
	}

	buf := make([]byte, recordSize)
	copy(buf, data)

	return buf, nil
}
