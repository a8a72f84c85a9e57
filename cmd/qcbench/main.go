// Command qcbench measures Append/Read/FindAll throughput against a
// freshly created table. Grounded on cmd/tk-bench's stdlib flag-based
// config struct; kept standalone rather than sharing internal/cli since
// tk-bench itself does not share it either.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/qcdb-go/qcdb/pkg/fs"
	"github.com/qcdb-go/qcdb/pkg/qcdb"
	"github.com/qcdb-go/qcdb/pkg/schema"
)

// Config controls a single benchmark run.
type Config struct {
	Capacity   int
	RecordSize int
	Dir        string
}

func main() {
	cfg := Config{}

	flag.IntVar(&cfg.Capacity, "capacity", 100_000, "table record capacity")
	flag.IntVar(&cfg.RecordSize, "record-size", 64, "record size in bytes (a single b-array field)")
	flag.StringVar(&cfg.Dir, "dir", "", "directory to create the benchmark table in (default: a temp dir)")
	flag.Parse()

	if err := runBench(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runBench(cfg Config) error {
	dir := cfg.Dir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "qcbench-*")
		if err != nil {
			return err
		}

		defer os.RemoveAll(tmp)

		dir = tmp
	}

	layout, err := schema.Build(0, "BENCH", cfg.Capacity, []schema.Field{
		{Number: 0, Name: "PAYLOAD", Type: schema.TypeByte, ElementCount: cfg.RecordSize},
	}, false)
	if err != nil {
		return err
	}

	path, err := qcdb.CreateTable(fs.NewReal(), dir, layout)
	if err != nil {
		return err
	}

	tbl, err := qcdb.Open(path)
	if err != nil {
		return err
	}
	defer tbl.Close()

	record := make([]byte, layout.RecordSize)
	record[0] = 1 // an all-zero record marks an empty slot, so Append would reuse it

	start := time.Now()

	written := 0

	for i := 0; i < cfg.Capacity; i++ {
		if _, err := tbl.Append(record); err != nil {
			break
		}

		written++
	}

	appendElapsed := time.Since(start)

	readBuf := make([]byte, layout.RecordSize)

	start = time.Now()

	for i := 0; i < written; i++ {
		if err := tbl.Read(uint64(i), readBuf); err != nil {
			return err
		}
	}

	readElapsed := time.Since(start)

	start = time.Now()

	_, err = tbl.FindAll(func([]byte) bool { return true })
	if err != nil {
		return err
	}

	scanElapsed := time.Since(start)

	fmt.Printf("appended %d records in %s (%.0f records/s)\n", written, appendElapsed, float64(written)/appendElapsed.Seconds())
	fmt.Printf("read %d records in %s (%.0f records/s)\n", written, readElapsed, float64(written)/readElapsed.Seconds())
	fmt.Printf("parallel FindAll over %d records in %s\n", written, scanElapsed)

	return nil
}
