// Package qcdb implements the qcdb record engine: the table initializer
// (C3), the mapped table handle (C4), the record engine operations (C5),
// and the parallel predicate scan (C6) described in SPEC_FULL.md.
//
// A Table is safe for concurrent use by multiple goroutines; handles
// opened on the same file within one process share one in-process lock
// entry, and multiple processes may open the same file
// concurrently and observe the same multi-reader/single-writer
// coordination (see lock.go).
package qcdb

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/qcdb-go/qcdb/pkg/errkind"
)

// Table is a mapped table handle (C4) plus the record engine (C5)
// operating on it.
type Table struct {
	path       string
	file       *os.File
	data       []byte
	capacity   uint64
	recordSize uint64
	identity   fileIdentity
	entry      *registryEntry
	closed     bool
}

// Open maps an existing table file created by CreateTable. On failure the
// handle is never returned; callers get a *errkind.Error instead (spec.md
// §4.3: "On failure, the handle remains closed").
func Open(path string) (*Table, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, errkind.Wrap(errkind.NullObject, "opening table file", err)
	}

	ok := false

	defer func() {
		if !ok {
			_ = f.Close()
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return nil, errkind.Wrap(errkind.NullObject, "statting table file", err)
	}

	size := info.Size()
	if size < HeaderSize {
		return nil, errkind.New(errkind.NullObject, "table file smaller than header")
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, errkind.Wrap(errkind.NullObject, "mapping table file", err)
	}

	capacity := headerCapacity(data)

	var recordSize uint64
	if capacity > 0 {
		recordSize = (uint64(size) - HeaderSize) / capacity
	}

	identity, err := identityOf(f)
	if err != nil {
		_ = unix.Munmap(data)
		return nil, errkind.Wrap(errkind.NullObject, "identifying table file", err)
	}

	entry, err := acquireRegistryEntry(identity, sidecarLockPath(path))
	if err != nil {
		_ = unix.Munmap(data)
		return nil, err
	}

	ok = true

	return &Table{
		path:       path,
		file:       f,
		data:       data,
		capacity:   capacity,
		recordSize: recordSize,
		identity:   identity,
		entry:      entry,
	}, nil
}

// Close unmaps the region and releases the file descriptors. The table
// file itself remains on disk; the header lock (and the data) survive the
// process, per spec.md §4.3.
func (t *Table) Close() error {
	if t.closed {
		return nil
	}

	t.closed = true

	releaseRegistryEntry(t.identity)

	err := unix.Munmap(t.data)
	if closeErr := t.file.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		return errkind.Wrap(errkind.GenericFailure, "closing table", err)
	}

	return nil
}

// Capacity returns the cached record capacity without locking (spec.md
// §4.4 "Metadata").
func (t *Table) Capacity() uint64 {
	return t.capacity
}

// Name returns the object name stored in the header.
func (t *Table) Name() string {
	return headerName(t.data)
}

// RecordSize returns the cached per-record byte size without locking.
func (t *Table) RecordSize() uint64 {
	return t.recordSize
}

func (t *Table) checkOpen() error {
	if t.closed {
		return errkind.New(errkind.NullObject, "table is closed")
	}

	return nil
}

func (t *Table) slot(index uint64) []byte {
	start := HeaderSize + index*t.recordSize
	return t.data[start : start+t.recordSize]
}

func isEmptyRecord(rec []byte) bool {
	for _, b := range rec {
		if b != 0 {
			return false
		}
	}

	return true
}
