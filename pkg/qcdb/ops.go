package qcdb

import (
	"sort"

	"github.com/qcdb-go/qcdb/pkg/errkind"
)

// IndexedRecord pairs a record index with its bytes, used by the *Many
// operations (spec.md §4.4).
type IndexedRecord struct {
	Index  uint64
	Record []byte
}

func (t *Table) boundsCheck(index uint64) error {
	if index >= t.capacity {
		return errkind.New(errkind.NotFound, "index out of range")
	}

	return nil
}

// Read copies record_size bytes from slot index into dst, which must be
// at least t.RecordSize() bytes.
func (t *Table) Read(index uint64, dst []byte) error {
	if err := t.checkOpen(); err != nil {
		return err
	}

	if err := t.boundsCheck(index); err != nil {
		return err
	}

	if err := t.entry.lockShared(); err != nil {
		return err
	}
	defer t.entry.unlockShared()

	copy(dst, t.slot(index))

	return nil
}

// ReadMany copies each indexed slot into its paired buffer under one read
// lock. The pairs are processed in ascending index order for
// cache-friendly access; if any index is out of range the whole call
// fails with NotFound and no buffer is touched.
func (t *Table) ReadMany(pairs []IndexedRecord) error {
	if err := t.checkOpen(); err != nil {
		return err
	}

	for _, p := range pairs {
		if err := t.boundsCheck(p.Index); err != nil {
			return err
		}
	}

	ordered := append([]IndexedRecord(nil), pairs...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	if err := t.entry.lockShared(); err != nil {
		return err
	}
	defer t.entry.unlockShared()

	for _, p := range ordered {
		copy(p.Record, t.slot(p.Index))
	}

	return nil
}

// WriteAt writes record into slot index, updates last_written to index
// and high_water to max(high_water, index+1).
func (t *Table) WriteAt(index uint64, record []byte) error {
	if err := t.checkOpen(); err != nil {
		return err
	}

	if err := t.boundsCheck(index); err != nil {
		return err
	}

	if err := t.entry.lockExclusive(); err != nil {
		return err
	}
	defer t.entry.unlockExclusive()

	copy(t.slot(index), record)
	t.bumpWaterMarks(index)

	return nil
}

// bumpWaterMarks must be called while holding the exclusive lock.
func (t *Table) bumpWaterMarks(index uint64) {
	setHeaderLastWritten(t.data, index)

	if index+1 > headerHighWater(t.data) {
		setHeaderHighWater(t.data, index+1)
	}
}

// Append writes record into the first empty slot found starting at
// last_written, scanning forward. Returns the index written, or
// errkind.EndOfData if the table has no room (spec.md calls this
// "CapacityExhausted"; it is surfaced as the EndOfData kind, the closed
// set's analog for "scan exhausted without success").
func (t *Table) Append(record []byte) (uint64, error) {
	if err := t.checkOpen(); err != nil {
		return 0, err
	}

	if err := t.entry.lockExclusive(); err != nil {
		return 0, err
	}
	defer t.entry.unlockExclusive()

	start := headerLastWritten(t.data)

	for j := start; j < t.capacity; j++ {
		if isEmptyRecord(t.slot(j)) {
			copy(t.slot(j), record)
			t.bumpWaterMarks(j)

			return j, nil
		}
	}

	return 0, errkind.New(errkind.EndOfData, "table capacity exhausted")
}

// WriteAtMany writes every pair under one exclusive lock, sorted by index
// ascending, then updates last_written/high_water to reflect the maximum
// index written. Any out-of-range index fails the whole call and leaves
// the table unchanged.
func (t *Table) WriteAtMany(pairs []IndexedRecord) error {
	if err := t.checkOpen(); err != nil {
		return err
	}

	for _, p := range pairs {
		if err := t.boundsCheck(p.Index); err != nil {
			return err
		}
	}

	if len(pairs) == 0 {
		return nil
	}

	ordered := append([]IndexedRecord(nil), pairs...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	if err := t.entry.lockExclusive(); err != nil {
		return err
	}
	defer t.entry.unlockExclusive()

	for _, p := range ordered {
		copy(t.slot(p.Index), p.Record)
	}

	t.bumpWaterMarks(ordered[len(ordered)-1].Index)

	return nil
}

// AppendMany writes records into successive empty slots starting at
// last_written, stopping when records are exhausted or capacity is
// reached. It returns the number of records written; if fewer than
// len(records) were written, the returned error carries the EndOfData
// kind alongside the count already written.
func (t *Table) AppendMany(records [][]byte) (int, error) {
	if err := t.checkOpen(); err != nil {
		return 0, err
	}

	if err := t.entry.lockExclusive(); err != nil {
		return 0, err
	}
	defer t.entry.unlockExclusive()

	written := 0
	cursor := headerLastWritten(t.data)

	for _, rec := range records {
		found := false

		for j := cursor; j < t.capacity; j++ {
			if isEmptyRecord(t.slot(j)) {
				copy(t.slot(j), rec)
				t.bumpWaterMarks(j)
				cursor = j
				found = true
				written++

				break
			}
		}

		if !found {
			return written, errkind.New(errkind.EndOfData, "table capacity exhausted")
		}
	}

	return written, nil
}

// Delete zeroes slot index. If index is the last populated slot
// (high_water-1), high_water is walked back over any now-empty trailing
// slots.
func (t *Table) Delete(index uint64) error {
	if err := t.checkOpen(); err != nil {
		return err
	}

	if err := t.boundsCheck(index); err != nil {
		return err
	}

	if err := t.entry.lockExclusive(); err != nil {
		return err
	}
	defer t.entry.unlockExclusive()

	rec := t.slot(index)
	for i := range rec {
		rec[i] = 0
	}

	hw := headerHighWater(t.data)
	if hw > 0 && index == hw-1 {
		for hw > 0 && isEmptyRecord(t.slot(hw-1)) {
			hw--
		}

		setHeaderHighWater(t.data, hw)
	}

	return nil
}

// Clear zeroes every record slot and resets last_written and high_water
// to zero. The header's name/capacity fields are untouched.
func (t *Table) Clear() error {
	if err := t.checkOpen(); err != nil {
		return err
	}

	if err := t.entry.lockExclusive(); err != nil {
		return err
	}
	defer t.entry.unlockExclusive()

	records := t.data[HeaderSize:]
	for i := range records {
		records[i] = 0
	}

	setHeaderLastWritten(t.data, 0)
	setHeaderHighWater(t.data, 0)

	return nil
}

// Predicate is a pure function receiving a read-only view of one record.
type Predicate func(record []byte) bool

// FindFirst scans [0, high_water) in order and returns the first index
// whose record satisfies predicate, or errkind.NotFound.
func (t *Table) FindFirst(predicate Predicate) (uint64, error) {
	if err := t.checkOpen(); err != nil {
		return 0, err
	}

	if err := t.entry.lockShared(); err != nil {
		return 0, err
	}
	defer t.entry.unlockShared()

	hw := headerHighWater(t.data)

	for i := uint64(0); i < hw; i++ {
		if predicate(t.slot(i)) {
			return i, nil
		}
	}

	return 0, errkind.New(errkind.NotFound, "no record satisfies predicate")
}

// LastWritten read-locks and returns header.last_written.
func (t *Table) LastWritten() (uint64, error) {
	if err := t.checkOpen(); err != nil {
		return 0, err
	}

	if err := t.entry.lockShared(); err != nil {
		return 0, err
	}
	defer t.entry.unlockShared()

	return headerLastWritten(t.data), nil
}
