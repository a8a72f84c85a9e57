package qcdb_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qcdb-go/qcdb/pkg/errkind"
	"github.com/qcdb-go/qcdb/pkg/fs"
	"github.com/qcdb-go/qcdb/pkg/qcdb"
	"github.com/qcdb-go/qcdb/pkg/schema"
)

func mustLayout(t *testing.T, src string, capacity int) *schema.Layout {
	t.Helper()

	layout, err := schema.Build(0, "PERSON", capacity, []schema.Field{
		{Number: 0, Name: "AGE", Type: schema.TypeInt32, ElementCount: 1},
	}, false)
	require.NoError(t, err)

	return layout
}

func createTestTable(t *testing.T, capacity int) *qcdb.Table {
	t.Helper()

	dir := t.TempDir()
	layout := mustLayout(t, "", capacity)

	path, err := qcdb.CreateTable(fs.NewReal(), dir, layout)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "PERSON.qcdb"), path)

	tbl, err := qcdb.Open(path)
	require.NoError(t, err)

	t.Cleanup(func() { _ = tbl.Close() })

	return tbl
}

func ageRecord(age int32) []byte {
	rec := make([]byte, 4)
	rec[0] = byte(age)
	rec[1] = byte(age >> 8)
	rec[2] = byte(age >> 16)
	rec[3] = byte(age >> 24)

	return rec
}

func recordAge(rec []byte) int32 {
	return int32(rec[0]) | int32(rec[1])<<8 | int32(rec[2])<<16 | int32(rec[3])<<24
}

func TestCreateTable_FileSizeMatchesFormula(t *testing.T) {
	dir := t.TempDir()
	layout := mustLayout(t, "", 3)

	path, err := qcdb.CreateTable(fs.NewReal(), dir, layout)
	require.NoError(t, err)

	info, err := fs.NewReal().Stat(path)
	require.NoError(t, err)
	require.EqualValues(t, qcdb.HeaderSize+3*layout.RecordSize, info.Size())
}

func TestAppend_ThenRead_RoundTrip(t *testing.T) {
	tbl := createTestTable(t, 4)

	idx, err := tbl.Append(ageRecord(5))
	require.NoError(t, err)
	require.EqualValues(t, 0, idx)

	buf := make([]byte, 4)
	require.NoError(t, tbl.Read(0, buf))
	require.EqualValues(t, 5, recordAge(buf))

	lw, err := tbl.LastWritten()
	require.NoError(t, err)
	require.EqualValues(t, 0, lw)
}

func TestAppend_Delete_FindAll(t *testing.T) {
	tbl := createTestTable(t, 4)

	idx0, err := tbl.Append(ageRecord(5))
	require.NoError(t, err)
	require.EqualValues(t, 0, idx0)

	idx1, err := tbl.Append(ageRecord(6))
	require.NoError(t, err)
	require.EqualValues(t, 1, idx1)

	require.NoError(t, tbl.Delete(1))

	results, err := tbl.FindAll(func(rec []byte) bool { return recordAge(rec) > 0 })
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.EqualValues(t, 5, recordAge(results[0]))
}

func TestCapacityExhaustion(t *testing.T) {
	tbl := createTestTable(t, 2)

	idxA, err := tbl.Append(ageRecord(1))
	require.NoError(t, err)
	require.EqualValues(t, 0, idxA)

	idxB, err := tbl.Append(ageRecord(2))
	require.NoError(t, err)
	require.EqualValues(t, 1, idxB)

	_, err = tbl.Append(ageRecord(3))
	require.Error(t, err)
	require.Equal(t, errkind.EndOfData, errkind.KindOf(err))

	bufA := make([]byte, 4)
	require.NoError(t, tbl.Read(0, bufA))
	require.EqualValues(t, 1, recordAge(bufA))

	bufB := make([]byte, 4)
	require.NoError(t, tbl.Read(1, bufB))
	require.EqualValues(t, 2, recordAge(bufB))
}

func TestClear_ResetsEverything(t *testing.T) {
	tbl := createTestTable(t, 4)

	_, err := tbl.Append(ageRecord(5))
	require.NoError(t, err)
	_, err = tbl.Append(ageRecord(6))
	require.NoError(t, err)

	require.NoError(t, tbl.Clear())

	lw, err := tbl.LastWritten()
	require.NoError(t, err)
	require.EqualValues(t, 0, lw)

	buf := make([]byte, 4)
	for i := uint64(0); i < tbl.Capacity(); i++ {
		require.NoError(t, tbl.Read(i, buf))
		require.True(t, isAllZero(buf))
	}
}

func TestFindFirst_ReturnsEarliestMatch(t *testing.T) {
	tbl := createTestTable(t, 4)

	_, err := tbl.Append(ageRecord(1))
	require.NoError(t, err)
	_, err = tbl.Append(ageRecord(7))
	require.NoError(t, err)
	_, err = tbl.Append(ageRecord(9))
	require.NoError(t, err)

	idx, err := tbl.FindFirst(func(rec []byte) bool { return recordAge(rec) > 1 })
	require.NoError(t, err)
	require.EqualValues(t, 1, idx)
}

func TestFindFirst_NotFound(t *testing.T) {
	tbl := createTestTable(t, 4)

	_, err := tbl.FindFirst(func(rec []byte) bool { return true })
	require.Error(t, err)
	require.Equal(t, errkind.NotFound, errkind.KindOf(err))
}

func TestReadMany_OutOfRangeFailsWhole(t *testing.T) {
	tbl := createTestTable(t, 2)

	_, err := tbl.Append(ageRecord(1))
	require.NoError(t, err)

	bufs := []qcdb.IndexedRecord{
		{Index: 0, Record: make([]byte, 4)},
		{Index: 99, Record: make([]byte, 4)},
	}

	err = tbl.ReadMany(bufs)
	require.Error(t, err)
	require.Equal(t, errkind.NotFound, errkind.KindOf(err))
}

func TestWriteAtMany_UpdatesWatermarks(t *testing.T) {
	tbl := createTestTable(t, 4)

	err := tbl.WriteAtMany([]qcdb.IndexedRecord{
		{Index: 2, Record: ageRecord(20)},
		{Index: 0, Record: ageRecord(10)},
	})
	require.NoError(t, err)

	lw, err := tbl.LastWritten()
	require.NoError(t, err)
	require.EqualValues(t, 2, lw)

	buf := make([]byte, 4)
	require.NoError(t, tbl.Read(0, buf))
	require.EqualValues(t, 10, recordAge(buf))
}

func TestAppendMany_PartialWriteReportsWrittenCount(t *testing.T) {
	tbl := createTestTable(t, 2)

	n, err := tbl.AppendMany([][]byte{ageRecord(1), ageRecord(2), ageRecord(3)})
	require.Error(t, err)
	require.Equal(t, errkind.EndOfData, errkind.KindOf(err))
	require.Equal(t, 2, n)
}

func isAllZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}

	return true
}
