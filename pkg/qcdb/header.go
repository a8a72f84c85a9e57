package qcdb

import "encoding/binary"

// Header layout (spec §6.3), exactly 56 bytes, no trailing padding:
//
//	offset 0  (8 bytes)  : embedded inter-process lock (opaque; see lock.go)
//	offset 8  (24 bytes) : object name, zero-padded
//	offset 32 (8 bytes)  : record capacity, uint64 LE
//	offset 40 (8 bytes)  : last-written record index, uint64 LE
//	offset 48 (8 bytes)  : high-water mark, uint64 LE
const (
	offLock        = 0
	lockFieldSize  = 8
	offName        = offLock + lockFieldSize
	nameFieldSize  = 24
	offCapacity    = offName + nameFieldSize
	offLastWritten = offCapacity + 8
	offHighWater   = offLastWritten + 8
	HeaderSize     = offHighWater + 8
)

// encodeHeader writes a fresh header into buf (which must be at least
// HeaderSize bytes) for a table named name with the given capacity.
// last-written and high-water start at zero. The embedded lock field is
// left zeroed: real cross-process exclusion is provided out-of-band by a
// sidecar lock file (see lock.go and SPEC_FULL.md §4.2).
func encodeHeader(buf []byte, name string, capacity uint64) {
	for i := range buf[:HeaderSize] {
		buf[i] = 0
	}

	copy(buf[offName:offName+nameFieldSize], name)

	binary.LittleEndian.PutUint64(buf[offCapacity:], capacity)
	binary.LittleEndian.PutUint64(buf[offLastWritten:], 0)
	binary.LittleEndian.PutUint64(buf[offHighWater:], 0)
}

func headerName(buf []byte) string {
	raw := buf[offName : offName+nameFieldSize]

	end := len(raw)
	for end > 0 && raw[end-1] == 0 {
		end--
	}

	return string(raw[:end])
}

func headerCapacity(buf []byte) uint64 {
	return binary.LittleEndian.Uint64(buf[offCapacity:])
}

func headerLastWritten(buf []byte) uint64 {
	return binary.LittleEndian.Uint64(buf[offLastWritten:])
}

func setHeaderLastWritten(buf []byte, v uint64) {
	binary.LittleEndian.PutUint64(buf[offLastWritten:], v)
}

func headerHighWater(buf []byte) uint64 {
	return binary.LittleEndian.Uint64(buf[offHighWater:])
}

func setHeaderHighWater(buf []byte, v uint64) {
	binary.LittleEndian.PutUint64(buf[offHighWater:], v)
}
