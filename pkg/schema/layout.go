// Package schema implements the qcdb schema compiler: parsing a textual
// record definition (C2) into an in-memory layout model (C1) that the
// table initializer uses to size and lay out a table file.
package schema

import "fmt"

// Type is one of the fixed, host-independent primitive type tags a field
// may declare. Sizes and alignments are specified, not measured, so a
// table file is portable across same-endian hosts.
type Type byte

const (
	TypeInt32   Type = 'i'
	TypeUint32  Type = 'I'
	TypeInt64   Type = 'l'
	TypeUint64  Type = 'L'
	TypeBool    Type = '?'
	TypeChar    Type = 'c'
	TypeByte    Type = 'b'
	TypePadding Type = 'x'
)

// typeInfo holds the fixed size and alignment for one element of a type.
type typeInfo struct {
	size      int
	alignment int
}

var typeTable = map[Type]typeInfo{
	TypeInt32:   {size: 4, alignment: 4},
	TypeUint32:  {size: 4, alignment: 4},
	TypeInt64:   {size: 8, alignment: 8},
	TypeUint64:  {size: 8, alignment: 8},
	TypeBool:    {size: 1, alignment: 1},
	TypeChar:    {size: 1, alignment: 1},
	TypeByte:    {size: 1, alignment: 1},
	TypePadding: {size: 1, alignment: 1},
}

// BuildError names which field (by index into the input slice) Build
// rejected, so a caller with access to the original source lines can
// report a precise location.
type BuildError struct {
	FieldIndex int
	Msg        string
}

func (e *BuildError) Error() string {
	return e.Msg
}

// Valid reports whether t is one of the eight recognized type tags.
func (t Type) Valid() bool {
	_, ok := typeTable[t]
	return ok
}

func (t Type) String() string {
	return string(rune(t))
}

// Field describes one ordered field of a record layout.
type Field struct {
	Number       int
	Name         string
	Type         Type
	ElementCount int

	// Computed.
	ElementSize int // size in bytes of one element, from the type table
	Alignment   int // alignment in bytes, from the type table
	Footprint   int // ElementSize * ElementCount
	Padding     int // leading padding bytes inserted before this field
	Offset      int // byte offset of this field's first data byte, after its padding
}

// Layout is a named, ordered record layout: the fields plus the table's
// record capacity and the computed record size.
type Layout struct {
	Number     int
	Name       string
	Capacity   int
	Fields     []Field
	RecordSize int
}

// Build computes per-field padding/offset and the total record size for
// an ordered list of fields, honoring strict mode (spec §3, §6.2): in
// strict mode any non-zero computed padding is a *BuildError naming the
// offending field.
//
// Leading padding for field i at accumulated offset o with alignment a is
// (a - o mod a) mod a.
func Build(number int, name string, capacity int, fields []Field, strict bool) (*Layout, error) {
	offset := 0

	built := make([]Field, len(fields))

	for i, f := range fields {
		info, ok := typeTable[f.Type]
		if !ok {
			return nil, &BuildError{FieldIndex: i, Msg: fmt.Sprintf("field %d (%s): unknown type tag %q", f.Number, f.Name, byte(f.Type))}
		}

		if f.ElementCount < 1 {
			return nil, &BuildError{FieldIndex: i, Msg: fmt.Sprintf("field %d (%s): element count must be >= 1, got %d", f.Number, f.Name, f.ElementCount)}
		}

		padding := (info.alignment - offset%info.alignment) % info.alignment
		if strict && padding != 0 {
			return nil, &BuildError{FieldIndex: i, Msg: fmt.Sprintf("field %d (%s): strict mode: leading padding of %d bytes required", f.Number, f.Name, padding)}
		}

		f.ElementSize = info.size
		f.Alignment = info.alignment
		f.Footprint = info.size * f.ElementCount
		f.Padding = padding
		f.Offset = offset + padding

		built[i] = f
		offset = f.Offset + f.Footprint
	}

	return &Layout{
		Number:     number,
		Name:       name,
		Capacity:   capacity,
		Fields:     built,
		RecordSize: offset,
	}, nil
}
