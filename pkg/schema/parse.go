package schema

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ParseError names the offending line and cause of a schema parse failure.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("schema parse error at line %d: %s", e.Line, e.Msg)
}

// Options controls parsing behavior.
type Options struct {
	// Strict rejects any layout whose field sequence requires non-zero
	// computed padding (spec §6.2).
	Strict bool
}

// ParseFile opens path and parses it as a .skm schema file, closing the
// file on every exit path.
func ParseFile(path string, opts Options) (*Layout, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening schema %s: %w", path, err)
	}
	defer f.Close()

	return Parse(f, opts)
}

// Parse reads a .skm schema from r: a line-oriented grammar where lines
// starting with '#' (after leading spaces) are comments, blank lines are
// ignored, the first significant line is the object line
// "<object_number> <object_name> <record_capacity>", and every subsequent
// significant line is a field line
// "<field_number> <field_name> <type_tag> <element_count>".
func Parse(r io.Reader, opts Options) (*Layout, error) {
	scanner := bufio.NewScanner(r)

	lineNo := 0

	var objNumber, capacity int

	var objName string

	haveObject := false

	var fields []Field

	var fieldLines []int

	for scanner.Scan() {
		lineNo++

		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		parts := strings.Fields(trimmed)

		if !haveObject {
			if len(parts) != 3 {
				return nil, &ParseError{Line: lineNo, Msg: fmt.Sprintf("object line must have 3 fields, got %d", len(parts))}
			}

			num, err := strconv.Atoi(parts[0])
			if err != nil {
				return nil, &ParseError{Line: lineNo, Msg: fmt.Sprintf("invalid object number %q", parts[0])}
			}

			cap, err := strconv.Atoi(parts[2])
			if err != nil || cap < 0 {
				return nil, &ParseError{Line: lineNo, Msg: fmt.Sprintf("invalid record capacity %q", parts[2])}
			}

			objNumber = num
			objName = parts[1]
			capacity = cap
			haveObject = true

			continue
		}

		if len(parts) != 4 {
			return nil, &ParseError{Line: lineNo, Msg: fmt.Sprintf("field line must have 4 fields, got %d", len(parts))}
		}

		num, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, &ParseError{Line: lineNo, Msg: fmt.Sprintf("invalid field number %q", parts[0])}
		}

		if len(parts[2]) != 1 {
			return nil, &ParseError{Line: lineNo, Msg: fmt.Sprintf("invalid type tag %q", parts[2])}
		}

		tag := Type(parts[2][0])
		if !tag.Valid() {
			return nil, &ParseError{Line: lineNo, Msg: fmt.Sprintf("unknown type tag %q", parts[2])}
		}

		count, err := strconv.Atoi(parts[3])
		if err != nil || count < 1 {
			return nil, &ParseError{Line: lineNo, Msg: fmt.Sprintf("invalid element count %q", parts[3])}
		}

		fields = append(fields, Field{
			Number:       num,
			Name:         parts[1],
			Type:         tag,
			ElementCount: count,
		})
		fieldLines = append(fieldLines, lineNo)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}

	if !haveObject {
		return nil, &ParseError{Line: lineNo, Msg: "empty schema: no object line found"}
	}

	layout, err := Build(objNumber, objName, capacity, fields, opts.Strict)
	if err != nil {
		line := lineNo

		var buildErr *BuildError
		if errors.As(err, &buildErr) && buildErr.FieldIndex < len(fieldLines) {
			line = fieldLines[buildErr.FieldIndex]
		}

		return nil, &ParseError{Line: line, Msg: err.Error()}
	}

	return layout, nil
}
