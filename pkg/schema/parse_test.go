package schema_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/qcdb-go/qcdb/pkg/schema"
)

func TestParse_PersonSchema_NoPadding(t *testing.T) {
	src := "# comment\n\n0 PERSON 3\n0 AGE i 1\n1 NAME c 16\n"

	layout, err := schema.Parse(strings.NewReader(src), schema.Options{Strict: true})
	require.NoError(t, err)
	require.Equal(t, "PERSON", layout.Name)
	require.Equal(t, 3, layout.Capacity)
	require.Equal(t, 20, layout.RecordSize)
	require.Len(t, layout.Fields, 2)
	require.Equal(t, 0, layout.Fields[1].Padding)
}

func TestParse_PersonSchema_FieldLayout(t *testing.T) {
	src := "0 PERSON 3\n0 AGE i 1\n1 NAME c 16\n"

	layout, err := schema.Parse(strings.NewReader(src), schema.Options{Strict: true})
	require.NoError(t, err)

	want := []schema.Field{
		{Number: 0, Name: "AGE", Type: schema.TypeInt32, ElementCount: 1, ElementSize: 4, Alignment: 4, Footprint: 4, Padding: 0, Offset: 0},
		{Number: 1, Name: "NAME", Type: schema.TypeChar, ElementCount: 16, ElementSize: 1, Alignment: 1, Footprint: 16, Padding: 0, Offset: 4},
	}

	if diff := cmp.Diff(want, layout.Fields); diff != "" {
		t.Fatalf("field layout mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_MixSchema_NonStrictPadding(t *testing.T) {
	src := "0 MIX 2\n0 FLAG ? 1\n1 ID l 1\n"

	layout, err := schema.Parse(strings.NewReader(src), schema.Options{Strict: false})
	require.NoError(t, err)
	require.Equal(t, 16, layout.RecordSize)
	require.Equal(t, 7, layout.Fields[1].Padding)
}

func TestParse_MixSchema_StrictRejectsPadding(t *testing.T) {
	src := "0 MIX 2\n0 FLAG ? 1\n1 ID l 1\n"

	_, err := schema.Parse(strings.NewReader(src), schema.Options{Strict: true})
	require.Error(t, err)

	var parseErr *schema.ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, 3, parseErr.Line)
}

func TestParse_UnknownTypeTag(t *testing.T) {
	src := "0 BAD 1\n0 FIELD z 1\n"

	_, err := schema.Parse(strings.NewReader(src), schema.Options{})
	require.Error(t, err)
}

func TestParse_FieldNumbersNeedNotBeSequential(t *testing.T) {
	src := "0 OBJ 1\n0 FIRST i 1\n5 SECOND i 1\n"

	layout, err := schema.Parse(strings.NewReader(src), schema.Options{})
	require.NoError(t, err)
	require.Len(t, layout.Fields, 2)
	require.Equal(t, 0, layout.Fields[0].Number)
	require.Equal(t, 5, layout.Fields[1].Number)
}

func TestParse_EmptySchema(t *testing.T) {
	_, err := schema.Parse(strings.NewReader("# only a comment\n"), schema.Options{})
	require.Error(t, err)
}

func TestParse_NegativeElementCount(t *testing.T) {
	src := "0 OBJ 1\n0 FIELD i -1\n"

	_, err := schema.Parse(strings.NewReader(src), schema.Options{})
	require.Error(t, err)
}
