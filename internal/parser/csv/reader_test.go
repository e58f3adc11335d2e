package csv

import (
	"bytes"
	"context"
	"encoding/binary"
	"reflect"
	"strings"
	"testing"
	"unicode/utf16"
)

func TestReadTable_Basic(t *testing.T) {
	t.Parallel()

	in := "Province/State,Country/Region,Confirmed\nHubei,China,444\n,Japan,2\n"
	tbl, err := ReadTable(context.Background(), strings.NewReader(in), Options{})
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}

	if want := []string{"Province/State", "Country/Region", "Confirmed"}; !reflect.DeepEqual(tbl.Columns, want) {
		t.Fatalf("Columns = %v, want %v", tbl.Columns, want)
	}
	want := [][]any{{"Hubei", "China", "444"}, {"", "Japan", "2"}}
	if !reflect.DeepEqual(tbl.Rows, want) {
		t.Fatalf("Rows = %#v, want %#v", tbl.Rows, want)
	}
}

func TestReadTable_StripsUTF8BOM(t *testing.T) {
	t.Parallel()

	in := "\uFEFFFIPS,Admin2\n1001,Autauga\n"
	tbl, err := ReadTable(context.Background(), strings.NewReader(in), Options{})
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if tbl.Columns[0] != "FIPS" {
		t.Fatalf("first header = %q, want FIPS", tbl.Columns[0])
	}
}

func TestReadTable_DecodesUTF16(t *testing.T) {
	t.Parallel()

	text := "\uFEFFLat,Long_\n1.5,2.5\n"
	var buf bytes.Buffer
	for _, u := range utf16.Encode([]rune(text)) {
		_ = binary.Write(&buf, binary.LittleEndian, u)
	}

	tbl, err := ReadTable(context.Background(), &buf, Options{})
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if !reflect.DeepEqual(tbl.Columns, []string{"Lat", "Long_"}) {
		t.Fatalf("Columns = %q", tbl.Columns)
	}
	if !reflect.DeepEqual(tbl.Rows, [][]any{{"1.5", "2.5"}}) {
		t.Fatalf("Rows = %#v", tbl.Rows)
	}
}

func TestReadTable_RaggedRows(t *testing.T) {
	t.Parallel()

	in := "a,b,c\n1\n1,2,3,4\n"
	tbl, err := ReadTable(context.Background(), strings.NewReader(in), Options{})
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if len(tbl.Rows) != 2 || len(tbl.Rows[0]) != 1 || len(tbl.Rows[1]) != 4 {
		t.Fatalf("Rows = %#v", tbl.Rows)
	}
}

func TestReadTable_RowErrors(t *testing.T) {
	t.Parallel()

	in := "a,b\n1,2\n\"x\"y,3\n4,5\n"

	if _, err := ReadTable(context.Background(), strings.NewReader(in), Options{}); err == nil {
		t.Fatalf("expected strict read to fail on bad quote")
	}

	var lines []int
	tbl, err := ReadTable(context.Background(), strings.NewReader(in), Options{
		OnRowError: func(line int, _ error) { lines = append(lines, line) },
	})
	if err != nil {
		t.Fatalf("ReadTable with OnRowError: %v", err)
	}
	if len(lines) != 1 || lines[0] != 3 {
		t.Fatalf("row errors at %v, want [3]", lines)
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("kept %d rows, want 2", len(tbl.Rows))
	}
}

func TestReadTable_Empty(t *testing.T) {
	t.Parallel()

	if _, err := ReadTable(context.Background(), strings.NewReader(""), Options{}); err == nil {
		t.Fatalf("expected error for empty input")
	}
}

func TestReadTable_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ReadTable(ctx, strings.NewReader("a\n1\n"), Options{}); err == nil {
		t.Fatalf("expected context error")
	}
}
