package schema

import (
	"reflect"
	"testing"
)

// TestNormalize_AliasesCollapse checks that every historical spelling of a
// field lands on the same canonical column with identical data.
func TestNormalize_AliasesCollapse(t *testing.T) {
	t.Parallel()

	groups := map[string][]string{}
	for alias, canon := range Aliases {
		groups[canon] = append(groups[canon], alias)
	}

	for canon, aliases := range groups {
		var first *Table
		for _, alias := range aliases {
			in := &Table{
				Columns: []string{alias},
				Rows:    [][]any{{"12.5"}, {""}, {"abc"}},
			}
			got := Normalize(in)
			if !reflect.DeepEqual(got.Columns, []string{canon}) {
				t.Fatalf("Normalize(%q) columns = %v, want [%s]", alias, got.Columns, canon)
			}
			if first == nil {
				first = got
				continue
			}
			if !reflect.DeepEqual(got.Rows, first.Rows) {
				t.Fatalf("alias %q rows = %v, want %v", alias, got.Rows, first.Rows)
			}
		}
	}
}

func TestNormalize_UnknownColumnsPassThrough(t *testing.T) {
	t.Parallel()

	in := &Table{
		Columns: []string{"Province/State", "Notes", " Country_Region "},
		Rows:    [][]any{{"Hubei", "x", "China"}},
	}
	got := Normalize(in)

	want := []string{ColProvinceState, "Notes", ColCountryRegion}
	if !reflect.DeepEqual(got.Columns, want) {
		t.Fatalf("columns = %v, want %v", got.Columns, want)
	}
	if got.Rows[0][1] != "x" {
		t.Fatalf("unknown column value = %v, want x", got.Rows[0][1])
	}
	// Input must be untouched.
	if in.Columns[0] != "Province/State" {
		t.Fatalf("Normalize mutated input header: %v", in.Columns)
	}
}

func TestNormalize_NullMarkers(t *testing.T) {
	t.Parallel()

	in := &Table{
		Columns: []string{"Confirmed"},
		Rows:    [][]any{{""}, {"  "}, {"NaN"}, {"nan"}, {"NULL"}, {"#N/A"}, {nil}, {" 7 "}},
	}
	got := Normalize(in)

	for i := 0; i < 7; i++ {
		if got.Rows[i][0] != nil {
			t.Fatalf("row %d = %#v, want nil", i, got.Rows[i][0])
		}
	}
	if got.Rows[7][0] != "7" {
		t.Fatalf("row 7 = %#v, want \"7\"", got.Rows[7][0])
	}
}

func TestNormalize_ShortRowsPadWithNull(t *testing.T) {
	t.Parallel()

	in := &Table{
		Columns: []string{"Province_State", "Country_Region", "Confirmed"},
		Rows:    [][]any{{"A"}},
	}
	got := Normalize(in)
	want := []any{"A", nil, nil}
	if !reflect.DeepEqual(got.Rows[0], want) {
		t.Fatalf("row = %#v, want %#v", got.Rows[0], want)
	}
}

func TestCanonicalName_StripsBOM(t *testing.T) {
	t.Parallel()

	if got := CanonicalName("\uFEFFProvince/State"); got != ColProvinceState {
		t.Fatalf("CanonicalName with BOM = %q, want %q", got, ColProvinceState)
	}
	if got := CanonicalName("Something Else"); got != "Something Else" {
		t.Fatalf("CanonicalName unknown = %q", got)
	}
}

func TestNormalize_Nil(t *testing.T) {
	t.Parallel()

	if got := Normalize(nil); got == nil || got.Len() != 0 {
		t.Fatalf("Normalize(nil) = %#v, want empty table", got)
	}
}
