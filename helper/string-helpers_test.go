package helper

import (
	"reflect"
	"testing"

	"github.com/caronae/caronae-dw/logger"
)

func TestCsvToStringSliceTrimSpaces(t *testing.T) {
	got := CsvToStringSliceTrimSpaces(" 1, 3 ,,5 ")
	expected := []string{"1", "3", "5"}
	if !reflect.DeepEqual(got, expected) {
		t.Fatalf("expected %v; got %v", expected, got)
	}
	if len(CsvToStringSliceTrimSpaces("")) != 0 {
		t.Fatal("expected no tokens from an empty string")
	}
}

func TestStringSliceToOrderedMapPreservesOrder(t *testing.T) {
	log := logger.NewLogger("caronae-dw", "info", true)
	o := StringSliceToOrderedMap([]string{"ride_id", " date_sk", "", "hour_sk"})
	if o.Len() != 3 {
		t.Fatalf("expected 3 entries; got %v", o.Len())
	}
	l := make([]string, o.Len())
	idx := 0
	OrderedMapValuesToStringSlice(log, o, &l, &idx)
	expected := []string{"ride_id", "date_sk", "hour_sk"}
	if !reflect.DeepEqual(l, expected) {
		t.Fatalf("expected %v; got %v", expected, l)
	}
	if idx != 3 {
		t.Fatalf("expected idx 3; got %v", idx)
	}
}

func TestGenerateSliceOfColsEqualCols(t *testing.T) {
	got := GenerateSliceOfColsEqualCols([]string{"a", "b"}, "", "excluded")
	expected := []string{"a = excluded.a", "b = excluded.b"}
	if !reflect.DeepEqual(got, expected) {
		t.Fatalf("expected %v; got %v", expected, got)
	}
	got = GenerateSliceOfColsEqualCols([]string{"a"}, "t", "s")
	if got[0] != "t.a = s.a" {
		t.Fatalf("unexpected qualified column pair %q", got[0])
	}
}

func TestIsBlank(t *testing.T) {
	for _, s := range []string{"", " ", "\t\n"} {
		if !IsBlank(s) {
			t.Fatalf("expected %q to be blank", s)
		}
	}
	if IsBlank(" x ") {
		t.Fatal("expected non-blank")
	}
}
