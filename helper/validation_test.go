package helper

import (
	"testing"
)

type testInner struct {
	Dsn string `errorTxt:"dsn" mandatory:"yes"`
}

type testOuter struct {
	Name     string `errorTxt:"name" mandatory:"yes"`
	Optional string `errorTxt:"optional"`
	Size     int    `errorTxt:"size" mandatory:"yes"`
	Inner    testInner
	ByName   map[string]testInner
	hidden   string `errorTxt:"hidden" mandatory:"yes"`
}

func TestValidateStructIsPopulated(t *testing.T) {
	err := ValidateStructIsPopulated(&testOuter{
		Name:   "x",
		ByName: map[string]testInner{"a": {Dsn: ""}},
	})
	if err == nil {
		t.Fatal("expected an error for unset mandatory fields")
	}
	expected := "please supply values for size, dsn, dsn"
	if err.Error() != expected {
		t.Fatalf("expected %q; got %q", expected, err)
	}
	if err := ValidateStructIsPopulated(testOuter{Name: "x", Size: 1, Inner: testInner{Dsn: "d"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
