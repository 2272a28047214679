package config

import (
	"io/ioutil"
	"os"
	"path"
	"reflect"
	"testing"
	"time"

	"github.com/caronae/caronae-dw/rdbms/shared"
	"github.com/pkg/errors"
)

func newTempConfigFile(t *testing.T) *File {
	dir, err := ioutil.TempDir("", "cdw-config")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return NewConfigFileWithDir(path.Join(dir, "nested"), MainFileFullName)
}

func TestFileSetGetRoundTrip(t *testing.T) {
	f := newTempConfigFile(t)
	if err := f.Set("name", "value"); err != nil {
		t.Fatal(err)
	}
	// Read back through a fresh File to prove the data was persisted.
	g := NewConfigFileWithDir(f.Dirname, f.FileName)
	var got string
	if err := g.Get("name", &got); err != nil {
		t.Fatal(err)
	}
	if got != "value" {
		t.Fatalf("expected value, got %q", got)
	}
	keys, err := g.GetAllKeys()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(keys, []string{"name"}) {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestFileGetMissingKey(t *testing.T) {
	f := newTempConfigFile(t)
	var got string
	err := f.Get("nope", &got)
	if !errors.As(err, &KeyNotFoundError{}) {
		t.Fatalf("expected KeyNotFoundError, got %v", err)
	}
	if err := f.Get("nope", got); err == nil {
		t.Fatal("expected an error for a non-pointer")
	}
}

func TestFileDelete(t *testing.T) {
	f := newTempConfigFile(t)
	if err := f.Set("a", "1"); err != nil {
		t.Fatal(err)
	}
	if err := f.Delete("a"); err != nil {
		t.Fatal(err)
	}
	if err := f.Delete("a"); err == nil {
		t.Fatal("expected an error deleting a missing key")
	}
}

func TestConnectionsAddAndLoad(t *testing.T) {
	f := newTempConfigFile(t)
	if err := f.AddConnection("oltp", "postgres", "postgres://u:p@h/db"); err != nil {
		t.Fatal(err)
	}
	g := NewConfigFileWithDir(f.Dirname, f.FileName)
	d, err := g.LoadConnection("oltp")
	if err != nil {
		t.Fatal(err)
	}
	if d.Type != "postgres" || d.LogicalName != "oltp" || d.Data["dsn"] != "postgres://u:p@h/db" {
		t.Fatalf("unexpected connection %+v", d)
	}
	c := shared.DBConnections{"source": {LogicalName: "oltp"}}
	if err := c.LoadConnection(g, "source"); err != nil {
		t.Fatal(err)
	}
	if _, err := g.LoadConnection("missing"); err == nil {
		t.Fatal("expected an error for a missing connection")
	}
}

func TestLoadSettingsFromYaml(t *testing.T) {
	f := newTempConfigFile(t)
	if err := makeDir(f.Dirname); err != nil {
		t.Fatal(err)
	}
	yml := `
etl:
  source:
    type: postgres
    logicalName: oltp
    data:
      dsn: postgres://u:p@src/caronae
  warehouse:
    type: postgres
    logicalName: dw
    data:
      dsn: postgres://u:p@dw/caronae_dw
  watermark:
    type: warehouse
  loader:
    batchSize: 100
  flagsMissPolicy: unknown
`
	if err := ioutil.WriteFile(f.FullPath, []byte(yml), 0600); err != nil {
		t.Fatal(err)
	}
	s, err := LoadSettings(f)
	if err != nil {
		t.Fatal(err)
	}
	if s.Source.Data["dsn"] != "postgres://u:p@src/caronae" || s.Warehouse.LogicalName != "dw" {
		t.Fatalf("connections not decoded: %+v", s)
	}
	if s.Watermark.Type != "warehouse" || s.Loader.BatchSize != 100 || s.FlagsMissPolicy != "unknown" {
		t.Fatalf("settings not decoded: %+v", s)
	}
	if s.TimeDimension.Start != "2016-04-01" || s.Watermark.Path != "last_etl_run.txt" {
		t.Fatalf("defaults not applied: %+v", s)
	}
	if err := s.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestSettingsValidate(t *testing.T) {
	s := NewSettings()
	if err := s.Validate(); err == nil {
		t.Fatal("expected an error for missing connections")
	}
	s.Source.Type = "postgres"
	s.Warehouse.Type = "postgres"
	s.Source.Data = map[string]string{"dsn": "postgres://h/a"}
	s.Warehouse.Data = map[string]string{"dsn": "postgres://h/b"}
	if err := s.Validate(); err != nil {
		t.Fatal(err)
	}
	s.FlagsMissPolicy = "ignore"
	s.Watermark.Type = "s3"
	s.TimeDimension.End = "2015-01-01"
	err := s.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	expected := "invalid settings: timeDimension end 2015-01-01 is before start 2016-04-01; unsupported flagsMissPolicy \"ignore\"; watermark type s3 needs s3Bucket and s3Region"
	if err.Error() != expected {
		t.Fatalf("got %q\nwant %q", err.Error(), expected)
	}
}

func TestTimeDimensionRangeRollsForward(t *testing.T) {
	td := TimeDimensionSettings{Start: "2016-04-01"}
	start, end, err := td.RangeAt(time.Date(2026, 10, 15, 9, 0, 0, 0, time.Local))
	if err != nil {
		t.Fatal(err)
	}
	if !start.Equal(time.Date(2016, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %v", start)
	}
	if !end.Equal(time.Date(2027, 12, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected a blank end to roll forward to the end of next year, got %v", end)
	}
	td.End = "2020-06-30"
	if _, end, err = td.RangeAt(time.Date(2026, 10, 15, 9, 0, 0, 0, time.Local)); err != nil {
		t.Fatal(err)
	}
	if !end.Equal(time.Date(2020, 6, 30, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected the configured end, got %v", end)
	}
}

func TestSettingsSaveAndLoad(t *testing.T) {
	f := newTempConfigFile(t)
	s := NewSettings()
	s.Loader.BatchSize = 42
	if err := s.Save(f); err != nil {
		t.Fatal(err)
	}
	got, err := LoadSettings(NewConfigFileWithDir(f.Dirname, f.FileName))
	if err != nil {
		t.Fatal(err)
	}
	if got.Loader.BatchSize != 42 || got.Watermark.Type != "file" {
		t.Fatalf("unexpected settings %+v", got)
	}
}
