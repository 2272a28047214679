package s3

import "testing"

func TestParseDSN(t *testing.T) {
	b, err := ParseDSN("s3://caronae-etl/watermarks/", "sa-east-1")
	if err != nil {
		t.Fatal(err)
	}
	if b.Name != "caronae-etl" || b.Prefix != "watermarks" || b.Region != "sa-east-1" {
		t.Fatalf("unexpected bucket %+v", b)
	}
	b, err = ParseDSN("caronae-etl", "sa-east-1")
	if err != nil {
		t.Fatal(err)
	}
	if b.Name != "caronae-etl" || b.Prefix != "" {
		t.Fatalf("unexpected bucket %+v", b)
	}
	if _, err = ParseDSN("http://caronae-etl/x", "sa-east-1"); err == nil {
		t.Fatal("expected an error for the wrong scheme")
	}
	if _, err = ParseDSN("s3://caronae-etl/x", ""); err == nil {
		t.Fatal("expected an error for a missing region")
	}
}

func TestGetKeyWithPrefix(t *testing.T) {
	c := &basicClient{prefix: "dw/"}
	if got := c.getKeyWithPrefix("last_etl_run.txt"); got != "dw/last_etl_run.txt" {
		t.Fatalf("got %q", got)
	}
	c.prefix = ""
	if got := c.getKeyWithPrefix("last_etl_run.txt"); got != "last_etl_run.txt" {
		t.Fatalf("got %q", got)
	}
}
