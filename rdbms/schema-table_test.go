package rdbms

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestSchemaTable(t *testing.T) {
	log := logrus.New()
	cases := []struct {
		input  string
		schema string
		table  string
	}{
		{"dw.fato_carona", "dw", "fato_carona"},
		{"fato_carona", "", "fato_carona"},
		{`dw."dim_user"`, "dw", `"dim_user"`},
		{`"random.table"`, "", `"random.table"`},
		{`"dw"."dim_hub"`, `"dw"`, `"dim_hub"`},
	}
	for _, c := range cases {
		log.Debug("Testing SchemaTable: ", c.input)
		st := SchemaTable{SchemaTable: c.input}
		if got := st.GetSchema(); got != c.schema {
			t.Fatalf("%v: expected schema = %q; got %q", c.input, c.schema, got)
		}
		if got := st.GetTable(); got != c.table {
			t.Fatalf("%v: expected table = %q; got %q", c.input, c.table, got)
		}
		if got := st.String(); got != c.input {
			t.Fatalf("expected %q; got %q", c.input, got)
		}
	}
}

func TestNewSchemaTable(t *testing.T) {
	if got := NewSchemaTable("", "dim_time").String(); got != "dim_time" {
		t.Fatalf("got %q", got)
	}
	if got := NewSchemaTable("dw", "dim_time").String(); got != "dw.dim_time" {
		t.Fatalf("got %q", got)
	}
}
