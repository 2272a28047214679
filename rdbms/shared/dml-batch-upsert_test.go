package shared

import (
	"regexp"
	"testing"

	"github.com/cevaris/ordered_map"
	"github.com/sirupsen/logrus"
)

func newUpsertTestGenerator(t *testing.T, doNothing bool) SqlStmtTxtBatcher {
	log := logrus.New()
	log.SetLevel(logrus.DebugLevel)
	omKeys := ordered_map.NewOrderedMap()
	omKeys.Set("col1", "a")
	omKeys.Set("col2", "b")
	omCols := ordered_map.NewOrderedMap()
	omCols.Set("col3", "c")
	omCols.Set("col4", "d")
	db := NewMockConnection(log)
	g, err := db.GetDmlGenerator().NewUpsertGenerator(&SqlStatementGeneratorConfig{
		Log:                 log,
		OutputSchema:        "",
		SchemaSeparator:     ".",
		OutputTable:         "t2",
		TargetKeyCols:       omKeys,
		TargetOtherCols:     omCols,
		OnConflictDoNothing: doNothing,
	})
	if err != nil {
		t.Fatal(err)
	}
	return g.(SqlStmtTxtBatcher)
}

func normaliseSql(s string) string {
	re := regexp.MustCompile("[\t\r\n\f]")
	return re.ReplaceAllString(s, " ")
}

func TestPostgresSqlUpsert(t *testing.T) {
	o := newUpsertTestGenerator(t, false)

	var batchIsFull bool
	var err error

	// Create new batch of values size 2.
	o.InitBatch(2)
	batchIsFull, err = o.AddValuesToBatch([]interface{}{"x", "y", 123, nil}) // first row should succeed.
	if err != nil {
		t.Fatal(err)
	}
	if batchIsFull {
		t.Fatal("The batch should have room for another row.")
	}
	batchIsFull, err = o.AddValuesToBatch([]interface{}{"p", "q", 2, "z"}) // second row should succeed.
	if err != nil {
		t.Fatal(err)
	}
	if !batchIsFull {
		t.Fatal("The batch *should* be full but it is not.")
	}
	_, err = o.AddValuesToBatch([]interface{}{"p", "q", 2, "z"}) // third row should fail.
	if err == nil {
		t.Fatal("Expected an error adding to a full batch.")
	}

	expected := `insert into t2 (a,b,c,d) values ($1,$2,$3,$4),($5,$6,$7,$8) on conflict (a,b) do update set c = excluded.c, d = excluded.d`
	if got := normaliseSql(o.GetStatement()); got != normaliseSql(expected) {
		t.Fatalf("unexpected SQL:\n got = %q\nwant = %q", got, expected)
	}
	if len(o.GetValues()) != 8 {
		t.Fatal("Error, incorrect number of args.")
	}

	// Retry with a smaller batch and the wrong number of values.
	o.InitBatch(1)
	_, err = o.AddValuesToBatch([]interface{}{"a", "b", 456}) // this should fail as num values does not match the columns.
	if err == nil {
		t.Fatal("There should have been an error. Incorrect number of values deliberately supplied in batch.")
	}
	batchIsFull, err = o.AddValuesToBatch([]interface{}{"a", "b", 456, 789})
	if err != nil {
		t.Fatal(err)
	}
	if !batchIsFull {
		t.Fatal("The batch *should* be full but it is not.")
	}
	expected = `insert into t2 (a,b,c,d) values ($1,$2,$3,$4) on conflict (a,b) do update set c = excluded.c, d = excluded.d`
	if got := normaliseSql(o.GetStatement()); got != normaliseSql(expected) {
		t.Fatalf("unexpected SQL after resizing batch:\n got = %q\nwant = %q", got, expected)
	}
}

func TestPostgresSqlUpsertPartialBatch(t *testing.T) {
	o := newUpsertTestGenerator(t, false)
	o.InitBatch(500)
	for i := 0; i < 3; i++ {
		if _, err := o.AddValuesToBatch([]interface{}{i, i, i, i}); err != nil {
			t.Fatal(err)
		}
	}
	if o.GetRowsInBatch() != 3 {
		t.Fatalf("expected 3 rows in batch, got %v", o.GetRowsInBatch())
	}
	expected := `insert into t2 (a,b,c,d) values ($1,$2,$3,$4),($5,$6,$7,$8),($9,$10,$11,$12) on conflict (a,b) do update set c = excluded.c, d = excluded.d`
	if got := normaliseSql(o.GetStatement()); got != expected {
		t.Fatalf("unexpected SQL:\n got = %q\nwant = %q", got, expected)
	}
}

func TestPostgresSqlUpsertDoNothing(t *testing.T) {
	o := newUpsertTestGenerator(t, true)
	o.InitBatch(1)
	if _, err := o.AddValuesToBatch([]interface{}{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	expected := `insert into t2 (a,b,c,d) values ($1,$2,$3,$4) on conflict (a,b) do nothing`
	if got := normaliseSql(o.GetStatement()); got != expected {
		t.Fatalf("unexpected SQL:\n got = %q\nwant = %q", got, expected)
	}
}

func TestPostgresSqlUpsertWithSchema(t *testing.T) {
	log := logrus.New()
	omKeys := ordered_map.NewOrderedMap()
	omKeys.Set("StatusName", "status_name")
	g, err := (&DmlGeneratorTxtBatch{}).NewUpsertGenerator(&SqlStatementGeneratorConfig{
		Log:           log,
		OutputSchema:  "dw",
		OutputTable:   "dim_status_pedido",
		TargetKeyCols: omKeys,
	})
	if err != nil {
		t.Fatal(err)
	}
	o := g.(SqlStmtTxtBatcher)
	o.InitBatch(1)
	if _, err := o.AddValuesToBatch([]interface{}{"driver"}); err != nil {
		t.Fatal(err)
	}
	expected := `insert into dw.dim_status_pedido (status_name) values ($1) on conflict (status_name) do nothing`
	if got := o.GetStatement(); got != expected {
		t.Fatalf("unexpected SQL:\n got = %q\nwant = %q", got, expected)
	}
}

func TestPostgresSqlUpsertRequiresTableAndKeys(t *testing.T) {
	log := logrus.New()
	dml := &DmlGeneratorTxtBatch{}
	if _, err := dml.NewUpsertGenerator(&SqlStatementGeneratorConfig{Log: log, TargetKeyCols: ordered_map.NewOrderedMap()}); err == nil {
		t.Fatal("expected an error for a missing table name")
	}
	if _, err := dml.NewUpsertGenerator(&SqlStatementGeneratorConfig{Log: log, OutputTable: "t"}); err == nil {
		t.Fatal("expected an error for missing key columns")
	}
}
