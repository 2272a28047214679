package loader

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/caronae/caronae-dw/constants"
	"github.com/caronae/caronae-dw/rdbms/shared"
	"github.com/sirupsen/logrus"
)

type testRow struct {
	id   int
	name string
}

func (r testRow) KeyValues() []interface{}   { return []interface{}{r.id} }
func (r testRow) OtherValues() []interface{} { return []interface{}{r.name} }

var testTable = Table{Name: "dim_test", KeyCols: []string{"test_id"}, OtherCols: []string{"test_name"}}

func normalise(s string) string {
	return regexp.MustCompile(`[\t\r\n\f]`).ReplaceAllString(s, " ")
}

func TestUpsertBatchesInOneTransaction(t *testing.T) {
	log := logrus.New()
	db := shared.NewMockConnection(log)
	rows := []testRow{{1, "a"}, {2, "b"}, {3, "c"}, {4, "d"}, {5, "e"}}
	res, err := Upsert(context.Background(), log, db, testTable, 2, rows)
	if err != nil {
		t.Fatal(err)
	}
	if res.RowsLoaded != 5 || res.Batches != 3 || res.RowsSupplied != 5 {
		t.Fatalf("unexpected result %+v", res)
	}
	execs := db.Execs()
	if len(execs) != 3 {
		t.Fatalf("expected 3 statements, got %v", len(execs))
	}
	expected := `insert into dim_test (test_id,test_name) values ($1,$2),($3,$4) on conflict (test_id) do update set test_name = excluded.test_name`
	if got := normalise(execs[0].Sql); got != expected {
		t.Fatalf("unexpected SQL:\n got = %q\nwant = %q", got, expected)
	}
	expected = `insert into dim_test (test_id,test_name) values ($1,$2) on conflict (test_id) do update set test_name = excluded.test_name`
	if got := normalise(execs[2].Sql); got != expected {
		t.Fatalf("unexpected SQL for last batch:\n got = %q\nwant = %q", got, expected)
	}
	if len(execs[2].Args) != 2 || execs[2].Args[0] != 5 || execs[2].Args[1] != "e" {
		t.Fatalf("unexpected args %v", execs[2].Args)
	}
	txs := db.Txs()
	if len(txs) != 1 || !txs[0].Committed {
		t.Fatal("expected a single committed transaction")
	}
	for _, e := range execs {
		if !e.InTx {
			t.Fatal("expected every batch inside the transaction")
		}
	}
}

func TestUpsertKeepsBatchesWithinBindLimit(t *testing.T) {
	log := logrus.New()
	db := shared.NewMockConnection(log)
	rows := make([]testRow, 40000)
	for i := range rows {
		rows[i] = testRow{i, "x"}
	}
	res, err := Upsert(context.Background(), log, db, testTable, 100000, rows)
	if err != nil {
		t.Fatal(err)
	}
	if res.Batches != 2 || res.RowsLoaded != 40000 {
		t.Fatalf("unexpected result %+v", res)
	}
	for _, e := range db.Execs() {
		if len(e.Args) > constants.LoaderMaxBindParams {
			t.Fatalf("statement has %v bind parameters", len(e.Args))
		}
	}
	if n := len(db.Execs()[0].Args); n != 2*32767 {
		t.Fatalf("expected a full first batch, got %v args", n)
	}
}

func TestMaxBatchSize(t *testing.T) {
	log := logrus.New()
	wide := Table{Name: "wide", KeyCols: []string{"a", "b"}, OtherCols: []string{"c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m"}}
	cases := []struct {
		name  string
		table Table
		in    int
		want  int
	}{
		{"default", testTable, 0, constants.LoaderBatchSizeDefault},
		{"unchanged", testTable, 1000, 1000},
		{"two columns", testTable, 50000, 32767},
		{"thirteen columns", wide, 10000, 5041},
	}
	for _, c := range cases {
		if got := MaxBatchSize(log, c.table, c.in); got != c.want {
			t.Fatalf("%v: expected %v, got %v", c.name, c.want, got)
		}
	}
}

func TestUpsertDeduplicatesByKeyLastWins(t *testing.T) {
	log := logrus.New()
	db := shared.NewMockConnection(log)
	rows := []testRow{{1, "first"}, {2, "b"}, {1, "last"}}
	res, err := Upsert(context.Background(), log, db, testTable, 10, rows)
	if err != nil {
		t.Fatal(err)
	}
	if res.RowsLoaded != 2 {
		t.Fatalf("expected 2 rows, got %+v", res)
	}
	args := db.Execs()[0].Args
	if len(args) != 4 || args[0] != 1 || args[1] != "last" || args[2] != 2 {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestUpsertRollsBackOnError(t *testing.T) {
	log := logrus.New()
	db := shared.NewMockConnection(log)
	db.FailExec("insert into dim_test", errors.New("fk violation"))
	res, err := Upsert(context.Background(), log, db, testTable, 10, []testRow{{1, "a"}})
	if err == nil {
		t.Fatal("expected an error")
	}
	if res.RowsLoaded != 0 {
		t.Fatalf("expected no rows loaded, got %+v", res)
	}
	txs := db.Txs()
	if !txs[0].RolledBack || txs[0].Committed {
		t.Fatal("expected the transaction to be rolled back")
	}
}

func TestUpsertCommitFailureIsReturned(t *testing.T) {
	log := logrus.New()
	db := shared.NewMockConnection(log)
	db.CommitErr = errors.New("serialization failure")
	if _, err := Upsert(context.Background(), log, db, testTable, 10, []testRow{{1, "a"}}); err == nil {
		t.Fatal("expected the commit error")
	}
}

func TestUpsertNoRowsIsNoop(t *testing.T) {
	log := logrus.New()
	db := shared.NewMockConnection(log)
	res, err := Upsert(context.Background(), log, db, testTable, 10, []testRow{})
	if err != nil {
		t.Fatal(err)
	}
	if res.RowsLoaded != 0 || len(db.Execs()) != 0 || len(db.Txs()) != 0 {
		t.Fatal("expected nothing to be executed")
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	log := logrus.New()
	db := shared.NewMockConnection(log)
	rows := []testRow{{1, "a"}, {2, "b"}}
	for i := 0; i < 2; i++ {
		if _, err := Upsert(context.Background(), log, db, testTable, 10, rows); err != nil {
			t.Fatal(err)
		}
	}
	execs := db.Execs()
	if execs[0].Sql != execs[1].Sql {
		t.Fatal("expected identical statements")
	}
	for i := range execs[0].Args {
		if execs[0].Args[i] != execs[1].Args[i] {
			t.Fatal("expected identical values")
		}
	}
}

func TestUpsertDoNothingWithSchema(t *testing.T) {
	log := logrus.New()
	db := shared.NewMockConnection(log)
	tbl := Table{Name: "dw.dim_status_pedido", KeyCols: []string{"status_name"}, DoNothing: true}
	if _, err := Upsert(context.Background(), log, db, tbl, 10, []statusRow{"driver", "quit"}); err != nil {
		t.Fatal(err)
	}
	expected := `insert into dw.dim_status_pedido (status_name) values ($1),($2) on conflict (status_name) do nothing`
	if got := db.Execs()[0].Sql; got != expected {
		t.Fatalf("unexpected SQL:\n got = %q\nwant = %q", got, expected)
	}
}

type statusRow string

func (s statusRow) KeyValues() []interface{}   { return []interface{}{string(s)} }
func (s statusRow) OtherValues() []interface{} { return nil }
