package dimensions

import (
	"context"
	"testing"
	"time"

	"github.com/caronae/caronae-dw/constants"
)

func TestDateAndHourKeys(t *testing.T) {
	ts := time.Date(2024, 3, 7, 14, 35, 0, 0, time.UTC)
	if DateKey(ts) != 20240307 {
		t.Fatalf("unexpected date key %v", DateKey(ts))
	}
	if HourKey(ts) != 1435 {
		t.Fatalf("unexpected hour key %v", HourKey(ts))
	}
}

func TestNewTime(t *testing.T) {
	cases := []struct {
		ts       time.Time
		dow      int
		day      string
		semester int
		bucket   string
	}{
		{time.Date(2024, 3, 10, 5, 59, 0, 0, time.UTC), 7, "Sunday", 1, "Madrugada"},
		{time.Date(2024, 3, 11, 6, 0, 0, 0, time.UTC), 1, "Monday", 1, "Manhã"},
		{time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC), 1, "Monday", 2, "Tarde"},
		{time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC), 2, "Tuesday", 2, "Noite"},
	}
	for _, c := range cases {
		got := NewTime(c.ts)
		if got.DayOfWeek != c.dow || got.DayName != c.day || got.Semester != c.semester || got.TimeOfDayBucket != c.bucket {
			t.Fatalf("unexpected attributes for %v: %+v", c.ts, got)
		}
		if got.Year != c.ts.Year() || got.HourOfDay != c.ts.Hour() || got.MinuteOfHour != c.ts.Minute() {
			t.Fatalf("unexpected attributes for %v: %+v", c.ts, got)
		}
	}
}

func TestTimeRowsStayInsideRange(t *testing.T) {
	start := time.Date(2016, 4, 30, 0, 0, 0, 0, time.UTC)
	end := time.Date(2016, 5, 1, 0, 0, 0, 0, time.UTC)
	april := TimeRows(time.Date(2016, 4, 1, 0, 0, 0, 0, time.UTC), start, end)
	if len(april) != 1440 || april[0].DateSK != 20160430 || april[0].HourSK != 0 || april[1439].HourSK != 2359 {
		t.Fatalf("unexpected rows for April: %v", len(april))
	}
	may := TimeRows(time.Date(2016, 5, 1, 0, 0, 0, 0, time.UTC), start, end)
	if len(may) != 1440 || may[0].DateSK != 20160501 {
		t.Fatalf("unexpected rows for May: %v", len(may))
	}
	if rows := TimeRows(time.Date(2016, 6, 1, 0, 0, 0, 0, time.UTC), start, end); len(rows) != 0 {
		t.Fatalf("expected no rows after the end date, got %v", len(rows))
	}
}

func TestTimeLoaderGeneratesWhenEmpty(t *testing.T) {
	d, f := newTestDeps()
	l := &TimeLoader{
		Deps:  d,
		Start: time.Date(2016, 4, 30, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2016, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	res, err := l.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.RowsLoaded != 2880 {
		t.Fatalf("expected 2880 rows, got %+v", res)
	}
	if txs := f.Warehouse.Txs(); len(txs) != 1 || !txs[0].Committed {
		t.Fatal("expected every month in one committed transaction")
	}
	if n := len(f.Warehouse.ExecsMatching("on conflict (date_sk,hour_sk) do nothing")); n != res.Batches || n != 6 {
		t.Fatalf("expected 6 batches, got %v", n)
	}
}

func TestTimeLoaderSkipsWhenPopulated(t *testing.T) {
	d, f := newTestDeps()
	f.Warehouse.AddResult("select max(date_sk) from "+constants.TableDimTime, []string{"max"}, []interface{}{20160401})
	l := &TimeLoader{Deps: d, Start: time.Date(2016, 4, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2016, 4, 1, 0, 0, 0, 0, time.UTC)}
	res, err := l.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.RowsLoaded != 0 || len(f.Warehouse.Execs()) != 0 {
		t.Fatal("expected the populated time dimension to be left alone")
	}
	l.Regenerate = true
	if res, err = l.Load(context.Background()); err != nil || res.RowsLoaded != 1440 {
		t.Fatalf("expected regeneration to load one day, got %+v, %v", res, err)
	}
}

func TestTimeLoaderExtendsPastLastDate(t *testing.T) {
	d, f := newTestDeps()
	f.Warehouse.AddResult("select max(date_sk) from "+constants.TableDimTime, []string{"max"}, []interface{}{20160430})
	l := &TimeLoader{Deps: d, Start: time.Date(2016, 4, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2016, 5, 1, 0, 0, 0, 0, time.UTC)}
	res, err := l.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.RowsLoaded != 1440 {
		t.Fatalf("expected only the missing day to be loaded, got %+v", res)
	}
	execs := f.Warehouse.ExecsMatching("insert into " + constants.TableDimTime)
	if len(execs) == 0 || execs[0].Args[0] != 20160501 || execs[0].Args[1] != 0 {
		t.Fatalf("expected generation to start at 20160501 0000, got %v", execs)
	}
}

func TestDateFromKey(t *testing.T) {
	d, err := DateFromKey(20241231)
	if err != nil {
		t.Fatal(err)
	}
	if !d.Equal(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v", d)
	}
	if _, err := DateFromKey(20241301); err == nil {
		t.Fatal("expected an error for month 13")
	}
}

func TestTimeLoaderRejectsReversedRange(t *testing.T) {
	d, _ := newTestDeps()
	l := &TimeLoader{Deps: d, Start: time.Date(2016, 4, 2, 0, 0, 0, 0, time.UTC), End: time.Date(2016, 4, 1, 0, 0, 0, 0, time.UTC)}
	if _, err := l.Load(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
}
