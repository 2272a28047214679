package dimensions

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/caronae/caronae-dw/constants"
	"github.com/caronae/caronae-dw/loader"
	"github.com/caronae/caronae-dw/rdbms"
	"github.com/caronae/caronae-dw/rdbms/shared"
	"github.com/pkg/errors"
)

// Time is a row of dim_time at minute grain.
type Time struct {
	DateSK          int
	HourSK          int
	FullDate        time.Time
	DayOfWeek       int // ISO: Monday is 1, Sunday is 7
	DayName         string
	DayOfMonth      int
	Month           int
	MonthName       string
	Semester        int
	Year            int
	HourOfDay       int
	MinuteOfHour    int
	TimeOfDayBucket string
}

var TimeTable = loader.Table{
	Name:    constants.TableDimTime,
	KeyCols: []string{"date_sk", "hour_sk"},
	OtherCols: []string{"full_date", "day_of_week", "day_name", "day_of_month", "month", "month_name",
		"semester", "year", "hour_of_day", "minute_of_hour", "time_of_day_bucket"},
	DoNothing: true,
}

func (t Time) KeyValues() []interface{} { return []interface{}{t.DateSK, t.HourSK} }
func (t Time) OtherValues() []interface{} {
	return []interface{}{t.FullDate, t.DayOfWeek, t.DayName, t.DayOfMonth, t.Month, t.MonthName,
		t.Semester, t.Year, t.HourOfDay, t.MinuteOfHour, t.TimeOfDayBucket}
}

// DateKey returns the date surrogate key YYYYMMDD of t.
func DateKey(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// HourKey returns the time of day surrogate key HHMM of t.
func HourKey(t time.Time) int {
	return t.Hour()*100 + t.Minute()
}

// NewTime derives every dim_time attribute of the minute containing t.
func NewTime(t time.Time) Time {
	dow := int(t.Weekday())
	if dow == 0 {
		dow = 7
	}
	return Time{
		DateSK:          DateKey(t),
		HourSK:          HourKey(t),
		FullDate:        time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
		DayOfWeek:       dow,
		DayName:         t.Weekday().String(),
		DayOfMonth:      t.Day(),
		Month:           int(t.Month()),
		MonthName:       t.Month().String(),
		Semester:        (int(t.Month())-1)/6 + 1,
		Year:            t.Year(),
		HourOfDay:       t.Hour(),
		MinuteOfHour:    t.Minute(),
		TimeOfDayBucket: TimeOfDayBucket(t.Hour()),
	}
}

// TimeOfDayBucket names the part of the day that hour falls in.
func TimeOfDayBucket(hour int) string {
	switch {
	case hour < 6:
		return "Madrugada"
	case hour < 12:
		return "Manhã"
	case hour < 18:
		return "Tarde"
	default:
		return "Noite"
	}
}

// TimeRows returns one row per minute of the days from start to end, both inclusive, for the month starting at
// monthStart. Minutes outside [start, end] are left out.
func TimeRows(monthStart, start, end time.Time) []Time {
	from := monthStart
	if from.Before(start) {
		from = start
	}
	until := monthStart.AddDate(0, 1, 0)
	if last := end.AddDate(0, 0, 1); last.Before(until) {
		until = last
	}
	if !from.Before(until) {
		return nil
	}
	rows := make([]Time, 0, int(until.Sub(from)/time.Minute))
	for t := from; t.Before(until); t = t.Add(time.Minute) {
		rows = append(rows, NewTime(t))
	}
	return rows
}

// TimeLoader generates dim_time between Start and End, both inclusive dates.
// A populated dim_time is extended from the day after its last date up to End.
// Months are generated and loaded one at a time inside a single transaction.
type TimeLoader struct {
	Deps
	Start      time.Time
	End        time.Time
	Regenerate bool
}

func (l *TimeLoader) Name() string {
	return constants.TableDimTime
}

func (l *TimeLoader) Load(ctx context.Context) (res loader.Result, err error) {
	if l.End.Before(l.Start) {
		return res, errors.Errorf("time dimension end %v is before start %v", l.End.Format(constants.DateLayout), l.Start.Format(constants.DateLayout))
	}
	dw, err := l.Factory.OpenWarehouse(ctx)
	if err != nil {
		return res, errors.Wrapf(err, "error opening warehouse for %v", constants.TableDimTime)
	}
	defer dw.Close()
	start, done, err := l.resumeFrom(ctx, dw)
	if err != nil || done {
		return res, err
	}
	end := truncateDay(l.End)
	l.Log.Info("Generating ", constants.TableDimTime, " from ", start.Format(constants.DateLayout), " to ", end.Format(constants.DateLayout), "...")
	tx, err := dw.BeginTx(ctx)
	if err != nil {
		return res, errors.Wrapf(err, "error starting transaction for %v", constants.TableDimTime)
	}
	defer func() {
		if err != nil {
			loader.Rollback(l.Log, tx, constants.TableDimTime)
			res.RowsLoaded = 0
		}
	}()
	for m := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC); !m.After(end); m = m.AddDate(0, 1, 0) {
		var r loader.Result
		r, err = loader.UpsertTx(ctx, l.Log, dw.GetDmlGenerator(), tx, TimeTable, l.BatchSize, TimeRows(m, start, end))
		if err != nil {
			return res, err
		}
		res.RowsSupplied += r.RowsSupplied
		res.RowsLoaded += r.RowsLoaded
		res.Batches += r.Batches
		l.Log.Debug("generated ", constants.TableDimTime, " for ", m.Format("2006-01"))
	}
	if err = tx.Commit(); err != nil {
		return res, errors.Wrapf(err, "error committing %v", constants.TableDimTime)
	}
	l.Log.Info("Loaded ", res.RowsLoaded, " rows into ", constants.TableDimTime)
	return res, nil
}

// resumeFrom returns the first day to generate, or done when dim_time already reaches End.
func (l *TimeLoader) resumeFrom(ctx context.Context, dw shared.Connector) (from time.Time, done bool, err error) {
	from = truncateDay(l.Start)
	if l.Regenerate {
		return from, false, nil
	}
	var last sql.NullInt64
	_, err = rdbms.SqlQuery(ctx, l.Log, dw, "select max(date_sk) from "+constants.TableDimTime+" where date_sk >= 0", nil, func(rows shared.Rows) error {
		return rows.Scan(&last)
	})
	if err != nil {
		return from, false, errors.Wrapf(err, "error reading the last date in %v", constants.TableDimTime)
	}
	if !last.Valid {
		return from, false, nil
	}
	if int(last.Int64) >= DateKey(l.End) {
		l.Log.Info("Skipping ", constants.TableDimTime, " which already reaches ", last.Int64)
		return from, true, nil
	}
	lastDay, err := DateFromKey(int(last.Int64))
	if err != nil {
		return from, false, errors.Wrapf(err, "error reading the last date in %v", constants.TableDimTime)
	}
	if next := lastDay.AddDate(0, 0, 1); next.After(from) {
		from = next
	}
	l.Log.Info("Extending ", constants.TableDimTime, " after ", last.Int64)
	return from, false, nil
}

// DateFromKey returns the UTC midnight of the date surrogate key YYYYMMDD.
func DateFromKey(key int) (time.Time, error) {
	return time.Parse("20060102", strconv.Itoa(key))
}

// skipGenerated is true when a generated dimension already holds real rows and regeneration was not asked for.
func skipGenerated(ctx context.Context, d Deps, dw shared.Connector, table string, keyCol string, regenerate bool) (bool, error) {
	if regenerate {
		return false, nil
	}
	n, err := countRealRows(ctx, d.Log, dw, table, keyCol)
	if err != nil {
		return false, errors.Wrapf(err, "error counting rows in %v", table)
	}
	if n > 0 {
		d.Log.Info("Skipping ", table, " which already has ", n, " rows")
		return true, nil
	}
	return false, nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
