package facts

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/caronae/caronae-dw/constants"
	"github.com/caronae/caronae-dw/dimensions"
	"github.com/caronae/caronae-dw/helper"
	"github.com/caronae/caronae-dw/loader"
	"github.com/caronae/caronae-dw/logger"
	"github.com/caronae/caronae-dw/rdbms"
	"github.com/caronae/caronae-dw/rdbms/shared"
	"github.com/caronae/caronae-dw/resolver"
	"github.com/pkg/errors"
)

// Ride is a changed ride as extracted from the source.
type Ride struct {
	ID            int64
	DriverID      sql.NullInt64
	Neighborhood  sql.NullString
	Hub           sql.NullString
	Going         sql.NullBool
	Done          sql.NullBool
	WeekDays      sql.NullString
	RepeatsUntil  sql.NullTime
	RoutineID     sql.NullInt64
	Slots         sql.NullInt64
	Date          sql.NullTime
	MessagesCount int64
	CreatedAt     sql.NullTime
	UpdatedAt     sql.NullTime
	DeletedAt     sql.NullTime
}

// StatusCounts are the ride_user rows of one ride counted by status.
type StatusCounts struct {
	Pending  int64
	Accepted int64
	Refused  int64
	Quit     int64
}

// Add counts n requests with status. Driver rows and unknown statuses are not requests.
func (c *StatusCounts) Add(status string, n int64) {
	switch status {
	case constants.StatusPending:
		c.Pending += n
	case constants.StatusAccepted:
		c.Accepted += n
	case constants.StatusRefused:
		c.Refused += n
	case constants.StatusQuit:
		c.Quit += n
	}
}

// Requests is the total number of passenger requests.
func (c StatusCounts) Requests() int64 {
	return c.Pending + c.Accepted + c.Refused + c.Quit
}

// Carona is a row of fato_carona.
type Carona struct {
	RideID         int64
	DriverUserSK   int64
	NeighborhoodSK int64
	ZoneSK         int64
	HubSK          int64
	DateSK         int64
	HourSK         int64
	FlagsSK        int64
	RoutineID      sql.NullInt64
	Slots          sql.NullInt64
	RepeatsUntil   sql.NullTime
	Counts         StatusCounts
	MessagesCount  int64
	CreatedAt      sql.NullTime
	UpdatedAt      sql.NullTime
	DeletedAt      sql.NullTime
}

var CaronaTable = loader.Table{
	Name:    constants.TableFactCarona,
	KeyCols: []string{"ride_id"},
	OtherCols: []string{"driver_user_sk", "neighborhood_sk", "zone_sk", "hub_sk", "date_sk", "hour_sk",
		"flags_carona_sk", "routine_id", "slots", "repeats_until", "requests_count", "accepted_requests_count",
		"refused_requests_count", "pending_requests_count", "quit_requests_count", "messages_count",
		"created_at", "updated_at", "deleted_at"},
}

func (c Carona) KeyValues() []interface{} { return []interface{}{c.RideID} }
func (c Carona) OtherValues() []interface{} {
	return helper.NullValues(c.DriverUserSK, c.NeighborhoodSK, c.ZoneSK, c.HubSK, c.DateSK, c.HourSK,
		c.FlagsSK, c.RoutineID, c.Slots, c.RepeatsUntil, c.Counts.Requests(), c.Counts.Accepted,
		c.Counts.Refused, c.Counts.Pending, c.Counts.Quit, c.MessagesCount,
		c.CreatedAt, c.UpdatedAt, c.DeletedAt)
}

// changedRides selects the ids of rides touched in the window directly or through their requests or messages.
var changedRides = `with changed as (
	select r.id from rides r where ` + LastTouched("r", "created_at", "updated_at", "deleted_at") + `
	union
	select ru.ride_id from ride_user ru where ` + LastTouched("ru", "created_at", "updated_at") + `
	union
	select m.ride_id from messages m where ` + LastTouched("m", "created_at", "updated_at") + `
)
`

var rideQuery = changedRides + `select
	r.id,
	d.user_id,
	r.neighborhood,
	r.hub,
	r.going,
	r.done,
	r.week_days,
	r.repeats_until,
	r.routine_id,
	r.slots,
	r.date,
	(select count(*) from messages m where m.ride_id = r.id),
	r.created_at,
	r.updated_at,
	r.deleted_at
from rides r
join changed c on c.id = r.id
left join (
	select distinct on (ru.ride_id) ru.ride_id, ru.user_id
	from ride_user ru
	join changed cd on cd.id = ru.ride_id
	where ru.status = '` + constants.StatusDriver + `'
	order by ru.ride_id, ru.id
) d on d.ride_id = r.id
order by r.id`

var rideStatusQuery = changedRides + `select
	ru.ride_id,
	ru.status,
	count(*)
from ride_user ru
join changed c on c.id = ru.ride_id
group by ru.ride_id, ru.status`

// CaronaLoader loads fato_carona.
type CaronaLoader struct {
	Deps
}

func (l *CaronaLoader) Name() string {
	return constants.TableFactCarona
}

func (l *CaronaLoader) Load(ctx context.Context, w Window, keys KeyResolver) (loader.Result, error) {
	rides, counts, err := l.extract(ctx, w)
	if err != nil {
		return loader.Result{}, err
	}
	if len(rides) == 0 {
		l.Log.Info("No rides changed in ", w, "; skipping ", constants.TableFactCarona)
		return loader.Result{}, nil
	}
	rows := make([]Carona, 0, len(rides))
	for _, r := range rides {
		c, err := TransformRide(l.Log, r, counts[r.ID], keys)
		if err != nil {
			return loader.Result{}, err
		}
		rows = append(rows, c)
	}
	dw, err := l.Factory.OpenWarehouse(ctx)
	if err != nil {
		return loader.Result{}, errors.Wrapf(err, "error opening warehouse for %v", constants.TableFactCarona)
	}
	defer dw.Close()
	return loader.Upsert(ctx, l.Log, dw, CaronaTable, l.BatchSize, rows)
}

func (l *CaronaLoader) extract(ctx context.Context, w Window) ([]Ride, map[int64]StatusCounts, error) {
	src, err := l.Factory.OpenSource(ctx)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "error opening source for %v", constants.TableFactCarona)
	}
	defer src.Close()
	l.Log.Info("Extracting rides changed in ", w, "...")
	var rides []Ride
	_, err = rdbms.SqlQuery(ctx, l.Log, src, rideQuery, w.Args(), func(rows shared.Rows) error {
		var r Ride
		var messages sql.NullInt64
		if err := rows.Scan(&r.ID, &r.DriverID, &r.Neighborhood, &r.Hub, &r.Going, &r.Done, &r.WeekDays,
			&r.RepeatsUntil, &r.RoutineID, &r.Slots, &r.Date, &messages, &r.CreatedAt, &r.UpdatedAt, &r.DeletedAt); err != nil {
			return err
		}
		r.MessagesCount = messages.Int64
		rides = append(rides, r)
		return nil
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "error extracting rides")
	}
	l.Log.Info("Extracted ", len(rides), " rides")
	if len(rides) == 0 {
		return nil, nil, nil
	}
	counts := make(map[int64]StatusCounts, len(rides))
	_, err = rdbms.SqlQuery(ctx, l.Log, src, rideStatusQuery, w.Args(), func(rows shared.Rows) error {
		var rideID, n int64
		var status sql.NullString
		if err := rows.Scan(&rideID, &status, &n); err != nil {
			return err
		}
		c := counts[rideID]
		c.Add(strings.TrimSpace(status.String), n)
		counts[rideID] = c
		return nil
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "error extracting ride requests")
	}
	return rides, counts, nil
}

// TransformRide derives the fato_carona row of a ride.
// Only a flags combination missing from the warehouse is an error.
func TransformRide(log logger.Logger, r Ride, counts StatusCounts, keys KeyResolver) (Carona, error) {
	flags := RideFlags(log, r)
	fr := keys.Flags(flags)
	if fr.Outcome == resolver.FatalMiss {
		return Carona{}, errors.Wrapf(resolver.ErrFlagsCombinationNotFound, "ride %v has flags %q", r.ID, flags.Description())
	}
	date, hour := keys.Time(r.Date)
	return Carona{
		RideID:         r.ID,
		DriverUserSK:   keys.User(r.DriverID).SK,
		NeighborhoodSK: keys.Neighborhood(r.Neighborhood).SK,
		ZoneSK:         keys.Zone(r.Neighborhood).SK,
		HubSK:          keys.Hub(r.Hub).SK,
		DateSK:         date.SK,
		HourSK:         hour.SK,
		FlagsSK:        fr.SK,
		RoutineID:      r.RoutineID,
		Slots:          r.Slots,
		RepeatsUntil:   r.RepeatsUntil,
		Counts:         counts,
		MessagesCount:  r.MessagesCount,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		DeletedAt:      r.DeletedAt,
	}, nil
}

// RideFlags derives the flags combination of a ride.
// A ride is a routine when it has week days or a repeat end date; only routines carry day flags.
func RideFlags(log logger.Logger, r Ride) dimensions.FlagSet {
	var f dimensions.FlagSet
	weekDays := helper.NullIfBlank(r.WeekDays)
	f[dimensions.FlagRoutine] = weekDays.Valid || r.RepeatsUntil.Valid
	f[dimensions.FlagGoingToCampus] = r.Going.Valid && r.Going.Bool
	f[dimensions.FlagDone] = r.Done.Valid && r.Done.Bool
	if !f[dimensions.FlagRoutine] || !weekDays.Valid {
		return f
	}
	days, err := ParseWeekDays(weekDays.String)
	if err != nil {
		log.Warn("ride ", r.ID, " has malformed week_days ", strconv.Quote(weekDays.String), "; day flags are left unset: ", err)
		return f
	}
	for _, d := range days {
		f.SetWeekday(d)
	}
	return f
}

// ParseWeekDays parses a comma separated list of ISO day numbers.
// Blank entries are skipped and numbers outside 1..7 are dropped.
func ParseWeekDays(s string) ([]int, error) {
	var retval []int
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		d, err := strconv.Atoi(tok)
		if err != nil {
			return nil, errors.Wrapf(err, "bad day %q", tok)
		}
		if d >= 1 && d <= 7 {
			retval = append(retval, d)
		}
	}
	return retval, nil
}
