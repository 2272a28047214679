// Package resolver maps source business keys to warehouse surrogate keys.
//
// A Resolver is built from the warehouse's dimension tables at the start of each run and is never shared
// between runs. Every lookup returns a Resolution saying whether the key was found, replaced by the
// unknown member, or could not be resolved at all.
package resolver

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/caronae/caronae-dw/constants"
	"github.com/caronae/caronae-dw/dimensions"
	"github.com/caronae/caronae-dw/logger"
	"github.com/caronae/caronae-dw/rdbms"
	"github.com/caronae/caronae-dw/rdbms/shared"
	"github.com/pkg/errors"
)

// Outcome of a lookup.
type Outcome int

const (
	Found     Outcome = iota // the business key has a surrogate key
	Fallback                 // the business key was missing and the unknown member is used
	FatalMiss                // the business key was missing and the unknown member must not be used
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case Fallback:
		return "fallback"
	case FatalMiss:
		return "fatal miss"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Resolution is the result of a lookup.
type Resolution struct {
	SK      int64
	Outcome Outcome
}

// ErrFlagsCombinationNotFound is returned when a ride's flags are absent from dim_flags_carona,
// which means the junk dimension is incomplete.
var ErrFlagsCombinationNotFound = errors.New("flags combination not found in " + constants.TableDimFlags)

// Dimension names used for fallback counts.
const (
	DimUser         = "user"
	DimNeighborhood = "neighborhood"
	DimZone         = "zone"
	DimHub          = "hub"
	DimStatus       = "status"
	DimFlags        = "flags"
	DimTime         = "time"
)

// Options change how misses are treated.
type Options struct {
	FlagsMissPolicy string // constants.FlagsMissPolicyFail (default) or constants.FlagsMissPolicyUnknown
}

type Resolver struct {
	log              logger.Logger
	opts             Options
	users            map[int64]int64
	neighborhoods    map[string]int64
	neighborhoodZone map[string]int64 // neighborhood name -> zone_id
	zones            map[int64]int64
	hubs             map[string]int64
	statuses         map[string]int64
	flags            map[dimensions.FlagSet]int64
	dates            map[int]struct{}
	lastDate         int
	mu               sync.Mutex
	fallbacks        map[string]int
}

// New reads the current surrogate keys from the warehouse.
// Unknown members are left out so that they are only ever reached by a Fallback.
func New(ctx context.Context, log logger.Logger, conn shared.Connector, opts Options) (*Resolver, error) {
	if opts.FlagsMissPolicy == "" {
		opts.FlagsMissPolicy = constants.FlagsMissPolicyFail
	}
	r := &Resolver{
		log:              log,
		opts:             opts,
		users:            make(map[int64]int64),
		neighborhoods:    make(map[string]int64),
		neighborhoodZone: make(map[string]int64),
		zones:            make(map[int64]int64),
		hubs:             make(map[string]int64),
		statuses:         make(map[string]int64),
		flags:            make(map[dimensions.FlagSet]int64),
		dates:            make(map[int]struct{}),
		fallbacks:        make(map[string]int),
	}
	loads := []struct {
		name  string
		query string
		fn    rdbms.RowHandler
	}{
		{constants.TableDimUser, "select user_sk, user_id from dim_user where user_sk >= 0", r.scanUser},
		{constants.TableDimNeighborhood, "select neighborhood_sk, neighborhood_name, zone_id from dim_neighborhood where neighborhood_sk >= 0", r.scanNeighborhood},
		{constants.TableDimZone, "select zone_sk, zone_id from dim_zone where zone_sk >= 0", r.scanZone},
		{constants.TableDimHub, "select hub_sk, hub_name from dim_hub where hub_sk >= 0", r.scanHub},
		{constants.TableDimStatus, "select status_sk, status_name from dim_status_pedido where status_sk >= 0", r.scanStatus},
		{constants.TableDimFlags, `select flags_carona_sk, is_routine_ride, is_going_to_campus, done,
	is_routine_monday, is_routine_tuesday, is_routine_wednesday, is_routine_thursday,
	is_routine_friday, is_routine_saturday, is_routine_sunday
from dim_flags_carona where flags_carona_sk >= 0`, r.scanFlags},
		{constants.TableDimTime, "select distinct date_sk from dim_time where date_sk >= 0", r.scanDate},
	}
	for _, l := range loads {
		n, err := rdbms.SqlQuery(ctx, log, conn, l.query, nil, l.fn)
		if err != nil {
			return nil, errors.Wrapf(err, "error reading surrogate keys from %v", l.name)
		}
		log.Debug("resolver cached ", n, " keys from ", l.name)
	}
	log.Info("Key resolver ready: ", len(r.users), " users, ", len(r.neighborhoods), " neighborhoods, ",
		len(r.zones), " zones, ", len(r.hubs), " hubs, ", len(r.statuses), " statuses, ",
		len(r.flags), " flag combinations, ", len(r.dates), " dates")
	return r, nil
}

func (r *Resolver) scanUser(rows shared.Rows) error {
	var sk, id int64
	if err := rows.Scan(&sk, &id); err != nil {
		return err
	}
	r.users[id] = sk
	return nil
}

func (r *Resolver) scanNeighborhood(rows shared.Rows) error {
	var sk int64
	var name string
	var zoneID sql.NullInt64
	if err := rows.Scan(&sk, &name, &zoneID); err != nil {
		return err
	}
	if prior, ok := r.neighborhoods[name]; ok {
		r.log.Warn("neighborhood name ", name, " is used by surrogate keys ", prior, " and ", sk, "; keeping ", sk)
	}
	r.neighborhoods[name] = sk
	if zoneID.Valid {
		r.neighborhoodZone[name] = zoneID.Int64
	} else {
		delete(r.neighborhoodZone, name)
	}
	return nil
}

func (r *Resolver) scanZone(rows shared.Rows) error {
	var sk, id int64
	if err := rows.Scan(&sk, &id); err != nil {
		return err
	}
	r.zones[id] = sk
	return nil
}

func (r *Resolver) scanHub(rows shared.Rows) error {
	var sk int64
	var name string
	if err := rows.Scan(&sk, &name); err != nil {
		return err
	}
	if prior, ok := r.hubs[name]; ok {
		r.log.Warn("hub name ", name, " is used by surrogate keys ", prior, " and ", sk, "; keeping ", sk)
	}
	r.hubs[name] = sk
	return nil
}

func (r *Resolver) scanStatus(rows shared.Rows) error {
	var sk int64
	var name string
	if err := rows.Scan(&sk, &name); err != nil {
		return err
	}
	r.statuses[name] = sk
	return nil
}

func (r *Resolver) scanFlags(rows shared.Rows) error {
	var sk int64
	var f dimensions.FlagSet
	dest := []interface{}{&sk}
	for i := range f {
		dest = append(dest, &f[i])
	}
	if err := rows.Scan(dest...); err != nil {
		return err
	}
	r.flags[f] = sk
	return nil
}

func (r *Resolver) scanDate(rows shared.Rows) error {
	var d int
	if err := rows.Scan(&d); err != nil {
		return err
	}
	r.dates[d] = struct{}{}
	if d > r.lastDate {
		r.lastDate = d
	}
	return nil
}

// LastDateKey returns the latest date key in dim_time, or 0 when it has none.
func (r *Resolver) LastDateKey() int {
	return r.lastDate
}

// User resolves a source user id.
func (r *Resolver) User(id sql.NullInt64) Resolution {
	if id.Valid {
		if sk, ok := r.users[id.Int64]; ok {
			return found(sk)
		}
	}
	return r.fallback(DimUser)
}

// Neighborhood resolves a ride's neighborhood, which the source stores by name.
func (r *Resolver) Neighborhood(name sql.NullString) Resolution {
	if key, ok := nameKey(name); ok {
		if sk, ok := r.neighborhoods[key]; ok {
			return found(sk)
		}
	}
	return r.fallback(DimNeighborhood)
}

// Zone resolves the zone of a ride's neighborhood.
func (r *Resolver) Zone(neighborhood sql.NullString) Resolution {
	if key, ok := nameKey(neighborhood); ok {
		if zoneID, ok := r.neighborhoodZone[key]; ok {
			if sk, ok := r.zones[zoneID]; ok {
				return found(sk)
			}
		}
	}
	return r.fallback(DimZone)
}

// Hub resolves a ride's hub, which the source stores by name.
func (r *Resolver) Hub(name sql.NullString) Resolution {
	if key, ok := nameKey(name); ok {
		if sk, ok := r.hubs[key]; ok {
			return found(sk)
		}
	}
	return r.fallback(DimHub)
}

// Status resolves a ride_user status.
func (r *Resolver) Status(name sql.NullString) Resolution {
	if key, ok := nameKey(name); ok {
		if sk, ok := r.statuses[key]; ok {
			return found(sk)
		}
	}
	return r.fallback(DimStatus)
}

// Flags resolves a ride's flag combination.
// A miss is a FatalMiss unless the options allow the unknown member.
func (r *Resolver) Flags(f dimensions.FlagSet) Resolution {
	if sk, ok := r.flags[f]; ok {
		return found(sk)
	}
	if r.opts.FlagsMissPolicy == constants.FlagsMissPolicyUnknown {
		r.log.Warn("flags combination ", f.Description(), " not found; using the unknown member")
		return r.fallback(DimFlags)
	}
	return Resolution{SK: constants.UnknownMemberSK, Outcome: FatalMiss}
}

// Time returns the date and hour keys of t.
// Both fall back to the unknown member when t is NULL or its date is not in dim_time.
func (r *Resolver) Time(t sql.NullTime) (date Resolution, hour Resolution) {
	if t.Valid {
		d := dimensions.DateKey(t.Time)
		if _, ok := r.dates[d]; ok {
			return found(int64(d)), found(int64(dimensions.HourKey(t.Time)))
		}
	}
	fb := r.fallback(DimTime)
	return fb, fb
}

// Fallbacks returns the number of fallbacks per dimension so far.
func (r *Resolver) Fallbacks() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	retval := make(map[string]int, len(r.fallbacks))
	for k, v := range r.fallbacks {
		retval[k] = v
	}
	return retval
}

func (r *Resolver) fallback(dim string) Resolution {
	r.mu.Lock()
	r.fallbacks[dim]++
	r.mu.Unlock()
	return Resolution{SK: constants.UnknownMemberSK, Outcome: Fallback}
}

func found(sk int64) Resolution {
	return Resolution{SK: sk, Outcome: Found}
}

func nameKey(s sql.NullString) (string, bool) {
	if !s.Valid {
		return "", false
	}
	k := strings.TrimSpace(s.String)
	return k, k != ""
}
