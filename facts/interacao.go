package facts

import (
	"context"
	"database/sql"
	"strings"

	"github.com/caronae/caronae-dw/constants"
	"github.com/caronae/caronae-dw/helper"
	"github.com/caronae/caronae-dw/loader"
	"github.com/caronae/caronae-dw/rdbms"
	"github.com/caronae/caronae-dw/rdbms/shared"
	"github.com/pkg/errors"
)

// RideUser is a changed ride_user row as extracted from the source.
type RideUser struct {
	ID        int64
	RideID    int64
	UserID    sql.NullInt64
	Status    sql.NullString
	CreatedAt sql.NullTime
	UpdatedAt sql.NullTime
}

// Interacao is a row of fato_interacao_carona.
type Interacao struct {
	RideUserID          int64
	RideID              int64
	UserSK              int64
	DateSK              int64
	HourSK              int64
	StatusSK            int64
	IsDriverInteraction bool
	IsPassengerRequest  bool
	RequestAccepted     bool
	RequestRefused      bool
	RequestPending      bool
	RequestQuit         bool
	CreatedAt           sql.NullTime
	UpdatedAt           sql.NullTime
}

var InteracaoTable = loader.Table{
	Name:    constants.TableFactInteracao,
	KeyCols: []string{"ride_user_id"},
	OtherCols: []string{"ride_id", "user_sk", "date_sk", "hour_sk", "status_sk", "is_driver_interaction",
		"is_passenger_request", "request_accepted", "request_refused", "request_pending", "request_quit",
		"created_at", "updated_at"},
}

func (i Interacao) KeyValues() []interface{} { return []interface{}{i.RideUserID} }
func (i Interacao) OtherValues() []interface{} {
	return helper.NullValues(i.RideID, i.UserSK, i.DateSK, i.HourSK, i.StatusSK, i.IsDriverInteraction,
		i.IsPassengerRequest, i.RequestAccepted, i.RequestRefused, i.RequestPending, i.RequestQuit,
		i.CreatedAt, i.UpdatedAt)
}

var rideUserQuery = `select
	ru.id,
	ru.ride_id,
	ru.user_id,
	ru.status,
	ru.created_at,
	ru.updated_at
from ride_user ru
where ` + LastTouched("ru", "created_at", "updated_at") + `
order by ru.id`

// InteracaoLoader loads fato_interacao_carona.
type InteracaoLoader struct {
	Deps
}

func (l *InteracaoLoader) Name() string {
	return constants.TableFactInteracao
}

func (l *InteracaoLoader) Load(ctx context.Context, w Window, keys KeyResolver) (loader.Result, error) {
	rideUsers, err := l.extract(ctx, w)
	if err != nil {
		return loader.Result{}, err
	}
	if len(rideUsers) == 0 {
		l.Log.Info("No ride requests changed in ", w, "; skipping ", constants.TableFactInteracao)
		return loader.Result{}, nil
	}
	rows := make([]Interacao, len(rideUsers))
	for idx, ru := range rideUsers {
		rows[idx] = TransformRideUser(ru, keys)
	}
	dw, err := l.Factory.OpenWarehouse(ctx)
	if err != nil {
		return loader.Result{}, errors.Wrapf(err, "error opening warehouse for %v", constants.TableFactInteracao)
	}
	defer dw.Close()
	return loader.Upsert(ctx, l.Log, dw, InteracaoTable, l.BatchSize, rows)
}

func (l *InteracaoLoader) extract(ctx context.Context, w Window) ([]RideUser, error) {
	src, err := l.Factory.OpenSource(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening source for %v", constants.TableFactInteracao)
	}
	defer src.Close()
	l.Log.Info("Extracting ride requests changed in ", w, "...")
	var retval []RideUser
	_, err = rdbms.SqlQuery(ctx, l.Log, src, rideUserQuery, w.Args(), func(rows shared.Rows) error {
		var ru RideUser
		if err := rows.Scan(&ru.ID, &ru.RideID, &ru.UserID, &ru.Status, &ru.CreatedAt, &ru.UpdatedAt); err != nil {
			return err
		}
		retval = append(retval, ru)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "error extracting ride requests")
	}
	l.Log.Info("Extracted ", len(retval), " ride requests")
	return retval, nil
}

// TransformRideUser derives the fato_interacao_carona row of a ride request.
// The event time is the creation of the request.
func TransformRideUser(ru RideUser, keys KeyResolver) Interacao {
	status := strings.TrimSpace(ru.Status.String)
	date, hour := keys.Time(ru.CreatedAt)
	return Interacao{
		RideUserID:          ru.ID,
		RideID:              ru.RideID,
		UserSK:              keys.User(ru.UserID).SK,
		DateSK:              date.SK,
		HourSK:              hour.SK,
		StatusSK:            keys.Status(ru.Status).SK,
		IsDriverInteraction: status == constants.StatusDriver,
		IsPassengerRequest:  isPassengerStatus(status),
		RequestAccepted:     status == constants.StatusAccepted,
		RequestRefused:      status == constants.StatusRefused,
		RequestPending:      status == constants.StatusPending,
		RequestQuit:         status == constants.StatusQuit,
		CreatedAt:           ru.CreatedAt,
		UpdatedAt:           ru.UpdatedAt,
	}
}

func isPassengerStatus(s string) bool {
	switch s {
	case constants.StatusPending, constants.StatusAccepted, constants.StatusRefused, constants.StatusQuit:
		return true
	}
	return false
}
