// Package schema holds the DDL of the Caronaê star schema and creates any missing tables.
package schema

import (
	"context"

	"github.com/caronae/caronae-dw/constants"
	"github.com/caronae/caronae-dw/logger"
	"github.com/caronae/caronae-dw/rdbms/shared"
	"github.com/pkg/errors"
)

// Table is a warehouse table and the statement that creates it.
type Table struct {
	Name string
	DDL  string
}

var dimTime = Table{constants.TableDimTime, `create table if not exists dim_time (
	date_sk            int not null,
	hour_sk            int not null,
	full_date          date not null,
	day_of_week        int not null,
	day_name           varchar(20) not null,
	day_of_month       int not null,
	month              int not null,
	month_name         varchar(20) not null,
	semester           int not null,
	year               int not null,
	hour_of_day        int not null,
	minute_of_hour     int not null,
	time_of_day_bucket varchar(50) not null,
	primary key (date_sk, hour_sk)
)`}

var dimUser = Table{constants.TableDimUser, `create table if not exists dim_user (
	user_sk           serial primary key,
	user_id           int unique not null,
	user_name         varchar(255),
	profile           varchar(50),
	course            varchar(100),
	phone_number      varchar(100),
	email             varchar(255),
	has_car           boolean not null,
	car_model         varchar(100),
	car_color         varchar(50),
	car_plate         varchar(20),
	user_location     varchar(255),
	cpf               varchar(20),
	app_platform      varchar(255),
	app_version       varchar(255),
	is_banned         boolean not null,
	institution_id    int,
	institution_name  varchar(255),
	institution_color varchar(10),
	created_at        timestamp,
	updated_at        timestamp,
	deleted_at        timestamp
)`}

var dimZone = Table{constants.TableDimZone, `create table if not exists dim_zone (
	zone_sk    serial primary key,
	zone_id    int unique not null,
	zone_name  varchar(100),
	zone_color varchar(10)
)`}

var dimNeighborhood = Table{constants.TableDimNeighborhood, `create table if not exists dim_neighborhood (
	neighborhood_sk    serial primary key,
	neighborhood_id    int unique not null,
	neighborhood_name  varchar(100) not null,
	distance_to_fundao numeric(10, 2),
	zone_id            int,
	zone_name          varchar(100),
	zone_color         varchar(10)
)`}

var dimHub = Table{constants.TableDimHub, `create table if not exists dim_hub (
	hub_sk                 serial primary key,
	hub_id                 int unique not null,
	hub_name               varchar(100) not null,
	center                 varchar(100),
	campus_id              int,
	campus_name            varchar(100),
	campus_color           varchar(10),
	campus_created_at      timestamp,
	campus_updated_at      timestamp,
	institution_id         int,
	institution_name       varchar(255),
	institution_created_at timestamp,
	institution_updated_at timestamp
)`}

var dimStatus = Table{constants.TableDimStatus, `create table if not exists dim_status_pedido (
	status_sk   serial primary key,
	status_name varchar(50) unique not null
)`}

var dimFlags = Table{constants.TableDimFlags, `create table if not exists dim_flags_carona (
	flags_carona_sk      serial primary key,
	is_routine_ride      boolean not null,
	is_going_to_campus   boolean not null,
	done                 boolean not null,
	is_routine_monday    boolean not null,
	is_routine_tuesday   boolean not null,
	is_routine_wednesday boolean not null,
	is_routine_thursday  boolean not null,
	is_routine_friday    boolean not null,
	is_routine_saturday  boolean not null,
	is_routine_sunday    boolean not null,
	flags_description    varchar(255) unique not null
)`}

var factCarona = Table{constants.TableFactCarona, `create table if not exists fato_carona (
	ride_pk                 serial primary key,
	ride_id                 int unique not null,
	driver_user_sk          int not null references dim_user (user_sk),
	neighborhood_sk         int not null references dim_neighborhood (neighborhood_sk),
	zone_sk                 int not null references dim_zone (zone_sk),
	hub_sk                  int not null references dim_hub (hub_sk),
	date_sk                 int not null,
	hour_sk                 int not null,
	flags_carona_sk         int not null references dim_flags_carona (flags_carona_sk),
	routine_id              int,
	slots                   int,
	repeats_until           timestamp,
	requests_count          int not null default 0,
	accepted_requests_count int not null default 0,
	refused_requests_count  int not null default 0,
	pending_requests_count  int not null default 0,
	quit_requests_count     int not null default 0,
	messages_count          int not null default 0,
	created_at              timestamp,
	updated_at              timestamp,
	deleted_at              timestamp,
	foreign key (date_sk, hour_sk) references dim_time (date_sk, hour_sk)
)`}

var factInteracao = Table{constants.TableFactInteracao, `create table if not exists fato_interacao_carona (
	interaction_pk        serial primary key,
	ride_user_id          int unique not null,
	ride_id               int not null,
	user_sk               int not null references dim_user (user_sk),
	date_sk               int not null,
	hour_sk               int not null,
	status_sk             int not null references dim_status_pedido (status_sk),
	is_driver_interaction boolean not null,
	is_passenger_request  boolean not null,
	request_accepted      boolean not null,
	request_refused       boolean not null,
	request_pending       boolean not null,
	request_quit          boolean not null,
	created_at            timestamp,
	updated_at            timestamp,
	foreign key (date_sk, hour_sk) references dim_time (date_sk, hour_sk)
)`}

// Tables returns every warehouse table with dimensions ahead of the facts that reference them.
func Tables() []Table {
	return []Table{dimTime, dimUser, dimZone, dimNeighborhood, dimHub, dimStatus, dimFlags, factCarona, factInteracao}
}

// Ensure creates the tables that do not exist yet in one transaction.
// Existing tables and their data are never dropped.
func Ensure(ctx context.Context, log logger.Logger, conn shared.Connector) (err error) {
	log.Info("Ensuring warehouse schema...")
	tx, err := conn.BeginTx(ctx)
	if err != nil {
		return errors.Wrap(err, "error starting schema transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for _, t := range Tables() {
		log.Debug("create table if not exists ", t.Name)
		if _, err = tx.ExecContext(ctx, t.DDL); err != nil {
			return errors.Wrapf(err, "error creating table %v", t.Name)
		}
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "error committing schema")
	}
	log.Info("Warehouse schema is ready.")
	return nil
}
