package dimensions

import (
	"context"
	"database/sql"

	"github.com/caronae/caronae-dw/constants"
	"github.com/caronae/caronae-dw/helper"
	"github.com/caronae/caronae-dw/loader"
	"github.com/caronae/caronae-dw/rdbms/shared"
)

// Zone is a row of dim_zone.
type Zone struct {
	ZoneID    int64
	ZoneName  sql.NullString
	ZoneColor sql.NullString
}

var ZoneTable = loader.Table{
	Name:      constants.TableDimZone,
	KeyCols:   []string{"zone_id"},
	OtherCols: []string{"zone_name", "zone_color"},
}

func (z Zone) KeyValues() []interface{}   { return []interface{}{z.ZoneID} }
func (z Zone) OtherValues() []interface{} { return helper.NullValues(z.ZoneName, z.ZoneColor) }

type ZoneLoader struct {
	Deps
}

func (l *ZoneLoader) Name() string {
	return constants.TableDimZone
}

func (l *ZoneLoader) Load(ctx context.Context) (loader.Result, error) {
	return extractAndLoad(ctx, l.Deps, ZoneTable, "select id, name, color from zones", func(rows shared.Rows) (Zone, error) {
		var z Zone
		err := rows.Scan(&z.ZoneID, &z.ZoneName, &z.ZoneColor)
		z.ZoneName = helper.NullIfBlank(z.ZoneName)
		z.ZoneColor = helper.NullIfBlank(z.ZoneColor)
		return z, err
	})
}

// Neighborhood is a row of dim_neighborhood with its zone denormalised.
type Neighborhood struct {
	NeighborhoodID   int64
	NeighborhoodName string
	DistanceToFundao sql.NullFloat64
	ZoneID           sql.NullInt64
	ZoneName         sql.NullString
	ZoneColor        sql.NullString
}

var NeighborhoodTable = loader.Table{
	Name:      constants.TableDimNeighborhood,
	KeyCols:   []string{"neighborhood_id"},
	OtherCols: []string{"neighborhood_name", "distance_to_fundao", "zone_id", "zone_name", "zone_color"},
}

func (n Neighborhood) KeyValues() []interface{} { return []interface{}{n.NeighborhoodID} }
func (n Neighborhood) OtherValues() []interface{} {
	return helper.NullValues(n.NeighborhoodName, n.DistanceToFundao, n.ZoneID, n.ZoneName, n.ZoneColor)
}

const neighborhoodQuery = `select
	n.id,
	n.name,
	n.distance,
	n.zone_id,
	z.name,
	z.color
from neighborhoods n
left join zones z on n.zone_id = z.id`

type NeighborhoodLoader struct {
	Deps
}

func (l *NeighborhoodLoader) Name() string {
	return constants.TableDimNeighborhood
}

func (l *NeighborhoodLoader) Load(ctx context.Context) (loader.Result, error) {
	return extractAndLoad(ctx, l.Deps, NeighborhoodTable, neighborhoodQuery, func(rows shared.Rows) (Neighborhood, error) {
		var n Neighborhood
		var name sql.NullString
		err := rows.Scan(&n.NeighborhoodID, &name, &n.DistanceToFundao, &n.ZoneID, &n.ZoneName, &n.ZoneColor)
		n.NeighborhoodName = textOrUnknown(name)
		n.ZoneName = helper.NullIfBlank(n.ZoneName)
		n.ZoneColor = helper.NullIfBlank(n.ZoneColor)
		return n, err
	})
}

// Hub is a row of dim_hub with its campus and institution denormalised.
type Hub struct {
	HubID                int64
	HubName              string
	Center               sql.NullString
	CampusID             sql.NullInt64
	CampusName           sql.NullString
	CampusColor          sql.NullString
	CampusCreatedAt      sql.NullTime
	CampusUpdatedAt      sql.NullTime
	InstitutionID        sql.NullInt64
	InstitutionName      sql.NullString
	InstitutionCreatedAt sql.NullTime
	InstitutionUpdatedAt sql.NullTime
}

var HubTable = loader.Table{
	Name:    constants.TableDimHub,
	KeyCols: []string{"hub_id"},
	OtherCols: []string{"hub_name", "center", "campus_id", "campus_name", "campus_color",
		"campus_created_at", "campus_updated_at", "institution_id", "institution_name",
		"institution_created_at", "institution_updated_at"},
}

func (h Hub) KeyValues() []interface{} { return []interface{}{h.HubID} }
func (h Hub) OtherValues() []interface{} {
	return helper.NullValues(h.HubName, h.Center, h.CampusID, h.CampusName, h.CampusColor,
		h.CampusCreatedAt, h.CampusUpdatedAt, h.InstitutionID, h.InstitutionName,
		h.InstitutionCreatedAt, h.InstitutionUpdatedAt)
}

const hubQuery = `select
	h.id,
	h.name,
	h.center,
	h.campus_id,
	c.name,
	c.color,
	c.created_at,
	c.updated_at,
	c.institution_id,
	i.name,
	i.created_at,
	i.updated_at
from hubs h
left join campi c on h.campus_id = c.id
left join institutions i on c.institution_id = i.id`

type HubLoader struct {
	Deps
}

func (l *HubLoader) Name() string {
	return constants.TableDimHub
}

func (l *HubLoader) Load(ctx context.Context) (loader.Result, error) {
	return extractAndLoad(ctx, l.Deps, HubTable, hubQuery, func(rows shared.Rows) (Hub, error) {
		var h Hub
		var name sql.NullString
		err := rows.Scan(&h.HubID, &name, &h.Center, &h.CampusID, &h.CampusName, &h.CampusColor,
			&h.CampusCreatedAt, &h.CampusUpdatedAt, &h.InstitutionID, &h.InstitutionName,
			&h.InstitutionCreatedAt, &h.InstitutionUpdatedAt)
		h.HubName = textOrUnknown(name)
		h.Center = helper.NullIfBlank(h.Center)
		h.CampusName = helper.NullIfBlank(h.CampusName)
		h.CampusColor = helper.NullIfBlank(h.CampusColor)
		h.InstitutionName = helper.NullIfBlank(h.InstitutionName)
		return h, err
	})
}

// textOrUnknown is for mandatory names: blank becomes the unknown member text.
func textOrUnknown(s sql.NullString) string {
	if n := helper.NullIfBlank(s); n.Valid {
		return n.String
	}
	return constants.UnknownMemberText
}
