package dimensions

import (
	"context"
	"database/sql"

	"github.com/caronae/caronae-dw/constants"
	"github.com/caronae/caronae-dw/helper"
	"github.com/caronae/caronae-dw/loader"
	"github.com/caronae/caronae-dw/rdbms/shared"
)

// User is a row of dim_user.
type User struct {
	UserID           int64
	UserName         sql.NullString
	Profile          sql.NullString
	Course           sql.NullString
	PhoneNumber      sql.NullString
	Email            sql.NullString
	HasCar           bool
	CarModel         sql.NullString
	CarColor         sql.NullString
	CarPlate         sql.NullString
	UserLocation     sql.NullString
	Cpf              sql.NullString
	AppPlatform      sql.NullString
	AppVersion       sql.NullString
	IsBanned         bool
	InstitutionID    sql.NullInt64
	InstitutionName  sql.NullString
	InstitutionColor sql.NullString
	CreatedAt        sql.NullTime
	UpdatedAt        sql.NullTime
	DeletedAt        sql.NullTime
}

var UserTable = loader.Table{
	Name:    constants.TableDimUser,
	KeyCols: []string{"user_id"},
	OtherCols: []string{"user_name", "profile", "course", "phone_number", "email", "has_car",
		"car_model", "car_color", "car_plate", "user_location", "cpf", "app_platform", "app_version",
		"is_banned", "institution_id", "institution_name", "institution_color",
		"created_at", "updated_at", "deleted_at"},
}

func (u User) KeyValues() []interface{} {
	return []interface{}{u.UserID}
}

func (u User) OtherValues() []interface{} {
	return helper.NullValues(u.UserName, u.Profile, u.Course, u.PhoneNumber, u.Email, u.HasCar,
		u.CarModel, u.CarColor, u.CarPlate, u.UserLocation, u.Cpf, u.AppPlatform, u.AppVersion,
		u.IsBanned, u.InstitutionID, u.InstitutionName, u.InstitutionColor,
		u.CreatedAt, u.UpdatedAt, u.DeletedAt)
}

const userQuery = `select
	u.id,
	u.name,
	u.profile,
	u.course,
	u.phone_number,
	u.email,
	u.car_owner,
	u.car_model,
	u.car_color,
	u.car_plate,
	u.location,
	u.id_ufrj,
	u.app_platform,
	u.app_version,
	u.banned,
	i.id,
	i.name,
	i.color,
	u.created_at,
	u.updated_at,
	u.deleted_at
from users u
left join institutions i on u.institution_id = i.id`

type UserLoader struct {
	Deps
}

func (l *UserLoader) Name() string {
	return constants.TableDimUser
}

func (l *UserLoader) Load(ctx context.Context) (loader.Result, error) {
	return extractAndLoad(ctx, l.Deps, UserTable, userQuery, scanUser)
}

func scanUser(rows shared.Rows) (User, error) {
	var u User
	var hasCar, banned sql.NullBool
	err := rows.Scan(&u.UserID, &u.UserName, &u.Profile, &u.Course, &u.PhoneNumber, &u.Email,
		&hasCar, &u.CarModel, &u.CarColor, &u.CarPlate, &u.UserLocation, &u.Cpf,
		&u.AppPlatform, &u.AppVersion, &banned, &u.InstitutionID, &u.InstitutionName, &u.InstitutionColor,
		&u.CreatedAt, &u.UpdatedAt, &u.DeletedAt)
	if err != nil {
		return u, err
	}
	return normaliseUser(u, hasCar.Valid && hasCar.Bool, banned.Valid && banned.Bool), nil
}

// normaliseUser blanks car details for users without a car and turns empty strings into NULL.
func normaliseUser(u User, hasCar bool, banned bool) User {
	u.HasCar = hasCar
	u.IsBanned = banned
	u.UserName = helper.NullIfBlank(u.UserName)
	u.Profile = helper.NullIfBlank(u.Profile)
	u.Course = helper.NullIfBlank(u.Course)
	u.PhoneNumber = helper.NullIfBlank(u.PhoneNumber)
	u.Email = helper.NullIfBlank(u.Email)
	u.CarModel = helper.NullStringIf(hasCar, u.CarModel)
	u.CarColor = helper.NullStringIf(hasCar, u.CarColor)
	u.CarPlate = helper.NullStringIf(hasCar, u.CarPlate)
	u.UserLocation = helper.NullIfBlank(u.UserLocation)
	u.Cpf = helper.NullIfBlank(u.Cpf)
	u.AppPlatform = helper.NullIfBlank(u.AppPlatform)
	u.AppVersion = helper.NullIfBlank(u.AppVersion)
	u.InstitutionName = helper.NullIfBlank(u.InstitutionName)
	u.InstitutionColor = helper.NullIfBlank(u.InstitutionColor)
	return u
}
