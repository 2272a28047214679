package constants

// General

const (
	AppName                      = "caronae-dw"
	EnvVarPrefix                 = "CDW" // prefixed for environment variables in twelveFactorMode
	StatsCaptureFrequencySeconds = 5
	ConnectionTypePostgres       = "postgres"
	ConnectionTypeMockPostgres   = "mockPostgres"
	ConnectionTypeS3             = "s3"
)

// Watermark

const (
	WatermarkLayout          = "2006-01-02 15:04:05.000000" // text format persisted in the watermark file
	WatermarkDefaultFileName = "last_etl_run.txt"
	WatermarkSafetyMinutes   = 5
	WatermarkTypeFile        = "file"
	WatermarkTypeS3          = "s3"
	WatermarkTypeWarehouse   = "warehouse"
)

// Warehouse

const (
	UnknownMemberSK           = -1
	UnknownMemberBK           = -1
	UnknownMemberText         = "Desconhecido"
	UnknownMemberColor        = "#000000"
	UnknownMemberDate         = "1900-01-01"
	LoaderBatchSizeDefault    = 500
	LoaderMaxBindParams       = 65535 // PostgreSQL limit per statement
	TimeDimensionStartDefault = "2016-04-01"
	TimeDimensionYearsAhead   = 1 // a blank end rolls forward to Dec 31 of the year after the run
	DateLayout                = "2006-01-02"
	FlagsMissPolicyFail       = "fail"
	FlagsMissPolicyUnknown    = "unknown"
)

// Table names.

const (
	TableDimTime         = "dim_time"
	TableDimUser         = "dim_user"
	TableDimZone         = "dim_zone"
	TableDimNeighborhood = "dim_neighborhood"
	TableDimHub          = "dim_hub"
	TableDimStatus       = "dim_status_pedido"
	TableDimFlags        = "dim_flags_carona"
	TableFactCarona      = "fato_carona"
	TableFactInteracao   = "fato_interacao_carona"
)

// Ride request statuses found in ride_user.status.

const (
	StatusDriver   = "driver"
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRefused  = "refused"
	StatusQuit     = "quit"
)

// StatusVocabulary is the closed set of ride_user statuses loaded into dim_status_pedido.
var StatusVocabulary = []string{StatusDriver, StatusPending, StatusAccepted, StatusRefused, StatusQuit}
