package rdbms

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/caronae/caronae-dw/constants"
	"github.com/caronae/caronae-dw/logger"
	"github.com/caronae/caronae-dw/rdbms/shared"
	_ "github.com/lib/pq"
	"github.com/xo/dburl"
)

// supportedDsnConnectionTypes is a map where keys are the supported connections based on values in module constants.
var supportedDsnConnectionTypes = map[string]struct{}{
	constants.ConnectionTypePostgres: {},
	"postgresql":                     {},
	"pg":                             {},
}

// isSupportedConnection returns true if it can look up the supplied connection type t in map of supported
// connections supportedDsnConnectionTypes.
func isSupportedConnection(connectionType string) bool {
	_, ok := supportedDsnConnectionTypes[connectionType]
	return ok
}

// OpenDbConnection opens a database connection using the supplied ConnectionDetails struct in c.
func OpenDbConnection(ctx context.Context, log logger.Logger, c shared.ConnectionDetails) (db shared.Connector, err error) {
	log.Debug("opening connection type ", c.Type, " with logicalName ", c.LogicalName) // don't log password details in c.Data!
	switch {
	case c.Type == constants.ConnectionTypeMockPostgres:
		db = shared.NewMockConnection(log)
	case isSupportedConnection(c.Type):
		db, err = newConnectionWithDsn(ctx, log, shared.GetDsnConnectionDetails(&c))
	default: // else we have an unsupported database...
		err = fmt.Errorf("unsupported database type, %q", c.Type)
	}
	return
}

func newConnectionWithDsn(ctx context.Context, log logger.Logger, d *shared.DsnConnectionDetails) (shared.Connector, error) {
	log.Info("Opening database connection: ", d)
	u, err := dburl.Parse(d.Dsn)
	if err != nil { // if the DSN could not be parsed...
		return nil, fmt.Errorf("error parsing DSN %q: %w", d, err)
	}
	// Create the new Connector.
	conn := &shared.HpConnection{
		Dml:    &shared.DmlGeneratorTxtBatch{},
		DbType: u.OriginalScheme,
	}
	// Open the connection.
	conn.DbSql, err = sql.Open(u.Driver, u.DSN)
	if err != nil {
		return nil, err
	}
	// Test the connection.
	if err = conn.DbSql.PingContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	log.Info("Successful connection to: ", d)
	return conn, nil
}

// DsnConnectionFactory opens connections to the source OLTP database and the warehouse.
// Every call opens a fresh connection that the caller must Close.
type DsnConnectionFactory struct {
	Log       logger.Logger
	Source    shared.ConnectionDetails
	Warehouse shared.ConnectionDetails
}

func (f *DsnConnectionFactory) OpenSource(ctx context.Context) (shared.Connector, error) {
	return OpenDbConnection(ctx, f.Log, f.Source)
}

func (f *DsnConnectionFactory) OpenWarehouse(ctx context.Context) (shared.Connector, error) {
	return OpenDbConnection(ctx, f.Log, f.Warehouse)
}

// MockConnectionFactory hands out the same pair of mock connections on every call.
type MockConnectionFactory struct {
	Source       *shared.MockConnection
	Warehouse    *shared.MockConnection
	SourceErr    error
	WarehouseErr error
}

func (f *MockConnectionFactory) OpenSource(ctx context.Context) (shared.Connector, error) {
	if f.SourceErr != nil {
		return nil, f.SourceErr
	}
	return f.Source, nil
}

func (f *MockConnectionFactory) OpenWarehouse(ctx context.Context) (shared.Connector, error) {
	if f.WarehouseErr != nil {
		return nil, f.WarehouseErr
	}
	return f.Warehouse, nil
}
