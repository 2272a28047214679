package shared

import (
	"context"
)

// Connector abstracts all access to Go SQL functionality.
type Connector interface {
	// Go SQL entry points:
	Begin() (Transacter, error)
	BeginTx(ctx context.Context) (Transacter, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (Rows, error)
	Close()
	// Warehouse functionality:
	GetType() string
	GetDmlGenerator() DmlGenerator
}

type Transacter interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (Result, error)
	Commit() error
	Rollback() error
}

// Interfaces to abstract Go SQL library return values so the mock connection can stand in for database/sql.

type Result interface {
	LastInsertId() (int64, error)
	RowsAffected() (int64, error)
}

type Rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Columns() ([]string, error)
	Err() error
	Close() error
}

// More warehouse specific interfaces.

type DmlGenerator interface {
	NewUpsertGenerator(cfg *SqlStatementGeneratorConfig) (SqlStmtGenerator, error)
}

// SqlStmtGenerator is used as part of SqlStmtTxtBatcher.
// This is implemented by:
//   Connector.GetDmlGenerator() DmlGenerator -> NewUpsertGenerator() SqlStmtGenerator.
type SqlStmtGenerator interface {
	GetStatement() string
}

// SqlStmtTxtBatcher is used to combine DML statements that affect individual records into one statement, aiming
// to improve performance and reduce network round trips.
type SqlStmtTxtBatcher interface {
	SqlStmtGenerator
	InitBatch(batchSize int)                             // reset variables and preallocate slices for the given batch size.
	AddValuesToBatch(values []interface{}) (bool, error) // add values to SQL statement.
	GetValues() []interface{}                            // get all values added to the batch so they can be supplied as args to exec the SQL returned by getStatement().
	GetRowsInBatch() int                                 // number of rows added since InitBatch.
}

type ConnectionGetter interface {
	LoadConnection(name string) (ConnectionDetails, error)
}

// ConnectionFactory opens a new Connector for the supplied logical database.
// Each pipeline step opens its own connections and closes them when it is done.
type ConnectionFactory interface {
	OpenSource(ctx context.Context) (Connector, error)
	OpenWarehouse(ctx context.Context) (Connector, error)
}
