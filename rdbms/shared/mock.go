package shared

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/caronae/caronae-dw/constants"
	"github.com/caronae/caronae-dw/logger"
	"github.com/pkg/errors"
)

// MockStatement is a SQL statement seen by a MockConnection.
type MockStatement struct {
	Sql  string
	Args []interface{}
	InTx bool
}

// MockQueryResult is served to QueryContext calls whose SQL contains Match.
type MockQueryResult struct {
	Match   string
	Columns []string
	Rows    [][]interface{}
	Err     error
}

// MockConnection implements Connector without a database.
// It records every statement executed and serves canned query results.
type MockConnection struct {
	Log          logger.Logger
	DbType       string
	Dml          DmlGenerator
	BeginErr     error
	CommitErr    error
	ExecErrors   map[string]error // SQL substring -> error returned by ExecContext.
	Results      []MockQueryResult
	mu           sync.Mutex
	execs        []MockStatement
	queries      []MockStatement
	txs          []*MockTx
	closeCount   int
	rowsAffected int64
}

// NewMockConnection returns a MockConnection that generates PostgreSQL DML.
func NewMockConnection(log logger.Logger) *MockConnection {
	return &MockConnection{
		Log:          log,
		DbType:       constants.ConnectionTypeMockPostgres,
		Dml:          &DmlGeneratorTxtBatch{},
		ExecErrors:   make(map[string]error),
		rowsAffected: 1,
	}
}

// AddResult registers canned rows for queries containing match.
// Later registrations win over earlier ones for the same match.
func (c *MockConnection) AddResult(match string, columns []string, rows ...[]interface{}) *MockConnection {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Results = append([]MockQueryResult{{Match: match, Columns: columns, Rows: rows}}, c.Results...)
	return c
}

// FailExec causes ExecContext to return err for statements containing match.
func (c *MockConnection) FailExec(match string, err error) *MockConnection {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ExecErrors[match] = err
	return c
}

func (c *MockConnection) Begin() (Transacter, error) {
	return c.BeginTx(context.Background())
}

func (c *MockConnection) BeginTx(ctx context.Context) (Transacter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.BeginErr != nil {
		return nil, c.BeginErr
	}
	tx := &MockTx{conn: c}
	c.txs = append(c.txs, tx)
	return tx, nil
}

func (c *MockConnection) ExecContext(ctx context.Context, query string, args ...interface{}) (Result, error) {
	return c.exec(ctx, false, query, args)
}

func (c *MockConnection) exec(ctx context.Context, inTx bool, query string, args []interface{}) (Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.execs = append(c.execs, MockStatement{Sql: query, Args: args, InTx: inTx})
	if c.Log != nil {
		c.Log.Trace("mock exec: ", query)
	}
	for match, err := range c.ExecErrors {
		if strings.Contains(query, match) {
			return nil, err
		}
	}
	return MockResult{rows: c.rowsAffected}, nil
}

func (c *MockConnection) QueryContext(ctx context.Context, query string, args ...interface{}) (Rows, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, MockStatement{Sql: query, Args: args})
	for _, r := range c.Results {
		if strings.Contains(query, r.Match) {
			if r.Err != nil {
				return nil, r.Err
			}
			return &MockRows{columns: r.Columns, rows: r.Rows, idx: -1}, nil
		}
	}
	return &MockRows{idx: -1}, nil // no match returns an empty result set.
}

func (c *MockConnection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeCount++
}

func (c *MockConnection) GetType() string {
	return c.DbType
}

func (c *MockConnection) GetDmlGenerator() DmlGenerator {
	return c.Dml
}

// Execs returns all statements executed so far, inside and outside transactions.
func (c *MockConnection) Execs() []MockStatement {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]MockStatement(nil), c.execs...)
}

// ExecsMatching returns executed statements whose SQL contains match.
func (c *MockConnection) ExecsMatching(match string) []MockStatement {
	var retval []MockStatement
	for _, e := range c.Execs() {
		if strings.Contains(e.Sql, match) {
			retval = append(retval, e)
		}
	}
	return retval
}

// Queries returns all queries issued so far.
func (c *MockConnection) Queries() []MockStatement {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]MockStatement(nil), c.queries...)
}

// Txs returns the transactions begun so far.
func (c *MockConnection) Txs() []*MockTx {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*MockTx(nil), c.txs...)
}

// CloseCount is the number of times Close was called.
func (c *MockConnection) CloseCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCount
}

// MockTx implements Transacter for MockConnection.
type MockTx struct {
	conn       *MockConnection
	Committed  bool
	RolledBack bool
}

func (t *MockTx) ExecContext(ctx context.Context, query string, args ...interface{}) (Result, error) {
	if t.Committed || t.RolledBack {
		return nil, sql.ErrTxDone
	}
	return t.conn.exec(ctx, true, query, args)
}

func (t *MockTx) Commit() error {
	if t.Committed || t.RolledBack {
		return sql.ErrTxDone
	}
	t.conn.mu.Lock()
	err := t.conn.CommitErr
	t.conn.mu.Unlock()
	if err != nil {
		t.RolledBack = true
		return err
	}
	t.Committed = true
	return nil
}

func (t *MockTx) Rollback() error {
	if t.Committed || t.RolledBack {
		return sql.ErrTxDone
	}
	t.RolledBack = true
	return nil
}

type MockResult struct {
	rows int64
}

func (r MockResult) LastInsertId() (int64, error) {
	return 0, errors.New("LastInsertId is not supported")
}

func (r MockResult) RowsAffected() (int64, error) {
	return r.rows, nil
}

// MockRows implements Rows over canned values.
type MockRows struct {
	columns []string
	rows    [][]interface{}
	idx     int
	closed  bool
}

func (r *MockRows) Next() bool {
	if r.closed {
		return false
	}
	r.idx++
	return r.idx < len(r.rows)
}

func (r *MockRows) Columns() ([]string, error) {
	return r.columns, nil
}

func (r *MockRows) Err() error {
	return nil
}

func (r *MockRows) Close() error {
	r.closed = true
	return nil
}

// Scan copies the current row into dest the way database/sql does for the common types.
func (r *MockRows) Scan(dest ...interface{}) error {
	if r.idx < 0 || r.idx >= len(r.rows) {
		return errors.New("Scan called without calling Next")
	}
	row := r.rows[r.idx]
	if len(dest) != len(row) {
		return fmt.Errorf("expected %d destination arguments in Scan, not %d", len(row), len(dest))
	}
	for i, v := range row {
		if err := assignMockValue(dest[i], v); err != nil {
			return errors.Wrapf(err, "Scan error on column index %d", i)
		}
	}
	return nil
}

func assignMockValue(dest interface{}, src interface{}) error {
	if s, ok := dest.(sql.Scanner); ok {
		return s.Scan(normaliseMockValue(src))
	}
	switch d := dest.(type) {
	case *interface{}:
		*d = src
		return nil
	case *string:
		switch s := src.(type) {
		case string:
			*d = s
			return nil
		case []byte:
			*d = string(s)
			return nil
		}
	case *time.Time:
		if t, ok := src.(time.Time); ok {
			*d = t
			return nil
		}
	case *bool:
		if b, ok := src.(bool); ok {
			*d = b
			return nil
		}
	case *float64:
		switch f := normaliseMockValue(src).(type) {
		case float64:
			*d = f
			return nil
		case int64:
			*d = float64(f)
			return nil
		}
	case *int64:
		if i, ok := normaliseMockValue(src).(int64); ok {
			*d = i
			return nil
		}
	case *int:
		if i, ok := normaliseMockValue(src).(int64); ok {
			*d = int(i)
			return nil
		}
	}
	return fmt.Errorf("unsupported Scan, storing driver.Value type %T into type %T", src, dest)
}

// normaliseMockValue converts src to the types a database/sql driver would return.
func normaliseMockValue(src interface{}) interface{} {
	if src == nil {
		return nil
	}
	v := reflect.ValueOf(src)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return v.Float()
	}
	return src
}
