package rdbms

import (
	"context"
	"fmt"

	"github.com/caronae/caronae-dw/logger"
	"github.com/caronae/caronae-dw/rdbms/shared"
)

// RowHandler is called once per row returned by SqlQuery.
// It should Scan the current row into its own variables.
type RowHandler func(rows shared.Rows) error

// SqlQuery runs sqltext with args and calls fn for each row.
// The rows are always closed.
func SqlQuery(ctx context.Context, log logger.Logger, db shared.Connector, sqltext string, args []interface{}, fn RowHandler) (numRows int, err error) {
	log.Trace("running query: ", sqltext)
	rows, err := db.QueryContext(ctx, sqltext, args...)
	if err != nil {
		return 0, fmt.Errorf("error during database query using SQL: '%v': %w", sqltext, err)
	}
	defer func() {
		_ = rows.Close()
	}()
	for rows.Next() {
		if err = ctx.Err(); err != nil { // quit if asked to, else continue...
			return numRows, err
		}
		if err = fn(rows); err != nil {
			return numRows, err
		}
		numRows++
	}
	if err = rows.Err(); err != nil {
		return numRows, fmt.Errorf("error fetching rows: %w", err)
	}
	log.Debug("query returned ", numRows, " rows")
	return numRows, nil
}
