// Package loader writes typed records to warehouse tables with batched, transactional upserts.
package loader

import (
	"context"
	"fmt"
	"strings"

	"github.com/caronae/caronae-dw/constants"
	"github.com/caronae/caronae-dw/helper"
	"github.com/caronae/caronae-dw/logger"
	"github.com/caronae/caronae-dw/rdbms"
	"github.com/caronae/caronae-dw/rdbms/shared"
	"github.com/pkg/errors"
)

// Row is a record that can be written by Upsert.
// KeyValues and OtherValues must match the order of Table.KeyCols and Table.OtherCols.
type Row interface {
	KeyValues() []interface{}
	OtherValues() []interface{}
}

// Table describes the target of an upsert.
type Table struct {
	Name      string   // [schema.]table
	KeyCols   []string // conflict target; must be covered by a unique constraint
	OtherCols []string // columns overwritten on conflict
	DoNothing bool     // keep existing rows as they are on conflict
}

// Result describes a completed upsert.
type Result struct {
	RowsSupplied int
	RowsLoaded   int
	Batches      int
}

// Upsert writes rows to the table in batches of batchSize inside one transaction.
// Rows sharing a business key are reduced to the last one supplied.
// Any error rolls back every batch and is returned.
func Upsert[R Row](ctx context.Context, log logger.Logger, conn shared.Connector, t Table, batchSize int, rows []R) (res Result, err error) {
	res.RowsSupplied = len(rows)
	if len(rows) == 0 {
		log.Debug("no rows to load into ", t.Name)
		return res, nil
	}
	tx, err := conn.BeginTx(ctx)
	if err != nil {
		return res, errors.Wrapf(err, "error starting transaction for %v", t.Name)
	}
	defer func() {
		if err != nil {
			Rollback(log, tx, t.Name)
			res.RowsLoaded = 0
		}
	}()
	if res, err = UpsertTx(ctx, log, conn.GetDmlGenerator(), tx, t, batchSize, rows); err != nil {
		return res, err
	}
	if err = tx.Commit(); err != nil {
		return res, errors.Wrapf(err, "error committing %v", t.Name)
	}
	log.Info("Loaded ", res.RowsLoaded, " rows into ", t.Name, " in ", res.Batches, " batches")
	return res, nil
}

// Rollback rolls back tx and logs the outcome.
func Rollback(log logger.Logger, tx shared.Transacter, name string) {
	if rbErr := tx.Rollback(); rbErr != nil {
		log.Error("error rolling back ", name, ": ", rbErr)
	} else {
		log.Warn("rolled back load of ", name)
	}
}

// UpsertTx is Upsert inside a transaction owned by the caller.
func UpsertTx[R Row](ctx context.Context, log logger.Logger, dml shared.DmlGenerator, tx shared.Transacter, t Table, batchSize int, rows []R) (res Result, err error) {
	res.RowsSupplied = len(rows)
	if len(rows) == 0 {
		return res, nil
	}
	batchSize = MaxBatchSize(log, t, batchSize)
	deduped, err := dedupe(t, rows)
	if err != nil {
		return res, err
	}
	if dropped := len(rows) - len(deduped); dropped > 0 {
		log.Debug("dropped ", dropped, " rows with repeated keys for ", t.Name)
	}
	st := rdbms.SchemaTable{SchemaTable: t.Name}
	gen, err := dml.NewUpsertGenerator(&shared.SqlStatementGeneratorConfig{
		Log:                 log,
		OutputSchema:        st.GetSchema(),
		OutputTable:         st.GetTable(),
		TargetKeyCols:       helper.StringSliceToOrderedMap(t.KeyCols),
		TargetOtherCols:     helper.StringSliceToOrderedMap(t.OtherCols),
		OnConflictDoNothing: t.DoNothing,
	})
	if err != nil {
		return res, errors.Wrapf(err, "error creating upsert generator for %v", t.Name)
	}
	batch, ok := gen.(shared.SqlStmtTxtBatcher)
	if !ok {
		return res, fmt.Errorf("the DML generator for %v cannot batch statements", t.Name)
	}
	exec := func() error {
		if batch.GetRowsInBatch() == 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx, batch.GetStatement(), batch.GetValues()...); err != nil {
			return errors.Wrapf(err, "error upserting batch %v into %v", res.Batches+1, t.Name)
		}
		res.Batches++
		res.RowsLoaded += batch.GetRowsInBatch()
		return nil
	}
	batch.InitBatch(batchSize)
	for _, r := range deduped {
		values := append(append(make([]interface{}, 0, len(t.KeyCols)+len(t.OtherCols)), r.KeyValues()...), r.OtherValues()...)
		var full bool
		if full, err = batch.AddValuesToBatch(values); err != nil {
			return res, errors.Wrapf(err, "error adding row to batch for %v", t.Name)
		}
		if full { // if the batch is full then exec it and start another...
			if err = exec(); err != nil {
				return res, err
			}
			batch.InitBatch(batchSize)
		}
	}
	if err = exec(); err != nil { // flush the last partial batch.
		return res, err
	}
	return res, nil
}

// MaxBatchSize returns batchSize limited so that one statement for t stays within the bind parameter limit.
// A batchSize of zero or less is the default.
func MaxBatchSize(log logger.Logger, t Table, batchSize int) int {
	if batchSize <= 0 {
		batchSize = constants.LoaderBatchSizeDefault
	}
	cols := len(t.KeyCols) + len(t.OtherCols)
	if cols == 0 {
		return batchSize
	}
	if limit := constants.LoaderMaxBindParams / cols; batchSize > limit {
		log.Debug("batch size for ", t.Name, " reduced from ", batchSize, " to ", limit, " rows")
		return limit
	}
	return batchSize
}

// dedupe keeps the last row per business key at the position the key was first seen.
func dedupe[R Row](t Table, rows []R) ([]R, error) {
	retval := make([]R, 0, len(rows))
	seen := make(map[string]int, len(rows))
	for _, r := range rows {
		kv := r.KeyValues()
		if len(kv) != len(t.KeyCols) {
			return nil, fmt.Errorf("row for %v has %v key values, expected %v", t.Name, len(kv), len(t.KeyCols))
		}
		k := keyString(kv)
		if idx, ok := seen[k]; ok {
			retval[idx] = r
			continue
		}
		seen[k] = len(retval)
		retval = append(retval, r)
	}
	return retval, nil
}

func keyString(values []interface{}) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%T:%v", v, v)
	}
	return strings.Join(parts, "\x00")
}
