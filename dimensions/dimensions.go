// Package dimensions loads the warehouse dimension tables.
//
// Source backed dimensions (users, zones, neighborhoods and hubs) are fully extracted on every run and
// upserted by business key, overwriting attributes in place. Statuses come from a fixed vocabulary.
// The time and flags dimensions are generated rather than extracted.
package dimensions

import (
	"context"

	"github.com/caronae/caronae-dw/loader"
	"github.com/caronae/caronae-dw/logger"
	"github.com/caronae/caronae-dw/rdbms"
	"github.com/caronae/caronae-dw/rdbms/shared"
	"github.com/pkg/errors"
)

// Deps are the collaborators shared by every dimension loader.
type Deps struct {
	Log       logger.Logger
	Factory   shared.ConnectionFactory
	BatchSize int
}

// Loader loads one dimension.
type Loader interface {
	Name() string
	Load(ctx context.Context) (loader.Result, error)
}

// extractAndLoad runs query against the source, converts each row with scan and upserts the records.
// Each connection is opened for this load only and closed before returning.
func extractAndLoad[R loader.Row](ctx context.Context, d Deps, t loader.Table, query string, scan func(shared.Rows) (R, error)) (loader.Result, error) {
	records, err := extract(ctx, d, t.Name, query, scan)
	if err != nil {
		return loader.Result{}, err
	}
	return load(ctx, d, t, records)
}

func extract[R any](ctx context.Context, d Deps, name string, query string, scan func(shared.Rows) (R, error)) ([]R, error) {
	src, err := d.Factory.OpenSource(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening source for %v", name)
	}
	defer src.Close()
	var records []R
	_, err = rdbms.SqlQuery(ctx, d.Log, src, query, nil, func(rows shared.Rows) error {
		r, err := scan(rows)
		if err != nil {
			return err
		}
		records = append(records, r)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "error extracting %v", name)
	}
	d.Log.Info("Extracted ", len(records), " rows for ", name)
	return records, nil
}

func load[R loader.Row](ctx context.Context, d Deps, t loader.Table, records []R) (loader.Result, error) {
	dw, err := d.Factory.OpenWarehouse(ctx)
	if err != nil {
		return loader.Result{}, errors.Wrapf(err, "error opening warehouse for %v", t.Name)
	}
	defer dw.Close()
	return loader.Upsert(ctx, d.Log, dw, t, d.BatchSize, records)
}

// countRealRows returns the number of non-sentinel rows in table, using keyCol to tell them apart.
func countRealRows(ctx context.Context, log logger.Logger, conn shared.Connector, table string, keyCol string) (int64, error) {
	var n int64
	_, err := rdbms.SqlQuery(ctx, log, conn, "select count(*) from "+table+" where "+keyCol+" >= 0", nil, func(rows shared.Rows) error {
		return rows.Scan(&n)
	})
	return n, err
}
