package watermark

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/caronae/caronae-dw/constants"
	"github.com/caronae/caronae-dw/logger"
	"github.com/caronae/caronae-dw/rdbms"
	"github.com/caronae/caronae-dw/rdbms/shared"
	"github.com/pkg/errors"
)

// WarehouseStore derives the watermark from the newest updated_at in the fact tables, less a safety buffer.
// The facts are the mark, so Write and Reset do nothing.
type WarehouseStore struct {
	Log     logger.Logger
	Factory shared.ConnectionFactory
	Tables  []string
	Buffer  time.Duration
}

func NewWarehouseStore(log logger.Logger, factory shared.ConnectionFactory) *WarehouseStore {
	return &WarehouseStore{
		Log:     log,
		Factory: factory,
		Tables:  []string{constants.TableFactCarona, constants.TableFactInteracao},
		Buffer:  constants.WatermarkSafetyMinutes * time.Minute,
	}
}

func (s *WarehouseStore) query() string {
	parts := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		parts[i] = fmt.Sprintf("select max(updated_at) as max_updated_at from %v", t)
	}
	return fmt.Sprintf("select max(max_updated_at) from (%v) w", strings.Join(parts, " union all "))
}

func (s *WarehouseStore) Read(ctx context.Context) (time.Time, error) {
	conn, err := s.Factory.OpenWarehouse(ctx)
	if err != nil {
		return time.Time{}, errors.Wrap(err, "error opening warehouse to derive watermark")
	}
	defer conn.Close()
	var maxUpdated sql.NullTime
	_, err = rdbms.SqlQuery(ctx, s.Log, conn, s.query(), nil, func(rows shared.Rows) error {
		return rows.Scan(&maxUpdated)
	})
	if err != nil {
		return time.Time{}, errors.Wrap(err, "error deriving watermark from facts")
	}
	if !maxUpdated.Valid { // if the facts are empty...
		return Parse(s.Log, ""), nil
	}
	// updated_at is timestamp without time zone holding local wall clock time; drivers hand it back as UTC.
	m := maxUpdated.Time
	t := time.Date(m.Year(), m.Month(), m.Day(), m.Hour(), m.Minute(), m.Second(), m.Nanosecond(), time.Local).Add(-s.Buffer)
	s.Log.Info("Derived watermark ", Format(t), " from fact tables")
	return t, nil
}

func (s *WarehouseStore) Write(ctx context.Context, t time.Time) error {
	s.Log.Debug("warehouse watermark is derived from facts; nothing to write")
	return nil
}

func (s *WarehouseStore) Reset(ctx context.Context) error {
	s.Log.Warn("warehouse watermark is derived from facts and cannot be reset")
	return nil
}
