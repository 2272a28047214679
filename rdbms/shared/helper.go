package shared

import (
	"github.com/pkg/errors"
)

func FixSqlStatementGeneratorConfig(cfg *SqlStatementGeneratorConfig) error {
	if cfg.OutputTable == "" {
		return errors.New("missing output table name")
	}
	if cfg.TargetKeyCols == nil || cfg.TargetKeyCols.Len() == 0 {
		return errors.Errorf("missing key columns for table %v", cfg.OutputTable)
	}
	if cfg.OutputSchema == "" {
		cfg.SchemaSeparator = ""
		cfg.Log.Debug("No output schema supplied; setting a blank separator.")
	} else {
		cfg.SchemaSeparator = "."
	}
	return nil
}
