package shared

import (
	"github.com/caronae/caronae-dw/logger"
	om "github.com/cevaris/ordered_map"
)

const strBindChar string = "$"

type DmlGeneratorTxtBatch struct{}

type SqlStatementGeneratorConfig struct {
	Log                 logger.Logger
	OutputSchema        string
	SchemaSeparator     string
	OutputTable         string
	TargetKeyCols       *om.OrderedMap // ordered map of: key = record field name; value = target table column name
	TargetOtherCols     *om.OrderedMap // ordered map of: key = record field name; value = target table column name
	OnConflictDoNothing bool           // leave existing rows untouched instead of updating TargetOtherCols
}

type sqlCoreCfg struct {
	sqlStmt                string
	sqlStmtTemplate        string
	sqlValues              []interface{} // slice to hold data values for all rows in batch
	batchSize              int
	rowsInBatch            int
	previousNumRowsInBatch int
}
