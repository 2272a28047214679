package shared

import (
	"fmt"
	"strings"

	h "github.com/caronae/caronae-dw/helper"
	"github.com/pkg/errors"
)

// SqlUpsertTxtBatch is the PostgreSQL implementation of interface SqlStmtTxtBatcher.
// It generates multi-row INSERT ... ON CONFLICT statements with batches of rows supplied.
type SqlUpsertTxtBatch struct {
	SqlStatementGeneratorConfig // mandatory to be populated.
	sqlCoreCfg
	ColList   []string // list of columns extracted from SqlStatementGeneratorConfig.
	keyList   []string
	otherList []string
}

// NewUpsertGenerator creates a new SqlStmtGenerator that implements interface SqlStmtTxtBatcher.
// Configure defaults in SqlStatementGeneratorConfig.
func (*DmlGeneratorTxtBatch) NewUpsertGenerator(cfg *SqlStatementGeneratorConfig) (SqlStmtGenerator, error) {
	if err := FixSqlStatementGeneratorConfig(cfg); err != nil {
		return nil, err
	}
	cfg.Log.Debug("Creating NewUpsertGenerator for table ", cfg.OutputTable)
	o := &SqlUpsertTxtBatch{SqlStatementGeneratorConfig: *cfg}
	o.setupSqlStatement()
	return o, nil
}

func (o *SqlUpsertTxtBatch) setupSqlStatement() {
	// Build the list of column names.
	o.keyList = make([]string, o.TargetKeyCols.Len())
	idx := 0
	h.OrderedMapValuesToStringSlice(o.Log, o.TargetKeyCols, &o.keyList, &idx)
	numOther := 0
	if o.TargetOtherCols != nil {
		numOther = o.TargetOtherCols.Len()
	}
	o.otherList = make([]string, numOther)
	if numOther > 0 {
		idx = 0
		h.OrderedMapValuesToStringSlice(o.Log, o.TargetOtherCols, &o.otherList, &idx)
	}
	o.ColList = append(append(make([]string, 0, len(o.keyList)+len(o.otherList)), o.keyList...), o.otherList...)
	// Populate the SQL template.
	o.sqlStmtTemplate = `insert into <SCHEMA><SEPARATOR><TABLE> (<TGT-COLS>) values <VALUES> on conflict (<KEY-COLS>) <ACTION>`
	o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<SCHEMA>", o.OutputSchema, 1)
	o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<SEPARATOR>", o.SchemaSeparator, 1)
	o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<TABLE>", o.OutputTable, 1)
	o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<TGT-COLS>", strings.Join(o.ColList, ","), 1)
	o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<KEY-COLS>", strings.Join(o.keyList, ","), 1)
	if o.OnConflictDoNothing || len(o.otherList) == 0 { // if there is nothing to update...
		o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<ACTION>", "do nothing", 1)
	} else {
		o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<ACTION>",
			"do update set "+strings.Join(h.GenerateSliceOfColsEqualCols(o.otherList, "", "excluded"), ", "), 1)
	}
	o.Log.Debug("setup UPSERT generator with SQL (VALUES pending): ", o.sqlStmtTemplate)
}

func (o *SqlUpsertTxtBatch) InitBatch(batchSize int) {
	o.Log.Debug("initBatch() for UPSERT...")
	if batchSize < 1 {
		batchSize = 1
	}
	o.batchSize = batchSize
	o.rowsInBatch = 0
	// Allocate a new buffer to hold all values (args) to exec.
	o.sqlValues = make([]interface{}, 0, o.batchSize*len(o.ColList)) // many values per row in a batch.
	o.Log.Debug("batchSize = ", o.batchSize, "; colList = ", o.ColList)
}

func (o *SqlUpsertTxtBatch) AddValuesToBatch(values []interface{}) (batchIsFull bool, err error) {
	if o.rowsInBatch >= o.batchSize {
		err = errors.New("no more rows allowed in UPSERT batch")
		batchIsFull = true
		return
	}
	if len(values) != len(o.ColList) {
		err = errors.Errorf("the number of values supplied (%v) does not match the number of table columns (%v)", len(values), len(o.ColList))
		return
	}
	// Append values to buffer.
	o.sqlValues = append(o.sqlValues, values...)
	o.rowsInBatch++                            // keep track of how close we are to the batch limit.
	batchIsFull = o.rowsInBatch >= o.batchSize // caller should exec SQL when the batch is full.
	return
}

func (o *SqlUpsertTxtBatch) GetValues() []interface{} {
	return o.sqlValues
}

func (o *SqlUpsertTxtBatch) GetRowsInBatch() int {
	return o.rowsInBatch
}

func (o *SqlUpsertTxtBatch) GetStatement() string {
	if o.previousNumRowsInBatch != o.rowsInBatch || o.sqlStmt == "" { // if we have a new number of rows and need to generate SQL...
		allRows := strings.Builder{}
		valIdx := 1
		for rowIdx := 0; rowIdx < o.rowsInBatch; rowIdx++ { // for each row...
			// Build the current row of bind variables: ,$1,$2,$3  <<< trim left comma later.
			row := strings.Builder{}
			for idy := 0; idy < len(o.ColList); idy++ {
				row.WriteString(fmt.Sprintf(",%v%v", strBindChar, valIdx))
				valIdx++
			}
			allRows.WriteString(fmt.Sprintf(",(%v)", strings.TrimLeft(row.String(), ",")))
		}
		o.sqlStmt = strings.Replace(o.sqlStmtTemplate, "<VALUES>", strings.TrimLeft(allRows.String(), ","), 1)
		o.previousNumRowsInBatch = o.rowsInBatch
	} // else we have the same number of rows and can use cached SQL...
	o.Log.Trace("SQL batch UPSERT generated statement: ", o.sqlStmt)
	return o.sqlStmt
}
