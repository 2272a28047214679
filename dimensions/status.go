package dimensions

import (
	"context"

	"github.com/caronae/caronae-dw/constants"
	"github.com/caronae/caronae-dw/loader"
)

// Status is a row of dim_status_pedido.
type Status struct {
	StatusName string
}

var StatusTable = loader.Table{
	Name:      constants.TableDimStatus,
	KeyCols:   []string{"status_name"},
	DoNothing: true, // existing statuses keep their surrogate keys
}

func (s Status) KeyValues() []interface{}   { return []interface{}{s.StatusName} }
func (s Status) OtherValues() []interface{} { return nil }

// StatusLoader seeds the fixed ride request status vocabulary.
type StatusLoader struct {
	Deps
}

func (l *StatusLoader) Name() string {
	return constants.TableDimStatus
}

func (l *StatusLoader) Load(ctx context.Context) (loader.Result, error) {
	rows := make([]Status, len(constants.StatusVocabulary))
	for i, s := range constants.StatusVocabulary {
		rows[i] = Status{StatusName: s}
	}
	return load(ctx, l.Deps, StatusTable, rows)
}
