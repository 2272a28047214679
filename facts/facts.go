// Package facts extracts changed operational rows, derives the fact measures and loads the fact tables.
package facts

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/caronae/caronae-dw/dimensions"
	"github.com/caronae/caronae-dw/loader"
	"github.com/caronae/caronae-dw/logger"
	"github.com/caronae/caronae-dw/rdbms/shared"
	"github.com/caronae/caronae-dw/resolver"
)

// Window is the extraction window [Start, End).
type Window struct {
	Start time.Time // the watermark
	End   time.Time // the start of the current run
}

// Args returns the bound values for the placeholders used by LastTouched.
func (w Window) Args() []interface{} {
	return []interface{}{w.Start, w.End}
}

func (w Window) String() string {
	return fmt.Sprintf("[%v, %v)", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
}

// LastTouched returns the window predicate for a table alias.
// A row belongs to the window holding the latest of its timestamp columns, ignoring NULLs,
// so it is captured once whether it was created, updated or soft deleted.
func LastTouched(alias string, cols ...string) string {
	qualified := make([]string, len(cols))
	for i, c := range cols {
		qualified[i] = alias + "." + c
	}
	g := "greatest(" + strings.Join(qualified, ", ") + ")"
	return g + " >= $1 and " + g + " < $2"
}

// KeyResolver resolves business keys to surrogate keys.
type KeyResolver interface {
	User(id sql.NullInt64) resolver.Resolution
	Neighborhood(name sql.NullString) resolver.Resolution
	Zone(neighborhood sql.NullString) resolver.Resolution
	Hub(name sql.NullString) resolver.Resolution
	Status(name sql.NullString) resolver.Resolution
	Flags(f dimensions.FlagSet) resolver.Resolution
	Time(t sql.NullTime) (date resolver.Resolution, hour resolver.Resolution)
}

// Deps are the collaborators shared by the fact loaders.
type Deps struct {
	Log       logger.Logger
	Factory   shared.ConnectionFactory
	BatchSize int
}

// Loader loads one fact table for a window.
type Loader interface {
	Name() string
	Load(ctx context.Context, w Window, keys KeyResolver) (loader.Result, error)
}
