package dimensions

import (
	"context"
	"strings"

	"github.com/caronae/caronae-dw/constants"
	"github.com/caronae/caronae-dw/loader"
	"github.com/pkg/errors"
)

// Positions in a FlagSet.
const (
	FlagRoutine = iota
	FlagGoingToCampus
	FlagDone
	FlagMonday
	FlagTuesday
	FlagWednesday
	FlagThursday
	FlagFriday
	FlagSaturday
	FlagSunday
	NumFlags
)

// FlagSet is one combination of the boolean ride attributes held by dim_flags_carona.
type FlagSet [NumFlags]bool

var dayAbbreviations = [7]string{"Seg", "Ter", "Qua", "Qui", "Sex", "Sab", "Dom"}

// SetWeekday sets the routine flag for ISO day d, where 1 is Monday and 7 is Sunday.
// Other values are ignored.
func (f *FlagSet) SetWeekday(d int) {
	if d >= 1 && d <= 7 {
		f[FlagMonday+d-1] = true
	}
}

// Description is unique for each of the 1024 combinations.
func (f FlagSet) Description() string {
	var days []string
	for i, abbr := range dayAbbreviations {
		if f[FlagMonday+i] {
			days = append(days, abbr)
		}
	}
	daysTxt := "Sem dias"
	if len(days) > 0 {
		daysTxt = strings.Join(days, ",")
	}
	parts := make([]string, 0, 3)
	if f[FlagRoutine] {
		parts = append(parts, "Rotina ("+daysTxt+")")
	} else {
		parts = append(parts, "Não Rotina ("+daysTxt+")")
	}
	if f[FlagGoingToCampus] {
		parts = append(parts, "Indo Campus")
	} else {
		parts = append(parts, "Não Indo Campus")
	}
	if f[FlagDone] {
		parts = append(parts, "Carona Finalizada")
	} else {
		parts = append(parts, "Carona Não Finalizada")
	}
	return strings.Join(parts, ", ")
}

// AllFlagSets enumerates every combination with the first flag as the most significant bit,
// so index 0 is all false and the last index is all true.
func AllFlagSets() []FlagSet {
	retval := make([]FlagSet, 1<<NumFlags)
	for i := range retval {
		for j := 0; j < NumFlags; j++ {
			retval[i][j] = (i>>(NumFlags-1-j))&1 == 1
		}
	}
	return retval
}

// Flags is a row of dim_flags_carona.
type Flags struct {
	Set         FlagSet
	Description string
}

var FlagsTable = loader.Table{
	Name:    constants.TableDimFlags,
	KeyCols: []string{"flags_description"},
	OtherCols: []string{"is_routine_ride", "is_going_to_campus", "done",
		"is_routine_monday", "is_routine_tuesday", "is_routine_wednesday", "is_routine_thursday",
		"is_routine_friday", "is_routine_saturday", "is_routine_sunday"},
}

func (f Flags) KeyValues() []interface{} { return []interface{}{f.Description} }
func (f Flags) OtherValues() []interface{} {
	retval := make([]interface{}, NumFlags)
	for i, v := range f.Set {
		retval[i] = v
	}
	return retval
}

// AllFlags returns the full junk dimension.
func AllFlags() []Flags {
	sets := AllFlagSets()
	retval := make([]Flags, len(sets))
	for i, s := range sets {
		retval[i] = Flags{Set: s, Description: s.Description()}
	}
	return retval
}

// FlagsLoader generates dim_flags_carona.
type FlagsLoader struct {
	Deps
	Regenerate bool
}

func (l *FlagsLoader) Name() string {
	return constants.TableDimFlags
}

func (l *FlagsLoader) Load(ctx context.Context) (loader.Result, error) {
	dw, err := l.Factory.OpenWarehouse(ctx)
	if err != nil {
		return loader.Result{}, errors.Wrapf(err, "error opening warehouse for %v", constants.TableDimFlags)
	}
	defer dw.Close()
	if skip, err := skipGenerated(ctx, l.Deps, dw, constants.TableDimFlags, "flags_carona_sk", l.Regenerate); err != nil || skip {
		return loader.Result{}, err
	}
	l.Log.Info("Generating ", constants.TableDimFlags, "...")
	return loader.Upsert(ctx, l.Log, dw, FlagsTable, l.BatchSize, AllFlags())
}
