package dimensions

import (
	"context"
	"time"

	"github.com/caronae/caronae-dw/constants"
	"github.com/caronae/caronae-dw/loader"
	"github.com/pkg/errors"
)

// UnknownMember is the sentinel row of one dimension, keyed by its surrogate key.
type UnknownMember struct {
	Table  loader.Table
	keys   []interface{}
	others []interface{}
}

func (u UnknownMember) KeyValues() []interface{}   { return u.keys }
func (u UnknownMember) OtherValues() []interface{} { return u.others }

// UnknownMembers returns the sentinel row for each dimension, in load order.
func UnknownMembers() []UnknownMember {
	const (
		sk   = constants.UnknownMemberSK
		bk   = constants.UnknownMemberBK
		txt  = constants.UnknownMemberText
		clr  = constants.UnknownMemberColor
		zero = 0
	)
	date, _ := time.Parse(constants.DateLayout, constants.UnknownMemberDate)
	members := []UnknownMember{
		{
			Table: loader.Table{Name: constants.TableDimTime, KeyCols: TimeTable.KeyCols, OtherCols: TimeTable.OtherCols},
			keys:  []interface{}{sk, sk},
			others: []interface{}{date, zero, txt, zero, zero, txt,
				zero, zero, zero, zero, txt},
		},
		{
			Table: loader.Table{Name: constants.TableDimUser, KeyCols: []string{"user_sk"}, OtherCols: append([]string{"user_id"}, UserTable.OtherCols...)},
			keys:  []interface{}{sk},
			others: []interface{}{bk, txt, txt, txt, txt, txt, false,
				txt, txt, txt, txt, txt, txt, txt,
				false, bk, txt, clr,
				date, date, nil},
		},
		{
			Table:  loader.Table{Name: constants.TableDimZone, KeyCols: []string{"zone_sk"}, OtherCols: append([]string{"zone_id"}, ZoneTable.OtherCols...)},
			keys:   []interface{}{sk},
			others: []interface{}{bk, txt, clr},
		},
		{
			Table:  loader.Table{Name: constants.TableDimNeighborhood, KeyCols: []string{"neighborhood_sk"}, OtherCols: append([]string{"neighborhood_id"}, NeighborhoodTable.OtherCols...)},
			keys:   []interface{}{sk},
			others: []interface{}{bk, txt, zero, bk, txt, clr},
		},
		{
			Table: loader.Table{Name: constants.TableDimHub, KeyCols: []string{"hub_sk"}, OtherCols: append([]string{"hub_id"}, HubTable.OtherCols...)},
			keys:  []interface{}{sk},
			others: []interface{}{bk, txt, txt, bk, txt, clr,
				date, date, bk, txt,
				date, date},
		},
		{
			Table:  loader.Table{Name: constants.TableDimStatus, KeyCols: []string{"status_sk"}, OtherCols: StatusTable.KeyCols},
			keys:   []interface{}{sk},
			others: []interface{}{txt},
		},
		{
			Table:  loader.Table{Name: constants.TableDimFlags, KeyCols: []string{"flags_carona_sk"}, OtherCols: append([]string{"flags_description"}, FlagsTable.OtherCols...)},
			keys:   []interface{}{sk},
			others: append([]interface{}{txt}, Flags{}.OtherValues()...),
		},
	}
	for i := range members {
		members[i].Table.DoNothing = true
	}
	return members
}

// UnknownMemberLoader seeds the sentinel row of every dimension in one transaction.
// Existing sentinel rows are left as they are.
type UnknownMemberLoader struct {
	Deps
}

func (l *UnknownMemberLoader) Name() string {
	return "unknown members"
}

func (l *UnknownMemberLoader) Load(ctx context.Context) (res loader.Result, err error) {
	dw, err := l.Factory.OpenWarehouse(ctx)
	if err != nil {
		return res, errors.Wrap(err, "error opening warehouse for unknown members")
	}
	defer dw.Close()
	tx, err := dw.BeginTx(ctx)
	if err != nil {
		return res, errors.Wrap(err, "error starting transaction for unknown members")
	}
	defer func() {
		if err != nil {
			loader.Rollback(l.Log, tx, "unknown members")
			res.RowsLoaded = 0
		}
	}()
	for _, m := range UnknownMembers() {
		var r loader.Result
		if r, err = loader.UpsertTx(ctx, l.Log, dw.GetDmlGenerator(), tx, m.Table, 1, []UnknownMember{m}); err != nil {
			return res, err
		}
		res.RowsSupplied += r.RowsSupplied
		res.RowsLoaded += r.RowsLoaded
		res.Batches += r.Batches
	}
	if err = tx.Commit(); err != nil {
		return res, errors.Wrap(err, "error committing unknown members")
	}
	l.Log.Info("Unknown members are in place for ", res.RowsLoaded, " dimensions")
	return res, nil
}
