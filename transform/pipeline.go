// Package transform runs the ETL pipeline and tracks the status of runs.
package transform

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/caronae/caronae-dw/config"
	"github.com/caronae/caronae-dw/constants"
	"github.com/caronae/caronae-dw/dimensions"
	"github.com/caronae/caronae-dw/facts"
	"github.com/caronae/caronae-dw/loader"
	"github.com/caronae/caronae-dw/logger"
	"github.com/caronae/caronae-dw/rdbms/shared"
	"github.com/caronae/caronae-dw/resolver"
	"github.com/caronae/caronae-dw/schema"
	"github.com/caronae/caronae-dw/stats"
	"github.com/caronae/caronae-dw/watermark"
	"github.com/pkg/errors"
)

// RunOptions are the control flags of a run.
type RunOptions struct {
	ResetWatermark  bool `json:"resetWatermark"`
	RegenerateTime  bool `json:"regenerateTime"`
	RegenerateFlags bool `json:"regenerateFlags"`
}

// Step names that are not table names.
const (
	StepResetWatermark = "reset watermark"
	StepSchema         = "schema"
	StepResolver       = "key resolver"
	StepWatermark      = "write watermark"
)

// Pipeline loads the warehouse once per call to Run.
type Pipeline struct {
	Log             logger.Logger
	Factory         shared.ConnectionFactory
	Watermark       watermark.Store
	Stats           *stats.RunStatsManager
	Metrics         *stats.Metrics // optional
	TimeStart       time.Time
	TimeEnd         time.Time
	BatchSize       int
	FlagsMissPolicy string
	Now             func() time.Time // defaults to time.Now
}

// NewPipeline builds a Pipeline from settings.
func NewPipeline(log logger.Logger, s config.Settings, factory shared.ConnectionFactory, store watermark.Store, st *stats.RunStatsManager, m *stats.Metrics) (*Pipeline, error) {
	start, end, err := s.TimeDimension.Range()
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		Log:             log,
		Factory:         factory,
		Watermark:       store,
		Stats:           st,
		Metrics:         m,
		TimeStart:       start,
		TimeEnd:         end,
		BatchSize:       s.Loader.BatchSize,
		FlagsMissPolicy: s.FlagsMissPolicy,
	}, nil
}

// Run executes every step in order.
// Schema and dimension failures stop the run. A failed fact is rolled back and the other fact still runs.
// The watermark only advances when every step succeeded.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) error {
	if p.Stats == nil {
		p.Stats = stats.NewRunStats(p.Log)
	}
	runStart := p.now()
	p.Log.Info("Starting ETL run at ", watermark.Format(runStart))
	if opts.ResetWatermark {
		err := p.step(ctx, StepResetWatermark, func(ctx context.Context) (loader.Result, error) {
			return loader.Result{}, p.Watermark.Reset(ctx)
		})
		if err != nil {
			return err
		}
	}
	if err := p.step(ctx, StepSchema, p.ensureSchema); err != nil {
		return err
	}
	d := dimensions.Deps{Log: p.Log, Factory: p.Factory, BatchSize: p.BatchSize}
	dims := []dimensions.Loader{
		&dimensions.UnknownMemberLoader{Deps: d},
		&dimensions.TimeLoader{Deps: d, Start: p.TimeStart, End: p.TimeEnd, Regenerate: opts.RegenerateTime},
		&dimensions.FlagsLoader{Deps: d, Regenerate: opts.RegenerateFlags},
		&dimensions.UserLoader{Deps: d},
		&dimensions.ZoneLoader{Deps: d},
		&dimensions.NeighborhoodLoader{Deps: d},
		&dimensions.HubLoader{Deps: d},
		&dimensions.StatusLoader{Deps: d},
	}
	for _, l := range dims {
		if err := p.step(ctx, l.Name(), l.Load); err != nil {
			return err // dimensions loaded so far stay committed.
		}
	}
	mark, err := p.Watermark.Read(ctx)
	if err != nil {
		return errors.Wrap(err, "error reading watermark")
	}
	w := facts.Window{Start: mark, End: runStart}
	if !runStart.After(mark) {
		p.Log.Warn("Watermark ", watermark.Format(mark), " is not before the run start; no facts will be extracted")
		w.End = mark
	}
	var keys *resolver.Resolver
	err = p.step(ctx, StepResolver, func(ctx context.Context) (loader.Result, error) {
		dw, err := p.Factory.OpenWarehouse(ctx)
		if err != nil {
			return loader.Result{}, errors.Wrap(err, "error opening warehouse for the key resolver")
		}
		defer dw.Close()
		keys, err = resolver.New(ctx, p.Log, dw, resolver.Options{FlagsMissPolicy: p.FlagsMissPolicy})
		return loader.Result{}, err
	})
	if err != nil {
		return err
	}
	if last := keys.LastDateKey(); dimensions.DateKey(w.End) > last {
		p.Log.Warn(constants.TableDimTime, " ends at ", last, " before the run date ", dimensions.DateKey(w.End),
			"; later facts resolve to the unknown time member")
	}
	f := facts.Deps{Log: p.Log, Factory: p.Factory, BatchSize: p.BatchSize}
	var factErrs []error
	for _, l := range []facts.Loader{&facts.CaronaLoader{Deps: f}, &facts.InteracaoLoader{Deps: f}} {
		l := l
		err := p.step(ctx, l.Name(), func(ctx context.Context) (loader.Result, error) {
			return l.Load(ctx, w, keys)
		})
		if err != nil {
			p.Log.Error(err)
			factErrs = append(factErrs, err)
			if ctx.Err() != nil {
				break
			}
		}
	}
	fallbacks := keys.Fallbacks()
	for dim, n := range fallbacks {
		p.Log.Info("Resolved ", n, " ", dim, " keys to the unknown member")
	}
	p.Metrics.AddFallbacks(fallbacks)
	if len(factErrs) > 0 {
		return errors.Wrap(stderrors.Join(factErrs...), "watermark not advanced")
	}
	return p.step(ctx, StepWatermark, func(ctx context.Context) (loader.Result, error) {
		if err := p.Watermark.Write(ctx, w.End); err != nil {
			return loader.Result{}, err
		}
		p.Metrics.SetWatermark(w.End)
		p.Log.Info("Watermark advanced to ", watermark.Format(w.End))
		return loader.Result{}, nil
	})
}

func (p *Pipeline) ensureSchema(ctx context.Context) (loader.Result, error) {
	dw, err := p.Factory.OpenWarehouse(ctx)
	if err != nil {
		return loader.Result{}, errors.Wrap(err, "error opening warehouse")
	}
	defer dw.Close()
	return loader.Result{}, schema.Ensure(ctx, p.Log, dw)
}

// step runs fn with stats and metrics.
func (p *Pipeline) step(ctx context.Context, name string, fn func(context.Context) (loader.Result, error)) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrapf(err, "%v not started", name)
	}
	sw := p.Stats.AddStepWatcher(name)
	sw.StartWatching()
	res, err := fn(ctx)
	sw.StopWatching(res, err)
	p.Metrics.ObserveStep(sw.RenderStats(), sw.Elapsed())
	if err != nil {
		return errors.Wrapf(err, "step %v failed", name)
	}
	return nil
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// StatusFor maps the error returned by Run to the final status of the run.
func StatusFor(ctx context.Context, err error) RunStatus {
	switch {
	case err == nil:
		return RunStatus{Status: StatusComplete}
	case ctx.Err() != nil && stderrors.Is(err, context.Canceled):
		return RunStatus{Status: StatusShutdown, Error: err.Error()}
	}
	return RunStatus{Status: StatusCompleteWithError, Error: err.Error()}
}
