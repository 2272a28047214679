package actions

import (
	"context"
	"time"

	"github.com/caronae/caronae-dw/config"
	"github.com/caronae/caronae-dw/constants"
	"github.com/caronae/caronae-dw/helper"
	"github.com/caronae/caronae-dw/logger"
	"github.com/caronae/caronae-dw/rdbms"
	"github.com/caronae/caronae-dw/stats"
	"github.com/caronae/caronae-dw/transform"
	"github.com/caronae/caronae-dw/watermark"
	"github.com/pkg/errors"
)

const metricsPushTimeout = 15 * time.Second

type EtlConfig struct {
	LogLevel                  string `errorTxt:"log level" mandatory:"yes"`
	Settings                  config.Settings
	Connections               ConnectionLoader
	Options                   transform.RunOptions
	StatsDumpFrequencySeconds int
	StackDumpOnPanic          bool
}

// RunEtl executes one ETL run and blocks until it is complete.
func RunEtl(cfg *EtlConfig) error {
	if cfg == nil {
		return errors.New("nil pointer to ETL config supplied")
	}
	if err := LoadConnectionDataIfMissing(cfg.Connections, &cfg.Settings); err != nil {
		return err
	}
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return err
	}
	if err := cfg.Settings.Validate(); err != nil {
		return err
	}
	log := logger.NewLogger(constants.AppName, cfg.LogLevel, cfg.StackDumpOnPanic)
	runId, err := transform.LaunchRun(log, transform.NewSafeMapRunInfo(), NewRunnerFunc(log, cfg.Settings, stats.NewMetrics()),
		cfg.Options, true, cfg.StatsDumpFrequencySeconds)
	if err != nil {
		return errors.Wrapf(err, "run %v", runId)
	}
	return nil
}

// NewRunnerFunc returns a func that builds the pipeline of each run from settings s.
// Runs record their outcome in m and push m to the Pushgateway if one is configured.
func NewRunnerFunc(log logger.Logger, s config.Settings, m *stats.Metrics) transform.RunnerFunc {
	return func(st *stats.RunStatsManager) (transform.Runner, error) {
		factory := &rdbms.DsnConnectionFactory{Log: log, Source: s.Source, Warehouse: s.Warehouse}
		store, err := watermark.NewStore(log, s.Watermark, factory)
		if err != nil {
			return nil, errors.Wrap(err, "error configuring the watermark store")
		}
		p, err := transform.NewPipeline(log, s, factory, store, st, m)
		if err != nil {
			return nil, err
		}
		return &meteredRun{log: log, runner: p, metrics: m, settings: s.Metrics}, nil
	}
}

// meteredRun counts the outcome of a run and pushes metrics once it is complete.
type meteredRun struct {
	log      logger.Logger
	runner   transform.Runner
	metrics  *stats.Metrics
	settings config.MetricsSettings
}

func (r *meteredRun) Run(ctx context.Context, opts transform.RunOptions) error {
	err := r.runner.Run(ctx, opts)
	if err != nil {
		r.metrics.CountRun(stats.RunOutcomeFailure)
	} else {
		r.metrics.CountRun(stats.RunOutcomeSuccess)
	}
	if r.settings.PushgatewayUrl != "" {
		pushCtx, cancel := context.WithTimeout(context.Background(), metricsPushTimeout) // push even when ctx was cancelled.
		defer cancel()
		if perr := r.metrics.Push(pushCtx, r.settings.PushgatewayUrl, r.settings.Job); perr != nil {
			r.log.Warn(perr)
		} else {
			r.log.Debug("pushed metrics to ", r.settings.PushgatewayUrl)
		}
	}
	return err
}
