package transform

import (
	"context"
	"sync"
	"time"

	"github.com/caronae/caronae-dw/logger"
	"github.com/caronae/caronae-dw/stats"
	"github.com/pkg/errors"
)

// ErrRunInProgress is returned when a run is launched while another is still going.
var ErrRunInProgress = errors.New("an ETL run is already in progress")

// Runner executes one run.
type Runner interface {
	Run(ctx context.Context, opts RunOptions) error
}

// RunnerFunc builds the Runner of a new run given the run's stats manager.
type RunnerFunc func(s *stats.RunStatsManager) (Runner, error)

// LaunchRun registers a new run in ri and starts it.
// If blockUntilComplete is true it returns once the run and its status updates are complete, with the run's error,
// and CTRL-C cancels the run. Otherwise the run is launched in a goroutine and can be cancelled via RunInfo.Cancel.
// ErrRunInProgress is returned when ri holds a run that is not finished.
func LaunchRun(log logger.Logger, ri *SafeMapRunInfo, newRunner RunnerFunc, opts RunOptions, blockUntilComplete bool, statsDumpFrequencySeconds int) (runId string, err error) {
	s := stats.NewRunStats(log, stats.SetStatsDumpFrequency(statsDumpFrequencySeconds))
	r, err := newRunner(s)
	if err != nil {
		return "", err
	}
	runId = NewRunId()
	ctx, cancel := context.WithCancel(context.Background())
	info := RunInfo{
		RunId:   runId,
		Options: opts,
		Status:  RunStatus{Status: StatusStarting, StartTime: time.Now()},
		Stats:   s,
		Cancel:  cancel,
	}
	if !ri.StoreIfIdle(runId, info) {
		cancel()
		return "", ErrRunInProgress
	}
	chanStatus := make(chan RunStatus, 1) // channel for us to receive status messages back from the run.
	rc := NewRunCloser(chanStatus)
	var consumers sync.WaitGroup
	consumers.Add(1)
	go func() {
		defer consumers.Done()
		ri.ConsumeRunStatusChanges(runId, chanStatus)
	}()
	log.Info("Launching run ", runId)
	var runErr error
	launch := func() {
		defer cancel()
		defer GetPanicHandlerFunc(log, rc)()
		defer s.StopDumping()
		rc.Send(RunStatus{Status: StatusRunning})
		s.StartDumping()
		runErr = r.Run(ctx, opts)
		s.StopDumping()
		status := StatusFor(ctx, runErr)
		rc.CloseChannels(&status)
		log.Info("Run ", runId, " ", status.Status)
	}
	if !blockUntilComplete {
		go launch()
		return runId, nil
	}
	done := make(chan struct{})
	go CleanupHandlerDefault(log, runId, s, cancel, done)
	launch()
	close(done)
	consumers.Wait()
	if runErr == nil {
		if ri, _ := ri.Load(runId); ri.Status.Status == StatusCompleteWithError { // if the run panicked...
			runErr = errors.New(ri.Status.Error)
		}
	}
	return runId, runErr
}
