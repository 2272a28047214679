package stats

import (
	"fmt"
	"sync"
	"time"

	"github.com/caronae/caronae-dw/loader"
	"github.com/caronae/caronae-dw/logger"
)

const (
	StatusPending  = "pending"
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// StepWatcher saves the progress of one pipeline step.
// The step calls StartWatching() and StopWatching().
type StepWatcher struct {
	mu        sync.Mutex
	log       logger.Logger // debug logging
	stepName  string        // debug output can use the given step name.
	status    string
	startTime time.Time
	endTime   time.Time
	result    loader.Result
	err       error
}

type Stats struct {
	StepName       string `json:"stepName"`
	StatusText     string `json:"statusText"`
	StatusEmoji    string `json:"statusEmoji"`
	ElapsedTimeSec int    `json:"elapsedTimeSec"`
	RowsSupplied   int    `json:"rowsSupplied"`
	RowsLoaded     int    `json:"rowsLoaded"`
	Batches        int    `json:"batches"`
	Error          string `json:"error,omitempty"`
}

func NewStepWatcher(log logger.Logger, stepName string) *StepWatcher {
	return &StepWatcher{log: log, stepName: stepName, status: StatusPending}
}

func (n *StepWatcher) StartWatching() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.startTime = time.Now()
	n.status = StatusRunning
	n.log.Debug("STATS: ", n.stepName, " started")
}

// StopWatching records the outcome of the step.
func (n *StepWatcher) StopWatching(res loader.Result, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.endTime = time.Now()
	n.result = res
	n.err = err
	if err != nil {
		n.status = StatusFailed
	} else {
		n.status = StatusComplete
	}
	n.log.Debug("STATS: ", n.stepName, " ", n.status, " loading ", res.RowsLoaded, " rows")
}

// Elapsed is the time spent in the step so far.
func (n *StepWatcher) Elapsed() time.Duration {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.elapsed()
}

func (n *StepWatcher) elapsed() time.Duration {
	switch {
	case n.startTime.IsZero():
		return 0
	case n.endTime.IsZero():
		return time.Since(n.startTime)
	}
	return n.endTime.Sub(n.startTime)
}

// RenderStats gets a struct filled with stats at the point of time it is called.
func (n *StepWatcher) RenderStats() Stats {
	n.mu.Lock()
	defer n.mu.Unlock()
	var statusEmoji, errTxt string
	switch n.status {
	case StatusRunning:
		statusEmoji = "\U0000231B" // hour glass
	case StatusComplete:
		statusEmoji = "\U00002705" // green tick
	case StatusFailed:
		statusEmoji = "\U0000274C" // red cross
	}
	if n.err != nil {
		errTxt = n.err.Error()
	}
	return Stats{
		StepName:       n.stepName,
		StatusText:     n.status,
		StatusEmoji:    statusEmoji,
		ElapsedTimeSec: int(n.elapsed().Seconds()),
		RowsSupplied:   n.result.RowsSupplied,
		RowsLoaded:     n.result.RowsLoaded,
		Batches:        n.result.Batches,
		Error:          errTxt,
	}
}

// String will format the stats for general logging.
func (s Stats) String() string {
	return fmt.Sprintf(
		"Stats for %v %v %v "+
			"elapsedTimeSec=%v "+
			"rowsSupplied=%v "+
			"rowsLoaded=%v "+
			"batches=%v",
		s.StepName, s.StatusText, s.StatusEmoji,
		s.ElapsedTimeSec,
		s.RowsSupplied,
		s.RowsLoaded,
		s.Batches,
	)
}
