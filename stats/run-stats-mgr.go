// Package stats collects per-step statistics of a pipeline run and exports Prometheus metrics.
package stats

import (
	"sync"
	"time"

	"github.com/caronae/caronae-dw/constants"
	"github.com/caronae/caronae-dw/logger"

	"github.com/cevaris/ordered_map"
)

type StatsFetcher interface {
	GetStats() []Stats
}

// RunStatsManager implements StatsFetcher and
// is used to save stats from each pipeline step added via calls to AddStepWatcher.
type RunStatsManager struct {
	ticker          *time.Ticker
	tickerDone      chan struct{}
	tickerIsRunning bool
	tickerFrequency int
	mu              sync.Mutex
	log             logger.Logger           // error|info|debug logging
	mapStepStats    *ordered_map.OrderedMap // StepWatcher of every step in the order they were added.
}

// SetStatsDumpFrequency returns a function that can be supplied as an option to constructor NewRunStats().
func SetStatsDumpFrequency(seconds int) func(t *RunStatsManager) {
	return func(t *RunStatsManager) {
		t.tickerFrequency = seconds
	}
}

// NewRunStats creates a new RunStatsManager.
// Optionally supply func SetStatsDumpFrequency() to override the default stats dump frequency.
func NewRunStats(log logger.Logger, options ...func(t *RunStatsManager)) *RunStatsManager {
	t := &RunStatsManager{log: log, tickerFrequency: constants.StatsCaptureFrequencySeconds}
	for _, option := range options {
		option(t)
	}
	t.tickerDone = make(chan struct{})
	t.mapStepStats = ordered_map.NewOrderedMap()
	return t
}

// AddStepWatcher creates a new StepWatcher and saves it into this RunStatsManager.
// Adding a step name twice replaces the earlier watcher.
func (t *RunStatsManager) AddStepWatcher(stepName string) *StepWatcher {
	sw := NewStepWatcher(t.log, stepName)
	t.mu.Lock()
	t.mapStepStats.Set(stepName, sw)
	t.mu.Unlock()
	return sw
}

func (t *RunStatsManager) StartDumping() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tickerIsRunning {
		t.log.Debug("stats dumper ticker already running")
		return
	}
	if t.tickerFrequency <= 0 { // if stats dumping is disabled...
		t.log.Debug("stats dumper disabled")
		return
	}
	t.ticker = time.NewTicker(time.Second * time.Duration(t.tickerFrequency))
	t.tickerIsRunning = true
	go func(ticker *time.Ticker) {
		t.log.Debug("stats dumper ticker started")
		for {
			select {
			case <-t.tickerDone:
				t.log.Debug("stats dumper ticker stopped")
				return
			case <-ticker.C:
				t.logStats(StatusRunning)
			}
		}
	}(t.ticker)
}

// StopDumping will stop the ticker and log the final stats of every step,
// only if the ticker was already running via a call to StartDumping().
func (t *RunStatsManager) StopDumping() {
	t.mu.Lock()
	if !t.tickerIsRunning {
		t.mu.Unlock()
		return
	}
	t.tickerIsRunning = false
	t.ticker.Stop()
	t.mu.Unlock()
	t.tickerDone <- struct{}{} // cause the goroutine to exit (we can't close ticker.C)
	t.logStats("")
}

// logStats outputs stats of each step, or only those with the given status.
func (t *RunStatsManager) logStats(status string) {
	for _, s := range t.GetStats() {
		if status == "" || s.StatusText == status {
			t.log.Info(s.String())
		}
	}
}

// GetStats implements interface StatsFetcher{}.
func (t *RunStatsManager) GetStats() []Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	iter := t.mapStepStats.IterFunc()
	statsList := make([]Stats, 0, t.mapStepStats.Len())
	for kv, ok := iter(); ok; kv, ok = iter() { // for each step...
		statsList = append(statsList, kv.Value.(*StepWatcher).RenderStats())
	}
	return statsList
}
