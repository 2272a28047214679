package transform

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/caronae/caronae-dw/stats"
	"github.com/rs/xid"
)

type RunInfo struct {
	RunId   string             `json:"runId"`
	Options RunOptions         `json:"options"`
	Status  RunStatus          `json:"runStatus"`
	Stats   stats.StatsFetcher `json:"-"`
	Cancel  context.CancelFunc `json:"-"`
}

// SafeMapRunInfo is a registry of runs keyed by run id, guarded for use by concurrent web requests.
type SafeMapRunInfo struct {
	sync.RWMutex
	Internal map[string]RunInfo
}

func NewSafeMapRunInfo() *SafeMapRunInfo {
	ri := SafeMapRunInfo{}
	ri.Internal = make(map[string]RunInfo)
	return &ri
}

// NewRunId returns a new globally unique, sortable run id.
func NewRunId() string {
	return xid.New().String()
}

func (t *SafeMapRunInfo) Load(key string) (ri RunInfo, ok bool) {
	t.RLock()
	ri, ok = t.Internal[key]
	t.RUnlock()
	return
}

func (t *SafeMapRunInfo) Store(key string, value RunInfo) {
	t.Lock()
	t.Internal[key] = value
	t.Unlock()
}

func (t *SafeMapRunInfo) Delete(key string) {
	t.Lock()
	delete(t.Internal, key)
	t.Unlock()
}

// StoreIfIdle saves value only when no other run is starting or running, and reports whether it did.
func (t *SafeMapRunInfo) StoreIfIdle(key string, value RunInfo) bool {
	t.Lock()
	defer t.Unlock()
	for _, ri := range t.Internal {
		if !ri.Status.RunIsFinished() {
			return false
		}
	}
	t.Internal[key] = value
	return true
}

// List returns every run, oldest first.
func (t *SafeMapRunInfo) List() []RunInfo {
	t.RLock()
	retval := make([]RunInfo, 0, len(t.Internal))
	for _, ri := range t.Internal {
		retval = append(retval, ri)
	}
	t.RUnlock()
	sort.Slice(retval, func(i, j int) bool { return retval[i].RunId < retval[j].RunId })
	return retval
}

// ConsumeRunStatusChanges loops until chanStatus is closed
// and updates t.Internal[runId] with any statuses received.
func (t *SafeMapRunInfo) ConsumeRunStatusChanges(runId string, chanStatus chan RunStatus) {
	for status := range chanStatus {
		t.Lock()
		ri := t.Internal[runId]
		switch status.Status {
		case StatusRunning:
			ri.Status.Status = status.Status
			ri.Status.StartTime = time.Now()
		case StatusComplete, StatusShutdown:
			ri.Status.Status = status.Status
			ri.Status.EndTime = time.Now()
		case StatusCompleteWithError:
			ri.Status.Status = status.Status
			ri.Status.EndTime = time.Now()
			ri.Status.Error = status.Error
		}
		t.Internal[runId] = ri
		t.Unlock()
	}
}
