package transform

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/caronae/caronae-dw/stats"
	"github.com/sirupsen/logrus"
)

type runnerFunc func(ctx context.Context, opts RunOptions) error

func (f runnerFunc) Run(ctx context.Context, opts RunOptions) error {
	return f(ctx, opts)
}

func newRunner(fn runnerFunc) RunnerFunc {
	return func(s *stats.RunStatsManager) (Runner, error) {
		return fn, nil
	}
}

func waitForStatus(t *testing.T, ri *SafeMapRunInfo, runId string, want Status) RunInfo {
	deadline := time.After(3 * time.Second)
	for {
		info, _ := ri.Load(runId)
		if info.Status.Status == want {
			return info
		}
		select {
		case <-deadline:
			t.Fatalf("timeout waiting for run %v to be %v; got %v", runId, want, info.Status.Status)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestLaunchRunBlocking(t *testing.T) {
	ri := NewSafeMapRunInfo()
	var got RunOptions
	runId, err := LaunchRun(logrus.New(), ri, newRunner(func(ctx context.Context, opts RunOptions) error {
		got = opts
		return nil
	}), RunOptions{RegenerateFlags: true}, true, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !got.RegenerateFlags {
		t.Fatal("expected run options to reach the runner")
	}
	info, ok := ri.Load(runId)
	if !ok {
		t.Fatalf("run %v not registered", runId)
	}
	if info.Status.Status != StatusComplete || info.Status.EndTime.IsZero() {
		t.Fatalf("unexpected status %+v", info.Status)
	}
}

func TestLaunchRunBlockingReturnsRunError(t *testing.T) {
	ri := NewSafeMapRunInfo()
	runId, err := LaunchRun(logrus.New(), ri, newRunner(func(ctx context.Context, opts RunOptions) error {
		return errors.New("step dim_user failed")
	}), RunOptions{}, true, 0)
	if err == nil || err.Error() != "step dim_user failed" {
		t.Fatalf("expected the run error, got %v", err)
	}
	info, _ := ri.Load(runId)
	if info.Status.Status != StatusCompleteWithError || info.Status.Error != "step dim_user failed" {
		t.Fatalf("unexpected status %+v", info.Status)
	}
}

func TestLaunchRunRecoversPanic(t *testing.T) {
	ri := NewSafeMapRunInfo()
	runId, err := LaunchRun(logrus.New(), ri, newRunner(func(ctx context.Context, opts RunOptions) error {
		panic("nil map")
	}), RunOptions{}, true, 0)
	if err == nil || err.Error() != "nil map" {
		t.Fatalf("expected the panic message as error, got %v", err)
	}
	info, _ := ri.Load(runId)
	if info.Status.Status != StatusCompleteWithError {
		t.Fatalf("unexpected status %+v", info.Status)
	}
}

func TestLaunchRunRejectsConcurrentRuns(t *testing.T) {
	ri := NewSafeMapRunInfo()
	release := make(chan struct{})
	blocked := newRunner(func(ctx context.Context, opts RunOptions) error {
		<-release
		return nil
	})
	first, err := LaunchRun(logrus.New(), ri, blocked, RunOptions{}, false, 0)
	if err != nil {
		t.Fatal(err)
	}
	waitForStatus(t, ri, first, StatusRunning)
	if _, err := LaunchRun(logrus.New(), ri, blocked, RunOptions{}, false, 0); err != ErrRunInProgress {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
	close(release)
	waitForStatus(t, ri, first, StatusComplete)
	second, err := LaunchRun(logrus.New(), ri, newRunner(func(ctx context.Context, opts RunOptions) error { return nil }), RunOptions{}, false, 0)
	if err != nil {
		t.Fatalf("expected a new run to start after the first finished, got %v", err)
	}
	waitForStatus(t, ri, second, StatusComplete)
	if l := ri.List(); len(l) != 2 || l[0].RunId != first {
		t.Fatalf("expected 2 runs oldest first, got %+v", l)
	}
}

func TestLaunchRunCancel(t *testing.T) {
	ri := NewSafeMapRunInfo()
	runId, err := LaunchRun(logrus.New(), ri, newRunner(func(ctx context.Context, opts RunOptions) error {
		<-ctx.Done()
		return ctx.Err()
	}), RunOptions{}, false, 0)
	if err != nil {
		t.Fatal(err)
	}
	info := waitForStatus(t, ri, runId, StatusRunning)
	info.Cancel()
	waitForStatus(t, ri, runId, StatusShutdown)
}

func TestLaunchRunRunnerError(t *testing.T) {
	ri := NewSafeMapRunInfo()
	_, err := LaunchRun(logrus.New(), ri, func(s *stats.RunStatsManager) (Runner, error) {
		return nil, errors.New("bad settings")
	}, RunOptions{}, true, 0)
	if err == nil {
		t.Fatal("expected an error")
	}
	if len(ri.List()) != 0 {
		t.Fatal("expected no run to be registered")
	}
}

func TestRunCloserClosesOnce(t *testing.T) {
	c := make(chan RunStatus, 2)
	rc := NewRunCloser(c)
	rc.CloseChannels(&RunStatus{Status: StatusComplete})
	rc.CloseChannels(&RunStatus{Status: StatusCompleteWithError}) // no effect.
	rc.Send(RunStatus{Status: StatusRunning})                     // no effect.
	if rc.ChannelsAreOpen() {
		t.Fatal("expected channels to be closed")
	}
	var got []RunStatus
	for s := range c {
		got = append(got, s)
	}
	if len(got) != 1 || got[0].Status != StatusComplete {
		t.Fatalf("unexpected statuses %+v", got)
	}
}

func TestStatusMarshalJSON(t *testing.T) {
	b, err := StatusCompleteWithError.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"complete with error"` {
		t.Fatalf("unexpected json %s", b)
	}
	if _, err := Status(99).MarshalJSON(); err == nil {
		t.Fatal("expected an error for an unknown status")
	}
}
