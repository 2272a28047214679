package transform

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/caronae/caronae-dw/logger"
	"github.com/caronae/caronae-dw/stats"
	"github.com/sirupsen/logrus"
)

// CleanupHandlerDefault handles CTRL-C and SIGTERM by cancelling the run.
// It returns when a signal arrives or done is closed.
func CleanupHandlerDefault(log logger.Logger, runId string, s *stats.RunStatsManager, cancelFunc context.CancelFunc, done <-chan struct{}) {
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(c)
	select {
	case x := <-c: // wait for interrupt.
		fmt.Println()                   // add new line char for clean CLI look n feel.
		log.Info("Caught ", x.String()) // log the interrupt.
		log.Info("Shutting down run ", runId, "...")
		cancelFunc()    // the current step sees a cancelled context and no further steps start.
		s.StopDumping() // turn off stats dumping.
	case <-done:
	}
}

// GetPanicHandlerFunc returns a func that can be deferred to recover from a panic during a run
// and send the final RunStatus with the panic message.
func GetPanicHandlerFunc(log logger.Logger, rc *RunCloser) func() {
	return func() {
		if r := recover(); r != nil { // if there was a panic...
			var msg string
			switch x := r.(type) {
			case *logrus.Entry:
				msg = x.Message
			case error:
				msg = x.Error()
			default:
				msg = fmt.Sprint(r)
			}
			log.Error("run panicked: ", msg)
			rc.CloseChannels(&RunStatus{Status: StatusCompleteWithError, Error: msg})
		}
	}
}
