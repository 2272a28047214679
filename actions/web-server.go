package actions

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/caronae/caronae-dw/config"
	"github.com/caronae/caronae-dw/constants"
	"github.com/caronae/caronae-dw/helper"
	"github.com/caronae/caronae-dw/logger"
	"github.com/caronae/caronae-dw/stats"
	"github.com/caronae/caronae-dw/transform"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

const (
	urlContextRuns  = "/runs"
	runShutdownWait = 30 * time.Second
)

type WebServerConfig struct {
	LogLevel                  string `errorTxt:"log level" mandatory:"yes"`
	Scheme                    string `errorTxt:"scheme" mandatory:"no"`
	Addr                      net.IP `errorTxt:"address" mandatory:"no"`
	Port                      int    `errorTxt:"port" mandatory:"yes"`
	Settings                  config.Settings
	Connections               ConnectionLoader
	StatsDumpFrequencySeconds int
	StackDumpOnPanic          bool
}

// server holds what the HTTP handlers share.
type server struct {
	log            logger.Logger
	runs           *transform.SafeMapRunInfo
	metrics        *stats.Metrics
	newRunner      transform.RunnerFunc
	statsFrequency int
	chanStopServer chan string
}

func RunWebServer(web *WebServerConfig) error {
	if web == nil {
		return errors.New("nil pointer to web server config supplied")
	}
	if err := LoadConnectionDataIfMissing(web.Connections, &web.Settings); err != nil {
		return err
	}
	// Check if we have valid input params.
	if err := helper.ValidateStructIsPopulated(web); err != nil {
		return err
	}
	if err := web.Settings.Validate(); err != nil {
		return err
	}
	log := logger.NewWebLogger(constants.AppName, web.LogLevel, web.StackDumpOnPanic, nil)
	m := stats.NewMetrics()
	s := newServer(log, m, NewRunnerFunc(log, web.Settings, m), web.StatsDumpFrequencySeconds)
	// Start the web server.
	srv := s.listen(web)
	// Block & wait for completion.
	return s.waitForServer(srv)
}

func newServer(log logger.Logger, m *stats.Metrics, newRunner transform.RunnerFunc, statsFrequency int) *server {
	return &server{
		log:            log,
		runs:           transform.NewSafeMapRunInfo(),
		metrics:        m,
		newRunner:      newRunner,
		statsFrequency: statsFrequency,
		chanStopServer: make(chan string, 1),
	}
}

// router creates the routes of the HTTP API.
func (s *server) router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/stop", GetHandlerStopServer(s.log, s.chanStopServer))
	r.Path("/health").HandlerFunc(GetHandlerHealth(s.log))
	r.Path("/metrics").Handler(s.metrics.Handler())
	r.Path(urlContextRuns).Methods(http.MethodGet).HandlerFunc(GetHandlerRunList(s.log, s.runs))
	r.Path(urlContextRuns).Methods(http.MethodPost).HandlerFunc(GetHandlerRunLaunch(s.log, s.runs, s.newRunner, s.statsFrequency))
	r.Path(urlContextRuns + "/{runId}/stats").HandlerFunc(GetHandlerRunStats(s.log, s.runs))
	r.Path(urlContextRuns + "/{runId}/status").HandlerFunc(GetHandlerRunStatus(s.log, s.runs))
	r.Path(urlContextRuns + "/{runId}/stop").HandlerFunc(GetHandlerRunStop(s.log, s.runs))
	return r
}

// listen starts the HTTP server without blocking.
func (s *server) listen(web *WebServerConfig) *http.Server {
	srv := &http.Server{ // Good practice to set timeouts to avoid Slowloris attacks.
		Addr:         fmt.Sprintf("%v:%v", web.Addr, web.Port),
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      s.router(), // supply our instance of gorilla/mux.
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			if err == http.ErrServerClosed {
				s.log.Info(err)
			} else {
				s.log.Panic(err)
			}
		}
	}()
	s.log.Info(fmt.Sprintf("Listening on %v://%v:%v", strings.ToLower(web.Scheme), web.Addr, web.Port))
	return srv
}

func (s *server) waitForServer(srv *http.Server) error {
	// Block & wait for shutdown signals.
	chanOS := make(chan os.Signal, 1)
	signal.Notify(chanOS, os.Interrupt, syscall.SIGTERM) // request signals be sent to chanOS.
	select {
	case <-s.chanStopServer:
	case <-chanOS:
	}
	fmt.Println() // print new line char for clean looking CLI.
	s.log.Info("Shutting down web server...")
	s.stopRuns(runShutdownWait)
	wait := time.Second * 15                                       // duration
	ctx, cancel := context.WithTimeout(context.Background(), wait) // create a timeout to wait for.
	defer cancel()                                                 // cancel the timeout.
	return srv.Shutdown(ctx)                                       // Doesn't block if no connections, but will otherwise wait until the timeout deadline.
}

// stopRuns cancels unfinished runs and waits up to timeout for them to finish.
func (s *server) stopRuns(timeout time.Duration) {
	for _, ri := range s.runs.List() {
		if !ri.Status.RunIsFinished() && ri.Cancel != nil {
			s.log.Info("Stopping run ", ri.RunId)
			ri.Cancel()
		}
	}
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if s.allRunsFinished() {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	s.log.Warn("Timed out waiting for runs to stop")
}

func (s *server) allRunsFinished() bool {
	for _, ri := range s.runs.List() {
		if !ri.Status.RunIsFinished() {
			return false
		}
	}
	return true
}
