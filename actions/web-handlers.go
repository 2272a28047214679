package actions

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"

	"github.com/caronae/caronae-dw/logger"
	"github.com/caronae/caronae-dw/transform"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

type WebServerResponse uint32

const (
	Okay WebServerResponse = iota + 1
	Error
)

func (w WebServerResponse) MarshalJSON() ([]byte, error) {
	var retval string
	switch w {
	case Okay:
		retval = "ok"
	case Error:
		retval = "error"
	default:
		err := fmt.Errorf("unhandled WebServerResponse value in MarshalJSON() conversion")
		return nil, err
	}
	return json.Marshal(retval)
}

type ResponseSimple struct {
	ServerStatus WebServerResponse `json:"status"`
}

type ResponseRunList struct {
	Status  WebServerResponse `json:"status"`
	RunList []RunListItem     `json:"runs"`
}

type RunListItem struct {
	RunId     string               `json:"runId"`
	Options   transform.RunOptions `json:"options"`
	RunStatus transform.RunStatus  `json:"runStatus"`
}

type ResponseRunStats struct {
	Status       WebServerResponse `json:"status"`
	Message      string            `json:"message"`
	StatsSummary interface{}       `json:"runStats"`
}

type ResponseRunStatus struct {
	Status    WebServerResponse   `json:"status"`
	Message   string              `json:"message"`
	RunStatus transform.RunStatus `json:"runStatus"`
}

type ResponseRunAction struct {
	Status  WebServerResponse `json:"status"`
	Message string            `json:"message"`
	RunId   string            `json:"runId"`
}

func GetHandlerHealth(log logger.Logger) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		respond(log, w, ResponseSimple{ServerStatus: Okay})
	}
}

func GetHandlerStopServer(log logger.Logger, chanStop chan string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		select {
		case chanStop <- "stop":
			log.Info("Stop signal sent")
		default: // a stop is already pending.
		}
		respond(log, w, ResponseSimple{ServerStatus: Okay})
	}
}

// GetHandlerRunLaunch starts a run using the RunOptions found in the optional JSON request body.
// Only one run may be in progress at a time.
func GetHandlerRunLaunch(log logger.Logger, runs *transform.SafeMapRunInfo, newRunner transform.RunnerFunc, statsDumpFrequencySeconds int) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := ioutil.ReadAll(r.Body)
		if err != nil {
			logAndRespond(log, err, w, http.StatusBadRequest,
				ResponseRunAction{Status: Error, Message: fmt.Sprintf("error reading request: %v", err)})
			return
		}
		opts := transform.RunOptions{}
		if strings.TrimSpace(string(b)) != "" { // if options were supplied...
			if err := json.Unmarshal(b, &opts); err != nil {
				logAndRespond(log, err, w, http.StatusBadRequest,
					ResponseRunAction{Status: Error, Message: fmt.Sprintf("error unmarshalling JSON: %v", err)})
				return
			}
		}
		runId, err := transform.LaunchRun(log, runs, newRunner, opts, false, statsDumpFrequencySeconds)
		if errors.Is(err, transform.ErrRunInProgress) {
			logAndRespond(log, err, w, http.StatusConflict, ResponseRunAction{Status: Error, Message: err.Error()})
			return
		} else if err != nil {
			logAndRespond(log, err, w, http.StatusInternalServerError,
				ResponseRunAction{Status: Error, Message: fmt.Sprintf("error launching run: %v", err)})
			return
		}
		w.WriteHeader(http.StatusAccepted)
		respond(log, w, ResponseRunAction{Status: Okay, Message: "run launched", RunId: runId})
	}
}

func GetHandlerRunStop(log logger.Logger, runs *transform.SafeMapRunInfo) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["runId"]
		ri, ok := runs.Load(id)
		if !ok { // if the run doesn't exist...
			log.Info("HTTP request to stop run ", id, " that doesn't exist.")
			w.WriteHeader(http.StatusNotFound)
			respond(log, w, ResponseRunAction{Status: Error, Message: "run does not exist", RunId: id})
			return
		}
		w.WriteHeader(http.StatusOK)
		if ri.Status.RunIsFinished() { // if the run has already finished...
			log.Info("HTTP request to stop run ", id, " that has already finished.")
			respond(log, w, ResponseRunAction{Status: Error, Message: "run already ended", RunId: id})
			return
		}
		log.Info("Stopping run ", id)
		ri.Cancel()
		respond(log, w, ResponseRunAction{Status: Okay, Message: "shutting down", RunId: id})
	}
}

func GetHandlerRunList(log logger.Logger, runs *transform.SafeMapRunInfo) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		list := runs.List()
		items := make([]RunListItem, 0, len(list))
		for _, ri := range list { // for each registered run...
			items = append(items, RunListItem{RunId: ri.RunId, Options: ri.Options, RunStatus: ri.Status})
		}
		w.WriteHeader(http.StatusOK)
		respond(log, w, ResponseRunList{Status: Okay, RunList: items})
	}
}

func GetHandlerRunStats(log logger.Logger, runs *transform.SafeMapRunInfo) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["runId"]
		ri, ok := runs.Load(id)
		if ok && ri.Stats != nil { // if the run exists...
			w.WriteHeader(http.StatusOK)
			respond(log, w, ResponseRunStats{Status: Okay, StatsSummary: ri.Stats.GetStats()})
		} else { // else the run doesn't exist...
			log.Info("HTTP request to fetch stats for run ", id, " that doesn't exist.")
			w.WriteHeader(http.StatusNotFound)
			respond(log, w, ResponseRunStats{Status: Error, Message: fmt.Sprintf("run %v does not exist", id)})
		}
	}
}

func GetHandlerRunStatus(log logger.Logger, runs *transform.SafeMapRunInfo) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["runId"]
		ri, ok := runs.Load(id)
		if ok { // if the run exists...
			w.WriteHeader(http.StatusOK)
			respond(log, w, ResponseRunStatus{Status: Okay, RunStatus: ri.Status})
		} else { // else the run doesn't exist...
			log.Info("HTTP request status of run ", id, " that doesn't exist.")
			w.WriteHeader(http.StatusNotFound)
			respond(log, w, ResponseRunStatus{Status: Error, Message: fmt.Sprintf("run %v does not exist", id)})
		}
	}
}

// logAndRespond will log the error, write the HTTP status code and r to w.
func logAndRespond(log logger.Logger, err error, w http.ResponseWriter, code int, r ResponseRunAction) {
	log.Error(err)
	w.WriteHeader(code)
	respond(log, w, r)
}

// respond will marshal i to a string and write it to w.
func respond(log logger.Logger, w http.ResponseWriter, i interface{}) {
	j, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		log.Panic(err)
	}
	_, err = fmt.Fprint(w, string(j))
	if err != nil {
		log.Panic(err)
	}
}
