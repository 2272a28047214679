package logger

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/mattn/go-isatty"
	log "github.com/sirupsen/logrus"
)

// Logger type is interface for available logging methods.
type Logger interface {
	Trace(...interface{})
	Debug(...interface{})
	Info(...interface{})
	Warn(...interface{})
	Error(...interface{})
	Panic(...interface{})
	Fatal(...interface{})
}

// LoggerImpl is a struct that extends sirupsen/logrus.
type LoggerImpl struct {
	Logger         *log.Entry
	Service        string
	LogLevelStr    string
	PrintStackDump bool
}

// NewLogger creates a logger writing to stderr with the field "service" set on every entry.
// Text output is used on an interactive terminal, JSON otherwise.
func NewLogger(serviceName string, level string, stackDumpOnPanic bool) *LoggerImpl {
	l := newLogrus(level)
	setOutputAndFormat(l, os.Stderr)
	entry := l.WithFields(log.Fields{
		"service": serviceName,
	})
	return &LoggerImpl{Logger: entry, Service: serviceName, LogLevelStr: level, PrintStackDump: stackDumpOnPanic}
}

// NewWebLogger is NewLogger plus an exit handler that is called before Fatal exits the process.
func NewWebLogger(serviceName string, level string, stackDumpOnPanic bool, exitHandlerFn func()) *LoggerImpl {
	l := NewLogger(serviceName, level, stackDumpOnPanic)
	if exitHandlerFn != nil {
		log.RegisterExitHandler(exitHandlerFn)
	}
	return l
}

func newLogrus(level string) *log.Logger {
	l := log.New()
	logLevel, err := log.ParseLevel(level)
	if err != nil {
		fmt.Println("Error setting up logging: ", err)
		os.Exit(1)
	}
	l.SetLevel(logLevel)
	return l
}

func setOutputAndFormat(l *log.Logger, w io.Writer) {
	l.SetOutput(w)
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) { // if a human is watching...
		l.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	} else { // else emit machine readable logs...
		l.SetFormatter(&log.JSONFormatter{})
	}
}

// Trace log.
func (l *LoggerImpl) Trace(message ...interface{}) {
	l.Logger.Trace(message...)
}

// Debug log.
func (l *LoggerImpl) Debug(message ...interface{}) {
	l.Logger.Debug(message...)
}

// Info log.
func (l *LoggerImpl) Info(message ...interface{}) {
	l.Logger.Info(message...)
}

// Warn log.
func (l *LoggerImpl) Warn(message ...interface{}) {
	l.Logger.Warn(message...)
}

// Error (with stack trace in trace mode or when PrintStackDump is set).
func (l *LoggerImpl) Error(message ...interface{}) {
	if l.LogLevelStr == "trace" || l.PrintStackDump {
		l.Logger.WithField("stackTrace", fmt.Sprintf("%s", debug.Stack())).Error(message...)
	} else {
		l.Logger.Error(message...)
	}
}

// Panic (with stack trace if the user explicitly sets PrintStackDump).
// Without a stack dump this logs and exits.
func (l *LoggerImpl) Panic(message ...interface{}) {
	if l.PrintStackDump {
		l.Logger.WithField("stackTrace", fmt.Sprintf("%s", debug.Stack())).Panic(message...)
	} else {
		l.Logger.Fatal(message...)
	}
}

// Fatal (with stack trace in debug mode).
// This causes exit(1) without a stack dump by default.
func (l *LoggerImpl) Fatal(message ...interface{}) {
	if l.LogLevelStr == "debug" || l.LogLevelStr == "trace" {
		l.Logger.WithField("stackTrace", fmt.Sprintf("%s", debug.Stack())).Fatal(message...)
	} else {
		l.Logger.Fatal(message...)
	}
}

// WithField returns a copy of the logger that adds key=value to every entry.
func (l *LoggerImpl) WithField(key string, value interface{}) *LoggerImpl {
	return &LoggerImpl{
		Logger:         l.Logger.WithField(key, value),
		Service:        l.Service,
		LogLevelStr:    l.LogLevelStr,
		PrintStackDump: l.PrintStackDump,
	}
}

// SetOutput will set the log output to the Writer supplied.
func (l *LoggerImpl) SetOutput(writer io.Writer) {
	setOutputAndFormat(l.Logger.Logger, writer)
}
