// Copyright (C) 2017 ScyllaDB

// Package httplog wires the chi request logging middleware to log.Logger.
package httplog

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/scylladb/go-log"
)

// TraceID tags the request context with a trace ID, handlers and downstream
// log calls share it.
func TraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(log.WithTraceID(r.Context())))
	})
}

// RequestLogger logs a line per served request with status, size and timing.
func RequestLogger(logger log.Logger) func(next http.Handler) http.Handler {
	return middleware.RequestLogger(&logFormatter{logger: logger})
}

// RequestLoggerSetRequestError attaches the handler error to the request's
// log entry so the final line carries it.
func RequestLoggerSetRequestError(r *http.Request, err error) {
	if le, _ := middleware.GetLogEntry(r).(*logEntry); le != nil {
		le.err = err
	}
}

type logFormatter struct {
	logger log.Logger
}

func (lf logFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	return &logEntry{
		r: r,
		l: lf.logger,
	}
}

type logEntry struct {
	r   *http.Request
	l   log.Logger
	err error
}

func (le *logEntry) Write(status, bytes int, header http.Header, elapsed time.Duration, extra interface{}) {
	f := []interface{}{
		"from", le.r.RemoteAddr,
		"status", status,
		"bytes", bytes,
		"duration_ms", elapsed.Milliseconds(),
	}
	if le.err != nil {
		f = append(f, "error", le.err)
	}
	le.l.Info(le.r.Context(), le.r.Method+" "+le.r.URL.RequestURI(), f...)
}

func (le *logEntry) Panic(v interface{}, stack []byte) {
	le.l.Error(le.r.Context(), "Handler panic", "panic", v, "stack", string(stack))
}
