// Copyright (C) 2017 ScyllaDB

package restapi

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/pkg/errors"
	"github.com/scylladb/autorepair/pkg/service/autorepair"
	"github.com/scylladb/go-log"
)

// httpError is a wrapper holding an error, HTTP status code and a user-facing
// message.
type httpError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
	TraceID    string `json:"trace_id"`
}

func (e *httpError) Error() string {
	return e.Message
}

func respondBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	render.Respond(w, r, &httpError{
		StatusCode: http.StatusBadRequest,
		Message:    errors.Wrap(err, "malformed request").Error(),
		TraceID:    log.TraceID(r.Context()),
	})
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch errors.Cause(err) {
	case autorepair.ErrAlreadyRunning:
		render.Respond(w, r, &httpError{
			StatusCode: http.StatusConflict,
			Message:    err.Error(),
			TraceID:    log.TraceID(r.Context()),
		})
	default:
		render.Respond(w, r, &httpError{
			StatusCode: http.StatusInternalServerError,
			Message:    err.Error(),
			TraceID:    log.TraceID(r.Context()),
		})
	}
}
