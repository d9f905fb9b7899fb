// Copyright (C) 2017 ScyllaDB

package httphandler

import "net/http"

// Heartbeat replies 204 to liveness probes.
func Heartbeat() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}
