// Copyright (C) 2017 ScyllaDB

package restapi

import (
	"net/http"

	"github.com/scylladb/autorepair/pkg/service/autorepair"
)

// ctxt is a context key type.
type ctxt byte

const (
	ctxRepairType ctxt = iota
)

func mustTypeFromCtx(r *http.Request) autorepair.Type {
	t, ok := r.Context().Value(ctxRepairType).(autorepair.Type)
	if !ok {
		panic("missing repair type in context")
	}
	return t
}
