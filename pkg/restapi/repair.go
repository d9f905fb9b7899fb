// Copyright (C) 2017 ScyllaDB

package restapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/pkg/errors"
	"github.com/scylladb/autorepair/pkg/service/autorepair"
	"github.com/scylladb/go-set/strset"
)

type repairHandler struct {
	svc   RepairService
	coord CoordinatorService
}

func newRepairHandler(services Services) *chi.Mux {
	m := chi.NewMux()
	h := repairHandler{
		svc:   services.Repair,
		coord: services.Coordinator,
	}

	m.Get("/config", h.getConfig)
	m.Route("/{type}", func(r chi.Router) {
		r.Use(h.typeCtx)
		r.Get("/config", h.getOptions)
		r.Put("/config", h.updateOptions)
		r.Post("/start", h.startRepair)
		r.Get("/state", h.getState)
		r.Get("/priority", h.getPriority)
		r.Put("/priority", h.updatePriority)
		r.Get("/force", h.getForce)
		r.Put("/force", h.updateForce)
		r.Get("/local_group", h.getLocalGroup)
	})

	return m
}

func (h repairHandler) typeCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t, err := autorepair.ParseType(chi.URLParam(r, "type"))
		if err != nil {
			respondBadRequest(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), ctxRepairType, t)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h repairHandler) getConfig(w http.ResponseWriter, r *http.Request) {
	render.Respond(w, r, h.svc.Config())
}

func (h repairHandler) getOptions(w http.ResponseWriter, r *http.Request) {
	render.Respond(w, r, h.svc.Options(mustTypeFromCtx(r)))
}

func (h repairHandler) updateOptions(w http.ResponseWriter, r *http.Request) {
	var o autorepair.TypeOptions
	if err := render.DecodeJSON(r.Body, &o); err != nil {
		respondBadRequest(w, r, err)
		return
	}
	if err := h.svc.SetOptions(mustTypeFromCtx(r), o); err != nil {
		respondBadRequest(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h repairHandler) startRepair(w http.ResponseWriter, r *http.Request) {
	var wait time.Duration
	if v := r.FormValue("wait_ms"); v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil || ms < 0 {
			respondBadRequest(w, r, errors.New("invalid wait_ms"))
			return
		}
		wait = time.Duration(ms) * time.Millisecond
	}

	if err := h.svc.RepairAsync(r.Context(), mustTypeFromCtx(r), wait); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h repairHandler) getState(w http.ResponseWriter, r *http.Request) {
	render.Respond(w, r, h.svc.RepairState(mustTypeFromCtx(r)))
}

type hostList struct {
	HostIDs []string `json:"host_ids"`
}

func (h repairHandler) getPriority(w http.ResponseWriter, r *http.Request) {
	hosts, err := h.coord.PriorityHosts(r.Context(), mustTypeFromCtx(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.Respond(w, r, hostList{HostIDs: hosts})
}

func (h repairHandler) updatePriority(w http.ResponseWriter, r *http.Request) {
	var v hostList
	if err := render.DecodeJSON(r.Body, &v); err != nil {
		respondBadRequest(w, r, err)
		return
	}
	if err := h.coord.SetPriorityHosts(r.Context(), mustTypeFromCtx(r), v.HostIDs); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h repairHandler) getForce(w http.ResponseWriter, r *http.Request) {
	hosts, err := h.coord.ForceHosts(r.Context(), mustTypeFromCtx(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.Respond(w, r, hostList{HostIDs: hosts})
}

func (h repairHandler) updateForce(w http.ResponseWriter, r *http.Request) {
	var v hostList
	if err := render.DecodeJSON(r.Body, &v); err != nil {
		respondBadRequest(w, r, err)
		return
	}
	if err := h.coord.SetForceHosts(r.Context(), mustTypeFromCtx(r), v.HostIDs); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h repairHandler) getLocalGroup(w http.ResponseWriter, r *http.Request) {
	hosts, err := h.coord.LocalGroupHosts(r.Context(), mustTypeFromCtx(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if v := r.FormValue("hosts"); v != "" {
		f := strset.New(strings.Split(v, ",")...)
		filtered := hosts[:0]
		for _, id := range hosts {
			if f.Has(id) {
				filtered = append(filtered, id)
			}
		}
		hosts = filtered
	}
	render.Respond(w, r, hostList{HostIDs: hosts})
}
