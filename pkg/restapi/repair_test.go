// Copyright (C) 2017 ScyllaDB

package restapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/scylladb/autorepair/pkg/restapi"
	"github.com/scylladb/autorepair/pkg/service/autorepair"
	"github.com/scylladb/go-log"
	"go.uber.org/zap/zapcore"
)

type fakeRepairService struct {
	config  autorepair.Config
	started []autorepair.Type
	err     error
}

func (s *fakeRepairService) Config() autorepair.Config {
	return s.config
}

func (s *fakeRepairService) Options(t autorepair.Type) autorepair.TypeOptions {
	return s.config.Options(t)
}

func (s *fakeRepairService) SetOptions(t autorepair.Type, o autorepair.TypeOptions) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if t == autorepair.TypeIncremental {
		s.config.Incremental = o
	} else {
		s.config.Full = o
	}
	return nil
}

func (s *fakeRepairService) RepairState(t autorepair.Type) autorepair.StateSnapshot {
	return autorepair.StateSnapshot{Type: t}
}

func (s *fakeRepairService) RepairAsync(ctx context.Context, t autorepair.Type, wait time.Duration) error {
	if s.err != nil {
		return s.err
	}
	s.started = append(s.started, t)
	return nil
}

type fakeCoordinatorService struct {
	priority map[autorepair.Type][]string
	force    map[autorepair.Type][]string
}

func (s *fakeCoordinatorService) PriorityHosts(ctx context.Context, t autorepair.Type) ([]string, error) {
	return s.priority[t], nil
}

func (s *fakeCoordinatorService) SetPriorityHosts(ctx context.Context, t autorepair.Type, hosts []string) error {
	s.priority[t] = hosts
	return nil
}

func (s *fakeCoordinatorService) ForceHosts(ctx context.Context, t autorepair.Type) ([]string, error) {
	return s.force[t], nil
}

func (s *fakeCoordinatorService) SetForceHosts(ctx context.Context, t autorepair.Type, hosts []string) error {
	s.force[t] = hosts
	return nil
}

func (s *fakeCoordinatorService) LocalGroupHosts(ctx context.Context, t autorepair.Type) ([]string, error) {
	return []string{"h1", "h2"}, nil
}

func newTestHandler(t *testing.T) (http.Handler, *fakeRepairService, *fakeCoordinatorService) {
	t.Helper()

	repair := &fakeRepairService{config: autorepair.DefaultConfig()}
	coord := &fakeCoordinatorService{
		priority: map[autorepair.Type][]string{},
		force:    map[autorepair.Type][]string{},
	}
	h := restapi.New(restapi.Services{
		Repair:      repair,
		Coordinator: coord,
	}, log.NewDevelopmentWithLevel(zapcore.InfoLevel))

	return h, repair, coord
}

func jsonBody(t testing.TB, v interface{}) *bytes.Reader {
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewReader(b)
}

func TestRepairGetOptions(t *testing.T) {
	h, svc, _ := newTestHandler(t)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/repair/full/config", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var o autorepair.TypeOptions
	if err := json.Unmarshal(w.Body.Bytes(), &o); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(svc.Options(autorepair.TypeFull), o); diff != "" {
		t.Fatal(diff)
	}
}

func TestRepairUpdateOptions(t *testing.T) {
	h, svc, _ := newTestHandler(t)

	o := autorepair.DefaultTypeOptions()
	o.Enabled = true
	o.Threads = 4

	r := httptest.NewRequest(http.MethodPut, "/api/v1/repair/incremental/config", jsonBody(t, o))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body)
	}
	if got := svc.Options(autorepair.TypeIncremental); !got.Enabled || got.Threads != 4 {
		t.Fatalf("options not applied: %+v", got)
	}
}

func TestRepairUpdateOptionsValidation(t *testing.T) {
	h, _, _ := newTestHandler(t)

	o := autorepair.DefaultTypeOptions()
	o.Threads = -1

	r := httptest.NewRequest(http.MethodPut, "/api/v1/repair/full/config", jsonBody(t, o))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestRepairUnknownType(t *testing.T) {
	h, _, _ := newTestHandler(t)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/repair/bogus/config", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestRepairStart(t *testing.T) {
	h, svc, _ := newTestHandler(t)

	r := httptest.NewRequest(http.MethodPost, "/api/v1/repair/full/start?wait_ms=100", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d: %s", w.Code, w.Body)
	}
	if len(svc.started) != 1 || svc.started[0] != autorepair.TypeFull {
		t.Fatalf("unexpected starts: %v", svc.started)
	}
}

func TestRepairStartConflict(t *testing.T) {
	h, svc, _ := newTestHandler(t)
	svc.err = autorepair.ErrAlreadyRunning

	r := httptest.NewRequest(http.MethodPost, "/api/v1/repair/full/start", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", w.Code)
	}
}

func TestRepairPriorityRoundTrip(t *testing.T) {
	h, _, coord := newTestHandler(t)

	body := jsonBody(t, map[string][]string{"host_ids": {"h1", "h2"}})
	r := httptest.NewRequest(http.MethodPut, "/api/v1/repair/full/priority", body)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if diff := cmp.Diff([]string{"h1", "h2"}, coord.priority[autorepair.TypeFull]); diff != "" {
		t.Fatal(diff)
	}

	r = httptest.NewRequest(http.MethodGet, "/api/v1/repair/full/priority", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var v map[string][]string
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"h1", "h2"}, v["host_ids"]); diff != "" {
		t.Fatal(diff)
	}
}

func TestRepairLocalGroupFilter(t *testing.T) {
	h, _, _ := newTestHandler(t)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/repair/full/local_group?hosts=h2,h9", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var v map[string][]string
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"h2"}, v["host_ids"]); diff != "" {
		t.Fatal(diff)
	}
}

func TestRepairState(t *testing.T) {
	h, _, _ := newTestHandler(t)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/repair/incremental/state", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var s autorepair.StateSnapshot
	if err := json.Unmarshal(w.Body.Bytes(), &s); err != nil {
		t.Fatal(err)
	}
	if s.Type != autorepair.TypeIncremental {
		t.Fatalf("unexpected state: %+v", s)
	}
}
