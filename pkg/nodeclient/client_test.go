// Copyright (C) 2017 ScyllaDB

package nodeclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/scylladb/go-log"
	"go.uber.org/zap/zapcore"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	config := DefaultConfig()
	config.BaseURL = srv.URL
	config.Backoff.WaitMin = time.Millisecond
	config.Backoff.WaitMax = 5 * time.Millisecond

	c, err := NewClient(config, log.NewDevelopmentWithLevel(zapcore.InfoLevel))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestClientTables(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/column_family" || r.URL.Query().Get("keyspace") != "ks" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `[{"name":"a"},{"name":"b","repair_disabled":true}]`)
	})

	tables, err := c.Tables(context.Background(), "ks")
	if err != nil {
		t.Fatal(err)
	}
	golden := []Table{{Name: "a"}, {Name: "b", RepairDisabled: true}}
	if diff := cmp.Diff(golden, tables); diff != "" {
		t.Fatal(diff)
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `"dc1"`)
	})

	dc, err := c.LocalDC(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if dc != "dc1" {
		t.Fatalf("expected dc1, got %q", dc)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "no such keyspace", http.StatusNotFound)
	})

	if _, err := c.Tables(context.Background(), "missing"); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestClientRepairRoundTrip(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/storage_service/repair_async":
			if r.Method != http.MethodPost {
				http.Error(w, "bad method", http.StatusMethodNotAllowed)
				return
			}
			var req RepairRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if req.Keyspace != "ks" || len(req.Tables) != 1 {
				http.Error(w, "bad request", http.StatusBadRequest)
				return
			}
			fmt.Fprint(w, `42`)
		case "/storage_service/repair_status":
			if r.URL.Query().Get("id") != "42" {
				http.Error(w, "unknown id", http.StatusNotFound)
				return
			}
			fmt.Fprint(w, `"SUCCESSFUL"`)
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	})

	id, err := c.Repair(context.Background(), RepairRequest{
		Keyspace:   "ks",
		Tables:     []string{"a"},
		StartToken: 0,
		EndToken:   100,
	})
	if err != nil {
		t.Fatal(err)
	}
	if id != 42 {
		t.Fatalf("expected id 42, got %d", id)
	}

	s, err := c.RepairStatus(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if s != CommandSuccessful {
		t.Fatalf("expected %s, got %s", CommandSuccessful, s)
	}
}

func TestConfigValidate(t *testing.T) {
	table := []struct {
		Name   string
		Update func(*Config)
	}{
		{
			Name:   "missing base url",
			Update: func(c *Config) { c.BaseURL = "" },
		},
		{
			Name:   "zero timeout",
			Update: func(c *Config) { c.Timeout = 0 },
		},
		{
			Name:   "wait max below wait min",
			Update: func(c *Config) { c.Backoff.WaitMax = c.Backoff.WaitMin - 1 },
		},
		{
			Name:   "multiplier not above 1",
			Update: func(c *Config) { c.Backoff.Multiplier = 1 },
		},
	}

	for i := range table {
		test := table[i]
		t.Run(test.Name, func(t *testing.T) {
			c := DefaultConfig()
			test.Update(&c)
			if err := c.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
