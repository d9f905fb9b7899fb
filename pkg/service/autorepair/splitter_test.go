// Copyright (C) 2017 ScyllaDB

package autorepair

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/scylladb/autorepair/pkg/dht"
)

type fakeRing struct {
	primary []dht.TokenRange
	local   []dht.TokenRange

	primaryCalls int
	localCalls   int
}

func (r *fakeRing) PrimaryRanges(ctx context.Context, keyspace string) ([]dht.TokenRange, error) {
	r.primaryCalls++
	return r.primary, nil
}

func (r *fakeRing) LocalRanges(ctx context.Context, keyspace string) ([]dht.TokenRange, error) {
	r.localCalls++
	return r.local, nil
}

func TestSplitterAssignmentsByTable(t *testing.T) {
	ring := &fakeRing{
		primary: []dht.TokenRange{{StartToken: 0, EndToken: 400}},
	}
	s := NewSplitter(ring)

	o := DefaultTypeOptions()
	o.SubRanges = 4

	golden := []Assignment{
		{Range: dht.TokenRange{StartToken: 0, EndToken: 100}, Keyspace: "ks", Tables: []string{"a"}},
		{Range: dht.TokenRange{StartToken: 100, EndToken: 200}, Keyspace: "ks", Tables: []string{"a"}},
		{Range: dht.TokenRange{StartToken: 200, EndToken: 300}, Keyspace: "ks", Tables: []string{"a"}},
		{Range: dht.TokenRange{StartToken: 300, EndToken: 400}, Keyspace: "ks", Tables: []string{"a"}},
		{Range: dht.TokenRange{StartToken: 0, EndToken: 100}, Keyspace: "ks", Tables: []string{"b"}},
		{Range: dht.TokenRange{StartToken: 100, EndToken: 200}, Keyspace: "ks", Tables: []string{"b"}},
		{Range: dht.TokenRange{StartToken: 200, EndToken: 300}, Keyspace: "ks", Tables: []string{"b"}},
		{Range: dht.TokenRange{StartToken: 300, EndToken: 400}, Keyspace: "ks", Tables: []string{"b"}},
	}

	a, err := s.Assignments(context.Background(), o, true, "ks", []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(golden, a); diff != "" {
		t.Fatal(diff)
	}
	if ring.primaryCalls != 1 || ring.localCalls != 0 {
		t.Fatalf("expected primary ranges only, got primary=%d local=%d", ring.primaryCalls, ring.localCalls)
	}
}

func TestSplitterAssignmentsByKeyspace(t *testing.T) {
	ring := &fakeRing{
		local: []dht.TokenRange{{StartToken: 0, EndToken: 400}},
	}
	s := NewSplitter(ring)

	o := DefaultTypeOptions()
	o.SubRanges = 4
	o.ByKeyspace = true

	a, err := s.Assignments(context.Background(), o, false, "ks", []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 4 {
		t.Fatalf("expected one assignment per sub-range, got %d", len(a))
	}
	for i, x := range a {
		if diff := cmp.Diff([]string{"a", "b", "c"}, x.Tables); diff != "" {
			t.Fatalf("assignment %d tables: %s", i, diff)
		}
	}
	if ring.localCalls != 1 || ring.primaryCalls != 0 {
		t.Fatalf("expected local ranges only, got primary=%d local=%d", ring.primaryCalls, ring.localCalls)
	}
}

func TestSplitterAssignmentCount(t *testing.T) {
	ring := &fakeRing{
		primary: []dht.TokenRange{
			{StartToken: 0, EndToken: 1000},
			{StartToken: 5000, EndToken: 6000},
		},
	}
	s := NewSplitter(ring)

	o := DefaultTypeOptions()
	o.SubRanges = 8
	tables := []string{"a", "b", "c"}

	byTable, err := s.Assignments(context.Background(), o, true, "ks", tables)
	if err != nil {
		t.Fatal(err)
	}
	if len(byTable) != 2*8*len(tables) {
		t.Fatalf("by table: expected %d assignments, got %d", 2*8*len(tables), len(byTable))
	}

	o.ByKeyspace = true
	byKeyspace, err := s.Assignments(context.Background(), o, true, "ks", tables)
	if err != nil {
		t.Fatal(err)
	}
	if len(byKeyspace) != 2*8 {
		t.Fatalf("by keyspace: expected %d assignments, got %d", 2*8, len(byKeyspace))
	}
}
