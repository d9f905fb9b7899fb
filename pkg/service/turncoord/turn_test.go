// Copyright (C) 2017 ScyllaDB

package turncoord

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/scylladb/autorepair/pkg/service/autorepair"
	"github.com/scylladb/go-set/strset"
)

func TestGroupSize(t *testing.T) {
	table := []struct {
		Name    string
		Hosts   int
		Percent int
		Count   int
		Golden  int
	}{
		{Name: "percent of cluster", Hosts: 100, Percent: 3, Golden: 3},
		{Name: "at least one", Hosts: 10, Percent: 3, Golden: 1},
		{Name: "count wins over percent", Hosts: 100, Percent: 3, Count: 10, Golden: 10},
		{Name: "count capped at cluster size", Hosts: 5, Count: 10, Golden: 5},
		{Name: "zero everything", Hosts: 5, Golden: 1},
	}

	for i := range table {
		test := table[i]
		t.Run(test.Name, func(t *testing.T) {
			o := autorepair.TypeOptions{
				ParallelPercent: test.Percent,
				ParallelCount:   test.Count,
			}
			if n := groupSize(test.Hosts, o); n != test.Golden {
				t.Fatalf("groupSize() = %d, expected %d", n, test.Golden)
			}
		})
	}
}

func TestOrderHostsLeastRecentlyFinishedFirst(t *testing.T) {
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	hosts := []string{"a", "b", "c", "d"}
	finish := map[string]time.Time{
		"a": t0.Add(3 * time.Hour),
		"b": t0.Add(time.Hour),
		"c": t0.Add(2 * time.Hour),
		// d never finished
	}

	golden := []string{"d", "b", "c", "a"}
	if diff := cmp.Diff(golden, orderHosts(hosts, finish)); diff != "" {
		t.Fatal(diff)
	}
}

func TestOrderHostsDeterministicOnTies(t *testing.T) {
	hosts := []string{"c", "a", "b"}
	a := orderHosts(hosts, nil)
	b := orderHosts([]string{"b", "c", "a"}, nil)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatal(diff)
	}
}

func TestDecideTurn(t *testing.T) {
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	hosts := []string{"a", "b", "c"}
	finish := map[string]time.Time{
		"a": t0.Add(time.Hour),
		"b": t0,
		"c": t0.Add(2 * time.Hour),
	}
	o := autorepair.TypeOptions{ParallelCount: 1}

	table := []struct {
		Name     string
		HostID   string
		Priority *strset.Set
		Force    *strset.Set
		Golden   autorepair.Turn
	}{
		{
			Name:     "least recently finished gets the turn",
			HostID:   "b",
			Priority: strset.New(),
			Force:    strset.New(),
			Golden:   autorepair.TurnMine,
		},
		{
			Name:     "others wait",
			HostID:   "c",
			Priority: strset.New(),
			Force:    strset.New(),
			Golden:   autorepair.TurnNone,
		},
		{
			Name:     "priority set wins over history",
			HostID:   "c",
			Priority: strset.New("c"),
			Force:    strset.New(),
			Golden:   autorepair.TurnMinePriority,
		},
		{
			Name:     "non priority host suspended",
			HostID:   "b",
			Priority: strset.New("c"),
			Force:    strset.New(),
			Golden:   autorepair.TurnNone,
		},
		{
			Name:     "force wins over everything",
			HostID:   "a",
			Priority: strset.New("c"),
			Force:    strset.New("a"),
			Golden:   autorepair.TurnMineForce,
		},
	}

	for i := range table {
		test := table[i]
		t.Run(test.Name, func(t *testing.T) {
			turn := decideTurn(test.HostID, hosts, finish, test.Priority, test.Force, o)
			if turn != test.Golden {
				t.Fatalf("decideTurn() = %s, expected %s", turn, test.Golden)
			}
		})
	}
}

func TestDecideTurnGroupOfTwo(t *testing.T) {
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	hosts := []string{"a", "b", "c"}
	finish := map[string]time.Time{
		"a": t0.Add(time.Hour),
		"b": t0,
		"c": t0.Add(2 * time.Hour),
	}
	o := autorepair.TypeOptions{ParallelCount: 2}

	mine := 0
	for _, h := range hosts {
		if decideTurn(h, hosts, finish, strset.New(), strset.New(), o).Mine() {
			mine++
		}
	}
	if mine != 2 {
		t.Fatalf("expected 2 hosts with a turn, got %d", mine)
	}
	if turn := decideTurn("c", hosts, finish, strset.New(), strset.New(), o); turn != autorepair.TurnNone {
		t.Fatalf("most recently finished host got turn %s", turn)
	}
}
