// Copyright (C) 2017 ScyllaDB

package turncoord

import (
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/scylladb/autorepair/pkg/service/autorepair"
	"github.com/scylladb/go-set/strset"
)

// groupSize returns the number of hosts allowed to repair in parallel. An
// absolute count wins over the percentage, at least one host always repairs.
func groupSize(hosts int, o autorepair.TypeOptions) int {
	n := o.ParallelCount
	if n == 0 {
		n = hosts * o.ParallelPercent / 100
	}
	if n < 1 {
		n = 1
	}
	if n > hosts {
		n = hosts
	}
	return n
}

// orderHosts sorts hosts so that the least recently finished come first.
// Hosts without a finish record sort before everything else. Ties are broken
// by a hash of the host id so that every node computes the same order.
func orderHosts(hosts []string, finish map[string]time.Time) []string {
	v := make([]string, len(hosts))
	copy(v, hosts)
	sort.Slice(v, func(i, j int) bool {
		fi, fj := finish[v[i]], finish[v[j]]
		if !fi.Equal(fj) {
			return fi.Before(fj)
		}
		return xxhash.Sum64String(v[i]) < xxhash.Sum64String(v[j])
	})
	return v
}

// decideTurn computes the local node's turn from the cluster history and the
// priority and force host sets. Force wins over priority, a non-empty
// priority set suspends ordinary turns of hosts outside it.
func decideTurn(hostID string, hosts []string, finish map[string]time.Time,
	priority, force *strset.Set, o autorepair.TypeOptions) autorepair.Turn {
	if force.Has(hostID) {
		return autorepair.TurnMineForce
	}
	if !priority.IsEmpty() {
		if priority.Has(hostID) {
			return autorepair.TurnMinePriority
		}
		return autorepair.TurnNone
	}

	n := groupSize(len(hosts), o)
	for _, h := range orderHosts(hosts, finish)[:n] {
		if h == hostID {
			return autorepair.TurnMine
		}
	}
	return autorepair.TurnNone
}
