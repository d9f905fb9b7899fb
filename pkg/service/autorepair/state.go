// Copyright (C) 2017 ScyllaDB

package autorepair

import (
	"time"

	"go.uber.org/atomic"
)

// RunState accumulates counters and timings of repair cycles of a single
// repair type. All fields are safe for concurrent use, a cycle resets the
// per-cycle counters on start.
type RunState struct {
	inProgress atomic.Bool

	keyspacesRepaired atomic.Int64
	tablesConsidered  atomic.Int64
	tablesSuccess     atomic.Int64
	tablesFailed      atomic.Int64
	tablesSkipped     atomic.Int64
	tablesDisabled    atomic.Int64
	mvConsidered      atomic.Int64

	nodeRepairTime    atomic.Duration
	clusterRepairTime atomic.Duration
	lastRepairTime    atomic.Time

	longestUnrepairedHost atomic.String
	longestUnrepairedTime atomic.Time
}

// StateSnapshot is a point-in-time copy of RunState counters.
type StateSnapshot struct {
	Type       Type `json:"type"`
	InProgress bool `json:"in_progress"`

	KeyspacesRepaired int64 `json:"keyspaces_repaired"`
	TablesConsidered  int64 `json:"tables_considered"`
	TablesSuccess     int64 `json:"tables_success"`
	TablesFailed      int64 `json:"tables_failed"`
	TablesSkipped     int64 `json:"tables_skipped"`
	TablesDisabled    int64 `json:"tables_disabled"`
	MVConsidered      int64 `json:"mv_considered"`

	NodeRepairTime    time.Duration `json:"node_repair_time"`
	ClusterRepairTime time.Duration `json:"cluster_repair_time"`
	LastRepairTime    time.Time     `json:"last_repair_time"`

	LongestUnrepairedHost string    `json:"longest_unrepaired_host"`
	LongestUnrepairedTime time.Time `json:"longest_unrepaired_time"`
}

func (s *RunState) resetCycle() {
	s.keyspacesRepaired.Store(0)
	s.tablesConsidered.Store(0)
	s.tablesSuccess.Store(0)
	s.tablesFailed.Store(0)
	s.tablesSkipped.Store(0)
	s.tablesDisabled.Store(0)
	s.mvConsidered.Store(0)
	s.nodeRepairTime.Store(0)
}

func (s *RunState) snapshot(t Type) StateSnapshot {
	return StateSnapshot{
		Type:                  t,
		InProgress:            s.inProgress.Load(),
		KeyspacesRepaired:     s.keyspacesRepaired.Load(),
		TablesConsidered:      s.tablesConsidered.Load(),
		TablesSuccess:         s.tablesSuccess.Load(),
		TablesFailed:          s.tablesFailed.Load(),
		TablesSkipped:         s.tablesSkipped.Load(),
		TablesDisabled:        s.tablesDisabled.Load(),
		MVConsidered:          s.mvConsidered.Load(),
		NodeRepairTime:        s.nodeRepairTime.Load(),
		ClusterRepairTime:     s.clusterRepairTime.Load(),
		LastRepairTime:        s.lastRepairTime.Load(),
		LongestUnrepairedHost: s.longestUnrepairedHost.Load(),
		LongestUnrepairedTime: s.longestUnrepairedTime.Load(),
	}
}
