// Copyright (C) 2017 ScyllaDB

package autorepair

import (
	"context"
	"time"
)

// TurnCoordinator decides cluster wide whose turn it is to repair and keeps
// the shared repair history. Implementations are expected to be backed by a
// replicated store so that every node reaches the same decision.
type TurnCoordinator interface {
	// DecideTurn evaluates the cluster history and the priority and force
	// host sets and returns the local node's turn for the given type.
	DecideTurn(ctx context.Context, t Type, hostID string) (Turn, error)

	// RecordCycleStart persists the start of a cycle of the local node.
	RecordCycleStart(ctx context.Context, t Type, hostID string, turn Turn) error
	// RecordCycleFinish persists the finish of a cycle of the local node.
	RecordCycleFinish(ctx context.Context, t Type, hostID string) error

	// ClearPriorityMarker removes the local node from the priority host set
	// after a priority turn completed.
	ClearPriorityMarker(ctx context.Context, t Type, hostID string) error

	// LongestUnrepairedHost returns the host that finished repair the
	// longest time ago together with its finish time.
	LongestUnrepairedHost(ctx context.Context, t Type) (string, time.Time, error)

	// NodeReplicatesKeyspace reports whether the local node holds replicas
	// of the keyspace.
	NodeReplicatesKeyspace(ctx context.Context, keyspace string) (bool, error)
	// MaterializedViewsOf returns the materialized views derived from the
	// base table, empty when view repair is off for the type.
	MaterializedViewsOf(ctx context.Context, t Type, keyspace, table string) ([]string, error)

	// KeyspaceBudgetExceeded reports whether the wall clock budget of a
	// keyspace of tableCount tables, started at start, is spent.
	KeyspaceBudgetExceeded(t Type, start time.Time, tableCount int) bool
	// TableBudgetExceeded reports whether the wall clock budget of a single
	// table, started at start, is spent.
	TableBudgetExceeded(t Type, start time.Time) bool
}
