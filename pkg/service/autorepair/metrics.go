// Copyright (C) 2017 ScyllaDB

package autorepair

import "github.com/prometheus/client_golang/prometheus"

var (
	repairInProgress = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "autorepair",
		Subsystem: "repair",
		Name:      "in_progress",
		Help:      "1 when a repair cycle of the type is running on this node.",
	}, []string{"type"})

	repairKeyspacesRepaired = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "autorepair",
		Subsystem: "repair",
		Name:      "keyspaces_repaired",
		Help:      "Number of replicated keyspaces visited in the last cycle.",
	}, []string{"type"})

	repairTablesConsidered = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "autorepair",
		Subsystem: "repair",
		Name:      "tables_considered",
		Help:      "Number of tables considered for repair in the last cycle.",
	}, []string{"type"})

	repairTablesSuccess = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "autorepair",
		Subsystem: "repair",
		Name:      "tables_success",
		Help:      "Number of tables repaired successfully in the last cycle.",
	}, []string{"type"})

	repairTablesFailed = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "autorepair",
		Subsystem: "repair",
		Name:      "tables_failed",
		Help:      "Number of tables that failed to repair in the last cycle.",
	}, []string{"type"})

	repairTablesSkipped = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "autorepair",
		Subsystem: "repair",
		Name:      "tables_skipped",
		Help:      "Number of tables skipped in the last cycle due to budgets or thresholds.",
	}, []string{"type"})

	repairTablesDisabled = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "autorepair",
		Subsystem: "repair",
		Name:      "tables_disabled",
		Help:      "Number of tables with repair disabled seen in the last cycle.",
	}, []string{"type"})

	repairMVConsidered = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "autorepair",
		Subsystem: "repair",
		Name:      "materialized_views_considered",
		Help:      "Number of materialized views included in repair units in the last cycle.",
	}, []string{"type"})

	repairNodeDuration = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "autorepair",
		Subsystem: "repair",
		Name:      "node_duration_seconds",
		Help:      "Wall clock duration of the last repair cycle of this node.",
	}, []string{"type"})

	repairClusterDuration = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "autorepair",
		Subsystem: "repair",
		Name:      "cluster_duration_seconds",
		Help:      "Time between the previous and the last cycle finish on this node, an estimate of the full cluster round.",
	}, []string{"type"})

	repairLastTimestamp = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "autorepair",
		Subsystem: "repair",
		Name:      "last_repair_timestamp_seconds",
		Help:      "Unix timestamp of the last finished repair cycle on this node.",
	}, []string{"type"})

	repairLongestUnrepairedSeconds = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "autorepair",
		Subsystem: "repair",
		Name:      "longest_unrepaired_seconds",
		Help:      "Seconds since the least recently repaired host in the cluster finished.",
	}, []string{"type"})
)

func init() {
	prometheus.MustRegister(
		repairInProgress,
		repairKeyspacesRepaired,
		repairTablesConsidered,
		repairTablesSuccess,
		repairTablesFailed,
		repairTablesSkipped,
		repairTablesDisabled,
		repairMVConsidered,
		repairNodeDuration,
		repairClusterDuration,
		repairLastTimestamp,
		repairLongestUnrepairedSeconds,
	)
}
