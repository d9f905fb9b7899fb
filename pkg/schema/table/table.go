// Copyright (C) 2017 ScyllaDB

package table

import "github.com/scylladb/gocqlx/v2/table"

// Table models
var (
	AutoRepairHistory = table.New(table.Metadata{
		Name: "autorepair_history",
		Columns: []string{
			"repair_type",
			"host_id",
			"start_time",
			"finish_time",
			"turn",
		},
		PartKey: []string{"repair_type"},
		SortKey: []string{"host_id"},
	})

	AutoRepairPriority = table.New(table.Metadata{
		Name: "autorepair_priority",
		Columns: []string{
			"repair_type",
			"host_ids",
		},
		PartKey: []string{"repair_type"},
	})

	AutoRepairForce = table.New(table.Metadata{
		Name: "autorepair_force",
		Columns: []string{
			"repair_type",
			"host_ids",
		},
		PartKey: []string{"repair_type"},
	})
)
