// Copyright (C) 2017 ScyllaDB

// Package schema creates the coordination keyspace and tables.
package schema

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/scylladb/gocqlx/v2"
)

const keyspaceTmpl = `CREATE KEYSPACE IF NOT EXISTS %q WITH replication = {'class': 'NetworkTopologyStrategy', 'replication_factor': %d}`

var tableTmpls = []string{
	`CREATE TABLE IF NOT EXISTS %q.autorepair_history (
	repair_type text,
	host_id text,
	start_time timestamp,
	finish_time timestamp,
	turn text,
	PRIMARY KEY (repair_type, host_id)
)`,
	`CREATE TABLE IF NOT EXISTS %q.autorepair_priority (
	repair_type text PRIMARY KEY,
	host_ids set<text>
)`,
	`CREATE TABLE IF NOT EXISTS %q.autorepair_force (
	repair_type text PRIMARY KEY,
	host_ids set<text>
)`,
}

// CreateKeyspace creates the coordination keyspace if it does not exist.
func CreateKeyspace(session gocqlx.Session, keyspace string, replicationFactor int) error {
	return errors.Wrap(session.ExecStmt(fmt.Sprintf(keyspaceTmpl, keyspace, replicationFactor)), "create keyspace")
}

// CreateTables creates the coordination tables if they do not exist.
func CreateTables(session gocqlx.Session, keyspace string) error {
	for _, tmpl := range tableTmpls {
		if err := session.ExecStmt(fmt.Sprintf(tmpl, keyspace)); err != nil {
			return errors.Wrap(err, "create table")
		}
	}
	return nil
}
