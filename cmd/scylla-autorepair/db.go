// Copyright (C) 2017 ScyllaDB

package main

import (
	"context"
	"net"
	"time"

	"github.com/gocql/gocql"
	"github.com/pkg/errors"
	"github.com/scylladb/autorepair/pkg/config"
	"github.com/scylladb/autorepair/pkg/schema"
	"github.com/scylladb/go-log"
	"github.com/scylladb/gocqlx/v2"
	"go.uber.org/multierr"
)

func waitForDatabase(ctx context.Context, c *config.Config, logger log.Logger) error {
	const (
		wait        = 5 * time.Second
		maxAttempts = 60
	)

	for i := 0; i < maxAttempts; i++ {
		if _, err := tryConnectToDatabase(c); err != nil {
			logger.Info(ctx, "Could not connect to database",
				"sleep", wait,
				"error", err,
			)
			time.Sleep(wait)
		} else {
			return nil
		}
	}

	return errors.New("could not connect to database, max attempts reached")
}

func tryConnectToDatabase(c *config.Config) (string, error) {
	var errs error

	for _, host := range c.Database.Hosts {
		conn, err := net.Dial("tcp", net.JoinHostPort(host, "9042"))
		if conn != nil {
			conn.Close()
		}
		if err == nil {
			return host, nil
		}
		errs = multierr.Append(errs, errors.Wrap(err, host))
	}

	return "", errs
}

func createKeyspace(c *config.Config) error {
	session, err := gocqlx.WrapSession(gocqlClusterConfigForDBInit(c).CreateSession())
	if err != nil {
		return err
	}
	defer session.Close()

	// Auto upgrade replication factor if needed. RF=1 with multiple hosts
	// means data loss when one of the nodes is down. This is understood with
	// a single node deployment but must be avoided if we have more nodes.
	if c.Database.ReplicationFactor == 1 {
		var peers int
		if err := session.Query("SELECT COUNT(*) FROM system.peers", nil).Get(&peers); err != nil {
			return err
		}
		if peers > 0 {
			rf := peers + 1
			if rf > 3 {
				rf = 3
			}
			c.Database.ReplicationFactor = rf
		}
	}

	if err := schema.CreateKeyspace(session, c.Database.Keyspace, c.Database.ReplicationFactor); err != nil {
		return err
	}
	return schema.CreateTables(session, c.Database.Keyspace)
}

func gocqlClusterConfigForDBInit(c *config.Config) *gocql.ClusterConfig {
	cc := gocqlClusterConfig(c)
	cc.Keyspace = "system"
	cc.Timeout = 30 * time.Second
	return cc
}

func gocqlClusterConfig(c *config.Config) *gocql.ClusterConfig {
	cc := gocql.NewCluster(c.Database.Hosts...)

	// Chose consistency level, for a single node deployments use ONE, for
	// multi-dc deployments use LOCAL_QUORUM, otherwise use QUORUM.
	switch {
	case c.Database.LocalDC != "":
		cc.Consistency = gocql.LocalQuorum
	case c.Database.ReplicationFactor == 1:
		cc.Consistency = gocql.One
	default:
		cc.Consistency = gocql.Quorum
	}

	cc.Keyspace = c.Database.Keyspace
	cc.Timeout = c.Database.Timeout

	// Authentication
	if c.Database.User != "" {
		cc.Authenticator = gocql.PasswordAuthenticator{
			Username: c.Database.User,
			Password: c.Database.Password,
		}
	}

	if c.Database.TokenAware {
		fallback := gocql.RoundRobinHostPolicy()
		if c.Database.LocalDC != "" {
			fallback = gocql.DCAwareRoundRobinPolicy(c.Database.LocalDC)
		}
		cc.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(fallback)
	}

	return cc
}
