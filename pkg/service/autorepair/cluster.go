// Copyright (C) 2017 ScyllaDB

package autorepair

import (
	"context"

	"github.com/scylladb/autorepair/pkg/nodeclient"
)

type nodeCluster struct {
	client *nodeclient.Client
}

// NewClusterInfo returns a ClusterInfo backed by the node REST API.
func NewClusterInfo(client *nodeclient.Client) ClusterInfo {
	return nodeCluster{client: client}
}

func (c nodeCluster) LocalDC(ctx context.Context) (string, error) {
	return c.client.LocalDC(ctx)
}

func (c nodeCluster) HostID(ctx context.Context) (string, error) {
	return c.client.HostID(ctx)
}

func (c nodeCluster) Keyspaces(ctx context.Context) ([]string, error) {
	return c.client.Keyspaces(ctx)
}

func (c nodeCluster) Tables(ctx context.Context, keyspace string) ([]TableInfo, error) {
	tables, err := c.client.Tables(ctx, keyspace)
	if err != nil {
		return nil, err
	}
	v := make([]TableInfo, len(tables))
	for i, t := range tables {
		v[i] = TableInfo{Name: t.Name, RepairDisabled: t.RepairDisabled}
	}
	return v, nil
}

func (c nodeCluster) LiveSSTableCount(ctx context.Context, keyspace, table string) (int, error) {
	return c.client.LiveSSTableCount(ctx, keyspace, table)
}
