// Copyright (C) 2017 ScyllaDB

// Package nodeclient talks to the management REST API of the local database
// node. It is the only component that issues network calls to the node, the
// repair service consumes it through narrow interfaces.
package nodeclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/scylladb/autorepair/pkg/dht"
	"github.com/scylladb/go-log"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CommandStatus is the lifecycle state of a repair command on the node.
type CommandStatus string

// CommandStatus enumeration.
const (
	CommandRunning    CommandStatus = "RUNNING"
	CommandSuccessful CommandStatus = "SUCCESSFUL"
	CommandFailed     CommandStatus = "FAILED"
)

// Table describes a table of a keyspace.
type Table struct {
	Name           string `json:"name"`
	RepairDisabled bool   `json:"repair_disabled"`
}

// RepairRequest is a single repair command issued to the node.
type RepairRequest struct {
	Keyspace    string   `json:"keyspace"`
	Tables      []string `json:"tables"`
	StartToken  int64    `json:"start_token"`
	EndToken    int64    `json:"end_token"`
	Incremental bool     `json:"incremental"`
}

// Client is a retrying HTTP client for the node management API.
type Client struct {
	config Config
	client *http.Client
	logger log.Logger
}

// NewClient creates a new node API client.
func NewClient(config Config, logger log.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &Client{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger,
	}, nil
}

// LocalDC returns the datacenter the node belongs to.
func (c *Client) LocalDC(ctx context.Context) (string, error) {
	var dc string
	err := c.get(ctx, "/storage_service/datacenter", nil, &dc)
	return dc, err
}

// HostID returns the node's own host identifier.
func (c *Client) HostID(ctx context.Context) (string, error) {
	var id string
	err := c.get(ctx, "/storage_service/hostid/local", nil, &id)
	return id, err
}

// HostIDs returns host identifiers of all the cluster members.
func (c *Client) HostIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := c.get(ctx, "/storage_service/host_id", nil, &ids)
	return ids, err
}

// Keyspaces returns the names of all user keyspaces on the node.
func (c *Client) Keyspaces(ctx context.Context) ([]string, error) {
	var keyspaces []string
	err := c.get(ctx, "/storage_service/keyspaces", url.Values{"type": {"user"}}, &keyspaces)
	return keyspaces, err
}

// Tables returns the tables of a keyspace.
func (c *Client) Tables(ctx context.Context, keyspace string) ([]Table, error) {
	var tables []Table
	err := c.get(ctx, "/column_family", url.Values{"keyspace": {keyspace}}, &tables)
	return tables, err
}

// Views returns the materialized views derived from a base table.
func (c *Client) Views(ctx context.Context, keyspace, table string) ([]string, error) {
	var views []string
	err := c.get(ctx, fmt.Sprintf("/column_family/views/%s/%s", keyspace, table), nil, &views)
	return views, err
}

// LiveSSTableCount returns the number of live sstables of a table.
func (c *Client) LiveSSTableCount(ctx context.Context, keyspace, table string) (int, error) {
	var count int
	err := c.get(ctx, fmt.Sprintf("/column_family/metrics/live_ss_table_count/%s:%s", keyspace, table), nil, &count)
	return count, err
}

// ReplicatesKeyspace reports whether the given host holds replicas of the
// keyspace.
func (c *Client) ReplicatesKeyspace(ctx context.Context, keyspace, hostID string) (bool, error) {
	var hosts []string
	if err := c.get(ctx, fmt.Sprintf("/storage_service/keyspace_replicas/%s", keyspace), nil, &hosts); err != nil {
		return false, err
	}
	for _, h := range hosts {
		if h == hostID {
			return true, nil
		}
	}
	return false, nil
}

// PrimaryRanges returns the token ranges the node owns as a primary replica
// of the keyspace.
func (c *Client) PrimaryRanges(ctx context.Context, keyspace string) ([]dht.TokenRange, error) {
	var ranges []dht.TokenRange
	err := c.get(ctx, fmt.Sprintf("/storage_service/primary_ranges/%s", keyspace), nil, &ranges)
	return ranges, err
}

// LocalRanges returns all the token ranges the node replicates for the
// keyspace.
func (c *Client) LocalRanges(ctx context.Context, keyspace string) ([]dht.TokenRange, error) {
	var ranges []dht.TokenRange
	err := c.get(ctx, fmt.Sprintf("/storage_service/local_ranges/%s", keyspace), nil, &ranges)
	return ranges, err
}

// Repair schedules a repair command on the node and returns its id.
func (c *Client) Repair(ctx context.Context, r RepairRequest) (uint64, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return 0, errors.Wrap(err, "marshal request")
	}
	var id uint64
	if err := c.do(ctx, http.MethodPost, "/storage_service/repair_async", strings.NewReader(string(body)), &id); err != nil {
		return 0, err
	}
	return id, nil
}

// RepairStatus returns the state of a previously scheduled repair command.
func (c *Client) RepairStatus(ctx context.Context, id uint64) (CommandStatus, error) {
	var s CommandStatus
	err := c.get(ctx, "/storage_service/repair_status", url.Values{"id": {strconv.FormatUint(id, 10)}}, &s)
	return s, err
}

func (c *Client) get(ctx context.Context, path string, query url.Values, v interface{}) error {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return c.do(ctx, http.MethodGet, path, nil, v)
}

// do sends a request with exponential backoff on transport errors and 5xx
// responses. 4xx responses fail immediately.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, v interface{}) error {
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
		if err != nil {
			return backoff.Permanent(err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
			if s, ok := body.(io.Seeker); ok {
				if _, err := s.Seek(0, io.SeekStart); err != nil {
					return backoff.Permanent(err)
				}
			}
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return errors.Errorf("%s %s: status %d", method, path, resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return backoff.Permanent(errors.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, string(b)))
		}
		if v == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return backoff.Permanent(errors.Wrap(err, "decode response"))
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Info(ctx, "Retrying request", "method", method, "path", path, "wait", wait, "error", err)
	}

	return backoff.RetryNotify(op, backoff.WithContext(c.backoff(), ctx), notify)
}

func (c *Client) backoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.config.Backoff.WaitMin
	b.MaxInterval = c.config.Backoff.WaitMax
	b.Multiplier = c.config.Backoff.Multiplier
	b.MaxElapsedTime = 0
	return backoff.WithMaxRetries(b, c.config.Backoff.MaxRetries)
}
