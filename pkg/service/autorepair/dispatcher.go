// Copyright (C) 2017 ScyllaDB

package autorepair

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/scylladb/autorepair/pkg/nodeclient"
	"github.com/scylladb/go-log"
)

// Dispatcher runs a group of assignments against the node and blocks until
// they complete.
type Dispatcher interface {
	Dispatch(ctx context.Context, t Type, assignments []Assignment) error
}

type nodeDispatcher struct {
	client       *nodeclient.Client
	pollInterval time.Duration
	logger       log.Logger
}

// NewDispatcher returns a Dispatcher that schedules repair commands over the
// node client and polls them to completion.
func NewDispatcher(client *nodeclient.Client, pollInterval time.Duration, logger log.Logger) Dispatcher {
	return nodeDispatcher{
		client:       client,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Dispatch starts one repair command per assignment and waits for all of
// them. Failure of a single command fails the whole group but only after the
// remaining commands finished, a group never leaves commands running behind.
func (d nodeDispatcher) Dispatch(ctx context.Context, t Type, assignments []Assignment) error {
	type cmd struct {
		id uint64
		a  Assignment
	}

	cmds := make([]cmd, 0, len(assignments))
	for _, a := range assignments {
		id, err := d.client.Repair(ctx, nodeclient.RepairRequest{
			Keyspace:    a.Keyspace,
			Tables:      a.Tables,
			StartToken:  a.Range.StartToken,
			EndToken:    a.Range.EndToken,
			Incremental: t == TypeIncremental,
		})
		if err != nil {
			return errors.Wrapf(err, "schedule repair of %s range %s", a.Keyspace, a.Range)
		}
		d.logger.Debug(ctx, "Scheduled repair command",
			"command", id,
			"keyspace", a.Keyspace,
			"tables", a.Tables,
			"range", a.Range,
		)
		cmds = append(cmds, cmd{id: id, a: a})
	}

	var failed error
	for _, c := range cmds {
		if err := d.wait(ctx, c.id); err != nil {
			d.logger.Error(ctx, "Repair command failed",
				"command", c.id,
				"keyspace", c.a.Keyspace,
				"range", c.a.Range,
				"error", err,
			)
			if failed == nil {
				failed = err
			}
		}
	}
	return failed
}

func (d nodeDispatcher) wait(ctx context.Context, id uint64) error {
	t := time.NewTicker(d.pollInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}

		s, err := d.client.RepairStatus(ctx, id)
		if err != nil {
			return errors.Wrap(err, "get repair status")
		}
		switch s {
		case nodeclient.CommandRunning:
			// continue polling
		case nodeclient.CommandSuccessful:
			return nil
		case nodeclient.CommandFailed:
			return errors.Errorf("command %d failed on node", id)
		default:
			return errors.Errorf("command %d unknown status %q", id, s)
		}
	}
}
