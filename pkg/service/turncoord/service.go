// Copyright (C) 2017 ScyllaDB

// Package turncoord decides cluster wide whose turn it is to run repair. The
// decision is derived from a shared repair history and priority and force
// host sets kept in replicated tables, every node evaluating the same data
// reaches the same decision without a distributed lock.
package turncoord

import (
	"context"
	"time"

	"github.com/gocql/gocql"
	"github.com/pkg/errors"
	schematable "github.com/scylladb/autorepair/pkg/schema/table"
	"github.com/scylladb/autorepair/pkg/service/autorepair"
	"github.com/scylladb/autorepair/pkg/util/timeutc"
	"github.com/scylladb/go-log"
	"github.com/scylladb/go-set/strset"
	"github.com/scylladb/gocqlx/v2"
	"github.com/scylladb/gocqlx/v2/qb"
	"github.com/scylladb/gocqlx/v2/table"
)

// NodeInfo provides the node and cluster facts the coordinator needs.
type NodeInfo interface {
	HostID(ctx context.Context) (string, error)
	HostIDs(ctx context.Context) ([]string, error)
	ReplicatesKeyspace(ctx context.Context, keyspace, hostID string) (bool, error)
	Views(ctx context.Context, keyspace, table string) ([]string, error)
}

// OptionsFunc returns the current options of a repair type, it is read on
// every decision so that configuration changes apply immediately.
type OptionsFunc func(t autorepair.Type) autorepair.TypeOptions

// Service implements turn coordination on top of replicated CQL tables.
type Service struct {
	session gocqlx.Session
	node    NodeInfo
	options OptionsFunc
	logger  log.Logger
}

// NewService creates a new turn coordination service.
func NewService(session gocqlx.Session, node NodeInfo, options OptionsFunc, logger log.Logger) (*Service, error) {
	if session.Session == nil {
		return nil, errors.New("invalid session")
	}
	if node == nil {
		return nil, errors.New("invalid node info")
	}
	if options == nil {
		return nil, errors.New("invalid options func")
	}
	return &Service{
		session: session,
		node:    node,
		options: options,
		logger:  logger,
	}, nil
}

type historyRecord struct {
	RepairType string
	HostID     string
	StartTime  time.Time
	FinishTime time.Time
	Turn       string
}

type hostSetRecord struct {
	RepairType string
	HostIDs    []string
}

// DecideTurn evaluates the shared history and host sets and returns the
// local node's turn.
func (s *Service) DecideTurn(ctx context.Context, t autorepair.Type, hostID string) (autorepair.Turn, error) {
	force, err := s.hostSet(ctx, schematable.AutoRepairForce, t)
	if err != nil {
		return autorepair.TurnNone, errors.Wrap(err, "load force hosts")
	}
	priority, err := s.hostSet(ctx, schematable.AutoRepairPriority, t)
	if err != nil {
		return autorepair.TurnNone, errors.Wrap(err, "load priority hosts")
	}
	hosts, err := s.node.HostIDs(ctx)
	if err != nil {
		return autorepair.TurnNone, errors.Wrap(err, "list hosts")
	}
	finish, err := s.finishTimes(ctx, t)
	if err != nil {
		return autorepair.TurnNone, errors.Wrap(err, "load history")
	}

	turn := decideTurn(hostID, hosts, finish, priority, force, s.options(t))
	s.logger.Debug(ctx, "Decided turn", "type", t, "host_id", hostID, "turn", turn)
	return turn, nil
}

// RecordCycleStart upserts the history row of the host with a fresh start
// time and the granted turn.
func (s *Service) RecordCycleStart(ctx context.Context, t autorepair.Type, hostID string, turn autorepair.Turn) error {
	stmt, names := schematable.AutoRepairHistory.Update("start_time", "turn")
	return s.session.ContextQuery(ctx, stmt, names).BindStruct(historyRecord{
		RepairType: t.String(),
		HostID:     hostID,
		StartTime:  timeutc.Now(),
		Turn:       turn.String(),
	}).ExecRelease()
}

// RecordCycleFinish upserts the history row of the host with a fresh finish
// time.
func (s *Service) RecordCycleFinish(ctx context.Context, t autorepair.Type, hostID string) error {
	stmt, names := schematable.AutoRepairHistory.Update("finish_time")
	return s.session.ContextQuery(ctx, stmt, names).BindStruct(historyRecord{
		RepairType: t.String(),
		HostID:     hostID,
		FinishTime: timeutc.Now(),
	}).ExecRelease()
}

// ClearPriorityMarker removes the host from the priority set.
func (s *Service) ClearPriorityMarker(ctx context.Context, t autorepair.Type, hostID string) error {
	stmt, names := qb.Update(schematable.AutoRepairPriority.Name()).
		Remove("host_ids").
		Where(qb.Eq("repair_type")).
		ToCql()
	return s.session.ContextQuery(ctx, stmt, names).BindMap(qb.M{
		"repair_type": t.String(),
		"host_ids":    []string{hostID},
	}).ExecRelease()
}

// LongestUnrepairedHost returns the host that finished repair the longest
// time ago, hosts with no history at all win.
func (s *Service) LongestUnrepairedHost(ctx context.Context, t autorepair.Type) (string, time.Time, error) {
	hosts, err := s.node.HostIDs(ctx)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "list hosts")
	}
	if len(hosts) == 0 {
		return "", time.Time{}, nil
	}
	finish, err := s.finishTimes(ctx, t)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "load history")
	}

	h := orderHosts(hosts, finish)[0]
	return h, finish[h], nil
}

// NodeReplicatesKeyspace reports whether the local node holds replicas of
// the keyspace.
func (s *Service) NodeReplicatesKeyspace(ctx context.Context, keyspace string) (bool, error) {
	hostID, err := s.node.HostID(ctx)
	if err != nil {
		return false, errors.Wrap(err, "get host id")
	}
	return s.node.ReplicatesKeyspace(ctx, keyspace, hostID)
}

// MaterializedViewsOf returns the materialized views derived from the base
// table.
func (s *Service) MaterializedViewsOf(ctx context.Context, _ autorepair.Type, keyspace, baseTable string) ([]string, error) {
	return s.node.Views(ctx, keyspace, baseTable)
}

// KeyspaceBudgetExceeded reports whether a keyspace of tableCount tables
// started at start has spent its wall clock budget.
func (s *Service) KeyspaceBudgetExceeded(t autorepair.Type, start time.Time, tableCount int) bool {
	o := s.options(t)
	return timeutc.Since(start) > time.Duration(tableCount)*o.TableTimeout
}

// TableBudgetExceeded reports whether a table started at start has spent its
// wall clock budget.
func (s *Service) TableBudgetExceeded(t autorepair.Type, start time.Time) bool {
	return timeutc.Since(start) > s.options(t).TableTimeout
}

// PriorityHosts returns the priority host set.
func (s *Service) PriorityHosts(ctx context.Context, t autorepair.Type) ([]string, error) {
	v, err := s.hostSet(ctx, schematable.AutoRepairPriority, t)
	if err != nil {
		return nil, err
	}
	return v.List(), nil
}

// SetPriorityHosts replaces the priority host set.
func (s *Service) SetPriorityHosts(ctx context.Context, t autorepair.Type, hosts []string) error {
	return s.setHostSet(ctx, schematable.AutoRepairPriority, t, hosts)
}

// ForceHosts returns the force host set.
func (s *Service) ForceHosts(ctx context.Context, t autorepair.Type) ([]string, error) {
	v, err := s.hostSet(ctx, schematable.AutoRepairForce, t)
	if err != nil {
		return nil, err
	}
	return v.List(), nil
}

// SetForceHosts replaces the force host set.
func (s *Service) SetForceHosts(ctx context.Context, t autorepair.Type, hosts []string) error {
	return s.setHostSet(ctx, schematable.AutoRepairForce, t, hosts)
}

// LocalGroupHosts returns the hosts of the parallel repair group an ordinary
// turn decision would grant next.
func (s *Service) LocalGroupHosts(ctx context.Context, t autorepair.Type) ([]string, error) {
	hosts, err := s.node.HostIDs(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list hosts")
	}
	if len(hosts) == 0 {
		return nil, nil
	}
	finish, err := s.finishTimes(ctx, t)
	if err != nil {
		return nil, errors.Wrap(err, "load history")
	}

	n := groupSize(len(hosts), s.options(t))
	return orderHosts(hosts, finish)[:n], nil
}

func (s *Service) finishTimes(ctx context.Context, t autorepair.Type) (map[string]time.Time, error) {
	stmt, names := schematable.AutoRepairHistory.Select("host_id", "finish_time")
	q := s.session.ContextQuery(ctx, stmt, names).BindMap(qb.M{"repair_type": t.String()})

	var rows []historyRecord
	if err := q.SelectRelease(&rows); err != nil {
		return nil, err
	}

	v := make(map[string]time.Time, len(rows))
	for _, r := range rows {
		v[r.HostID] = r.FinishTime
	}
	return v, nil
}

func (s *Service) hostSet(ctx context.Context, tbl *table.Table, t autorepair.Type) (*strset.Set, error) {
	stmt, names := tbl.Get("host_ids")
	q := s.session.ContextQuery(ctx, stmt, names).BindMap(qb.M{"repair_type": t.String()})

	var r hostSetRecord
	if err := q.GetRelease(&r); err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return strset.New(), nil
		}
		return nil, err
	}
	return strset.New(r.HostIDs...), nil
}

func (s *Service) setHostSet(ctx context.Context, tbl *table.Table, t autorepair.Type, hosts []string) error {
	stmt, names := tbl.Insert()
	return s.session.ContextQuery(ctx, stmt, names).BindStruct(hostSetRecord{
		RepairType: t.String(),
		HostIDs:    hosts,
	}).ExecRelease()
}
