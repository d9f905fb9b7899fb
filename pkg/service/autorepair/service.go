// Copyright (C) 2017 ScyllaDB

package autorepair

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/scylladb/autorepair/pkg/util/timeutc"
	"github.com/scylladb/autorepair/pkg/util/uuid"
	"github.com/scylladb/go-log"
	"github.com/scylladb/go-set/strset"
)

// TableInfo describes a table of a keyspace as seen by the local node.
type TableInfo struct {
	Name string
	// RepairDisabled marks tables administratively excluded from automated
	// repair.
	RepairDisabled bool
}

// ClusterInfo provides the local node's view of the cluster topology and
// schema.
type ClusterInfo interface {
	LocalDC(ctx context.Context) (string, error)
	HostID(ctx context.Context) (string, error)
	Keyspaces(ctx context.Context) ([]string, error)
	Tables(ctx context.Context, keyspace string) ([]TableInfo, error)
	LiveSSTableCount(ctx context.Context, keyspace, table string) (int, error)
}

type job struct {
	wait time.Duration
}

// Service schedules and runs automated repair cycles. Each repair type has
// its own recurring timer and a dedicated executor goroutine so that cycles
// of one type never overlap while types run independently of each other.
type Service struct {
	configMu sync.RWMutex
	config   Config

	cluster     ClusterInfo
	coordinator TurnCoordinator
	splitter    Splitter
	dispatcher  Dispatcher
	logger      log.Logger

	state map[Type]*RunState
	jobs  map[Type]chan job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// now is swapped in tests
	now func() time.Time
}

// NewService creates a new repair scheduling service.
func NewService(config Config, cluster ClusterInfo, coordinator TurnCoordinator,
	splitter Splitter, dispatcher Dispatcher, logger log.Logger) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	if cluster == nil {
		return nil, errors.New("invalid cluster info")
	}
	if coordinator == nil {
		return nil, errors.New("invalid turn coordinator")
	}
	if splitter == nil {
		return nil, errors.New("invalid splitter")
	}
	if dispatcher == nil {
		return nil, errors.New("invalid dispatcher")
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Service{
		config:      config,
		cluster:     cluster,
		coordinator: coordinator,
		splitter:    splitter,
		dispatcher:  dispatcher,
		logger:      logger,
		state:       make(map[Type]*RunState, len(AllTypes)),
		jobs:        make(map[Type]chan job, len(AllTypes)),
		ctx:         ctx,
		cancel:      cancel,
		now:         timeutc.Now,
	}
	for _, t := range AllTypes {
		s.state[t] = &RunState{}
		s.jobs[t] = make(chan job, 1)
	}
	return s, nil
}

// Setup validates feature compatibility and arms the recurring repair check
// of every type. Incompatible configuration is fatal, timers are not armed.
func (s *Service) Setup(ctx context.Context) error {
	c := s.configSnapshot()
	if c.Incremental.Enabled && (c.MaterializedViews || c.CDC) {
		return errors.Wrap(ErrIncompatibleConfig,
			"incremental repair cannot be enabled together with materialized views or CDC")
	}

	for _, t := range AllTypes {
		t := t
		s.wg.Add(2)
		go func() {
			defer s.wg.Done()
			s.executorLoop(t)
		}()
		go func() {
			defer s.wg.Done()
			s.timerLoop(t)
		}()
	}
	s.logger.Info(ctx, "Armed repair timers", "types", AllTypes)
	return nil
}

// Close stops the timers and executors and cancels a running cycle.
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}

// Config returns a snapshot of the whole service configuration.
func (s *Service) Config() Config {
	return s.configSnapshot()
}

func (s *Service) configSnapshot() Config {
	s.configMu.RLock()
	defer s.configMu.RUnlock()
	return s.config
}

// Options returns the current options of a repair type.
func (s *Service) Options(t Type) TypeOptions {
	s.configMu.RLock()
	defer s.configMu.RUnlock()
	return s.config.Options(t)
}

// SetOptions validates and replaces options of a repair type, a running
// cycle observes the change at the next dispatch checkpoint.
func (s *Service) SetOptions(t Type, o TypeOptions) error {
	if err := o.Validate(); err != nil {
		return errors.Wrap(err, "invalid options")
	}
	s.configMu.Lock()
	s.config.setOptions(t, o)
	s.configMu.Unlock()
	return nil
}

// UpdateOptions applies an in-place modification to options of a repair type
// under the config lock.
func (s *Service) UpdateOptions(t Type, update func(*TypeOptions)) error {
	s.configMu.Lock()
	defer s.configMu.Unlock()

	o := s.config.Options(t)
	update(&o)
	if err := o.Validate(); err != nil {
		return errors.Wrap(err, "invalid options")
	}
	s.config.setOptions(t, o)
	return nil
}

// RepairState returns a read-only snapshot of the execution state of a
// repair type.
func (s *Service) RepairState(t Type) StateSnapshot {
	return s.state[t].snapshot(t)
}

// RepairAsync enqueues one repair cycle on the type's executor. A cycle that
// is already queued or running makes it return ErrAlreadyRunning.
func (s *Service) RepairAsync(ctx context.Context, t Type, wait time.Duration) error {
	select {
	case s.jobs[t] <- job{wait: wait}:
		return nil
	default:
		return ErrAlreadyRunning
	}
}

func (s *Service) executorLoop(t Type) {
	for {
		select {
		case <-s.ctx.Done():
			return
		case j := <-s.jobs[t]:
			ctx := log.WithNewTraceID(s.ctx)
			if err := s.Repair(ctx, t, j.wait); err != nil && errors.Cause(err) != context.Canceled {
				s.logger.Error(ctx, "Repair cycle failed", "type", t, "error", err)
			}
		}
	}
}

func (s *Service) timerLoop(t Type) {
	if !s.sleep(s.Options(t).InitialDelay) {
		return
	}
	for {
		if !s.sleep(s.checkDelay(t)) {
			return
		}
		wait := s.configSnapshot().StatusObservationDelay
		if err := s.RepairAsync(s.ctx, t, wait); err != nil {
			s.logger.Debug(s.ctx, "Skipping repair check, cycle pending", "type", t)
		}
	}
}

// checkDelay returns the time to the next repair check, the cron expression
// wins over the plain interval when both are set.
func (s *Service) checkDelay(t Type) time.Duration {
	o := s.Options(t)
	if o.CheckCron != "" {
		if sched, err := cron.ParseStandard(o.CheckCron); err == nil {
			now := s.now()
			return sched.Next(now).Sub(now)
		}
	}
	return o.CheckInterval
}

func (s *Service) sleep(d time.Duration) bool {
	if d <= 0 {
		return s.ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-s.ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// repairUnit is a base table together with its materialized views, repaired
// and accounted for as a whole.
type repairUnit struct {
	baseTable string
	tables    []string
	disabled  bool
}

// Repair runs one synchronous repair cycle of the given type. Most
// preconditions make it a logged no-op, only infrastructure failures return
// an error. The wait parameter stalls the return of a trivially fast cycle
// so that monitoring can observe the in-progress flag.
func (s *Service) Repair(ctx context.Context, t Type, wait time.Duration) error {
	o := s.Options(t)
	if !o.Enabled {
		s.logger.Debug(ctx, "Repair disabled", "type", t)
		return nil
	}

	dc, err := s.cluster.LocalDC(ctx)
	if err != nil {
		return errors.Wrap(err, "get local datacenter")
	}
	if strset.New(o.IgnoreDCs...).Has(dc) {
		s.logger.Info(ctx, "Skipping repair, local datacenter ignored", "type", t, "dc", dc)
		return nil
	}

	st := s.state[t]

	if host, ts, err := s.coordinator.LongestUnrepairedHost(ctx, t); err != nil {
		s.logger.Error(ctx, "Failed to get longest unrepaired host", "type", t, "error", err)
	} else {
		st.longestUnrepairedHost.Store(host)
		st.longestUnrepairedTime.Store(ts)
		if !ts.IsZero() {
			repairLongestUnrepairedSeconds.WithLabelValues(t.String()).Set(s.now().Sub(ts).Seconds())
		}
	}

	hostID, err := s.cluster.HostID(ctx)
	if err != nil {
		return errors.Wrap(err, "get host id")
	}
	turn, err := s.coordinator.DecideTurn(ctx, t, hostID)
	if err != nil {
		return errors.Wrap(err, "decide turn")
	}
	if !turn.Mine() {
		s.logger.Debug(ctx, "Not my turn to repair", "type", t, "host_id", hostID)
		return nil
	}

	sinceHours := int64(math.MaxInt64)
	if last := st.lastRepairTime.Load(); !last.IsZero() {
		sinceHours = int64(s.now().Sub(last).Hours())
	}
	if turn == TurnMine && sinceHours < int64(o.MinIntervalHours) {
		s.logger.Info(ctx, "Skipping repair, too soon after the previous cycle",
			"type", t,
			"hours_since", sinceHours,
			"min_interval_hours", o.MinIntervalHours,
		)
		return nil
	}

	// Force turns repair everything the node replicates.
	primaryOnly := o.PrimaryRangeOnly && turn != TurnMineForce

	if err := s.coordinator.RecordCycleStart(ctx, t, hostID, turn); err != nil {
		return errors.Wrap(err, "record cycle start")
	}

	st.resetCycle()
	st.inProgress.Store(true)
	repairInProgress.WithLabelValues(t.String()).Set(1)
	cycleStart := s.now()
	cycleID := uuid.MustRandom()
	s.logger.Info(ctx, "Starting repair cycle",
		"type", t,
		"cycle_id", cycleID,
		"turn", turn,
		"primary_range_only", primaryOnly,
	)

	halted, err := s.repairKeyspaces(ctx, t, st, primaryOnly)
	if err != nil {
		return err
	}
	if halted {
		s.logger.Info(ctx, "Repair halted, type disabled mid cycle", "type", t)
		st.inProgress.Store(false)
		repairInProgress.WithLabelValues(t.String()).Set(0)
		return nil
	}

	if turn == TurnMinePriority {
		if err := s.coordinator.ClearPriorityMarker(ctx, t, hostID); err != nil {
			s.logger.Error(ctx, "Failed to clear priority marker", "type", t, "error", err)
		}
	}

	finish := s.now()
	nodeDuration := finish.Sub(cycleStart)
	st.nodeRepairTime.Store(nodeDuration)
	if prev := st.lastRepairTime.Load(); !prev.IsZero() {
		clusterDuration := finish.Sub(prev)
		st.clusterRepairTime.Store(clusterDuration)
		repairClusterDuration.WithLabelValues(t.String()).Set(clusterDuration.Seconds())
	}
	st.lastRepairTime.Store(finish)
	s.publishCycleMetrics(t, st, finish, nodeDuration)

	s.logger.Info(ctx, "Finished repair cycle",
		"type", t,
		"cycle_id", cycleID,
		"duration", nodeDuration,
		"keyspaces", st.keyspacesRepaired.Load(),
		"tables_considered", st.tablesConsidered.Load(),
		"tables_success", st.tablesSuccess.Load(),
		"tables_failed", st.tablesFailed.Load(),
		"tables_skipped", st.tablesSkipped.Load(),
		"tables_disabled", st.tablesDisabled.Load(),
		"mv_considered", st.mvConsidered.Load(),
	)

	// A node with nothing to repair would flip the in-progress flag too
	// fast for monitoring to see it.
	if int64(nodeDuration.Hours()) == 0 && wait > 0 {
		s.sleep(wait)
	}

	st.inProgress.Store(false)
	repairInProgress.WithLabelValues(t.String()).Set(0)

	if err := s.coordinator.RecordCycleFinish(ctx, t, hostID); err != nil {
		return errors.Wrap(err, "record cycle finish")
	}
	return nil
}

// repairKeyspaces iterates the keyspaces the node replicates and repairs
// their units. It reports whether the cycle was halted by disablement.
func (s *Service) repairKeyspaces(ctx context.Context, t Type, st *RunState, primaryOnly bool) (halted bool, err error) {
	keyspaces, err := s.cluster.Keyspaces(ctx)
	if err != nil {
		return false, errors.Wrap(err, "list keyspaces")
	}

	for _, keyspace := range keyspaces {
		replicated, err := s.coordinator.NodeReplicatesKeyspace(ctx, keyspace)
		if err != nil {
			s.logger.Error(ctx, "Failed to check keyspace replication", "keyspace", keyspace, "error", err)
			continue
		}
		if !replicated {
			continue
		}
		st.keyspacesRepaired.Inc()

		units, err := s.keyspaceUnits(ctx, t, st, keyspace)
		if err != nil {
			s.logger.Error(ctx, "Failed to list tables", "keyspace", keyspace, "error", err)
			continue
		}
		if len(units) == 0 {
			continue
		}

		halted, err := s.repairKeyspace(ctx, t, st, primaryOnly, keyspace, units)
		if halted || err != nil {
			return halted, err
		}
	}
	return false, nil
}

func (s *Service) keyspaceUnits(ctx context.Context, t Type, st *RunState, keyspace string) ([]repairUnit, error) {
	tables, err := s.cluster.Tables(ctx, keyspace)
	if err != nil {
		return nil, err
	}

	o := s.Options(t)
	units := make([]repairUnit, 0, len(tables))
	for _, ti := range tables {
		u := repairUnit{
			baseTable: ti.Name,
			tables:    []string{ti.Name},
			disabled:  ti.RepairDisabled,
		}
		if o.MVRepair {
			views, err := s.coordinator.MaterializedViewsOf(ctx, t, keyspace, ti.Name)
			if err != nil {
				s.logger.Error(ctx, "Failed to list materialized views",
					"keyspace", keyspace,
					"table", ti.Name,
					"error", err,
				)
			} else {
				u.tables = append(u.tables, views...)
				st.mvConsidered.Add(int64(len(views)))
			}
		}
		units = append(units, u)
	}
	return units, nil
}

// repairKeyspace repairs the units of one keyspace. It reports whether the
// cycle was halted by disablement mid loop.
func (s *Service) repairKeyspace(ctx context.Context, t Type, st *RunState, primaryOnly bool, keyspace string, units []repairUnit) (halted bool, err error) {
	keyspaceStart := s.now()

	for i, u := range units {
		st.tablesConsidered.Add(int64(len(u.tables)))
		if u.disabled {
			st.tablesDisabled.Add(int64(len(u.tables)))
			s.logger.Debug(ctx, "Skipping table, repair disabled", "keyspace", keyspace, "table", u.baseTable)
			continue
		}

		count, err := s.cluster.LiveSSTableCount(ctx, keyspace, u.baseTable)
		if err != nil {
			s.logger.Error(ctx, "Failed to get sstable count", "keyspace", keyspace, "table", u.baseTable, "error", err)
			st.tablesFailed.Add(int64(len(u.tables)))
			continue
		}
		if threshold := s.Options(t).SSTableThreshold; count > threshold {
			st.tablesSkipped.Add(int64(len(u.tables)))
			s.logger.Info(ctx, "Skipping table, too many sstables",
				"keyspace", keyspace,
				"table", u.baseTable,
				"sstables", count,
				"threshold", threshold,
			)
			continue
		}

		o := s.Options(t)
		assignments, err := s.splitter.Assignments(ctx, o, primaryOnly, keyspace, u.tables)
		if err != nil {
			s.logger.Error(ctx, "Failed to compute assignments", "keyspace", keyspace, "table", u.baseTable, "error", err)
			st.tablesFailed.Add(int64(len(u.tables)))
			continue
		}

		unitStart := s.now()
		unitFailed := false
		unitSkipped := false

		for _, group := range groupAssignments(assignments, o.Threads) {
			if !s.Options(t).Enabled {
				return true, nil
			}
			if ctx.Err() != nil {
				return false, ctx.Err()
			}

			if o.ByKeyspace {
				if s.coordinator.KeyspaceBudgetExceeded(t, keyspaceStart, len(units)) {
					for _, r := range units[i:] {
						st.tablesSkipped.Add(int64(len(r.tables)))
					}
					s.logger.Info(ctx, "Keyspace repair budget exceeded",
						"keyspace", keyspace,
						"tables_skipped", len(units)-i,
					)
					return false, nil
				}
			} else if s.coordinator.TableBudgetExceeded(t, unitStart) {
				st.tablesSkipped.Add(int64(len(u.tables)))
				s.logger.Info(ctx, "Table repair budget exceeded", "keyspace", keyspace, "table", u.baseTable)
				unitSkipped = true
				break
			}

			done := make(chan error, 1)
			go func(g []Assignment) {
				done <- s.dispatcher.Dispatch(ctx, t, g)
			}(group)

			select {
			case err := <-done:
				if err != nil {
					s.logger.Error(ctx, "Repair task group failed",
						"keyspace", keyspace,
						"table", u.baseTable,
						"error", err,
					)
					unitFailed = true
				}
			case <-ctx.Done():
				return false, ctx.Err()
			}
		}

		switch {
		case unitSkipped:
		case unitFailed:
			st.tablesFailed.Add(int64(len(u.tables)))
		default:
			st.tablesSuccess.Add(int64(len(u.tables)))
		}
	}

	return false, nil
}

// groupAssignments batches consecutive assignments sharing a table set into
// groups of at most n, a group never mixes tables of different units.
func groupAssignments(assignments []Assignment, n int) [][]Assignment {
	if n <= 0 {
		n = 1
	}
	var groups [][]Assignment
	var cur []Assignment
	for _, a := range assignments {
		if len(cur) == n || (len(cur) > 0 && !sameTables(cur[0].Tables, a.Tables)) {
			groups = append(groups, cur)
			cur = nil
		}
		cur = append(cur, a)
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}
	return groups
}

func sameTables(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (s *Service) publishCycleMetrics(t Type, st *RunState, finish time.Time, nodeDuration time.Duration) {
	l := t.String()
	repairKeyspacesRepaired.WithLabelValues(l).Set(float64(st.keyspacesRepaired.Load()))
	repairTablesConsidered.WithLabelValues(l).Set(float64(st.tablesConsidered.Load()))
	repairTablesSuccess.WithLabelValues(l).Set(float64(st.tablesSuccess.Load()))
	repairTablesFailed.WithLabelValues(l).Set(float64(st.tablesFailed.Load()))
	repairTablesSkipped.WithLabelValues(l).Set(float64(st.tablesSkipped.Load()))
	repairTablesDisabled.WithLabelValues(l).Set(float64(st.tablesDisabled.Load()))
	repairMVConsidered.WithLabelValues(l).Set(float64(st.mvConsidered.Load()))
	repairNodeDuration.WithLabelValues(l).Set(nodeDuration.Seconds())
	repairLastTimestamp.WithLabelValues(l).Set(float64(finish.Unix()))
}
