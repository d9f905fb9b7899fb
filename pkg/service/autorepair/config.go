// Copyright (C) 2017 ScyllaDB

package autorepair

import (
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
)

// TypeOptions specifies scheduling and safety options of a single repair
// type. Options are read continuously by the scheduler, writes take effect on
// the next read.
type TypeOptions struct {
	// Enabled arms the periodic repair check for the type.
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Threads bounds the number of sub-ranges repaired in a single
	// dispatched task group.
	Threads int `yaml:"threads" json:"threads"`
	// SubRanges is the number of sub-ranges every source token range is
	// split into.
	SubRanges int `yaml:"sub_ranges" json:"sub_ranges"`
	// MinIntervalHours rate-limits ordinary turns, repair is skipped when
	// the previous cycle finished less than that many full hours ago.
	MinIntervalHours int `yaml:"min_interval_hours" json:"min_interval_hours"`
	// SSTableThreshold skips tables whose live SSTable count exceeds it.
	SSTableThreshold int `yaml:"sstable_threshold" json:"sstable_threshold"`
	// TableTimeout bounds the wall-clock time spent repairing a single
	// table, when grouping by keyspace the budget is TableTimeout times the
	// number of tables in the keyspace.
	TableTimeout time.Duration `yaml:"table_timeout" json:"table_timeout"`
	// IgnoreDCs lists datacenters that shall never run this repair type.
	IgnoreDCs []string `yaml:"ignore_dcs" json:"ignore_dcs"`
	// PrimaryRangeOnly limits repair to ranges the node owns as a primary
	// replica, force turns always repair all local ranges.
	PrimaryRangeOnly bool `yaml:"primary_range_only" json:"primary_range_only"`
	// ByKeyspace groups a unit's tables into common task groups and scopes
	// the time budget to the keyspace instead of a table.
	ByKeyspace bool `yaml:"by_keyspace" json:"by_keyspace"`
	// MVRepair includes materialized views of a base table in its repair
	// unit.
	MVRepair bool `yaml:"mv_repair" json:"mv_repair"`
	// ParallelPercent sets the size of the cluster subset repairing in
	// parallel as a percentage of the cluster size.
	ParallelPercent int `yaml:"parallel_percent" json:"parallel_percent"`
	// ParallelCount overrides ParallelPercent with an absolute count when
	// set.
	ParallelCount int `yaml:"parallel_count" json:"parallel_count"`
	// CheckInterval is the recurring repair check period.
	CheckInterval time.Duration `yaml:"check_interval" json:"check_interval"`
	// CheckCron replaces CheckInterval with a cron expression when set,
	// the extended syntax including @every is supported.
	CheckCron string `yaml:"check_cron" json:"check_cron"`
	// InitialDelay postpones the first repair check after setup.
	InitialDelay time.Duration `yaml:"initial_delay" json:"initial_delay"`
}

// Config specifies the auto-repair service configuration, options per repair
// type plus process-wide feature flags mirrored from the node.
type Config struct {
	Full        TypeOptions `yaml:"full" json:"full"`
	Incremental TypeOptions `yaml:"incremental" json:"incremental"`

	// MaterializedViews and CDC reflect node level feature flags, they gate
	// incremental repair at setup.
	MaterializedViews bool `yaml:"materialized_views" json:"materialized_views"`
	CDC               bool `yaml:"cdc" json:"cdc"`

	// PollInterval specifies how often a dispatched repair command is
	// polled for completion.
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`
	// StatusObservationDelay keeps the in-progress flag raised after a
	// trivially fast cycle so that monitoring can observe it.
	StatusObservationDelay time.Duration `yaml:"status_observation_delay" json:"status_observation_delay"`
}

// DefaultTypeOptions returns TypeOptions initialized with default values.
func DefaultTypeOptions() TypeOptions {
	return TypeOptions{
		Enabled:          false,
		Threads:          1,
		SubRanges:        32,
		MinIntervalHours: 24,
		SSTableThreshold: 10000,
		TableTimeout:     6 * time.Hour,
		PrimaryRangeOnly: true,
		ParallelPercent:  3,
		CheckInterval:    5 * time.Minute,
		InitialDelay:     30 * time.Second,
	}
}

// DefaultConfig returns a Config initialized with default values.
func DefaultConfig() Config {
	return Config{
		Full:                   DefaultTypeOptions(),
		Incremental:            DefaultTypeOptions(),
		PollInterval:           500 * time.Millisecond,
		StatusObservationDelay: time.Minute,
	}
}

// Options returns options of a given repair type.
func (c Config) Options(t Type) TypeOptions {
	if t == TypeIncremental {
		return c.Incremental
	}
	return c.Full
}

func (c *Config) setOptions(t Type, o TypeOptions) {
	if t == TypeIncremental {
		c.Incremental = o
	} else {
		c.Full = o
	}
}

// Validate checks if all the fields are properly set.
func (c Config) Validate() error {
	var err error

	for _, t := range AllTypes {
		if e := c.Options(t).Validate(); e != nil {
			err = multierr.Append(err, errors.Wrap(e, t.String()))
		}
	}
	if c.PollInterval <= 0 {
		err = multierr.Append(err, errors.New("invalid poll_interval, must be > 0"))
	}
	if c.StatusObservationDelay < 0 {
		err = multierr.Append(err, errors.New("invalid status_observation_delay, must be >= 0"))
	}

	return err
}

// Validate checks if all the fields are properly set.
func (o TypeOptions) Validate() error {
	var err error

	if o.Threads <= 0 {
		err = multierr.Append(err, errors.New("invalid threads, must be > 0"))
	}
	if o.SubRanges <= 0 {
		err = multierr.Append(err, errors.New("invalid sub_ranges, must be > 0"))
	}
	if o.MinIntervalHours < 0 {
		err = multierr.Append(err, errors.New("invalid min_interval_hours, must be >= 0"))
	}
	if o.SSTableThreshold <= 0 {
		err = multierr.Append(err, errors.New("invalid sstable_threshold, must be > 0"))
	}
	if o.TableTimeout <= 0 {
		err = multierr.Append(err, errors.New("invalid table_timeout, must be > 0"))
	}
	if o.ParallelPercent < 0 || o.ParallelPercent > 100 {
		err = multierr.Append(err, errors.New("invalid parallel_percent, must be in [0, 100]"))
	}
	if o.ParallelCount < 0 {
		err = multierr.Append(err, errors.New("invalid parallel_count, must be >= 0"))
	}
	if o.CheckInterval <= 0 && o.CheckCron == "" {
		err = multierr.Append(err, errors.New("invalid check_interval, must be > 0"))
	}
	if o.CheckCron != "" {
		if _, e := cron.ParseStandard(o.CheckCron); e != nil {
			err = multierr.Append(err, errors.Wrap(e, "invalid check_cron"))
		}
	}
	if o.InitialDelay < 0 {
		err = multierr.Append(err, errors.New("invalid initial_delay, must be >= 0"))
	}

	return err
}
