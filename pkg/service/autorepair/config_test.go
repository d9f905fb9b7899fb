// Copyright (C) 2017 ScyllaDB

package autorepair

import (
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestTypeOptionsValidate(t *testing.T) {
	table := []struct {
		Name   string
		Update func(*TypeOptions)
	}{
		{
			Name:   "zero threads",
			Update: func(o *TypeOptions) { o.Threads = 0 },
		},
		{
			Name:   "zero sub ranges",
			Update: func(o *TypeOptions) { o.SubRanges = 0 },
		},
		{
			Name:   "negative min interval",
			Update: func(o *TypeOptions) { o.MinIntervalHours = -1 },
		},
		{
			Name:   "zero sstable threshold",
			Update: func(o *TypeOptions) { o.SSTableThreshold = 0 },
		},
		{
			Name:   "zero table timeout",
			Update: func(o *TypeOptions) { o.TableTimeout = 0 },
		},
		{
			Name:   "parallel percent over 100",
			Update: func(o *TypeOptions) { o.ParallelPercent = 101 },
		},
		{
			Name:   "negative parallel count",
			Update: func(o *TypeOptions) { o.ParallelCount = -1 },
		},
		{
			Name: "no check schedule",
			Update: func(o *TypeOptions) {
				o.CheckInterval = 0
				o.CheckCron = ""
			},
		},
		{
			Name:   "bad cron expression",
			Update: func(o *TypeOptions) { o.CheckCron = "not a cron" },
		},
		{
			Name:   "negative initial delay",
			Update: func(o *TypeOptions) { o.InitialDelay = -time.Second },
		},
	}

	for i := range table {
		test := table[i]
		t.Run(test.Name, func(t *testing.T) {
			o := DefaultTypeOptions()
			test.Update(&o)
			if err := o.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestTypeOptionsCronSchedule(t *testing.T) {
	o := DefaultTypeOptions()
	o.CheckInterval = 0
	o.CheckCron = "@every 1h"
	if err := o.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestConfigOptionsRoundTrip(t *testing.T) {
	c := DefaultConfig()
	o := c.Options(TypeIncremental)
	o.Threads = 7
	c.setOptions(TypeIncremental, o)

	if c.Options(TypeIncremental).Threads != 7 {
		t.Fatal("incremental options not updated")
	}
	if c.Options(TypeFull).Threads == 7 {
		t.Fatal("full options updated by accident")
	}
}
