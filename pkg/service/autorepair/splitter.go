// Copyright (C) 2017 ScyllaDB

package autorepair

import (
	"context"

	"github.com/pkg/errors"
	"github.com/scylladb/autorepair/pkg/dht"
)

// RingDescriber provides the token ranges the local node replicates.
type RingDescriber interface {
	// PrimaryRanges returns the ranges the node owns as a primary replica
	// of the keyspace.
	PrimaryRanges(ctx context.Context, keyspace string) ([]dht.TokenRange, error)
	// LocalRanges returns all the ranges the node replicates for the
	// keyspace.
	LocalRanges(ctx context.Context, keyspace string) ([]dht.TokenRange, error)
}

// Splitter turns a repair unit, a keyspace with a set of tables, into a flat
// list of dispatchable assignments.
type Splitter interface {
	Assignments(ctx context.Context, o TypeOptions, primaryOnly bool, keyspace string, tables []string) ([]Assignment, error)
}

type tokenSplitter struct {
	ring RingDescriber
}

// NewSplitter returns a Splitter that splits each source range evenly into
// the configured number of sub-ranges.
func NewSplitter(ring RingDescriber) Splitter {
	return tokenSplitter{ring: ring}
}

// Assignments fetches the node's ranges for the keyspace, splits each evenly
// into o.SubRanges sub-ranges and fans them out over the tables. With
// o.ByKeyspace a single assignment per sub-range covers all the tables,
// otherwise the sub-ranges are repeated per table in table major order.
func (s tokenSplitter) Assignments(ctx context.Context, o TypeOptions, primaryOnly bool, keyspace string, tables []string) ([]Assignment, error) {
	var (
		ranges []dht.TokenRange
		err    error
	)
	if primaryOnly {
		ranges, err = s.ring.PrimaryRanges(ctx, keyspace)
	} else {
		ranges, err = s.ring.LocalRanges(ctx, keyspace)
	}
	if err != nil {
		return nil, errors.Wrap(err, "describe ring")
	}

	var sub []dht.TokenRange
	for _, r := range ranges {
		sub = append(sub, dht.SplitEvenly(r, o.SubRanges)...)
	}

	if o.ByKeyspace {
		a := make([]Assignment, 0, len(sub))
		for _, r := range sub {
			a = append(a, Assignment{Range: r, Keyspace: keyspace, Tables: tables})
		}
		return a, nil
	}

	a := make([]Assignment, 0, len(sub)*len(tables))
	for _, t := range tables {
		for _, r := range sub {
			a = append(a, Assignment{Range: r, Keyspace: keyspace, Tables: []string{t}})
		}
	}
	return a, nil
}
