// Copyright (C) 2017 ScyllaDB

package autorepair

import "github.com/pkg/errors"

var (
	// ErrIncompatibleConfig is returned from Setup when an enabled repair
	// type cannot run against the node's feature set, it is fatal.
	ErrIncompatibleConfig = errors.New("incompatible repair configuration")

	// ErrAlreadyRunning is returned from RepairAsync when a cycle of the
	// type is already queued or running.
	ErrAlreadyRunning = errors.New("repair already in progress")
)
