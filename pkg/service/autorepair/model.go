// Copyright (C) 2017 ScyllaDB

package autorepair

import (
	"github.com/pkg/errors"
	"github.com/scylladb/autorepair/pkg/dht"
)

// Type specifies a kind of repair. Each type is configured and scheduled
// independently.
type Type string

// Type enumeration.
const (
	TypeFull        Type = "full"
	TypeIncremental Type = "incremental"
)

// AllTypes lists every repair type in a fixed order.
var AllTypes = []Type{TypeFull, TypeIncremental}

func (t Type) String() string {
	return string(t)
}

// ParseType converts a string to a Type.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeFull:
		return TypeFull, nil
	case TypeIncremental:
		return TypeIncremental, nil
	}
	return "", errors.Errorf("unknown repair type %q", s)
}

// Turn is a per cycle decision whether, and why, the local node shall run
// repair. It is computed fresh each cycle from the cluster history and the
// priority and force host sets.
type Turn int8

// Turn enumeration.
const (
	TurnNone Turn = iota
	TurnMine
	TurnMinePriority
	TurnMineForce
)

func (t Turn) String() string {
	switch t {
	case TurnNone:
		return "none"
	case TurnMine:
		return "mine"
	case TurnMinePriority:
		return "priority"
	case TurnMineForce:
		return "force"
	}
	return "unknown"
}

// Mine reports whether the turn allows the local node to repair.
func (t Turn) Mine() bool {
	return t != TurnNone
}

// Assignment is a unit of repair work handed to the dispatcher, a single
// sub-range with the tables it shall cover.
type Assignment struct {
	Range    dht.TokenRange
	Keyspace string
	Tables   []string
}
