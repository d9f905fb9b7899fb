// Copyright (C) 2017 ScyllaDB

package restapi

import (
	"context"
	"time"

	"github.com/scylladb/autorepair/pkg/service/autorepair"
)

// Services contains REST API services.
type Services struct {
	Repair      RepairService
	Coordinator CoordinatorService
}

// RepairService service interface for the REST API handlers.
type RepairService interface {
	Config() autorepair.Config
	Options(t autorepair.Type) autorepair.TypeOptions
	SetOptions(t autorepair.Type, o autorepair.TypeOptions) error
	RepairState(t autorepair.Type) autorepair.StateSnapshot
	RepairAsync(ctx context.Context, t autorepair.Type, wait time.Duration) error
}

// CoordinatorService service interface for the REST API handlers.
type CoordinatorService interface {
	PriorityHosts(ctx context.Context, t autorepair.Type) ([]string, error)
	SetPriorityHosts(ctx context.Context, t autorepair.Type, hosts []string) error
	ForceHosts(ctx context.Context, t autorepair.Type) ([]string, error)
	SetForceHosts(ctx context.Context, t autorepair.Type, hosts []string) error
	LocalGroupHosts(ctx context.Context, t autorepair.Type) ([]string, error)
}
