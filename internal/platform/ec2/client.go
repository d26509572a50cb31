package ec2

import (
	"context"
)

// InstanceState is the provider-reported lifecycle state.
type InstanceState string

const (
	StatePending      InstanceState = "pending"
	StateRunning      InstanceState = "running"
	StateShuttingDown InstanceState = "shutting-down"
	StateTerminated   InstanceState = "terminated"
	StateStopping     InstanceState = "stopping"
	StateStopped      InstanceState = "stopped"
)

// Status is a point-in-time view of an instance.
type Status struct {
	State InstanceState

	// Address is the public address, empty unless the instance is running
	// and one has been assigned.
	Address string
}

// API is the provider surface consumed by the instance controller.
type API interface {
	// DescribeInstance returns the current state and address of the instance.
	DescribeInstance(ctx context.Context, id string) (Status, error)

	// StartInstance issues a start request. Safe to call on an instance that
	// is already starting.
	StartInstance(ctx context.Context, id string) error

	// StopInstance issues a stop request. Safe to call on an instance that
	// is already stopping.
	StopInstance(ctx context.Context, id string) error
}
