// Package instance controls the lifecycle state of the remote compute
// instance: ensure it is running before a deployment and stopped after.
package instance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/imamik/shipyard/internal/config"
	"github.com/imamik/shipyard/internal/platform/ec2"
)

// ErrProvisionTimeout indicates the instance did not reach the running
// state within the configured provisioning deadline. The instance is left
// in whatever state the provider reports.
var ErrProvisionTimeout = errors.New("timed out waiting for instance to run")

// HostKeyScanner fetches the host's public key for trust registration.
// Implemented by the transport layer.
type HostKeyScanner interface {
	Scan(ctx context.Context, addr string) (ssh.PublicKey, error)
}

// TrustRegistrar records host identities. Implemented by trust.Store.
type TrustRegistrar interface {
	Register(addr string, key ssh.PublicKey) error
}

// Controller drives one instance against the provider API with wait/poll
// semantics. It owns no state beyond its configuration; the provider is
// the single source of truth for the instance's runtime state.
type Controller struct {
	api      ec2.API
	id       string
	scanner  HostKeyScanner
	trust    TrustRegistrar
	timeouts *config.Timeouts
}

// NewController wires a controller for the given instance.
func NewController(api ec2.API, id string, scanner HostKeyScanner, trust TrustRegistrar, timeouts *config.Timeouts) *Controller {
	return &Controller{api: api, id: id, scanner: scanner, trust: trust, timeouts: timeouts}
}

// EnsureRunning returns the instance's public address, starting it first
// if necessary. An instance that is already running is returned
// immediately without any start or poll calls. Before returning, the
// host's identity is registered with the trust store; a conflicting entry
// surfaces as trust.ErrUntrustedHost.
func (c *Controller) EnsureRunning(ctx context.Context) (string, error) {
	status, err := c.api.DescribeInstance(ctx, c.id)
	if err != nil {
		return "", err
	}

	if !isAddressable(status) {
		if status.State == ec2.StateTerminated {
			return "", fmt.Errorf("instance %s is terminated", c.id)
		}
		if status.State == ec2.StateStopped {
			if err := c.api.StartInstance(ctx, c.id); err != nil {
				return "", err
			}
		}
		// pending, stopping, or just-started: poll until addressable.
		if status, err = c.awaitRunning(ctx); err != nil {
			return "", err
		}
	}

	if err := c.registerTrust(ctx, status.Address); err != nil {
		return "", err
	}
	return status.Address, nil
}

// awaitRunning polls instance state with bounded exponential backoff until
// it is running with an address, or the provisioning deadline passes. The
// deadline is checked before each poll, so no provider calls are made
// after it expires. A stopped instance observed mid-poll (a stop was in
// flight) is started once.
func (c *Controller) awaitRunning(ctx context.Context) (ec2.Status, error) {
	deadline := time.Now().Add(c.timeouts.Provision)
	delay := c.timeouts.PollInitialDelay
	started := false

	for {
		if !time.Now().Before(deadline) {
			return ec2.Status{}, fmt.Errorf("%w: instance %s after %s", ErrProvisionTimeout, c.id, c.timeouts.Provision)
		}

		// Clamp the sleep to the remaining window so a backoff interval
		// straddling the deadline cannot push one more poll past it.
		wait := delay
		if remaining := time.Until(deadline); wait > remaining {
			wait = remaining
		}
		select {
		case <-ctx.Done():
			return ec2.Status{}, ctx.Err()
		case <-time.After(wait):
		}
		delay *= 2
		if delay > c.timeouts.PollMaxDelay {
			delay = c.timeouts.PollMaxDelay
		}
		if !time.Now().Before(deadline) {
			return ec2.Status{}, fmt.Errorf("%w: instance %s after %s", ErrProvisionTimeout, c.id, c.timeouts.Provision)
		}

		status, err := c.api.DescribeInstance(ctx, c.id)
		if err != nil {
			return ec2.Status{}, err
		}
		switch {
		case isAddressable(status):
			return status, nil
		case status.State == ec2.StateStopped && !started:
			if err := c.api.StartInstance(ctx, c.id); err != nil {
				return ec2.Status{}, err
			}
			started = true
		case status.State == ec2.StateTerminated:
			return ec2.Status{}, fmt.Errorf("instance %s is terminated", c.id)
		}
	}
}

// EnsureStopped requests a stop when the instance is not already stopped
// or stopping. Stopping an already-stopped instance is a no-op, not an
// error, and issues no stop request.
func (c *Controller) EnsureStopped(ctx context.Context) error {
	status, err := c.api.DescribeInstance(ctx, c.id)
	if err != nil {
		return err
	}

	switch status.State {
	case ec2.StateStopped, ec2.StateStopping, ec2.StateShuttingDown, ec2.StateTerminated:
		return nil
	}
	return c.api.StopInstance(ctx, c.id)
}

// registerTrust scans the host key and records it before the transport's
// first connection. A conflict is surfaced, never overwritten.
func (c *Controller) registerTrust(ctx context.Context, addr string) error {
	if c.scanner == nil || c.trust == nil {
		return nil
	}
	key, err := c.scanner.Scan(ctx, addr)
	if err != nil {
		return fmt.Errorf("failed to scan host key of %s: %w", addr, err)
	}
	return c.trust.Register(addr, key)
}

func isAddressable(s ec2.Status) bool {
	return s.State == ec2.StateRunning && s.Address != ""
}
