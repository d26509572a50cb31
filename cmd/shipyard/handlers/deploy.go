// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command
// definitions in the commands package. Handlers are framework-agnostic
// and can be tested independently of the CLI framework.
package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/imamik/shipyard/internal/config"
	"github.com/imamik/shipyard/internal/instance"
	"github.com/imamik/shipyard/internal/lifecycle"
	"github.com/imamik/shipyard/internal/platform/ec2"
	sshx "github.com/imamik/shipyard/internal/platform/ssh"
	"github.com/imamik/shipyard/internal/trust"
	"github.com/imamik/shipyard/internal/util/preflight"
)

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// loadConfigFile loads config from file.
	loadConfigFile = config.LoadFile

	// checkPreflight runs local requirement checks.
	checkPreflight = preflight.CheckDefault

	// newPlatformClient creates the cloud API client.
	newPlatformClient = func(ctx context.Context, region string, creds config.Credentials) (ec2.API, error) {
		return ec2.NewClient(ctx, region, creds)
	}

	// newTrustStore opens the host key trust store.
	newTrustStore = trust.NewStore

	// newObserver builds the lifecycle observer.
	newObserver = func() lifecycle.Observer { return lifecycle.NewConsoleObserver() }

	// newController builds the instance controller with a live host key
	// scanner.
	newController = func(api ec2.API, cfg *config.Config, store *trust.Store) lifecycle.Controller {
		return instance.NewController(api, cfg.Instance.ID, &sshx.Scanner{}, store, cfg.Timeouts)
	}

	// newTransport dials the instance once its address is known.
	newTransport = func(sess lifecycle.Session, store *trust.Store) (lifecycle.Transport, error) {
		key, err := os.ReadFile(sess.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key %s: %w", sess.KeyPath, err)
		}
		return sshx.NewClient(&sshx.Config{
			Host:            sess.Address,
			User:            sess.User,
			PrivateKey:      key,
			HostKeyCallback: store.HostKeyCallback(),
		})
	}

	// getwd resolves the local working directory file sets expand against.
	getwd = os.Getwd
)

// Install prepares the instance with the configured install command.
func Install(ctx context.Context, configPath string) error {
	return deploy(ctx, configPath, lifecycle.ModeInstall)
}

// Connect opens an interactive shell on the instance.
func Connect(ctx context.Context, configPath string) error {
	return deploy(ctx, configPath, lifecycle.ModeConnect)
}

// Run executes the full attended deployment cycle.
func Run(ctx context.Context, configPath string) error {
	return deploy(ctx, configPath, lifecycle.ModeRun)
}

// StartRun launches the workload detached and leaves the instance up.
func StartRun(ctx context.Context, configPath string) error {
	return deploy(ctx, configPath, lifecycle.ModeStartRun)
}

// StopRun stops a detached workload, collects artifacts, and stops the
// instance.
func StopRun(ctx context.Context, configPath string) error {
	return deploy(ctx, configPath, lifecycle.ModeStopRun)
}

// deploy wires the full dependency graph for one operation and runs it.
//
// The order matters: configuration problems must surface before any
// cloud call, and the trust store must be open before the controller can
// register a scanned host key.
func deploy(ctx context.Context, configPath string, mode lifecycle.Mode) error {
	if configPath == "" {
		configPath = config.DefaultPath
	}
	cfg, err := loadConfigFile(configPath)
	if err != nil {
		return err
	}

	observer := newObserver()
	checks := checkPreflight(cfg)
	for _, w := range checks.Warnings() {
		observer.Printf("preflight warning: %s (%v)", w.Requirement.Name, w.Err)
	}
	if err := checks.Error(); err != nil {
		return err
	}

	workDir, err := getwd()
	if err != nil {
		return fmt.Errorf("failed to resolve working directory: %w", err)
	}

	api, err := newPlatformClient(ctx, cfg.Instance.Region, cfg.Credentials)
	if err != nil {
		return err
	}

	store, err := newTrustStore(cfg.Remote.KnownHosts)
	if err != nil {
		return err
	}

	controller := newController(api, cfg, store)

	factory := func(sess lifecycle.Session) (lifecycle.Transport, error) {
		return newTransport(sess, store)
	}

	orchestrator := lifecycle.NewOrchestrator(cfg, controller, factory, lifecycle.DefaultPackager(), observer, workDir)
	return orchestrator.Run(ctx, mode)
}
