package lifecycle

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/imamik/shipyard/internal/archive"
	"github.com/imamik/shipyard/internal/config"
	"github.com/imamik/shipyard/internal/fileset"
	transport "github.com/imamik/shipyard/internal/platform/ssh"
	"github.com/imamik/shipyard/internal/util/retry"
)

// Archive names used for the two transfer directions inside the remote
// directory.
const (
	inboundArchive  = ".shipyard-in.tar.gz"
	outboundArchive = ".shipyard-out.tar.gz"
)

// Session is the remote session derived once the instance is confirmed
// running. It is only valid with a non-empty address and is owned by the
// orchestrator for the duration of one invocation.
type Session struct {
	Address   string
	User      string
	KeyPath   string
	Directory string
}

// Controller ensures the instance's lifecycle state.
// Implemented by instance.Controller.
type Controller interface {
	EnsureRunning(ctx context.Context) (string, error)
	EnsureStopped(ctx context.Context) error
}

// Transport runs remote commands and moves files for one session.
// Implemented by the platform ssh client.
type Transport interface {
	Execute(ctx context.Context, command string, mode transport.ExecMode) (transport.Result, error)
	Push(ctx context.Context, localPaths []string, remoteDir string) error
	Pull(ctx context.Context, remotePath string) (string, error)
}

// TransportFactory builds a transport for a session. The factory runs
// after provisioning, once the address is known.
type TransportFactory func(session Session) (Transport, error)

// Packager builds and unpacks transfer archives.
// Implemented by the archive package.
type Packager interface {
	Pack(rs fileset.Resolved) (string, error)
	Unpack(archivePath, targetDir string) error
}

// DefaultPackager returns the tar.gz packager.
func DefaultPackager() Packager { return archivePackager{} }

type archivePackager struct{}

func (archivePackager) Pack(rs fileset.Resolved) (string, error) { return archive.Pack(rs) }
func (archivePackager) Unpack(archivePath, targetDir string) error {
	return archive.Unpack(archivePath, targetDir)
}

// Orchestrator sequences controller, transport, and packager calls into
// one operation. Phases are strictly sequential; no phase starts before
// the previous one succeeded.
type Orchestrator struct {
	cfg          *config.Config
	controller   Controller
	newTransport TransportFactory
	packager     Packager
	observer     Observer
	workDir      string
}

// NewOrchestrator wires an orchestrator for one invocation. workDir is
// the local working directory file sets resolve against.
func NewOrchestrator(cfg *config.Config, controller Controller, factory TransportFactory, packager Packager, observer Observer, workDir string) *Orchestrator {
	return &Orchestrator{
		cfg:          cfg,
		controller:   controller,
		newTransport: factory,
		packager:     packager,
		observer:     observer,
		workDir:      workDir,
	}
}

// Run executes the phase sequence for mode. On phase failure the
// remaining phases are skipped; if the mode implies teardown and
// auto-stop-on-failure is configured, the instance is still stopped so a
// failed run does not keep billable compute alive.
func (o *Orchestrator) Run(ctx context.Context, mode Mode) error {
	start := time.Now()
	err := o.sequence(ctx, mode)
	if err == nil {
		o.observer.Printf("%s completed in %v", mode, time.Since(start).Round(time.Millisecond))
		return nil
	}

	if o.teardownWanted(mode) && o.cfg.AutoStopOnFailure {
		// The failure may stem from the caller's context; teardown gets a
		// fresh one so the instance is stopped regardless.
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.Timeouts.Network)
		defer cancel()
		if stopErr := o.phase(stopCtx, mode, "teardown", func(c context.Context) error {
			return o.controller.EnsureStopped(c)
		}); stopErr != nil {
			o.observer.Printf("teardown after failure did not complete: %v", stopErr)
		}
	}
	return err
}

// sequence runs the happy-path phases for mode.
func (o *Orchestrator) sequence(ctx context.Context, mode Mode) error {
	sess, t, err := o.provision(ctx, mode)
	if err != nil {
		return err
	}

	switch mode {
	case ModeInstall:
		if err := o.push(ctx, mode, t, sess, o.cfg.FileSets.Install); err != nil {
			return err
		}
		if err := o.executeWait(ctx, mode, t, sess, o.cfg.Commands.Install); err != nil {
			return err
		}
	case ModeConnect:
		// Interactive shell, user-driven; no timeout and no teardown.
		return o.phase(ctx, mode, "execute", func(c context.Context) error {
			_, err := t.Execute(c, "", transport.ModeAttach)
			return err
		})
	case ModeRun:
		if err := o.push(ctx, mode, t, sess, o.cfg.FileSets.Run); err != nil {
			return err
		}
		if err := o.executeAttach(ctx, mode, t, sess, o.cfg.Commands.Run); err != nil {
			return err
		}
		if err := o.pull(ctx, mode, t, sess, o.cfg.FileSets.Retrieve); err != nil {
			return err
		}
	case ModeStartRun:
		if err := o.push(ctx, mode, t, sess, o.cfg.FileSets.Run); err != nil {
			return err
		}
		// Detached start: returns once the remote process is launched.
		return o.executeWait(ctx, mode, t, sess, o.cfg.Commands.Start)
	case ModeStopRun:
		if err := o.executeWait(ctx, mode, t, sess, o.cfg.Commands.Stop); err != nil {
			return err
		}
		if err := o.pull(ctx, mode, t, sess, o.cfg.FileSets.Retrieve); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unrecognized operation %q", mode)
	}

	if o.teardownWanted(mode) {
		return o.phase(ctx, mode, "teardown", func(c context.Context) error {
			return o.controller.EnsureStopped(c)
		})
	}
	return nil
}

// teardownWanted applies the auto-stop flag to Install; Run and StopRun
// always stop.
func (o *Orchestrator) teardownWanted(mode Mode) bool {
	if !mode.impliesTeardown() {
		return false
	}
	if mode == ModeInstall {
		return o.cfg.AutoStop
	}
	return true
}

// provision ensures the instance runs and derives the session and
// transport from its address.
func (o *Orchestrator) provision(ctx context.Context, mode Mode) (Session, Transport, error) {
	var sess Session
	var t Transport
	err := o.phase(ctx, mode, "provision", func(c context.Context) error {
		addr, err := o.controller.EnsureRunning(c)
		if err != nil {
			return err
		}
		sess = Session{
			Address:   addr,
			User:      o.cfg.Remote.User,
			KeyPath:   o.cfg.Remote.KeyPath,
			Directory: o.cfg.Remote.Directory,
		}
		t, err = o.newTransport(sess)
		return err
	})
	return sess, t, err
}

// push packs the file set, uploads the archive, and unpacks it remotely.
// The upload is retried on network failures; the remote unpack, being an
// execution, is not.
func (o *Orchestrator) push(ctx context.Context, mode Mode, t Transport, sess Session, entries []string) error {
	return o.phase(ctx, mode, "push", func(c context.Context) error {
		rs, err := fileset.Resolve(entries, o.workDir)
		if err != nil {
			return err
		}
		archivePath, err := o.packager.Pack(rs)
		if err != nil {
			return err
		}
		defer os.Remove(archivePath)

		if err := o.transfer(c, func(tc context.Context) error {
			return t.Push(tc, []string{archivePath}, sess.Directory)
		}); err != nil {
			return err
		}

		unpack := fmt.Sprintf("cd %s && tar -xzf %s && rm -f %s",
			sess.Directory, filepath.Base(archivePath), filepath.Base(archivePath))
		return o.execOnce(c, t, unpack)
	})
}

// pull archives the retrieve set remotely, downloads it, and unpacks it
// under retrieved/<timestamp> in the working directory.
func (o *Orchestrator) pull(ctx context.Context, mode Mode, t Transport, sess Session, entries []string) error {
	return o.phase(ctx, mode, "pull", func(c context.Context) error {
		// The archive is written outside the session directory so a
		// retrieve set containing "." cannot tar the archive into itself
		// while it is being written.
		remoteOut := path.Join("/tmp", outboundArchive)
		pack := fmt.Sprintf("cd %s && tar -czf %s %s",
			sess.Directory, remoteOut, strings.Join(entries, " "))
		if err := o.execOnce(c, t, pack); err != nil {
			return err
		}

		var local string
		if err := o.transfer(c, func(tc context.Context) error {
			var pullErr error
			local, pullErr = t.Pull(tc, remoteOut)
			return pullErr
		}); err != nil {
			return err
		}
		defer os.Remove(local)

		if err := o.execOnce(c, t, fmt.Sprintf("rm -f %s", remoteOut)); err != nil {
			o.observer.Printf("failed to remove remote archive %s: %v", remoteOut, err)
		}

		dest := filepath.Join(o.workDir, "retrieved", time.Now().Format("20060102-150405"))
		if err := os.MkdirAll(dest, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dest, err)
		}
		if err := o.packager.Unpack(local, dest); err != nil {
			return err
		}
		o.observer.Printf("retrieved artifacts unpacked to %s", dest)
		return nil
	})
}

// executeWait runs command in wait mode as its own phase.
func (o *Orchestrator) executeWait(ctx context.Context, mode Mode, t Transport, sess Session, command string) error {
	return o.phase(ctx, mode, "execute", func(c context.Context) error {
		return o.execOnce(c, t, remoteCommand(sess, command))
	})
}

// executeAttach runs command attached to the local terminal as its own
// phase. No timeout applies; only the caller's context ends it.
func (o *Orchestrator) executeAttach(ctx context.Context, mode Mode, t Transport, sess Session, command string) error {
	return o.phase(ctx, mode, "execute", func(c context.Context) error {
		_, err := t.Execute(c, remoteCommand(sess, command), transport.ModeAttach)
		return err
	})
}

// execOnce runs one wait-mode command under the uniform network timeout.
// Executions are never retried; a retry could double-run remote side
// effects.
func (o *Orchestrator) execOnce(ctx context.Context, t Transport, command string) error {
	execCtx, cancel := context.WithTimeout(ctx, o.cfg.Timeouts.Network)
	defer cancel()
	_, err := t.Execute(execCtx, command, transport.ModeWait)
	return err
}

// transfer retries op on network failures only, with the small fixed
// retry count from configuration.
func (o *Orchestrator) transfer(ctx context.Context, op func(context.Context) error) error {
	return retry.WithExponentialBackoff(ctx, func() error {
		opCtx, cancel := context.WithTimeout(ctx, o.cfg.Timeouts.Network)
		defer cancel()
		return retry.RetryIf(op(opCtx), transport.IsNetworkFailure)
	},
		retry.WithMaxRetries(o.cfg.Timeouts.TransferRetries),
		retry.WithInitialDelay(time.Second),
		retry.WithMaxDelay(10*time.Second),
	)
}

// phase runs fn with start/completion/failure events carrying mode, phase
// name, and elapsed time.
func (o *Orchestrator) phase(ctx context.Context, mode Mode, name string, fn func(context.Context) error) error {
	start := time.Now()
	o.observer.Event(Event{Type: EventPhaseStarted, Mode: mode, Phase: name, Message: "starting"})

	if err := fn(ctx); err != nil {
		o.observer.Event(Event{
			Type: EventPhaseFailed, Mode: mode, Phase: name,
			Message: fmt.Sprintf("failed after %v: %v", time.Since(start).Round(time.Millisecond), err),
		})
		return fmt.Errorf("%s phase failed: %w", name, err)
	}

	o.observer.Event(Event{
		Type: EventPhaseCompleted, Mode: mode, Phase: name,
		Message: fmt.Sprintf("completed in %v", time.Since(start).Round(time.Millisecond)),
	})
	return nil
}

// remoteCommand anchors a configured command in the session directory.
func remoteCommand(sess Session, command string) string {
	return fmt.Sprintf("cd %s && %s", sess.Directory, command)
}
