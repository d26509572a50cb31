package ssh

import (
	"errors"
	"fmt"
	"strings"
)

// NetworkError wraps a network-level failure: connection refused, timeout,
// reset, handshake failure. The remote command, if any, may never have run.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network failure during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsNetworkFailure reports whether err belongs to the transient
// network-failure class.
func IsNetworkFailure(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// RemoteCommandError reports a command that ran on the remote host and
// exited non-zero.
type RemoteCommandError struct {
	Command    string
	ExitCode   int
	StderrTail string
}

func (e *RemoteCommandError) Error() string {
	if e.StderrTail == "" {
		return fmt.Sprintf("remote command exited with code %d: %s", e.ExitCode, e.Command)
	}
	return fmt.Sprintf("remote command exited with code %d: %s\nstderr: %s", e.ExitCode, e.Command, e.StderrTail)
}

// IsRemoteCommandFailure reports whether err is a remote command failure,
// returning the typed error when it is.
func IsRemoteCommandFailure(err error) (*RemoteCommandError, bool) {
	var re *RemoteCommandError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// stderrTail returns the last n lines of captured stderr for diagnostics.
func stderrTail(stderr string, n int) string {
	stderr = strings.TrimRight(stderr, "\n")
	if stderr == "" {
		return ""
	}
	lines := strings.Split(stderr, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
