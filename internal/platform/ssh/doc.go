// Package ssh is the transport layer: it runs commands on the remote host
// and copies files to and from it over a single secure channel.
//
// Execution has two explicit modes. Wait mode captures stdout/stderr and
// the exit code and is bounded by the caller's context. Attach mode wires
// the local terminal to a remote PTY and blocks until the user or the
// remote side ends the session; cancelling its context sends an explicit
// disconnect to the remote side instead of abandoning the process.
//
// All operations are single-attempt here. Retry policy belongs to the
// lifecycle orchestrator, which retries transfers but never execution.
// Errors distinguish the network-level class (NetworkError: the command
// may never have run) from remote command failure (RemoteCommandError:
// the command ran and exited non-zero).
package ssh
