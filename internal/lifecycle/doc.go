// Package lifecycle sequences one deployment operation against the remote
// instance: provision, push, execute, pull, teardown.
//
// # Core Types
//
// Mode selects which phases run (Install, Connect, Run, StartRun,
// StopRun). Orchestrator drives the instance controller, the transport
// layer, and the artifact packager through the phase sequence for a mode.
// Observer receives a structured event for every phase transition with
// mode, phase name, and elapsed time.
//
// Phases run strictly sequentially; a failed phase aborts the rest. When
// the mode implies teardown and auto-stop-on-failure is configured, the
// instance is still stopped after a failure so a broken run does not leave
// billable compute behind.
package lifecycle
