// Package config defines the configuration surface for shipyard.
//
// Configuration is loaded once at startup from a YAML file (shipyard.yaml
// by default) and treated as read-only for the rest of the process. It
// names the target instance, credentials, the remote session parameters,
// the per-operation file sets and remote commands, the teardown policy,
// and timeout overrides.
//
// Timeout defaults can also be tuned through SHIPYARD_* environment
// variables; see LoadTimeouts.
package config
