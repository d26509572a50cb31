package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/shipyard/cmd/shipyard/handlers"
)

// configFlag binds the shared --config flag on a deployment command.
func configFlag(cmd *cobra.Command, configPath *string) {
	cmd.Flags().StringVarP(configPath, "config", "c", "", "Path to configuration file (default: shipyard.yaml)")
}

// Install returns the command that prepares a fresh instance.
//
// It syncs the install file set to the remote directory and runs the
// configured install command, typically a script that sets up Docker and
// the runtime environment. The instance is stopped afterwards unless
// auto_stop is disabled.
func Install() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Prepare the instance with the configured install script",
		Long: `Prepare the instance for running workloads.

Starts the instance if needed, syncs the install file set, and runs the
configured install command on the remote host. With auto_stop enabled
(the default) the instance is stopped again once installation finishes.

Examples:
  # Install using shipyard.yaml in the current directory
  shipyard install

  # Install using a specific config file
  shipyard install -c staging.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Install(cmd.Context(), configPath)
		},
	}

	configFlag(cmd, &configPath)
	return cmd
}

// Connect returns the command that opens an interactive shell on the
// instance. The instance is left running when the shell exits.
func Connect() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Open an interactive shell on the instance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Connect(cmd.Context(), configPath)
		},
	}

	configFlag(cmd, &configPath)
	return cmd
}

// Run returns the command for a full attended deployment cycle: sync,
// execute attached to the local terminal, collect artifacts, stop.
func Run() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Sync, run the workload attached, collect artifacts, stop",
		Long: `Run the workload end to end.

Starts the instance, syncs the run file set, executes the configured run
command attached to your terminal, pulls the retrieve file set into
./retrieved/<timestamp>/, and stops the instance.

Examples:
  # Full cycle using shipyard.yaml
  shipyard run`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Run(cmd.Context(), configPath)
		},
	}

	configFlag(cmd, &configPath)
	return cmd
}

// StartRun returns the command that launches the workload detached and
// leaves the instance running.
func StartRun() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "startRun",
		Short: "Sync and start the workload detached, leave it running",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.StartRun(cmd.Context(), configPath)
		},
	}

	configFlag(cmd, &configPath)
	return cmd
}

// StopRun returns the command that stops a detached workload, collects
// its artifacts, and stops the instance.
func StopRun() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "stopRun",
		Short: "Stop the workload, collect artifacts, stop the instance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.StopRun(cmd.Context(), configPath)
		},
	}

	configFlag(cmd, &configPath)
	return cmd
}
