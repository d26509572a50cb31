// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument
// parsing and flag binding. Command execution is delegated to handler
// functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the shipyard CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shipyard",
		Short: "Deploy and run containerized workloads on a cloud instance",
		// Errors are reported once, by main, with the command's own
		// diagnosis; usage is only useful for parse errors.
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(Install())
	cmd.AddCommand(Connect())
	cmd.AddCommand(Run())
	cmd.AddCommand(StartRun())
	cmd.AddCommand(StopRun())
	cmd.AddCommand(Version())

	return cmd
}
