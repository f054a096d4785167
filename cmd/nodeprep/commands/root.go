// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument
// parsing, flag binding, and validation. Command execution is delegated to
// handler functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the nodeprep CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nodeprep",
		Short: "Provision bare-metal GPU compute nodes unattended",
		Long: `nodeprep provisions a bare-metal GPU compute node: durable data storage,
base packages, the GPU driver, the container toolkit and a final GPU
validation pass.

Progress is persisted after every step. The driver stage reboots the host;
a boot-time hook resumes provisioning automatically until everything is
complete. Re-running at any point is safe: finished work is skipped.`,
	}

	cmd.AddCommand(Provision())
	cmd.AddCommand(Storage())
	cmd.AddCommand(Status())
	cmd.AddCommand(Reset())
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}
