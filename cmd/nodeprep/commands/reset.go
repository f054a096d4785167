package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/nodeprep/cmd/nodeprep/handlers"
)

// Reset returns the command that clears all recorded progress.
func Reset() *cobra.Command {
	var (
		yes        bool
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Discard all recorded progress so the next run starts fresh",
		Long: `Remove the stage ledger, per-stage phase records and the completion
marker. Provisioned artifacts on the node itself (installed packages,
formatted volumes, drivers) are left untouched; the next provision run
re-detects them through its skip probes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Reset(cmd.Context(), configPath, yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")

	return cmd
}
