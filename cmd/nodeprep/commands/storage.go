package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/nodeprep/cmd/nodeprep/handlers"
)

// Storage returns the command that runs the storage stage alone.
func Storage() *cobra.Command {
	var opts handlers.StorageOptions

	cmd := &cobra.Command{
		Use:   "storage",
		Short: "Set up the data volume without running later stages",
		Long: `Choose and prepare durable backing storage for the data directory.

The decision tree prefers, in order: an already-mounted target, the largest
unused raw block device, free volume-pool capacity, and finally the root
filesystem after explicit confirmation.

Examples:
  nodeprep storage --yes
  nodeprep storage --device nvme1n1
  nodeprep storage --pool vg0`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Storage(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Automated mode, never prompt")
	cmd.Flags().StringVar(&opts.Device, "device", "", "Pin a block device by name")
	cmd.Flags().StringVar(&opts.Pool, "pool", "", "Pin a volume pool by name")
	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file")
	cmd.MarkFlagsMutuallyExclusive("device", "pool")

	return cmd
}
