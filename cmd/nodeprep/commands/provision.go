package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/nodeprep/cmd/nodeprep/handlers"
)

// Provision returns the command that runs the provisioning pipeline.
//
// Optional flags:
//
//	--yes, -y:     automated mode, no prompts (largest device wins, root
//	               fallback auto-granted, reboots without confirmation)
//	--resume:      continue a run interrupted by a reboot
//	--from-hook:   set by the boot resume hook / a parent orchestrator;
//	               implies --resume and suppresses the reboot confirmation
//	--device:      pin a specific block device by name
//	--pool:        pin a specific volume pool by name
//	--config, -c:  path to the configuration file
func Provision() *cobra.Command {
	var opts handlers.ProvisionOptions

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Run all provisioning stages",
		Long: `Run every incomplete provisioning stage in order: storage, base
packages, GPU driver, container toolkit, validation.

The GPU driver stage requires a reboot. The run stops there, arms a boot
hook and reboots; the hook resumes provisioning unattended after boot.

Examples:
  # Fully unattended provisioning
  nodeprep provision --yes

  # Interactive run with a pinned data device
  nodeprep provision --device nvme1n1

  # Continue manually after an interrupted reboot
  nodeprep provision --resume`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Provision(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Automated mode, never prompt")
	cmd.Flags().BoolVar(&opts.Resume, "resume", false, "Resume after a reboot")
	cmd.Flags().BoolVar(&opts.FromHook, "from-hook", false, "Invoked by the boot resume hook")
	cmd.Flags().StringVar(&opts.Device, "device", "", "Pin a block device by name")
	cmd.Flags().StringVar(&opts.Pool, "pool", "", "Pin a volume pool by name")
	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file (default: /etc/nodeprep/config.yaml)")
	cmd.MarkFlagsMutuallyExclusive("device", "pool")

	return cmd
}
