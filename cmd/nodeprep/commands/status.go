package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/nodeprep/cmd/nodeprep/handlers"
)

// Status returns the read-only progress report command.
func Status() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show provisioning progress for this node",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := handlers.Status(configPath)
			if err != nil {
				return err
			}
			cmd.Print(out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")

	return cmd
}
