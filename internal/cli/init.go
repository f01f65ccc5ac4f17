package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/larder/internal/paths"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the configuration and data directories",
		Long:  "Write a default config.yaml when missing, then open and close the configured backend once.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			if err := db.Close(); err != nil {
				return sysError{fmt.Errorf("close backend: %w", err)}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "larder initialized (%s backend, config %s)\n",
				a.file.Backend, paths.ConfigFile(a.configDir))
			return nil
		},
	}
}
