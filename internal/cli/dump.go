package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/larder/internal/dumpfile"
)

func newDumpCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dump [file]",
		Short: "Write every stored key to a file or standard output",
		Long: `Dump writes the raw keys and values of the configured namespace.

A file ending in .jsonl gets one sorted key per line; any other file, or
standard output, gets one JSON object.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			d, err := db.Dump(cmd.Context())
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return printJSON(cmd.OutOrStdout(), d)
			}
			if err := dumpfile.Write(args[0], d); err != nil {
				return sysError{err}
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "dumped %d keys to %s\n", len(d), args[0])
			return err
		},
	}
}

func newLoadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "load <file>",
		Short: "Restore keys written by dump",
		Long:  "Load overwrites the keys found in the file. Keys outside the configured namespace are ignored.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := dumpfile.Read(args[0])
			if err != nil {
				return err
			}
			db, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Load(cmd.Context(), d); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "loaded %s\n", args[0])
			return err
		},
	}
}
