// Package cli implements the larder command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/larder/internal/config"
	"github.com/mesh-intelligence/larder/internal/logging"
	"github.com/mesh-intelligence/larder/internal/paths"
	"github.com/mesh-intelligence/larder/internal/tracing"
	"github.com/mesh-intelligence/larder/pkg/backends"
	"github.com/mesh-intelligence/larder/pkg/larder"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// sysError marks failures of the environment rather than of the request.
type sysError struct{ err error }

func (e sysError) Error() string { return e.err.Error() }
func (e sysError) Unwrap() error { return e.err }

func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var se sysError
	if errors.As(err, &se) {
		return exitSysError
	}
	return exitUserError
}

// app holds the state shared by every subcommand of one invocation.
type app struct {
	configDir string
	dataDir   string
	debug     bool

	file     *config.File
	logger   *zap.Logger
	shutdown tracing.Shutdown
}

// NewRootCmd creates the top-level "larder" command with its subcommands.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "larder",
		Short:         "Relational entities over a flat key-value store",
		Long:          "larder stores the entity types declared in config.yaml in a key-value backend\nand reads them back with their relations.",
		Version:       larder.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.setup(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&a.configDir, "config-dir", "", "configuration directory (default: $(CWD)/.larder)")
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "data directory (default: $(CWD)/.larder-db)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "verbose logging to stderr")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newTablesCmd(a),
		newGetCmd(a),
		newListCmd(a),
		newCreateCmd(a),
		newSetCmd(a),
		newUpdateCmd(a),
		newDeleteCmd(a),
		newDumpCmd(a),
		newLoadCmd(a),
		newServeCmd(a),
	)
	return root
}

// Execute runs the root command and exits with the matching code.
func Execute() {
	root := NewRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "larder:", err)
		os.Exit(exitCode(err))
	}
}

func (a *app) setup(ctx context.Context) error {
	configDir, err := paths.ResolveConfigDir(a.configDir)
	if err != nil {
		return sysError{fmt.Errorf("resolve config dir: %w", err)}
	}
	a.configDir = configDir

	f, err := config.Load(configDir)
	if err != nil {
		return sysError{err}
	}
	a.file = f

	a.logger, err = logging.New(a.debug || f.Debug)
	if err != nil {
		return sysError{fmt.Errorf("create logger: %w", err)}
	}
	a.shutdown, err = tracing.Setup(ctx, f.Trace, a.logger)
	if err != nil {
		return sysError{err}
	}
	return nil
}

func (a *app) teardown(ctx context.Context) error {
	if a.shutdown != nil {
		if err := a.shutdown(ctx); err != nil {
			a.logger.Warn("trace shutdown", zap.Error(err))
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return nil
}

// openDB opens the configured backend and registers the declared schemas.
// The caller closes the DB.
func (a *app) openDB(ctx context.Context) (*larder.DB, error) {
	reg, err := config.Registry(a.file.Schemas)
	if err != nil {
		return nil, err
	}
	dataDir, err := paths.ResolveDataDir(a.dataDir, a.file.DataDir)
	if err != nil {
		return nil, sysError{fmt.Errorf("resolve data dir: %w", err)}
	}
	cfg := a.file.Config
	cfg.DataDir = dataDir
	st, err := backends.Open(ctx, cfg, a.logger)
	if err != nil {
		return nil, sysError{err}
	}
	return larder.New(st, reg, larder.WithLogger(a.logger)), nil
}

// readInput returns the argument, or standard input when it is "-".
func readInput(cmd *cobra.Command, arg string) ([]byte, error) {
	if arg != "-" {
		return []byte(arg), nil
	}
	return io.ReadAll(cmd.InOrStdin())
}
