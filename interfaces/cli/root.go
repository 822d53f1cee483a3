// Package cli implements csgctl, the operator tool for recording and
// inspecting use case responses.
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"csgclient/infrastructure/config"
	"csgclient/infrastructure/persistence/filestore"
	"csgclient/pkg/observability"
)

// Version is set at build time
var Version = "1.0.0"

type globalOptions struct {
	dataDir string
	verbose bool
}

// environment is what every subcommand shares once flags are parsed
type environment struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *observability.Collector
	store   *filestore.Store
}

func (e *environment) load(opts globalOptions) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if opts.dataDir != "" {
		cfg.DataDir = opts.dataDir
	}

	logger := zap.NewNop()
	if opts.verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
	}

	e.cfg = cfg
	e.logger = logger
	e.metrics = observability.NewCollector("csgctl")
	e.store, err = filestore.NewStore(cfg, e.metrics, logger)
	return err
}

func (e *environment) close() {
	if e.logger != nil {
		_ = e.logger.Sync()
	}
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var opts globalOptions
	env := &environment{}

	rootCmd := &cobra.Command{
		Use:     "csgctl",
		Short:   "Record and inspect cybersecurity graph use cases",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			return env.load(opts)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			env.close()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "data directory holding the catalog and response files (default: DATA_DIR)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(newRunCasesCommand(env))
	rootCmd.AddCommand(newFetchCommand(env))
	rootCmd.AddCommand(newExploreCommand(env))
	rootCmd.AddCommand(newNormalizeCommand(env))

	return rootCmd
}

func printf(w io.Writer, format string, args ...interface{}) {
	_, _ = fmt.Fprintf(w, format, args...)
}
