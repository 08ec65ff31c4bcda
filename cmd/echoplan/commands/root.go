package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/dyluth/echoplan/internal/config"
	"github.com/dyluth/echoplan/internal/logging"
	"github.com/dyluth/echoplan/internal/printer"
	"github.com/dyluth/echoplan/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	version string
	commit  string
	date    string

	configPath string
	verbose    bool

	// logger is built by PersistentPreRunE for the running command
	logger = zap.NewNop()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "echoplan",
	Short: "echoplan - Acoustic liquid handler transfer planner",
	Long: `echoplan plans plate-to-plate transfers for an acoustic liquid handler.

From a table of sample recipes it lays out replicated destination plates,
tops every well up with diluent, stages each reagent into source-plate wells
and compiles the transfer instructions the instrument executes.`,
	Version: version,
	// Prevent silent success when unknown flags are passed to root command
	// e.g., "echoplan --samples x.csv" instead of "echoplan plan --samples x.csv"
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.New(verbose)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// Silence Cobra's default error and usage printing
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to echoplan.yml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging on stderr")
}

// loadConfig reads --config and turns failures into printed explanations
func loadConfig() (*config.EchoplanConfig, error) {
	cfg, err := config.Load(configPath)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, printer.Error(
			"configuration not found",
			fmt.Sprintf("No configuration file at %s.", configPath),
			[]string{
				"Create a starter project:\n  echoplan init",
				"Point at an existing file:\n  echoplan --config path/to/echoplan.yml <command>",
			},
		)
	}
	return nil, printer.Error(
		"invalid configuration",
		err.Error(),
		[]string{fmt.Sprintf("Fix %s and try again", configPath)},
	)
}

// openStore connects to the run store configured in cfg
func openStore(ctx context.Context, cfg *config.EchoplanConfig) (store.Store, error) {
	opts := cfg.Store.Options()
	s, err := store.Open(ctx, opts)
	if err == nil {
		return s, nil
	}
	if errors.Is(err, store.ErrDisabled) {
		return nil, printer.Error(
			"no run store configured",
			fmt.Sprintf("%s has store.backend set to none.", configPath),
			[]string{"Set store.backend to sqlite or redis in echoplan.yml"},
		)
	}
	if opts.Backend == store.BackendRedis {
		return nil, printer.ErrorWithContext(
			"Redis connection failed",
			err.Error(),
			[][2]string{{"Address", opts.RedisAddr}, {"Project", opts.Project}},
			[]string{
				"Check that Redis is running:\n  redis-cli -h <host> -p <port> ping",
				"Switch to the local backend:\n  store:\n    backend: sqlite",
			},
		)
	}
	return nil, printer.ErrorWithContext(
		"failed to open run store",
		err.Error(),
		[][2]string{{"Backend", opts.Backend}},
		nil,
	)
}
