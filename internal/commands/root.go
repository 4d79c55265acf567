package commands

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/subscout-dev/subscout/internal/allowlist"
	"github.com/subscout-dev/subscout/internal/buildinfo"
	"github.com/subscout-dev/subscout/internal/config"
	"github.com/subscout-dev/subscout/internal/detect"
	"github.com/subscout-dev/subscout/internal/logger"
	"github.com/subscout-dev/subscout/internal/recurring"
	"github.com/subscout-dev/subscout/internal/runlog"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	whitelist  string
	verbose    bool
	log        zerolog.Logger
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{log: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:     "subscout",
		Short:   "Find recurring charges in bank transactions",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := logger.ParseLevel(os.Getenv("LOG_LEVEL"))
			if opts.verbose {
				level = zerolog.DebugLevel
			}
			opts.log = logger.New(cmd.ErrOrStderr(), level)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultFile, "config file")
	rootCmd.PersistentFlags().StringVar(&opts.whitelist, "whitelist", "", "allow list JSON file (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newScanCommand(opts))
	rootCmd.AddCommand(newFetchCommand(opts))
	rootCmd.AddCommand(newServeCommand(opts))
	rootCmd.AddCommand(newHistoryCommand())

	return rootCmd
}

// loadConfig reads the config file (or defaults) with env overrides applied.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithEnv(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if o.whitelist != "" {
		cfg.Detection.Whitelist = o.whitelist
	}
	return cfg, nil
}

// loadAllowList reads the allow list named in cfg. A missing file is fatal.
func (o *globalOptions) loadAllowList(cfg *config.Config) (detect.AllowList, error) {
	list, err := allowlist.Load(cfg.Detection.Whitelist)
	if err != nil {
		return detect.AllowList{}, err
	}
	o.log.Debug().
		Str("path", cfg.Detection.Whitelist).
		Int("entries", list.Len()).
		Strs("terms", list.Terms()).
		Msg("loaded allow list")
	return list, nil
}

// recordRun appends rep to the run log in the working directory.
func (o *globalOptions) recordRun(cmd *cobra.Command, cfg *config.Config, rep recurring.Report) {
	if !cfg.Detection.RunLog {
		return
	}
	if err := runlog.Append(".", []runlog.Entry{runlog.FromReport(rep)}); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to write run log: %v\n", err)
	}
}
