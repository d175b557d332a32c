package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/vk/ironrun/internal/app"
	"github.com/vk/ironrun/internal/config"
	"github.com/vk/ironrun/internal/ctxlog"
)

type runOptions struct {
	configPath       string
	logLevel         string
	logFormat        string
	workers          int
	healthcheckPort  int
	scriptType       string
	failOnError      bool
	watch            bool
	watchDebounce    time.Duration
	fetchTimeout     time.Duration
	userAgent        string
	executionTimeout time.Duration
}

func newRunCmd() *cobra.Command {
	return bindRunCmd(&runOptions{})
}

// bindRunCmd builds the run command with its flags bound to opts.
func bindRunCmd(opts *runOptions) *cobra.Command {
	defaults := app.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "run [flags] PATH...",
		Short: "Run the IronScript blocks of HTML documents",
		Long: `Run the IronScript blocks of every given HTML document. Directories are
searched recursively for .html and .htm files. Each document gets its own
JavaScript context; its blocks run in document order.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd, *opts, args)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a := app.NewApp(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg)
			if _, err := a.Run(ctx); err != nil {
				return runtimeError(err)
			}
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&opts.configPath, "config", "c", "", "Path to an HCL or YAML configuration file.")
	fs.StringVar(&opts.logLevel, "log-level", defaults.LogLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	fs.StringVar(&opts.logFormat, "log-format", defaults.LogFormat, "Log output format. Options: 'text' or 'json'.")
	fs.IntVar(&opts.workers, "workers", defaults.Workers, "Number of documents processed concurrently.")
	fs.IntVar(&opts.healthcheckPort, "healthcheck-port", 0, "Port for the HTTP health check and metrics server. 0 is disabled.")
	fs.StringVar(&opts.scriptType, "script-type", defaults.ScriptType, "type attribute marking IronScript elements.")
	fs.BoolVar(&opts.failOnError, "fail-on-error", false, "Exit with status 1 when any script unit failed.")
	fs.BoolVarP(&opts.watch, "watch", "w", false, "Re-run documents when they change on disk.")
	fs.DurationVar(&opts.watchDebounce, "watch-debounce", defaults.WatchDebounce, "Quiet period before a changed document is re-run.")
	fs.DurationVar(&opts.fetchTimeout, "fetch-timeout", 0, "Timeout for each remote script fetch. 0 means none.")
	fs.StringVar(&opts.userAgent, "user-agent", defaults.UserAgent, "User-Agent header for remote script fetches.")
	fs.DurationVar(&opts.executionTimeout, "exec-timeout", 0, "Interrupt a script unit running longer than this. 0 means none.")
	return cmd
}

// buildConfig layers defaults, the configuration file and explicitly set
// flags, in that order, and validates the result.
func buildConfig(cmd *cobra.Command, opts runOptions, paths []string) (*app.Config, error) {
	logger := ctxlog.FromContext(cmd.Context())
	cfg := app.DefaultConfig()

	if opts.configPath != "" {
		f, err := config.Load(cmd.Context(), opts.configPath)
		if err != nil {
			return nil, usageError(err)
		}
		cfg.ApplyFile(f)
		logger.Debug("Configuration file applied.", "path", opts.configPath)
	}

	applyFlags(cmd.Flags(), opts, &cfg)
	cfg.Paths = paths

	validated, err := app.NewConfig(cfg)
	if err != nil {
		return nil, usageError(err)
	}
	return validated, nil
}

func applyFlags(fs *pflag.FlagSet, opts runOptions, cfg *app.Config) {
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}
	set("log-level", func() { cfg.LogLevel = opts.logLevel })
	set("log-format", func() { cfg.LogFormat = opts.logFormat })
	set("workers", func() { cfg.Workers = opts.workers })
	set("healthcheck-port", func() { cfg.HealthcheckPort = opts.healthcheckPort })
	set("script-type", func() { cfg.ScriptType = opts.scriptType })
	set("fail-on-error", func() { cfg.FailOnError = opts.failOnError })
	set("watch", func() { cfg.Watch = opts.watch })
	set("watch-debounce", func() { cfg.WatchDebounce = opts.watchDebounce })
	set("fetch-timeout", func() { cfg.FetchTimeout = opts.fetchTimeout })
	set("user-agent", func() { cfg.UserAgent = opts.userAgent })
	set("exec-timeout", func() { cfg.ExecutionTimeout = opts.executionTimeout })
}
