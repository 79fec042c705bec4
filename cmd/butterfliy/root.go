package main

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"butterfliy/pkg/config"
	errs "butterfliy/pkg/errors"
	"butterfliy/pkg/logger"
	"butterfliy/pkg/ui"

	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// globalOptions holds the persistent flags shared by every command
type globalOptions struct {
	configFile   string
	logLevel     string
	baseURL      string
	maxRetries   int
	initialDelay time.Duration
	metricsAddr  string
	quiet        bool

	cfg     *config.Config
	printer *ui.Printer
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "butterfliy",
		Short: "Command-line client for the Butterfliy locations API",
		Long: `Butterfliy is a command-line client for the Butterfliy REST API.

Transient failures (network errors, 5xx responses and 429 rate limits) are
retried with exponential backoff. Every other failure is reported once with
a readable message.

Features:
  - Offline error classification (classify)
  - Location listing, search and concurrent lookups
  - Secure token storage using the system keychain
  - Client-side rate limiting
  - Prometheus metrics for requests and retries`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.printer = ui.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), opts.quiet)
			ui.SetDefault(opts.printer)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "config file (default is ./.butterfliy.yaml or $XDG_CONFIG_HOME/butterfliy/config.yaml)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	flags.StringVar(&opts.baseURL, "base-url", "", "API base URL (default http://localhost:3000)")
	flags.IntVar(&opts.maxRetries, "max-retries", 2, "retries after the first attempt for transient failures")
	flags.DurationVar(&opts.initialDelay, "initial-delay", time.Second, "delay before the first retry; doubles on each retry")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while the command runs")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "suppress all output except results and errors")

	cmd.SetVersionTemplate(`Butterfliy {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)
	cmd.CompletionOptions.DisableDefaultCmd = true

	cmd.AddCommand(
		newClassifyCmd(opts),
		newGetCmd(opts),
		newLocationsCmd(opts),
		newTokenCmd(opts),
		newConfigCmd(opts),
	)
	return cmd
}

// Execute runs the command line and returns the process exit code
func Execute(ctx context.Context, args []string) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)

	if err := cmd.ExecuteContext(ctx); err != nil {
		reportError(err)
		return 1
	}
	return 0
}

// loadConfig loads the configuration once per run and sets up the global
// logger from it
func (o *globalOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if o.cfg != nil {
		return o.cfg, nil
	}

	cfg, err := config.Load(o.configFile, flagOverrides(cmd, o))
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	o.cfg = cfg
	return cfg, nil
}

// flagOverrides collects only the flags set explicitly on the command line
func flagOverrides(cmd *cobra.Command, o *globalOptions) map[string]interface{} {
	flags := make(map[string]interface{})
	changed := cmd.Flags().Changed

	if changed("base-url") {
		flags["base-url"] = o.baseURL
	}
	if changed("max-retries") {
		flags["max-retries"] = o.maxRetries
	}
	if changed("initial-delay") {
		flags["initial-delay"] = o.initialDelay
	}
	if changed("log-level") {
		flags["log-level"] = o.logLevel
	}
	if changed("metrics-addr") {
		flags["metrics-addr"] = o.metricsAddr
	}
	if changed("profile") {
		if profile, err := cmd.Flags().GetString("profile"); err == nil {
			flags["profile"] = profile
		}
	}
	if changed("concurrency") {
		if n, err := cmd.Flags().GetInt("concurrency"); err == nil {
			flags["concurrency"] = n
		}
	}
	return flags
}

// describe returns the classified message for API failures and the error
// text for everything else
func describe(err error) string {
	var httpErr *errs.HTTPError
	var netErr *errs.NetworkError
	if errors.As(err, &httpErr) || errors.As(err, &netErr) {
		return errs.UserFriendlyMessage(err)
	}
	return err.Error()
}

// reportError prints err for the user. API failures are shown with their
// classified message; the raw error goes to the debug log.
func reportError(err error) {
	var httpErr *errs.HTTPError
	var netErr *errs.NetworkError

	switch {
	case errors.Is(err, context.Canceled):
		ui.PrintError("Interrupted", nil)
	case errors.As(err, &httpErr), errors.As(err, &netErr):
		info := errs.Classify(err)
		logger.WithError(err).WithField("class", string(info.Class())).Debug("command failed")
		ui.PrintError(info.Message, nil)
		if info.IsAuthError {
			ui.PrintWarning("Store an access token with 'butterfliy token set'")
		}
	default:
		ui.PrintError("Error", err)
	}
}
