package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"artifactsync/internal/config"
	"artifactsync/internal/format"
	"artifactsync/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	config    string
	logLevel  string
	logFormat string
	report    string
	parallel  int
}

// cfg is the effective configuration, loaded before every subcommand runs.
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "artifactsync",
	Short: "Reconcile GCC RISC-V CI testsuite artifacts across commits",
	Long: `artifactsync classifies the per-target build and testsuite artifacts of a
commit, fetches the report logs of an earlier commit from GitHub Actions
and writes a comparison summary for every target.`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRunE: loadConfig,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&rootFlags.config, "config", "", "Config file (YAML or JSON); defaults apply when empty")
	f.StringVar(&rootFlags.logLevel, "log-level", "", "Log level: debug, info, warn, error (default from config: info)")
	f.StringVar(&rootFlags.logFormat, "log-format", "", "Log format: text, json, console (default from config: text)")
	f.StringVar(&rootFlags.report, "report", "ascii", "Run report format: ascii, markdown")
	f.IntVar(&rootFlags.parallel, "parallel", 0, "Targets processed concurrently (default from config: 1)")

	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(matrixCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = version
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	c := config.Default()
	if rootFlags.config != "" {
		var err error
		if c, err = config.LoadFromPath(rootFlags.config); err != nil {
			return err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		c.Log.Level = rootFlags.logLevel
	}
	if flags.Changed("log-format") {
		c.Log.Format = rootFlags.logFormat
	}
	if flags.Changed("parallel") {
		c.Parallel = rootFlags.parallel
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if _, err := format.ParseMode(rootFlags.report); err != nil {
		return err
	}

	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return err
	}
	switch c.Log.Format {
	case logging.FormatText, logging.FormatJSON, logging.FormatConsole:
	default:
		return fmt.Errorf("unknown log format %q (want text|json|console)", c.Log.Format)
	}
	logging.Init(level, c.Log.Format, cmd.ErrOrStderr())
	cfg = c
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the artifactsync version",
	Args:  cobra.NoArgs,
	// Skip config loading so version works anywhere.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "artifactsync %s\n", version)
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
