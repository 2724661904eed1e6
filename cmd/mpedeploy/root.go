package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mpetoken/mpedeploy/internal/config"
	"github.com/mpetoken/mpedeploy/internal/migration"
	"github.com/mpetoken/mpedeploy/internal/profile"
)

// Version information - set via ldflags during build
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Default values
const (
	DefaultProfilesFile = "mpe-config.yaml"
	DefaultTimeout      = 10 * time.Minute
)

// Global flag variables
var (
	cfgFile      string
	profilesFile string
	envFile      string
	jsonOut      bool
	verbose      bool
	timeout      time.Duration
)

// newConnector builds the chain connector for migrate. Tests replace it.
var newConnector = func(cfg *config.Config, logger *slog.Logger) migration.Connector {
	return migration.EthConnector{ArtifactDir: cfg.ArtifactDir, Logger: logger}
}

var rootCmd *cobra.Command

func init() {
	rootCmd = &cobra.Command{
		Use:   "mpedeploy",
		Short: "mpedeploy - MPE crowdsale deployment tool",
		Long: `mpedeploy provisions the MPE crowdsale contract on an Ethereum network.

It resolves the stakeholder accounts for the target network, computes the
sale schedule and sends a single deployment transaction.

Configuration (in order of priority):
  1. Command-line flags
  2. Environment variables (MPEDEPLOY_NETWORKS_<NAME>_GAS_PRICE, ...)
  3. Config file (mpedeploy.yaml in . or ./config)

Stakeholder accounts and keys are read from the profile table
(mpe-config.yaml). Values like ${OPERATOR_KEY} are expanded from the
environment, which is seeded from .env.

Get started:
  $ mpedeploy networks list
  $ mpedeploy schedule --network rinkeby
  $ mpedeploy migrate --network development --dry-run`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is mpedeploy.yaml)")
	rootCmd.PersistentFlags().StringVar(&profilesFile, "profiles", DefaultProfilesFile, "network profile table")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "env file to load (default is .env when present)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", DefaultTimeout, "overall deadline for network operations")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newNetworksCmd())
	rootCmd.AddCommand(newScheduleCmd())
	rootCmd.AddCommand(newConfigCmd())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "mpedeploy %s\n", Version)
			if verbose {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  commit:  %s\n", Commit)
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  built:   %s\n", BuildDate)
			}
		},
	}
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteWithArgs runs the root command with the provided arguments (for testing)
func ExecuteWithArgs(args []string) error {
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

// SetOutput sets the output writer for the root command (for testing)
func SetOutput(w io.Writer) {
	rootCmd.SetOut(w)
	rootCmd.SetErr(w)
}

// ResetFlags resets all global flags to their defaults (for testing)
func ResetFlags() {
	cfgFile = ""
	profilesFile = DefaultProfilesFile
	envFile = ""
	jsonOut = false
	verbose = false
	timeout = DefaultTimeout
	resetMigrateFlags()
	resetScheduleFlags()
}

// environment is everything a command needs after flags are parsed.
type environment struct {
	cfg      *config.Config
	profiles *profile.Table
	logger   *slog.Logger
}

// loadEnvironment loads .env first so that the config and the profile table
// can both see its variables.
func loadEnvironment(cmd *cobra.Command) (*environment, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, err
	}

	cfg, err := config.Load(config.Options{File: cfgFile})
	if err != nil {
		return nil, err
	}

	profiles, err := profile.Load(profilesFile)
	if err != nil {
		return nil, err
	}

	return &environment{
		cfg:      cfg,
		profiles: profiles,
		logger:   newLogger(cmd.ErrOrStderr()),
	}, nil
}

func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// commandContext is cancelled on SIGINT/SIGTERM and after --timeout.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}
