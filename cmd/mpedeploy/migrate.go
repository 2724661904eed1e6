package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mpetoken/mpedeploy/internal/metrics"
	"github.com/mpetoken/mpedeploy/internal/migration"
)

var (
	migrateNetwork  string
	migrateVersion  int
	migrateDryRun   bool
	migrateRate     string
	migrateStart    string
	migrateArtifact string
	migrateMetrics  string
)

func resetMigrateFlags() {
	migrateNetwork = ""
	migrateVersion = migration.Latest
	migrateDryRun = false
	migrateRate = ""
	migrateStart = ""
	migrateArtifact = ""
	migrateMetrics = ""
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Deploy the crowdsale contract",
		Long: `Deploy MPECrowdsale to the selected network with a single transaction.

The constructor receives the rate, the four sale milestones and the
stakeholder addresses of the chosen migration version:
  1: adv1 adv2 adv3 owner operator
  2: adv1 adv2 adv3 owner operator team bounty reserve partners liquidity

Nothing is retried. A failed run leaves no deployment record.

Examples:
  mpedeploy migrate --network development
  mpedeploy migrate --network rinkeby --version 2 --dry-run
  mpedeploy migrate --network development --rate "5000 ether" --start 2018-09-01T00:00:00Z`,
		Args: cobra.NoArgs,
		RunE: runMigrate,
	}

	cmd.Flags().StringVarP(&migrateNetwork, "network", "n", "", "target network (required)")
	cmd.Flags().IntVar(&migrateVersion, "version", migration.Latest, "migration version (1 or 2)")
	cmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "resolve and print the parameters without deploying")
	cmd.Flags().StringVar(&migrateRate, "rate", "", "override the token rate (wei, or with a unit like \"5000 ether\")")
	cmd.Flags().StringVar(&migrateStart, "start", "", "pin the sale start (RFC3339 or unix seconds; relative schedules only)")
	cmd.Flags().StringVar(&migrateArtifact, "artifacts", "", "compiled contract directory (default from config)")
	cmd.Flags().StringVar(&migrateMetrics, "metrics-file", "", "write run metrics to this file in Prometheus text format")

	return cmd
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if migrateNetwork == "" {
		return fmt.Errorf("--network is required")
	}

	req := migration.Request{
		Network: migrateNetwork,
		Version: migrateVersion,
		DryRun:  migrateDryRun,
	}
	if migrateRate != "" {
		rate, err := parseRate(migrateRate)
		if err != nil {
			return err
		}
		req.Rate = rate
	}
	if migrateStart != "" {
		start, err := parseTime(migrateStart)
		if err != nil {
			return err
		}
		req.Start = &start
	}

	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}
	if migrateArtifact != "" {
		env.cfg.ArtifactDir = migrateArtifact
	}

	runner := &migration.Runner{
		Profiles:  env.profiles,
		Config:    env.cfg,
		Connector: newConnector(env.cfg, env.logger),
		RecordDir: env.cfg.DeploymentsDir,
		Logger:    env.logger,
	}
	if migrateMetrics != "" {
		runner.Metrics = metrics.New()
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	rec, err := runner.Run(ctx, req)
	if runner.Metrics != nil {
		if werr := runner.Metrics.WriteTextfile(migrateMetrics); werr != nil {
			env.logger.Warn("metrics not written", "path", migrateMetrics, "error", werr)
		}
	}
	if err != nil {
		// a deployed contract whose record could not be written is still
		// printed so the address is not lost
		if rec != nil && rec.Result != nil {
			if perr := outputRecord(cmd.OutOrStdout(), rec); perr != nil {
				env.logger.Warn("record not printed", "error", perr)
			}
		}
		return err
	}
	return outputRecord(cmd.OutOrStdout(), rec)
}

func outputRecord(w io.Writer, rec *migration.Record) error {
	if jsonOut {
		return printJSON(w, rec)
	}
	printRecord(w, rec)
	return nil
}

func printRecord(w io.Writer, rec *migration.Record) {
	if rec.DryRun {
		fmt.Fprintf(w, "%s %s v%d on %s (nothing sent)\n", colorYellow("Dry run:"), rec.Contract, rec.Version, rec.Network)
	} else {
		fmt.Fprintf(w, "%s %s v%d deployed on %s\n", colorGreen("✓"), rec.Contract, rec.Version, rec.Network)
	}

	fmt.Fprintf(w, "\nRun ID:  %s\n", rec.RunID)
	fmt.Fprintf(w, "Rate:    %s\n", rec.Rate)
	fmt.Fprintf(w, "Policy:  %s\n", rec.Policy)
	fmt.Fprintln(w, "Schedule:")
	printSchedule(w, rec.Schedule)

	fmt.Fprintln(w, "Roles:")
	for _, r := range rec.Roles {
		fmt.Fprintf(w, "  %-9s %s\n", r.Role, r.Address.Hex())
	}

	if rec.Result != nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Address: %s\n", rec.Result.Address.Hex())
		fmt.Fprintf(w, "Tx:      %s\n", rec.Result.TxHash.Hex())
		fmt.Fprintf(w, "Block:   %d (gas used %d)\n", rec.Result.BlockNumber, rec.Result.GasUsed)
	}
	if rec.Path != "" {
		fmt.Fprintf(w, "Record:  %s\n", rec.Path)
	}
	fmt.Fprintf(w, "\nCreated: %s\n", rec.CreatedAt.Format(time.RFC3339))
}
