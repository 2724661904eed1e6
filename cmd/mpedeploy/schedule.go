package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mpetoken/mpedeploy/internal/migration"
	"github.com/mpetoken/mpedeploy/internal/schedule"
)

var (
	scheduleNetwork string
	scheduleVersion int
	scheduleNow     string
	scheduleStart   string
)

func resetScheduleFlags() {
	scheduleNetwork = ""
	scheduleVersion = migration.Latest
	scheduleNow = ""
	scheduleStart = ""
}

func newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Compute the sale schedule for a network",
		Long: `Compute and validate the four sale milestones a migration would use.

Relative policies are anchored at --now (default: the current time). The
network must be known to both the profile table and the network config.

Examples:
  mpedeploy schedule --network development --version 1
  mpedeploy schedule --network ropsten --now 2019-06-01T00:00:00Z`,
		Args: cobra.NoArgs,
		RunE: runSchedule,
	}

	cmd.Flags().StringVarP(&scheduleNetwork, "network", "n", "", "target network (required)")
	cmd.Flags().IntVar(&scheduleVersion, "version", migration.Latest, "migration version (1 or 2)")
	cmd.Flags().StringVar(&scheduleNow, "now", "", "anchor time (RFC3339 or unix seconds)")
	cmd.Flags().StringVar(&scheduleStart, "start", "", "pin the sale start (relative schedules only)")

	return cmd
}

type scheduleView struct {
	Network  string            `json:"network"`
	Version  int               `json:"version"`
	Policy   string            `json:"policy"`
	Kind     schedule.Kind     `json:"kind"`
	Schedule schedule.Schedule `json:"schedule"`
}

func runSchedule(cmd *cobra.Command, args []string) error {
	if scheduleNetwork == "" {
		return fmt.Errorf("--network is required")
	}

	req := migration.Request{Network: scheduleNetwork, Version: scheduleVersion}
	if scheduleStart != "" {
		start, err := parseTime(scheduleStart)
		if err != nil {
			return err
		}
		req.Start = &start
	}
	if scheduleNow != "" {
		now, err := parseTime(scheduleNow)
		if err != nil {
			return err
		}
		req.Now = now
	}

	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}

	// same resolution as migrate, so unknown networks and missing roles fail here too
	runner := &migration.Runner{Profiles: env.profiles, Config: env.cfg, Logger: env.logger}
	plan, err := runner.Prepare(req)
	if err != nil {
		return err
	}
	s := plan.Schedule

	view := scheduleView{
		Network:  plan.Profile.Name,
		Version:  plan.Version.Number,
		Policy:   plan.Policy.String(),
		Kind:     plan.Policy.Kind,
		Schedule: s,
	}
	if jsonOut {
		return printJSON(cmd.OutOrStdout(), view)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Network: %s (version %d)\n", view.Network, view.Version)
	fmt.Fprintf(out, "Policy:  %s\n", view.Policy)
	printSchedule(out, s)
	return nil
}
