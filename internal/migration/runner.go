package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/mpetoken/mpedeploy/internal/config"
	"github.com/mpetoken/mpedeploy/internal/deploy"
	"github.com/mpetoken/mpedeploy/internal/metrics"
	"github.com/mpetoken/mpedeploy/internal/profile"
	"github.com/mpetoken/mpedeploy/internal/schedule"
)

// ErrInvalidRate is returned for a zero or negative rate override.
var ErrInvalidRate = errors.New("migration: rate must be positive")

// Request selects what a run deploys.
type Request struct {
	Network string
	// Version defaults to Latest.
	Version int
	// Now anchors relative schedules. Zero means the runner's clock.
	Now time.Time
	// Rate overrides the version's rate when set.
	Rate *big.Int
	// Start pins the sale start for relative and mixed policies.
	Start *time.Time
	// DryRun computes and resolves everything but sends nothing.
	DryRun bool
}

// Runner executes migrations.
type Runner struct {
	Profiles  *profile.Table
	Config    *config.Config
	Connector Connector
	// RecordDir receives deployment records. Empty disables writing.
	RecordDir string
	Logger    *slog.Logger
	Clock     func() time.Time
	// Metrics is optional.
	Metrics   *metrics.Recorder
}

// Plan is the resolved, not yet deployed, migration.
type Plan struct {
	Version  Version
	Profile  *profile.Profile
	Network  config.Network
	Policy   schedule.Policy
	Schedule schedule.Schedule
	Rate     *big.Int
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

func (r *Runner) now(req Request) time.Time {
	if !req.Now.IsZero() {
		return req.Now
	}
	if r.Clock != nil {
		return r.Clock()
	}
	return time.Now()
}

// NormalizeNetwork returns the canonical form of a network name. Profile,
// config and schedule tables are all keyed by it.
func NormalizeNetwork(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Prepare resolves the network and computes the schedule without any
// external call.
func (r *Runner) Prepare(req Request) (*Plan, error) {
	req.Network = NormalizeNetwork(req.Network)
	n := req.Version
	if n == 0 {
		n = Latest
	}
	version, err := Lookup(n)
	if err != nil {
		return nil, err
	}

	prof, err := r.Profiles.Resolve(req.Network)
	if err != nil {
		return nil, err
	}
	network, err := r.Config.Network(req.Network)
	if err != nil {
		return nil, err
	}
	if err := prof.Require(version.Roles...); err != nil {
		return nil, err
	}

	policy, err := version.Schedule.For(prof.Name)
	if err != nil {
		return nil, err
	}
	var sched schedule.Schedule
	if req.Start != nil {
		sched, err = policy.StartingAt(*req.Start)
	} else {
		sched, err = policy.Calculate(r.now(req))
	}
	if err != nil {
		return nil, fmt.Errorf("network %q: %w", prof.Name, err)
	}

	rate := version.Rate
	if req.Rate != nil {
		if req.Rate.Sign() <= 0 {
			return nil, fmt.Errorf("%w: %s", ErrInvalidRate, req.Rate)
		}
		rate = req.Rate
	}

	return &Plan{
		Version:  version,
		Profile:  prof,
		Network:  network,
		Policy:   policy,
		Schedule: sched,
		Rate:     new(big.Int).Set(rate),
	}, nil
}

// Run performs the migration. A deploy call is made at most once.
func (r *Runner) Run(ctx context.Context, req Request) (*Record, error) {
	req.Network = NormalizeNetwork(req.Network)
	started := time.Now()
	rec, err := r.run(ctx, req)

	if r.Metrics != nil {
		version := req.Version
		if version == 0 {
			version = Latest
		}
		outcome := metrics.OutcomeDeployed
		switch {
		case err != nil:
			outcome = metrics.OutcomeFailed
		case req.DryRun:
			outcome = metrics.OutcomeDryRun
		}
		var res *deploy.Result
		if rec != nil {
			res = rec.Result
		}
		r.Metrics.ObserveRun(req.Network, version, outcome, time.Since(started), res)
	}
	return rec, err
}

func (r *Runner) run(ctx context.Context, req Request) (*Record, error) {
	logger := r.logger().With(slog.String("network", req.Network))

	plan, err := r.Prepare(req)
	if err != nil {
		return nil, err
	}

	logger.Info("migration planned",
		slog.Int("version", plan.Version.Number),
		slog.String("policy", plan.Policy.String()),
		slog.Int64("start", plan.Schedule.Start),
		slog.Int64("end", plan.Schedule.End),
		slog.String("rate", plan.Rate.String()),
		slog.Bool("dry_run", req.DryRun),
	)

	target := Target{
		Network:   plan.Profile.Name,
		Endpoint:  plan.Network.Endpoint(plan.Profile.Endpoint()),
		Config:    plan.Network,
		Optimizer: r.Config.Solc.Optimizer,
	}
	if !req.DryRun {
		signer, err := plan.Profile.Signer()
		if err != nil {
			return nil, err
		}
		target.Signer = &signer
	}

	var (
		session  Session
		accounts []common.Address
	)
	needsAccounts := plan.Profile.NeedsNodeAccounts(plan.Version.Roles)
	if needsAccounts || !req.DryRun {
		session, err = r.Connector.Connect(ctx, target)
		if err != nil {
			return nil, err
		}
		defer session.Close()
	}
	if needsAccounts {
		accounts, err = session.Accounts(ctx)
		if err != nil {
			return nil, err
		}
		logger.Debug("node accounts listed", slog.Int("count", len(accounts)))
	}

	addrs, err := plan.Profile.ResolveRoles(plan.Version.Roles, accounts)
	if err != nil {
		return nil, err
	}

	params := deploy.Params{Rate: plan.Rate, Schedule: plan.Schedule, Roles: addrs}
	record := &Record{
		RunID:     uuid.NewString(),
		Network:   plan.Profile.Name,
		Version:   plan.Version.Number,
		Contract:  plan.Version.Contract,
		Rate:      plan.Rate.String(),
		Policy:    plan.Policy.String(),
		Schedule:  plan.Schedule,
		DryRun:    req.DryRun,
		CreatedAt: r.now(Request{}).UTC(),
	}
	for i, name := range plan.Version.Roles {
		record.Roles = append(record.Roles, RoleAddress{Role: name, Address: addrs[i]})
	}

	if req.DryRun {
		if err := params.Validate(); err != nil {
			return nil, err
		}
		logger.Info("dry run, skipping deployment", slog.String("run_id", record.RunID))
		return record, nil
	}

	deployer, err := session.Deployer()
	if err != nil {
		return nil, err
	}
	res, err := deploy.Invoke(ctx, deployer, plan.Version.Contract, params)
	if err != nil {
		return nil, err
	}
	record.Result = res

	if r.RecordDir != "" {
		path, err := WriteRecord(r.RecordDir, record)
		if err != nil {
			// the contract is on chain; report it even if the record is lost
			logger.Error("failed to write deployment record",
				slog.String("address", res.Address.Hex()),
				slog.String("error", err.Error()),
			)
			return record, err
		}
		record.Path = path
	}

	logger.Info("migration complete",
		slog.String("run_id", record.RunID),
		slog.String("address", res.Address.Hex()),
		slog.String("tx_hash", res.TxHash.Hex()),
	)
	return record, nil
}
