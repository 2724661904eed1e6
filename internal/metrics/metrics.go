// Package metrics records migration outcomes in Prometheus format so a CI job
// can hand them to a node_exporter textfile collector.
package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mpetoken/mpedeploy/internal/deploy"
)

// Outcome labels a finished run.
type Outcome string

const (
	OutcomeDeployed Outcome = "deployed"
	OutcomeDryRun   Outcome = "dry_run"
	OutcomeFailed   Outcome = "failed"
)

// Recorder holds the metrics of one process. Each Recorder has its own
// registry.
type Recorder struct {
	registry *prometheus.Registry

	runsTotal      *prometheus.CounterVec
	runDuration    *prometheus.GaugeVec
	deployGasUsed  *prometheus.GaugeVec
	deployBlock    *prometheus.GaugeVec
	lastDeployedAt *prometheus.GaugeVec
}

// New creates a recorder.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mpedeploy_runs_total",
				Help: "Total migration runs by network, version and outcome",
			},
			[]string{"network", "version", "outcome"},
		),
		runDuration: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mpedeploy_run_duration_seconds",
				Help: "Wall time of the last migration run",
			},
			[]string{"network"},
		),
		deployGasUsed: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mpedeploy_deploy_gas_used",
				Help: "Gas used by the last deployment transaction",
			},
			[]string{"network", "contract"},
		),
		deployBlock: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mpedeploy_deploy_block_number",
				Help: "Block that included the last deployment",
			},
			[]string{"network", "contract"},
		),
		lastDeployedAt: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mpedeploy_last_deploy_timestamp_seconds",
				Help: "Unix time of the last successful deployment",
			},
			[]string{"network", "contract"},
		),
	}
}

// ObserveRun records a finished run. res is nil unless a contract was deployed.
func (r *Recorder) ObserveRun(network string, version int, outcome Outcome, took time.Duration, res *deploy.Result) {
	r.runsTotal.WithLabelValues(network, strconv.Itoa(version), string(outcome)).Inc()
	r.runDuration.WithLabelValues(network).Set(took.Seconds())

	if res == nil {
		return
	}
	r.deployGasUsed.WithLabelValues(network, res.Contract).Set(float64(res.GasUsed))
	r.deployBlock.WithLabelValues(network, res.Contract).Set(float64(res.BlockNumber))
	r.lastDeployedAt.WithLabelValues(network, res.Contract).SetToCurrentTime()
}

// Gatherer exposes the registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes all metrics to path in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
