package migration

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mpetoken/mpedeploy/internal/deploy"
	"github.com/mpetoken/mpedeploy/internal/schedule"
)

// RoleAddress pairs a role name with its resolved address.
type RoleAddress struct {
	Role    string         `json:"role"`
	Address common.Address `json:"address"`
}

// Record is the outcome of a run. It is written to disk after a successful
// deployment and printed by dry runs.
type Record struct {
	RunID     string            `json:"run_id"`
	Network   string            `json:"network"`
	Version   int               `json:"version"`
	Contract  string            `json:"contract"`
	Rate      string            `json:"rate"`
	Policy    string            `json:"policy"`
	Schedule  schedule.Schedule `json:"schedule"`
	Roles     []RoleAddress     `json:"roles"`
	DryRun    bool              `json:"dry_run,omitempty"`
	Result    *deploy.Result    `json:"result,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	Path      string            `json:"-"`
}

// WriteRecord writes r as <dir>/<network>-<run id>.json and returns the path.
func WriteRecord(dir string, r *Record) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal deployment record: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s-%s.json", r.Network, r.RunID))
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
