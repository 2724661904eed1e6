package chain

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"github.com/shopspring/decimal"
)

// AnyNetwork matches every chain ID.
const AnyNetwork = "*"

// DefaultPreflightTimeout bounds the read-only RPC calls made before deploying.
const DefaultPreflightTimeout = 10 * time.Second

// CheckName identifies a specific pre-flight check.
type CheckName string

const (
	CheckReachable       CheckName = "reachable"
	CheckChainIDMatch    CheckName = "chain_id_match"
	CheckDeployerBalance CheckName = "deployer_balance"
)

// CheckResult represents the result of a single pre-flight check.
type CheckResult struct {
	Name    CheckName              `json:"name"`
	Passed  bool                   `json:"passed"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	err     error
}

// PreflightRequest contains the parameters for pre-flight checks.
type PreflightRequest struct {
	NetworkID string
	Deployer  common.Address
	GasLimit  uint64
	GasPrice  *big.Int
}

// PreflightReport is the outcome of all checks.
type PreflightReport struct {
	OK      bool          `json:"ok"`
	ChainID *big.Int      `json:"chain_id,omitempty"`
	Checks  []CheckResult `json:"checks"`
}

// Err returns the first failing check's error.
func (r *PreflightReport) Err() error {
	for _, c := range r.Checks {
		if !c.Passed {
			return c.err
		}
	}
	return nil
}

// Checker performs pre-flight validation checks.
type Checker struct {
	backend Backend
	timeout time.Duration
}

// NewChecker creates a checker for backend.
func NewChecker(backend Backend) *Checker {
	return &Checker{backend: backend, timeout: DefaultPreflightTimeout}
}

// WithTimeout sets a custom timeout for RPC calls.
func (c *Checker) WithTimeout(timeout time.Duration) *Checker {
	c.timeout = timeout
	return c
}

// Run performs the checks in order and stops at the first one that leaves
// nothing to check further.
func (c *Checker) Run(ctx context.Context, req PreflightRequest) *PreflightReport {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	report := &PreflightReport{OK: true}

	chainID, reachable := c.checkReachable(ctx)
	report.Checks = append(report.Checks, reachable)
	if !reachable.Passed {
		report.OK = false
		return report
	}
	report.ChainID = chainID

	match := checkChainID(chainID, req.NetworkID)
	report.Checks = append(report.Checks, match)
	if !match.Passed {
		report.OK = false
		return report
	}

	balance := c.checkBalance(ctx, req)
	report.Checks = append(report.Checks, balance)
	if !balance.Passed {
		report.OK = false
	}
	return report
}

func (c *Checker) checkReachable(ctx context.Context) (*big.Int, CheckResult) {
	result := CheckResult{Name: CheckReachable}

	chainID, err := c.backend.ChainID(ctx)
	if err != nil {
		result.Message = fmt.Sprintf("RPC endpoint did not answer: %v", err)
		result.err = fmt.Errorf("%w: %v", ErrUnreachable, err)
		return nil, result
	}

	result.Passed = true
	result.Message = "Connected to RPC endpoint"
	return chainID, result
}

func checkChainID(actual *big.Int, networkID string) CheckResult {
	result := CheckResult{
		Name:    CheckChainIDMatch,
		Details: map[string]interface{}{"actual": actual.String(), "expected": networkID},
	}

	if networkID == "" || networkID == AnyNetwork {
		result.Passed = true
		result.Message = fmt.Sprintf("Chain ID %s accepted (any network)", actual)
		return result
	}

	expected, err := strconv.ParseUint(networkID, 10, 64)
	if err != nil {
		result.Message = fmt.Sprintf("Invalid network_id %q", networkID)
		result.err = fmt.Errorf("%w: invalid network_id %q", ErrChainIDMismatch, networkID)
		return result
	}
	if actual.Cmp(new(big.Int).SetUint64(expected)) != 0 {
		result.Message = fmt.Sprintf("Chain ID mismatch: expected %d, got %s", expected, actual)
		result.err = fmt.Errorf("%w: expected %d, got %s", ErrChainIDMismatch, expected, actual)
		return result
	}

	result.Passed = true
	result.Message = fmt.Sprintf("Chain ID %d confirmed", expected)
	return result
}

func (c *Checker) checkBalance(ctx context.Context, req PreflightRequest) CheckResult {
	result := CheckResult{Name: CheckDeployerBalance}

	balance, err := c.backend.BalanceAt(ctx, req.Deployer, nil)
	if err != nil {
		result.Message = fmt.Sprintf("Failed to get deployer balance: %v", err)
		result.err = fmt.Errorf("get balance: %w", err)
		return result
	}

	required := new(big.Int)
	if req.GasPrice != nil {
		required.Mul(new(big.Int).SetUint64(req.GasLimit), req.GasPrice)
	}

	result.Details = map[string]interface{}{
		"deployer": req.Deployer.Hex(),
		"have_eth": WeiToETH(balance),
		"need_eth": WeiToETH(required),
	}

	if balance.Sign() == 0 || balance.Cmp(required) < 0 {
		result.Message = fmt.Sprintf("Insufficient deployer balance: have %s ETH, need %s ETH", WeiToETH(balance), WeiToETH(required))
		result.err = fmt.Errorf("%w: %s has %s ETH, needs %s ETH", ErrInsufficientFunds, req.Deployer.Hex(), WeiToETH(balance), WeiToETH(required))
		return result
	}

	result.Passed = true
	result.Message = fmt.Sprintf("Deployer has sufficient balance: %s ETH", WeiToETH(balance))
	return result
}

// WeiToETH formats wei as an ETH decimal string.
func WeiToETH(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, 0).Div(decimal.NewFromInt(params.Ether)).String()
}
