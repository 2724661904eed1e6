// Package deploy assembles crowdsale constructor parameters and hands them to
// a chain deployer exactly once.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mpetoken/mpedeploy/internal/schedule"
)

var (
	ErrInvalidParams = errors.New("deploy: invalid parameters")
	ErrNilResult     = errors.New("deploy: deployer returned no result")
)

// Deployer is the chain-deployment collaborator.
type Deployer interface {
	Deploy(ctx context.Context, contract string, args ...interface{}) (*Result, error)
}

// Result describes a deployed contract.
type Result struct {
	Contract    string         `json:"contract"`
	Address     common.Address `json:"address"`
	TxHash      common.Hash    `json:"tx_hash"`
	BlockNumber uint64         `json:"block_number"`
	GasUsed     uint64         `json:"gas_used"`
}

// Params is the constructor tuple.
type Params struct {
	Rate     *big.Int          `json:"rate"`
	Schedule schedule.Schedule `json:"schedule"`
	Roles    []common.Address  `json:"roles"`
}

// Validate checks the tuple before it leaves the process.
func (p Params) Validate() error {
	if p.Rate == nil || p.Rate.Sign() <= 0 {
		return fmt.Errorf("%w: rate must be positive", ErrInvalidParams)
	}
	if err := p.Schedule.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	if len(p.Roles) == 0 {
		return fmt.Errorf("%w: no role addresses", ErrInvalidParams)
	}
	for i, addr := range p.Roles {
		if addr == (common.Address{}) {
			return fmt.Errorf("%w: role %d is the zero address", ErrInvalidParams, i+1)
		}
	}
	return nil
}

// Args returns the constructor arguments in order: rate, start, stage2,
// stage3, end, then each role address.
func (p Params) Args() []interface{} {
	args := make([]interface{}, 0, 5+len(p.Roles))
	args = append(args, new(big.Int).Set(p.Rate))
	for _, ts := range p.Schedule.Milestones() {
		args = append(args, big.NewInt(ts))
	}
	for _, addr := range p.Roles {
		args = append(args, addr)
	}
	return args
}

// Invoke validates params and issues a single deploy call. Failures are
// returned as-is; there is no retry.
func Invoke(ctx context.Context, d Deployer, contract string, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	res, err := d.Deploy(ctx, contract, p.Args()...)
	if err != nil {
		return nil, fmt.Errorf("deploy %s: %w", contract, err)
	}
	if res == nil {
		return nil, ErrNilResult
	}
	return res, nil
}
