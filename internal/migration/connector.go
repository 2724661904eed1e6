package migration

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mpetoken/mpedeploy/internal/chain"
	"github.com/mpetoken/mpedeploy/internal/config"
	"github.com/mpetoken/mpedeploy/internal/deploy"
	"github.com/mpetoken/mpedeploy/internal/profile"
)

// Target is everything needed to reach one network.
type Target struct {
	Network   string
	Endpoint  string
	Config    config.Network
	Optimizer config.OptimizerConfig
	// Signer is nil for sessions that never deploy.
	Signer *profile.Role
}

// Session is an open connection to the target network.
type Session interface {
	Accounts(ctx context.Context) ([]common.Address, error)
	// Deployer fails when the session was opened without a signer.
	Deployer() (deploy.Deployer, error)
	Close()
}

// Connector opens sessions.
type Connector interface {
	Connect(ctx context.Context, t Target) (Session, error)
}

// EthConnector dials a JSON-RPC endpoint and deploys with go-ethereum.
type EthConnector struct {
	ArtifactDir string
	Logger      *slog.Logger
}

// Connect dials t.Endpoint and, when a signer is given, prepares a deployer
// bound to the node's chain ID.
func (c EthConnector) Connect(ctx context.Context, t Target) (Session, error) {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client, err := chain.Dial(ctx, t.Endpoint)
	if err != nil {
		return nil, err
	}
	s := &ethSession{client: client}

	if t.Signer == nil {
		return s, nil
	}

	key, err := t.Signer.PrivateKey()
	if err != nil {
		client.Close()
		return nil, err
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %s: %v", chain.ErrUnreachable, t.Endpoint, err)
	}
	signer, err := chain.NewLocalSigner(key, chainID)
	if err != nil {
		client.Close()
		return nil, err
	}
	gasPrice, err := t.Config.GasPriceWei()
	if err != nil {
		client.Close()
		return nil, err
	}

	s.deployer = chain.NewEthDeployer(client, signer, chain.DirLoader{Dir: c.ArtifactDir}, chain.Options{
		GasLimit:  t.Config.Gas,
		GasPrice:  gasPrice,
		NetworkID: t.Config.NetworkID,
		Optimizer: &chain.Optimizer{Enabled: t.Optimizer.Enabled, Runs: t.Optimizer.Runs},
	}, logger.With(slog.String("network", t.Network)))

	return s, nil
}

type ethSession struct {
	client   *chain.Client
	deployer *chain.EthDeployer
}

func (s *ethSession) Accounts(ctx context.Context) ([]common.Address, error) {
	return s.client.Accounts(ctx)
}

func (s *ethSession) Deployer() (deploy.Deployer, error) {
	if s.deployer == nil {
		return nil, profile.ErrNoSigner
	}
	return s.deployer, nil
}

func (s *ethSession) Close() {
	s.client.Close()
}
