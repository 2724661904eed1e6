package migration

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpetoken/mpedeploy/internal/chain"
	"github.com/mpetoken/mpedeploy/internal/config"
	"github.com/mpetoken/mpedeploy/internal/profile"
)

type ethService struct {
	accounts []common.Address
}

func (s *ethService) ChainId() *hexutil.Big { return (*hexutil.Big)(big.NewInt(1337)) }

func (s *ethService) Accounts() []common.Address { return s.accounts }

// startNode serves eth_chainId and eth_accounts over HTTP.
func startNode(t *testing.T) *httptest.Server {
	t.Helper()
	srv := rpc.NewServer()
	require.NoError(t, srv.RegisterName("eth", &ethService{accounts: nodeAccounts()}))
	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		ts.Close()
		srv.Stop()
	})
	return ts
}

func testConnector(t *testing.T) EthConnector {
	return EthConnector{
		ArtifactDir: t.TempDir(),
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func devTarget(endpoint string) Target {
	return Target{
		Network:   profile.Development,
		Endpoint:  endpoint,
		Config:    config.Network{Gas: 4700000, GasPrice: "25 gwei", NetworkID: "*"},
		Optimizer: config.OptimizerConfig{Enabled: true, Runs: 200},
	}
}

func TestEthConnector_WithoutSigner(t *testing.T) {
	node := startNode(t)

	sess, err := testConnector(t).Connect(context.Background(), devTarget(node.URL))
	require.NoError(t, err)
	defer sess.Close()

	accounts, err := sess.Accounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, nodeAccounts(), accounts)

	_, err = sess.Deployer()
	assert.ErrorIs(t, err, profile.ErrNoSigner)
}

func TestEthConnector_WithSigner(t *testing.T) {
	node := startNode(t)
	target := devTarget(node.URL)
	target.Signer = &profile.Role{Key: "0x" + profile.DevelopmentDeployerKey}

	sess, err := testConnector(t).Connect(context.Background(), target)
	require.NoError(t, err)
	defer sess.Close()

	d, err := sess.Deployer()
	require.NoError(t, err)
	assert.IsType(t, &chain.EthDeployer{}, d)
}

func TestEthConnector_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Target)
		wantErr error
	}{
		{
			name:    "bad key",
			mutate:  func(tg *Target) { tg.Signer = &profile.Role{Key: "0xnothex"} },
			wantErr: profile.ErrInvalidRole,
		},
		{
			name:    "signer without key",
			mutate:  func(tg *Target) { tg.Signer = &profile.Role{Address: "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"} },
			wantErr: profile.ErrNoSigner,
		},
		{
			name: "bad gas price",
			mutate: func(tg *Target) {
				tg.Signer = &profile.Role{Key: profile.DevelopmentDeployerKey}
				tg.Config.GasPrice = "cheap"
			},
		},
		{
			name:    "unsupported endpoint",
			mutate:  func(tg *Target) { tg.Endpoint = "ftp://127.0.0.1:8545" },
			wantErr: chain.ErrUnreachable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := startNode(t)
			target := devTarget(node.URL)
			tt.mutate(&target)

			sess, err := testConnector(t).Connect(context.Background(), target)
			require.Error(t, err)
			assert.Nil(t, sess)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestEthConnector_ChainIDUnavailable(t *testing.T) {
	node := startNode(t)
	target := devTarget(node.URL)
	target.Signer = &profile.Role{Key: profile.DevelopmentDeployerKey}
	node.Close()

	_, err := testConnector(t).Connect(context.Background(), target)
	assert.ErrorIs(t, err, chain.ErrUnreachable)
}
