package chain

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	anvil0Key  = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	anvil0Addr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	anvil1Key  = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
)

var simulatedChainID = big.NewInt(1337)

type mapLoader map[string]*Artifact

func (m mapLoader) Load(contract string) (*Artifact, error) {
	a, ok := m[contract]
	if !ok {
		return nil, ErrArtifactNotFound
	}
	return a, nil
}

// newSimulated returns a funded simulated chain that mines a block every
// few milliseconds until the test ends.
func newSimulated(t *testing.T) *simulated.Backend {
	t.Helper()

	backend := simulated.NewBackend(types.GenesisAlloc{
		common.HexToAddress(anvil0Addr): {Balance: new(big.Int).Mul(big.NewInt(100), big.NewInt(params.Ether))},
	})

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				backend.Commit()
			}
		}
	}()

	t.Cleanup(func() {
		close(done)
		<-stopped
		_ = backend.Close()
	})
	return backend
}

func newTestSigner(t *testing.T, hexKey string) *LocalSigner {
	t.Helper()
	key, err := crypto.HexToECDSA(hexKey)
	require.NoError(t, err)
	signer, err := NewLocalSigner(key, simulatedChainID)
	require.NoError(t, err)
	return signer
}

func testLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func testOptions() Options {
	return Options{
		GasLimit:  1_000_000,
		GasPrice:  big.NewInt(2 * params.GWei),
		NetworkID: AnyNetwork,
	}
}

func TestLocalSigner_Address(t *testing.T) {
	signer := newTestSigner(t, anvil0Key)
	assert.Equal(t, common.HexToAddress(anvil0Addr), signer.Address())
	assert.Equal(t, simulatedChainID, signer.ChainID())

	_, err := NewLocalSigner(nil, simulatedChainID)
	assert.Error(t, err)

	key, _ := crypto.HexToECDSA(anvil0Key)
	_, err = NewLocalSigner(key, big.NewInt(0))
	assert.Error(t, err)
}

func TestEthDeployer_Deploy(t *testing.T) {
	backend := newSimulated(t)
	client := backend.Client()

	artifacts := mapLoader{
		"MPECrowdsale": {ContractName: "MPECrowdsale", ABI: []byte(crowdsaleABI), Bytecode: returns42Code},
	}
	d := NewEthDeployer(client, newTestSigner(t, anvil0Key), artifacts, testOptions(), testLogger(io.Discard))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := d.Deploy(ctx, "MPECrowdsale", crowdsaleArgs()...)
	require.NoError(t, err)

	assert.Equal(t, "MPECrowdsale", res.Contract)
	assert.Equal(t, crypto.CreateAddress(common.HexToAddress(anvil0Addr), 0), res.Address)
	assert.NotZero(t, res.GasUsed)
	assert.NotEqual(t, common.Hash{}, res.TxHash)

	code, err := client.CodeAt(ctx, res.Address, nil)
	require.NoError(t, err)
	assert.Equal(t, common.FromHex("0x602a60005260206000f3"), code)
}

func TestEthDeployer_EstimatesGasAndPrice(t *testing.T) {
	backend := newSimulated(t)

	artifacts := mapLoader{
		"MPECrowdsale": {ContractName: "MPECrowdsale", ABI: []byte(crowdsaleABI), Bytecode: returns42Code},
	}
	d := NewEthDeployer(backend.Client(), newTestSigner(t, anvil0Key), artifacts, Options{NetworkID: "1337"}, testLogger(io.Discard))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := d.Deploy(ctx, "MPECrowdsale", crowdsaleArgs()...)
	require.NoError(t, err)
	assert.NotEqual(t, common.Address{}, res.Address)
}

func TestEthDeployer_Reverted(t *testing.T) {
	backend := newSimulated(t)

	artifacts := mapLoader{
		"Reverts": {ContractName: "Reverts", ABI: []byte(`[]`), Bytecode: "0x60006000fd"},
	}
	d := NewEthDeployer(backend.Client(), newTestSigner(t, anvil0Key), artifacts, testOptions(), testLogger(io.Discard))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := d.Deploy(ctx, "Reverts")
	assert.ErrorIs(t, err, ErrReverted)
}

func TestEthDeployer_PreflightFailures(t *testing.T) {
	backend := newSimulated(t)
	artifacts := mapLoader{
		"MPECrowdsale": {ContractName: "MPECrowdsale", ABI: []byte(crowdsaleABI), Bytecode: returns42Code},
	}
	ctx := context.Background()

	t.Run("chain id mismatch", func(t *testing.T) {
		opts := testOptions()
		opts.NetworkID = "1"
		d := NewEthDeployer(backend.Client(), newTestSigner(t, anvil0Key), artifacts, opts, testLogger(io.Discard))

		_, err := d.Deploy(ctx, "MPECrowdsale", crowdsaleArgs()...)
		assert.ErrorIs(t, err, ErrChainIDMismatch)
	})

	t.Run("unfunded deployer", func(t *testing.T) {
		d := NewEthDeployer(backend.Client(), newTestSigner(t, anvil1Key), artifacts, testOptions(), testLogger(io.Discard))

		_, err := d.Deploy(ctx, "MPECrowdsale", crowdsaleArgs()...)
		assert.ErrorIs(t, err, ErrInsufficientFunds)
	})

	t.Run("missing artifact", func(t *testing.T) {
		d := NewEthDeployer(backend.Client(), newTestSigner(t, anvil0Key), artifacts, testOptions(), testLogger(io.Discard))

		_, err := d.Deploy(ctx, "Other")
		assert.ErrorIs(t, err, ErrArtifactNotFound)
	})
}

func TestEthDeployer_OptimizerMismatchWarns(t *testing.T) {
	backend := newSimulated(t)

	artifacts := mapLoader{
		"MPECrowdsale": {
			ContractName: "MPECrowdsale",
			ABI:          []byte(crowdsaleABI),
			Bytecode:     returns42Code,
			Metadata:     []byte(`{"settings":{"optimizer":{"enabled":false,"runs":200}}}`),
		},
	}
	opts := testOptions()
	opts.Optimizer = &Optimizer{Enabled: true, Runs: 200}

	var logs bytes.Buffer
	d := NewEthDeployer(backend.Client(), newTestSigner(t, anvil0Key), artifacts, opts, testLogger(&logs))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := d.Deploy(ctx, "MPECrowdsale", crowdsaleArgs()...)
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "artifact optimizer settings differ from config")
}

func TestChecker_Run(t *testing.T) {
	backend := newSimulated(t)
	ctx := context.Background()

	report := NewChecker(backend.Client()).WithTimeout(5*time.Second).Run(ctx, PreflightRequest{
		NetworkID: "1337",
		Deployer:  common.HexToAddress(anvil0Addr),
		GasLimit:  4_700_000,
		GasPrice:  big.NewInt(25 * params.GWei),
	})
	require.True(t, report.OK)
	assert.NoError(t, report.Err())
	assert.Equal(t, simulatedChainID, report.ChainID)
	require.Len(t, report.Checks, 3)
	assert.Equal(t, CheckDeployerBalance, report.Checks[2].Name)

	report = NewChecker(backend.Client()).Run(ctx, PreflightRequest{
		NetworkID: "not-a-number",
		Deployer:  common.HexToAddress(anvil0Addr),
	})
	assert.False(t, report.OK)
	assert.ErrorIs(t, report.Err(), ErrChainIDMismatch)
	assert.Len(t, report.Checks, 2)
}

func TestWeiToETH(t *testing.T) {
	assert.Equal(t, "0", WeiToETH(nil))
	assert.Equal(t, "1", WeiToETH(big.NewInt(params.Ether)))
	assert.Equal(t, "0.1175", WeiToETH(new(big.Int).Mul(big.NewInt(4_700_000), big.NewInt(25*params.GWei))))
}
