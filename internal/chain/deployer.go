package chain

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/mpetoken/mpedeploy/internal/deploy"
)

// Options tunes a deployment.
type Options struct {
	// GasLimit of zero means estimate and add a 20% buffer.
	GasLimit uint64
	// GasPrice of nil means ask the node.
	GasPrice *big.Int
	// NetworkID is the expected chain ID, or "*" for any.
	NetworkID string
	// Optimizer is the configured solc optimizer. When set it is compared with
	// the artifact metadata.
	Optimizer *Optimizer
}

// EthDeployer deploys compiled contracts with a single contract-creation
// transaction.
type EthDeployer struct {
	backend   Backend
	signer    TransactionSigner
	artifacts ArtifactLoader
	opts      Options
	logger    *slog.Logger
}

// NewEthDeployer creates a deployer.
func NewEthDeployer(backend Backend, signer TransactionSigner, artifacts ArtifactLoader, opts Options, logger *slog.Logger) *EthDeployer {
	if logger == nil {
		logger = slog.Default()
	}
	return &EthDeployer{
		backend:   backend,
		signer:    signer,
		artifacts: artifacts,
		opts:      opts,
		logger:    logger,
	}
}

// Deploy loads contract, packs args against its constructor and sends the
// creation transaction. It blocks until the receipt is mined or ctx ends.
func (d *EthDeployer) Deploy(ctx context.Context, contract string, args ...interface{}) (*deploy.Result, error) {
	from := d.signer.Address()

	d.logger.Info("starting contract deployment",
		slog.String("contract", contract),
		slog.String("deployer", from.Hex()),
		slog.Int("args", len(args)),
	)

	artifact, err := d.artifacts.Load(contract)
	if err != nil {
		return nil, err
	}
	d.checkOptimizer(artifact)

	report := NewChecker(d.backend).Run(ctx, PreflightRequest{
		NetworkID: d.opts.NetworkID,
		Deployer:  from,
		GasLimit:  d.opts.GasLimit,
		GasPrice:  d.opts.GasPrice,
	})
	for _, check := range report.Checks {
		d.logger.Debug("preflight check",
			slog.String("check", string(check.Name)),
			slog.Bool("passed", check.Passed),
			slog.String("message", check.Message),
		)
	}
	if err := report.Err(); err != nil {
		return nil, err
	}

	data, err := CreationData(artifact, args...)
	if err != nil {
		return nil, err
	}

	gasPrice := d.opts.GasPrice
	if gasPrice == nil {
		gasPrice, err = d.backend.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("get gas price: %w", err)
		}
	}

	gasLimit := d.opts.GasLimit
	if gasLimit == 0 {
		estimated, err := d.backend.EstimateGas(ctx, ethereum.CallMsg{
			From:     from,
			GasPrice: gasPrice,
			Value:    big.NewInt(0),
			Data:     data,
		})
		if err != nil {
			return nil, fmt.Errorf("estimate gas: %w", err)
		}
		gasLimit = estimated * 120 / 100
	}

	nonce, err := d.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("get nonce: %w", err)
	}

	d.logger.Info("sending deployment transaction",
		slog.String("contract", contract),
		slog.Uint64("nonce", nonce),
		slog.Uint64("gas_limit", gasLimit),
		slog.String("gas_price", gasPrice.String()),
	)

	tx := types.NewContractCreation(nonce, big.NewInt(0), gasLimit, gasPrice, data)
	signedTx, err := d.signer.SignTransaction(ctx, tx)
	if err != nil {
		return nil, err
	}
	if err := d.backend.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("send transaction: %w", err)
	}

	d.logger.Info("transaction submitted, waiting for confirmation",
		slog.String("tx_hash", signedTx.Hash().Hex()),
	)

	receipt, err := bind.WaitMined(ctx, d.backend, signedTx)
	if err != nil {
		return nil, fmt.Errorf("wait for receipt %s: %w", signedTx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: tx %s in block %d", ErrReverted, signedTx.Hash().Hex(), receipt.BlockNumber.Uint64())
	}

	code, err := d.backend.CodeAt(ctx, receipt.ContractAddress, nil)
	if err != nil {
		return nil, fmt.Errorf("get code: %w", err)
	}
	if len(code) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoCode, receipt.ContractAddress.Hex())
	}

	d.logger.Info("contract deployed",
		slog.String("contract", contract),
		slog.String("address", receipt.ContractAddress.Hex()),
		slog.Uint64("block_number", receipt.BlockNumber.Uint64()),
		slog.Uint64("gas_used", receipt.GasUsed),
	)

	return &deploy.Result{
		Contract:    contract,
		Address:     receipt.ContractAddress,
		TxHash:      signedTx.Hash(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		GasUsed:     receipt.GasUsed,
	}, nil
}

func (d *EthDeployer) checkOptimizer(a *Artifact) {
	if d.opts.Optimizer == nil {
		return
	}
	built, ok := a.Optimizer()
	if !ok {
		return
	}
	want := *d.opts.Optimizer
	if built.Enabled != want.Enabled || (want.Enabled && built.Runs != want.Runs) {
		d.logger.Warn("artifact optimizer settings differ from config",
			slog.String("contract", a.ContractName),
			slog.Bool("artifact_enabled", built.Enabled),
			slog.Int("artifact_runs", built.Runs),
			slog.Bool("config_enabled", want.Enabled),
			slog.Int("config_runs", want.Runs),
		)
	}
}

var _ deploy.Deployer = (*EthDeployer)(nil)
