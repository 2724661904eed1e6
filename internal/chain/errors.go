package chain

import "errors"

// Sentinel errors
var (
	ErrArtifactNotFound = errors.New("chain: contract artifact not found")
	ErrEmptyBytecode    = errors.New("chain: empty bytecode")
	ErrUnlinked         = errors.New("chain: bytecode has unlinked libraries")

	ErrUnreachable       = errors.New("chain: endpoint unreachable")
	ErrChainIDMismatch   = errors.New("chain: chain ID mismatch")
	ErrInsufficientFunds = errors.New("chain: insufficient deployer balance")

	ErrReverted = errors.New("chain: deployment transaction reverted")
	ErrNoCode   = errors.New("chain: no code at deployed address")
)
