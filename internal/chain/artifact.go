// Package chain deploys contracts to an Ethereum network with go-ethereum.
package chain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// DefaultArtifactDir is where truffle writes compiled contracts.
const DefaultArtifactDir = "build/contracts"

// Artifact is a compiled contract. Both truffle (bytecode as a string,
// metadata as an encoded string) and foundry (bytecode.object, metadata
// object) layouts are accepted.
type Artifact struct {
	ContractName string          `json:"contractName,omitempty"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     Bytecode        `json:"bytecode"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
}

// Bytecode is the hex-encoded creation code.
type Bytecode string

// UnmarshalJSON accepts "0x..." or {"object": "0x..."}.
func (b *Bytecode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			Object string `json:"object"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*b = Bytecode(obj.Object)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*b = Bytecode(s)
	return nil
}

// Bytes decodes the creation code.
func (a *Artifact) Bytes() ([]byte, error) {
	code := strings.TrimSpace(string(a.Bytecode))
	if code == "" || code == "0x" {
		return nil, ErrEmptyBytecode
	}
	if strings.Contains(code, "__") {
		return nil, fmt.Errorf("%w: %s", ErrUnlinked, a.ContractName)
	}
	if !strings.HasPrefix(code, "0x") {
		code = "0x" + code
	}
	out, err := hexutil.Decode(code)
	if err != nil {
		return nil, fmt.Errorf("decode bytecode: %w", err)
	}
	return out, nil
}

// ParseABI parses the artifact's ABI.
func (a *Artifact) ParseABI() (abi.ABI, error) {
	return abi.JSON(bytes.NewReader(a.ABI))
}

// Optimizer mirrors solc's optimizer settings.
type Optimizer struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
	Runs    int  `json:"runs" mapstructure:"runs"`
}

// Optimizer returns the optimizer settings recorded in the artifact
// metadata. ok is false when the metadata does not carry them.
func (a *Artifact) Optimizer() (opt Optimizer, ok bool) {
	raw := bytes.TrimSpace(a.Metadata)
	if len(raw) == 0 {
		return Optimizer{}, false
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Optimizer{}, false
		}
		raw = []byte(s)
	}

	var meta struct {
		Settings struct {
			Optimizer *Optimizer `json:"optimizer"`
		} `json:"settings"`
	}
	if err := json.Unmarshal(raw, &meta); err != nil || meta.Settings.Optimizer == nil {
		return Optimizer{}, false
	}
	return *meta.Settings.Optimizer, true
}

// ArtifactLoader finds compiled contracts by name.
type ArtifactLoader interface {
	Load(contract string) (*Artifact, error)
}

// DirLoader reads <Dir>/<contract>.json.
type DirLoader struct {
	Dir string
}

// Load reads and parses the artifact for contract.
func (l DirLoader) Load(contract string) (*Artifact, error) {
	dir := l.Dir
	if dir == "" {
		dir = DefaultArtifactDir
	}
	path := filepath.Join(dir, contract+".json")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if artifact.ContractName == "" {
		artifact.ContractName = contract
	}
	return &artifact, nil
}

// CreationData appends ABI-encoded constructor arguments to the bytecode.
func CreationData(a *Artifact, args ...interface{}) ([]byte, error) {
	code, err := a.Bytes()
	if err != nil {
		return nil, err
	}
	parsed, err := a.ParseABI()
	if err != nil {
		return nil, fmt.Errorf("parse %s ABI: %w", a.ContractName, err)
	}
	if len(args) == 0 && len(parsed.Constructor.Inputs) == 0 {
		return code, nil
	}
	packed, err := parsed.Pack("", args...)
	if err != nil {
		return nil, fmt.Errorf("encode %s constructor args: %w", a.ContractName, err)
	}
	return append(code, packed...), nil
}
