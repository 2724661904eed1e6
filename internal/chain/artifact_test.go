package chain

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const returns42Code = "0x600a600c600039600a6000f3602a60005260206000f3"

const crowdsaleABI = `[{
	"type": "constructor",
	"stateMutability": "nonpayable",
	"inputs": [
		{"name": "_rate", "type": "uint256"},
		{"name": "_start", "type": "uint256"},
		{"name": "_stage2", "type": "uint256"},
		{"name": "_stage3", "type": "uint256"},
		{"name": "_end", "type": "uint256"},
		{"name": "_adv1", "type": "address"},
		{"name": "_adv2", "type": "address"},
		{"name": "_adv3", "type": "address"},
		{"name": "_owner", "type": "address"},
		{"name": "_operator", "type": "address"}
	]
}]`

func writeArtifact(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".json"), []byte(body), 0o644))
}

func crowdsaleArgs() []interface{} {
	args := []interface{}{
		new(big.Int).Mul(big.NewInt(10000), big.NewInt(1e18)),
		big.NewInt(1000), big.NewInt(2000), big.NewInt(3000), big.NewInt(4000),
	}
	for i := 1; i <= 5; i++ {
		args = append(args, common.BigToAddress(big.NewInt(int64(i))))
	}
	return args
}

func TestDirLoader_Formats(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "Truffle", `{
		"contractName": "Truffle",
		"abi": `+crowdsaleABI+`,
		"bytecode": "`+returns42Code+`",
		"metadata": "{\"settings\":{\"optimizer\":{\"enabled\":true,\"runs\":200}}}"
	}`)
	writeArtifact(t, dir, "Foundry", `{
		"abi": `+crowdsaleABI+`,
		"bytecode": {"object": "`+returns42Code+`"},
		"metadata": {"settings": {"optimizer": {"enabled": false, "runs": 0}}}
	}`)

	loader := DirLoader{Dir: dir}

	t.Run("truffle", func(t *testing.T) {
		a, err := loader.Load("Truffle")
		require.NoError(t, err)

		code, err := a.Bytes()
		require.NoError(t, err)
		assert.Len(t, code, 22)

		opt, ok := a.Optimizer()
		require.True(t, ok)
		assert.Equal(t, Optimizer{Enabled: true, Runs: 200}, opt)
	})

	t.Run("foundry", func(t *testing.T) {
		a, err := loader.Load("Foundry")
		require.NoError(t, err)
		assert.Equal(t, "Foundry", a.ContractName)

		_, err = a.Bytes()
		require.NoError(t, err)

		opt, ok := a.Optimizer()
		require.True(t, ok)
		assert.False(t, opt.Enabled)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := loader.Load("Nope")
		assert.ErrorIs(t, err, ErrArtifactNotFound)
	})
}

func TestArtifact_Bytes(t *testing.T) {
	tests := []struct {
		name    string
		code    Bytecode
		wantErr error
	}{
		{"empty", "", ErrEmptyBytecode},
		{"bare prefix", "0x", ErrEmptyBytecode},
		{"unlinked", "0x6080__$abc$__6040", ErrUnlinked},
		{"no prefix", "600a", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Artifact{ContractName: "X", Bytecode: tt.code}
			_, err := a.Bytes()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestArtifact_OptimizerAbsent(t *testing.T) {
	a := &Artifact{}
	_, ok := a.Optimizer()
	assert.False(t, ok)

	a.Metadata = []byte(`"not json"`)
	_, ok = a.Optimizer()
	assert.False(t, ok)
}

func TestCreationData(t *testing.T) {
	a := &Artifact{ContractName: "MPECrowdsale", ABI: []byte(crowdsaleABI), Bytecode: returns42Code}

	data, err := CreationData(a, crowdsaleArgs()...)
	require.NoError(t, err)
	assert.Len(t, data, 22+10*32)

	// rate is the first word after the code
	rate := new(big.Int).SetBytes(data[22 : 22+32])
	assert.Equal(t, "10000000000000000000000", rate.String())

	_, err = CreationData(a, big.NewInt(1))
	assert.Error(t, err, "argument count must match the constructor")
}
