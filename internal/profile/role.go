package profile

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Role is one stakeholder account. Exactly one of Address, Key or Account
// identifies the account; Address and Key may both be set, in which case they
// must agree.
type Role struct {
	Address string `yaml:"address,omitempty" json:"address,omitempty"`
	Key     string `yaml:"key,omitempty" json:"-"`
	URL     string `yaml:"url,omitempty" json:"url,omitempty"`
	// Account selects an entry of the node's eth_accounts list.
	Account *int `yaml:"account,omitempty" json:"account,omitempty"`
}

// NeedsNodeAccounts reports whether the role is resolved against the node.
func (r Role) NeedsNodeAccounts() bool {
	return r.Account != nil && r.Address == "" && r.Key == ""
}

// PrivateKey parses the role's hex-encoded key.
func (r Role) PrivateKey() (*ecdsa.PrivateKey, error) {
	if r.Key == "" {
		return nil, ErrNoSigner
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(r.Key, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: parse private key: %v", ErrInvalidRole, err)
	}
	return key, nil
}

// Resolve returns the role's account. accounts is the node's account list and
// is only consulted for index-based roles.
func (r Role) Resolve(accounts []common.Address) (common.Address, error) {
	var fromKey common.Address
	if r.Key != "" {
		key, err := r.PrivateKey()
		if err != nil {
			return common.Address{}, err
		}
		fromKey = crypto.PubkeyToAddress(key.PublicKey)
	}

	switch {
	case r.Address != "":
		if !common.IsHexAddress(r.Address) {
			return common.Address{}, fmt.Errorf("%w: %q is not a hex address", ErrInvalidRole, r.Address)
		}
		addr := common.HexToAddress(r.Address)
		if addr == (common.Address{}) {
			return common.Address{}, fmt.Errorf("%w: zero address", ErrInvalidRole)
		}
		if r.Key != "" && addr != fromKey {
			return common.Address{}, fmt.Errorf("%w: key belongs to %s, not %s", ErrInvalidRole, fromKey.Hex(), addr.Hex())
		}
		return addr, nil

	case r.Key != "":
		return fromKey, nil

	case r.Account != nil:
		idx := *r.Account
		if idx < 0 || idx >= len(accounts) {
			return common.Address{}, fmt.Errorf("%w: node account %d out of range (node has %d)", ErrInvalidRole, idx, len(accounts))
		}
		if accounts[idx] == (common.Address{}) {
			return common.Address{}, fmt.Errorf("%w: node account %d is the zero address", ErrInvalidRole, idx)
		}
		return accounts[idx], nil
	}

	return common.Address{}, fmt.Errorf("%w: no address, key or account index", ErrInvalidRole)
}

// ResolveRoles resolves names in order. Every failure names its role.
func (p *Profile) ResolveRoles(names []string, accounts []common.Address) ([]common.Address, error) {
	if err := p.Require(names...); err != nil {
		return nil, err
	}
	out := make([]common.Address, 0, len(names))
	for _, name := range names {
		addr, err := p.Roles[name].Resolve(accounts)
		if err != nil {
			return nil, fmt.Errorf("network %q role %s: %w", p.Name, name, err)
		}
		out = append(out, addr)
	}
	return out, nil
}

// NeedsNodeAccounts reports whether any of names is index-based.
func (p *Profile) NeedsNodeAccounts(names []string) bool {
	for _, name := range names {
		if r, ok := p.Roles[name]; ok && r.NeedsNodeAccounts() {
			return true
		}
	}
	return false
}

// MaskKey shortens a private key for display.
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	key = strings.TrimPrefix(key, "0x")
	if len(key) <= 12 {
		return "****"
	}
	return key[:6] + "..." + key[len(key)-4:]
}
