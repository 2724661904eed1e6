// Package profile resolves per-network stakeholder accounts and signing
// credentials used by a crowdsale migration.
package profile

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Role names understood by the migrations.
const (
	RoleDeployer  = "deployer"
	RoleOperator  = "operator"
	RoleOwner     = "owner"
	RoleAdv1      = "adv1"
	RoleAdv2      = "adv2"
	RoleAdv3      = "adv3"
	RoleTeam      = "team"
	RoleBounty    = "bounty"
	RoleReserve   = "reserve"
	RolePartners  = "partners"
	RoleLiquidity = "liquidity"
)

// CoreRoles must be present in every profile.
var CoreRoles = []string{RoleOperator, RoleOwner, RoleAdv1, RoleAdv2, RoleAdv3}

// Profile is the configuration bundle for one target network.
type Profile struct {
	Name  string          `yaml:"-" json:"name"`
	URL   string          `yaml:"url,omitempty" json:"url,omitempty"`
	Roles map[string]Role `yaml:"roles" json:"roles"`
}

// Role returns the named role.
func (p *Profile) Role(name string) (Role, bool) {
	r, ok := p.Roles[name]
	return r, ok
}

// Require reports every role in names that the profile does not define.
func (p *Profile) Require(names ...string) error {
	var missing []string
	for _, name := range names {
		if _, ok := p.Roles[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: network %q is missing %s", ErrMissingRole, p.Name, strings.Join(missing, ", "))
	}
	return nil
}

// Signer returns the role whose key signs the deployment transaction. The
// deployer role wins when present; otherwise the operator key is used.
func (p *Profile) Signer() (Role, error) {
	for _, name := range []string{RoleDeployer, RoleOperator} {
		if r, ok := p.Roles[name]; ok && r.Key != "" {
			return r, nil
		}
	}
	return Role{}, fmt.Errorf("%w: network %q", ErrNoSigner, p.Name)
}

// Endpoint returns the RPC URL for the profile. A signer role URL overrides
// the profile URL.
func (p *Profile) Endpoint() string {
	if r, err := p.Signer(); err == nil && r.URL != "" {
		return r.URL
	}
	return p.URL
}

func (p *Profile) clone() *Profile {
	c := &Profile{
		Name:  p.Name,
		URL:   p.URL,
		Roles: make(map[string]Role, len(p.Roles)),
	}
	for k, v := range p.Roles {
		if v.Account != nil {
			idx := *v.Account
			v.Account = &idx
		}
		c.Roles[k] = v
	}
	return c
}

// Table maps network names to profiles. It is immutable once loaded.
type Table struct {
	networks map[string]*Profile
}

type tableFile struct {
	Networks map[string]*Profile `yaml:"networks"`
}

// Load reads a YAML profile table from path. A missing file yields a table
// holding only the built-in development profile.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewTable(nil), nil
		}
		return nil, fmt.Errorf("read profile table: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML profile table. Values of the form ${VAR} are expanded
// from the environment.
func Parse(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTable, err)
	}

	for name, p := range f.Networks {
		if p == nil {
			return nil, fmt.Errorf("%w: network %q is empty", ErrMalformedTable, name)
		}
		p.Name = name
		p.URL = os.ExpandEnv(p.URL)
		for roleName, r := range p.Roles {
			r.Address = strings.TrimSpace(os.ExpandEnv(r.Address))
			r.Key = strings.TrimSpace(os.ExpandEnv(r.Key))
			r.URL = os.ExpandEnv(r.URL)
			p.Roles[roleName] = r
		}
		if err := p.Require(CoreRoles...); err != nil {
			return nil, err
		}
	}

	return NewTable(f.Networks), nil
}

// NewTable builds a table from profiles. Names are case-insensitive. The
// built-in development profile is added when networks does not define one.
func NewTable(networks map[string]*Profile) *Table {
	t := &Table{networks: make(map[string]*Profile, len(networks)+1)}
	for name, p := range networks {
		c := p.clone()
		c.Name = strings.ToLower(name)
		t.networks[c.Name] = c
	}
	if _, ok := t.networks[Development]; !ok {
		t.networks[Development] = DevelopmentProfile()
	}
	return t
}

// Resolve returns a copy of the profile for network.
func (t *Table) Resolve(network string) (*Profile, error) {
	p, ok := t.networks[strings.ToLower(network)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownNetwork, network, strings.Join(t.Names(), ", "))
	}
	return p.clone(), nil
}

// Names returns the configured network names in sorted order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.networks))
	for name := range t.networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
