package profile

// Development is the name of the local network profile.
const Development = "development"

// DevelopmentDeployerKey is the first account of the well-known
// "test test ... junk" mnemonic. DO NOT use on a public network.
const DevelopmentDeployerKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func account(i int) *int { return &i }

// DevelopmentProfile returns the local profile. Stakeholders are taken from
// the node's unlocked accounts; account 0 deploys. It has no URL, so the
// node is reached at the configured host and port.
func DevelopmentProfile() *Profile {
	return &Profile{
		Name: Development,
		Roles: map[string]Role{
			RoleDeployer:  {Key: DevelopmentDeployerKey},
			RoleAdv1:      {Account: account(1)},
			RoleAdv2:      {Account: account(2)},
			RoleAdv3:      {Account: account(3)},
			RoleOwner:     {Account: account(4)},
			RoleOperator:  {Account: account(5)},
			RoleTeam:      {Account: account(6)},
			RoleBounty:    {Account: account(7)},
			RoleReserve:   {Account: account(8)},
			RolePartners:  {Account: account(9)},
			RoleLiquidity: {Account: account(0)},
		},
	}
}
