// Package migration runs a one-shot crowdsale deployment: resolve the network,
// compute the sale schedule, resolve stakeholders and deploy once.
package migration

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/mpetoken/mpedeploy/internal/profile"
	"github.com/mpetoken/mpedeploy/internal/schedule"
)

// ContractName is the compiled crowdsale artifact name.
const ContractName = "MPECrowdsale"

// ErrUnknownVersion is returned for a migration number that is not registered.
var ErrUnknownVersion = errors.New("migration: unknown version")

// Version is one revision of the crowdsale migration.
type Version struct {
	Number   int
	Contract string
	Rate     *big.Int
	Schedule schedule.Table
	Roles    []string
}

// tokens returns n whole tokens at 18 decimals.
func tokens(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

// V1 deploys with five stakeholders and one-minute stages on every network.
func V1() Version {
	relative := schedule.Relative(15*time.Second, 60*time.Second)
	return Version{
		Number:   1,
		Contract: ContractName,
		Rate:     tokens(10000),
		Schedule: schedule.Table{Default: &relative},
		Roles: []string{
			profile.RoleAdv1, profile.RoleAdv2, profile.RoleAdv3,
			profile.RoleOwner, profile.RoleOperator,
		},
	}
}

// V2 adds the distribution wallets and the public sale calendar.
func V2() Version {
	return Version{
		Number:   2,
		Contract: ContractName,
		Rate:     tokens(10000),
		Schedule: schedule.Table{Networks: map[string]schedule.Policy{
			profile.Development: schedule.Relative(15*time.Second, 600*time.Second),
			"ropsten":           schedule.Mixed(15*time.Second, schedule.Calendar2018),
			"rinkeby":           schedule.Absolute(schedule.Calendar2018),
			"mainnet":           schedule.Absolute(schedule.Calendar2018),
		}},
		Roles: []string{
			profile.RoleAdv1, profile.RoleAdv2, profile.RoleAdv3,
			profile.RoleOwner, profile.RoleOperator,
			profile.RoleTeam, profile.RoleBounty, profile.RoleReserve,
			profile.RolePartners, profile.RoleLiquidity,
		},
	}
}

// Latest is the version used when none is requested.
const Latest = 2

// Versions returns every registered version in order.
func Versions() []Version {
	return []Version{V1(), V2()}
}

// Lookup returns version n.
func Lookup(n int) (Version, error) {
	for _, v := range Versions() {
		if v.Number == n {
			return v, nil
		}
	}
	return Version{}, fmt.Errorf("%w: %d", ErrUnknownVersion, n)
}
