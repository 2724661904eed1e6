package config

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

var units = map[string]int32{
	"wei":    0,
	"kwei":   3,
	"mwei":   6,
	"gwei":   9,
	"szabo":  12,
	"finney": 15,
	"ether":  18,
	"eth":    18,
}

// ParseWei converts "25 gwei", "1.5 ether" or a bare wei amount to wei.
// Fractions that do not land on a whole wei are rejected.
func ParseWei(s string) (*big.Int, error) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) == 0 || len(fields) > 2 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}

	exp := int32(0)
	if len(fields) == 2 {
		e, ok := units[strings.ToLower(fields[1])]
		if !ok {
			return nil, fmt.Errorf("unknown unit %q", fields[1])
		}
		exp = e
	}

	amount, err := decimal.NewFromString(fields[0])
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if amount.IsNegative() {
		return nil, fmt.Errorf("negative amount %q", s)
	}

	wei := amount.Shift(exp)
	if !wei.Equal(wei.Truncate(0)) {
		return nil, fmt.Errorf("amount %q is not a whole number of wei", s)
	}
	return wei.BigInt(), nil
}
