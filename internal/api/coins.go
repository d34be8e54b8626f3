package api

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CoinCentsPerCoin is the fixed-point scale of platform coins.
const CoinCentsPerCoin = 100

var coinScale = decimal.NewFromInt(CoinCentsPerCoin)

// CoinsToCents converts a display coin amount to coin cents.
// 100.01 -> 10001. Sub-cent fractions are rejected rather than rounded.
func CoinsToCents(coins decimal.Decimal) (int64, error) {
	cents := coins.Mul(coinScale)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, fmt.Errorf("coin amount %s has more than 2 decimal places", coins)
	}
	if coins.IsNegative() {
		return 0, fmt.Errorf("coin amount %s is negative", coins)
	}
	return cents.IntPart(), nil
}

// ParseCoins parses a display coin string ("100.01") into coin cents.
func ParseCoins(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse coins %q: %w", s, err)
	}
	return CoinsToCents(d)
}

// CentsToCoins converts coin cents to a display coin amount.
// 10001 -> 100.01
func CentsToCoins(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
