package store

import "github.com/shopspring/decimal"

// Money columns are NUMERIC(10,2).
const moneyScale = 2

var moneyLimit = decimal.New(1, 8)

// ValidMoney reports whether d is stored exactly by a money column: at most
// two decimal places and an absolute value below 10^8.
func ValidMoney(d decimal.Decimal) bool {
	return d.Equal(d.Round(moneyScale)) && d.Abs().LessThan(moneyLimit)
}
