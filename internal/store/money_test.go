package store_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"vintique.shop/internal/store"
)

func TestValidMoney(t *testing.T) {
	cases := map[string]bool{
		"0":            true,
		"19.99":        true,
		"19.9":         true,
		"-5.00":        true,
		"99999999.99":  true,
		"100000000":    false,
		"-100000000":   false,
		"0.005":        false,
		"0.004":        false,
		"1.2300000001": false,
	}
	for in, want := range cases {
		assert.Equal(t, want, store.ValidMoney(decimal.RequireFromString(in)), in)
	}
}
