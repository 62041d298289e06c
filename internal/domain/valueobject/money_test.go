package valueobject

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSplitFee(t *testing.T) {
	split := SplitFee(decimal.RequireFromString("100"))
	assert.True(t, split.Fee.Equal(decimal.RequireFromString("10")), "fee: %s", split.Fee)
	assert.True(t, split.Net.Equal(decimal.RequireFromString("90")), "net: %s", split.Net)
}

func TestSplitFee_SumInvariant(t *testing.T) {
	// Fee + Net всегда равняется исходной сумме, даже на неровных числах.
	for _, raw := range []string{"0.01", "0.05", "1", "33.33", "99.99", "12345.67", "0.07"} {
		amount := decimal.RequireFromString(raw)
		split := SplitFee(amount)
		assert.True(t, split.Fee.Add(split.Net).Equal(amount), "amount %s: fee %s + net %s", raw, split.Fee, split.Net)
		assert.True(t, split.Fee.GreaterThanOrEqual(decimal.Zero))
	}
}

func TestChargeTotal(t *testing.T) {
	total := ChargeTotal(decimal.RequireFromString("200"))
	assert.True(t, total.Equal(decimal.RequireFromString("220")), "total: %s", total)
}

func TestNewAmount(t *testing.T) {
	amount, err := NewAmount(decimal.RequireFromString("49.999"))
	assert.NoError(t, err)
	assert.True(t, amount.Equal(decimal.RequireFromString("50")))

	_, err = NewAmount(decimal.Zero)
	assert.Error(t, err)

	_, err = NewAmount(decimal.RequireFromString("-5"))
	assert.Error(t, err)
}
