package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	t.Run("creates money with valid currency", func(t *testing.T) {
		m, err := NewMoney(decimal.NewFromFloat(10.50), USD)
		require.NoError(t, err)
		assert.True(t, m.Amount().Equal(decimal.NewFromFloat(10.50)))
		assert.Equal(t, USD, m.Currency())
	})

	t.Run("rejects empty currency", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromInt(1), "")
		assert.Error(t, err)
	})

	t.Run("from string", func(t *testing.T) {
		m, err := NewMoneyFromString("12.34", USD)
		require.NoError(t, err)
		assert.Equal(t, int64(1234), m.Cents())
	})

	t.Run("from invalid string", func(t *testing.T) {
		_, err := NewMoneyFromString("abc", USD)
		assert.Error(t, err)
	})

	t.Run("from cents", func(t *testing.T) {
		m := NewMoneyUSDFromCents(1005)
		assert.Equal(t, "10.05", m.StringFixed(2))
	})
}

func TestMoneyArithmetic(t *testing.T) {
	ten := NewMoneyUSDFromFloat(10.00)
	four := NewMoneyUSDFromFloat(4.00)

	t.Run("add", func(t *testing.T) {
		sum, err := ten.Add(four)
		require.NoError(t, err)
		assert.True(t, sum.Equals(NewMoneyUSDFromFloat(14.00)))
	})

	t.Run("subtract", func(t *testing.T) {
		diff, err := ten.Subtract(four)
		require.NoError(t, err)
		assert.True(t, diff.Equals(NewMoneyUSDFromFloat(6.00)))
	})

	t.Run("mismatched currencies fail", func(t *testing.T) {
		other := Money{amount: decimal.NewFromInt(1), currency: EUR}
		_, err := ten.Add(other)
		assert.Error(t, err)
		_, err = ten.Subtract(other)
		assert.Error(t, err)
	})

	t.Run("negate and abs", func(t *testing.T) {
		neg := ten.Negate()
		assert.True(t, neg.IsNegative())
		assert.True(t, neg.Abs().Equals(ten))
	})

	t.Run("comparisons", func(t *testing.T) {
		less, err := four.LessThan(ten)
		require.NoError(t, err)
		assert.True(t, less)

		gte, err := ten.GreaterThanOrEqual(ten)
		require.NoError(t, err)
		assert.True(t, gte)
	})
}

func TestMoneyAllocate(t *testing.T) {
	t.Run("splits evenly", func(t *testing.T) {
		m := NewMoneyUSDFromFloat(9.00)
		parts, err := m.Allocate(3)
		require.NoError(t, err)
		require.Len(t, parts, 3)
		for _, p := range parts {
			assert.True(t, p.Equals(NewMoneyUSDFromFloat(3.00)))
		}
	})

	t.Run("distributes remainder cents to leading parts", func(t *testing.T) {
		m := NewMoneyUSDFromFloat(10.00)
		parts, err := m.Allocate(3)
		require.NoError(t, err)

		total := ZeroUSD()
		for _, p := range parts {
			total = total.MustAdd(p)
		}
		assert.True(t, total.Equals(m), "allocated parts must conserve the total")
		assert.Equal(t, int64(334), parts[0].Cents())
		assert.Equal(t, int64(333), parts[1].Cents())
		assert.Equal(t, int64(333), parts[2].Cents())
	})

	t.Run("rejects non-positive part counts", func(t *testing.T) {
		_, err := NewMoneyUSDFromFloat(1).Allocate(0)
		assert.Error(t, err)
	})
}

func TestMoneyPercentage(t *testing.T) {
	m := NewMoneyUSDFromFloat(1200.00)
	pct := m.CalculatePercentage(decimal.NewFromInt(3))
	assert.True(t, pct.Equals(NewMoneyUSDFromFloat(36.00)))
}

func TestMoneyJSON(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		m := NewMoneyUSDFromFloat(42.50)
		data, err := json.Marshal(m)
		require.NoError(t, err)

		var decoded Money
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.True(t, decoded.Equals(m))
	})

	t.Run("invalid amount", func(t *testing.T) {
		var decoded Money
		err := json.Unmarshal([]byte(`{"amount":"oops","currency":"USD"}`), &decoded)
		assert.Error(t, err)
	})
}

func TestMoneyScan(t *testing.T) {
	t.Run("scans string", func(t *testing.T) {
		var m Money
		require.NoError(t, m.Scan("5.25"))
		assert.True(t, m.Equals(NewMoneyUSDFromFloat(5.25)))
	})

	t.Run("scans nil to zero", func(t *testing.T) {
		var m Money
		require.NoError(t, m.Scan(nil))
		assert.True(t, m.IsZero())
		assert.Equal(t, DefaultCurrency, m.Currency())
	})

	t.Run("rejects unsupported type", func(t *testing.T) {
		var m Money
		assert.Error(t, m.Scan(42))
	})
}
