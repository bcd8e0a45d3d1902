package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(n int) []Candle {
	base := time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)
	out := make([]Candle, n)
	for i := 0; i < n; i++ {
		c := 100.0 + float64(i)
		out[i] = Candle{
			TS:     base.AddDate(0, 0, i),
			Open:   c - 0.5,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}
	return out
}

func TestValidateSeries(t *testing.T) {
	t.Run("ascending passes", func(t *testing.T) {
		require.NoError(t, ValidateSeries(seq(10)))
	})

	t.Run("empty and single pass", func(t *testing.T) {
		assert.NoError(t, ValidateSeries(nil))
		assert.NoError(t, ValidateSeries(seq(1)))
	})

	t.Run("duplicate timestamp fails", func(t *testing.T) {
		candles := seq(5)
		candles[3].TS = candles[2].TS
		err := ValidateSeries(candles)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "index 3")
	})

	t.Run("out of order fails", func(t *testing.T) {
		candles := seq(5)
		candles[1], candles[2] = candles[2], candles[1]
		assert.Error(t, ValidateSeries(candles))
	})
}

func TestSeriesAccessors(t *testing.T) {
	candles := seq(3)

	assert.Equal(t, []float64{100, 101, 102}, Closes(candles))
	assert.Equal(t, []float64{101, 102, 103}, Highs(candles))
	assert.Equal(t, []float64{99, 100, 101}, Lows(candles))
	assert.Equal(t, 102.0, LastClose(candles))

	t.Run("empty series", func(t *testing.T) {
		assert.Empty(t, Closes(nil))
		assert.Zero(t, LastClose(nil))
	})
}
