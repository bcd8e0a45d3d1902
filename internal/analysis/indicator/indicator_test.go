package indicator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wheelhouse/internal/market"
)

func driftCandles(n int, start, step float64) []market.Candle {
	base := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	out := make([]market.Candle, n)
	for i := 0; i < n; i++ {
		c := start + step*float64(i)
		out[i] = market.Candle{
			TS:     base.AddDate(0, 0, i),
			Open:   c - 0.2,
			High:   c + 0.5,
			Low:    c - 0.5,
			Close:  c,
			Volume: 1000,
		}
	}
	return out
}

func TestSettingsMinCandles(t *testing.T) {
	assert.Equal(t, 200, Settings{}.MinCandles())

	small := Settings{
		EMA: EMASettings{Fast: 3, Mid: 5, Slow: 8},
		RSI: RSISettings{Period: 14},
		ATR: ATRSettings{Period: 5},
	}
	assert.Equal(t, 15, small.MinCandles())
}

func TestCompute_NotEnoughCandles(t *testing.T) {
	_, err := Compute(driftCandles(100, 50, 0.1), Settings{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "need at least 200")
}

func TestCompute_Uptrend(t *testing.T) {
	candles := driftCandles(240, 100, 0.2)
	snap, err := Compute(candles, Settings{})
	require.NoError(t, err)

	assert.InDelta(t, 147.8, snap.Close, 1e-9)
	// 单调上行时快线在慢线之上，中期斜率为正。
	assert.Greater(t, snap.EMAFast, snap.EMAMid)
	assert.Greater(t, snap.EMAMid, snap.EMASlow)
	assert.Greater(t, snap.EMAMidSlope, 0.0)
	// 连续上涨无回撤，Wilder RSI 收敛到 100。
	assert.Greater(t, snap.RSI, 90.0)
	assert.Greater(t, snap.ATR, 0.0)
	assert.InDelta(t, snap.ATR/snap.Close, snap.ATRPercent, 1e-12)
}

func TestCompute_Downtrend(t *testing.T) {
	candles := driftCandles(240, 200, -0.2)
	snap, err := Compute(candles, Settings{})
	require.NoError(t, err)

	assert.Less(t, snap.EMAFast, snap.EMAMid)
	assert.Less(t, snap.EMAMid, snap.EMASlow)
	assert.Less(t, snap.EMAMidSlope, 0.0)
	assert.Less(t, snap.RSI, 10.0)
}

func TestComputeATRSeries(t *testing.T) {
	series, err := ComputeATRSeries(driftCandles(60, 100, 0.1), 14)
	require.NoError(t, err)
	require.NotEmpty(t, series)
	// 高低振幅固定 1.0 且覆盖前收盘，TR 恒为 1.0。
	assert.InDelta(t, 1.0, series[len(series)-1], 0.02)

	_, err = ComputeATRSeries(nil, 14)
	assert.Error(t, err)
}
