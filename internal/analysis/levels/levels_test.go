package levels

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wheelhouse/internal/market"
)

func flatCandles(n int) []market.Candle {
	base := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	out := make([]market.Candle, n)
	for i := 0; i < n; i++ {
		out[i] = market.Candle{
			TS:     base.AddDate(0, 0, i),
			Open:   100,
			High:   100.5,
			Low:    99.5,
			Close:  100,
			Volume: 1000,
		}
	}
	return out
}

func TestFind_ClustersSwingPoints(t *testing.T) {
	candles := flatCandles(60)
	// 两个相近低点聚成一个支撑，两个远离高点保持独立阻力。
	candles[10].Low = 95.0
	candles[16].Low = 95.2
	candles[22].High = 104.0
	candles[28].High = 106.0

	res := Find(candles, 100, Settings{})

	require.NotNil(t, res.Support)
	assert.InDelta(t, 95.1, res.Support.Price, 1e-9)
	assert.Equal(t, 2, res.Support.Touches)

	require.NotNil(t, res.Resistance)
	assert.InDelta(t, 104.0, res.Resistance.Price, 1e-9)
	assert.Equal(t, 1, res.Resistance.Touches)

	require.NotNil(t, res.SupportDistancePct)
	assert.InDelta(t, 0.049, *res.SupportDistancePct, 1e-9)
	require.NotNil(t, res.ResistanceDistancePct)
	assert.InDelta(t, 0.04, *res.ResistanceDistancePct, 1e-9)
}

func TestFind_NearestLevelWins(t *testing.T) {
	candles := flatCandles(60)
	candles[10].Low = 90.0
	candles[20].Low = 96.0
	candles[30].High = 103.0
	candles[40].High = 110.0

	res := Find(candles, 100, Settings{})

	require.NotNil(t, res.Support)
	assert.InDelta(t, 96.0, res.Support.Price, 1e-9)
	require.NotNil(t, res.Resistance)
	assert.InDelta(t, 103.0, res.Resistance.Price, 1e-9)
}

func TestFind_NoSwings(t *testing.T) {
	// 全平序列没有严格极值点。
	res := Find(flatCandles(60), 100, Settings{})
	assert.Nil(t, res.Support)
	assert.Nil(t, res.Resistance)
	assert.Nil(t, res.SupportDistancePct)
}

func TestFind_DegenerateInput(t *testing.T) {
	assert.Equal(t, Result{}, Find(flatCandles(60), 0, Settings{}))
	assert.Equal(t, Result{}, Find(flatCandles(3), 100, Settings{}))
}

func TestFind_SupportOnlyBelowPrice(t *testing.T) {
	candles := flatCandles(60)
	candles[15].Low = 97.0

	res := Find(candles, 96, Settings{})
	// 唯一的摆动点在价格上方，只能作为阻力。
	assert.Nil(t, res.Support)
	require.NotNil(t, res.Resistance)
	assert.InDelta(t, 97.0, res.Resistance.Price, 1e-9)
}

func TestCluster_Tolerance(t *testing.T) {
	out := cluster([]float64{100, 100.3, 105, 105.2, 120}, 0.5)
	require.Len(t, out, 3)
	assert.Equal(t, Level{Price: 100.15, Touches: 2}, out[0])
	assert.Equal(t, Level{Price: 105.1, Touches: 2}, out[1])
	assert.Equal(t, Level{Price: 120, Touches: 1}, out[2])
}
