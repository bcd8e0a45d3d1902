package indicator

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"

	"wheelhouse/internal/market"
)

// Settings 描述计算指标所需的最小配置。
type Settings struct {
	EMA EMASettings
	RSI RSISettings
	ATR ATRSettings
}

// EMASettings 描述 EMA 指标参数。
type EMASettings struct {
	Fast int `json:"fast,omitempty"`
	Mid  int `json:"mid,omitempty"`
	Slow int `json:"slow,omitempty"`
	// SlopeLookback 为斜率回看的 bar 数。
	SlopeLookback int `json:"slope_lookback,omitempty"`
}

// RSISettings 描述 RSI 指标参数。
type RSISettings struct {
	Period int `json:"period,omitempty"`
}

// ATRSettings 描述 ATR 指标参数。
type ATRSettings struct {
	Period int `json:"period,omitempty"`
}

func (s Settings) withDefaults() Settings {
	if s.EMA.Fast <= 0 {
		s.EMA.Fast = 20
	}
	if s.EMA.Mid <= 0 {
		s.EMA.Mid = 50
	}
	if s.EMA.Slow <= 0 {
		s.EMA.Slow = 200
	}
	if s.EMA.SlopeLookback <= 0 {
		s.EMA.SlopeLookback = 5
	}
	if s.RSI.Period <= 0 {
		s.RSI.Period = 14
	}
	if s.ATR.Period <= 0 {
		s.ATR.Period = 14
	}
	return s
}

// MinCandles 返回产出完整快照所需的最少 K 线数。
func (s Settings) MinCandles() int {
	s = s.withDefaults()
	need := s.RSI.Period + 1
	if s.EMA.Slow > need {
		need = s.EMA.Slow
	}
	return need
}

// Snapshot 汇总单个 symbol 的最新指标值，供下游规则引擎使用。
type Snapshot struct {
	Close       float64 `json:"close"`
	EMAFast     float64 `json:"ema_fast"`
	EMAMid      float64 `json:"ema_mid"`
	EMASlow     float64 `json:"ema_slow"`
	EMAMidSlope float64 `json:"ema_mid_slope"`
	RSI         float64 `json:"rsi"`
	ATR         float64 `json:"atr"`
	// ATRPercent 为 ATR 相对收盘价的比值（0.02 = 2%）。
	ATRPercent float64 `json:"atr_percent"`
}

// Compute 基于 TALib 计算快照。K 线不足时返回 error，由调用方转成拒绝码。
func Compute(candles []market.Candle, cfg Settings) (Snapshot, error) {
	cfg = cfg.withDefaults()
	if len(candles) < cfg.MinCandles() {
		return Snapshot{}, fmt.Errorf("need at least %d candles, got %d", cfg.MinCandles(), len(candles))
	}
	closes := market.Closes(candles)
	highs := market.Highs(candles)
	lows := market.Lows(candles)

	emaFast := trimLeadingZeros(sanitizeSeries(talib.Ema(closes, cfg.EMA.Fast)))
	emaMid := trimLeadingZeros(sanitizeSeries(talib.Ema(closes, cfg.EMA.Mid)))
	emaSlow := trimLeadingZeros(sanitizeSeries(talib.Ema(closes, cfg.EMA.Slow)))
	rsiSeries := sanitizeSeries(talib.Rsi(closes, cfg.RSI.Period))
	atrSeries := sanitizeSeries(talib.Atr(highs, lows, closes, cfg.ATR.Period))

	snap := Snapshot{
		Close:       closes[len(closes)-1],
		EMAFast:     lastValid(emaFast),
		EMAMid:      lastValid(emaMid),
		EMASlow:     lastValid(emaSlow),
		EMAMidSlope: seriesSlope(emaMid, cfg.EMA.SlopeLookback),
		RSI:         lastValid(rsiSeries),
		ATR:         lastValid(atrSeries),
	}
	if snap.Close > 0 {
		snap.ATRPercent = snap.ATR / snap.Close
	}
	return snap, nil
}

// ComputeATRSeries 单独计算 ATR 序列，供支撑/阻力聚类使用。
func ComputeATRSeries(candles []market.Candle, period int) ([]float64, error) {
	if len(candles) == 0 {
		return nil, fmt.Errorf("no candles")
	}
	if period <= 0 {
		period = 14
	}
	series := sanitizeSeries(talib.Atr(market.Highs(candles), market.Lows(candles), market.Closes(candles), period))
	if len(series) == 0 {
		return nil, fmt.Errorf("atr series empty")
	}
	return series, nil
}

// seriesSlope 以单位值/bar 返回末端斜率。
func seriesSlope(series []float64, lookback int) float64 {
	if lookback <= 0 || len(series) <= lookback {
		return 0
	}
	last := series[len(series)-1]
	prev := series[len(series)-1-lookback]
	return (last - prev) / float64(lookback)
}

func sanitizeSeries(src []float64) []float64 {
	out := make([]float64, 0, len(src))
	for _, v := range src {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// trimLeadingZeros drops TALib's zero-seeded EMA values so the series starts
// once enough candles exist.
func trimLeadingZeros(series []float64) []float64 {
	start := 0
	for start < len(series) && math.Abs(series[start]) <= 1e-9 {
		start++
	}
	return series[start:]
}

func lastValid(series []float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		if !math.IsNaN(series[i]) && !math.IsInf(series[i], 0) {
			return series[i]
		}
	}
	return 0
}
