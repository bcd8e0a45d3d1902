package levels

import (
	"math"
	"sort"

	"wheelhouse/internal/analysis/indicator"
	"wheelhouse/internal/market"
)

// Settings 描述分形摆动点检测与聚类的参数。
type Settings struct {
	// FractalWindow 为摆动点判定的 ±k 窗口。
	FractalWindow int `json:"fractal_window,omitempty"`
	// ATRMultiple 控制聚类容差 = ATR × multiple。
	ATRMultiple float64 `json:"atr_multiple,omitempty"`
	// PercentTolerance 在 ATR 不可用时充当聚类容差（价格百分比）。
	PercentTolerance float64 `json:"percent_tolerance,omitempty"`
	ATRPeriod        int     `json:"atr_period,omitempty"`
}

func (s Settings) withDefaults() Settings {
	if s.FractalWindow <= 0 {
		s.FractalWindow = 2
	}
	if s.ATRMultiple <= 0 {
		s.ATRMultiple = 0.5
	}
	if s.PercentTolerance <= 0 {
		s.PercentTolerance = 0.01
	}
	if s.ATRPeriod <= 0 {
		s.ATRPeriod = 14
	}
	return s
}

// Level 表示一条由若干摆动点聚类而成的价位。
type Level struct {
	Price   float64 `json:"price"`
	Touches int     `json:"touches"`
}

// Result 给出距当前价最近的支撑与阻力。没有合格聚类时相应字段为 nil。
type Result struct {
	Support    *Level `json:"support,omitempty"`
	Resistance *Level `json:"resistance,omitempty"`
	// 与当前价的距离，按价格百分比表示（正数）。
	SupportDistancePct    *float64 `json:"support_distance_pct,omitempty"`
	ResistanceDistancePct *float64 `json:"resistance_distance_pct,omitempty"`
}

// Find 检测分形摆动点并聚类，返回最近支撑/阻力。纯函数，结果对同一输入可重现。
func Find(candles []market.Candle, price float64, cfg Settings) Result {
	cfg = cfg.withDefaults()
	if price <= 0 || len(candles) < cfg.FractalWindow*2+1 {
		return Result{}
	}
	swings := swingPoints(candles, cfg.FractalWindow)
	if len(swings) == 0 {
		return Result{}
	}
	tol := clusterTolerance(candles, price, cfg)
	clustered := cluster(swings, tol)

	var res Result
	for i := range clustered {
		lv := clustered[i]
		switch {
		case lv.Price < price:
			if res.Support == nil || lv.Price > res.Support.Price {
				res.Support = &clustered[i]
			}
		case lv.Price > price:
			if res.Resistance == nil || lv.Price < res.Resistance.Price {
				res.Resistance = &clustered[i]
			}
		}
	}
	if res.Support != nil {
		d := (price - res.Support.Price) / price
		res.SupportDistancePct = &d
	}
	if res.Resistance != nil {
		d := (res.Resistance.Price - price) / price
		res.ResistanceDistancePct = &d
	}
	return res
}

// swingPoints 返回 ±window 内的严格极值点价位（高点用 High，低点用 Low）。
func swingPoints(candles []market.Candle, window int) []float64 {
	var out []float64
	for i := window; i < len(candles)-window; i++ {
		if isSwingHigh(candles, i, window) {
			out = append(out, candles[i].High)
		}
		if isSwingLow(candles, i, window) {
			out = append(out, candles[i].Low)
		}
	}
	return out
}

func isSwingHigh(candles []market.Candle, i, window int) bool {
	h := candles[i].High
	for j := i - window; j <= i+window; j++ {
		if j == i {
			continue
		}
		if candles[j].High >= h {
			return false
		}
	}
	return true
}

func isSwingLow(candles []market.Candle, i, window int) bool {
	l := candles[i].Low
	for j := i - window; j <= i+window; j++ {
		if j == i {
			continue
		}
		if candles[j].Low <= l {
			return false
		}
	}
	return true
}

func clusterTolerance(candles []market.Candle, price float64, cfg Settings) float64 {
	if atr, err := indicator.ComputeATRSeries(candles, cfg.ATRPeriod); err == nil && len(atr) > 0 {
		if v := atr[len(atr)-1] * cfg.ATRMultiple; v > 0 {
			return v
		}
	}
	return price * cfg.PercentTolerance
}

// cluster 按价位排序后贪心合并，同簇内价差不超过 tol，簇价位取均值。
func cluster(points []float64, tol float64) []Level {
	if len(points) == 0 {
		return nil
	}
	sorted := append([]float64(nil), points...)
	sort.Float64s(sorted)

	var out []Level
	start := 0
	for i := 1; i <= len(sorted); i++ {
		if i < len(sorted) && sorted[i]-sorted[start] <= tol {
			continue
		}
		members := sorted[start:i]
		out = append(out, Level{Price: mean(members), Touches: len(members)})
		start = i
	}
	return out
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return math.Round(sum/float64(len(v))*10000) / 10000
}
