package scoring

import (
	"fmt"
	"math"
)

// Band 为评分档位。
type Band string

const (
	BandA Band = "A"
	BandB Band = "B"
	BandC Band = "C"
	BandD Band = "D"
)

// Components 是五个分项得分，均为 0–100。
type Components struct {
	DataQuality       float64 `json:"data_quality"`
	Regime            float64 `json:"regime"`
	OptionsLiquidity  float64 `json:"options_liquidity"`
	StrategyFit       float64 `json:"strategy_fit"`
	CapitalEfficiency float64 `json:"capital_efficiency"`
}

// Weights 是各分项权重，约定总和约为 1。
type Weights struct {
	DataQuality       float64 `json:"data_quality,omitempty"`
	Regime            float64 `json:"regime,omitempty"`
	OptionsLiquidity  float64 `json:"options_liquidity,omitempty"`
	StrategyFit       float64 `json:"strategy_fit,omitempty"`
	CapitalEfficiency float64 `json:"capital_efficiency,omitempty"`
}

// DefaultWeights 与各档位默认阈值。
func DefaultWeights() Weights {
	return Weights{
		DataQuality:       0.20,
		Regime:            0.25,
		OptionsLiquidity:  0.20,
		StrategyFit:       0.20,
		CapitalEfficiency: 0.15,
	}
}

func (w Weights) orDefault() Weights {
	sum := w.DataQuality + w.Regime + w.OptionsLiquidity + w.StrategyFit + w.CapitalEfficiency
	if sum <= 0 {
		return DefaultWeights()
	}
	return w
}

// Breakdown 是最终评分结果；Band 一定带上提及档位字母的 BandReason。
type Breakdown struct {
	Components Components `json:"components"`
	Composite  int        `json:"composite"`
	Band       Band       `json:"band"`
	BandReason string     `json:"band_reason"`
	// Overridden 标记 composite 被调用方改写过（例如趋势封顶）。
	Overridden bool `json:"overridden,omitempty"`
}

// Compute 计算加权综合分并定档。
func Compute(c Components, w Weights) Breakdown {
	w = w.orDefault()
	raw := c.DataQuality*w.DataQuality +
		c.Regime*w.Regime +
		c.OptionsLiquidity*w.OptionsLiquidity +
		c.StrategyFit*w.StrategyFit +
		c.CapitalEfficiency*w.CapitalEfficiency
	composite := clamp(int(math.Round(raw)))
	band, reason := bandFor(composite)
	return Breakdown{
		Components: c,
		Composite:  composite,
		Band:       band,
		BandReason: reason,
	}
}

// WithComposite 允许调用方改写综合分（仍会 clamp 并重新定档）。
func (b Breakdown) WithComposite(composite int, note string) Breakdown {
	b.Composite = clamp(composite)
	band, reason := bandFor(b.Composite)
	if note != "" {
		reason = reason + " (" + note + ")"
	}
	b.Band = band
	b.BandReason = reason
	b.Overridden = true
	return b
}

func bandFor(composite int) (Band, string) {
	switch {
	case composite >= 85:
		return BandA, fmt.Sprintf("band A: composite %d >= 85", composite)
	case composite >= 70:
		return BandB, fmt.Sprintf("band B: composite %d in [70,85)", composite)
	case composite >= 50:
		return BandC, fmt.Sprintf("band C: composite %d in [50,70)", composite)
	default:
		return BandD, fmt.Sprintf("band D: composite %d < 50", composite)
	}
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// CapitalTiers 定义占用账户权益比例的分层惩罚（warn/heavy/cap）。
type CapitalTiers struct {
	WarnPct      float64 `json:"warn_pct,omitempty"`
	HeavyPct     float64 `json:"heavy_pct,omitempty"`
	CapPct       float64 `json:"cap_pct,omitempty"`
	WarnPenalty  float64 `json:"warn_penalty,omitempty"`
	HeavyPenalty float64 `json:"heavy_penalty,omitempty"`
}

func (t CapitalTiers) withDefaults() CapitalTiers {
	if t.WarnPct <= 0 {
		t.WarnPct = 0.10
	}
	if t.HeavyPct <= 0 {
		t.HeavyPct = 0.25
	}
	if t.CapPct <= 0 {
		t.CapPct = 0.50
	}
	if t.WarnPenalty <= 0 {
		t.WarnPenalty = 20
	}
	if t.HeavyPenalty <= 0 {
		t.HeavyPenalty = 50
	}
	return t
}

// CapitalEfficiency 只对 notional = strike×100 计惩罚，不看价格水平本身。
// 账户权益未知（<=0）时不罚，返回满分。
func CapitalEfficiency(strike, accountEquity float64, tiers CapitalTiers) float64 {
	tiers = tiers.withDefaults()
	if strike <= 0 || accountEquity <= 0 {
		return 100
	}
	notional := strike * 100
	pct := notional / accountEquity
	switch {
	case pct >= tiers.CapPct:
		return 0
	case pct >= tiers.HeavyPct:
		return math.Max(0, 100-tiers.HeavyPenalty)
	case pct >= tiers.WarnPct:
		return math.Max(0, 100-tiers.WarnPenalty)
	default:
		return 100
	}
}
