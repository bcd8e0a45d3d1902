package eligibility

import (
	"fmt"

	"wheelhouse/internal/analysis/indicator"
	"wheelhouse/internal/analysis/levels"
	"wheelhouse/internal/market"
	"wheelhouse/internal/regime"
)

// Settings 汇总 gate 的全部阈值，按值传入保证纯函数性。
type Settings struct {
	Indicator indicator.Settings `json:"indicator"`
	Levels    levels.Settings    `json:"levels"`

	// NearLevelPct：价格距支撑/阻力不超过该比例才算 near（0.03 = 3%）。
	NearLevelPct float64 `json:"near_level_pct,omitempty"`
	CSPRSIMin    float64 `json:"csp_rsi_min,omitempty"`
	CSPRSIMax    float64 `json:"csp_rsi_max,omitempty"`
	CCRSIMin     float64 `json:"cc_rsi_min,omitempty"`
	CCRSIMax     float64 `json:"cc_rsi_max,omitempty"`
	// MaxATRPercent：ATR/价格 超过该值视为波动过大。
	MaxATRPercent float64 `json:"max_atr_percent,omitempty"`
}

func (s Settings) withDefaults() Settings {
	if s.NearLevelPct <= 0 {
		s.NearLevelPct = 0.03
	}
	if s.CSPRSIMin <= 0 {
		s.CSPRSIMin = 35
	}
	if s.CSPRSIMax <= 0 {
		s.CSPRSIMax = 60
	}
	if s.CCRSIMin <= 0 {
		s.CCRSIMin = 40
	}
	if s.CCRSIMax <= 0 {
		s.CCRSIMax = 75
	}
	if s.MaxATRPercent <= 0 {
		s.MaxATRPercent = 0.05
	}
	return s
}

// Input 是一次 gate 运行的全部输入。
type Input struct {
	Symbol     string
	SharesHeld float64
	// Price 为评估价，<=0 时回落到最后收盘价。
	Price  float64
	Daily  []market.Candle
	Weekly []market.Candle
}

// Run 为单个 symbol 产出模式判定与完整审计。无内部状态，可并发调用。
// 除 K 线不足的前置条件外，所有规则始终全部求值，失败不短路。
func Run(in Input, cfg Settings) (Mode, Trace) {
	cfg = cfg.withDefaults()
	trace := Trace{Symbol: in.Symbol, ModeDecision: ModeNone}

	minCandles := cfg.Indicator.MinCandles()
	if len(in.Daily) < minCandles {
		trace.addCheck(RuleCheck{
			Rule:      "min_candles",
			Passed:    false,
			Actual:    float64(len(in.Daily)),
			Threshold: fmt.Sprintf(">=%d", minCandles),
			Code:      FailNoCandles,
		})
		trace.addCode(FailNoCandles)
		return ModeNone, trace
	}

	snap, err := indicator.Compute(in.Daily, cfg.Indicator)
	if err != nil {
		// MinCandles 已经覆盖了唯一的失败分支，这里仅兜底。
		trace.addCode(FailNoCandles)
		return ModeNone, trace
	}
	trace.Snapshot = snap

	price := in.Price
	if price <= 0 {
		price = snap.Close
	}
	trace.Price = price

	daily := regime.Classify(snap)
	weekly := weeklyRegime(in.Weekly, cfg.Indicator)
	res := regime.Resolve(daily, weekly)
	trace.Regime = res
	if res.Conflict {
		trace.addCode(FailRegimeConflict)
	}

	lv := levels.Find(in.Daily, price, cfg.Levels)
	trace.Levels = lv

	nearSupport := lv.SupportDistancePct != nil && *lv.SupportDistancePct <= cfg.NearLevelPct
	nearResist := lv.ResistanceDistancePct != nil && *lv.ResistanceDistancePct <= cfg.NearLevelPct

	// CSP 规则组
	cspRegime := check(&trace, RuleCheck{
		Rule:      "csp_regime_up",
		Passed:    res.Final == regime.Up,
		Actual:    directionValue(res.Final),
		Threshold: "regime=UP",
		Code:      FailRegimeNotUp,
	})
	cspNear := check(&trace, RuleCheck{
		Rule:      "csp_near_support",
		Passed:    nearSupport,
		Actual:    distanceOrNaN(lv.SupportDistancePct),
		Threshold: fmt.Sprintf("<=%.4f", cfg.NearLevelPct),
		Code:      FailNotNearSupport,
	})
	cspRSI := check(&trace, RuleCheck{
		Rule:      "csp_rsi_range",
		Passed:    snap.RSI >= cfg.CSPRSIMin && snap.RSI <= cfg.CSPRSIMax,
		Actual:    snap.RSI,
		Threshold: fmt.Sprintf("[%.1f,%.1f]", cfg.CSPRSIMin, cfg.CSPRSIMax),
		Code:      FailRSICSPRange,
	})
	atrOK := check(&trace, RuleCheck{
		Rule:      "atr_percent_max",
		Passed:    snap.ATRPercent < cfg.MaxATRPercent,
		Actual:    snap.ATRPercent,
		Threshold: fmt.Sprintf("<%.4f", cfg.MaxATRPercent),
		Code:      FailATRTooHigh,
	})

	// CC 规则组
	ccShares := check(&trace, RuleCheck{
		Rule:      "cc_shares_held",
		Passed:    in.SharesHeld > 0,
		Actual:    in.SharesHeld,
		Threshold: ">0",
		Code:      FailNoShares,
	})
	ccRegime := check(&trace, RuleCheck{
		Rule:      "cc_regime_down",
		Passed:    res.Final == regime.Down,
		Actual:    directionValue(res.Final),
		Threshold: "regime=DOWN",
		Code:      FailRegimeNotDown,
	})
	ccNear := check(&trace, RuleCheck{
		Rule:      "cc_near_resistance",
		Passed:    nearResist,
		Actual:    distanceOrNaN(lv.ResistanceDistancePct),
		Threshold: fmt.Sprintf("<=%.4f", cfg.NearLevelPct),
		Code:      FailNotNearResist,
	})
	ccRSI := check(&trace, RuleCheck{
		Rule:      "cc_rsi_range",
		Passed:    snap.RSI >= cfg.CCRSIMin && snap.RSI <= cfg.CCRSIMax,
		Actual:    snap.RSI,
		Threshold: fmt.Sprintf("[%.1f,%.1f]", cfg.CCRSIMin, cfg.CCRSIMax),
		Code:      FailRSICCRange,
	})

	cspEligible := cspRegime && cspNear && cspRSI && atrOK && !res.Conflict
	ccEligible := ccShares && ccRegime && ccNear && ccRSI && atrOK && !res.Conflict

	switch {
	case cspEligible:
		// 两种模式的趋势条件互斥，同时成立时 CSP 优先。
		trace.ModeDecision = ModeCSP
		trace.RejectionReasonCodes = conflictOnly(trace.RejectionReasonCodes)
	case ccEligible:
		trace.ModeDecision = ModeCC
		trace.RejectionReasonCodes = conflictOnly(trace.RejectionReasonCodes)
	default:
		trace.ModeDecision = ModeNone
		for _, c := range trace.RuleChecks {
			if !c.Passed {
				trace.addCode(c.Code)
			}
		}
	}
	return trace.ModeDecision, trace
}

// check 记录规则并返回是否通过。失败规则的拒绝码在末尾统一收集。
func check(t *Trace, c RuleCheck) bool {
	t.addCheck(c)
	return c.Passed
}

func weeklyRegime(weekly []market.Candle, cfg indicator.Settings) regime.Direction {
	if len(weekly) < cfg.MinCandles() {
		return regime.Unknown
	}
	snap, err := indicator.Compute(weekly, cfg)
	if err != nil {
		return regime.Unknown
	}
	return regime.Classify(snap)
}

// conflictOnly 在模式通过时清空规则拒绝码，仅保留（不会出现的）冲突码。
func conflictOnly(codes []string) []string {
	var out []string
	for _, c := range codes {
		if c == FailRegimeConflict {
			out = append(out, c)
		}
	}
	if out == nil {
		return []string{}
	}
	return out
}

func distanceOrNaN(d *float64) float64 {
	if d == nil {
		return -1
	}
	return *d
}

func directionValue(d regime.Direction) float64 {
	switch d {
	case regime.Up:
		return 1
	case regime.Down:
		return -1
	default:
		return 0
	}
}
