package options

import (
	"context"
	"math"
	"sort"
	"time"

	"wheelhouse/internal/eligibility"
	"wheelhouse/internal/logger"
)

// 各过滤阶段为空时的拒绝码。
const (
	ReasonChainUnavailable  = "chain_unavailable"
	ReasonNoExpiryInWindow  = "no_expiry_in_dte_window"
	ReasonNoPutInDeltaRange = "no_put_in_delta_range"
	ReasonNoCallInDeltaBand = "no_call_in_delta_range"
	ReasonNoQuotePassFilter = "no_quote_passes_filters"
	ReasonNoContractMinROC  = "no_contract_meets_min_roc"
	ReasonUnsupportedMode   = "unsupported_mode"
)

// SelectorConfig 的 delta 一律以绝对值配置，put 在内部取负。
type SelectorConfig struct {
	MinDTE       int     `json:"min_dte,omitempty"`
	MaxDTE       int     `json:"max_dte,omitempty"`
	DeltaMin     float64 `json:"delta_min,omitempty"`
	DeltaMax     float64 `json:"delta_max,omitempty"`
	TargetDelta  float64 `json:"target_delta,omitempty"`
	MaxSpreadPct float64 `json:"max_spread_pct,omitempty"`
	// MinOpenInterest/MinVolume 仅在配置 >0 时参与过滤；
	// 行内字段缺失时不会单独拒绝该行（容忍延迟行情）。
	MinOpenInterest int64   `json:"min_open_interest,omitempty"`
	MinVolume       int64   `json:"min_volume,omitempty"`
	MinROC          float64 `json:"min_roc,omitempty"`
}

func (c SelectorConfig) withDefaults() SelectorConfig {
	if c.MinDTE <= 0 {
		c.MinDTE = 21
	}
	if c.MaxDTE <= 0 {
		c.MaxDTE = 45
	}
	if c.DeltaMin <= 0 {
		c.DeltaMin = 0.15
	}
	if c.DeltaMax <= 0 {
		c.DeltaMax = 0.35
	}
	if c.TargetDelta <= 0 {
		c.TargetDelta = 0.25
	}
	if c.MaxSpreadPct <= 0 {
		c.MaxSpreadPct = 0.10
	}
	if c.MinROC <= 0 {
		c.MinROC = 0.005
	}
	return c
}

// Select 在 DTE/delta/流动性/ROC 约束下为给定模式挑选一份合约。
// 相同链快照下重复调用结果完全一致：候选排序使用单一复合键，
// 不依赖 map 迭代或输入顺序。
func Select(ctx context.Context, symbol string, mode eligibility.Mode, snap Snapshot, provider ChainProvider, cfg SelectorConfig) Result {
	cfg = cfg.withDefaults()
	var right Right
	switch mode {
	case eligibility.ModeCSP:
		right = Put
	case eligibility.ModeCC:
		right = Call
	default:
		return reject(ReasonUnsupportedMode)
	}

	if provider == nil {
		return reject(ReasonChainUnavailable)
	}
	expirations, err := provider.Expirations(ctx, symbol)
	if err != nil || len(expirations) == 0 {
		if err != nil {
			logger.Debugf("selector %s: expirations unavailable: %v", symbol, err)
		}
		return reject(ReasonChainUnavailable)
	}

	inWindow := make([]time.Time, 0, len(expirations))
	for _, exp := range expirations {
		dte := DaysToExpiry(snap.AsOf, exp)
		if dte >= cfg.MinDTE && dte <= cfg.MaxDTE {
			inWindow = append(inWindow, exp)
		}
	}
	if len(inWindow) == 0 {
		return reject(ReasonNoExpiryInWindow)
	}
	sort.Slice(inWindow, func(i, j int) bool { return inWindow[i].Before(inWindow[j]) })

	var inDelta []candidate
	sawChain := false
	for _, exp := range inWindow {
		rows, err := provider.Chain(ctx, symbol, exp, right)
		if err != nil {
			// 单个到期日取链失败等价于该到期日无链，不中断整体评估。
			logger.Debugf("selector %s: chain fetch failed for %s: %v", symbol, exp.Format("2006-01-02"), err)
			continue
		}
		sawChain = true
		dte := DaysToExpiry(snap.AsOf, exp)
		for _, row := range rows {
			if row.Strike <= 0 {
				continue
			}
			if !deltaInBand(right, row.Delta, cfg) {
				continue
			}
			inDelta = append(inDelta, candidate{
				Contract: Contract{
					Symbol:       symbol,
					Right:        right,
					Strike:       row.Strike,
					Expiry:       exp,
					DTE:          dte,
					Delta:        row.Delta,
					Bid:          deref(row.Bid),
					Ask:          deref(row.Ask),
					Mid:          midPrice(row.Bid, row.Ask),
					OpenInterest: derefInt(row.OpenInterest),
					Volume:       derefInt(row.Volume),
				},
				quotesMissing:   row.Bid == nil && row.Ask == nil,
				hasOpenInterest: row.OpenInterest != nil,
				hasVolume:       row.Volume != nil,
			})
		}
	}
	if !sawChain {
		return reject(ReasonChainUnavailable)
	}
	if len(inDelta) == 0 {
		if right == Put {
			return reject(ReasonNoPutInDeltaRange)
		}
		return reject(ReasonNoCallInDeltaBand)
	}

	var quoted []candidate
	for _, c := range inDelta {
		if c.quotesMissing {
			continue
		}
		if c.Mid <= 0 {
			continue
		}
		c.SpreadPct = spreadPct(c.Bid, c.Ask, c.Mid)
		if decimalGT(c.SpreadPct, cfg.MaxSpreadPct) {
			continue
		}
		if cfg.MinOpenInterest > 0 && c.hasOpenInterest && c.OpenInterest < cfg.MinOpenInterest {
			continue
		}
		if cfg.MinVolume > 0 && c.hasVolume && c.Volume < cfg.MinVolume {
			continue
		}
		quoted = append(quoted, c)
	}
	if len(quoted) == 0 {
		return reject(ReasonNoQuotePassFilter)
	}

	var funded []candidate
	for _, c := range quoted {
		c.ROC = returnOnCapital(right, c.Mid, c.Strike, snap.Price)
		if decimalLT(c.ROC, cfg.MinROC) {
			continue
		}
		funded = append(funded, c)
	}
	if len(funded) == 0 {
		return reject(ReasonNoContractMinROC)
	}

	target := cfg.TargetDelta
	if right == Put {
		target = -target
	}
	// 复合排序键：|delta 偏差| → DTE → 更保守的行权价。
	sort.SliceStable(funded, func(i, j int) bool {
		a, b := funded[i], funded[j]
		da := math.Abs(a.Delta - target)
		db := math.Abs(b.Delta - target)
		if da != db {
			return da < db
		}
		if a.DTE != b.DTE {
			return a.DTE < b.DTE
		}
		if right == Put {
			return a.Strike > b.Strike
		}
		return a.Strike < b.Strike
	})

	chosen := funded[0].Contract
	return Result{
		Eligible:  true,
		Contract:  &chosen,
		ROC:       chosen.ROC,
		DTE:       chosen.DTE,
		SpreadPct: chosen.SpreadPct,
	}
}

// candidate 在选择过程中携带“字段是否缺失”的标记，避免把缺失当 0 误判。
type candidate struct {
	Contract
	quotesMissing   bool
	hasOpenInterest bool
	hasVolume       bool
}

func deltaInBand(right Right, delta float64, cfg SelectorConfig) bool {
	if right == Put {
		return delta >= -cfg.DeltaMax && delta <= -cfg.DeltaMin
	}
	return delta >= cfg.DeltaMin && delta <= cfg.DeltaMax
}

// returnOnCapital：CSP 用 strike 做分母（现金担保），CC 用标的价（权利金占股价比例）。
func returnOnCapital(right Right, mid, strike, underlying float64) float64 {
	switch right {
	case Put:
		if strike <= 0 {
			return 0
		}
		return decToFloat(decFromFloat(mid).Div(decFromFloat(strike)))
	default:
		if underlying <= 0 {
			return 0
		}
		return decToFloat(decFromFloat(mid).Div(decFromFloat(underlying)))
	}
}

func midPrice(bid, ask *float64) float64 {
	switch {
	case bid != nil && ask != nil:
		return decToFloat(decFromFloat(*bid).Add(decFromFloat(*ask)).Div(decTwo))
	case bid != nil:
		return *bid
	case ask != nil:
		return *ask
	default:
		return 0
	}
}

func spreadPct(bid, ask, mid float64) float64 {
	if mid <= 0 {
		return 0
	}
	spread := decFromFloat(ask).Sub(decFromFloat(bid))
	if spread.IsNegative() {
		return 0
	}
	return decToFloat(spread.Div(decFromFloat(mid)))
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func derefInt(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
