package verdict

import (
	"fmt"
	"strings"

	"wheelhouse/internal/market"
	"wheelhouse/internal/regime"
)

// Verdict 是 symbol 级别的最终结论。
type Verdict string

const (
	Eligible Verdict = "ELIGIBLE"
	Hold     Verdict = "HOLD"
	Blocked  Verdict = "BLOCKED"
)

// 结论码，按 §resolve 的固定优先级产生。
const (
	CodePositionBlocked = "POSITION_BLOCKED"
	CodeExposureBlocked = "EXPOSURE_BLOCKED"
	CodeDataIncomplete  = "DATA_INCOMPLETE_FATAL"
	CodeRegimeRiskOff   = "REGIME_RISK_OFF"
)

// IncompleteType 区分缺数据的严重级：FATAL 阻断交易，INTRADAY 仅做注记。
type IncompleteType string

const (
	IncompleteNone     IncompleteType = ""
	IncompleteFatal    IncompleteType = "FATAL"
	IncompleteIntraday IncompleteType = "INTRADAY"
)

// Context 来自外部协作方（持仓/敞口判定、行情状态），按值传入。
type Context struct {
	PositionBlocked     bool
	PositionBlockReason string
	ExposureBlocked     bool
	ExposureBlockReason string

	// ChainAvailable 为 false 或 PriceMissing 为 true 即 FATAL 级缺数据。
	ChainAvailable bool
	PriceMissing   bool
	// MissingIntraday 列出缺失的盘中字段（bid/ask/volume 等），永不致命。
	MissingIntraday []string

	MarketStatus market.MarketStatus
	Risk         regime.Risk
}

// Resolution 是一次裁决的输出。
type Resolution struct {
	Verdict            Verdict        `json:"verdict"`
	Reason             string         `json:"reason"`
	ReasonCode         string         `json:"reason_code"`
	DataIncompleteType IncompleteType `json:"data_incomplete_type,omitempty"`
	WasDowngraded      bool           `json:"was_downgraded"`
	// DowngradeReason 仅用于观测，不参与任何判定。
	DowngradeReason string `json:"downgrade_reason,omitempty"`
}

// Resolve 按严格优先级合并外部上下文与当前结论。纯函数，每次调用重新求值：
//  1. 持仓阻断  → BLOCKED/POSITION_BLOCKED
//  2. 敞口阻断  → BLOCKED/EXPOSURE_BLOCKED
//  3. 无期权链或缺价格 → HOLD/DATA_INCOMPLETE_FATAL
//  4. RISK_OFF  → HOLD/REGIME_RISK_OFF
//  5. 其余保留当前结论
func Resolve(current Verdict, currentReason string, ctx Context) Resolution {
	switch {
	case ctx.PositionBlocked:
		return downgradeIfChanged(current, Resolution{
			Verdict:    Blocked,
			Reason:     positionReason(ctx.PositionBlockReason),
			ReasonCode: CodePositionBlocked,
		})
	case ctx.ExposureBlocked:
		return downgradeIfChanged(current, Resolution{
			Verdict:    Blocked,
			Reason:     exposureReason(ctx.ExposureBlockReason),
			ReasonCode: CodeExposureBlocked,
		})
	case !ctx.ChainAvailable || ctx.PriceMissing:
		return downgradeIfChanged(current, Resolution{
			Verdict:            Hold,
			Reason:             fatalDataReason(ctx),
			ReasonCode:         CodeDataIncomplete,
			DataIncompleteType: IncompleteFatal,
		})
	case ctx.Risk == regime.RiskOff:
		return downgradeIfChanged(current, Resolution{
			Verdict:    Hold,
			Reason:     "regime is risk-off, new entries suspended",
			ReasonCode: CodeRegimeRiskOff,
		})
	default:
		res := Resolution{Verdict: current, Reason: currentReason}
		// 盘中字段缺失永不致命；仅在休市时注记，不改结论。
		if len(ctx.MissingIntraday) > 0 && ctx.MarketStatus == market.MarketClosed {
			res.DataIncompleteType = IncompleteIntraday
			res.Reason = annotateIntraday(currentReason, ctx.MissingIntraday)
		}
		return res
	}
}

func downgradeIfChanged(current Verdict, next Resolution) Resolution {
	if next.Verdict != current {
		next.WasDowngraded = true
		next.DowngradeReason = fmt.Sprintf("verdict changed %s -> %s (%s)", current, next.Verdict, next.ReasonCode)
	}
	return next
}

// 各类结论文案保持互不混淆：持仓阻断不得读起来像数据故障，反之亦然。

func positionReason(detail string) string {
	if strings.TrimSpace(detail) == "" {
		detail = "an open position already exists for this symbol"
	}
	return "blocked by existing position: " + detail
}

func exposureReason(detail string) string {
	if strings.TrimSpace(detail) == "" {
		detail = "portfolio exposure limit reached"
	}
	return "blocked by exposure limit: " + detail
}

func fatalDataReason(ctx Context) string {
	switch {
	case !ctx.ChainAvailable && ctx.PriceMissing:
		return "market data incomplete: options chain unavailable and price missing"
	case !ctx.ChainAvailable:
		return "market data incomplete: options chain unavailable"
	default:
		return "market data incomplete: price missing"
	}
}

func annotateIntraday(reason string, missing []string) string {
	note := "intraday fields unavailable while market closed: " + strings.Join(missing, ", ")
	if strings.TrimSpace(reason) == "" {
		return note
	}
	return reason + "; " + note
}
