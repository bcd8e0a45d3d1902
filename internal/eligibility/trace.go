package eligibility

import (
	"wheelhouse/internal/analysis/indicator"
	"wheelhouse/internal/analysis/levels"
	"wheelhouse/internal/regime"
)

// Mode 是 gate 的最终模式判定。
type Mode string

const (
	ModeCSP  Mode = "CSP"
	ModeCC   Mode = "CC"
	ModeNone Mode = "NONE"
)

// 拒绝码：每个失败规则对应一个稳定字符串，供上游审计与告警指纹使用。
const (
	FailNoCandles      = "FAIL_NO_CANDLES"
	FailRegimeConflict = "FAIL_REGIME_CONFLICT"
	FailRegimeNotUp    = "FAIL_REGIME_NOT_UP"
	FailRegimeNotDown  = "FAIL_REGIME_NOT_DOWN"
	FailNotNearSupport = "FAIL_NOT_NEAR_SUPPORT"
	FailNotNearResist  = "FAIL_NOT_NEAR_RESISTANCE"
	FailRSICSPRange    = "FAIL_RSI_CSP_RANGE"
	FailRSICCRange     = "FAIL_RSI_CC_RANGE"
	FailATRTooHigh     = "FAIL_ATR_TOO_HIGH"
	FailNoShares       = "FAIL_NO_SHARES"
)

// RuleCheck 记录单条规则的实际值与阈值，保证每次拒绝都可回溯。
type RuleCheck struct {
	Rule      string  `json:"rule"`
	Passed    bool    `json:"passed"`
	Actual    float64 `json:"actual"`
	Threshold string  `json:"threshold"`
	Code      string  `json:"code,omitempty"`
}

// Trace 是一次 gate 运行的完整审计。
type Trace struct {
	Symbol               string             `json:"symbol"`
	ModeDecision         Mode               `json:"mode_decision"`
	Regime               regime.Resolution  `json:"regime"`
	Snapshot             indicator.Snapshot `json:"snapshot"`
	Levels               levels.Result      `json:"levels"`
	Price                float64            `json:"price"`
	RuleChecks           []RuleCheck        `json:"rule_checks"`
	RejectionReasonCodes []string           `json:"rejection_reason_codes"`
}

// addCode 去重并保持插入顺序。
func (t *Trace) addCode(code string) {
	if code == "" {
		return
	}
	for _, c := range t.RejectionReasonCodes {
		if c == code {
			return
		}
	}
	t.RejectionReasonCodes = append(t.RejectionReasonCodes, code)
}

func (t *Trace) addCheck(c RuleCheck) {
	t.RuleChecks = append(t.RuleChecks, c)
}
