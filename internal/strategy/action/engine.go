package action

import (
	"fmt"
	"time"

	"wheelhouse/internal/position"
	"wheelhouse/internal/regime"
)

// Action 是启发式梯子的输出动作。
type Action string

const (
	ActionHold  Action = "HOLD"
	ActionClose Action = "CLOSE"
	ActionRoll  Action = "ROLL"
	ActionAlert Action = "ALERT"
)

// Urgency 与 stop 引擎含义一致。
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// 梯子各档的 reason code。
const (
	ReasonPremium70Pct    = "PREMIUM_70_PCT"
	ReasonExpiryPremium50 = "DTE3_PREMIUM_50_PCT"
	ReasonRollWindow      = "ROLL_WINDOW"
	ReasonBelowEMA200     = "PRICE_BELOW_EMA200"
	ReasonRegimeRiskOff   = "REGIME_RISK_OFF"
	ReasonDefaultHold     = "DEFAULT_HOLD"
)

// Context 是梯子求值所需的行情上下文。
type Context struct {
	Price  float64
	EMA50  float64
	EMA200 float64
	Risk   regime.Risk
	// PremiumCapturedPct 为已兑现权利金百分比（70.0 = 70%）。
	PremiumCapturedPct float64
	DTE                int
	AsOf               time.Time
}

// Decision 是每次调用恰好一个的动作判定；纯函数，不改持仓。
type Decision struct {
	Action      Action   `json:"action"`
	Urgency     Urgency  `json:"urgency,omitempty"`
	ReasonCodes []string `json:"reason_codes"`
	Detail      string   `json:"detail,omitempty"`
	// AllowedNextStates 由状态机推导，保证不会推荐非法转移。
	AllowedNextStates []position.State `json:"allowed_next_states"`
	RollPlan          *RollPlan        `json:"roll_plan,omitempty"`
}

type ladderRule struct {
	name string
	eval func(position.Position, Context) *Decision
}

// 梯子顺序即优先级；只在 stop 引擎给出 HOLD 时才会被咨询。
var ladder = []ladderRule{
	{name: "close_on_premium", eval: evalCloseOnPremium},
	{name: "roll_window", eval: evalRollWindow},
	{name: "trend_alert", eval: evalTrendAlert},
}

// Evaluate 自上而下求值，默认 HOLD。
func Evaluate(pos position.Position, ctx Context) Decision {
	for _, r := range ladder {
		if d := r.eval(pos, ctx); d != nil {
			d.AllowedNextStates = position.AllowedNextStates(pos.State)
			return *d
		}
	}
	return Decision{
		Action:            ActionHold,
		Urgency:           UrgencyLow,
		ReasonCodes:       []string{ReasonDefaultHold},
		AllowedNextStates: position.AllowedNextStates(pos.State),
	}
}

// evalCloseOnPremium：权利金兑现 ≥70%，或临到期（DTE≤3）且 ≥50%。
func evalCloseOnPremium(pos position.Position, ctx Context) *Decision {
	var codes []string
	if ctx.PremiumCapturedPct >= 70 {
		codes = append(codes, ReasonPremium70Pct)
	}
	if ctx.DTE <= 3 && ctx.PremiumCapturedPct >= 50 {
		codes = append(codes, ReasonExpiryPremium50)
	}
	if len(codes) == 0 {
		return nil
	}
	return &Decision{
		Action:      ActionClose,
		Urgency:     UrgencyMedium,
		ReasonCodes: codes,
		Detail:      fmt.Sprintf("premium captured %.1f%%, DTE %d", ctx.PremiumCapturedPct, ctx.DTE),
	}
}

// evalRollWindow：临到期但权利金兑现不足，且价格仍在 EMA50 上方。
func evalRollWindow(pos position.Position, ctx Context) *Decision {
	if ctx.DTE > 7 || ctx.PremiumCapturedPct >= 50 {
		return nil
	}
	if ctx.EMA50 <= 0 || ctx.Price <= ctx.EMA50 {
		return nil
	}
	plan := BuildRollPlan(pos, ctx)
	return &Decision{
		Action:      ActionRoll,
		Urgency:     UrgencyMedium,
		ReasonCodes: []string{ReasonRollWindow},
		Detail:      fmt.Sprintf("DTE %d with %.1f%% captured, price above EMA50", ctx.DTE, ctx.PremiumCapturedPct),
		RollPlan:    &plan,
	}
}

func evalTrendAlert(pos position.Position, ctx Context) *Decision {
	var codes []string
	if ctx.EMA200 > 0 && ctx.Price < ctx.EMA200 {
		codes = append(codes, ReasonBelowEMA200)
	}
	if ctx.Risk == regime.RiskOff {
		codes = append(codes, ReasonRegimeRiskOff)
	}
	if len(codes) == 0 {
		return nil
	}
	return &Decision{
		Action:      ActionAlert,
		Urgency:     UrgencyHigh,
		ReasonCodes: codes,
		Detail:      "trend deterioration under open position",
	}
}
