package exit

import (
	"fmt"

	"wheelhouse/internal/position"
	"wheelhouse/internal/regime"
)

// Action 是 stop 引擎的输出动作。
type Action string

const (
	ActionHold  Action = "HOLD"
	ActionAlert Action = "ALERT"
)

// Urgency 表示触发的紧急程度。
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// 各规则的稳定 reason code。
const (
	ReasonProfitTarget     = "PROFIT_TARGET"
	ReasonMaxLoss          = "MAX_LOSS"
	ReasonTimeStop         = "TIME_STOP"
	ReasonUnderlyingBreach = "UNDERLYING_BREACH"
	ReasonRegimeFlip       = "REGIME_FLIP"
	ReasonNoExitPlan       = "NO_EXIT_PLAN"
	ReasonNoCredit         = "NO_CREDIT"
	ReasonStopRulesOK      = "STOP_RULES_OK"
)

// Input 是一次 stop 评估的全部输入。
type Input struct {
	Position position.Position
	// OptionValue 为当前平仓成本（美元，与 PremiumCollected 同口径）。
	OptionValue float64
	// Price 为标的最新价。
	Price float64
	DTE   int
	Risk  regime.Risk
}

// Decision 是 stop 引擎的判定结果；非 HOLD 会短路后续的启发式梯子。
type Decision struct {
	Action      Action   `json:"action"`
	ReasonCodes []string `json:"reason_codes"`
	Urgency     Urgency  `json:"urgency,omitempty"`
	Detail      string   `json:"detail,omitempty"`
}

// rule 把优先级做成显式的有序数据结构：自上而下求值，首个命中即返回。
type rule struct {
	name string
	eval func(Input) *Decision
}

var stopRules = []rule{
	{name: "profit_target", eval: evalProfitTarget},
	{name: "max_loss", eval: evalMaxLoss},
	{name: "time_stop", eval: evalTimeStop},
	{name: "underlying_breach", eval: evalUnderlyingBreach},
	{name: "regime_flip", eval: evalRegimeFlip},
	{name: "plan_missing", eval: evalPlanMissing},
}

// Evaluate 按固定优先级评估正式退出计划。无状态，可并发调用。
func Evaluate(in Input) Decision {
	for _, r := range stopRules {
		if d := r.eval(in); d != nil {
			return *d
		}
	}
	return Decision{
		Action:      ActionHold,
		ReasonCodes: []string{ReasonStopRulesOK},
		Urgency:     UrgencyLow,
	}
}

func evalProfitTarget(in Input) *Decision {
	plan := in.Position.ExitPlan
	credit := in.Position.PremiumCollected
	if plan == nil || credit <= 0 || plan.ProfitTargetPct <= 0 {
		return nil
	}
	threshold := profitThreshold(credit, plan.ProfitTargetPct)
	if !decimalLTE(in.OptionValue, threshold) {
		return nil
	}
	return &Decision{
		Action:      ActionAlert,
		ReasonCodes: []string{ReasonProfitTarget},
		Urgency:     UrgencyMedium,
		Detail:      fmt.Sprintf("option value %.2f <= %.2f (%.0f%% of credit captured)", in.OptionValue, threshold, plan.ProfitTargetPct*100),
	}
}

func evalMaxLoss(in Input) *Decision {
	plan := in.Position.ExitPlan
	credit := in.Position.PremiumCollected
	if plan == nil || credit <= 0 || plan.MaxLossMultiplier <= 0 {
		return nil
	}
	threshold := lossThreshold(credit, plan.MaxLossMultiplier)
	if !decimalGTE(in.OptionValue, threshold) {
		return nil
	}
	return &Decision{
		Action:      ActionAlert,
		ReasonCodes: []string{ReasonMaxLoss},
		Urgency:     UrgencyHigh,
		Detail:      fmt.Sprintf("option value %.2f >= %.2f (%.1fx credit)", in.OptionValue, threshold, plan.MaxLossMultiplier),
	}
}

// evalTimeStop 只看日历：没有记录到权利金也一样会触发。
func evalTimeStop(in Input) *Decision {
	plan := in.Position.ExitPlan
	if plan == nil || plan.TimeStopDays <= 0 {
		return nil
	}
	if in.DTE > plan.TimeStopDays {
		return nil
	}
	return &Decision{
		Action:      ActionAlert,
		ReasonCodes: []string{ReasonTimeStop},
		Urgency:     UrgencyHigh,
		Detail:      fmt.Sprintf("DTE %d <= time stop %d", in.DTE, plan.TimeStopDays),
	}
}

// evalUnderlyingBreach 只在计划明确启用时生效。CSP 看跌破行权价，
// call 类（CC）看升破行权价。
func evalUnderlyingBreach(in Input) *Decision {
	plan := in.Position.ExitPlan
	if plan == nil || !plan.UnderlyingBreachEnabled || in.Price <= 0 {
		return nil
	}
	strike := in.Position.Strike
	breached := false
	switch in.Position.Strategy {
	case position.StrategyCSP:
		breached = in.Price < strike
	case position.StrategyCC:
		breached = in.Price > strike
	}
	if !breached {
		return nil
	}
	return &Decision{
		Action:      ActionAlert,
		ReasonCodes: []string{ReasonUnderlyingBreach},
		Urgency:     UrgencyHigh,
		Detail:      fmt.Sprintf("underlying %.2f breached strike %.2f", in.Price, strike),
	}
}

func evalRegimeFlip(in Input) *Decision {
	if in.Risk != regime.RiskOff {
		return nil
	}
	return &Decision{
		Action:      ActionAlert,
		ReasonCodes: []string{ReasonRegimeFlip},
		Urgency:     UrgencyHigh,
		Detail:      "regime flipped to risk-off",
	}
}

func evalPlanMissing(in Input) *Decision {
	if in.Position.ExitPlan == nil {
		return &Decision{
			Action:      ActionHold,
			ReasonCodes: []string{ReasonNoExitPlan},
			Urgency:     UrgencyLow,
			Detail:      "no formal exit plan configured",
		}
	}
	if in.Position.PremiumCollected <= 0 {
		return &Decision{
			Action:      ActionHold,
			ReasonCodes: []string{ReasonNoCredit},
			Urgency:     UrgencyLow,
			Detail:      "no recorded credit for position",
		}
	}
	return nil
}
