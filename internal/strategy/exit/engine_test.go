package exit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"wheelhouse/internal/exitplan"
	"wheelhouse/internal/position"
	"wheelhouse/internal/regime"
)

func cspPosition(plan *exitplan.Plan) position.Position {
	return position.Position{
		ID:               1,
		Symbol:           "AAPL",
		Strategy:         position.StrategyCSP,
		Strike:           150,
		Contracts:        1,
		PremiumCollected: 1000,
		State:            position.StateOpen,
		ExitPlan:         plan,
	}
}

func TestEvaluate_ProfitTarget(t *testing.T) {
	plan := &exitplan.Plan{ProfitTargetPct: 0.60, MaxLossMultiplier: 2.0}
	in := Input{
		Position:    cspPosition(plan),
		OptionValue: 350, // 兑现 65%，超过 60% 目标
		Price:       155,
		DTE:         20,
		Risk:        regime.RiskOn,
	}

	d := Evaluate(in)
	assert.Equal(t, ActionAlert, d.Action)
	assert.Equal(t, []string{ReasonProfitTarget}, d.ReasonCodes)
	assert.Equal(t, UrgencyMedium, d.Urgency)
}

func TestEvaluate_ProfitTargetWinsOverMaxLoss(t *testing.T) {
	// 构造两条规则同时满足的矛盾输入：profit_target 在先，必须胜出。
	plan := &exitplan.Plan{ProfitTargetPct: 0.50, MaxLossMultiplier: 0.3}
	in := Input{
		Position:    cspPosition(plan),
		OptionValue: 400,
		Price:       155,
		DTE:         20,
		Risk:        regime.RiskOn,
	}

	d := Evaluate(in)
	assert.Equal(t, []string{ReasonProfitTarget}, d.ReasonCodes)
}

func TestEvaluate_MaxLoss(t *testing.T) {
	plan := &exitplan.Plan{ProfitTargetPct: 0.60, MaxLossMultiplier: 2.0}
	in := Input{
		Position:    cspPosition(plan),
		OptionValue: 2500, // 2.5x credit
		Price:       140,
		DTE:         20,
		Risk:        regime.RiskOn,
	}

	d := Evaluate(in)
	assert.Equal(t, ActionAlert, d.Action)
	assert.Equal(t, []string{ReasonMaxLoss}, d.ReasonCodes)
	assert.Equal(t, UrgencyHigh, d.Urgency)
}

func TestEvaluate_TimeStop(t *testing.T) {
	plan := &exitplan.Plan{ProfitTargetPct: 0.60, MaxLossMultiplier: 2.0, TimeStopDays: 5}

	t.Run("DTEInsideWindow", func(t *testing.T) {
		in := Input{
			Position:    cspPosition(plan),
			OptionValue: 800,
			Price:       150,
			DTE:         4,
			Risk:        regime.RiskOn,
		}
		d := Evaluate(in)
		assert.Equal(t, []string{ReasonTimeStop}, d.ReasonCodes)
	})

	t.Run("FiresWithoutRecordedCredit", func(t *testing.T) {
		// time stop 只看日历，没记到权利金也不能降级成 NO_CREDIT
		pos := cspPosition(plan)
		pos.PremiumCollected = 0
		in := Input{Position: pos, OptionValue: 0, Price: 150, DTE: 4, Risk: regime.RiskOn}
		d := Evaluate(in)
		assert.Equal(t, ActionAlert, d.Action)
		assert.Equal(t, []string{ReasonTimeStop}, d.ReasonCodes)
		assert.Equal(t, UrgencyHigh, d.Urgency)
	})
}

func TestEvaluate_ThresholdBoundaries(t *testing.T) {
	t.Run("ProfitTargetExactBoundary", func(t *testing.T) {
		// 1000×(1−0.65) 的浮点结果是 349.99…，十进制口径下 350 必须恰好命中
		plan := &exitplan.Plan{ProfitTargetPct: 0.65, MaxLossMultiplier: 5.0}
		in := Input{Position: cspPosition(plan), OptionValue: 350, Price: 155, DTE: 20, Risk: regime.RiskOn}
		d := Evaluate(in)
		assert.Equal(t, []string{ReasonProfitTarget}, d.ReasonCodes)
	})

	t.Run("MaxLossExactBoundary", func(t *testing.T) {
		plan := &exitplan.Plan{ProfitTargetPct: 0.80, MaxLossMultiplier: 0.3}
		pos := cspPosition(plan)
		pos.PremiumCollected = 1100
		in := Input{Position: pos, OptionValue: 330, Price: 150, DTE: 20, Risk: regime.RiskOn}
		d := Evaluate(in)
		assert.Equal(t, []string{ReasonMaxLoss}, d.ReasonCodes)
		assert.Equal(t, UrgencyHigh, d.Urgency)
	})
}

func TestEvaluate_UnderlyingBreach(t *testing.T) {
	t.Run("CSPBreachBelow", func(t *testing.T) {
		plan := &exitplan.Plan{ProfitTargetPct: 0.60, MaxLossMultiplier: 5.0, UnderlyingBreachEnabled: true}
		in := Input{Position: cspPosition(plan), OptionValue: 1200, Price: 148, DTE: 20, Risk: regime.RiskOn}
		d := Evaluate(in)
		assert.Equal(t, []string{ReasonUnderlyingBreach}, d.ReasonCodes)
	})

	t.Run("DisabledPlanIgnoresBreach", func(t *testing.T) {
		plan := &exitplan.Plan{ProfitTargetPct: 0.60, MaxLossMultiplier: 5.0}
		in := Input{Position: cspPosition(plan), OptionValue: 1200, Price: 148, DTE: 20, Risk: regime.RiskOn}
		d := Evaluate(in)
		assert.Equal(t, ActionHold, d.Action)
		assert.Equal(t, []string{ReasonStopRulesOK}, d.ReasonCodes)
	})

	t.Run("CCBreachAbove", func(t *testing.T) {
		plan := &exitplan.Plan{ProfitTargetPct: 0.60, MaxLossMultiplier: 5.0, UnderlyingBreachEnabled: true}
		pos := cspPosition(plan)
		pos.Strategy = position.StrategyCC
		in := Input{Position: pos, OptionValue: 1200, Price: 152, DTE: 20, Risk: regime.RiskOn}
		d := Evaluate(in)
		assert.Equal(t, []string{ReasonUnderlyingBreach}, d.ReasonCodes)
	})
}

func TestEvaluate_RegimeFlip(t *testing.T) {
	plan := &exitplan.Plan{ProfitTargetPct: 0.60, MaxLossMultiplier: 2.0}
	in := Input{
		Position:    cspPosition(plan),
		OptionValue: 800,
		Price:       150,
		DTE:         20,
		Risk:        regime.RiskOff,
	}

	d := Evaluate(in)
	assert.Equal(t, ActionAlert, d.Action)
	assert.Equal(t, []string{ReasonRegimeFlip}, d.ReasonCodes)
}

func TestEvaluate_DegradedInputs(t *testing.T) {
	t.Run("NoPlan", func(t *testing.T) {
		d := Evaluate(Input{Position: cspPosition(nil), OptionValue: 100, Price: 150, DTE: 20, Risk: regime.RiskOn})
		assert.Equal(t, ActionHold, d.Action)
		assert.Equal(t, []string{ReasonNoExitPlan}, d.ReasonCodes)
	})

	t.Run("NoCredit", func(t *testing.T) {
		pos := cspPosition(&exitplan.Plan{ProfitTargetPct: 0.60, MaxLossMultiplier: 2.0})
		pos.PremiumCollected = 0
		d := Evaluate(Input{Position: pos, OptionValue: 100, Price: 150, DTE: 20, Risk: regime.RiskOn})
		assert.Equal(t, ActionHold, d.Action)
		assert.Equal(t, []string{ReasonNoCredit}, d.ReasonCodes)
	})

	t.Run("AllClear", func(t *testing.T) {
		plan := &exitplan.Plan{ProfitTargetPct: 0.60, MaxLossMultiplier: 2.0}
		d := Evaluate(Input{Position: cspPosition(plan), OptionValue: 800, Price: 152, DTE: 20, Risk: regime.RiskOn})
		assert.Equal(t, ActionHold, d.Action)
		assert.Equal(t, []string{ReasonStopRulesOK}, d.ReasonCodes)
		assert.Equal(t, UrgencyLow, d.Urgency)
	})
}
