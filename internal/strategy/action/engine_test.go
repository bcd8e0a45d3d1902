package action

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wheelhouse/internal/position"
	"wheelhouse/internal/regime"
)

func openCSP() position.Position {
	return position.Position{
		ID:               7,
		Symbol:           "AAPL",
		Strategy:         position.StrategyCSP,
		Strike:           150,
		Contracts:        1,
		PremiumCollected: 1000,
		State:            position.StateOpen,
	}
}

func TestEvaluate_CloseOnPremium(t *testing.T) {
	ctx := Context{
		Price:              155,
		EMA50:              152,
		EMA200:             150,
		Risk:               regime.RiskOn,
		PremiumCapturedPct: 70,
		DTE:                20,
	}

	d := Evaluate(openCSP(), ctx)
	assert.Equal(t, ActionClose, d.Action)
	assert.Equal(t, []string{ReasonPremium70Pct}, d.ReasonCodes)
	assert.Equal(t, UrgencyMedium, d.Urgency)
	// 建议动作必须附带状态机允许的转移。
	assert.Equal(t, []position.State{position.StateClosing, position.StateOpen, position.StateRolling}, d.AllowedNextStates)
}

func TestEvaluate_ExpiryPremiumLadder(t *testing.T) {
	ctx := Context{
		Price:              155,
		EMA50:              152,
		Risk:               regime.RiskOn,
		PremiumCapturedPct: 55,
		DTE:                2,
	}

	d := Evaluate(openCSP(), ctx)
	assert.Equal(t, ActionClose, d.Action)
	assert.Equal(t, []string{ReasonExpiryPremium50}, d.ReasonCodes)
}

func TestEvaluate_BothPremiumCodesCollected(t *testing.T) {
	ctx := Context{
		Price:              155,
		EMA50:              152,
		Risk:               regime.RiskOn,
		PremiumCapturedPct: 80,
		DTE:                2,
	}

	d := Evaluate(openCSP(), ctx)
	assert.Equal(t, []string{ReasonPremium70Pct, ReasonExpiryPremium50}, d.ReasonCodes)
}

func TestEvaluate_RollWindow(t *testing.T) {
	asOf := time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)
	ctx := Context{
		Price:              155,
		EMA50:              152,
		EMA200:             150,
		Risk:               regime.RiskOn,
		PremiumCapturedPct: 30,
		DTE:                5,
		AsOf:               asOf,
	}

	d := Evaluate(openCSP(), ctx)
	assert.Equal(t, ActionRoll, d.Action)
	assert.Equal(t, []string{ReasonRollWindow}, d.ReasonCodes)
	require.NotNil(t, d.RollPlan)
	// 价格在行权价上方：常规展期，保持原行权价刻度。
	assert.Equal(t, RollOut, d.RollPlan.Type)
	assert.Equal(t, 150.0, d.RollPlan.NewStrike)
	assert.Equal(t, 35, d.RollPlan.TargetDTE)
	assert.Equal(t, asOf.AddDate(0, 0, 35), d.RollPlan.NewExpiry)
}

func TestEvaluate_RollWindowRequiresPriceAboveEMA50(t *testing.T) {
	ctx := Context{
		Price:              148,
		EMA50:              152,
		EMA200:             140,
		Risk:               regime.RiskOn,
		PremiumCapturedPct: 30,
		DTE:                5,
	}

	d := Evaluate(openCSP(), ctx)
	// 价格跌破 EMA50 时不建议展期，落到默认 HOLD。
	assert.Equal(t, ActionHold, d.Action)
	assert.Equal(t, []string{ReasonDefaultHold}, d.ReasonCodes)
}

func TestEvaluate_TrendAlert(t *testing.T) {
	ctx := Context{
		Price:              145,
		EMA50:              152,
		EMA200:             150,
		Risk:               regime.RiskOff,
		PremiumCapturedPct: 30,
		DTE:                20,
	}

	d := Evaluate(openCSP(), ctx)
	assert.Equal(t, ActionAlert, d.Action)
	assert.Equal(t, []string{ReasonBelowEMA200, ReasonRegimeRiskOff}, d.ReasonCodes)
	assert.Equal(t, UrgencyHigh, d.Urgency)
}

func TestEvaluate_DefaultHold(t *testing.T) {
	ctx := Context{
		Price:              155,
		EMA50:              152,
		EMA200:             150,
		Risk:               regime.RiskOn,
		PremiumCapturedPct: 30,
		DTE:                20,
	}

	d := Evaluate(openCSP(), ctx)
	assert.Equal(t, ActionHold, d.Action)
	assert.Equal(t, []string{ReasonDefaultHold}, d.ReasonCodes)
	assert.NotEmpty(t, d.AllowedNextStates)
}

func TestBuildRollPlan_Defensive(t *testing.T) {
	t.Run("CSPBelowStrike", func(t *testing.T) {
		pos := openCSP()
		plan := BuildRollPlan(pos, Context{Price: 140, AsOf: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)})
		assert.Equal(t, RollDefensive, plan.Type)
		// 140×0.97=135.8 → 最近 $0.50 刻度 136.0
		assert.Equal(t, 136.0, plan.NewStrike)
	})

	t.Run("CCAboveStrike", func(t *testing.T) {
		pos := openCSP()
		pos.Strategy = position.StrategyCC
		plan := BuildRollPlan(pos, Context{Price: 160, AsOf: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)})
		assert.Equal(t, RollDefensive, plan.Type)
		// 160×1.03=164.8 → 165.0
		assert.Equal(t, 165.0, plan.NewStrike)
	})

	t.Run("TargetDTEWithinWindow", func(t *testing.T) {
		plan := BuildRollPlan(openCSP(), Context{Price: 155})
		assert.GreaterOrEqual(t, plan.TargetDTE, 30)
		assert.LessOrEqual(t, plan.TargetDTE, 45)
		assert.False(t, plan.NewExpiry.IsZero())
	})
}

func TestRoundToHalf(t *testing.T) {
	assert.Equal(t, 135.5, roundToHalf(135.74))
	assert.Equal(t, 136.0, roundToHalf(135.76))
	assert.Equal(t, 150.0, roundToHalf(150))
	assert.Equal(t, 0.0, roundToHalf(-3))
}
