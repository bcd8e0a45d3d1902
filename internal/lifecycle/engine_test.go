package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wheelhouse/internal/position"
)

func pricePtr(v float64) *float64 { return &v }

func openCSP() position.Position {
	return position.Position{
		ID:        11,
		Symbol:    "AAPL",
		Strategy:  position.StrategyCSP,
		Strike:    150,
		State:     position.StateOpen,
		StopPrice: 140,
		Target1:   160,
		Target2:   170,
	}
}

func TestEvaluate_Priority(t *testing.T) {
	t.Run("DataFailureFirst", func(t *testing.T) {
		// 数据失效同时价格也触发了止损：数据失效优先。
		row := Row{Price: pricePtr(130), DataFailure: true, RegimeBlocked: true}
		ev := Evaluate(openCSP(), row)
		require.NotNil(t, ev)
		assert.Equal(t, ActionHold, ev.Action)
		assert.Equal(t, ReasonDataFailure, ev.Reason)
		assert.Equal(t, "HOLD — DATA UNRELIABLE", ev.Directive)
	})

	t.Run("RegimeBreakBeforeStop", func(t *testing.T) {
		row := Row{Price: pricePtr(130), RegimeBlocked: true}
		ev := Evaluate(openCSP(), row)
		require.NotNil(t, ev)
		assert.Equal(t, ActionAbort, ev.Action)
		assert.Equal(t, ReasonRegimeBreak, ev.Reason)
		assert.Equal(t, "CLOSE POSITION ASAP", ev.Directive)
	})

	t.Run("StopBeforeTargets", func(t *testing.T) {
		// 构造止损价高于两个目标的矛盾持仓：止损必须胜出。
		pos := openCSP()
		pos.StopPrice = 180
		row := Row{Price: pricePtr(185)}
		ev := Evaluate(pos, row)
		require.NotNil(t, ev)
		assert.Equal(t, ReasonStopLoss, ev.Reason)
		assert.Equal(t, "EXIT IMMEDIATELY", ev.Directive)
	})

	t.Run("Target2BeforeTarget1", func(t *testing.T) {
		row := Row{Price: pricePtr(175)}
		ev := Evaluate(openCSP(), row)
		require.NotNil(t, ev)
		assert.Equal(t, ActionExit, ev.Action)
		assert.Equal(t, ReasonTarget2, ev.Reason)
		assert.Equal(t, "EXIT ALL REMAINING", ev.Directive)
	})
}

func TestEvaluate_Target1ScaleOut(t *testing.T) {
	row := Row{Price: pricePtr(162)}
	ev := Evaluate(openCSP(), row)
	require.NotNil(t, ev)
	assert.Equal(t, ActionScaleOut, ev.Action)
	assert.Equal(t, ReasonTarget1, ev.Reason)
	assert.Equal(t, "EXIT 1 CONTRACT NOW", ev.Directive)
}

func TestEvaluate_PartialExit(t *testing.T) {
	t.Run("AwaitsTarget2", func(t *testing.T) {
		// 已分批离场且还有 target2：target1 不再重复发事件。
		pos := openCSP()
		pos.State = position.StatePartialExit
		ev := Evaluate(pos, Row{Price: pricePtr(162)})
		assert.Nil(t, ev)
	})

	t.Run("NoSecondTargetExitsAll", func(t *testing.T) {
		pos := openCSP()
		pos.State = position.StatePartialExit
		pos.Target2 = 0
		ev := Evaluate(pos, Row{Price: pricePtr(162)})
		require.NotNil(t, ev)
		assert.Equal(t, ActionExit, ev.Action)
		assert.Equal(t, ReasonTarget2, ev.Reason)
		assert.Equal(t, "EXIT ALL REMAINING", ev.Directive)
	})
}

func TestEvaluate_CCDirections(t *testing.T) {
	pos := openCSP()
	pos.Strategy = position.StrategyCC
	pos.StopPrice = 165 // CC 怕涨
	pos.Target1 = 145
	pos.Target2 = 138

	t.Run("StopOnRally", func(t *testing.T) {
		ev := Evaluate(pos, Row{Price: pricePtr(166)})
		require.NotNil(t, ev)
		assert.Equal(t, ReasonStopLoss, ev.Reason)
	})

	t.Run("TargetOnDecline", func(t *testing.T) {
		ev := Evaluate(pos, Row{Price: pricePtr(144)})
		require.NotNil(t, ev)
		assert.Equal(t, ReasonTarget1, ev.Reason)
	})
}

func TestEvaluate_QuietCases(t *testing.T) {
	t.Run("ClosedPositionIgnored", func(t *testing.T) {
		pos := openCSP()
		pos.State = position.StateClosed
		assert.Nil(t, Evaluate(pos, Row{Price: pricePtr(130), DataFailure: true}))
	})

	t.Run("NoLevelsNoEvents", func(t *testing.T) {
		pos := openCSP()
		pos.StopPrice = 0
		pos.Target1 = 0
		pos.Target2 = 0
		assert.Nil(t, Evaluate(pos, Row{Price: pricePtr(1)}))
	})

	t.Run("NoPriceNoLevelEvents", func(t *testing.T) {
		assert.Nil(t, Evaluate(openCSP(), Row{}))
	})

	t.Run("NothingTriggered", func(t *testing.T) {
		assert.Nil(t, Evaluate(openCSP(), Row{Price: pricePtr(150)}))
	})
}

func TestEvaluateRun(t *testing.T) {
	positions := []position.Position{
		openCSP(),
		{ID: 12, Symbol: "MSFT", Strategy: position.StrategyCSP, State: position.StateOpen, StopPrice: 300},
		{ID: 13, Symbol: "NVDA", Strategy: position.StrategyCSP, State: position.StateClosed, StopPrice: 100},
	}
	rows := map[string]Row{
		"AAPL": {Price: pricePtr(175)},
		// MSFT 本轮没有对应行：按数据缺失处理。
	}

	events := EvaluateRun(positions, rows)
	require.Len(t, events, 2)

	assert.Equal(t, int64(11), events[0].PositionID)
	assert.Equal(t, ReasonTarget2, events[0].Reason)

	assert.Equal(t, int64(12), events[1].PositionID)
	assert.Equal(t, ReasonDataFailure, events[1].Reason)
	assert.Equal(t, ActionHold, events[1].Action)
}
