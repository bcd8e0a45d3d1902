package regime

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"wheelhouse/internal/analysis/indicator"
)

func TestClassify(t *testing.T) {
	t.Run("Up", func(t *testing.T) {
		snap := indicator.Snapshot{EMAFast: 110, EMAMid: 105, EMASlow: 100, EMAMidSlope: 0.3}
		assert.Equal(t, Up, Classify(snap))
	})

	t.Run("Down", func(t *testing.T) {
		snap := indicator.Snapshot{EMAFast: 90, EMAMid: 95, EMASlow: 100, EMAMidSlope: -0.3}
		assert.Equal(t, Down, Classify(snap))
	})

	t.Run("StackedButFlatSlope", func(t *testing.T) {
		snap := indicator.Snapshot{EMAFast: 110, EMAMid: 105, EMASlow: 100, EMAMidSlope: 0}
		assert.Equal(t, Sideways, Classify(snap))
	})

	t.Run("MixedOrdering", func(t *testing.T) {
		snap := indicator.Snapshot{EMAFast: 100, EMAMid: 105, EMASlow: 100, EMAMidSlope: 0.3}
		assert.Equal(t, Sideways, Classify(snap))
	})
}

func TestResolve(t *testing.T) {
	t.Run("Agreement", func(t *testing.T) {
		res := Resolve(Up, Up)
		assert.Equal(t, Up, res.Final)
		assert.False(t, res.Conflict)
	})

	t.Run("WeeklyUnknownCountsAsAgreement", func(t *testing.T) {
		res := Resolve(Down, Unknown)
		assert.Equal(t, Down, res.Final)
		assert.False(t, res.Conflict)
	})

	t.Run("ConflictForcesSideways", func(t *testing.T) {
		res := Resolve(Up, Down)
		assert.True(t, res.Conflict)
		assert.Equal(t, Sideways, res.Final)
		assert.Equal(t, Up, res.Daily)
		assert.Equal(t, Down, res.Weekly)
	})

	t.Run("SidewaysWeeklyAgainstUpDaily", func(t *testing.T) {
		res := Resolve(Up, Sideways)
		assert.True(t, res.Conflict)
		assert.Equal(t, Sideways, res.Final)
	})
}

func TestRiskOf(t *testing.T) {
	assert.Equal(t, RiskOff, RiskOf(Down))
	assert.Equal(t, RiskOn, RiskOf(Up))
	assert.Equal(t, RiskOn, RiskOf(Sideways))
	assert.Equal(t, RiskOn, RiskOf(Unknown))
}
