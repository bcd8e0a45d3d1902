package position

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition_HappyPath(t *testing.T) {
	steps := []struct {
		action Action
		want   State
	}{
		{ActionAssign, StateAssigned},
		{ActionOpen, StateOpen},
		{ActionRoll, StateRolling},
		{ActionOpen, StateOpen},
		{ActionClose, StateClosing},
		{ActionClose, StateClosed},
	}

	state := StateNew
	for _, s := range steps {
		next, err := Transition("AAPL", state, s.action, "run-1")
		require.NoError(t, err)
		assert.Equal(t, s.want, next)
		state = next
	}
}

func TestTransition_HoldIsIdempotent(t *testing.T) {
	state := StateOpen
	for i := 0; i < 10; i++ {
		next, err := Transition("AAPL", state, ActionHold, "")
		require.NoError(t, err)
		assert.Equal(t, StateOpen, next)
		state = next
	}
}

func TestTransition_Invalid(t *testing.T) {
	cases := []struct {
		from   State
		action Action
	}{
		{StateNew, ActionOpen},     // NEW 必须先 ASSIGN
		{StateOpen, ActionAssign},  // 不能回头
		{StateOpen, ActionOpen},    // OPEN 没有 OPEN 出边
		{StateClosed, ActionHold},  // 终态无出边
		{StateClosed, ActionClose}, // 终态无出边
		{StateRolling, ActionClose},
	}
	for _, c := range cases {
		next, err := Transition("AAPL", c.from, c.action, "corr-7")
		require.Error(t, err)
		// 失败时状态保持不变。
		assert.Equal(t, c.from, next)

		var ite *InvalidTransitionError
		require.ErrorAs(t, err, &ite)
		assert.Equal(t, c.from, ite.From)
		assert.Equal(t, c.action, ite.Action)
		assert.Contains(t, err.Error(), "corr-7")
	}
}

func TestAllowedActions(t *testing.T) {
	// 字典序，保证审计输出可重现。
	assert.Equal(t, []Action{ActionClose, ActionHold, ActionRoll}, AllowedActions(StateOpen))
	assert.Equal(t, []Action{ActionAssign}, AllowedActions(StateNew))
	assert.Empty(t, AllowedActions(StateClosed))
	// PARTIAL_EXIT 不在正式转移表中。
	assert.Empty(t, AllowedActions(StatePartialExit))
}

func TestAllowedNextStates(t *testing.T) {
	assert.Equal(t, []State{StateClosing, StateOpen, StateRolling}, AllowedNextStates(StateOpen))
	assert.Empty(t, AllowedNextStates(StateClosed))
}

func TestIsOpenForLifecycle(t *testing.T) {
	assert.True(t, Position{State: StateOpen}.IsOpenForLifecycle())
	assert.True(t, Position{State: StatePartialExit}.IsOpenForLifecycle())
	assert.False(t, Position{State: StateClosed}.IsOpenForLifecycle())
	assert.False(t, Position{State: StateNew}.IsOpenForLifecycle())
}
