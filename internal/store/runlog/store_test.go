package runlog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_AppendAndRecent(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Append(ctx, RunRecord{
		RunID: "run-1", StartedAt: 1000, FinishedAt: 1500, DurationMillis: 500,
		MarketStatus: "OPEN", SymbolsTotal: 3, EligibleCount: 1, HoldCount: 2,
	}))
	require.NoError(t, store.Append(ctx, RunRecord{
		RunID: "run-2", StartedAt: 2000, FinishedAt: 2400, DurationMillis: 400,
		MarketStatus: "CLOSED", SymbolsTotal: 3, AlertsSent: 2, AlertsSuppressed: 1,
		LifecycleEvents: 1,
	}))

	recent, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	// 按开始时间倒序。
	assert.Equal(t, "run-2", recent[0].RunID)
	assert.Equal(t, 2, recent[0].AlertsSent)
	assert.Equal(t, 1, recent[0].AlertsSuppressed)
	assert.Equal(t, "run-1", recent[1].RunID)
	assert.Equal(t, 1, recent[1].EligibleCount)
}

func TestStore_AppendOverwritesSameRun(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Append(ctx, RunRecord{RunID: "run-1", StartedAt: 1000, FinishedAt: 1100}))
	require.NoError(t, store.Append(ctx, RunRecord{RunID: "run-1", StartedAt: 1000, FinishedAt: 1800, EligibleCount: 2}))

	recent, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, int64(1800), recent[0].FinishedAt)
	assert.Equal(t, 2, recent[0].EligibleCount)
}

func TestStore_RecentLimit(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, RunRecord{
			RunID:     string(rune('a' + i)),
			StartedAt: int64(1000 + i),
		}))
	}
	recent, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestNewStore_EmptyPath(t *testing.T) {
	_, err := NewStore("  ")
	assert.Error(t, err)
}

func TestStore_ClosedErrors(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	assert.Error(t, store.Append(context.Background(), RunRecord{RunID: "x"}))
	_, err = store.Recent(context.Background(), 1)
	assert.Error(t, err)
}
