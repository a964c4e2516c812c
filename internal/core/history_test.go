package core

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRecorder_NewestFirst(t *testing.T) {
	rec := NewMemoryRecorder(3)
	ctx := context.Background()

	runs, err := rec.RecentRuns(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, runs)

	for i := 1; i <= 5; i++ {
		require.NoError(t, rec.RecordRun(ctx, Run{ID: fmt.Sprintf("run-%d", i)}))
	}

	runs, err = rec.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "run-5", runs[0].ID)
	assert.Equal(t, "run-4", runs[1].ID)
	assert.Equal(t, "run-3", runs[2].ID)

	runs, err = rec.RecentRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-5", runs[0].ID)
}

func TestMemoryRecorder_PartiallyFilled(t *testing.T) {
	rec := NewMemoryRecorder(0)
	ctx := context.Background()

	require.NoError(t, rec.RecordRun(ctx, Run{ID: "a"}))
	require.NoError(t, rec.RecordRun(ctx, Run{ID: "b"}))

	runs, err := rec.RecentRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "b", runs[0].ID)
	assert.Equal(t, "a", runs[1].ID)
}
