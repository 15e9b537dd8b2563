package llm

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimilabs/mimi/internal/api"
)

func newTestProfiler(t *testing.T) (*Profiler, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewProfiler(rdb), mr
}

func TestGetProfileCreatesDefault(t *testing.T) {
	profiler, _ := newTestProfiler(t)
	ctx := context.Background()

	profile, err := profiler.GetProfile(ctx, "model-a")
	require.NoError(t, err)
	assert.Equal(t, "model-a", profile.ModelID)
	assert.Equal(t, "online", profile.Status)
	assert.EqualValues(t, 2000, profile.AvgLatencyMS)
	assert.True(t, profile.Healthy())

	// Second read comes from the persisted hash, not another default.
	again, err := profiler.GetProfile(ctx, "model-a")
	require.NoError(t, err)
	assert.Equal(t, profile.AvgLatencyMS, again.AvgLatencyMS)
	assert.Equal(t, "online", again.Status)
}

func TestUpdateOnFailureDegradesModel(t *testing.T) {
	profiler, _ := newTestProfiler(t)
	ctx := context.Background()

	_, err := profiler.GetProfile(ctx, "model-a")
	require.NoError(t, err)

	profiler.UpdateOnFailure(ctx, "model-a")

	profile, err := profiler.GetProfile(ctx, "model-a")
	require.NoError(t, err)
	assert.Equal(t, "degraded", profile.Status)
	assert.False(t, profile.Healthy())
	assert.EqualValues(t, 1, profile.TotalFailures)
	assert.InDelta(t, 1.0, profile.ErrorRate, 0.0001)
}

func TestUpdateOnSuccessRestoresOnline(t *testing.T) {
	profiler, _ := newTestProfiler(t)
	ctx := context.Background()

	_, err := profiler.GetProfile(ctx, "model-a")
	require.NoError(t, err)
	profiler.UpdateOnFailure(ctx, "model-a")

	usage := api.Usage{PromptTokens: 120, CompletionTokens: 40, TotalTokens: 160}
	profiler.UpdateOnSuccess(ctx, "model-a", time.Second, usage)

	profile, err := profiler.GetProfile(ctx, "model-a")
	require.NoError(t, err)
	assert.Equal(t, "online", profile.Status)
	assert.EqualValues(t, 1, profile.TotalSuccesses)
	assert.EqualValues(t, 1, profile.TotalFailures)
	assert.EqualValues(t, 120, profile.TotalInputTokens)
	assert.EqualValues(t, 40, profile.TotalOutputTokens)
	assert.InDelta(t, 0.5, profile.ErrorRate, 0.0001)

	// EWMA with alpha 0.1 against the 2000ms default: 0.1*1000 + 0.9*2000.
	assert.EqualValues(t, 1900, profile.AvgLatencyMS)
}

func TestUpdateOnHealthCheck(t *testing.T) {
	profiler, _ := newTestProfiler(t)
	ctx := context.Background()

	t.Run("failed check takes the model offline", func(t *testing.T) {
		profiler.UpdateOnHealthCheck(ctx, "model-a", false)

		profile, err := profiler.GetProfile(ctx, "model-a")
		require.NoError(t, err)
		assert.Equal(t, "offline", profile.Status)
		assert.False(t, profile.Healthy())
		assert.False(t, profile.LastHealthCheck.IsZero())
	})

	t.Run("passing check brings it back", func(t *testing.T) {
		profiler.UpdateOnHealthCheck(ctx, "model-a", true)

		profile, err := profiler.GetProfile(ctx, "model-a")
		require.NoError(t, err)
		assert.Equal(t, "online", profile.Status)
		assert.True(t, profile.Healthy())
	})
}
