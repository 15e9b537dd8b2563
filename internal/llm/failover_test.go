package llm

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSelector(t *testing.T, models ...string) (*Selector, *Profiler, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	profiler := NewProfiler(rdb)
	return NewSelector(profiler, rdb, models), profiler, mr
}

func TestSelectorPinsFirstSelection(t *testing.T) {
	selector, _, mr := newTestSelector(t, "model-a", "model-b")
	ctx := context.Background()

	modelID, failover, err := selector.SelectForConversation(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "model-a", modelID)
	assert.Nil(t, failover)

	// The choice is pinned with a TTL so the next turn sounds the same.
	pinned, err := mr.Get("modelpin:conv-1")
	require.NoError(t, err)
	assert.Equal(t, "model-a", pinned)
	assert.Equal(t, pinTTL, mr.TTL("modelpin:conv-1"))
}

func TestSelectorReusesHealthyPin(t *testing.T) {
	selector, profiler, mr := newTestSelector(t, "model-a", "model-b")
	ctx := context.Background()

	// An earlier turn pinned the secondary model; while it stays healthy the
	// conversation must not drift back to the primary.
	_, err := profiler.GetProfile(ctx, "model-b")
	require.NoError(t, err)
	require.NoError(t, mr.Set("modelpin:conv-1", "model-b"))
	mr.SetTTL("modelpin:conv-1", 10*time.Minute)

	modelID, failover, err := selector.SelectForConversation(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "model-b", modelID)
	assert.Nil(t, failover)

	// Reuse refreshes the pin's TTL.
	assert.Equal(t, pinTTL, mr.TTL("modelpin:conv-1"))
}

func TestSelectorFailsOverFromUnhealthyPin(t *testing.T) {
	selector, profiler, mr := newTestSelector(t, "model-a", "model-b")
	ctx := context.Background()

	_, _, err := selector.SelectForConversation(ctx, "conv-1")
	require.NoError(t, err)

	profiler.UpdateOnFailure(ctx, "model-a")

	modelID, failover, err := selector.SelectForConversation(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "model-b", modelID)

	require.NotNil(t, failover)
	assert.Equal(t, "model-a", failover.OriginalModel)
	assert.Equal(t, "model-b", failover.NewModel)
	assert.NotEmpty(t, failover.Reason)

	// The conversation is re-pinned to the model that can serve it.
	pinned, err := mr.Get("modelpin:conv-1")
	require.NoError(t, err)
	assert.Equal(t, "model-b", pinned)
}

func TestSelectorFallsBackToPrimaryWhenAllUnhealthy(t *testing.T) {
	selector, profiler, _ := newTestSelector(t, "model-a", "model-b")
	ctx := context.Background()

	for _, modelID := range []string{"model-a", "model-b"} {
		_, err := profiler.GetProfile(ctx, modelID)
		require.NoError(t, err)
		profiler.UpdateOnFailure(ctx, modelID)
	}

	// A guess at a degraded primary beats refusing the turn.
	modelID, failover, err := selector.SelectForConversation(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "model-a", modelID)
	assert.Nil(t, failover)
}

func TestSelectorNoModelsConfigured(t *testing.T) {
	selector, _, _ := newTestSelector(t)

	_, _, err := selector.SelectForConversation(context.Background(), "conv-1")
	assert.Error(t, err)
}
