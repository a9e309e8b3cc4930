package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newTestRemoteTier(t *testing.T) (*RemoteTier, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := NewDefaultRemoteConfig()
	cfg.CompressionThresholdBytes = 8
	return NewRemoteTier(cfg, client, nil, nil), mr
}

func TestRemoteTierSetGetRoundTrip(t *testing.T) {
	defer goleak.VerifyNone(t)
	r, _ := newTestRemoteTier(t)
	ctx := context.Background()

	ok := r.Set(ctx, "a", "a-very-long-value-that-compresses-well", time.Minute, []string{"search"})
	require.True(t, ok)

	v, ok := r.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, "a-very-long-value-that-compresses-well", v)
}

func TestRemoteTierTTLExpiry(t *testing.T) {
	defer goleak.VerifyNone(t)
	r, mr := newTestRemoteTier(t)
	ctx := context.Background()

	r.Set(ctx, "a", "v", 10*time.Millisecond, nil)
	mr.FastForward(20 * time.Millisecond)

	_, ok := r.Get(ctx, "a")
	assert.False(t, ok)
}

func TestRemoteTierInvalidateByTag(t *testing.T) {
	defer goleak.VerifyNone(t)
	r, _ := newTestRemoteTier(t)
	ctx := context.Background()

	r.Set(ctx, "q1", "R1", time.Minute, []string{"search"})
	r.Set(ctx, "q2", "R2", time.Minute, []string{"search"})

	count := r.InvalidateByTag(ctx, "search")
	assert.Equal(t, 2, count)

	_, ok := r.Get(ctx, "q1")
	assert.False(t, ok)
}

func TestRemoteTierMissOnUnreachableBackend(t *testing.T) {
	defer goleak.VerifyNone(t)
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	r := NewRemoteTier(NewDefaultRemoteConfig(), client, nil, nil)

	mr.Close() // simulate the backend going away
	_ = client.Close()

	_, ok := r.Get(context.Background(), "anything")
	assert.False(t, ok)
}
