package redisx

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

func TestIdempotencyClaimLifecycle(t *testing.T) {
	ctx := context.Background()
	rdb, mr := newRedis(t)
	idem := &Idempotency{RDB: rdb}
	key := "idem:cart:assemble:u1:k1"

	id, claimed, err := idem.Claim(ctx, "u1", "k1")
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Empty(t, id)
	assert.Equal(t, TTLIdemPending, mr.TTL(key))

	id, claimed, err = idem.Claim(ctx, "u1", "k1")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Empty(t, id, "pending claim has no cart yet")

	require.NoError(t, idem.Complete(ctx, "u1", "k1", "cart-1"))
	assert.Equal(t, TTLIdempotency, mr.TTL(key))

	id, claimed, err = idem.Claim(ctx, "u1", "k1")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, "cart-1", id)

	_, claimed, err = idem.Claim(ctx, "u2", "k1")
	require.NoError(t, err)
	assert.True(t, claimed, "keys are scoped per user")
}

func TestIdempotencyReleaseAndExpiry(t *testing.T) {
	ctx := context.Background()
	rdb, mr := newRedis(t)
	idem := &Idempotency{RDB: rdb}

	_, claimed, err := idem.Claim(ctx, "u1", "k1")
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, idem.Release(ctx, "u1", "k1"))
	_, claimed, err = idem.Claim(ctx, "u1", "k1")
	require.NoError(t, err)
	assert.True(t, claimed)

	mr.FastForward(TTLIdemPending + time.Second)
	_, claimed, err = idem.Claim(ctx, "u1", "k1")
	require.NoError(t, err)
	assert.True(t, claimed, "abandoned claim expires")
}

func TestIdempotencyConcurrentClaims(t *testing.T) {
	rdb, _ := newRedis(t)
	idem := &Idempotency{RDB: rdb}

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		won int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, claimed, err := idem.Claim(context.Background(), "u1", "k1")
			if err == nil && claimed {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, won)
}

func TestDedupMarksOnce(t *testing.T) {
	ctx := context.Background()
	rdb, mr := newRedis(t)
	d := &Dedup{RDB: rdb, Service: "inventory"}

	seen, err := d.Seen(ctx, "e1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, d.Mark(ctx, "e1"))
	seen, err = d.Seen(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, seen)
	assert.Equal(t, TTLDedup, mr.TTL("dedup:inventory:e1"))

	first, err := MarkOnce(ctx, rdb, "inventory", "e1")
	require.NoError(t, err)
	assert.False(t, first)
}
