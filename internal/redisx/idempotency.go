package redisx

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// IdemPending marks a key whose assembly is still running.
const IdemPending = "pending"

// Idempotency remembers which cart a client key produced. A key is claimed
// before assembly so concurrent requests with the same key reserve stock
// at most once.
type Idempotency struct {
	RDB redis.Cmdable
}

func idemKey(userID, key string) string {
	return fmt.Sprintf(KeyIdemCartAssemble, userID, key)
}

// Claim takes (user, key) for a new assembly. When another request holds
// it, claimed is false and cartID is its stored cart, or "" while that
// assembly is still pending.
func (i *Idempotency) Claim(ctx context.Context, userID, key string) (cartID string, claimed bool, err error) {
	k := idemKey(userID, key)
	ok, err := i.RDB.SetNX(ctx, k, IdemPending, TTLIdemPending).Result()
	if err != nil {
		return "", false, err
	}
	if ok {
		return "", true, nil
	}
	v, err := i.RDB.Get(ctx, k).Result()
	switch {
	case errors.Is(err, redis.Nil):
		// expired between SETNX and GET; the caller may retry
		return "", false, nil
	case err != nil:
		return "", false, err
	case v == IdemPending:
		return "", false, nil
	}
	return v, false, nil
}

// Complete records the cart produced under a claimed key.
func (i *Idempotency) Complete(ctx context.Context, userID, key, cartID string) error {
	return i.RDB.Set(ctx, idemKey(userID, key), cartID, TTLIdempotency).Err()
}

// Release drops a claim whose assembly failed, so the client can retry.
func (i *Idempotency) Release(ctx context.Context, userID, key string) error {
	return i.RDB.Del(ctx, idemKey(userID, key)).Err()
}
