package mystore

import (
	"context"
	"os"
)

type ctxTransactionKey struct{}

// Store is the durable key-value storage that session-state, the cart-snapshot and
// checkout-state survive restarts in. Which driver backs it is an infra concern:
// a single runtime instance uses the in-memory driver, co-operating instances that
// must observe each other's writes share a redis.
type Store[T any] interface {
	RunInTransaction(c context.Context, f func(c context.Context) error) error
	Put(c context.Context, uid string, value T) error
	Get(c context.Context, uid string) (T, bool, error)
	Delete(c context.Context, uid string) error
	List(c context.Context) ([]T, error)
}

// New selects a driver based on the environment: REDIS_ADDR set means shared
// storage, otherwise everything stays within the process.
func New[T any](c context.Context, kind string) (Store[T], func(), error) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return newRedisStore[T](c, addr, kind)
	}

	return NewInMemoryStore[T](c)
}
