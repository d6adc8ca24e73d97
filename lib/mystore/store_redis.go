package mystore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

type redisStore[T any] struct {
	mutex  sync.Mutex
	client *redis.Client
	prefix string
}

func newRedisStore[T any](c context.Context, addr string, kind string) (*redisStore[T], func(), error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	err := client.Ping(c).Err()
	if err != nil {
		return nil, func() {}, fmt.Errorf("error connecting to redis on %s: %s", addr, err)
	}

	cleanup := func() {
		client.Close()
	}

	return &redisStore[T]{
		client: client,
		prefix: kind,
	}, cleanup, nil
}

func (s *redisStore[T]) key(uid string) string {
	return fmt.Sprintf("%s:%s", s.prefix, uid)
}

// RunInTransaction only serializes writers within this process: cross-instance
// contention on the cart is resolved last-writer-wins, which is acceptable for
// a low-contention shopping cart.
func (s *redisStore[T]) RunInTransaction(c context.Context, f func(c context.Context) error) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	ctx := context.WithValue(c, ctxTransactionKey{}, true)

	return f(ctx)
}

func (s *redisStore[T]) Put(c context.Context, uid string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("error marshalling %s: %s", s.key(uid), err)
	}

	err = s.client.Set(c, s.key(uid), data, 0).Err()
	if err != nil {
		return fmt.Errorf("error storing %s: %s", s.key(uid), err)
	}

	return nil
}

func (s *redisStore[T]) Get(c context.Context, uid string) (T, bool, error) {
	var result T

	data, err := s.client.Get(c, s.key(uid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return result, false, nil
	}
	if err != nil {
		return result, false, fmt.Errorf("error fetching %s: %s", s.key(uid), err)
	}

	err = json.Unmarshal(data, &result)
	if err != nil {
		return result, false, fmt.Errorf("error unmarshalling %s: %s", s.key(uid), err)
	}

	return result, true, nil
}

func (s *redisStore[T]) Delete(c context.Context, uid string) error {
	err := s.client.Del(c, s.key(uid)).Err()
	if err != nil {
		return fmt.Errorf("error deleting %s: %s", s.key(uid), err)
	}

	return nil
}

func (s *redisStore[T]) List(c context.Context) ([]T, error) {
	keys, err := s.client.Keys(c, s.prefix+":*").Result()
	if err != nil {
		return nil, fmt.Errorf("error listing keys with prefix %s: %s", s.prefix, err)
	}

	result := make([]T, 0, len(keys))
	for _, key := range keys {
		data, err := s.client.Get(c, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("error fetching %s: %s", key, err)
		}

		var value T
		err = json.Unmarshal(data, &value)
		if err != nil {
			return nil, fmt.Errorf("error unmarshalling %s: %s", key, err)
		}

		result = append(result, value)
	}

	return result, nil
}
