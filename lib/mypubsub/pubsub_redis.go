package mypubsub

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type redisPubSub struct {
	client *redis.Client
}

func newRedisPubSub(c context.Context, addr string) (*redisPubSub, func(), error) {
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

	return &redisPubSub{
		client: client,
	}, cleanup, nil
}

func (p *redisPubSub) Publish(c context.Context, topic string, data string) error {
	err := p.client.Publish(c, topic, data).Err()
	if err != nil {
		return fmt.Errorf("error publishing on topic %s: %s", topic, err)
	}

	return nil
}

func (p *redisPubSub) Subscribe(c context.Context, topic string, onMessage func(data string)) (func(), error) {
	sub := p.client.Subscribe(c, topic)

	// Force the subscription to be established before we return
	_, err := sub.Receive(c)
	if err != nil {
		return nil, fmt.Errorf("error subscribing to topic %s: %s", topic, err)
	}

	go func() {
		for msg := range sub.Channel() {
			onMessage(msg.Payload)
		}
	}()

	cancel := func() {
		sub.Close()
	}

	return cancel, nil
}
