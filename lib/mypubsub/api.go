package mypubsub

import (
	"context"
	"os"
)

// PubSub is the change-notification channel between runtime instances: the
// equivalent of one browser tab observing another tab's write to shared storage.
// Subscribers react by re-reading authoritative state, never by merging deltas.
type PubSub interface {
	Publisher
	Subscriber
}

type Publisher interface {
	Publish(c context.Context, topic string, data string) error
}

type Subscriber interface {
	// Subscribe registers onMessage for the topic and returns a cancel function
	// that must be called on teardown.
	Subscribe(c context.Context, topic string, onMessage func(data string)) (func(), error)
}

func New(c context.Context) (PubSub, func(), error) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return newRedisPubSub(c, addr)
	}

	return NewInProcessPubSub(), func() {}, nil
}
