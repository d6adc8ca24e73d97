package mypubsub

import (
	"context"
	"sync"
)

type inProcessPubSub struct {
	mutex       sync.Mutex
	subscribers map[string]map[int]func(data string)
	nextUID     int
}

func NewInProcessPubSub() *inProcessPubSub {
	return &inProcessPubSub{
		subscribers: make(map[string]map[int]func(data string)),
	}
}

func (p *inProcessPubSub) Publish(c context.Context, topic string, data string) error {
	p.mutex.Lock()
	handlers := make([]func(data string), 0, len(p.subscribers[topic]))
	for _, h := range p.subscribers[topic] {
		handlers = append(handlers, h)
	}
	p.mutex.Unlock()

	// Deliver outside the lock and outside the publisher's call stack, so a
	// handler that re-reads a store involved in the triggering mutation cannot
	// deadlock.
	for _, h := range handlers {
		go h(data)
	}

	return nil
}

func (p *inProcessPubSub) Subscribe(c context.Context, topic string, onMessage func(data string)) (func(), error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.subscribers[topic] == nil {
		p.subscribers[topic] = make(map[int]func(data string))
	}

	uid := p.nextUID
	p.nextUID++
	p.subscribers[topic][uid] = onMessage

	cancel := func() {
		p.mutex.Lock()
		defer p.mutex.Unlock()
		delete(p.subscribers[topic], uid)
	}

	return cancel, nil
}
