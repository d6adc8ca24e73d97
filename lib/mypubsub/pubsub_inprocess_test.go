package mypubsub

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInProcessPubSub(t *testing.T) {
	c := context.TODO()

	t.Run("Subscriber receives published message", func(t *testing.T) {
		ps := NewInProcessPubSub()

		received := make(chan string, 1)
		cancel, err := ps.Subscribe(c, "cart", func(data string) {
			received <- data
		})
		assert.NoError(t, err)
		defer cancel()

		err = ps.Publish(c, "cart", `{"snapshot":"changed"}`)
		assert.NoError(t, err)

		select {
		case got := <-received:
			assert.Equal(t, `{"snapshot":"changed"}`, got)
		case <-time.After(time.Second):
			t.Fatal("no message received")
		}
	})

	t.Run("Message on other topic is not delivered", func(t *testing.T) {
		ps := NewInProcessPubSub()

		var count int32
		cancel, err := ps.Subscribe(c, "cart", func(data string) {
			atomic.AddInt32(&count, 1)
		})
		assert.NoError(t, err)
		defer cancel()

		err = ps.Publish(c, "checkout", "ignored")
		assert.NoError(t, err)

		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, int32(0), atomic.LoadInt32(&count))
	})

	t.Run("Cancelled subscription no longer receives", func(t *testing.T) {
		ps := NewInProcessPubSub()

		var count int32
		cancel, err := ps.Subscribe(c, "cart", func(data string) {
			atomic.AddInt32(&count, 1)
		})
		assert.NoError(t, err)

		cancel()

		err = ps.Publish(c, "cart", "after cancel")
		assert.NoError(t, err)

		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, int32(0), atomic.LoadInt32(&count))
	})
}
