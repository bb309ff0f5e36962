package services

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Channel is the cross-process broadcast medium: one named pub/sub
// topic every server instance both publishes to and subscribes from.
type Channel interface {
	Publish(ctx context.Context, payload []byte) error
	Subscribe(ctx context.Context) (<-chan []byte, func(), error)
}

// RedisChannel carries envelopes over a Redis pub/sub topic. The
// subscriber side holds its own connection duplicated from the client.
type RedisChannel struct {
	client *redis.Client
	name   string
}

func NewRedisChannel(client *redis.Client, name string) *RedisChannel {
	return &RedisChannel{client: client, name: name}
}

func (c *RedisChannel) Publish(ctx context.Context, payload []byte) error {
	return c.client.Publish(ctx, c.name, payload).Err()
}

func (c *RedisChannel) Subscribe(ctx context.Context) (<-chan []byte, func(), error) {
	pubsub := c.client.Subscribe(ctx, c.name)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, err
	}

	out := make(chan []byte, 64)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			out <- []byte(msg.Payload)
		}
	}()
	return out, func() { pubsub.Close() }, nil
}

// LocalChannel is an in-process Channel for tests and single-instance
// deployments. FIFO per subscriber, drop-on-full like the live bus.
type LocalChannel struct {
	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

func NewLocalChannel() *LocalChannel {
	return &LocalChannel{subs: make(map[chan []byte]struct{})}
}

func (c *LocalChannel) Publish(ctx context.Context, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for ch := range c.subs {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

func (c *LocalChannel) Subscribe(ctx context.Context) (<-chan []byte, func(), error) {
	ch := make(chan []byte, 64)
	c.mu.Lock()
	c.subs[ch] = struct{}{}
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		if _, ok := c.subs[ch]; ok {
			delete(c.subs, ch)
			close(ch)
		}
		c.mu.Unlock()
	}
	return ch, cancel, nil
}
