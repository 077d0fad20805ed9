package bus

import (
	"context"
	"sync"
)

const defaultMemoryBuffer = 256

// MemoryBroker is an in-process broker. Each subscriber gets a bounded queue;
// publishing to a full queue drops the message for that subscriber, and
// publishing to a channel nobody subscribes to drops it entirely.
type MemoryBroker struct {
	mu     sync.RWMutex
	subs   map[string][]*memorySubscription
	buffer int
	closed bool
}

type MemoryOption func(*MemoryBroker)

// WithBuffer sets the per-subscriber queue length.
func WithBuffer(n int) MemoryOption {
	return func(b *MemoryBroker) {
		if n > 0 {
			b.buffer = n
		}
	}
}

func NewMemoryBroker(opts ...MemoryOption) *MemoryBroker {
	b := &MemoryBroker{
		subs:   make(map[string][]*memorySubscription),
		buffer: defaultMemoryBuffer,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *MemoryBroker) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	var err error
	for _, s := range b.subs[channel] {
		msg := append([]byte(nil), payload...)
		select {
		case s.queue <- msg:
		default:
			err = ErrBufferFull
		}
	}
	return err
}

func (b *MemoryBroker) Subscribe(_ context.Context, channel string) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}

	s := &memorySubscription{
		broker:  b,
		channel: channel,
		queue:   make(chan []byte, b.buffer),
		done:    make(chan struct{}),
	}
	b.subs[channel] = append(b.subs[channel], s)
	return s, nil
}

// Subscribers reports how many subscriptions are open on channel.
func (b *MemoryBroker) Subscribers(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[channel])
}

// Close ends every subscription. Further publishes fail with ErrClosed.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, subs := range b.subs {
		for _, s := range subs {
			s.stop()
		}
	}
	b.subs = nil
	return nil
}

func (b *MemoryBroker) remove(s *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[s.channel]
	for i, other := range subs {
		if other == s {
			b.subs[s.channel] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}

type memorySubscription struct {
	broker  *MemoryBroker
	channel string
	queue   chan []byte
	done    chan struct{}
	once    sync.Once
}

func (s *memorySubscription) Receive(ctx context.Context) ([]byte, error) {
	select {
	case msg := <-s.queue:
		return msg, nil
	case <-s.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *memorySubscription) Close() error {
	s.broker.remove(s)
	s.stop()
	return nil
}

func (s *memorySubscription) stop() {
	s.once.Do(func() { close(s.done) })
}
