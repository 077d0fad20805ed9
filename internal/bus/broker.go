package bus

import (
	"context"
	"errors"
)

var (
	// ErrClosed is returned by a broker or subscription after Close.
	ErrClosed = errors.New("bus: closed")
	// ErrBufferFull means a subscriber queue had no room and the message was dropped.
	ErrBufferFull = errors.New("bus: subscriber buffer full")
)

// Broker moves opaque payloads between producers and channel subscribers.
// It never interprets a payload.
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}

// Subscription is owned by exactly one consumer loop.
type Subscription interface {
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}
