package bus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"hatch/internal/platform/metrics"
	"hatch/pkg/platform/tasks"
)

type sampleEvent struct {
	Culprit     int64  `msgpack:"culprit"`
	Category    uint8  `msgpack:"category"`
	Description string `msgpack:"description"`
}

type recorder struct {
	mu   sync.Mutex
	msgs []Message
}

func (r *recorder) Handle(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recorder) received() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.msgs...)
}

type failingBroker struct{}

func (failingBroker) Publish(context.Context, string, []byte) error {
	return errors.New("connection refused")
}

func (failingBroker) Subscribe(context.Context, string) (Subscription, error) {
	return nil, errors.New("connection refused")
}

type BusSuite struct {
	suite.Suite
	broker  *MemoryBroker
	group   *tasks.Group
	metrics *metrics.Metrics
	bus     *Bus
}

func TestBusSuite(t *testing.T) {
	suite.Run(t, new(BusSuite))
}

func (s *BusSuite) SetupTest() {
	s.broker = NewMemoryBroker()
	s.group = tasks.New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.metrics = metrics.NewWithRegistry(prometheus.NewRegistry())
	s.bus = New(s.broker, s.group, slog.New(slog.NewTextHandler(io.Discard, nil)), WithMetrics(s.metrics))
}

func (s *BusSuite) TearDownTest() {
	s.group.Wait()
	_ = s.broker.Close()
}

// run starts a consumer and waits until it is subscribed.
func (s *BusSuite) run(ctx context.Context, channel string, h Handler) <-chan error {
	done := make(chan error, 1)
	go func() { done <- s.bus.SubscribeAndRun(ctx, channel, h) }()
	s.Require().Eventually(func() bool {
		return s.broker.Subscribers(channel) == 1
	}, time.Second, 5*time.Millisecond)
	return done
}

func (s *BusSuite) TestPublishRoundTrip() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := &recorder{}
	done := s.run(ctx, ChannelAudits, rec)

	sent := sampleEvent{Culprit: 42, Category: 1, Description: "deleted a project"}
	s.Require().NoError(s.bus.Publish(ctx, ChannelAudits, sent))

	s.Require().Eventually(func() bool { return len(rec.received()) == 1 }, time.Second, 5*time.Millisecond)
	msg := rec.received()[0]
	s.Equal(ChannelAudits, msg.Channel)

	var got sampleEvent
	s.Require().NoError(Decode(msg.Payload, &got))
	s.Equal(sent, got)

	cancel()
	s.ErrorIs(<-done, context.Canceled)
	s.InDelta(1, testutil.ToFloat64(s.metrics.EventsPublished.WithLabelValues(ChannelAudits)), 0)
}

func (s *BusSuite) TestChannelsAreIndependent() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	audits, reports := &recorder{}, &recorder{}
	s.run(ctx, ChannelAudits, audits)
	s.run(ctx, ChannelReports, reports)

	s.Require().NoError(s.bus.Publish(ctx, ChannelReports, sampleEvent{Culprit: 1}))

	s.Require().Eventually(func() bool { return len(reports.received()) == 1 }, time.Second, 5*time.Millisecond)
	s.Empty(audits.received())
}

func (s *BusSuite) TestReceiptOrderIsPreserved() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := &recorder{}
	s.run(ctx, ChannelAudits, rec)

	for i := range 20 {
		s.Require().NoError(s.broker.Publish(ctx, ChannelAudits, []byte{byte(i)}))
	}

	s.Require().Eventually(func() bool { return len(rec.received()) == 20 }, time.Second, 5*time.Millisecond)
	for i, msg := range rec.received() {
		s.Equal([]byte{byte(i)}, msg.Payload)
	}
}

func (s *BusSuite) TestHandlerFailuresDropOnlyThatMessage() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var seen []byte
	h := HandlerFunc(func(_ context.Context, msg Message) error {
		mu.Lock()
		seen = append(seen, msg.Payload[0])
		mu.Unlock()
		switch msg.Payload[0] {
		case 1:
			return errors.New("webhook down")
		case 2:
			panic("bad payload")
		}
		return nil
	})
	s.run(ctx, ChannelReports, h)

	for _, b := range []byte{1, 2, 3} {
		s.Require().NoError(s.broker.Publish(ctx, ChannelReports, []byte{b}))
	}

	s.Require().Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3
	}, time.Second, 5*time.Millisecond)
	s.InDelta(1, testutil.ToFloat64(s.metrics.EventsDispatched.WithLabelValues(ChannelReports, "error")), 0)
	s.InDelta(1, testutil.ToFloat64(s.metrics.EventsDispatched.WithLabelValues(ChannelReports, "panic")), 0)
	s.InDelta(1, testutil.ToFloat64(s.metrics.EventsDispatched.WithLabelValues(ChannelReports, "ok")), 0)
}

func (s *BusSuite) TestPublishFailureIsDroppedNotReturned() {
	b := New(failingBroker{}, s.group, slog.New(slog.NewTextHandler(io.Discard, nil)), WithMetrics(s.metrics))

	s.NoError(b.Publish(context.Background(), ChannelAudits, sampleEvent{Culprit: 1}))
	s.group.Wait()

	s.InDelta(1, testutil.ToFloat64(s.metrics.EventsDropped.WithLabelValues(ChannelAudits)), 0)
}

func (s *BusSuite) TestEncodingFailureIsReturned() {
	err := s.bus.Publish(context.Background(), ChannelAudits, make(chan int))
	s.Error(err)
}

func (s *BusSuite) TestSubscribeFailure() {
	b := New(failingBroker{}, s.group, slog.New(slog.NewTextHandler(io.Discard, nil)))
	err := b.SubscribeAndRun(context.Background(), ChannelAudits, &recorder{})
	s.ErrorContains(err, "subscribe to audits")
}

func (s *BusSuite) TestBrokerLossEndsConsumer() {
	done := s.run(context.Background(), ChannelAudits, &recorder{})

	s.Require().NoError(s.broker.Close())

	select {
	case err := <-done:
		s.ErrorIs(err, ErrClosed)
	case <-time.After(time.Second):
		s.Fail("consumer did not stop")
	}
}

func TestMemoryBrokerDropsWhenFull(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBroker(WithBuffer(1))
	sub, err := b.Subscribe(ctx, ChannelAudits)
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, ChannelAudits, []byte("a")))
	assert.ErrorIs(t, b.Publish(ctx, ChannelAudits, []byte("b")), ErrBufferFull)

	got, err := sub.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), got)

	require.NoError(t, sub.Close())
	assert.Zero(t, b.Subscribers(ChannelAudits))
	assert.NoError(t, b.Publish(ctx, ChannelAudits, []byte("c")), "no subscriber is not an error")
}
