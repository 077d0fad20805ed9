package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hatch/internal/platform/metrics"
	"hatch/pkg/platform/circuit"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSendPostsEmbed(t *testing.T) {
	var got Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	c := New("logging", srv.URL, discard(), WithMetrics(m))

	err := c.Send(context.Background(), Single(Embed{
		Title:       "alice did a mod action",
		URL:         "https://hatch.lol/user?u=alice",
		Description: "banned 203.0.113.5",
	}))
	require.NoError(t, err)

	require.Len(t, got.Embeds, 1)
	assert.Equal(t, "alice did a mod action", got.Embeds[0].Title)
	assert.Equal(t, "https://hatch.lol/user?u=alice", got.Embeds[0].URL)
	assert.InDelta(t, 1, testutil.ToFloat64(m.WebhookSends.WithLabelValues("success")), 0)
}

func TestSendReportsHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New("logging", srv.URL, discard())
	err := c.Send(context.Background(), Message{Content: "hi"})
	assert.ErrorContains(t, err, "502")
}

func TestSendOpensCircuitAfterRepeatedFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	now := time.Unix(0, 0)
	breaker := circuit.New("reports",
		circuit.WithFailureThreshold(2),
		circuit.WithCooldown(time.Minute),
		circuit.WithClock(func() time.Time { return now }),
	)
	c := New("reports", srv.URL, discard(), WithBreaker(breaker))

	for range 2 {
		assert.Error(t, c.Send(context.Background(), Message{Content: "x"}))
	}
	assert.ErrorIs(t, c.Send(context.Background(), Message{Content: "x"}), ErrCircuitOpen)
	assert.EqualValues(t, 2, calls.Load())

	now = now.Add(2 * time.Minute)
	assert.Error(t, c.Send(context.Background(), Message{Content: "x"}))
	assert.EqualValues(t, 3, calls.Load(), "probe goes through after the cooldown")
}
