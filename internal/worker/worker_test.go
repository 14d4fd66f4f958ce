package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"studiobook/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertDelayNear allows for the default jitter, which spreads each delay
// by up to 10% either side of the exponential base.
func assertDelayNear(t *testing.T, got, base time.Duration) {
	t.Helper()
	assert.GreaterOrEqual(t, got, time.Duration(float64(base)*0.89))
	assert.LessOrEqual(t, got, time.Duration(float64(base)*1.11))
}

func TestRetryPolicyNextDelay(t *testing.T) {
	policy := RetryPolicy{
		MaxRetries:    5,
		InitialDelay:  time.Second,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2,
	}

	assertDelayNear(t, policy.NextDelay(1), time.Second)
	assertDelayNear(t, policy.NextDelay(2), 2*time.Second)
	assertDelayNear(t, policy.NextDelay(3), 4*time.Second)
	assertDelayNear(t, policy.NextDelay(5), 10*time.Second) // clamped to MaxDelay
	assertDelayNear(t, policy.NextDelay(0), time.Second)    // attempt floor
}

func TestRetryPolicyDefaults(t *testing.T) {
	var policy RetryPolicy
	assertDelayNear(t, policy.NextDelay(1), 2*time.Second)
	assertDelayNear(t, policy.NextDelay(2), 4*time.Second)
}

func TestRetryPolicyJitterSpreadsDelays(t *testing.T) {
	policy := RetryPolicy{InitialDelay: time.Second, Jitter: 1}

	seen := make(map[time.Duration]bool)
	for i := 0; i < 32; i++ {
		seen[policy.NextDelay(1)] = true
	}
	assert.Greater(t, len(seen), 1, "full jitter must vary the delay")
}

type recordingNotifier struct {
	mu       sync.Mutex
	sent     []domain.Email
	failures int
}

func (n *recordingNotifier) Send(_ context.Context, email domain.Email) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failures > 0 {
		n.failures--
		return errors.New("smtp unavailable")
	}
	n.sent = append(n.sent, email)
	return nil
}

func (n *recordingNotifier) delivered() []domain.Email {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Email(nil), n.sent...)
}

func testEmail() domain.Email {
	return domain.Email{
		Kind: "booking_confirmation",
		To:   "ada@example.com",
	}
}

func TestMailWorkerDelivers(t *testing.T) {
	notifier := &recordingNotifier{}
	logger := zerolog.Nop()
	w := NewMailWorker(notifier, RetryPolicy{}, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	require.True(t, w.Enqueue(testEmail()))

	assert.Eventually(t, func() bool {
		return len(notifier.delivered()) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMailWorkerRetriesTransientFailure(t *testing.T) {
	notifier := &recordingNotifier{failures: 2}
	logger := zerolog.Nop()
	w := NewMailWorker(notifier, RetryPolicy{
		MaxRetries:    3,
		InitialDelay:  5 * time.Millisecond,
		MaxDelay:      10 * time.Millisecond,
		BackoffFactor: 2,
	}, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	require.True(t, w.Enqueue(testEmail()))

	assert.Eventually(t, func() bool {
		return len(notifier.delivered()) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMailWorkerQueueFullDrops(t *testing.T) {
	notifier := &recordingNotifier{}
	logger := zerolog.Nop()
	w := NewMailWorker(notifier, RetryPolicy{}, &logger)

	// Worker not started, so the buffered queue fills up.
	filled := 0
	for i := 0; i < cap(w.queue); i++ {
		if w.Enqueue(testEmail()) {
			filled++
		}
	}
	assert.Equal(t, cap(w.queue), filled)
	assert.False(t, w.Enqueue(testEmail()), "enqueue past capacity must not block")
}
