package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedChecker blocks every lookup until release is closed.
type gatedChecker struct {
	release chan struct{}

	mu    sync.Mutex
	calls []string
}

func newGatedChecker() *gatedChecker {
	return &gatedChecker{release: make(chan struct{})}
}

func (g *gatedChecker) HasJoined(ctx context.Context, username, serverHash string) (Profile, error) {
	g.mu.Lock()
	g.calls = append(g.calls, username+"/"+serverHash)
	g.mu.Unlock()

	select {
	case <-g.release:
	case <-ctx.Done():
		return Profile{}, ctx.Err()
	}
	if username == "nobody" {
		return Profile{}, ErrNotJoined
	}
	return Profile{ID: "069a79f444e94726a5befca90e38aaf5", Name: username}, nil
}

// waitDone blocks until the lookup goroutine finishes.
func waitDone(t *testing.T, r *Request) {
	t.Helper()
	require.Eventually(t, func() bool { return r.TryAdvance() != InFlight }, time.Second, time.Millisecond)
}

// TestPollOnceDoesNotBlock verifies that polling while a lookup is stuck
// returns immediately and leaves the lookup pending.
func TestPollOnceDoesNotBlock(t *testing.T) {
	g := newGatedChecker()
	p := NewPoller(g, time.Minute, 0)

	r, err := p.Submit(1, "Notch", "hash")
	require.NoError(t, err)
	assert.Equal(t, InFlight, r.TryAdvance())

	start := time.Now()
	for i := 0; i < 100; i++ {
		assert.Empty(t, p.PollOnce(time.Now()))
	}
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, 1, p.Pending())

	close(g.release)
	waitDone(t, r)
	assert.Equal(t, Ready, r.TryAdvance())

	results := p.PollOnce(time.Now())
	require.Len(t, results, 1)
	assert.Equal(t, uint32(1), results[0].ClientID)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, "Notch", results[0].Profile.Name)
	assert.Zero(t, p.Pending())
}

func TestPollOnceFailure(t *testing.T) {
	g := newGatedChecker()
	close(g.release)
	p := NewPoller(g, time.Minute, 0)

	r, err := p.Submit(3, "nobody", "hash")
	require.NoError(t, err)
	waitDone(t, r)
	assert.Equal(t, Failed, r.TryAdvance())

	results := p.PollOnce(time.Now())
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, ErrNotJoined)
}

// TestPollOnceDeadline verifies that a lookup still in flight past its
// deadline is reported as a timeout and its context is cancelled.
func TestPollOnceDeadline(t *testing.T) {
	g := newGatedChecker()
	p := NewPoller(g, time.Minute, 0)

	r, err := p.Submit(7, "Notch", "hash")
	require.NoError(t, err)

	assert.Empty(t, p.PollOnce(time.Now().Add(59*time.Second)))

	results := p.PollOnce(time.Now().Add(61 * time.Second))
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, ErrTimeout)
	assert.Zero(t, p.Pending())

	waitDone(t, r)
	assert.True(t, errors.Is(r.err, context.Canceled))
}

func TestSubmitLimits(t *testing.T) {
	g := newGatedChecker()
	defer close(g.release)
	p := NewPoller(g, time.Minute, 2)

	_, err := p.Submit(1, "a", "h")
	require.NoError(t, err)
	_, err = p.Submit(1, "a", "h")
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	_, err = p.Submit(2, "b", "h")
	require.NoError(t, err)
	_, err = p.Submit(3, "c", "h")
	assert.ErrorIs(t, err, ErrTooManyPending)

	p.Discard(1)
	assert.Equal(t, 1, p.Pending())
	_, err = p.Submit(3, "c", "h")
	assert.NoError(t, err)
}

// TestPollOnceOrder verifies that results come back sorted by client id.
func TestPollOnceOrder(t *testing.T) {
	g := newGatedChecker()
	close(g.release)
	p := NewPoller(g, time.Minute, 0)

	var reqs []*Request
	for _, id := range []uint32{9, 2, 5} {
		r, err := p.Submit(id, "Notch", "hash")
		require.NoError(t, err)
		reqs = append(reqs, r)
	}
	for _, r := range reqs {
		waitDone(t, r)
	}

	results := p.PollOnce(time.Now())
	require.Len(t, results, 3)
	assert.Equal(t, []uint32{2, 5, 9}, []uint32{results[0].ClientID, results[1].ClientID, results[2].ClientID})
}
