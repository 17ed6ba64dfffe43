package auth

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"time"
)

var (
	ErrTimeout          = errors.New("session lookup timed out")
	ErrTooManyPending   = errors.New("too many pending session lookups")
	ErrAlreadySubmitted = errors.New("session lookup already pending for client")
)

type Status int

const (
	InFlight Status = iota
	Ready
	Failed
)

func (s Status) String() string {
	switch s {
	case InFlight:
		return "in-flight"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Request is one outstanding session lookup, owned by the Poller.
type Request struct {
	ClientID uint32
	Username string

	deadline time.Time
	cancel   context.CancelFunc
	done     chan struct{}

	profile Profile
	err     error
}

// TryAdvance reports the lookup state without blocking.
func (r *Request) TryAdvance() Status {
	select {
	case <-r.done:
		if r.err != nil {
			return Failed
		}
		return Ready
	default:
		return InFlight
	}
}

// Result is a finished lookup handed back to the tick loop.
type Result struct {
	ClientID uint32
	Username string
	Profile  Profile
	Err      error
}

// Poller runs session lookups in the background and hands finished ones to
// a single consumer through PollOnce. Only the lookups themselves run on
// other goroutines; every Poller method must be called from the consumer.
type Poller struct {
	checker    SessionChecker
	timeout    time.Duration
	maxPending int

	pending map[uint32]*Request
	clock   func() time.Time
}

// NewPoller returns a Poller. maxPending <= 0 means unbounded.
func NewPoller(checker SessionChecker, timeout time.Duration, maxPending int) *Poller {
	return &Poller{
		checker:    checker,
		timeout:    timeout,
		maxPending: maxPending,
		pending:    make(map[uint32]*Request),
		clock:      time.Now,
	}
}

// Submit starts a lookup for clientID. It never blocks on the network.
func (p *Poller) Submit(clientID uint32, username, serverHash string) (*Request, error) {
	if _, ok := p.pending[clientID]; ok {
		return nil, ErrAlreadySubmitted
	}
	if p.maxPending > 0 && len(p.pending) >= p.maxPending {
		return nil, ErrTooManyPending
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	r := &Request{
		ClientID: clientID,
		Username: username,
		deadline: p.clock().Add(p.timeout),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	p.pending[clientID] = r

	go func() {
		defer close(r.done)
		r.profile, r.err = p.checker.HasJoined(ctx, username, serverHash)
	}()
	return r, nil
}

// PollOnce collects every lookup that finished or passed its deadline by now,
// ordered by client id. Lookups still in flight are left alone.
func (p *Poller) PollOnce(now time.Time) []Result {
	var results []Result
	for id, r := range p.pending {
		res := Result{ClientID: id, Username: r.Username}

		switch r.TryAdvance() {
		case InFlight:
			if now.Before(r.deadline) {
				continue
			}
			res.Err = ErrTimeout
		default:
			res.Profile, res.Err = r.profile, r.err
			if errors.Is(res.Err, context.DeadlineExceeded) {
				res.Err = ErrTimeout
			}
		}

		r.cancel()
		delete(p.pending, id)
		results = append(results, res)
	}

	slices.SortFunc(results, func(a, b Result) int {
		return cmp.Compare(a.ClientID, b.ClientID)
	})
	return results
}

// Discard drops the lookup for clientID without reporting it.
func (p *Poller) Discard(clientID uint32) {
	if r, ok := p.pending[clientID]; ok {
		r.cancel()
		delete(p.pending, clientID)
	}
}

func (p *Poller) Pending() int {
	return len(p.pending)
}
