// Package ratelimit wraps venue operations with per-venue retry state and
// exponential backoff, and provides a batched multi-venue execution mode that
// staggers venue groups to avoid tripping several venues' limits at once.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"arbscan/internal/application/port"
)

// Terminal error classes. Waiting cannot fix any of these, so they are never
// retried.
var (
	ErrAuthFailed        = errors.New("authentication failed")
	ErrInvalidSymbol     = errors.New("invalid symbol")
	ErrMethodUnsupported = errors.New("method not supported")
)

// nonRetryableFragments catches venue errors that only surface as message
// text rather than a typed sentinel.
var nonRetryableFragments = []string{
	"authentication",
	"permission denied",
	"api key",
	"forbidden",
	"invalid symbol",
	"market not found",
	"unknown symbol",
	"not supported",
	"unsupported",
}

// MaxRetriesError reports an exhausted retry budget for one venue, carrying
// the last underlying cause.
type MaxRetriesError struct {
	Venue   string
	Retries int
	Last    error
}

func (e *MaxRetriesError) Error() string {
	return fmt.Sprintf("venue %s: max retries (%d) exceeded: %v", e.Venue, e.Retries, e.Last)
}

func (e *MaxRetriesError) Unwrap() error { return e.Last }

// RetryState tracks one venue's failure history. Created lazily, reset to
// zero on any success.
type RetryState struct {
	Venue             string
	RetryCount        int
	LastErrorAt       time.Time
	LastSuccessAt     time.Time
	ConsecutiveErrors int
}

// Config tunes the limiter. Zero values fall back to the defaults below.
type Config struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Jitter     time.Duration
	MaxRetries int

	// GroupStagger is the pause between venue groups in a batch. With
	// GroupConcurrency 1 it is a guaranteed gap after the previous group
	// settles; with higher concurrency it spaces group starts instead.
	GroupStagger     time.Duration
	GroupConcurrency int // venue groups processed at once; 1 serializes
}

func (c Config) withDefaults() Config {
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 60 * time.Second
	}
	if c.Jitter < 0 {
		c.Jitter = 0
	} else if c.Jitter == 0 {
		c.Jitter = time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	if c.GroupStagger <= 0 {
		c.GroupStagger = 100 * time.Millisecond
	}
	if c.GroupConcurrency <= 0 {
		c.GroupConcurrency = 1
	}
	return c
}

// Limiter owns the per-venue retry state map. It is the only mutator of that
// state; callers never touch retry counters directly.
type Limiter struct {
	mu     sync.Mutex
	states map[string]*RetryState
	cfg    Config
}

// New builds a limiter with the given config (zero fields take defaults).
func New(cfg Config) *Limiter {
	return &Limiter{
		states: make(map[string]*RetryState),
		cfg:    cfg.withDefaults(),
	}
}

func (l *Limiter) state(venue string) *RetryState {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.states[venue]
	if !ok {
		st = &RetryState{Venue: venue}
		l.states[venue] = st
	}
	return st
}

// State returns a snapshot of one venue's retry state, for observability.
// The copy is taken under the limiter's lock so it never observes a
// half-updated state from a concurrent Execute.
func (l *Limiter) State(venue string) RetryState {
	st := l.state(venue)
	l.mu.Lock()
	defer l.mu.Unlock()
	return *st
}

// delay computes the backoff before attempt retryCount (1-based), capped at
// MaxDelay, with random jitter so synchronized callers don't retry in
// lockstep.
func (l *Limiter) delay(retryCount int) time.Duration {
	d := l.cfg.BaseDelay << (retryCount - 1)
	if l.cfg.Jitter > 0 {
		d += time.Duration(rand.Int63n(int64(l.cfg.Jitter)))
	}
	if d > l.cfg.MaxDelay {
		d = l.cfg.MaxDelay
	}
	return d
}

// Execute runs op under venue's retry budget. Transient failures back off
// and retry up to MaxRetries; terminal failures propagate immediately. The
// retry sequence for one venue runs strictly in order, never concurrently
// with itself.
func (l *Limiter) Execute(ctx context.Context, venue string, op port.Operation) (any, error) {
	st := l.state(venue)

	for {
		l.mu.Lock()
		retries := st.RetryCount
		l.mu.Unlock()

		if retries > 0 {
			if err := sleepCtx(ctx, l.delay(retries)); err != nil {
				return nil, err
			}
		}

		result, err := op(ctx)
		if err == nil {
			l.mu.Lock()
			st.RetryCount = 0
			st.ConsecutiveErrors = 0
			st.LastSuccessAt = time.Now()
			l.mu.Unlock()
			return result, nil
		}

		l.mu.Lock()
		st.RetryCount++
		st.ConsecutiveErrors++
		st.LastErrorAt = time.Now()
		retries = st.RetryCount
		l.mu.Unlock()

		if retries > l.cfg.MaxRetries {
			l.reset(st)
			return nil, &MaxRetriesError{Venue: venue, Retries: l.cfg.MaxRetries, Last: err}
		}

		if !Retryable(err) {
			l.reset(st)
			return nil, err
		}
	}
}

func (l *Limiter) reset(st *RetryState) {
	l.mu.Lock()
	st.RetryCount = 0
	l.mu.Unlock()
}

// Retryable reports whether waiting and retrying can plausibly fix err.
// Cancellation, auth/permission failures, unknown symbols and unsupported
// methods cannot be fixed by waiting.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrAuthFailed) || errors.Is(err, ErrInvalidSymbol) || errors.Is(err, ErrMethodUnsupported) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, frag := range nonRetryableFragments {
		if strings.Contains(msg, frag) {
			return false
		}
	}
	return true
}

type indexedRequest struct {
	idx int
	req port.BatchRequest
}

// ExecuteBatch groups requests by venue and walks the groups with a stagger
// between them, so a multi-venue fan-out does not burst every venue at once.
// Within a group, operations run through Execute in order. Every request
// settles into its own result; the batch itself never fails.
// GroupConcurrency > 1 relaxes the serialization across venues.
func (l *Limiter) ExecuteBatch(ctx context.Context, reqs []port.BatchRequest) []port.BatchResult {
	results := make([]port.BatchResult, len(reqs))

	groups := make(map[string][]indexedRequest)
	var order []string
	for i, req := range reqs {
		if _, seen := groups[req.Venue]; !seen {
			order = append(order, req.Venue)
		}
		groups[req.Venue] = append(groups[req.Venue], indexedRequest{idx: i, req: req})
	}

	if l.cfg.GroupConcurrency <= 1 {
		// Serialized: each stagger starts only after the previous group has
		// fully settled, so the gap between venues is guaranteed.
		for gi, venue := range order {
			if gi > 0 {
				if err := sleepCtx(ctx, l.cfg.GroupStagger); err != nil {
					for _, venue := range order[gi:] {
						l.settleGroup(groups[venue], results, err)
					}
					break
				}
			}
			l.runGroup(ctx, groups[venue], results)
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(l.cfg.GroupConcurrency)

	for gi, venue := range order {
		if gi > 0 {
			if err := sleepCtx(ctx, l.cfg.GroupStagger); err != nil {
				// Settle everything not yet started as cancelled.
				for _, venue := range order[gi:] {
					l.settleGroup(groups[venue], results, err)
				}
				break
			}
		}

		group := groups[venue]
		g.Go(func() error {
			l.runGroup(ctx, group, results)
			return nil
		})
	}

	_ = g.Wait()
	return results
}

func (l *Limiter) runGroup(ctx context.Context, group []indexedRequest, results []port.BatchResult) {
	for _, item := range group {
		value, err := l.Execute(ctx, item.req.Venue, item.req.Op)
		results[item.idx] = port.BatchResult{
			Venue:   item.req.Venue,
			Success: err == nil,
			Value:   value,
			Err:     err,
		}
	}
}

func (l *Limiter) settleGroup(group []indexedRequest, results []port.BatchResult, err error) {
	for _, item := range group {
		results[item.idx] = port.BatchResult{Venue: item.req.Venue, Err: err}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
