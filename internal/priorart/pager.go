package priorart

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// pager yields the 1-based start offsets for one query's page requests.
// Successive offsets are gated by a token bucket so pages of the same query
// are spaced by at least the configured delay.
type pager struct {
	limiter  *rate.Limiter
	next     int
	step     int
	last     int
	finished bool
}

func newPager(wanted, pageSize, maxOffset int, delay time.Duration) *pager {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &pager{
		limiter: rate.NewLimiter(limit, 1),
		next:    1,
		step:    pageSize,
		last:    min(wanted, maxOffset),
	}
}

// Next blocks until the next page may be requested and returns its offset.
// It returns false once the window is exhausted, Stop was called, or ctx
// was cancelled while waiting.
func (p *pager) Next(ctx context.Context) (int, bool, error) {
	if p.finished || p.next > p.last {
		return 0, false, nil
	}
	if err := p.limiter.Wait(ctx); err != nil {
		p.finished = true
		return 0, false, err
	}
	start := p.next
	p.next += p.step
	return start, true, nil
}

func (p *pager) Stop() { p.finished = true }
