package resourcelock

import "time"

const (
	pollBackoffStart      = 100 * time.Millisecond
	pollBackoffMax        = time.Second
	pollBackoffMin        = 50 * time.Millisecond
	pollBackoffMultiplier = 1.3
	pollBackoffJitter     = 25 * time.Millisecond
)

// pollBackoff paces the non-blocking flock retries. It grows geometrically
// up to pollBackoffMax; Next caps the returned sleep at limit when limit is
// positive so a deadline is never overslept.
type pollBackoff struct {
	next time.Duration
}

func newPollBackoff() *pollBackoff {
	return &pollBackoff{next: pollBackoffStart}
}

func (b *pollBackoff) Next(limit time.Duration) time.Duration {
	sleep := b.next
	if limit > 0 && sleep > limit {
		sleep = limit
	}
	b.next = time.Duration(float64(b.next)*pollBackoffMultiplier + float64(pollBackoffJitter))
	if b.next > pollBackoffMax {
		b.next = pollBackoffMax
	}
	if b.next < pollBackoffMin {
		b.next = pollBackoffMin
	}
	return sleep
}
