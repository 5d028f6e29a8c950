package portal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// LoginLimiter counts failed sign-ins per client IP. Once max failures
// fall inside window the IP is refused until the oldest one ages out or a
// sign-in succeeds.
type LoginLimiter struct {
	mu       sync.Mutex
	failures map[string][]time.Time
	max      int
	window   time.Duration
	now      func() time.Time
	done     chan struct{}
	stopOnce sync.Once
}

// NewLoginLimiter creates a LoginLimiter and starts its sweeper.
func NewLoginLimiter(max int, window time.Duration) *LoginLimiter {
	l := &LoginLimiter{
		failures: make(map[string][]time.Time),
		max:      max,
		window:   window,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	go l.sweep()
	return l
}

// recent drops failures of ip older than the window and returns the rest.
// Callers hold mu.
func (l *LoginLimiter) recent(ip string) []time.Time {
	cutoff := l.now().Add(-l.window)
	hits := l.failures[ip]
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	if i == len(hits) {
		delete(l.failures, ip)
		return nil
	}
	hits = hits[i:]
	l.failures[ip] = hits
	return hits
}

func (l *LoginLimiter) sweep() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.mu.Lock()
			for ip := range l.failures {
				l.recent(ip)
			}
			l.mu.Unlock()
		}
	}
}

// Stop ends the sweeper.
func (l *LoginLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

// Check reports whether ip may attempt a sign-in.
func (l *LoginLimiter) Check(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.recent(ip)) < l.max
}

// Record counts one failed sign-in for ip.
func (l *LoginLimiter) Record(ip string) {
	l.mu.Lock()
	l.failures[ip] = append(l.failures[ip], l.now())
	l.mu.Unlock()
}

// Reset forgets the failures of ip.
func (l *LoginLimiter) Reset(ip string) {
	l.mu.Lock()
	delete(l.failures, ip)
	l.mu.Unlock()
}

// FormLimiter throttles public form submissions per client key.
type FormLimiter struct {
	limiter *limiter.Limiter
}

// NewFormLimiter parses a rate such as "10-H" (10 per hour).
func NewFormLimiter(rate string) (*FormLimiter, error) {
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("form rate %q: %w", rate, err)
	}
	return &FormLimiter{limiter: limiter.New(memory.NewStore(), r)}, nil
}

// Allow counts one submission for key and reports whether it is within the rate.
func (f *FormLimiter) Allow(ctx context.Context, key string) (bool, error) {
	lc, err := f.limiter.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return !lc.Reached, nil
}
