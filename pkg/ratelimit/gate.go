package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

var vkGateWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "vk_rate_gate_wait_seconds",
	Help:    "Time spent waiting at the request gate before a remote call",
	Buckets: []float64{0, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
})

// Gate spaces out remote calls with a token bucket shared by every caller
// of the same client.
type Gate struct {
	limiter *rate.Limiter
}

// NewGate creates a gate admitting rps calls per second with the given burst.
// A non-positive rps disables the gate.
func NewGate(rps float64, burst int) *Gate {
	if rps <= 0 {
		return &Gate{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst < 1 {
		burst = DefaultBurst
	}
	return &Gate{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Wait blocks until the next call may be issued or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	if g == nil {
		return nil
	}
	start := time.Now()
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate gate: %w", err)
	}
	vkGateWaitSeconds.Observe(time.Since(start).Seconds())
	return nil
}

// Pacer applies the fixed pauses between pipeline steps.
type Pacer struct {
	// Sleep overrides the blocking pause; used by tests to record pauses.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Pause blocks for d. Non-positive durations return immediately.
func (p Pacer) Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
