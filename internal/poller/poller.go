// Package poller keeps the dashboard warm by refreshing it on a fixed
// interval, so an operator opening the page sees recent data without
// waiting on the daycare server.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"pawboard/internal/dashboard"
)

// Refresher is the slice of the controller the poller drives.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Config holds configuration for the background poller.
type Config struct {
	// Interval is how often the dashboard is refreshed.
	Interval time.Duration
	// Burst caps how many refreshes may run back to back after a stall.
	Burst int
}

// DefaultConfig returns the default poller configuration.
func DefaultConfig() Config {
	return Config{
		Interval: time.Minute,
		Burst:    2,
	}
}

// Poller periodically refreshes the dashboard controller.
type Poller struct {
	config  Config
	target  Refresher
	limiter *rate.Limiter
	logger  *zerolog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// New creates a poller around the given refresher.
func New(config Config, target Refresher, logger *zerolog.Logger) *Poller {
	if config.Interval <= 0 {
		config.Interval = DefaultConfig().Interval
	}
	if config.Burst <= 0 {
		config.Burst = DefaultConfig().Burst
	}
	return &Poller{
		config:  config,
		target:  target,
		limiter: rate.NewLimiter(rate.Every(config.Interval), config.Burst),
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
}

// Start begins the polling loop. It blocks until the context is cancelled or
// Stop is called.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.mu.Unlock()

	p.logger.Info().Dur("interval", p.config.Interval).Msg("dashboard poller started")

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("dashboard poller stopped by context")
			return
		case <-p.stopCh:
			p.logger.Info().Msg("dashboard poller stopped")
			return
		case <-ticker.C:
			p.refreshOnce(ctx)
		}
	}
}

// Stop stops the poller.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.running {
		p.running = false
		close(p.stopCh)
	}
	p.mu.Unlock()
}

// IsRunning returns whether the poller loop is active.
func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// RunNow forces an immediate refresh outside the schedule.
func (p *Poller) RunNow(ctx context.Context) {
	p.logger.Info().Msg("manual dashboard refresh triggered")
	p.refreshOnce(ctx)
}

func (p *Poller) refreshOnce(ctx context.Context) {
	if err := p.limiter.Wait(ctx); err != nil {
		return
	}

	start := time.Now()
	err := p.target.Refresh(ctx)
	switch {
	case errors.Is(err, dashboard.ErrStaleWindow):
		// An operator navigated while the background refresh was in
		// flight; their window wins.
		p.logger.Debug().Msg("background refresh superseded by navigation")
	case err != nil:
		p.logger.Warn().Err(err).Msg("background refresh failed")
	default:
		p.logger.Debug().Dur("duration", time.Since(start)).Msg("background refresh completed")
	}
}
