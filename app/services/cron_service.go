package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// CronService handles scheduled maintenance: retiring departed trips and
// releasing live subscriptions on locked channels
type CronService struct {
	offers   *OfferService
	channels *ChannelService
	window   time.Duration
	logger   zerolog.Logger

	mu         sync.Mutex
	stopChan   chan struct{}
	done       chan struct{}
	isRunning  bool
	pendingRun bool
}

// MaintenanceStats summarizes one maintenance pass
type MaintenanceStats struct {
	OffersCompleted     int           `json:"offers_completed"`
	SubscriptionsClosed int           `json:"subscriptions_closed"`
	Duration            time.Duration `json:"duration"`
}

// NewCronService creates a new cron service instance
func NewCronService(offers *OfferService, channels *ChannelService, window time.Duration, logger zerolog.Logger) *CronService {
	if window <= 0 {
		window = DefaultLockWindow
	}
	return &CronService{
		offers:   offers,
		channels: channels,
		window:   window,
		logger:   logger.With().Str("component", "cron").Logger(),
	}
}

// Start runs maintenance every interval until Stop is called
func (c *CronService) Start(interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		c.logger.Warn().Msg("maintenance cron is already running")
		return
	}
	c.isRunning = true
	c.stopChan = make(chan struct{})
	c.done = make(chan struct{})
	stop, done := c.stopChan, c.done
	c.mu.Unlock()

	c.logger.Info().Dur("interval", interval).Msg("starting maintenance cron")

	go func() {
		defer close(done)
		for {
			c.RunOnce(context.Background())

			// Run again immediately if a run was requested while this one was in progress
			c.mu.Lock()
			rerun := c.pendingRun
			c.pendingRun = false
			c.mu.Unlock()
			if rerun {
				continue
			}

			select {
			case <-stop:
				c.logger.Info().Msg("stopping maintenance cron")
				return
			case <-time.After(interval):
			}
		}
	}()
}

// Stop ends the cron loop and waits for an in-flight pass to finish
func (c *CronService) Stop() {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return
	}
	c.isRunning = false
	close(c.stopChan)
	done := c.done
	c.mu.Unlock()

	<-done
}

// IsRunning returns whether the cron loop is active
func (c *CronService) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isRunning
}

// RequestRun makes the loop run again as soon as the current pass ends
func (c *CronService) RequestRun() {
	c.mu.Lock()
	c.pendingRun = true
	c.mu.Unlock()
}

// RunOnce executes a single maintenance pass
func (c *CronService) RunOnce(ctx context.Context) MaintenanceStats {
	start := time.Now()
	var stats MaintenanceStats

	completed, err := c.offers.CompleteDeparted(ctx, c.window)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to complete departed offers")
	}
	stats.OffersCompleted = completed
	stats.SubscriptionsClosed = c.channels.ReapLocked(ctx)
	stats.Duration = time.Since(start)

	if stats.OffersCompleted > 0 || stats.SubscriptionsClosed > 0 {
		c.logger.Info().
			Int("offers_completed", stats.OffersCompleted).
			Int("subscriptions_closed", stats.SubscriptionsClosed).
			Dur("duration", stats.Duration).
			Msg("maintenance completed")
	}
	return stats
}
