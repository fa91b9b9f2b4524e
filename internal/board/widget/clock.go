// Package widget runs the dashboard's timer-driven displays: a wall clock
// and a weather report. Each widget is an independent scheduled task with
// its own Start/Stop and shares no state with the entity stores.
package widget

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Tick is one clock reading formatted for display.
type Tick struct {
	Date string    `json:"date"` // Mon, Jan 2
	Time string    `json:"time"` // 3:04 PM
	At   time.Time `json:"at"`
}

// FormatTick formats t for display.
func FormatTick(t time.Time) Tick {
	return Tick{Date: t.Format("Mon, Jan 2"), Time: t.Format("3:04 PM"), At: t}
}

// ClockConfig holds clock settings.
type ClockConfig struct {
	Interval time.Duration
	Now      func() time.Time
	OnTick   func(Tick)
}

// Clock emits a Tick on a fixed interval.
type Clock struct {
	cfg ClockConfig

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewClock creates a stopped clock. The interval defaults to one second.
func NewClock(cfg ClockConfig) *Clock {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Clock{cfg: cfg}
}

// Start emits one tick immediately and then one per interval until Stop.
func (c *Clock) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return fmt.Errorf("clock already running")
	}
	ctx, c.cancel = context.WithCancel(ctx)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.cfg.Interval)
		defer ticker.Stop()

		c.emit()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.emit()
			}
		}
	}()
	return nil
}

// Stop cancels the clock and waits for its goroutine.
func (c *Clock) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
		c.wg.Wait()
	}
}

func (c *Clock) emit() {
	if c.cfg.OnTick != nil {
		c.cfg.OnTick(FormatTick(c.cfg.Now()))
	}
}
