// Package health provides periodic background checks of the backing
// services: the task store, the Redis queue and the inference backend.
// Transitions are logged so a dead Redis shows up before a task hangs.
package health

import (
	"context"
	"log"
	"sync"
	"time"
)

// Check is a single named liveness probe.
type Check struct {
	Name    string
	CheckFn func(ctx context.Context) error
}

// Status is the result of one probe run.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Checker runs its probes on an interval and remembers the last results.
type Checker struct {
	mu       sync.RWMutex
	checks   []Check
	statuses []Status
	interval time.Duration
}

// NewChecker creates an empty checker. Probes are added with Add.
func NewChecker(interval time.Duration) *Checker {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Checker{interval: interval}
}

// Add registers a probe. Not safe to call after Run has started.
func (c *Checker) Add(name string, fn func(ctx context.Context) error) {
	c.checks = append(c.checks, Check{Name: name, CheckFn: fn})
}

// Run starts the check loop. Call in a goroutine.
func (c *Checker) Run(ctx context.Context) {
	c.runAll(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.runAll(ctx)
		}
	}
}

func (c *Checker) runAll(ctx context.Context) {
	prev := c.Statuses()
	wasHealthy := make(map[string]bool, len(prev))
	for _, s := range prev {
		wasHealthy[s.Name] = s.Healthy
	}

	statuses := make([]Status, len(c.checks))
	for i, check := range c.checks {
		s := Status{
			Name:      check.Name,
			CheckedAt: time.Now(),
		}
		probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := check.CheckFn(probeCtx)
		cancel()

		if err != nil {
			s.Error = err.Error()
			if prevOK, seen := wasHealthy[check.Name]; !seen || prevOK {
				log.Printf("[health] %s degraded: %v", check.Name, err)
			}
		} else {
			s.Healthy = true
			if prevOK, seen := wasHealthy[check.Name]; seen && !prevOK {
				log.Printf("[health] %s recovered", check.Name)
			}
		}
		statuses[i] = s
	}

	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()
}

// Statuses returns the latest probe results.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Status, len(c.statuses))
	copy(result, c.statuses)
	return result
}

// IsHealthy returns true if every probe passed on the last run.
func (c *Checker) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.statuses {
		if !s.Healthy {
			return false
		}
	}
	return true
}
