package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

// Pinger is a dependency the health check probes
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthChecker pings every registered dependency concurrently
type HealthChecker struct {
	checks map[string]Pinger
}

// NewHealthChecker creates a checker with no dependencies
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{checks: make(map[string]Pinger)}
}

// Add registers a named dependency. Nil pingers are ignored.
func (h *HealthChecker) Add(name string, p Pinger) *HealthChecker {
	if p != nil {
		h.checks[name] = p
	}
	return h
}

func (h *HealthChecker) check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	var mu sync.Mutex
	var errs []error
	var wg sync.WaitGroup
	for name, p := range h.checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Ping(ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	return errors.Join(errs...)
}

// Handler serves GET /health
func (h *HealthChecker) Handler(c *gin.Context) {
	if err := h.check(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "fail",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "pass"})
}
