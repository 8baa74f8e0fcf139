package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Checker is a health check function that returns an error if unhealthy
type Checker func(ctx context.Context) error

// DefaultTimeout bounds a single readiness check
const DefaultTimeout = 2 * time.Second

// Pinger is satisfied by *pgxpool.Pool
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnectionReporter is satisfied by *eventbus.Bus
type ConnectionReporter interface {
	Connected() bool
}

// DatabaseChecker returns a health check function for PostgreSQL
func DatabaseChecker(db Pinger) Checker {
	return func(ctx context.Context) error {
		if db == nil {
			return errors.New("database pool is nil")
		}
		if err := db.Ping(ctx); err != nil {
			return fmt.Errorf("database ping failed: %w", err)
		}
		return nil
	}
}

// EventBusChecker reports whether the NATS connection is up
func EventBusChecker(bus ConnectionReporter) Checker {
	return func(context.Context) error {
		if bus == nil || !bus.Connected() {
			return errors.New("event bus disconnected")
		}
		return nil
	}
}

// Result is the outcome of running every registered check
type Result struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// Healthy reports whether every check passed
func (r Result) Healthy() bool {
	return r.Status == "ready"
}

// Run executes the checks concurrently, each with its own timeout
func Run(ctx context.Context, timeout time.Duration, checks map[string]Checker) map[string]string {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]string, len(checks))
	)
	for _, name := range names {
		wg.Add(1)
		go func(name string, check Checker) {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			status := "ok"
			if err := check(checkCtx); err != nil {
				status = err.Error()
			}
			mu.Lock()
			results[name] = status
			mu.Unlock()
		}(name, checks[name])
	}
	wg.Wait()

	return results
}

// Liveness always answers 200 while the process serves requests
func Liveness(service, version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, Result{Status: "alive", Service: service, Version: version})
	}
}

// Readiness answers 503 when any dependency check fails
func Readiness(service, version string, checks map[string]Checker) gin.HandlerFunc {
	return func(c *gin.Context) {
		results := Run(c.Request.Context(), DefaultTimeout, checks)

		res := Result{Status: "ready", Service: service, Version: version, Checks: results}
		for _, status := range results {
			if status != "ok" {
				res.Status = "not_ready"
				break
			}
		}

		code := http.StatusOK
		if !res.Healthy() {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, res)
	}
}
