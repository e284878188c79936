package health

import (
	"context"
	"time"
)

// Checkable is implemented by store adapters.
type Checkable interface {
	HealthCheck(ctx context.Context) error
}

// AdapterChecker reports a store adapter as unhealthy when its HealthCheck fails.
type AdapterChecker struct {
	name    string
	adapter Checkable
	timeout time.Duration
	status  Status
}

// NewAdapterChecker creates a checker that reports failure as unhealthy.
func NewAdapterChecker(name string, adapter Checkable, timeout time.Duration) *AdapterChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AdapterChecker{name: name, adapter: adapter, timeout: timeout, status: StatusUnhealthy}
}

// NewDatabaseChecker checks the document store. The service cannot serve
// without it.
func NewDatabaseChecker(name string, db Checkable) *AdapterChecker {
	return NewAdapterChecker(name, db, 5*time.Second)
}

// NewCacheChecker checks Redis. Owner lookups fall back to the database on
// cache errors, so a failure only degrades the service.
func NewCacheChecker(name string, cache Checkable) *AdapterChecker {
	c := NewAdapterChecker(name, cache, 3*time.Second)
	c.status = StatusDegraded
	return c
}

func (c *AdapterChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result := CheckResult{Name: c.name, Status: StatusHealthy, Message: "OK"}
	if err := c.adapter.HealthCheck(checkCtx); err != nil {
		result.Status = c.status
		result.Message = ""
		result.Error = err.Error()
	}
	result.Timestamp = time.Now()
	result.DurationMS = time.Since(start).Milliseconds()
	return result
}

func (c *AdapterChecker) Name() string {
	return c.name
}

// PingChecker always reports healthy. It backs the liveness endpoint.
type PingChecker struct {
	name string
}

func NewPingChecker(name string) *PingChecker {
	return &PingChecker{name: name}
}

func (c *PingChecker) Check(context.Context) CheckResult {
	return CheckResult{
		Name:      c.name,
		Status:    StatusHealthy,
		Message:   "Service is alive",
		Timestamp: time.Now(),
	}
}

func (c *PingChecker) Name() string {
	return c.name
}
