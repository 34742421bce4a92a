package obs

import "context"

// HealthStatus is the result of a health check.
type HealthStatus struct {
	Status string
	Checks map[string]*CheckResult
}

// CheckResult is one named sub-check's outcome.
type CheckResult struct {
	Healthy bool
	Message string
}

// Pingable is satisfied by anything HealthChecker can probe -- a
// session exposes this without obs needing to import the corevdb
// package (which itself depends on obs transitively through chunkio).
type Pingable interface {
	Ping(ctx context.Context) error
}

// HealthChecker reports whether a Pingable is responsive.
type HealthChecker struct {
	db Pingable
}

// NewHealthChecker builds a HealthChecker over db.
func NewHealthChecker(db Pingable) *HealthChecker {
	return &HealthChecker{db: db}
}

// Check runs the underlying Ping and reports a structured result.
func (hc *HealthChecker) Check(ctx context.Context) (*HealthStatus, error) {
	check := &CheckResult{Healthy: true, Message: "session responsive"}
	status := "healthy"
	if err := hc.db.Ping(ctx); err != nil {
		check.Healthy = false
		check.Message = err.Error()
		status = "unhealthy"
	}
	return &HealthStatus{
		Status: status,
		Checks: map[string]*CheckResult{"session": check},
	}, nil
}
