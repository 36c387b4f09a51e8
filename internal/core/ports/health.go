package ports

import "context"

// HealthChecker abstracts a dependency health probe.
// Implementations should return error if unhealthy.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
	// Critical reports whether a failing check means listings cannot be served at all.
	// Non-critical failures (e.g. the shared cache tier) only degrade the service.
	Critical() bool
}
