package health

import (
	"context"
	"errors"
	"fmt"

	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/ports"
	infraDB "github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/db"
	"github.com/sony/gobreaker"
)

// ErrBreakerOpen is reported while a provider's circuit breaker rejects requests.
var ErrBreakerOpen = errors.New("circuit breaker open")

// dbHealthChecker wraps the mirror database for health checks.
type dbHealthChecker struct {
	db       *infraDB.Database
	critical bool
}

func (d *dbHealthChecker) Name() string                    { return "database" }
func (d *dbHealthChecker) Critical() bool                  { return d.critical }
func (d *dbHealthChecker) Check(ctx context.Context) error { return d.db.Ping(ctx) }

// remoteCachePinger is the part of the shared cache tier a health check needs.
type remoteCachePinger interface {
	Configured() bool
	Enabled() bool
	Ping(ctx context.Context) error
}

// redisHealthChecker reports the shared cache tier. Listings are still served without it.
type redisHealthChecker struct{ cache remoteCachePinger }

func (r *redisHealthChecker) Name() string   { return "redis" }
func (r *redisHealthChecker) Critical() bool { return false }
func (r *redisHealthChecker) Check(ctx context.Context) error {
	if !r.cache.Configured() {
		return nil
	}
	if !r.cache.Enabled() {
		return ports.ErrTierUnavailable
	}
	return r.cache.Ping(ctx)
}

// breakerReporter is implemented by provider transports.
type breakerReporter interface {
	Name() string
	BreakerState() gobreaker.State
}

type breakerHealthChecker struct{ client breakerReporter }

func (b *breakerHealthChecker) Name() string   { return "provider:" + b.client.Name() }
func (b *breakerHealthChecker) Critical() bool { return false }
func (b *breakerHealthChecker) Check(context.Context) error {
	if state := b.client.BreakerState(); state == gobreaker.StateOpen {
		return fmt.Errorf("%w: %s", ErrBreakerOpen, b.client.Name())
	}
	return nil
}

// NewDBHealthChecker creates a health checker for the mirror database. It is critical when
// the mirror is an active provider.
func NewDBHealthChecker(db *infraDB.Database, critical bool) ports.HealthChecker {
	return &dbHealthChecker{db: db, critical: critical}
}

// NewRedisHealthChecker creates a health checker for the shared cache tier.
func NewRedisHealthChecker(cache remoteCachePinger) ports.HealthChecker {
	return &redisHealthChecker{cache: cache}
}

// NewBreakerHealthChecker reports a provider as unhealthy while its breaker is open.
func NewBreakerHealthChecker(client breakerReporter) ports.HealthChecker {
	return &breakerHealthChecker{client: client}
}
