package multicache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/domain/cachemeta"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/ports"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/observability"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const defaultEventBuffer = 64

// FetchError wraps a failure returned (or a panic raised) by an origin fetcher.
// Nothing is cached when it is returned.
type FetchError struct {
	Namespace string
	Key       string
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("origin fetch for %s:%s failed: %v", e.Namespace, e.Key, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Options configures an Orchestrator. Zero values are usable.
type Options struct {
	Logger      *logrus.Logger
	Metrics     *observability.CacheMetrics
	Now         func() time.Time
	EventBuffer int
}

// Orchestrator layers a local tier over an optional remote tier and the origin.
// Concurrent lookups of the same key share a single origin fetch.
type Orchestrator struct {
	local  ports.LocalCache
	remote ports.RemoteCache

	logger  *logrus.Logger
	metrics *observability.CacheMetrics
	now     func() time.Time
	tracer  trace.Tracer

	flights singleflight.Group
	writes  sync.WaitGroup
	events  chan Event

	mu       sync.Mutex
	inflight map[string]int
	gens     map[string]uint64

	tier2Lost atomic.Bool
}

// stored is what both tiers hold for a key.
type stored struct {
	Value     json.RawMessage `json:"value"`
	ExpiresAt time.Time       `json:"expiresAt"`
	FetchedAt time.Time       `json:"fetchedAt"`
}

type resolved struct {
	value json.RawMessage
	meta  cachemeta.Meta
}

// New builds an orchestrator. remote may be nil when there is no shared tier.
func New(local ports.LocalCache, remote ports.RemoteCache, opts Options) *Orchestrator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NewCacheMetrics(nil)
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = defaultEventBuffer
	}
	o := &Orchestrator{
		local:    local,
		remote:   remote,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		now:      opts.Now,
		tracer:   observability.Tracer(),
		events:   make(chan Event, opts.EventBuffer),
		inflight: make(map[string]int),
		gens:     make(map[string]uint64),
	}
	if o.remoteEnabled() {
		o.metrics.Tier2Available.Set(1)
	}
	return o
}

// GetOrSet returns the value for namespace:key from the fastest tier holding it, or runs fetcher
// on a full miss and populates both tiers. Every caller decodes its own copy of the value.
func GetOrSet[T any](ctx context.Context, o *Orchestrator, namespace, key string, ttl time.Duration, fetcher func(ctx context.Context) (T, error)) (cachemeta.Result[T], error) {
	var out cachemeta.Result[T]

	validate := func(b []byte) error {
		var probe T
		return json.Unmarshal(b, &probe)
	}
	fetch := func(ctx context.Context) (any, error) {
		return fetcher(ctx)
	}

	raw, err := o.getOrSet(ctx, namespace, key, ttl, validate, fetch)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw.value, &out.Data); err != nil {
		return out, fmt.Errorf("failed to decode value for %s:%s: %w", namespace, key, err)
	}
	out.Meta = raw.meta
	return out, nil
}

func (o *Orchestrator) getOrSet(ctx context.Context, namespace, key string, ttl time.Duration, validate func([]byte) error, fetch func(context.Context) (any, error)) (*resolved, error) {
	fullKey := namespace + ":" + key

	ctx, span := o.tracer.Start(ctx, "multicache.GetOrSet", trace.WithAttributes(
		attribute.String("cache.namespace", namespace),
	))
	defer span.End()

	if r, ok := o.readLocal(namespace, fullKey, validate); ok {
		o.recordLookup(span, namespace, r.meta.Layer)
		return r, nil
	}

	ch := o.flights.DoChan(fullKey, func() (any, error) {
		o.trackFlight(fullKey, 1)
		defer o.trackFlight(fullKey, -1)
		return o.resolve(context.WithoutCancel(ctx), namespace, fullKey, ttl, validate, fetch)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, "lookup failed")
			return nil, res.Err
		}
		r := res.Val.(*resolved)
		o.recordLookup(span, namespace, r.meta.Layer)
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// resolve runs inside the flight: local re-check, then remote, then origin.
func (o *Orchestrator) resolve(ctx context.Context, namespace, fullKey string, ttl time.Duration, validate func([]byte) error, fetch func(context.Context) (any, error)) (r *resolved, err error) {
	gen := o.generation(namespace)

	if r, ok := o.readLocal(namespace, fullKey, validate); ok {
		return r, nil
	}

	if r, raw, ok := o.readRemote(ctx, namespace, fullKey, validate); ok {
		if o.generation(namespace) == gen {
			o.local.Set(fullKey, raw, r.meta.TTLRemaining)
		}
		return r, nil
	}

	defer func() {
		if p := recover(); p != nil {
			err = &FetchError{Namespace: namespace, Key: strings.TrimPrefix(fullKey, namespace+":"), Err: fmt.Errorf("panic: %v", p)}
			o.metrics.FetchErrors.WithLabelValues(namespace).Inc()
		}
	}()

	v, err := fetch(ctx)
	if err != nil {
		o.metrics.FetchErrors.WithLabelValues(namespace).Inc()
		return nil, &FetchError{Namespace: namespace, Key: strings.TrimPrefix(fullKey, namespace+":"), Err: err}
	}
	value, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value for %s: %w", fullKey, err)
	}

	now := o.now()
	ent := stored{Value: value, ExpiresAt: now.Add(ttl), FetchedAt: now}
	r = &resolved{value: value, meta: cachemeta.NewMeta(cachemeta.LayerOrigin, now, ent.ExpiresAt, now)}

	if ttl <= 0 || o.generation(namespace) != gen {
		return r, nil
	}
	b, err := json.Marshal(ent)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cache entry for %s: %w", fullKey, err)
	}
	o.local.Set(fullKey, b, ttl)
	o.writeRemote(namespace, fullKey, b, ttl)
	return r, nil
}

func (o *Orchestrator) readLocal(namespace, fullKey string, validate func([]byte) error) (*resolved, bool) {
	ent, ok := o.local.Get(fullKey)
	if !ok {
		return nil, false
	}
	var s stored
	if err := json.Unmarshal(ent.Value, &s); err == nil {
		err = validate(s.Value)
		if err == nil {
			return &resolved{value: s.Value, meta: cachemeta.NewMeta(cachemeta.LayerMemory, s.FetchedAt, ent.ExpiresAt, o.now())}, true
		}
	}
	o.local.Delete(fullKey)
	o.emit(Event{Kind: EventDecodeFailed, Namespace: namespace, Key: fullKey, Layer: cachemeta.LayerMemory})
	return nil, false
}

func (o *Orchestrator) readRemote(ctx context.Context, namespace, fullKey string, validate func([]byte) error) (*resolved, []byte, bool) {
	if !o.remoteEnabled() {
		return nil, nil, false
	}
	b, ok, err := o.remote.Get(ctx, fullKey)
	if err != nil {
		o.tier2Failed(EventTier2ReadFailed, namespace, fullKey, err)
		return nil, nil, false
	}
	if !ok {
		return nil, nil, false
	}

	var s stored
	if err := json.Unmarshal(b, &s); err != nil || validate(s.Value) != nil {
		o.emit(Event{Kind: EventDecodeFailed, Namespace: namespace, Key: fullKey, Layer: cachemeta.LayerRedis})
		return nil, nil, false
	}
	now := o.now()
	if !now.Before(s.ExpiresAt) {
		return nil, nil, false
	}
	return &resolved{value: s.Value, meta: cachemeta.NewMeta(cachemeta.LayerRedis, s.FetchedAt, s.ExpiresAt, now)}, b, true
}

// writeRemote stores b in the remote tier in the background. Failures only produce events.
func (o *Orchestrator) writeRemote(namespace, fullKey string, b []byte, ttl time.Duration) {
	if !o.remoteEnabled() {
		return
	}
	o.writes.Add(1)
	go func() {
		defer o.writes.Done()
		if err := o.remote.Set(context.Background(), fullKey, b, ttl); err != nil {
			o.metrics.Tier2WriteFailures.WithLabelValues(namespace).Inc()
			o.tier2Failed(EventTier2WriteFailed, namespace, fullKey, err)
		}
	}()
}

// WaitForWrites blocks until background remote writes have finished.
func (o *Orchestrator) WaitForWrites() {
	o.writes.Wait()
}

// Invalidate removes entries from both tiers. With keys, only those keys of namespace are
// removed; without, the whole namespace is. Remote failures degrade silently.
func (o *Orchestrator) Invalidate(ctx context.Context, namespace string, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, span := o.tracer.Start(ctx, "multicache.Invalidate", trace.WithAttributes(
		attribute.String("cache.namespace", namespace),
		attribute.Int("cache.keys", len(keys)),
	))
	defer span.End()

	o.bumpGeneration(namespace)
	prefix := namespace + ":"

	if len(keys) == 0 {
		removed := o.local.DeleteByPrefix(prefix)
		o.forgetFlights(prefix)
		if o.remoteEnabled() {
			n, err := o.remote.ScanAndDelete(ctx, escapeGlob(prefix)+"*")
			if err != nil {
				o.tier2Failed(EventTier2InvalidateFailed, namespace, prefix+"*", err)
			}
			removed += n
		}
		if o.logger != nil {
			o.logger.WithFields(logrus.Fields{
				"namespace": namespace,
				"removed":   removed,
			}).Info("cache namespace invalidated")
		}
		return nil
	}

	for _, key := range keys {
		fullKey := prefix + key
		o.local.Delete(fullKey)
		o.flights.Forget(fullKey)
		if o.remoteEnabled() {
			if err := o.remote.Delete(ctx, fullKey); err != nil {
				o.tier2Failed(EventTier2InvalidateFailed, namespace, fullKey, err)
			}
		}
	}
	return nil
}

// Stats reports the inspection surface for a namespace.
func (o *Orchestrator) Stats(namespace string, ttl time.Duration) cachemeta.Stats {
	return cachemeta.Stats{
		Namespace:    namespace,
		TTLMs:        ttl.Milliseconds(),
		Tier1:        cachemeta.Tier1Stats{Size: o.local.Stats().Size},
		Tier2Enabled: o.remoteEnabled(),
	}
}

// RemoteEnabled reports whether the shared tier is still in use.
func (o *Orchestrator) RemoteEnabled() bool { return o.remoteEnabled() }

func (o *Orchestrator) remoteEnabled() bool {
	return o.remote != nil && o.remote.Enabled()
}

func (o *Orchestrator) tier2Failed(kind EventKind, namespace, key string, err error) {
	o.emit(Event{Kind: kind, Namespace: namespace, Key: key, Layer: cachemeta.LayerRedis, Err: err})
	if !o.remoteEnabled() && o.tier2Lost.CompareAndSwap(false, true) {
		o.metrics.Tier2Available.Set(0)
		o.emit(Event{Kind: EventTier2Unavailable, Namespace: namespace, Key: key, Layer: cachemeta.LayerRedis, Err: err})
	}
}

func (o *Orchestrator) recordLookup(span trace.Span, namespace string, layer cachemeta.Layer) {
	span.SetAttributes(attribute.String("cache.layer", string(layer)))
	o.metrics.Lookups.WithLabelValues(namespace, string(layer)).Inc()
}

func (o *Orchestrator) trackFlight(fullKey string, delta int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.inflight[fullKey] += delta
	if o.inflight[fullKey] <= 0 {
		delete(o.inflight, fullKey)
	}
}

func (o *Orchestrator) forgetFlights(prefix string) {
	o.mu.Lock()
	var keys []string
	for k := range o.inflight {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	o.mu.Unlock()
	for _, k := range keys {
		o.flights.Forget(k)
	}
}

func (o *Orchestrator) generation(namespace string) uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.gens[namespace]
}

// bumpGeneration stops flights started before an invalidation from writing their result back.
func (o *Orchestrator) bumpGeneration(namespace string) {
	o.mu.Lock()
	o.gens[namespace]++
	o.mu.Unlock()
}

// escapeGlob escapes the characters Redis MATCH treats specially.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// IsFetchError reports whether err came from an origin fetcher.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
