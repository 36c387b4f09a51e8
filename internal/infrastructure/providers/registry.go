package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/domain/property"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/ports"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/observability"
	"github.com/sirupsen/logrus"
)

// ErrNoNormalizer is reported for records whose provider tag has no registered normalizer.
var ErrNoNormalizer = errors.New("no normalizer registered for provider")

// Registry maps provider names to their normalizers. It is built once at startup.
type Registry struct {
	normalizers map[string]ports.Normalizer
}

// NewRegistry registers the given normalizers under their Provider() names.
// A later normalizer with the same name replaces an earlier one.
func NewRegistry(normalizers ...ports.Normalizer) *Registry {
	r := &Registry{normalizers: make(map[string]ports.Normalizer, len(normalizers))}
	for _, n := range normalizers {
		r.normalizers[n.Provider()] = n
	}
	return r
}

// Lookup implements ports.NormalizerRegistry.
func (r *Registry) Lookup(provider string) (ports.Normalizer, bool) {
	n, ok := r.normalizers[provider]
	return n, ok
}

// BatchResult is the outcome of normalizing a page of raw records.
type BatchResult struct {
	Properties []*property.Property
	Skipped    int
}

// NormalizeBatch normalizes records in order. A record that fails (or panics) is logged,
// counted and skipped; the rest of the batch is unaffected.
func NormalizeBatch(ctx context.Context, registry ports.NormalizerRegistry, records []ports.RawRecord, logger *logrus.Logger, metrics *observability.ProviderMetrics) BatchResult {
	out := BatchResult{Properties: make([]*property.Property, 0, len(records))}
	for i, rec := range records {
		if ctx.Err() != nil {
			out.Skipped += len(records) - i
			break
		}
		p, err := normalizeOne(registry, rec)
		if err != nil {
			out.Skipped++
			if metrics != nil {
				metrics.SkippedRecords.WithLabelValues(rec.Provider, skipReason(err)).Inc()
			}
			if logger != nil {
				logger.WithFields(logrus.Fields{
					"provider": rec.Provider,
					"index":    i,
				}).WithError(err).Warn("skipping record that failed normalization")
			}
			continue
		}
		out.Properties = append(out.Properties, p)
	}
	return out
}

type panicError struct{ value any }

func (e panicError) Error() string { return fmt.Sprintf("normalizer panicked: %v", e.value) }

func normalizeOne(registry ports.NormalizerRegistry, rec ports.RawRecord) (p *property.Property, err error) {
	n, ok := registry.Lookup(rec.Provider)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoNormalizer, rec.Provider)
	}
	defer func() {
		if v := recover(); v != nil {
			p, err = nil, panicError{value: v}
		}
	}()
	p, err = n.Normalize(rec.Payload)
	if err == nil && (p == nil || p.ID == "" || p.Code == "") {
		err = errors.New("normalizer returned a listing without id or code")
	}
	return p, err
}

func skipReason(err error) string {
	var pe panicError
	switch {
	case errors.Is(err, ErrNoNormalizer):
		return "no_normalizer"
	case errors.As(err, &pe):
		return "panic"
	default:
		return "invalid"
	}
}

var _ ports.NormalizerRegistry = (*Registry)(nil)
