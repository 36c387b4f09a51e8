package ports

import (
	"context"
	"encoding/json"
	"time"

	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/domain/property"
)

// RawRecord is an opaque upstream payload tagged with the provider whose normalizer reads it.
type RawRecord struct {
	Provider string          `json:"provider"`
	Payload  json.RawMessage `json:"payload"`
}

// ListResult is one page of raw payloads as returned by an upstream system.
type ListResult struct {
	Items []RawRecord
	Total int
	Page  int
	Limit int
}

// PropertyProvider is an upstream back-office system (or a mirror of one).
type PropertyProvider interface {
	Name() string
	ListProperties(ctx context.Context, filters property.Filters, pagination property.Pagination) (*ListResult, error)
	// GetProperty returns property.ErrNotFound when the provider does not know id.
	GetProperty(ctx context.Context, id string) (*RawRecord, error)
}

// Normalizer maps one provider's raw payload into the canonical model.
// Implementations must be pure apart from diagnostic logging.
type Normalizer interface {
	Provider() string
	Normalize(raw json.RawMessage) (*property.Property, error)
}

// NormalizerRegistry resolves the normalizer registered for a provider name.
type NormalizerRegistry interface {
	Lookup(provider string) (Normalizer, bool)
}

// FeedItem is one raw upstream payload kept in the feed mirror, with the columns the mirror
// can filter on.
type FeedItem struct {
	Provider     string
	ExternalID   string
	Code         string
	City         string
	Neighborhood string
	Payload      json.RawMessage
	UpdatedAt    time.Time
}

// FeedMirrorWriter stores upstream payloads for later serving by the mirror provider.
type FeedMirrorWriter interface {
	Upsert(ctx context.Context, item FeedItem) error
}
