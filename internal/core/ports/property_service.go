package ports

import (
	"context"

	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/domain/cachemeta"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/domain/property"
)

// SearchResult is a normalized page of listings plus the tier that served it.
type SearchResult struct {
	Properties []*property.Property `json:"properties"`
	Pagination property.PageInfo    `json:"pagination"`
	Cache      cachemeta.Meta       `json:"cache"`
}

// DetailResult is a single normalized listing plus the tier that served it.
type DetailResult struct {
	Property *property.Property `json:"property"`
	Cache    cachemeta.Meta     `json:"cache"`
}

// PropertyService is the façade the rest of the site consumes.
type PropertyService interface {
	Search(ctx context.Context, filters property.Filters, pagination property.Pagination) (*SearchResult, error)
	GetByID(ctx context.Context, id string) (*DetailResult, error)
	// Invalidate drops one cached key, or every cached listing when key is empty.
	Invalidate(ctx context.Context, key string) error
	Stats() []cachemeta.Stats
}
