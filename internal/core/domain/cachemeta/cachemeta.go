package cachemeta

import (
	"encoding/json"
	"time"
)

// Layer names the tier that answered a lookup.
type Layer string

const (
	LayerMemory Layer = "memory"
	LayerRedis  Layer = "redis"
	LayerOrigin Layer = "origin"
)

// Meta describes the provenance of one cache result. It is created per lookup and never mutated.
type Meta struct {
	Layer        Layer         `json:"layer"`
	ExpiresAt    time.Time     `json:"expiresAt"`
	TTLRemaining time.Duration `json:"-"`
	FetchedAt    time.Time     `json:"fetchedAt"`
}

// NewMeta computes TTLRemaining relative to now, clamped at zero.
func NewMeta(layer Layer, fetchedAt, expiresAt, now time.Time) Meta {
	remaining := expiresAt.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return Meta{Layer: layer, ExpiresAt: expiresAt, TTLRemaining: remaining, FetchedAt: fetchedAt}
}

// MarshalJSON reports ttlRemaining in milliseconds.
func (m Meta) MarshalJSON() ([]byte, error) {
	type alias Meta
	return json.Marshal(struct {
		alias
		TTLRemainingMs int64 `json:"ttlRemaining"`
	}{alias: alias(m), TTLRemainingMs: m.TTLRemaining.Milliseconds()})
}

// Result pairs cached data with its provenance.
type Result[T any] struct {
	Data T    `json:"data"`
	Meta Meta `json:"meta"`
}

type Tier1Stats struct {
	Size int `json:"size"`
}

// Stats is the operational inspection surface for one namespace.
type Stats struct {
	Namespace    string     `json:"namespace"`
	TTLMs        int64      `json:"ttlMs"`
	Tier1        Tier1Stats `json:"tier1"`
	Tier2Enabled bool       `json:"tier2Enabled"`
}
