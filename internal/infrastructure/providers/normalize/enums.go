package normalize

import (
	"strings"

	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/domain/property"
)

// Type maps a provider type string; unknown values become property.TypeOther.
func (t *Tables) Type(raw string) property.Type {
	if v, ok := lookup(t.types, raw); ok {
		return v
	}
	return property.TypeOther
}

// Status maps a provider status string; unknown or empty values are treated as available.
func (t *Tables) Status(raw string) property.Status {
	if v, ok := lookup(t.statuses, raw); ok {
		return v
	}
	return property.StatusAvailable
}

// Purpose maps a provider purpose string; unknown values default to sale.
func (t *Tables) Purpose(raw string) property.Purpose {
	if v, ok := lookup(t.purposes, raw); ok {
		return v
	}
	return property.PurposeSale
}

// PurposeFromPrices infers the purpose when the feed has no explicit field.
func PurposeFromPrices(sale, rent *float64) property.Purpose {
	switch {
	case sale != nil && rent != nil:
		return property.PurposeSaleRent
	case rent != nil:
		return property.PurposeRent
	default:
		return property.PurposeSale
	}
}

// Stage maps a construction stage string; unknown values become property.StageUnknown.
func (t *Tables) Stage(raw string) property.ConstructionStage {
	if v, ok := lookup(t.stages, raw); ok {
		return v
	}
	return property.StageUnknown
}

// State returns a two-letter UF for either a UF or a full state name, or "" if unrecognized.
func (t *Tables) State(raw string) string {
	s := strings.TrimSpace(raw)
	if len(s) == 2 {
		up := strings.ToUpper(s)
		if _, ok := t.states[foldKey(up)]; ok {
			return up
		}
	}
	if v, ok := lookup(t.states, s); ok {
		return v
	}
	return ""
}

// lookup tries the whole folded value, then its first word ("Apartamento Duplex" → apartamento).
func lookup[T any](table map[string]T, raw string) (T, bool) {
	key := foldKey(raw)
	if v, ok := table[key]; ok {
		return v, true
	}
	if i := strings.IndexByte(key, ' '); i > 0 {
		if v, ok := table[key[:i]]; ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}
