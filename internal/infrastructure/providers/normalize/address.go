package normalize

import (
	"math"
	"strconv"
	"strings"

	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/domain/property"
)

// Placeholders used when no source in the fallback chain names a city or state.
const (
	PlaceholderCity  = "Não informado"
	PlaceholderState = "SC"
)

// Address resolves the address field by field: for each field the first source with a
// non-empty value wins. Sources are ordered most specific first.
func (t *Tables) Address(sources ...property.Address) property.Address {
	var out property.Address
	for _, src := range sources {
		fill(&out.Street, src.Street)
		fill(&out.Number, src.Number)
		fill(&out.Complement, src.Complement)
		fill(&out.Neighborhood, src.Neighborhood)
		fill(&out.City, src.City)
		if out.State == "" {
			out.State = t.State(src.State)
		}
		fill(&out.ZipCode, zip(src.ZipCode))
		if out.Coordinates == nil && validCoordinates(src.Coordinates) {
			c := *src.Coordinates
			out.Coordinates = &c
		}
	}
	if out.City == "" {
		out.City = PlaceholderCity
	}
	if out.State == "" {
		out.State = PlaceholderState
	}
	return out
}

// Coordinates builds a coordinate pair from loosely typed values; (0,0) and out-of-range
// pairs are dropped.
func Coordinates(lat, lng any) *property.Coordinates {
	la, lo := signed(lat), signed(lng)
	if la == nil || lo == nil {
		return nil
	}
	c := &property.Coordinates{Lat: *la, Lng: *lo}
	if !validCoordinates(c) {
		return nil
	}
	return c
}

func validCoordinates(c *property.Coordinates) bool {
	if c == nil {
		return false
	}
	if c.Lat == 0 && c.Lng == 0 {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// signed parses a coordinate. Unlike other numbers these may be negative and always use a
// decimal point (or comma), never a thousands separator.
func signed(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		p, err := strconv.ParseFloat(strings.Replace(strings.TrimSpace(t), ",", ".", 1), 64)
		if err != nil {
			return nil
		}
		f = p
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func fill(dst *string, v string) {
	if *dst == "" {
		*dst = strings.TrimSpace(v)
	}
}

// zip normalizes a CEP to 00000-000 when it has eight digits.
func zip(s string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	if len(digits) == 8 {
		return digits[:5] + "-" + digits[5:]
	}
	return strings.TrimSpace(s)
}
