package normalize

import (
	"strings"

	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/domain/property"
)

// Features projects free-text tags onto boolean flags. Tags that set no flag are returned
// verbatim, deduplicated, in input order.
func (t *Tables) Features(tags []string) (property.Features, []string) {
	var f property.Features
	var unmatched []string
	seen := make(map[string]struct{})

	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := foldKey(tag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		matched := false
		for _, rule := range t.features {
			if ruleMatches(rule, key) {
				setFlag(&f, rule.Flag)
				matched = true
			}
		}
		if !matched {
			unmatched = append(unmatched, tag)
		}
	}
	return f, unmatched
}

func ruleMatches(rule featureRule, key string) bool {
	for _, u := range rule.Unless {
		if strings.Contains(key, u) {
			return false
		}
	}
	for _, m := range rule.Match {
		if strings.Contains(key, m) {
			return true
		}
	}
	return false
}

var flagSetters = map[string]func(*property.Features){
	"furnished":        func(f *property.Features) { f.Furnished = true },
	"semi_furnished":   func(f *property.Features) { f.SemiFurnished = true },
	"pet_friendly":     func(f *property.Features) { f.PetFriendly = true },
	"pool":             func(f *property.Features) { f.Pool = true },
	"gym":              func(f *property.Features) { f.Gym = true },
	"barbecue":         func(f *property.Features) { f.Barbecue = true },
	"elevator":         func(f *property.Features) { f.Elevator = true },
	"balcony":          func(f *property.Features) { f.Balcony = true },
	"sea_view":         func(f *property.Features) { f.SeaView = true },
	"concierge":        func(f *property.Features) { f.Concierge = true },
	"air_conditioning": func(f *property.Features) { f.AirConditioning = true },
	"party_room":       func(f *property.Features) { f.PartyRoom = true },
	"playground":       func(f *property.Features) { f.Playground = true },
}

func knownFlag(name string) bool {
	_, ok := flagSetters[name]
	return ok
}

func setFlag(f *property.Features, name string) {
	if set, ok := flagSetters[name]; ok {
		set(f)
	}
}
