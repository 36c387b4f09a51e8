package normalize

import (
	_ "embed"
	"fmt"

	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/domain/property"
	"gopkg.in/yaml.v3"
)

//go:embed mappings.yaml
var mappingsYAML []byte

type featureRule struct {
	Flag   string   `yaml:"flag"`
	Match  []string `yaml:"match"`
	Unless []string `yaml:"unless"`
}

type mappingsFile struct {
	Types    map[string][]string `yaml:"types"`
	Statuses map[string][]string `yaml:"statuses"`
	Purposes map[string][]string `yaml:"purposes"`
	Stages   map[string][]string `yaml:"stages"`
	States   map[string][]string `yaml:"states"`
	Features []featureRule       `yaml:"features"`
}

// Tables holds the folded lookup tables. Build one with LoadTables or use Default.
type Tables struct {
	types    map[string]property.Type
	statuses map[string]property.Status
	purposes map[string]property.Purpose
	stages   map[string]property.ConstructionStage
	states   map[string]string
	features []featureRule
}

var defaultTables = mustLoadTables(mappingsYAML)

// Default returns the tables compiled into the binary.
func Default() *Tables { return defaultTables }

// LoadTables parses a mappings document.
func LoadTables(doc []byte) (*Tables, error) {
	var f mappingsFile
	if err := yaml.Unmarshal(doc, &f); err != nil {
		return nil, fmt.Errorf("failed to parse mappings: %w", err)
	}
	t := &Tables{
		types:    foldTable(f.Types, func(s string) property.Type { return property.Type(s) }),
		statuses: foldTable(f.Statuses, func(s string) property.Status { return property.Status(s) }),
		purposes: foldTable(f.Purposes, func(s string) property.Purpose { return property.Purpose(s) }),
		stages:   foldTable(f.Stages, func(s string) property.ConstructionStage { return property.ConstructionStage(s) }),
		states:   foldTable(f.States, func(s string) string { return s }),
	}
	for _, rule := range f.Features {
		if !knownFlag(rule.Flag) {
			return nil, fmt.Errorf("unknown feature flag %q in mappings", rule.Flag)
		}
		r := featureRule{Flag: rule.Flag}
		for _, m := range rule.Match {
			r.Match = append(r.Match, foldKey(m))
		}
		for _, u := range rule.Unless {
			r.Unless = append(r.Unless, foldKey(u))
		}
		t.features = append(t.features, r)
	}
	return t, nil
}

func mustLoadTables(doc []byte) *Tables {
	t, err := LoadTables(doc)
	if err != nil {
		panic(err)
	}
	return t
}

// foldTable inverts canonical → aliases into folded alias → canonical. The canonical name
// itself is always an alias.
func foldTable[T any](src map[string][]string, conv func(string) T) map[string]T {
	out := make(map[string]T)
	for canonical, aliases := range src {
		v := conv(canonical)
		out[foldKey(canonical)] = v
		for _, a := range aliases {
			out[foldKey(a)] = v
		}
	}
	return out
}
