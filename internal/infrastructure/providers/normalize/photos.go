package normalize

import (
	"strings"

	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/domain/property"
)

// PhotoCandidate is one gallery entry as found in a payload, before deduplication.
type PhotoCandidate struct {
	URL      string
	Caption  string
	Featured bool
}

// Photos merges galleries in the order given, keeping the first occurrence of each URL.
// The second return value reports an empty result. When no entry is marked featured the
// first photo is.
func Photos(galleries ...[]PhotoCandidate) ([]property.Photo, bool) {
	seen := make(map[string]struct{})
	photos := make([]property.Photo, 0)
	featured := false

	for _, gallery := range galleries {
		for _, c := range gallery {
			url := strings.TrimSpace(c.URL)
			if url == "" {
				continue
			}
			if _, dup := seen[url]; dup {
				continue
			}
			seen[url] = struct{}{}

			isFeatured := c.Featured && !featured
			featured = featured || isFeatured
			photos = append(photos, property.Photo{
				URL:      url,
				Caption:  strings.TrimSpace(c.Caption),
				Order:    len(photos),
				Featured: isFeatured,
			})
		}
	}

	if len(photos) == 0 {
		return photos, true
	}
	if !featured {
		photos[0].Featured = true
	}
	return photos, false
}
