package normalize

import "strings"

// Slugify produces a lowercase ASCII slug with runs of non-alphanumerics collapsed to "-".
func Slugify(s string) string {
	s = stripDiacritics(strings.ToLower(s))
	var b strings.Builder
	dash := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}
	return b.String()
}

// Slug builds the listing slug from title and neighborhood, suffixed with the code so that
// listings with identical titles never collide.
func Slug(title, neighborhood, code string) string {
	base := Slugify(strings.TrimSpace(title + " " + neighborhood))
	c := Slugify(code)
	switch {
	case base == "":
		return c
	case c == "":
		return base
	}
	return base + "-" + c
}
