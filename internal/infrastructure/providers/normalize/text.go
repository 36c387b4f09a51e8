package normalize

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldKey lowercases, strips diacritics and collapses separators so that
// "Em_Construção", "em-construcao" and "EM CONSTRUCAO" compare equal.
func foldKey(s string) string {
	s = stripDiacritics(strings.ToLower(strings.TrimSpace(s)))
	var b strings.Builder
	space := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
			continue
		}
		space = true
	}
	return b.String()
}

func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Text trims and collapses internal whitespace.
func Text(v any) string {
	var s string
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		s = t
	case float64:
		s = fmt.Sprintf("%.0f", t)
	default:
		s = fmt.Sprint(t)
	}
	return strings.Join(strings.Fields(s), " ")
}

// FirstText returns the first non-empty value after Text.
func FirstText(vs ...any) string {
	for _, v := range vs {
		if s := Text(v); s != "" {
			return s
		}
	}
	return ""
}

// Truthy interprets the flag encodings the feeds use ("Sim", "S", "true", 1).
func Truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		switch foldKey(t) {
		case "sim", "s", "yes", "y", "true", "1":
			return true
		}
	}
	return false
}

// upstreamZone is used for timestamps sent without an offset (Brasília, no DST since 2019).
var upstreamZone = time.FixedZone("BRT", -3*60*60)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006",
}

// Time parses the timestamp formats seen in the feeds. Zero dates and garbage yield nil.
func Time(v any) *time.Time {
	s := Text(v)
	if s == "" || strings.HasPrefix(s, "0000-00-00") {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, upstreamZone); err == nil {
			u := t.UTC()
			return &u
		}
	}
	return nil
}

// FallbackTitle composes a display title for listings published without one.
func FallbackTitle(kind, neighborhood, code string) string {
	kind = Text(kind)
	if kind == "" {
		kind = "Imóvel"
	}
	if n := Text(neighborhood); n != "" {
		return kind + " em " + n
	}
	return strings.TrimSpace(kind + " " + code)
}
