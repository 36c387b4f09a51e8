package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number parses a loosely typed upstream value into a positive float.
// Accepted forms include JSON numbers, "1.250.000,00", "1250000.50", "R$ 900" and "85 m²".
// Anything else (including zero and negatives) yields nil.
func Number(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		p, err := t.Float64()
		if err != nil {
			return nil
		}
		f = p
	case string:
		p, ok := parseNumberString(t)
		if !ok {
			return nil
		}
		f = p
	default:
		return nil
	}
	if !valid(f) {
		return nil
	}
	return &f
}

// Int parses a count (bedrooms, parking spots). Fractions are rounded.
func Int(v any) *int {
	f := Number(v)
	if f == nil {
		return nil
	}
	n := int(math.Round(*f))
	if n <= 0 {
		return nil
	}
	return &n
}

// Decimal parses a value and rounds it to two decimals without unit correction.
func Decimal(v any) *float64 {
	f := Number(v)
	if f == nil {
		return nil
	}
	r := Round2(*f)
	return &r
}

func parseNumberString(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	for _, cut := range []string{"R$", "r$", "m²", "m2", "M²", "M2"} {
		s = strings.ReplaceAll(s, cut, "")
	}
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',', r == '-':
			return r
		case r == ' ', r == '\u00a0':
			return -1
		default:
			return 'x'
		}
	}, s)
	if s == "" || strings.ContainsRune(s, 'x') {
		return 0, false
	}

	dots := strings.Count(s, ".")
	commas := strings.Count(s, ",")
	switch {
	case dots > 0 && commas > 0:
		// The separator that appears last is the decimal one.
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case commas > 1:
		s = strings.ReplaceAll(s, ",", "")
	case commas == 1:
		s = strings.Replace(s, ",", ".", 1)
	case dots > 1:
		s = strings.ReplaceAll(s, ".", "")
	case dots == 1:
		// "900.000" is a thousands separator in pt-BR; "1250000.50" is a decimal point.
		if i := strings.Index(s, "."); len(s)-i-1 == 3 && i > 0 {
			s = strings.Replace(s, ".", "", 1)
		}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
