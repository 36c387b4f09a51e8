package utils

import (
	"encoding"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// maxKeyDepth bounds recursion so self-referencing values fall back to their fmt rendering.
const maxKeyDepth = 32

var (
	timeType          = reflect.TypeOf(time.Time{})
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// StableKey renders v as a canonical string suitable for cache keys. Values that are
// structurally equal produce the same string regardless of map insertion order.
//
//   - nil, nil pointers/maps/slices/interfaces -> null
//   - bools and numbers -> their literal (NaN and infinities -> null)
//   - strings -> JSON quoted
//   - slices/arrays -> [a,b,...] preserving order
//   - maps and structs -> {"k":v,...} with keys sorted; struct keys follow json tags
//   - time.Time -> quoted ISO-8601 in UTC with milliseconds
//   - encoding.TextMarshaler -> quoted text
//
// Unsupported kinds (funcs, channels, complex numbers) are rendered with fmt and quoted.
func StableKey(v any) string {
	var b strings.Builder
	writeStable(&b, reflect.ValueOf(v), 0)
	return b.String()
}

func writeStable(b *strings.Builder, v reflect.Value, depth int) {
	if !v.IsValid() {
		b.WriteString("null")
		return
	}
	if depth > maxKeyDepth {
		writeFallback(b, v)
		return
	}

	if v.Type() == timeType {
		t := v.Interface().(time.Time)
		b.WriteString(strconv.Quote(t.UTC().Format("2006-01-02T15:04:05.000Z07:00")))
		return
	}
	if v.Kind() != reflect.Pointer && v.Kind() != reflect.Interface && v.Type().Implements(textMarshalerType) {
		if txt, err := v.Interface().(encoding.TextMarshaler).MarshalText(); err == nil {
			writeString(b, string(txt))
			return
		}
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			b.WriteString("null")
			return
		}
		writeStable(b, v.Elem(), depth+1)
	case reflect.Bool:
		b.WriteString(strconv.FormatBool(v.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		b.WriteString(strconv.FormatInt(v.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		b.WriteString(strconv.FormatUint(v.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			b.WriteString("null")
			return
		}
		b.WriteString(strconv.FormatFloat(f, 'f', -1, 64))
	case reflect.String:
		writeString(b, v.String())
	case reflect.Slice:
		if v.IsNil() {
			b.WriteString("null")
			return
		}
		writeSequence(b, v, depth)
	case reflect.Array:
		writeSequence(b, v, depth)
	case reflect.Map:
		if v.IsNil() {
			b.WriteString("null")
			return
		}
		writeMap(b, v, depth)
	case reflect.Struct:
		writeStruct(b, v, depth)
	default:
		writeFallback(b, v)
	}
}

func writeSequence(b *strings.Builder, v reflect.Value, depth int) {
	b.WriteByte('[')
	for i := 0; i < v.Len(); i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		writeStable(b, v.Index(i), depth+1)
	}
	b.WriteByte(']')
}

type keyedValue struct {
	key   string
	value reflect.Value
}

func writeMap(b *strings.Builder, v reflect.Value, depth int) {
	entries := make([]keyedValue, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		entries = append(entries, keyedValue{key: mapKeyText(iter.Key(), depth), value: iter.Value()})
	}
	writeObject(b, entries, depth)
}

// mapKeyText renders a map key as plain text; string keys are used verbatim so that
// map[string]any and structs with the same field names serialize identically.
func mapKeyText(k reflect.Value, depth int) string {
	for k.Kind() == reflect.Interface && !k.IsNil() {
		k = k.Elem()
	}
	if k.Kind() == reflect.String {
		return k.String()
	}
	var kb strings.Builder
	writeStable(&kb, k, depth+1)
	return kb.String()
}

func writeStruct(b *strings.Builder, v reflect.Value, depth int) {
	t := v.Type()
	entries := make([]keyedValue, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		omitEmpty := false
		if tag, ok := f.Tag.Lookup("json"); ok {
			if tag == "-" {
				continue
			}
			parts := strings.Split(tag, ",")
			if parts[0] != "" {
				name = parts[0]
			}
			for _, opt := range parts[1:] {
				if opt == "omitempty" || opt == "omitzero" {
					omitEmpty = true
				}
			}
		}
		fv := v.Field(i)
		if omitEmpty && fv.IsZero() {
			continue
		}
		entries = append(entries, keyedValue{key: name, value: fv})
	}
	writeObject(b, entries, depth)
}

func writeObject(b *strings.Builder, entries []keyedValue, depth int) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })
	b.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			b.WriteByte(',')
		}
		writeString(b, e.key)
		b.WriteByte(':')
		writeStable(b, e.value, depth+1)
	}
	b.WriteByte('}')
}

func writeString(b *strings.Builder, s string) {
	encoded, err := json.Marshal(s)
	if err != nil {
		b.WriteString(strconv.Quote(s))
		return
	}
	b.Write(encoded)
}

func writeFallback(b *strings.Builder, v reflect.Value) {
	var s string
	if v.CanInterface() {
		s = fmt.Sprintf("%v", v.Interface())
	} else {
		s = v.String()
	}
	writeString(b, s)
}
