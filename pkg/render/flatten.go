package render

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// dictionary is the flat view of bound data used by the legacy engine
type dictionary struct {
	scalars map[string]string
	lists   map[string][]any
}

// Flatten builds the dotted-path dictionary of data.
// Embedded structs are promoted to their parent path, as in Go field selectors.
func Flatten(data any) map[string]string {
	return flatten(data).scalars
}

func flatten(data any) dictionary {
	d := dictionary{scalars: map[string]string{}, lists: map[string][]any{}}
	d.add("", reflect.ValueOf(data))
	return d
}

func (d dictionary) add(prefix string, v reflect.Value) {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return
	}

	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			if f.Anonymous && f.Type.Kind() == reflect.Struct {
				d.add(prefix, v.Field(i))
				continue
			}
			d.add(join(prefix, f.Name), v.Field(i))
		}
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return
		}
		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		for _, k := range keys {
			d.add(join(prefix, k.String()), v.MapIndex(k))
		}
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8 {
			d.scalars[prefix] = string(v.Bytes())
			return
		}
		items := make([]any, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			items = append(items, v.Index(i).Interface())
		}
		d.lists[prefix] = items
	default:
		d.scalars[prefix] = fmt.Sprint(v.Interface())
	}
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// scope is a stack of dictionaries, innermost last
type scope []dictionary

func (s scope) scalar(path string) (string, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if v, ok := s[i].scalars[path]; ok {
			return v, true
		}
	}
	return "", false
}

func (s scope) list(path string) ([]any, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if v, ok := s[i].lists[path]; ok {
			return v, true
		}
	}
	return nil, false
}

func trimPath(p string) string {
	return strings.TrimPrefix(strings.TrimSpace(p), ".")
}
