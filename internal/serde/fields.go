// Package serde maps Go values to and from JS values using `js` struct
// tags:
//
//	type Options struct {
//		APIKey    string `js:"apiKey,required"`
//		ProjectID string `js:"projectId,required"`
//		AppID     string `js:"appId,omitempty"`
//	}
//
// Encoding happens in two steps. Encode turns a Go value into a tree of
// map[string]any, []any and primitives without touching JS, so builders can
// serialize once at Build time. Materialize turns a tree into a fresh JS
// value and must run on the JS thread.
package serde

import (
	"reflect"
	"strings"
	"sync"
)

// MaxDepth bounds nesting on both directions.
const MaxDepth = 64

var fieldCache sync.Map // reflect.Type -> []field

type field struct {
	name      string
	index     []int
	typ       reflect.Type
	omitempty bool
	required  bool
}

type fieldTag struct {
	name      string
	ignore    bool
	omitempty bool
	required  bool
}

// parseTag reads `js:"[name][,omitempty][,required]"`. "-" skips the field.
func parseTag(sf *reflect.StructField) fieldTag {
	t := fieldTag{}
	if !sf.Anonymous {
		t.name = sf.Name
	}

	raw, ok := sf.Tag.Lookup("js")
	if !ok {
		return t
	}
	parts := strings.Split(raw, ",")
	if name := strings.TrimSpace(parts[0]); name != "" {
		t.name = name
	}
	if t.name == "-" && len(parts) == 1 {
		t.ignore = true
		return t
	}
	for _, opt := range parts[1:] {
		switch strings.TrimSpace(opt) {
		case "omitempty":
			t.omitempty = true
		case "required":
			t.required = true
		}
	}
	return t
}

// fieldsOf returns the encodable fields of struct type t. Untagged embedded
// structs are flattened; on a name clash the shallower field wins.
func fieldsOf(t reflect.Type) []field {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.([]field)
	}

	byName := make(map[string]field)
	var order []string
	var walk func(t reflect.Type, index []int, visiting map[reflect.Type]bool)
	walk = func(t reflect.Type, index []int, visiting map[reflect.Type]bool) {
		if visiting[t] {
			return
		}
		visiting[t] = true
		defer delete(visiting, t)

		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			ft := sf.Type
			if sf.Anonymous {
				if ft.Kind() == reflect.Pointer {
					ft = ft.Elem()
				}
				if !sf.IsExported() && ft.Kind() != reflect.Struct {
					continue
				}
			} else if !sf.IsExported() {
				continue
			}

			tag := parseTag(&sf)
			if tag.ignore {
				continue
			}
			idx := append(append([]int(nil), index...), i)

			if sf.Anonymous && tag.name == "" {
				if ft.Kind() == reflect.Struct {
					walk(ft, idx, visiting)
				}
				continue
			}

			if old, ok := byName[tag.name]; ok {
				if len(old.index) <= len(idx) {
					continue
				}
			} else {
				order = append(order, tag.name)
			}
			byName[tag.name] = field{
				name:      tag.name,
				index:     idx,
				typ:       sf.Type,
				omitempty: tag.omitempty,
				required:  tag.required,
			}
		}
	}
	walk(t, nil, make(map[reflect.Type]bool))

	fields := make([]field, 0, len(order))
	for _, name := range order {
		fields = append(fields, byName[name])
	}
	actual, _ := fieldCache.LoadOrStore(t, fields)
	return actual.([]field)
}

// fieldByIndex walks index, allocating nil embedded pointers when alloc is
// set. It reports false when a nil pointer blocks the path.
func fieldByIndex(v reflect.Value, index []int, alloc bool) (reflect.Value, bool) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				if !alloc || !v.CanSet() {
					return reflect.Value{}, false
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v, true
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	case reflect.Struct:
		if v.Type() == timeType {
			return v.Interface().(interface{ IsZero() bool }).IsZero()
		}
	}
	return false
}

func joinPath(base, name string) string {
	if base == "" {
		return name
	}
	return base + "." + name
}
