// Package serializer renders entities to JSON gated by visibility groups.
// A struct field is emitted only when its `groups` tag shares at least one
// group with the requested set, so list views can omit the relations that
// detail views include. Output is deterministic for identical inputs.
package serializer

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"
)

// Marshal serializes v, keeping only fields tagged with one of the requested
// groups. Nil slices serialize as empty JSON arrays so "no results" is always
// `[]`, never `null`.
func Marshal(v any, groups ...string) ([]byte, error) {
	requested := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		requested[g] = struct{}{}
	}
	return json.Marshal(project(reflect.ValueOf(v), requested))
}

func project(rv reflect.Value, groups map[string]struct{}) any {
	switch rv.Kind() {
	case reflect.Invalid:
		return nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return project(rv.Elem(), groups)
	case reflect.Slice, reflect.Array:
		out := make([]any, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out = append(out, project(rv.Index(i), groups))
		}
		return out
	case reflect.Struct:
		if t, ok := rv.Interface().(time.Time); ok {
			return t
		}
		return projectStruct(rv, groups)
	default:
		return rv.Interface()
	}
}

func projectStruct(rv reflect.Value, groups map[string]struct{}) map[string]any {
	out := map[string]any{}
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name := jsonName(field)
		if name == "-" {
			continue
		}
		if !visible(field, groups) {
			continue
		}
		out[name] = project(rv.Field(i), groups)
	}
	return out
}

// visible reports whether the field's groups tag intersects the requested
// set. Untagged fields are never emitted; serialization is opt-in.
func visible(field reflect.StructField, groups map[string]struct{}) bool {
	tag, ok := field.Tag.Lookup("groups")
	if !ok || tag == "" {
		return false
	}
	for _, g := range strings.Split(tag, ",") {
		if _, ok := groups[strings.TrimSpace(g)]; ok {
			return true
		}
	}
	return false
}

func jsonName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" {
		return field.Name
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return field.Name
	}
	return name
}
