package neostaff

import (
	"fmt"
	"reflect"
	"strings"
)

// fieldMapping binds one struct field to one node property.
type fieldMapping struct {
	Field string
	Prop  string
	Key   bool
}

// entityMetadata holds the parsed `graph` tag information for a specific struct type.
// Mappings keep struct declaration order so generated queries are stable.
type entityMetadata struct {
	// Label is the graph node label, taken from the struct's name.
	Label    string
	Mappings []fieldMapping
}

// keyProps returns the composite identity of the entity held in val.
func (m *entityMetadata) keyProps(val reflect.Value) map[string]interface{} {
	props := make(map[string]interface{})
	for _, fm := range m.Mappings {
		if fm.Key {
			props[fm.Prop] = val.FieldByName(fm.Field).Interface()
		}
	}
	return props
}

// allProps returns every mapped property of the entity held in val.
func (m *entityMetadata) allProps(val reflect.Value) map[string]interface{} {
	props := make(map[string]interface{}, len(m.Mappings))
	for _, fm := range m.Mappings {
		props[fm.Prop] = val.FieldByName(fm.Field).Interface()
	}
	return props
}

// hasProp reports whether prop is one of the mapped properties.
func (m *entityMetadata) hasProp(prop string) bool {
	for _, fm := range m.Mappings {
		if fm.Prop == prop {
			return true
		}
	}
	return false
}

// parseTagsFromType inspects a reflect.Type and extracts persistence metadata from
// `graph` struct tags. Tags look like `graph:"key,property:email"`; every field marked
// `key` is part of the node's identity.
func parseTagsFromType(typ reflect.Type) (*entityMetadata, error) {
	if typ == nil {
		return nil, fmt.Errorf("cannot parse tags of a nil type")
	}
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("type %s is not a struct", typ.Name())
	}

	meta := &entityMetadata{Label: typ.Name()}
	seen := make(map[string]string)
	hasKey := false

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		tag := field.Tag.Get("graph")
		if tag == "" || tag == "-" {
			continue
		}

		fm := fieldMapping{Field: field.Name}
		for _, part := range strings.Split(tag, ",") {
			part = strings.TrimSpace(part)
			switch {
			case part == "key":
				fm.Key = true
			case strings.HasPrefix(part, "property:"):
				fm.Prop = strings.TrimPrefix(part, "property:")
			}
		}

		if fm.Prop == "" {
			return nil, fmt.Errorf("field %s is missing 'property' tag component", field.Name)
		}
		if !field.IsExported() {
			return nil, fmt.Errorf("field %s is tagged but not exported", field.Name)
		}
		if other, dup := seen[fm.Prop]; dup {
			return nil, fmt.Errorf("property %q is mapped by both %s and %s", fm.Prop, other, field.Name)
		}
		seen[fm.Prop] = field.Name
		hasKey = hasKey || fm.Key
		meta.Mappings = append(meta.Mappings, fm)
	}

	if !hasKey {
		return nil, fmt.Errorf("no key field ('key') tag defined for struct %s", typ.Name())
	}

	return meta, nil
}

// parseTags is a generic convenience wrapper around parseTagsFromType.
func parseTags[T any]() (*entityMetadata, error) {
	return parseTagsFromType(reflect.TypeOf((*T)(nil)).Elem())
}
