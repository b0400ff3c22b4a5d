package openapi

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
)

// TypeMapping is an OpenAPI type/format pair.
type TypeMapping struct {
	Type   string // OpenAPI type: string, integer, number, boolean, object, array
	Format string // OpenAPI format: int32, int64, double, date-time, etc.
}

var timeType = reflect.TypeOf(time.Time{})

// MapGoType converts a Go type to an OpenAPI type mapping. Pointers are
// dereferenced. Unknown kinds map to {"string", ""}.
func MapGoType(t reflect.Type) TypeMapping {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == timeType {
		return TypeMapping{"string", "date-time"}
	}

	switch t.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Uint8, reflect.Uint16:
		return TypeMapping{"integer", "int32"}
	case reflect.Int, reflect.Int64, reflect.Uint, reflect.Uint32, reflect.Uint64:
		return TypeMapping{"integer", "int64"}
	case reflect.Float32:
		return TypeMapping{"number", "float"}
	case reflect.Float64:
		return TypeMapping{"number", "double"}
	case reflect.Bool:
		return TypeMapping{"boolean", ""}
	case reflect.Slice, reflect.Array:
		return TypeMapping{"array", ""}
	case reflect.Map, reflect.Struct, reflect.Interface:
		return TypeMapping{"object", ""}
	default:
		return TypeMapping{"string", ""}
	}
}

// SchemaFor builds an object schema from the exported, JSON-visible fields
// of the struct v. Validation tags contribute required, length bounds, enums
// and the email format.
func SchemaFor(v interface{}) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: structSchema(reflect.TypeOf(v))}
}

func structSchema(t reflect.Type) *openapi3.Schema {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	props := openapi3.Schemas{}
	var required []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}

		s := fieldSchema(f.Type)
		if f.Type.Kind() == reflect.Pointer {
			s.Nullable = true
		}
		if applyValidateTag(s, f.Tag.Get("validate")) {
			required = append(required, name)
		}
		props[name] = &openapi3.SchemaRef{Value: s}
	}

	return &openapi3.Schema{
		Type:       &openapi3.Types{"object"},
		Properties: props,
		Required:   required,
	}
}

func fieldSchema(t reflect.Type) *openapi3.Schema {
	m := MapGoType(t)
	s := typeSchema(m)

	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch {
	case t == timeType:
	case t.Kind() == reflect.Struct:
		return structSchema(t)
	case t.Kind() == reflect.Slice || t.Kind() == reflect.Array:
		s.Items = &openapi3.SchemaRef{Value: fieldSchema(t.Elem())}
	case t.Kind() == reflect.Map:
		s.AdditionalProperties = openapi3.AdditionalProperties{
			Schema: &openapi3.SchemaRef{Value: fieldSchema(t.Elem())},
		}
	}
	return s
}

// applyValidateTag copies validator constraints onto s and reports whether
// the field is required.
func applyValidateTag(s *openapi3.Schema, tag string) bool {
	if tag == "" {
		return false
	}
	isString := s.Type != nil && s.Type.Is("string")

	required := false
	for _, rule := range strings.Split(tag, ",") {
		key, param, _ := strings.Cut(rule, "=")
		switch key {
		case "required":
			required = true
		case "email":
			s.Format = "email"
		case "oneof":
			for _, v := range strings.Fields(param) {
				s.Enum = append(s.Enum, v)
			}
		case "min", "max":
			n, err := strconv.ParseUint(param, 10, 64)
			if err != nil || !isString {
				continue
			}
			if key == "min" {
				s.MinLength = n
			} else {
				s.MaxLength = &n
			}
		case "slug":
			s.Pattern = `^[a-z0-9]+(?:[-_][a-z0-9]+)*$`
		}
	}
	return required
}

func typeSchema(m TypeMapping) *openapi3.Schema {
	s := &openapi3.Schema{
		Type: &openapi3.Types{m.Type},
	}
	if m.Format != "" {
		s.Format = m.Format
	}
	if m.Type == "array" {
		s.Items = &openapi3.SchemaRef{Value: &openapi3.Schema{}}
	}
	return s
}
