// Package schema describes the serializable shape of model types.
//
// A model type is a Go struct. Its fields are described the way
// encoding/json sees them, and the relation names of the model are read
// from the single enumeration type it declares through [Nester].
package schema

import (
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// Kind classifies a field for the purpose of describing and populating it.
type Kind int

const (
	Primitive Kind = iota
	Enumeration
	Struct
	Sequence
	Map
)

func (k Kind) String() string {
	switch k {
	case Primitive:
		return "primitive"
	case Enumeration:
		return "enumeration"
	case Struct:
		return "struct"
	case Sequence:
		return "sequence"
	case Map:
		return "map"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Enum is implemented by enumeration types. EnumValues lists every legal
// value of the type.
type Enum interface {
	EnumValues() []any
}

// EnumType is an enumeration type declared inside a model type.
type EnumType struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

// Nester is implemented by model types that declare nested enumeration
// types. Code generators emit it next to the model.
type Nester interface {
	NestedTypes() []EnumType
}

// Sentinel is the member name that is never a relation name.
const Sentinel = "_"

// Field is a serializable field of a struct type.
type Field struct {
	Name   string // JSON name
	GoName string
	Kind   Kind
	Type   reflect.Type
	Index  []int
}

var (
	enumType          = reflect.TypeFor[Enum]()
	jsonMarshalerType = reflect.TypeFor[json.Marshaler]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
)

// Indirect returns the type that t points to, following every pointer.
func Indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// KindOf classifies t.
func KindOf(t reflect.Type) Kind {
	t = Indirect(t)
	switch {
	case implements(t, enumType):
		return Enumeration
	case implements(t, jsonMarshalerType), implements(t, textMarshalerType):
		return Primitive
	}
	switch t.Kind() {
	case reflect.Struct:
		return Struct
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return Primitive // base64 string
		}
		return Sequence
	case reflect.Array:
		return Sequence
	case reflect.Map:
		return Map
	}
	return Primitive
}

func implements(t, iface reflect.Type) bool {
	return t.Implements(iface) || reflect.PointerTo(t).Implements(iface)
}

// Describe returns the serializable fields of the struct type t in
// declaration order. Untagged embedded structs are flattened.
func Describe(t reflect.Type) ([]Field, error) {
	t = Indirect(t)
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("schema: %s is not a struct", t)
	}
	return describe(t, nil), nil
}

func describe(t reflect.Type, index []int) []Field {
	var fields []Field
	for i := range t.NumField() {
		sf := t.Field(i)
		idx := append(slices.Clip(index), i)
		tag := sf.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if sf.Anonymous && name == "" {
			if ft := Indirect(sf.Type); KindOf(ft) == Struct {
				fields = append(fields, describe(ft, idx)...)
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		fields = append(fields, Field{
			Name:   name,
			GoName: sf.Name,
			Kind:   KindOf(sf.Type),
			Type:   sf.Type,
			Index:  idx,
		})
	}
	return fields
}

// EnumValues returns the legal values of the enumeration type t, or nil
// when t is not an enumeration.
func EnumValues(t reflect.Type) []any {
	if e, ok := instance(t).(Enum); ok {
		return e.EnumValues()
	}
	if e, ok := reflect.New(t).Interface().(Enum); ok {
		return e.EnumValues()
	}
	return nil
}

// NestedTypes returns the enumeration types declared by the model type t.
func NestedTypes(t reflect.Type) []EnumType {
	t = Indirect(t)
	if n, ok := instance(t).(Nester); ok {
		return n.NestedTypes()
	}
	if n, ok := reflect.New(t).Interface().(Nester); ok {
		return n.NestedTypes()
	}
	return nil
}

func instance(t reflect.Type) any {
	if t.Kind() == reflect.Interface {
		return nil
	}
	return reflect.Zero(t).Interface()
}

// RelationNames returns the members of the single enumeration type nested
// in t, without the [Sentinel]. The result is empty, never nil, when t
// declares no nested type or more than one.
func RelationNames(t reflect.Type) []string {
	names := []string{}
	nested := NestedTypes(t)
	if len(nested) != 1 {
		return names
	}
	for _, m := range nested[0].Members {
		if m != Sentinel {
			names = append(names, m)
		}
	}
	return names
}

// TypeName returns the fully qualified name of t usable as a file name:
// the import path and the type name joined with dots.
func TypeName(t reflect.Type) string {
	t = Indirect(t)
	if t.PkgPath() == "" {
		return t.String()
	}
	return strings.ReplaceAll(t.PkgPath()+"."+t.Name(), "/", ".")
}
