package schema

import (
	"errors"
	"fmt"
	"reflect"
)

// Property is the rendered value of a field of a struct value.
type Property struct {
	Name  string
	Value string
	Null  bool
}

// Properties walks the described fields of the struct v.
// A nil pointer, slice, map or interface is reported as Null.
func Properties(v any) ([]Property, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, errors.New("schema: nil value")
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil, errors.New("schema: nil value")
	}
	fields, err := Describe(rv.Type())
	if err != nil {
		return nil, err
	}
	props := make([]Property, 0, len(fields))
	for _, f := range fields {
		fv, err := rv.FieldByIndexErr(f.Index)
		if err != nil || isNil(fv) {
			props = append(props, Property{Name: f.Name, Null: true})
			continue
		}
		props = append(props, Property{Name: f.Name, Value: render(fv)})
	}
	return props, nil
}

func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface, reflect.Chan, reflect.Func:
		return v.IsNil()
	}
	return false
}

func render(v reflect.Value) string {
	if v.CanInterface() {
		return fmt.Sprint(v.Interface())
	}
	return fmt.Sprint(v)
}
