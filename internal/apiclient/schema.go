package apiclient

import (
	"fmt"
	"reflect"

	"github.com/user/cagetracker/internal/validation"
)

// checkSchema validates v, descending into pointers and slices
func checkSchema(v any) error {
	return checkValue(reflect.ValueOf(v))
}

func checkValue(rv reflect.Value) error {
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct:
		if err := validation.Struct(rv.Interface()); err != nil {
			return err
		}
		if iv, ok := rv.Interface().(interface{ Validate() error }); ok {
			return iv.Validate()
		}
		if rv.CanAddr() {
			if iv, ok := rv.Addr().Interface().(interface{ Validate() error }); ok {
				return iv.Validate()
			}
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if err := checkValue(rv.Index(i)); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
	}
	return nil
}
