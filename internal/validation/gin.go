package validation

import (
	"reflect"

	"github.com/gin-gonic/gin/binding"
)

// GinValidator plugs the shared validator into gin binding, so handlers validate the
// same `validate` tags the client checks before sending
type GinValidator struct{}

var _ binding.StructValidator = GinValidator{}

// ValidateStruct validates structs and pointers to structs; other kinds pass
func (GinValidator) ValidateStruct(obj any) error {
	if obj == nil {
		return nil
	}
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	return Struct(rv.Interface())
}

// Engine exposes the underlying validator
func (GinValidator) Engine() any {
	return Validator()
}
