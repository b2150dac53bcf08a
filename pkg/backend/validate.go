package backend

import (
	"reflect"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// validatePayload runs struct validation on decoded payloads, including each
// struct element of a decoded slice.
func validatePayload(dest any) error {
	value := reflect.ValueOf(dest)
	for value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return nil
		}
		value = value.Elem()
	}

	switch value.Kind() {
	case reflect.Struct:
		return validate.Struct(value.Addr().Interface())
	case reflect.Slice:
		for i := 0; i < value.Len(); i++ {
			elem := value.Index(i)
			if elem.Kind() == reflect.Pointer {
				if elem.IsNil() {
					continue
				}
				elem = elem.Elem()
			}
			if elem.Kind() != reflect.Struct {
				continue
			}
			if err := validate.Struct(elem.Addr().Interface()); err != nil {
				return err
			}
		}
	}
	return nil
}
