package controller

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Validator is implemented by request DTOs with their own validation logic.
type Validator interface {
	Validate() error
}

// ValidateDTO runs dto.Validate when dto implements Validator and otherwise
// checks fields tagged `validate:"required"`. Failures are invalid-argument errors.
func ValidateDTO(dto interface{}) error {
	if dto == nil {
		return NewValidationError("dto cannot be nil", nil)
	}

	v := reflect.ValueOf(dto)
	if v.Kind() == reflect.Ptr && v.IsNil() {
		return NewValidationError("dto cannot be nil", nil)
	}

	if validator, ok := dto.(Validator); ok {
		if err := validator.Validate(); err != nil {
			var appErr *AppError
			if errors.As(err, &appErr) {
				return err
			}
			return NewValidationError(err.Error(), nil)
		}
		return nil
	}

	return validateRequired(v)
}

func validateRequired(v reflect.Value) error {
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}

	t := v.Type()
	var missing []string
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		if !strings.Contains(field.Tag.Get("validate"), "required") {
			continue
		}
		value := v.Field(i)
		if value.IsZero() || (value.Kind() == reflect.Slice && value.Len() == 0) {
			missing = append(missing, fieldName(field))
		}
	}

	if len(missing) > 0 {
		return NewValidationError(
			fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", ")),
			map[string]interface{}{"fields": missing},
		)
	}
	return nil
}

// fieldName prefers the json name so messages match what clients send.
func fieldName(field reflect.StructField) string {
	if tag := field.Tag.Get("json"); tag != "" {
		if name := strings.Split(tag, ",")[0]; name != "" && name != "-" {
			return name
		}
	}
	return field.Name
}
