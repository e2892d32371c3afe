package rwviews

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

var (
	validate = newValidator()
	// payloadAPI keeps numbers as written so fields can be decoded again one
	// at a time without losing precision.
	payloadAPI = sonic.Config{UseNumber: true}.Froze()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	return v
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" || name == "" {
		return f.Name
	}
	return name
}

// DecodeAndValidate decodes a JSON object payload into dst and validates it
// with its `validate` struct tags. When partial is set only the fields present
// in the payload are validated. Problems are returned as *ValidationError keyed
// by JSON field name.
func DecodeAndValidate(payload []byte, dst any, partial bool) error {
	if len(bytes.TrimSpace(payload)) == 0 {
		payload = []byte("{}")
	}

	var present map[string]any
	if err := payloadAPI.Unmarshal(payload, &present); err != nil {
		verr := NewValidationError()
		verr.Add(NonFieldErrorsKey, "Invalid data. Expected a JSON object.")
		return verr
	}
	if err := sonic.Unmarshal(payload, dst); err != nil {
		return decodeErrors(dst, present)
	}

	var err error
	if partial {
		err = validate.StructPartial(dst, structFieldNames(dst, present)...)
	} else {
		err = validate.Struct(dst)
	}
	if err == nil {
		return nil
	}
	return translateValidation(err)
}

// structFieldNames maps payload keys to the Go field names StructPartial
// expects.
func structFieldNames(dst any, present map[string]any) []string {
	t := reflect.TypeOf(dst)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	names := make([]string, 0, len(present))
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if _, ok := present[jsonFieldName(f)]; ok {
			names = append(names, f.Name)
		}
	}
	return names
}

// decodeErrors finds the payload keys whose values do not fit the type of
// their field. Decoder messages echo the request body so they are never
// returned.
func decodeErrors(dst any, present map[string]any) *ValidationError {
	verr := NewValidationError()
	t := reflect.TypeOf(dst)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() || f.Tag.Get("json") == "-" {
				continue
			}
			key := jsonFieldName(f)
			val, ok := present[key]
			if !ok {
				continue
			}
			raw, err := sonic.Marshal(val)
			if err == nil {
				err = sonic.Unmarshal(raw, reflect.New(f.Type).Interface())
			}
			if err != nil {
				verr.Add(key, typeMessage(f.Type, val))
			}
		}
	}
	if len(verr.Fields) == 0 {
		verr.Add(NonFieldErrorsKey, "Invalid data.")
	}
	return verr
}

func typeMessage(t reflect.Type, val any) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "Not a valid string."
	case reflect.Bool:
		return "Must be a valid boolean."
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "A valid integer is required."
	case reflect.Float32, reflect.Float64:
		return "A valid number is required."
	case reflect.Slice, reflect.Array:
		if _, ok := val.([]any); !ok {
			return fmt.Sprintf("Expected a list of items but got type %q.", jsonTypeName(val))
		}
		return "Invalid list item."
	case reflect.Map, reflect.Struct:
		return fmt.Sprintf("Expected a dictionary of items but got type %q.", jsonTypeName(val))
	default:
		return "Invalid value."
	}
}

func jsonTypeName(val any) string {
	switch val.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "number"
	}
}

func translateValidation(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errors.Wrap(err, "validate payload")
	}
	verr := NewValidationError()
	for _, fe := range fieldErrs {
		verr.Add(fieldKey(fe), fieldMessage(fe))
	}
	return verr
}

func fieldKey(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "url", "http_url":
		return "Enter a valid URL."
	case "oneof":
		return fmt.Sprintf("%q is not a valid choice.", fmt.Sprint(fe.Value()))
	case "min", "gte":
		switch fe.Kind() {
		case reflect.String:
			return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
		case reflect.Slice, reflect.Array, reflect.Map:
			return fmt.Sprintf("Ensure this field has at least %s elements.", fe.Param())
		default:
			return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
		}
	case "max", "lte":
		switch fe.Kind() {
		case reflect.String:
			return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
		case reflect.Slice, reflect.Array, reflect.Map:
			return fmt.Sprintf("Ensure this field has no more than %s elements.", fe.Param())
		default:
			return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
		}
	default:
		return fmt.Sprintf("Failed on the %q rule.", fe.Tag())
	}
}
