package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// maxBodyBytes bounds request bodies. Every request in this API is tiny.
const maxBodyBytes = 1 << 20

var (
	// ErrMalformedJSON means the body is not syntactically valid JSON.
	ErrMalformedJSON = errors.New("malformed JSON body")

	// ErrInvalidField means the body is JSON but a field has the wrong type.
	ErrInvalidField = errors.New("invalid field")
)

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// DecodeJSON decodes the request body into v. Syntax errors wrap
// ErrMalformedJSON; type mismatches wrap ErrInvalidField.
func DecodeJSON(r *http.Request, v any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	err := json.NewDecoder(body).Decode(v)
	if err == nil {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Errorf("%w: %s must be %s", ErrInvalidField, typeErr.Field, kindName(typeErr.Type))
	}
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: empty body", ErrMalformedJSON)
	}
	return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
}

// ValidateRequest validates v with its Validate method if it has one and
// with struct tags otherwise.
func ValidateRequest(v any) error {
	if sv, ok := v.(interface{ Validate() error }); ok {
		return sv.Validate()
	}
	return validate.Struct(v)
}

func kindName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Bool:
		return "a boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "an integer"
	case reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.String:
		return "a string"
	default:
		return "a " + t.Kind().String()
	}
}
