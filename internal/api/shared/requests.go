package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// MaxBodyBytes caps JSON request bodies.
const MaxBodyBytes = 1 << 20

// ErrEmptyBody is returned by DecodeJSON for a request without a body.
var ErrEmptyBody = errors.New("request body is empty")

var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodeJSON decodes the request body into v. Trailing data after the first
// JSON value is rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return fmt.Errorf("decode request body: %w", err)
	}
	if dec.More() {
		return errors.New("decode request body: unexpected data after JSON value")
	}
	return nil
}

// ValidateRequest validates v with its own Validate method when present and
// with struct tags otherwise.
func ValidateRequest(v any) error {
	if validator, ok := v.(interface{ Validate() error }); ok {
		return validator.Validate()
	}
	return validate.Struct(v)
}
