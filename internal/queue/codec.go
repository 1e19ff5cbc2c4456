package queue

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fitcoach/coach/internal/domain"
)

// ContentType is the MIME type of every encoded request.
const ContentType = "application/json"

var validate = validator.New()

// Encode validates req and serializes it to the wire format
// {"request_id": ..., "user_email": ..., "enqueued_at": ...}. The email must
// already be normalized; Decode applies the same rule.
func Encode(req domain.WodRequest) ([]byte, error) {
	if err := validate.Struct(req); err != nil {
		return nil, toValidationError(err)
	}
	if err := checkEmail(req.UserEmail); err != nil {
		return nil, err
	}
	return json.Marshal(req)
}

// Decode parses a wire payload. A payload that is not a JSON object, or that
// lacks a normalized user_email, is malformed. A missing request_id is tolerated so that
// messages from older producers can still be processed.
func Decode(body []byte) (domain.WodRequest, error) {
	var req domain.WodRequest

	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&req); err != nil {
		return domain.WodRequest{}, &ValidationError{Field: "body", Reason: "is not a JSON object"}
	}

	if err := checkEmail(req.UserEmail); err != nil {
		return domain.WodRequest{}, err
	}

	return req, nil
}

func checkEmail(email string) error {
	switch err := domain.CheckEmail(email); {
	case errors.Is(err, domain.ErrEmptyEmail):
		return &ValidationError{Field: "user_email", Reason: "is required"}
	case errors.Is(err, domain.ErrUntrimmedEmail):
		return &ValidationError{Field: "user_email", Reason: "has surrounding whitespace"}
	case err != nil:
		return &ValidationError{Field: "user_email", Reason: err.Error()}
	}
	return nil
}

func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ValidationError{Field: jsonFieldName(fe.Field()), Reason: "failed " + fe.Tag()}
	}
	return &ValidationError{Field: "body", Reason: err.Error()}
}

func jsonFieldName(field string) string {
	switch field {
	case "RequestID":
		return "request_id"
	case "UserEmail":
		return "user_email"
	default:
		return strings.ToLower(field)
	}
}
