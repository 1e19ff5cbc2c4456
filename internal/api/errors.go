package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fitcoach/coach/internal/api/shared"
	"github.com/fitcoach/coach/internal/domain"
	"github.com/fitcoach/coach/internal/queue"
	"github.com/fitcoach/coach/internal/service"
	"github.com/fitcoach/coach/internal/service/auth"
	"github.com/fitcoach/coach/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// exposing internal error types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusInternalServerError

	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingSubject):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, service.ErrWodNotFound),
		errors.Is(err, service.ErrRequestNotFound),
		errors.Is(err, service.ErrExerciseNotFound),
		errors.Is(err, service.ErrNoUsers),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, shared.ErrEmptyBody):
		return http.StatusBadRequest

	// Broker unavailable
	case errors.Is(err, service.ErrEnqueueFailed),
		errors.Is(err, queue.ErrConnection),
		errors.Is(err, queue.ErrPublish):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for err that never
// includes internal details.
func GetSafeErrorMessage(err error) string {
	switch {
	case err == nil:
		return "An unexpected error occurred"

	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingSubject):
		return "Invalid token"

	case errors.Is(err, domain.ErrUnauthorized):
		return "Access to this user is not allowed"

	case errors.Is(err, service.ErrWodNotFound):
		return "No workout found for user"
	case errors.Is(err, service.ErrRequestNotFound):
		return "Request not found"
	case errors.Is(err, service.ErrExerciseNotFound):
		return "Exercise not found"
	case errors.Is(err, service.ErrNoUsers):
		return "No users found"
	case errors.Is(err, store.ErrNotFound):
		return "Resource not found"

	case errors.Is(err, store.ErrDuplicate):
		return "Resource already exists"

	case errors.Is(err, service.ErrInvalidEmail):
		return "user_email is required"
	case errors.Is(err, shared.ErrEmptyBody):
		return "Request body is required"
	case errors.Is(err, store.ErrInvalidEntity), errors.Is(err, domain.ErrValidation):
		return "Invalid entity data"

	case errors.Is(err, service.ErrEnqueueFailed),
		errors.Is(err, queue.ErrConnection),
		errors.Is(err, queue.ErrPublish):
		return "Workout generation is temporarily unavailable"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the mapped status and safe message for err and logs
// the redacted error. A non-empty message overrides the safe message.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, message string) {
	if message == "" {
		message = GetSafeErrorMessage(err)
	}
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), message, err)
}

// SanitizeValidationError turns validator errors into "Invalid <field>:
// <reason>" without echoing the submitted value.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("Invalid %s: %s", fieldName(fe), getValidationTagMessage(fe.Tag()))
	}
	return "Validation error"
}

func fieldName(fe validator.FieldError) string {
	name := fe.Field()
	// UserEmail -> user_email
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "email":
		return "invalid email format"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
