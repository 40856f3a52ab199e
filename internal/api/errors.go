package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/scry-engine/internal/api/shared"
	"github.com/phrazzld/scry-engine/internal/domain"
	"github.com/phrazzld/scry-engine/internal/domain/srs"
	"github.com/phrazzld/scry-engine/internal/platform/token"
	"github.com/phrazzld/scry-engine/internal/service"
	"github.com/phrazzld/scry-engine/internal/service/review_session"
	"github.com/phrazzld/scry-engine/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// exposing the error itself to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, token.ErrInvalidToken),
		errors.Is(err, token.ErrExpiredToken),
		errors.Is(err, token.ErrTokenNotYetValid),
		errors.Is(err, token.ErrMissingToken):
		return http.StatusUnauthorized

	case errors.Is(err, service.ErrCardNotOwned):
		return http.StatusForbidden

	case errors.Is(err, service.ErrCardNotFound),
		errors.Is(err, store.ErrCardNotFound),
		errors.Is(err, review_session.ErrNoActiveSession):
		return http.StatusNotFound

	case errors.Is(err, service.ErrDuplicateCard),
		errors.Is(err, store.ErrDuplicate),
		errors.Is(err, service.ErrCardInactive),
		errors.Is(err, review_session.ErrSessionInProgress),
		errors.Is(err, review_session.ErrOutOfOrder),
		errors.Is(err, review_session.ErrSessionNotFinished),
		errors.Is(err, store.ErrConcurrentModification):
		return http.StatusConflict

	case errors.Is(err, domain.ErrInvalidQuality),
		errors.Is(err, domain.ErrInvalidConfidence),
		errors.Is(err, domain.ErrInvalidTimeSpent),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, srs.ErrInvalidDays),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, shared.ErrEmptyBody):
		return http.StatusBadRequest

	case errors.Is(err, review_session.ErrNoCardsDue):
		return http.StatusNoContent

	case errors.Is(err, store.ErrStoreTimeout):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for err.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, token.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, token.ErrMissingToken):
		return "Authorization header required"
	case errors.Is(err, token.ErrInvalidToken),
		errors.Is(err, token.ErrTokenNotYetValid):
		return "Invalid token"

	case errors.Is(err, service.ErrCardNotOwned):
		return "You do not own this card"
	case errors.Is(err, service.ErrCardNotFound),
		errors.Is(err, store.ErrCardNotFound):
		return "Card not found"
	case errors.Is(err, service.ErrDuplicateCard),
		errors.Is(err, store.ErrDuplicate):
		return "A card already exists for this item"
	case errors.Is(err, service.ErrCardInactive):
		return "Card is not active"

	case errors.Is(err, review_session.ErrNoActiveSession):
		return "No active review session"
	case errors.Is(err, review_session.ErrSessionInProgress):
		return "A review session is already in progress"
	case errors.Is(err, review_session.ErrOutOfOrder):
		return "Card is not the current card of the session"
	case errors.Is(err, review_session.ErrSessionNotFinished):
		return "Session still has cards; complete with force to end it"
	case errors.Is(err, store.ErrConcurrentModification):
		return "Card was modified concurrently, try again"

	case errors.Is(err, domain.ErrInvalidQuality):
		return "Quality must be between 0 and 5"
	case errors.Is(err, domain.ErrInvalidConfidence):
		return "Confidence must be between 0 and 1"
	case errors.Is(err, domain.ErrInvalidTimeSpent):
		return "Time spent cannot be negative"
	case errors.Is(err, srs.ErrInvalidDays):
		return "Days must be at least 1"
	case errors.Is(err, shared.ErrEmptyBody):
		return "Request body is required"
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request data"

	case errors.Is(err, store.ErrStoreTimeout):
		return "Service temporarily unavailable, try again"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the status and safe message for err. defaultMsg
// replaces the generic message for unclassified errors.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	status := MapErrorToStatusCode(err)
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}

	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && defaultMsg != "" {
		message = defaultMsg
	}

	var opts []shared.ResponseOption
	if status == http.StatusConflict || status == http.StatusForbidden {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}

// SanitizeValidationError turns validator errors into a message naming the
// first failing field, without echoing the submitted value.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("Invalid %s: %s", jsonFieldName(fe), getValidationTagMessage(fe.Tag()))
	}
	return "Validation error"
}

// jsonFieldName converts a struct field such as ItemIDs[2] to snake case.
func jsonFieldName(fe validator.FieldError) string {
	name := fe.Field()
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && name[i-1] >= 'a' && name[i-1] <= 'z' {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte", "gt":
		return "too small"
	case "max", "lte", "lt":
		return "too large"
	case "oneof":
		return "invalid value"
	case "uuid":
		return "must be a UUID"
	case "unique":
		return "must not contain duplicates"
	default:
		return "validation failed"
	}
}
