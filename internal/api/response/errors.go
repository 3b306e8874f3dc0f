package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/formbricks/ragcore/internal/apperrors"
)

// WriteError maps a domain error from apperrors to the appropriate RFC 7807
// Problem Details response (spec §7's error taxonomy). Errors that don't
// match a known sentinel are treated as internal and logged by the caller.
func WriteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput), errors.Is(err, apperrors.ErrValidation):
		RespondBadRequest(w, err.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		RespondNotFound(w, err.Error())
	case errors.Is(err, apperrors.ErrAlreadyFinalised), errors.Is(err, apperrors.ErrConflict):
		RespondError(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, apperrors.ErrLimitExceeded):
		RespondError(w, http.StatusUnprocessableEntity, "Limit Exceeded", err.Error())
	case errors.Is(err, apperrors.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		RespondError(w, http.StatusGatewayTimeout, "Upstream Timeout", err.Error())
	case errors.Is(err, apperrors.ErrProvider), errors.Is(err, apperrors.ErrStore):
		RespondInternalServerError(w, "An unexpected error occurred")
	default:
		RespondInternalServerError(w, "An unexpected error occurred")
	}
}
