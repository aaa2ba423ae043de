package httpx

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/haderos-erp/haderos-core/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.As(err, &validationErrs):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrUnbalancedEntry),
		errors.Is(err, shared.ErrCartInactive),
		errors.Is(err, shared.ErrSessionNotLive),
		errors.Is(err, shared.ErrOrdersDisabled):
		Problem(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error())
	case errors.Is(err, shared.ErrInsufficientStock),
		errors.Is(err, shared.ErrLimitedQuantity),
		errors.Is(err, shared.ErrCreditLimitExceeded),
		errors.Is(err, shared.ErrAlreadyPosted):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrComplianceRejected):
		Problem(w, http.StatusForbidden, "Compliance Rejected", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
