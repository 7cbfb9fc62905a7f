package httpx

import (
	"errors"
	"net/http"

	"github.com/meridian-erp/meridian-ledger/internal/ledger/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrEntryNotFound),
		errors.Is(err, shared.ErrAccountNotFound),
		errors.Is(err, shared.ErrPeriodNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrAlreadyClosed),
		errors.Is(err, shared.ErrDuplicateCode):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrUnbalanced),
		errors.Is(err, shared.ErrTooFewLegs),
		errors.Is(err, shared.ErrZeroAmount),
		errors.Is(err, shared.ErrTwoSidedLeg),
		errors.Is(err, shared.ErrPeriodClosed),
		errors.Is(err, shared.ErrAccountProtected):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrMappingNotFound):
		Problem(w, http.StatusUnprocessableEntity, "Mapping Missing", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
