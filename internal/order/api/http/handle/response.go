package handle

import (
	"encoding/json"
	"errors"
	"net/http"

	"restaurant-orders/internal/order/app/core"
	"restaurant-orders/internal/order/domain/dto"
)

// jsonResponse writes data as a JSON body with the given status code.
func jsonResponse(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// jsonError writes an error body carrying the machine-readable kind.
func jsonError(w http.ResponseWriter, code int, err error) {
	body := dto.ErrorResponse{
		Error: err.Error(),
		Code:  code,
		Kind:  core.KindOf(err),
	}

	var ite *core.InvalidTransitionError
	if errors.As(err, &ite) {
		body.Current = string(ite.From)
		body.Target = string(ite.To)
	}
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		body.Field = ve.Field
		body.Error = ve.Error()
	}
	if body.Kind == core.KindInternal {
		body.Error = http.StatusText(code)
	}
	jsonResponse(w, code, body)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrValidation),
		errors.Is(err, core.ErrEmptyOrder),
		errors.Is(err, core.ErrTotalMismatch):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrMissingCancellationReason):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, core.ErrMaxConcurrentExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
