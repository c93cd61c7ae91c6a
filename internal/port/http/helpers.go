package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/service"
	"github.com/go-playground/validator/v10"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type ValidationErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

func mapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrEmailDisabled):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// clientMessage hides internal error detail behind 5xx responses.
func clientMessage(code int, err error) string {
	switch code {
	case http.StatusInternalServerError:
		return "internal server error"
	case http.StatusServiceUnavailable:
		return entity.ErrStoreUnavailable.Error()
	}
	return err.Error()
}

func formatValidationErrors(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		field := strings.ToLower(fe.Field())
		switch fe.ActualTag() {
		case "required":
			details[field] = "is required"
		case "min":
			details[field] = fmt.Sprintf("must be at least %s", fe.Param())
		case "max":
			details[field] = fmt.Sprintf("must be at most %s", fe.Param())
		case "email":
			details[field] = "must be a valid e-mail address"
		case "ne":
			details[field] = fmt.Sprintf("must not be %q", fe.Param())
		default:
			details[field] = fmt.Sprintf("failed on %s", fe.Tag())
		}
	}
	return details
}
