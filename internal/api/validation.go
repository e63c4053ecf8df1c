package api

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

type ValidationResponse struct {
	Error   string       `json:"error"`
	Reason  string       `json:"reason"`
	Details []FieldError `json:"details,omitempty"`
}

// Validation turns a gin binding error into an INVALID_INPUT body. Malformed
// JSON has no field details.
func Validation(err error) ValidationResponse {
	resp := ValidationResponse{Error: "invalid request body", Reason: string(ReasonInvalidInput)}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return resp
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		d := FieldError{Field: fe.Field(), Tag: fe.Tag(), Message: fieldMessage(fe)}
		resp.Details = append(resp.Details, d)
		msgs = append(msgs, d.Message)
	}
	resp.Error = strings.Join(msgs, "; ")
	return resp
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	case "gt":
		return fe.Field() + " must be greater than " + fe.Param()
	case "gte":
		return fe.Field() + " must be greater than or equal to " + fe.Param()
	case "lte":
		return fe.Field() + " must be less than or equal to " + fe.Param()
	default:
		return fe.Field() + " is invalid"
	}
}
