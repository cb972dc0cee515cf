package response

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Response is the error body every handler writes on failure.
type Response struct {
	Error     string `json:"error,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func Error(msg, requestID string) Response {
	return Response{
		Error:     msg,
		RequestID: requestID,
	}
}

// ruleMessages maps a validate tag to a message format taking the field
// name and the tag parameter.
var ruleMessages = map[string]string{
	"required": "%s is required",
	"email":    "%s must be an email address",
	"oneof":    "%s must be one of: %s",
	"min":      "%s must be at least %s",
	"max":      "%s must be at most %s",
}

func describe(fe validator.FieldError) string {
	format, ok := ruleMessages[fe.ActualTag()]
	if !ok {
		return fmt.Sprintf("%s is invalid", fe.Field())
	}

	if strings.Count(format, "%s") == 1 {
		return fmt.Sprintf(format, fe.Field())
	}

	return fmt.Sprintf(format, fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
}

// ValidationError folds every failed rule into one message, in field order.
func ValidationError(errs validator.ValidationErrors) Response {
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		msgs = append(msgs, describe(fe))
	}

	return Response{Error: strings.Join(msgs, "; ")}
}
