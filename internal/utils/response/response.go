// Package response provides helpers for writing consistent JSON HTTP
// responses.
//
// Success responses vary by endpoint, but error responses always share one
// shape:
//
//	{ "error": "Roll number already exists" }
//
// Centralising the encoding here keeps every handler's error path to one
// line and keeps the API contract uniform for the frontend.
package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorResponse is the standard envelope for every error case.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteJSON writes a JSON-encoded response with the given HTTP status code.
//
// IMPORTANT ORDER: Header() → WriteHeader() → body writes.
// Once WriteHeader is called (or the first Write), headers are locked.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// Error wraps a Go error into the standard error envelope.
func Error(err error) ErrorResponse {
	return ErrorResponse{Error: err.Error()}
}

// Message wraps a plain string. Use this when the internal error must not
// leak to the client (unexpected/database failures get a generic message).
func Message(msg string) ErrorResponse {
	return ErrorResponse{Error: msg}
}

// ValidationError converts a slice of validator.FieldError values into a
// single response enumerating every failing field.
//
// Example output:
//
//	{ "error": "field Name is required, field School is required" }
func ValidationError(errs validator.ValidationErrors) ErrorResponse {
	var errMessages []string

	for _, e := range errs {
		switch e.ActualTag() {
		case "required":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s is required", e.Field()))
		case "email":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must be a valid email address", e.Field()))
		case "min":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s is too short", e.Field()))
		default:
			errMessages = append(errMessages,
				fmt.Sprintf("field %s is invalid", e.Field()))
		}
	}

	return ErrorResponse{Error: strings.Join(errMessages, ", ")}
}

// FieldProblems joins pre-built per-field messages (the score-shape checks)
// into the same envelope ValidationError produces.
func FieldProblems(problems []string) ErrorResponse {
	return ErrorResponse{Error: strings.Join(problems, ", ")}
}
