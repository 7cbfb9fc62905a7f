// Package httpx renders API responses, with errors in the RFC7807 problem
// details shape.
package httpx

import (
	"encoding/json"
	"net/http"
)

// Problem type URIs forming the error vocabulary of the ledger API.
const (
	TypeValidation     = "urn:meridian:problem:validation"
	TypeNotFound       = "urn:meridian:problem:not-found"
	TypeConflict       = "urn:meridian:problem:conflict"
	TypeMappingMissing = "urn:meridian:problem:mapping-missing"
	TypeInternal       = "urn:meridian:problem:internal"
)

// ProblemDetail represents RFC7807 problem details.
type ProblemDetail struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Problem sends an RFC7807 problem details response, deriving the problem
// type from the status code.
func Problem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ProblemDetail{
		Type:   typeForStatus(status),
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

func typeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return TypeValidation
	case http.StatusNotFound:
		return TypeNotFound
	case http.StatusConflict:
		return TypeConflict
	case http.StatusUnprocessableEntity:
		return TypeMappingMissing
	default:
		return TypeInternal
	}
}

// DecodeJSON decodes JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}
