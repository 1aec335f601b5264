package handler

import (
	"net/http"

	"github.com/mcoot/topple/internal/api/apierr"
)

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	apierr.WriteError(w, err)
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return apierr.NewInvalidRequestError(message)
}

// NewGoneError creates a match-over error for event streams
func NewGoneError() error {
	return apierr.NewGoneError()
}
