package model

import "errors"

// Common errors used across the application
var (
	// Match errors
	ErrMatchNotFound = errors.New("match not found")
	ErrTurnRejected  = errors.New("turn rejected: match not in play or turn already in progress")
	ErrMatchOver     = errors.New("match is over")

	// Structure errors
	ErrStructureNotFound = errors.New("structure not found")
	ErrEmptyCatalog      = errors.New("structure catalog is empty")
	ErrInvalidStructure  = errors.New("invalid structure layout")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
)
