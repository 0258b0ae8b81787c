package errors

import (
	"math"
)

// ValidatePositive checks that v is a finite number strictly greater than zero.
// what names the quantity in the error message (e.g. "grid pitch").
func ValidatePositive(what string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return New(ErrCodeInvalidInput, "%s must be finite, got %v", what, v)
	}
	if v <= 0 {
		return New(ErrCodeInvalidInput, "%s must be positive, got %v", what, v)
	}
	return nil
}

// ValidateNonNegative checks that v is finite and not below zero.
func ValidateNonNegative(what string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return New(ErrCodeInvalidInput, "%s must be finite, got %v", what, v)
	}
	if v < 0 {
		return New(ErrCodeInvalidInput, "%s must not be negative, got %v", what, v)
	}
	return nil
}

// ValidateFraction checks that v lies in the closed interval [0, 1].
func ValidateFraction(what string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return New(ErrCodeInvalidInput, "%s must be in [0, 1], got %v", what, v)
	}
	return nil
}

// ValidateIndex checks that i addresses one of n elements.
func ValidateIndex(what string, i, n int) error {
	if i < 0 || i >= n {
		return New(ErrCodeInvalidInput, "%s %d out of range [0, %d)", what, i, n)
	}
	return nil
}
