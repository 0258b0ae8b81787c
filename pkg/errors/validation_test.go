package errors

import (
	"math"
	"testing"
)

func TestValidatePositive(t *testing.T) {
	tests := []struct {
		name    string
		input   float64
		wantErr bool
	}{
		{"positive", 0.5, false},
		{"large", 1e9, false},

		{"zero", 0, true},
		{"negative", -1, true},
		{"nan", math.NaN(), true},
		{"inf", math.Inf(1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePositive("pitch", tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePositive(%v) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidInput) {
				t.Errorf("ValidatePositive(%v) returned wrong error code: %v", tt.input, err)
			}
		})
	}
}

func TestValidateNonNegative(t *testing.T) {
	tests := []struct {
		name    string
		input   float64
		wantErr bool
	}{
		{"zero", 0, false},
		{"positive", 3, false},
		{"negative", -0.1, true},
		{"nan", math.NaN(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNonNegative("weight", tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateNonNegative(%v) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateFraction(t *testing.T) {
	tests := []struct {
		input   float64
		wantErr bool
	}{
		{0, false},
		{0.9, false},
		{1, false},
		{1.01, true},
		{-0.01, true},
		{math.NaN(), true},
	}

	for _, tt := range tests {
		err := ValidateFraction("decay", tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFraction(%v) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}

func TestValidateIndex(t *testing.T) {
	if err := ValidateIndex("layer", 0, 2); err != nil {
		t.Errorf("ValidateIndex(0, 2) = %v", err)
	}
	if err := ValidateIndex("layer", 2, 2); err == nil {
		t.Error("ValidateIndex(2, 2) should fail")
	}
	if err := ValidateIndex("layer", -1, 2); err == nil {
		t.Error("ValidateIndex(-1, 2) should fail")
	}
}

func TestErrorCodesAreUnique(t *testing.T) {
	codes := []Code{
		ErrCodeInvalidInput,
		ErrCodeDuplicateStamp,
		ErrCodeInsufficientCells,
		ErrCodeSingularSystem,
		ErrCodeUnreachable,
		ErrCodeNotConverged,
		ErrCodeInternal,
	}

	seen := make(map[Code]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %s", code)
		}
		seen[code] = true
	}
}
