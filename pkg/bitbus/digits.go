// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bitbus

import "fmt"

// DigitClass classifies an input character
type DigitClass int

// Digit classes
const (
	ClassOther DigitClass = iota
	ClassDecimal
	ClassHexOnly
)

// Classify returns the digit class of c. Only upper-case hex letters are digits.
func Classify(c byte) DigitClass {
	switch {
	case c >= '0' && c <= '9':
		return ClassDecimal
	case c >= 'A' && c <= 'F':
		return ClassHexOnly
	default:
		return ClassOther
	}
}

// IsDigit reports whether c is a decimal or hex digit
func IsDigit(c byte) bool {
	return Classify(c) != ClassOther
}

// IsDecimal reports whether c is a decimal digit
func IsDecimal(c byte) bool {
	return Classify(c) == ClassDecimal
}

// ToNybble converts a digit character to its value 0-15
func ToNybble(c byte) (uint8, error) {
	switch Classify(c) {
	case ClassDecimal:
		return c - '0', nil
	case ClassHexOnly:
		return 10 + c - 'A', nil
	default:
		return 0, fmt.Errorf("%w: 0x%02X", ErrInvalidDigit, c)
	}
}

// FromNybble converts a value 0-15 to its upper-case digit character
func FromNybble(v uint8) (byte, error) {
	switch {
	case v < 10:
		return '0' + v, nil
	case v < 16:
		return 'A' + v - 10, nil
	default:
		return 0, fmt.Errorf("%w: nybble %d out of range", ErrInvalidDigit, v)
	}
}
