// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bitbus

import (
	"errors"
	"fmt"
)

// Sentinel errors. A *ParseError unwraps to one of these.
var (
	ErrNoTransition             = errors.New("no transition")
	ErrInvalidDigit             = errors.New("invalid digit")
	ErrUnexpectedDigitInHexMode = errors.New("unexpected digit in hex mode")
	ErrUnhandledMessageKind     = errors.New("unhandled message kind")
	ErrValueOutOfRange          = errors.New("value out of range")
)

// ErrorKind classifies a decode failure
type ErrorKind int

const (
	ErrorNoTransition ErrorKind = iota
	ErrorInvalidDigit
	ErrorUnexpectedDigitInHexMode
	ErrorUnhandledMessageKind
	ErrorValueOutOfRange
)

func (k ErrorKind) sentinel() error {
	switch k {
	case ErrorNoTransition:
		return ErrNoTransition
	case ErrorInvalidDigit:
		return ErrInvalidDigit
	case ErrorUnexpectedDigitInHexMode:
		return ErrUnexpectedDigitInHexMode
	case ErrorUnhandledMessageKind:
		return ErrUnhandledMessageKind
	default:
		return ErrValueOutOfRange
	}
}

// String returns the error kind name
func (k ErrorKind) String() string {
	switch k {
	case ErrorNoTransition:
		return "NoTransition"
	case ErrorInvalidDigit:
		return "InvalidDigit"
	case ErrorUnexpectedDigitInHexMode:
		return "UnexpectedDigitInHexMode"
	case ErrorUnhandledMessageKind:
		return "UnhandledMessageKind"
	case ErrorValueOutOfRange:
		return "ValueOutOfRange"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// ParseError reports a decode failure. State is the parser state the
// offending input arrived in.
type ParseError struct {
	Kind  ErrorKind
	State State
	Input byte
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Kind == ErrorUnhandledMessageKind {
		return e.Kind.sentinel().Error()
	}
	return fmt.Sprintf("%v: input %s in state %s", e.Kind.sentinel(), formatInput(e.Input), FormatState(e.State))
}

// Unwrap returns the sentinel error for the kind
func (e *ParseError) Unwrap() error {
	return e.Kind.sentinel()
}

// ErrorKindOf returns the kind of a decode error, or false if err is not one
func ErrorKindOf(err error) (ErrorKind, bool) {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return 0, false
}

func formatInput(c byte) string {
	if c >= 0x20 && c < 0x7F {
		return fmt.Sprintf("'%c'", c)
	}
	return fmt.Sprintf("0x%02X", c)
}
