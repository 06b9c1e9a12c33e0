// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bitbus

import "fmt"

// Encoder produces wire bytes the way the controller app sends them.
type Encoder struct {
	mode Mode
}

// NewEncoder creates an encoder writing analog fields in the given mode
func NewEncoder(mode Mode) *Encoder {
	return &Encoder{mode: mode}
}

// Mode returns the analog field encoding
func (e *Encoder) Mode() Mode {
	return e.mode
}

// Encode encodes a Message to wire format
func (e *Encoder) Encode(m Message) ([]byte, error) {
	return EncodeMessage(m, e.mode)
}

// EncodeMessage encodes a Message to wire format
func EncodeMessage(m Message, mode Mode) ([]byte, error) {
	if m.Kind == KindAnalogPosition {
		return EncodeAnalog(m.Left, m.Right, m.Up, m.Down, mode), nil
	}
	return EncodeButton(m.Kind)
}

// EncodeButton returns the single command letter for a button kind
func EncodeButton(kind MessageKind) ([]byte, error) {
	switch kind {
	case KindStart:
		return []byte{CmdStart}, nil
	case KindSelect:
		return []byte{CmdSelect}, nil
	case KindButtonA:
		return []byte{CmdButtonA}, nil
	case KindButtonB:
		return []byte{CmdButtonB}, nil
	case KindButtonX:
		return []byte{CmdButtonX}, nil
	case KindButtonY:
		return []byte{CmdButtonY}, nil
	default:
		return nil, fmt.Errorf("%w: %s is not a button", ErrUnhandledMessageKind, FormatMessageKind(kind))
	}
}

// EncodeAnalog builds an L..R..F..B.. frame. Hex fields are 2 digits,
// decimal fields are 3.
func EncodeAnalog(left, right, up, down uint8, mode Mode) []byte {
	width := HexFieldDigits
	if mode == ModeDecimal {
		width = DecimalFieldDigits
	}
	frame := make([]byte, 0, 4*(1+width))

	fields := [fieldCount]struct {
		letter byte
		value  uint8
	}{
		{FieldLetterLeft, left},
		{FieldLetterRight, right},
		{FieldLetterUp, up},
		{FieldLetterDown, down},
	}
	for _, f := range fields {
		frame = append(frame, f.letter)
		frame = appendField(frame, f.value, mode)
	}
	return frame
}

func appendField(dst []byte, v uint8, mode Mode) []byte {
	if mode == ModeDecimal {
		return append(dst, '0'+v/100, '0'+v/10%10, '0'+v%10)
	}
	hi, _ := FromNybble(v >> 4)
	lo, _ := FromNybble(v & 0x0F)
	return append(dst, hi, lo)
}

// ParseMode parses "hex" or "decimal"
func ParseMode(s string) (Mode, error) {
	switch s {
	case "hex":
		return ModeHex, nil
	case "decimal", "dec":
		return ModeDecimal, nil
	default:
		return 0, fmt.Errorf("unknown mode %q (use hex or decimal)", s)
	}
}

// String returns the mode name
func (m Mode) String() string {
	if m == ModeDecimal {
		return "decimal"
	}
	return "hex"
}
