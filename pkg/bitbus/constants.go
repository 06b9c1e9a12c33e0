// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package bitbus decodes the ASCII serial protocol sent by the BitBus
// controller app into game-pad state.
//
// The protocol is one character per step. A single letter at the start of a
// message is a button press. An analog frame is L<field>R<field>F<field>B<field>
// where every field is either 2 hex digits or 3 decimal digits. The Decoder
// turns bytes into Messages; the GamePad aggregates Messages into button and
// joystick state.
package bitbus

// Command letters sent by the controller app
const (
	CmdStart   = 'S'
	CmdSelect  = 'C'
	CmdButtonA = 'A'
	CmdButtonB = 'B'
	CmdButtonX = 'X'
	CmdButtonY = 'Y'
	CmdAnalog  = 'L'
)

// Analog frame field letters
const (
	FieldLetterLeft  = 'L'
	FieldLetterRight = 'R'
	FieldLetterUp    = 'F'
	FieldLetterDown  = 'B'
)

// Field widths
const (
	HexFieldDigits     = 2
	DecimalFieldDigits = 3
)

// Action button bits (GamePad.ActionButtons)
const (
	BitStart    = 0
	BitSelect   = 1
	BitTriangle = 2 // B
	BitCircle   = 3 // Y
	BitCross    = 4 // X
	BitSquare   = 5 // A
)

// Position button bits (GamePad.PositionButtons)
const (
	BitUp    = 0
	BitDown  = 1
	BitLeft  = 2
	BitRight = 3
)

// DefaultBaudRate is the link speed the controller app uses unless configured otherwise.
const DefaultBaudRate = 9600

// MessageKind identifies a decoded message
type MessageKind uint8

// Message kinds
const (
	KindUnknown MessageKind = iota
	KindStart
	KindSelect
	KindButtonA
	KindButtonB
	KindButtonX
	KindButtonY
	KindAnalogPosition
)

// IsButton reports whether the kind is a single-letter button command
func (k MessageKind) IsButton() bool {
	return k >= KindStart && k <= KindButtonY
}

// Field indexes an analog frame field
type Field uint8

// Analog frame fields, in wire order
const (
	FieldLeft Field = iota
	FieldRight
	FieldUp
	FieldDown
	fieldCount
)

// Mode selects the numeric encoding of analog fields
type Mode int

// Field encodings
const (
	ModeHex Mode = iota
	ModeDecimal
)
