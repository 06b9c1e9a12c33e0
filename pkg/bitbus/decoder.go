// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bitbus

// Status is the outcome of feeding one byte to the Decoder
type Status int

const (
	StatusNeedMoreInput Status = iota
	StatusMessageComplete
	StatusParseError
)

// String returns the status name
func (s Status) String() string {
	switch s {
	case StatusNeedMoreInput:
		return "NeedMoreInput"
	case StatusMessageComplete:
		return "MessageComplete"
	case StatusParseError:
		return "ParseError"
	default:
		return "Unknown"
	}
}

// Decoder implements the BitBus message decoder state machine.
//
// A completed message stays readable through Kind and Message until the
// next byte is processed.
type Decoder struct {
	state  State
	digits [2]byte
	isHex  bool // sticky for the rest of the message once set
	kind   MessageKind
	values [fieldCount]uint8
}

// NewDecoder creates a new protocol decoder
func NewDecoder() *Decoder {
	return &Decoder{state: StateStart}
}

// Reset discards any partial message and returns to the start state
func (d *Decoder) Reset() {
	d.state = StateStart
	d.digits = [2]byte{}
	d.isHex = false
	d.kind = KindUnknown
	d.values = [fieldCount]uint8{}
}

// State returns the current parser state
func (d *Decoder) State() State {
	return d.state
}

// Kind returns the kind of the message being parsed or just completed
func (d *Decoder) Kind() MessageKind {
	return d.kind
}

// IsHex reports whether hex mode has been detected for the current message
func (d *Decoder) IsHex() bool {
	return d.isHex
}

// Message returns the message being parsed or just completed. Analog values
// are only meaningful once the state is StateMessageReady.
func (d *Decoder) Message() Message {
	m := Message{Kind: d.kind}
	if d.kind == KindAnalogPosition {
		m.Left = d.values[FieldLeft]
		m.Right = d.values[FieldRight]
		m.Up = d.values[FieldUp]
		m.Down = d.values[FieldDown]
	}
	return m
}

// ProcessInput feeds one byte through the state machine. On error the
// decoder is back at the start state and the returned error is a *ParseError.
func (d *Decoder) ProcessInput(c byte) (Status, error) {
	// Clean up after the last message
	if d.state == StateMessageReady || d.state == StateError {
		d.Reset()
	}

	rule := lookup(d.state, c)
	if rule == nil {
		err := &ParseError{Kind: ErrorNoTransition, State: d.state, Input: c}
		d.Reset()
		return StatusParseError, err
	}

	next, kind, ok := d.apply(rule, c)
	if !ok {
		err := &ParseError{Kind: kind, State: d.state, Input: c}
		d.Reset()
		return StatusParseError, err
	}

	if rule.Kind != KindUnknown {
		d.kind = rule.Kind
	}
	d.state = next

	if d.state == StateMessageReady {
		return StatusMessageComplete, nil
	}
	return StatusNeedMoreInput, nil
}

// DecodeByte processes a single byte through the decoder state machine.
// Returns the completed message, or nil if the message is incomplete.
// Returns an error if decoding fails.
func (d *Decoder) DecodeByte(c byte) (*Message, error) {
	status, err := d.ProcessInput(c)
	if err != nil {
		return nil, err
	}
	if status != StatusMessageComplete {
		return nil, nil
	}
	m := d.Message()
	return &m, nil
}

// apply runs the rule's transform. It returns the next state, or the error
// kind and false if the field cannot be computed.
func (d *Decoder) apply(rule *TransitionRule, c byte) (State, ErrorKind, bool) {
	next := rule.Next

	switch rule.transform {
	case transformNone:

	case transformStoreDigit0:
		d.digits[0] = c

	case transformStoreDigit1:
		d.digits[1] = c

	case transformStoreDigit1Final:
		d.digits[1] = c
		if d.isHex {
			v, kind, ok := d.hexValue()
			if !ok {
				return 0, kind, false
			}
			d.values[rule.Field] = v
			next = StateMessageReady
		}

	case transformHex:
		d.isHex = true
		v, kind, ok := d.hexValue()
		if !ok {
			return 0, kind, false
		}
		d.values[rule.Field] = v

	case transformDecimal:
		if d.isHex {
			return 0, ErrorUnexpectedDigitInHexMode, false
		}
		v, kind, ok := d.decimalValue(c)
		if !ok {
			return 0, kind, false
		}
		d.values[rule.Field] = v
	}

	return next, 0, true
}

// hexValue combines the two scratch digits as a hex byte
func (d *Decoder) hexValue() (uint8, ErrorKind, bool) {
	hi, err := ToNybble(d.digits[0])
	if err != nil {
		return 0, ErrorInvalidDigit, false
	}
	lo, err := ToNybble(d.digits[1])
	if err != nil {
		return 0, ErrorInvalidDigit, false
	}
	return hi<<4 | lo, 0, true
}

// decimalValue combines the two scratch digits and the ones place. Every
// digit must be decimal.
func (d *Decoder) decimalValue(ones byte) (uint8, ErrorKind, bool) {
	var v int
	for _, c := range [DecimalFieldDigits]byte{d.digits[0], d.digits[1], ones} {
		if !IsDecimal(c) {
			return 0, ErrorInvalidDigit, false
		}
		n, _ := ToNybble(c)
		v = v*10 + int(n)
	}
	if v > 0xFF {
		return 0, ErrorValueOutOfRange, false
	}
	return uint8(v), 0, true
}
